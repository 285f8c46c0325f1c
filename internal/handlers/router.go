package handlers

import (
	"batball/internal/auth"
	"batball/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Router wires handlers to routes. Nil handlers leave their routes out.
type Router struct {
	Matches *MatchHandler
	News    *NewsHandler
	Auth    *AuthHandler
	Forum   *ForumHandler
	Chat    *ChatHandler
	System  *SystemHandler
	JWT     *auth.JWTService
	// Debug включает /api/refresh/matches и DELETE /api/cache
	Debug bool
}

func (rt Router) Register(r *gin.Engine) {
	api := r.Group("/api")

	if rt.System != nil {
		api.GET("/health", rt.System.Health)
		api.GET("/system/stats", rt.System.Stats)
		if rt.Debug {
			api.POST("/refresh/matches", rt.System.RefreshMatches)
			api.DELETE("/cache", rt.System.ClearCache)
		}
	}

	if rt.Matches != nil {
		api.GET("/matches", rt.Matches.ListMatches)
		api.GET("/matches/:matchId", rt.Matches.GetMatch)
		api.GET("/series", rt.Matches.ListSeries)
		api.GET("/series/:seriesId", rt.Matches.GetSeries)
		api.GET("/players/:playerId", rt.Matches.GetPlayer)
		api.GET("/stats/rankings/:category", rt.Matches.GetRankings)
	}

	if rt.News != nil {
		api.GET("/news", rt.News.GetNews)
	}

	if rt.Auth != nil {
		authGroup := api.Group("/auth")
		authGroup.POST("/register", rt.Auth.Register)
		authGroup.POST("/login", rt.Auth.Login)
	}

	if rt.Forum != nil {
		posts := api.Group("/posts")
		posts.GET("", rt.Forum.ListPosts)
		posts.GET("/:id", rt.Forum.GetPost)
		posts.POST("", middleware.Auth(rt.JWT), rt.Forum.CreatePost)
		posts.POST("/:id/comments", middleware.OptionalAuth(rt.JWT), rt.Forum.AddComment)
	}

	if rt.Chat != nil {
		chatGroup := api.Group("/chat", middleware.Auth(rt.JWT))
		chatGroup.GET("/:room", rt.Chat.History)
		chatGroup.GET("/:room/export", rt.Chat.Export)

		r.GET("/ws/chat", rt.Chat.ServeWS)
	}
}
