package handlers

import (
	"net/http"

	"batball/internal/middleware"
	"batball/internal/service"

	"github.com/gin-gonic/gin"
)

type NewsHandler struct {
	service service.NewsService
}

func NewNewsHandler(service service.NewsService) *NewsHandler {
	return &NewsHandler{service: service}
}

func (h *NewsHandler) GetNews(c *gin.Context) {
	pageSize, err := intQuery(c, "pageSize", 0)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	page, err := intQuery(c, "page", 0)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	result, err := h.service.Search(c.Request.Context(), service.NewsQuery{
		Q:        c.Query("q"),
		Language: c.Query("language"),
		SortBy:   c.Query("sortBy"),
		PageSize: pageSize,
		Page:     page,
		Refresh:  wantsRefresh(c),
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
