package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"batball/internal/apperr"
	"batball/internal/chat"
	"batball/internal/gateway"
	"batball/internal/middleware"
	"batball/internal/service"
	redisstats "batball/pkg/redis"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

// Counter is any table that can report its row count.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type SystemHandler struct {
	gw       *gateway.Gateway
	matches  service.MatchService
	hub      *chat.Hub
	redis    *goredis.Client
	counters map[string]Counter
	workers  map[string]bool
	now      func() time.Time
}

// NewSystemHandler; redis может быть nil при in-memory кэше
func NewSystemHandler(
	gw *gateway.Gateway,
	matches service.MatchService,
	hub *chat.Hub,
	redis *goredis.Client,
	counters map[string]Counter,
	workers map[string]bool,
) *SystemHandler {
	return &SystemHandler{
		gw:       gw,
		matches:  matches,
		hub:      hub,
		redis:    redis,
		counters: counters,
		workers:  workers,
		now:      time.Now,
	}
}

// Health godoc
// @Summary Health check
// @Description Статус сервиса и состояние кэша
// @Tags System
// @Produce json
// @Router /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	keys, err := h.gw.Keys(ctx)
	if err != nil {
		keys = []string{}
	}
	sort.Strings(keys)

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"cache": gin.H{
			"stats": h.gw.Stats(ctx),
			"keys":  keys,
		},
	})
}

func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	// счетчики таблиц собираем параллельно
	names := make([]string, 0, len(h.counters))
	for name := range h.counters {
		names = append(names, name)
	}
	counts := make([]int64, len(names))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		counter := h.counters[name]
		group.Go(func() error {
			count, err := counter.Count(groupCtx)
			if err != nil {
				return err
			}
			counts[i] = count
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		middleware.Fail(c, apperr.Wrap(apperr.KindInternal, "count rows", err))
		return
	}

	database := make(gin.H, len(names))
	for i, name := range names {
		database[name] = counts[i]
	}

	response := gin.H{
		"database": database,
		"cache":    h.gw.Stats(ctx),
		"chat": gin.H{
			"rooms": h.hub.Rooms(),
		},
		"workers":   h.workers,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}

	if h.redis != nil {
		if stats, err := redisstats.GetStats(ctx, h.redis); err == nil {
			response["redis"] = stats
		} else {
			response["redis"] = gin.H{"error": err.Error()}
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *SystemHandler) RefreshMatches(c *gin.Context) {
	if err := h.matches.RefreshFeeds(c.Request.Context()); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Matches refreshed"})
}

func (h *SystemHandler) ClearCache(c *gin.Context) {
	if err := h.gw.Clear(c.Request.Context()); err != nil {
		middleware.Fail(c, apperr.Wrap(apperr.KindInternal, "clear cache", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cache cleared"})
}
