package handlers

import (
	"net/http"

	"batball/internal/middleware"
	"batball/internal/models"
	"batball/internal/service"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	service service.MatchService
}

func NewMatchHandler(service service.MatchService) *MatchHandler {
	return &MatchHandler{service: service}
}

type matchResponse struct {
	models.Match
	Meta *service.Meta `json:"_meta,omitempty"`
}

// ListMatches godoc
// @Summary Список матчей
// @Description Живые, предстоящие и завершенные матчи с пагинацией
// @Tags Matches
// @Param type query string false "all|live|upcoming|recent"
// @Param page query int false "страница, с 1"
// @Param limit query int false "1..50"
// @Router /matches [get]
func (h *MatchHandler) ListMatches(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 5)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), service.MatchQuery{
		Type:    c.DefaultQuery("type", service.MatchTypeAll),
		Page:    page,
		Limit:   limit,
		Refresh: wantsRefresh(c),
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *MatchHandler) GetMatch(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("matchId"), wantsRefresh(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, matchResponse{Match: result.Match, Meta: result.Meta})
}

func (h *MatchHandler) ListSeries(c *gin.Context) {
	result, err := h.service.Series(c.Request.Context(), wantsRefresh(c))
	h.writeRaw(c, result, err)
}

func (h *MatchHandler) GetSeries(c *gin.Context) {
	result, err := h.service.SeriesDetail(c.Request.Context(), c.Param("seriesId"), wantsRefresh(c))
	h.writeRaw(c, result, err)
}

func (h *MatchHandler) GetPlayer(c *gin.Context) {
	result, err := h.service.Player(c.Request.Context(), c.Param("playerId"), wantsRefresh(c))
	h.writeRaw(c, result, err)
}

// GetRankings отдает ICC рейтинг: batsmen|bowlers|allrounders|teams, ?format=test|odi|t20
func (h *MatchHandler) GetRankings(c *gin.Context) {
	result, err := h.service.Rankings(c.Request.Context(), c.Param("category"), c.Query("format"), wantsRefresh(c))
	h.writeRaw(c, result, err)
}

func (h *MatchHandler) writeRaw(c *gin.Context, result *service.RawResult, err error) {
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	body, err := withMeta(result.Data, result.Meta)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
