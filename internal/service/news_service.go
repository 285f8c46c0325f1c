package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"batball/internal/apperr"
	"batball/internal/clients"
	"batball/internal/gateway"
)

type NewsQuery struct {
	Q        string
	Language string
	SortBy   string
	PageSize int
	Page     int
	Refresh  bool
}

type NewsResult struct {
	*clients.NewsResponse
	Meta *Meta `json:"_meta,omitempty"`
}

type NewsService interface {
	Search(ctx context.Context, query NewsQuery) (*NewsResult, error)
}

type newsService struct {
	gw     *gateway.Gateway
	client clients.NewsClient
	ttl    time.Duration
}

func NewNewsService(gw *gateway.Gateway, client clients.NewsClient, ttl time.Duration) NewsService {
	return &newsService{gw: gw, client: client, ttl: ttl}
}

var newsSortOrders = map[string]bool{"publishedAt": true, "relevancy": true, "popularity": true}

func (q *NewsQuery) normalize() error {
	if strings.TrimSpace(q.Q) == "" {
		q.Q = "cricket"
	}
	if q.Language == "" {
		q.Language = "en"
	}
	if q.SortBy == "" {
		q.SortBy = "publishedAt"
	}
	if !newsSortOrders[q.SortBy] {
		return apperr.InvalidArgument("sortBy must be one of publishedAt, relevancy, popularity")
	}
	if q.PageSize == 0 {
		q.PageSize = 20
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		return apperr.InvalidArgument("pageSize must be between 1 and 100")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		return apperr.InvalidArgument("Page number must be greater than 0")
	}
	return nil
}

// cacheKey: одинаковые параметры дают один ключ news_{hash}
func (q NewsQuery) cacheKey() string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s|%d|%d", strings.ToLower(q.Q), q.Language, q.SortBy, q.PageSize, q.Page)))
	return "news_" + hex.EncodeToString(sum[:])[:16]
}

func (s *newsService) Search(ctx context.Context, query NewsQuery) (*NewsResult, error) {
	if err := query.normalize(); err != nil {
		return nil, err
	}

	result, err := gateway.Fetch(ctx, s.gw, query.cacheKey(), s.ttl, func(ctx context.Context) (*clients.NewsResponse, error) {
		return s.client.Everything(ctx, clients.NewsQuery{
			Q:        query.Q,
			Language: query.Language,
			SortBy:   query.SortBy,
			PageSize: query.PageSize,
			Page:     query.Page,
		})
	}, gateway.ForceRefresh(query.Refresh))
	if err != nil {
		return nil, err
	}
	return &NewsResult{NewsResponse: result.Value, Meta: metaOf(result)}, nil
}
