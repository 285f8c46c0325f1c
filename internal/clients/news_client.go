package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"batball/internal/apperr"
)

type NewsClient interface {
	Everything(ctx context.Context, query NewsQuery) (*NewsResponse, error)
}

type NewsQuery struct {
	Q        string
	Language string
	SortBy   string
	PageSize int
	Page     int
}

type NewsResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

type Article struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string   `json:"author"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	URL         string    `json:"url"`
	URLToImage  *string   `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     *string   `json:"content"`
}

type newsClient struct {
	baseURL string
	apiKey  string
	http    *requester
}

type NewsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   RetryPolicy
}

func NewNewsClient(config NewsConfig) NewsClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &newsClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		http: &requester{
			client: newHTTPClient(timeout),
			retry:  config.Retry,
		},
	}
}

func (c *newsClient) Everything(ctx context.Context, query NewsQuery) (*NewsResponse, error) {
	params := url.Values{}
	params.Set("q", query.Q)
	params.Set("language", query.Language)
	params.Set("sortBy", query.SortBy)
	params.Set("pageSize", strconv.Itoa(query.PageSize))
	params.Set("page", strconv.Itoa(query.Page))

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["X-Api-Key"] = c.apiKey
	}

	var resp NewsResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/everything?"+params.Encode(), headers, &resp); err != nil {
		// статус провайдера новостей отдается клиенту как есть
		if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindUpstreamHTTP {
			appErr.Surface = true
			if body, ok := appErr.Details.(map[string]any); ok {
				if msg, ok := body["message"].(string); ok && msg != "" {
					appErr.Message = msg
				}
			}
		}
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	// NewsAPI может вернуть 200 со status=error
	if resp.Status == "error" {
		msg := resp.Message
		if msg == "" {
			msg = "News API returned an error"
		}
		return nil, &apperr.Error{Kind: apperr.KindUpstreamHTTP, Message: msg, Status: 400, Surface: true, Details: resp.Code}
	}

	return &resp, nil
}
