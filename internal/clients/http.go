package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"batball/internal/apperr"
)

const userAgent = "BatBall-Backend/1.0"

type requester struct {
	client *http.Client
	retry  RetryPolicy
}

// getJSON выполняет GET с политикой повторов и декодирует тело в dest
func (r *requester) getJSON(ctx context.Context, reqURL string, headers map[string]string, dest any) error {
	return r.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "create request", err)
		}

		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := r.client.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
				return apperr.Wrap(apperr.KindUpstreamTimeout, "upstream request timed out", err)
			}
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return apperr.UpstreamHTTP(resp.StatusCode, decodeErrorBody(body))
		}

		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return apperr.Wrap(apperr.KindUpstreamMalformed, "decode JSON", err)
		}
		return nil
	})
}

func isTimeout(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// decodeErrorBody отдает JSON тела ошибки как есть, иначе строку
func decodeErrorBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return string(body)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}
