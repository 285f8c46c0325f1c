package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"batball/internal/apperr"
	"batball/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestIPRateLimitMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	router := gin.New()
	router.Use(ErrorHandler(false, logger))
	router.Use(IPRateLimitMiddleware(NewIPRateLimiter(3, time.Hour), logger, "/api/health"))
	router.GET("/api/matches", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/api/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	do := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		if rec := do("/api/matches", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	rec := do("/api/matches", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	body := decodeBody(t, rec)
	if body.Status != "error" || body.Code != "rate_limited" {
		t.Fatalf("body = %+v", body)
	}

	if rec := do("/api/health", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want exempt", rec.Code)
	}
	if rec := do("/api/matches", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("other ip status = %d", rec.Code)
	}
}

func TestIPRateLimiterCleanup(t *testing.T) {
	limiter := NewIPRateLimiter(10, time.Minute)
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("a")
	now = now.Add(2 * time.Minute)
	limiter.GetLimiter("b")

	if removed := limiter.Cleanup(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if limiter.Size() != 1 {
		t.Fatalf("size = %d, want 1", limiter.Size())
	}
}

func TestIPRateLimiterRefillsEvenly(t *testing.T) {
	limiter := NewIPRateLimiter(4, time.Minute)
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d of the burst rejected", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("request over the burst allowed")
	}

	// один токен каждые window/max = 15s
	now = now.Add(16 * time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("token not refilled after window/max")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("second request allowed after a single refill")
	}

	if !limiter.Allow("10.0.0.2") {
		t.Fatal("other ip shares the bucket")
	}
}

func TestAuth(t *testing.T) {
	jwtService := auth.NewJWTService("secret", time.Hour)
	token, err := jwtService.GenerateToken("u-1", "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	router := gin.New()
	router.Use(ErrorHandler(false, zaptest.NewLogger(t)))
	router.GET("/private", Auth(jwtService), func(c *gin.Context) {
		userID, username, _ := CurrentUser(c)
		c.String(http.StatusOK, userID+":"+username)
	})
	router.GET("/public", OptionalAuth(jwtService), func(c *gin.Context) {
		if _, username, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, username)
			return
		}
		c.String(http.StatusOK, "guest")
	})

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", path: "/private", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "u-1:alice"},
		{name: "missing header", path: "/private", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/private", header: "Basic " + token, wantStatus: http.StatusUnauthorized},
		{name: "bad token", path: "/private", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "optional with token", path: "/public", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "optional bad token", path: "/public", header: "Bearer nope", wantStatus: http.StatusOK, wantBody: "guest"},
		{name: "optional without token", path: "/public", wantStatus: http.StatusOK, wantBody: "guest"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, testCase.path, nil)
			if testCase.header != "" {
				req.Header.Set("Authorization", testCase.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != testCase.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, testCase.wantStatus)
			}
			if testCase.wantStatus == http.StatusUnauthorized {
				if body := decodeBody(t, rec); body.Code != "unauthorized" {
					t.Fatalf("body = %+v", body)
				}
				return
			}
			if rec.Body.String() != testCase.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body.String(), testCase.wantBody)
			}
		})
	}
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		production  bool
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{name: "invalid argument", err: apperr.InvalidArgument("limit must be between 1 and 50"), wantStatus: 400, wantCode: "invalid_argument", wantMessage: "limit must be between 1 and 50"},
		{name: "plain error in development", err: errors.New("boom"), wantStatus: 500, wantCode: "internal_error", wantMessage: "boom"},
		{name: "plain error in production", err: errors.New("boom"), production: true, wantStatus: 500, wantCode: "internal_error", wantMessage: "Internal server error"},
		{name: "internal kind in production", err: apperr.Wrap(apperr.KindInternal, "failed to query users", errors.New("pq")), production: true, wantStatus: 500, wantCode: "internal_error", wantMessage: "Internal server error"},
		{name: "upstream kept in production", err: apperr.UpstreamHTTP(503, nil), production: true, wantStatus: 502, wantCode: "upstream_http_error", wantMessage: "External API error"},
		{
			name:        "no cache over surfaced provider error",
			err:         apperr.Wrap(apperr.KindNoCacheAvailable, "no cached data available", &apperr.Error{Kind: apperr.KindUpstreamHTTP, Message: "Your API key is invalid", Status: 401, Surface: true}),
			wantStatus:  401,
			wantCode:    "upstream_http_error",
			wantMessage: "Your API key is invalid",
		},
		{
			name:        "no cache over timeout",
			err:         apperr.Wrap(apperr.KindNoCacheAvailable, "no cached data available", apperr.New(apperr.KindUpstreamTimeout, "upstream timeout")),
			wantStatus:  504,
			wantCode:    "no_cache_available",
			wantMessage: "no cached data available",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			status, body := Envelope(testCase.err, testCase.production)
			if status != testCase.wantStatus || body.Code != testCase.wantCode || body.Message != testCase.wantMessage {
				t.Fatalf("got %d %+v", status, body)
			}
			if body.Status != "error" {
				t.Fatalf("status field = %q", body.Status)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(true, zaptest.NewLogger(t)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body.Code != "internal_error" {
		t.Fatalf("body = %+v", body)
	}
}
