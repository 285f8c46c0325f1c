package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"batball/internal/apperr"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: 0}
}

const liveFeed = `{
  "typeMatches": [{
    "matchType": "International",
    "seriesMatches": [{
      "seriesAdWrapper": {
        "seriesId": 7607,
        "seriesName": "ICC Champions Trophy 2025",
        "matches": [{
          "matchInfo": {
            "matchId": 112455,
            "matchFormat": "ODI",
            "startDate": "1741510800000",
            "state": "In Progress",
            "status": "India need 40 runs",
            "team1": {"teamName": "India"},
            "team2": {"teamName": "New Zealand"},
            "venueInfo": {"ground": "Dubai International Cricket Stadium", "city": "Dubai"}
          },
          "matchScore": {"team1Score": {"inngs1": {"runs": 211, "wickets": 4, "overs": 42.1}}}
        }]
      }
    }, {"adDetail": {"name": "ad"}}]
  }]
}`

func TestGetMatchesSendsRapidAPIHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/matches/v1/live" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-RapidAPI-Key") != "key" || r.Header.Get("X-RapidAPI-Host") != "host" {
			t.Errorf("missing RapidAPI headers: %v", r.Header)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(liveFeed))
	}))
	defer server.Close()

	client := NewCricbuzzClient(CricbuzzConfig{BaseURL: server.URL, APIKey: "key", APIHost: "host", Retry: fastRetry()})

	list, err := client.GetMatches(context.Background(), FeedLive)
	if err != nil {
		t.Fatalf("GetMatches: %v", err)
	}

	wrapper := list.TypeMatches[0].SeriesMatches[0].SeriesAdWrapper
	if wrapper == nil || wrapper.SeriesName != "ICC Champions Trophy 2025" {
		t.Fatalf("wrapper = %+v", wrapper)
	}
	info := wrapper.Matches[0].MatchInfo
	if info.MatchID.String() != "112455" || info.Team2.TeamName != "New Zealand" {
		t.Fatalf("match info = %+v", info)
	}
	if list.TypeMatches[0].SeriesMatches[1].SeriesAdWrapper != nil {
		t.Fatal("ad entries must not produce a series wrapper")
	}
}

func TestRequesterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"matchInfo": {"matchId": 1}}`))
	}))
	defer server.Close()

	client := NewCricbuzzClient(CricbuzzConfig{BaseURL: server.URL, Retry: fastRetry()})

	detail, err := client.GetMatch(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if detail.MatchInfo == nil || calls.Load() != 3 {
		t.Fatalf("detail=%+v calls=%d", detail, calls.Load())
	}
}

func TestRequesterErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantKind  apperr.Kind
		wantCalls int32
	}{
		{name: "client error is permanent", status: http.StatusForbidden, body: `{"message":"not subscribed"}`, wantKind: apperr.KindUpstreamHTTP, wantCalls: 1},
		{name: "server error exhausts attempts", status: http.StatusBadGateway, wantKind: apperr.KindUpstreamHTTP, wantCalls: 3},
		{name: "rate limit is retried", status: http.StatusTooManyRequests, wantKind: apperr.KindUpstreamHTTP, wantCalls: 3},
		{name: "malformed body", status: http.StatusOK, body: `{"typeMatches": [`, wantKind: apperr.KindUpstreamMalformed, wantCalls: 1},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := NewCricbuzzClient(CricbuzzConfig{BaseURL: server.URL, Retry: fastRetry()})
			_, err := client.GetMatches(context.Background(), FeedRecent)
			if apperr.KindOf(err) != testCase.wantKind {
				t.Fatalf("err = %v, want kind %v", err, testCase.wantKind)
			}
			if calls.Load() != testCase.wantCalls {
				t.Fatalf("calls = %d, want %d", calls.Load(), testCase.wantCalls)
			}
			if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindUpstreamHTTP && appErr.Status != testCase.status {
				t.Fatalf("status = %d, want %d", appErr.Status, testCase.status)
			}
		})
	}
}

func TestRequesterTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewCricbuzzClient(CricbuzzConfig{
		BaseURL: server.URL,
		Timeout: 20 * time.Millisecond,
		Retry:   RetryPolicy{MaxAttempts: 1},
	})

	_, err := client.GetMatch(context.Background(), "9")
	if apperr.KindOf(err) != apperr.KindUpstreamTimeout {
		t.Fatalf("err = %v, want upstream timeout", err)
	}
}

func TestGetPassesQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats/v1/rankings/batsmen" || r.URL.Query().Get("formatType") != "odi" {
			t.Errorf("url = %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"rank":[{"name":"Shubman Gill"}]}`))
	}))
	defer server.Close()

	client := NewCricbuzzClient(CricbuzzConfig{BaseURL: server.URL, Retry: fastRetry()})
	raw, err := client.Get(context.Background(), "/stats/v1/rankings/batsmen", map[string]string{"formatType": "odi"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != `{"rank":[{"name":"Shubman Gill"}]}` {
		t.Fatalf("raw = %s", raw)
	}
}

func TestNewsClientSurfacesProviderStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{name: "non-2xx", status: http.StatusUnauthorized, body: `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`, wantStatus: http.StatusUnauthorized},
		{name: "error body with 200", status: http.StatusOK, body: `{"status":"error","code":"parameterInvalid","message":"bad q"}`, wantStatus: http.StatusBadRequest},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/everything" || r.URL.Query().Get("q") != "cricket" {
					t.Errorf("url = %s", r.URL.String())
				}
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := NewNewsClient(NewsConfig{BaseURL: server.URL, APIKey: "k", Retry: fastRetry()})
			_, err := client.Everything(context.Background(), NewsQuery{Q: "cricket", Language: "en", SortBy: "publishedAt", PageSize: 10, Page: 1})
			if got := apperr.HTTPStatus(err); got != testCase.wantStatus {
				t.Fatalf("status = %d, want %d (err %v)", got, testCase.wantStatus, err)
			}
		})
	}
}
