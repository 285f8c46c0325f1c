package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Feed is one of the Cricbuzz match lists.
type Feed string

const (
	FeedLive     Feed = "live"
	FeedRecent   Feed = "recent"
	FeedUpcoming Feed = "upcoming"
)

type CricbuzzClient interface {
	GetMatches(ctx context.Context, feed Feed) (*MatchList, error)
	GetMatch(ctx context.Context, matchID string) (*MatchDetail, error)
	Get(ctx context.Context, path string, params map[string]string) (json.RawMessage, error)
}

// MatchList mirrors /matches/v1/{feed}.
type MatchList struct {
	TypeMatches []struct {
		MatchType     string `json:"matchType"`
		SeriesMatches []struct {
			SeriesAdWrapper *struct {
				SeriesID   int64          `json:"seriesId"`
				SeriesName string         `json:"seriesName"`
				Matches    []MatchPayload `json:"matches"`
			} `json:"seriesAdWrapper,omitempty"`
		} `json:"seriesMatches"`
	} `json:"typeMatches"`
}

type MatchPayload struct {
	MatchInfo  *MatchInfo  `json:"matchInfo"`
	MatchScore *MatchScore `json:"matchScore,omitempty"`
}

// MatchDetail mirrors /mcenter/v1/{id}.
type MatchDetail = MatchPayload

type MatchInfo struct {
	MatchID     FlexString `json:"matchId"`
	SeriesName  string     `json:"seriesName"`
	MatchDesc   string     `json:"matchDesc"`
	MatchFormat string     `json:"matchFormat"`
	StartDate   FlexString `json:"startDate"`
	State       string     `json:"state"`
	Status      string     `json:"status"`
	Team1       *TeamInfo  `json:"team1"`
	Team2       *TeamInfo  `json:"team2"`
	VenueInfo   *struct {
		Ground string `json:"ground"`
		City   string `json:"city"`
	} `json:"venueInfo,omitempty"`
	TossResults *struct {
		TossWinnerName string `json:"tossWinnerName"`
		Decision       string `json:"decision"`
	} `json:"tossResults,omitempty"`
}

// FlexString принимает и строку, и число: Cricbuzz отдает id и даты по-разному
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }

type TeamInfo struct {
	TeamName  string `json:"teamName"`
	TeamSName string `json:"teamSName"`
}

type MatchScore struct {
	Team1Score *TeamScore `json:"team1Score,omitempty"`
	Team2Score *TeamScore `json:"team2Score,omitempty"`
}

type TeamScore struct {
	Inngs1 *Innings `json:"inngs1,omitempty"`
	Inngs2 *Innings `json:"inngs2,omitempty"`
}

type Innings struct {
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Overs   float64 `json:"overs"`
}

type cricbuzzClient struct {
	baseURL string
	apiKey  string
	apiHost string
	http    *requester
}

type CricbuzzConfig struct {
	BaseURL string
	APIKey  string
	APIHost string
	Timeout time.Duration
	Retry   RetryPolicy
}

func NewCricbuzzClient(config CricbuzzConfig) CricbuzzClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &cricbuzzClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		apiHost: config.APIHost,
		http: &requester{
			client: newHTTPClient(timeout),
			retry:  config.Retry,
		},
	}
}

func (c *cricbuzzClient) headers() map[string]string {
	return map[string]string{
		"X-RapidAPI-Key":  c.apiKey,
		"X-RapidAPI-Host": c.apiHost,
	}
}

func (c *cricbuzzClient) GetMatches(ctx context.Context, feed Feed) (*MatchList, error) {
	var list MatchList
	if err := c.http.getJSON(ctx, fmt.Sprintf("%s/matches/v1/%s", c.baseURL, feed), c.headers(), &list); err != nil {
		return nil, fmt.Errorf("fetch %s matches: %w", feed, err)
	}
	return &list, nil
}

func (c *cricbuzzClient) GetMatch(ctx context.Context, matchID string) (*MatchDetail, error) {
	var detail MatchDetail
	reqURL := fmt.Sprintf("%s/mcenter/v1/%s", c.baseURL, url.PathEscape(matchID))
	if err := c.http.getJSON(ctx, reqURL, c.headers(), &detail); err != nil {
		return nil, fmt.Errorf("fetch match %s: %w", matchID, err)
	}
	return &detail, nil
}

// Get проксирует произвольный путь API (серии, игроки, рейтинги) без преобразования
func (c *cricbuzzClient) Get(ctx context.Context, path string, params map[string]string) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))
	if len(params) > 0 {
		query := url.Values{}
		for key, value := range params {
			query.Add(key, value)
		}
		reqURL += "?" + query.Encode()
	}

	var data json.RawMessage
	if err := c.http.getJSON(ctx, reqURL, c.headers(), &data); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	return data, nil
}
