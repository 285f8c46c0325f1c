package models

import "time"

type MatchStatus string

const (
	StatusLive      MatchStatus = "live"
	StatusUpcoming  MatchStatus = "upcoming"
	StatusCompleted MatchStatus = "completed"
)

const (
	PlaceholderName  = "TBA"
	PlaceholderScore = "-"
)

type Team struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// Match is the normalized shape every upstream match record is mapped to.
type Match struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	CompetitionName string      `json:"competitionName"`
	Venue           string      `json:"venue"`
	StartTime       time.Time   `json:"startTime"`
	Status          MatchStatus `json:"status"`
	IsLive          bool        `json:"isLive"`
	Teams           [2]Team     `json:"teams"`
	MatchFormat     string      `json:"matchFormat"`
	Result          string      `json:"result,omitempty"`
	TossWinner      string      `json:"tossWinner,omitempty"`
	TossDecision    string      `json:"tossDecision,omitempty"`
}

type Pagination struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

type MatchPage struct {
	Matches    []Match    `json:"matches"`
	Pagination Pagination `json:"pagination"`
}
