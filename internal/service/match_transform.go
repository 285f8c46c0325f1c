package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"batball/internal/clients"
	"batball/internal/models"
)

// transformMatch приводит запись Cricbuzz к models.Match; записи без matchInfo
// или без id пропускаются
func transformMatch(payload clients.MatchPayload, feed clients.Feed, seriesName string, now time.Time) (models.Match, bool) {
	info := payload.MatchInfo
	if info == nil || info.MatchID.String() == "" {
		return models.Match{}, false
	}

	team1 := orPlaceholder(teamName(info.Team1))
	team2 := orPlaceholder(teamName(info.Team2))

	competition := seriesName
	if competition == "" {
		competition = info.SeriesName
	}

	match := models.Match{
		ID:              info.MatchID.String(),
		Name:            fmt.Sprintf("%s vs %s", team1, team2),
		CompetitionName: orPlaceholder(competition),
		Venue:           venueName(info),
		StartTime:       parseStartDate(info.StartDate.String()),
		MatchFormat:     orPlaceholder(info.MatchFormat),
		Result:          info.Status,
		Teams: [2]models.Team{
			{Name: team1, Score: models.PlaceholderScore},
			{Name: team2, Score: models.PlaceholderScore},
		},
	}

	if info.TossResults != nil {
		match.TossWinner = info.TossResults.TossWinnerName
		match.TossDecision = info.TossResults.Decision
	}

	if payload.MatchScore != nil {
		match.Teams[0].Score = formatScore(payload.MatchScore.Team1Score)
		match.Teams[1].Score = formatScore(payload.MatchScore.Team2Score)
	}

	match.Status = statusFor(feed, info.State, match.StartTime, now)
	match.IsLive = match.Status == models.StatusLive
	return match, true
}

func statusFor(feed clients.Feed, state string, startTime, now time.Time) models.MatchStatus {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "in progress", "live", "innings break", "stumps", "lunch", "tea", "drink", "rain":
		return models.StatusLive
	case "complete", "completed", "abandon", "abandoned", "no result":
		return models.StatusCompleted
	case "preview", "upcoming":
		return models.StatusUpcoming
	}

	switch feed {
	case clients.FeedLive:
		return models.StatusLive
	case clients.FeedRecent:
		return models.StatusCompleted
	case clients.FeedUpcoming:
		return models.StatusUpcoming
	}

	if !startTime.IsZero() && startTime.After(now) {
		return models.StatusUpcoming
	}
	return models.StatusCompleted
}

func teamName(team *clients.TeamInfo) string {
	if team == nil {
		return ""
	}
	return strings.TrimSpace(team.TeamName)
}

func venueName(info *clients.MatchInfo) string {
	if info.VenueInfo == nil {
		return models.PlaceholderName
	}

	var parts []string
	for _, part := range []string{info.VenueInfo.Ground, info.VenueInfo.City} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return models.PlaceholderName
	}
	return strings.Join(parts, ", ")
}

// startDate приходит строкой с миллисекундами эпохи
func parseStartDate(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func formatScore(score *clients.TeamScore) string {
	if score == nil {
		return models.PlaceholderScore
	}

	var innings []string
	for _, inn := range []*clients.Innings{score.Inngs1, score.Inngs2} {
		if inn == nil {
			continue
		}
		innings = append(innings, fmt.Sprintf("%d/%d (%s)", inn.Runs, inn.Wickets, strconv.FormatFloat(inn.Overs, 'f', -1, 64)))
	}
	if len(innings) == 0 {
		return models.PlaceholderScore
	}
	return strings.Join(innings, " & ")
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return models.PlaceholderName
	}
	return value
}

// matchesKeyword ищет ключевые слова без учета регистра в двух полях:
// CompetitionName (название серии) и Name ("<команда> vs <команда>").
// Пустой список пропускает все матчи.
func matchesKeyword(match models.Match, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(match.CompetitionName + " " + match.Name)
	for _, keyword := range keywords {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" && strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
