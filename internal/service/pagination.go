package service

import (
	"sort"
	"time"

	"batball/internal/apperr"
	"batball/internal/models"
)

const (
	MatchTypeAll      = "all"
	MatchTypeLive     = "live"
	MatchTypeUpcoming = "upcoming"
	MatchTypeRecent   = "recent"

	MaxPageLimit = 50
)

func validatePage(matchType string, page, limit int) error {
	switch matchType {
	case "", MatchTypeAll, MatchTypeLive, MatchTypeUpcoming, MatchTypeRecent:
	default:
		return apperr.InvalidArgument("Type must be one of all, live, upcoming, recent")
	}
	if page < 1 {
		return apperr.InvalidArgument("Page number must be greater than 0")
	}
	if limit < 1 || limit > MaxPageLimit {
		return apperr.InvalidArgument("Limit must be between 1 and %d", MaxPageLimit)
	}
	return nil
}

// Paginate filters matches by type, puts live matches first and the rest by
// start time descending, then slices out the requested page.
func Paginate(matches []models.Match, matchType string, page, limit int, now time.Time) (models.MatchPage, error) {
	if err := validatePage(matchType, page, limit); err != nil {
		return models.MatchPage{}, err
	}

	filtered := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		live := m.Status == models.StatusLive
		switch matchType {
		case MatchTypeLive:
			if !live {
				continue
			}
		case MatchTypeUpcoming:
			if live || !m.StartTime.After(now) {
				continue
			}
		case MatchTypeRecent:
			if live || m.StartTime.After(now) {
				continue
			}
		}
		filtered = append(filtered, m)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.IsLive != b.IsLive {
			return a.IsLive
		}
		return a.StartTime.After(b.StartTime)
	})

	total := len(filtered)
	start := (page - 1) * limit
	end := page * limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return models.MatchPage{
		Matches: filtered[start:end],
		Pagination: models.Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
			HasMore:    page*limit < total,
		},
	}, nil
}
