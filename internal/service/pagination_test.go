package service

import (
	"fmt"
	"testing"
	"time"

	"batball/internal/apperr"
	"batball/internal/models"
)

var testNow = time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)

func liveMatch(id int, start time.Time) models.Match {
	return models.Match{ID: fmt.Sprint(id), Status: models.StatusLive, IsLive: true, StartTime: start}
}

func otherMatch(id int, status models.MatchStatus, start time.Time) models.Match {
	return models.Match{ID: fmt.Sprint(id), Status: status, StartTime: start}
}

func TestPaginateSevenLiveMatches(t *testing.T) {
	var matches []models.Match
	for i := 0; i < 7; i++ {
		matches = append(matches, liveMatch(i, testNow.Add(-time.Duration(7-i)*time.Hour)))
	}
	matches = append(matches, otherMatch(100, models.StatusCompleted, testNow.Add(-time.Hour)))

	page, err := Paginate(matches, "live", 1, 5, testNow)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}

	if len(page.Matches) != 5 {
		t.Fatalf("len = %d, want 5", len(page.Matches))
	}
	for i := 1; i < len(page.Matches); i++ {
		if !page.Matches[i-1].StartTime.After(page.Matches[i].StartTime) {
			t.Fatalf("matches not sorted by start time descending at %d", i)
		}
	}
	if page.Matches[0].ID != "6" {
		t.Fatalf("first match = %s, want the latest start", page.Matches[0].ID)
	}

	want := models.Pagination{Total: 7, Page: 1, Limit: 5, TotalPages: 2, HasMore: true}
	if page.Pagination != want {
		t.Fatalf("pagination = %+v, want %+v", page.Pagination, want)
	}

	second, _ := Paginate(matches, "live", 2, 5, testNow)
	if len(second.Matches) != 2 || second.Pagination.HasMore {
		t.Fatalf("second page = %d items, hasMore=%v", len(second.Matches), second.Pagination.HasMore)
	}
}

func TestPaginateTypeFilters(t *testing.T) {
	matches := []models.Match{
		liveMatch(1, testNow.Add(-2*time.Hour)),
		otherMatch(2, models.StatusUpcoming, testNow.Add(24*time.Hour)),
		otherMatch(3, models.StatusCompleted, testNow.Add(-48*time.Hour)),
		otherMatch(4, models.StatusUpcoming, testNow.Add(-time.Minute)),
	}

	tests := []struct {
		name      string
		matchType string
		wantIDs   []string
	}{
		{name: "all", matchType: "all", wantIDs: []string{"1", "2", "4", "3"}},
		{name: "default", matchType: "", wantIDs: []string{"1", "2", "4", "3"}},
		{name: "live", matchType: "live", wantIDs: []string{"1"}},
		{name: "upcoming", matchType: "upcoming", wantIDs: []string{"2"}},
		{name: "recent", matchType: "recent", wantIDs: []string{"4", "3"}},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			page, err := Paginate(matches, testCase.matchType, 1, 50, testNow)
			if err != nil {
				t.Fatalf("Paginate: %v", err)
			}
			if len(page.Matches) != len(testCase.wantIDs) {
				t.Fatalf("got %d matches, want %v", len(page.Matches), testCase.wantIDs)
			}
			for i, id := range testCase.wantIDs {
				if page.Matches[i].ID != id {
					t.Fatalf("match %d = %s, want %s", i, page.Matches[i].ID, id)
				}
			}
		})
	}
}

func TestPaginateLiveAlwaysFirst(t *testing.T) {
	matches := []models.Match{
		otherMatch(1, models.StatusUpcoming, testNow.Add(72*time.Hour)),
		liveMatch(2, testNow.Add(-10*time.Hour)),
		otherMatch(3, models.StatusCompleted, testNow.Add(-time.Hour)),
		liveMatch(4, testNow.Add(-time.Hour)),
	}

	for limit := 1; limit <= 5; limit++ {
		for page := 1; page <= 5; page++ {
			result, err := Paginate(matches, "all", page, limit, testNow)
			if err != nil {
				t.Fatalf("Paginate(%d, %d): %v", page, limit, err)
			}
			if len(result.Matches) > limit {
				t.Fatalf("page %d limit %d returned %d items", page, limit, len(result.Matches))
			}
			if result.Pagination.HasMore != (page*limit < len(matches)) {
				t.Fatalf("page %d limit %d hasMore = %v", page, limit, result.Pagination.HasMore)
			}
		}
	}

	all, _ := Paginate(matches, "all", 1, 50, testNow)
	seenNonLive := false
	for _, m := range all.Matches {
		if !m.IsLive {
			seenNonLive = true
			continue
		}
		if seenNonLive {
			t.Fatalf("live match %s after non-live match", m.ID)
		}
	}
}

func TestPaginateRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name      string
		matchType string
		page      int
		limit     int
	}{
		{name: "page zero", matchType: "all", page: 0, limit: 5},
		{name: "negative page", matchType: "all", page: -1, limit: 5},
		{name: "limit zero", matchType: "all", page: 1, limit: 0},
		{name: "limit too large", matchType: "all", page: 1, limit: 51},
		{name: "unknown type", matchType: "finished", page: 1, limit: 5},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Paginate(nil, testCase.matchType, testCase.page, testCase.limit, testNow)
			if apperr.KindOf(err) != apperr.KindInvalidArgument {
				t.Fatalf("err = %v, want invalid argument", err)
			}
		})
	}
}

func TestPaginateBeyondLastPage(t *testing.T) {
	page, err := Paginate([]models.Match{liveMatch(1, testNow)}, "all", 3, 5, testNow)
	if err != nil {
		t.Fatalf("Paginate: %v", err)
	}
	if page.Matches == nil || len(page.Matches) != 0 {
		t.Fatalf("matches = %v, want empty slice", page.Matches)
	}
	if page.Pagination.TotalPages != 1 || page.Pagination.HasMore {
		t.Fatalf("pagination = %+v", page.Pagination)
	}
}
