package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"batball/internal/apperr"
	"batball/internal/clients"
	"batball/internal/gateway"
	"batball/internal/models"
	"batball/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Meta describes where a response came from; it is nil for a fresh upstream answer.
type Meta struct {
	Cached  bool   `json:"cached"`
	Expired bool   `json:"expired"`
	Error   string `json:"error,omitempty"`
}

func metaOf[T any](result gateway.Result[T]) *Meta {
	if !result.Cached {
		return nil
	}
	return &Meta{Cached: true, Expired: result.Stale, Error: result.Err}
}

type MatchQuery struct {
	Type    string
	Page    int
	Limit   int
	Refresh bool
}

type MatchListResult struct {
	models.MatchPage
	Meta *Meta `json:"_meta,omitempty"`
}

type MatchResult struct {
	Match models.Match
	Meta  *Meta
}

type RawResult struct {
	Data json.RawMessage
	Meta *Meta
}

var RankingCategories = []string{"batsmen", "bowlers", "allrounders", "teams"}

type MatchService interface {
	List(ctx context.Context, query MatchQuery) (*MatchListResult, error)
	Get(ctx context.Context, matchID string, refresh bool) (*MatchResult, error)
	Series(ctx context.Context, refresh bool) (*RawResult, error)
	SeriesDetail(ctx context.Context, seriesID string, refresh bool) (*RawResult, error)
	Player(ctx context.Context, playerID string, refresh bool) (*RawResult, error)
	Rankings(ctx context.Context, category, format string, refresh bool) (*RawResult, error)
	RefreshFeeds(ctx context.Context) error
	WarmFromSnapshots(ctx context.Context) error
}

type MatchConfig struct {
	Keywords  []string
	LiveTTL   time.Duration
	StaticTTL time.Duration
	PlayerTTL time.Duration
}

type matchService struct {
	gw        *gateway.Gateway
	client    clients.CricbuzzClient
	snapshots repository.SnapshotRepository
	config    MatchConfig
	logger    *zap.Logger
	now       func() time.Time
}

var feeds = []clients.Feed{clients.FeedLive, clients.FeedRecent, clients.FeedUpcoming}

func feedKey(feed clients.Feed) string {
	return string(feed) + "_matches"
}

func NewMatchService(
	gw *gateway.Gateway,
	client clients.CricbuzzClient,
	snapshots repository.SnapshotRepository,
	config MatchConfig,
	logger *zap.Logger,
) MatchService {
	return &matchService{
		gw:        gw,
		client:    client,
		snapshots: snapshots,
		config:    config,
		logger:    logger.Named("matches"),
		now:       time.Now,
	}
}

func (s *matchService) List(ctx context.Context, query MatchQuery) (*MatchListResult, error) {
	if err := validatePage(query.Type, query.Page, query.Limit); err != nil {
		return nil, err
	}

	results := make([]gateway.Result[[]models.Match], len(feeds))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, feed := range feeds {
		group.Go(func() error {
			result, err := s.feed(groupCtx, feed, query.Refresh)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var (
		all    []models.Match
		seen   = make(map[string]bool)
		meta   *Meta
		errMsg []string
	)
	for _, result := range results {
		for _, match := range result.Value {
			// один матч может прийти в нескольких лентах, первая (live) побеждает
			if seen[match.ID] {
				continue
			}
			seen[match.ID] = true
			all = append(all, match)
		}

		if result.Cached {
			if meta == nil {
				meta = &Meta{Cached: true}
			}
			meta.Expired = meta.Expired || result.Stale
			if result.Err != "" {
				errMsg = append(errMsg, result.Err)
			}
		}
	}
	if meta != nil {
		meta.Error = strings.Join(errMsg, "; ")
	}

	page, err := Paginate(all, query.Type, query.Page, query.Limit, s.now())
	if err != nil {
		return nil, err
	}
	return &MatchListResult{MatchPage: page, Meta: meta}, nil
}

// feed возвращает отфильтрованную по турнирам ленту через гейтвей
func (s *matchService) feed(ctx context.Context, feed clients.Feed, refresh bool) (gateway.Result[[]models.Match], error) {
	return gateway.Fetch(ctx, s.gw, feedKey(feed), s.config.LiveTTL, func(ctx context.Context) ([]models.Match, error) {
		list, err := s.client.GetMatches(ctx, feed)
		if err != nil {
			return nil, err
		}
		return s.transformFeed(list, feed), nil
	}, gateway.ForceRefresh(refresh))
}

func (s *matchService) transformFeed(list *clients.MatchList, feed clients.Feed) []models.Match {
	now := s.now()
	matches := make([]models.Match, 0)
	for _, typeMatches := range list.TypeMatches {
		for _, seriesMatches := range typeMatches.SeriesMatches {
			wrapper := seriesMatches.SeriesAdWrapper
			if wrapper == nil {
				continue
			}
			for _, payload := range wrapper.Matches {
				match, ok := transformMatch(payload, feed, wrapper.SeriesName, now)
				if !ok || !matchesKeyword(match, s.config.Keywords) {
					continue
				}
				matches = append(matches, match)
			}
		}
	}
	return matches
}

func (s *matchService) Get(ctx context.Context, matchID string, refresh bool) (*MatchResult, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, apperr.InvalidArgument("match id is required")
	}

	result, err := gateway.Fetch(ctx, s.gw, "match_"+matchID, s.config.LiveTTL, func(ctx context.Context) (models.Match, error) {
		detail, err := s.client.GetMatch(ctx, matchID)
		if err != nil {
			return models.Match{}, err
		}
		match, ok := transformMatch(*detail, "", "", s.now())
		if !ok {
			return models.Match{}, apperr.New(apperr.KindUpstreamMalformed, "match payload has no matchInfo")
		}
		return match, nil
	}, gateway.ForceRefresh(refresh))
	if err != nil {
		return nil, err
	}
	return &MatchResult{Match: result.Value, Meta: metaOf(result)}, nil
}

func (s *matchService) raw(ctx context.Context, key string, ttl time.Duration, path string, params map[string]string, refresh bool) (*RawResult, error) {
	result, err := gateway.Fetch(ctx, s.gw, key, ttl, func(ctx context.Context) (json.RawMessage, error) {
		return s.client.Get(ctx, path, params)
	}, gateway.ForceRefresh(refresh))
	if err != nil {
		return nil, err
	}
	return &RawResult{Data: result.Value, Meta: metaOf(result)}, nil
}

func (s *matchService) Series(ctx context.Context, refresh bool) (*RawResult, error) {
	return s.raw(ctx, "all_series", s.config.StaticTTL, "/series/v1/international", nil, refresh)
}

func (s *matchService) SeriesDetail(ctx context.Context, seriesID string, refresh bool) (*RawResult, error) {
	if !isNumericID(seriesID) {
		return nil, apperr.InvalidArgument("series id must be numeric")
	}
	return s.raw(ctx, "series_"+seriesID, s.config.StaticTTL, "/series/v1/"+seriesID, nil, refresh)
}

func (s *matchService) Player(ctx context.Context, playerID string, refresh bool) (*RawResult, error) {
	if !isNumericID(playerID) {
		return nil, apperr.InvalidArgument("player id must be numeric")
	}
	return s.raw(ctx, "player_"+playerID, s.config.PlayerTTL, "/stats/v1/player/"+playerID, nil, refresh)
}

func (s *matchService) Rankings(ctx context.Context, category, format string, refresh bool) (*RawResult, error) {
	valid := false
	for _, c := range RankingCategories {
		if c == category {
			valid = true
			break
		}
	}
	if !valid {
		return nil, apperr.InvalidArgument("Invalid ranking type. Must be one of: %s", strings.Join(RankingCategories, ", "))
	}

	switch format {
	case "":
		format = "test"
	case "test", "odi", "t20":
	default:
		return nil, apperr.InvalidArgument("format must be one of test, odi, t20")
	}

	key := fmt.Sprintf("rankings_%s_%s", category, format)
	return s.raw(ctx, key, s.config.StaticTTL, "/stats/v1/rankings/"+category, map[string]string{"formatType": format}, refresh)
}

// RefreshFeeds обновляет все ленты в обход свежего кэша и сохраняет снимки
// успешно полученных данных в БД
func (s *matchService) RefreshFeeds(ctx context.Context) error {
	var errs []error
	for _, feed := range feeds {
		result, err := s.feed(ctx, feed, true)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if result.Cached {
			errs = append(errs, fmt.Errorf("refresh %s: %s", feed, result.Err))
			continue
		}

		payload, err := json.Marshal(result.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snapshot := &models.FeedSnapshot{Source: feedKey(feed), FetchedAt: result.StoredAt, Payload: payload}
		if err := s.snapshots.Create(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("save %s snapshot: %w", feed, err))
		}
	}
	return errors.Join(errs...)
}

// WarmFromSnapshots кладет в кэш последние снимки лент с их исходным временем,
// так что до первого обновления они служат только запасным вариантом
func (s *matchService) WarmFromSnapshots(ctx context.Context) error {
	for _, feed := range feeds {
		key := feedKey(feed)
		snapshot, err := s.snapshots.GetLatest(ctx, key)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s snapshot: %w", key, err)
		}

		if err := s.gw.Seed(ctx, key, json.RawMessage(snapshot.Payload), snapshot.FetchedAt, s.config.LiveTTL); err != nil {
			return err
		}
		s.logger.Info("cache seeded from snapshot", zap.String("key", key), zap.Time("fetched_at", snapshot.FetchedAt))
	}
	return nil
}

func isNumericID(id string) bool {
	if id == "" || len(id) > 20 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
