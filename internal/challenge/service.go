package challenge

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"strava-challenge/internal/cache"
	"strava-challenge/internal/logger"
	"strava-challenge/internal/metrics"
	"strava-challenge/internal/strava"
)

// ActivitySource lists the athlete's activities since a calendar day
type ActivitySource interface {
	ListActivitiesSince(ctx context.Context, since time.Time) ([]strava.Activity, error)
}

// Service builds challenge stats from an activity source
type Service struct {
	source  ActivitySource
	cache   *cache.Cache
	cfg     Config
	metrics *metrics.Metrics
	log     logger.Logger
	clock   func() time.Time
}

// NewService creates a stats service. The cache is only used for the
// response metadata and may be nil.
func NewService(source ActivitySource, c *cache.Cache, cfg Config, m *metrics.Metrics, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		source:  source,
		cache:   c,
		cfg:     cfg,
		metrics: m,
		log:     log.With(logger.String("component", "challenge")),
		clock:   time.Now,
	}
}

// Stats fetches activities and computes the challenge stats as of now.
// Every derived value uses the same now.
func (s *Service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	began := s.clock()
	loc := s.cfg.location()
	midnight := startOfDay(now.In(loc))
	windowKey := strava.ActivitiesCacheKey(s.cfg.StartDate.In(loc))

	cached := false
	if s.cache != nil {
		_, cached = s.cache.Inspect(ctx, windowKey)
	}

	var window, today []strava.Activity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		window, err = s.source.ListActivitiesSince(gctx, s.cfg.StartDate.In(loc))
		if err != nil {
			return fmt.Errorf("listing challenge activities: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		today, err = s.source.ListActivitiesSince(gctx, midnight)
		if err != nil {
			return fmt.Errorf("listing today's activities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("Building challenge stats failed", logger.Error(err))
		return nil, err
	}

	agg := BuildAggregate(s.cfg, window, today, now)
	progress := CalculateProgress(s.cfg, agg.TotalMiles, agg.TodayMiles, now)

	elapsed := s.clock().Sub(began)
	stats := &Stats{
		StartDate: s.cfg.StartDate.In(loc).Format(DateLayout),
		EndDate:   s.cfg.EndDate.In(loc).Format(DateLayout),
		GoalMiles: s.cfg.GoalMiles,
		DailyGoal: s.cfg.DailyGoal,
		Progress:  progress,
		Aggregate: agg,
		Meta: Meta{
			CachedResponse:  cached,
			FetchDurationMs: elapsed.Milliseconds(),
			Timestamp:       now.UTC(),
		},
	}
	if s.cache != nil {
		stats.Meta.CacheItems = s.cache.Stats(ctx).ActiveItems
		if info, ok := s.cache.Inspect(ctx, windowKey); ok {
			next := info.ExpiresAt.UTC()
			stats.Meta.NextRefreshAt = &next
		}
	}

	s.metrics.StatsBuilt(elapsed)
	s.log.Info("Built challenge stats",
		logger.Float64("total_miles", agg.TotalMiles),
		logger.Int("activities", agg.TotalActivities),
		logger.Bool("cached", cached),
		logger.Duration("elapsed", elapsed),
	)
	return stats, nil
}

// ClearActivities drops the cached listings for the challenge window and
// for the day of now, forcing the next Stats call to refetch
func (s *Service) ClearActivities(ctx context.Context, now time.Time) []string {
	if s.cache == nil {
		return nil
	}
	loc := s.cfg.location()
	keys := []string{strava.ActivitiesCacheKey(s.cfg.StartDate.In(loc))}
	if today := strava.ActivitiesCacheKey(now.In(loc)); today != keys[0] {
		keys = append(keys, today)
	}
	for _, k := range keys {
		s.cache.Invalidate(ctx, k)
	}
	s.log.Info("Cleared cached activity listings", logger.Int("keys", len(keys)))
	return keys
}
