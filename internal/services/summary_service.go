package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"spendlens/internal/aggregate"
	"spendlens/internal/cache"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/metrics"
	"spendlens/internal/storage"
)

// SummaryRequest selects how a summary is computed. Zero values fall back
// to the service defaults.
type SummaryRequest struct {
	Granularity aggregate.Granularity
	Location    *time.Location
	MergeYears  *bool
}

// CachedSummary is a computed summary and the instant its series stops
// being exact. A zero ValidUntil means no record will ever cross the window.
type CachedSummary struct {
	Summary    aggregate.Summary
	ValidUntil time.Time
}

func (c CachedSummary) fresh(now time.Time) bool {
	return c.ValidUntil.IsZero() || now.Before(c.ValidUntil)
}

// SummaryService takes a snapshot of an owner's expenses and runs the
// aggregator over it. Results are cached per owner until the next write or
// until a record crosses the series window, whichever comes first.
// GeneratedAt on a cached summary is the time it was computed.
type SummaryService struct {
	store      storage.ExpenseStore
	cache      cache.Cache[CachedSummary]
	location   *time.Location
	mergeYears bool
	logger     *log.Logger
	now        func() time.Time
}

// NewSummaryService builds the service. A nil cache disables caching; a nil
// location means each record keeps its own.
func NewSummaryService(store storage.ExpenseStore, c cache.Cache[CachedSummary], loc *time.Location, mergeYears bool, logger *log.Logger) *SummaryService {
	return &SummaryService{
		store:      store,
		cache:      c,
		location:   loc,
		mergeYears: mergeYears,
		logger:     logger.WithComponent(log.ComponentSummary),
		now:        time.Now,
	}
}

func (s *SummaryService) options(req SummaryRequest) aggregate.Options {
	opts := aggregate.Options{
		Granularity: req.Granularity,
		Location:    req.Location,
		MergeYears:  s.mergeYears,
		Now:         s.now(),
	}
	if opts.Granularity == "" {
		opts.Granularity = aggregate.Daily
	}
	if opts.Location == nil {
		opts.Location = s.location
	}
	if req.MergeYears != nil {
		opts.MergeYears = *req.MergeYears
	}
	return opts
}

// Summarize returns every view for ownerID.
func (s *SummaryService) Summarize(ctx context.Context, ownerID string, req SummaryRequest) (aggregate.Summary, error) {
	opts := s.options(req)
	if _, err := aggregate.BucketerFor(opts.Granularity); err != nil {
		return aggregate.Summary{}, err
	}

	key := cacheKey(ownerID, opts)
	if s.cache != nil {
		if entry, ok := s.cache.Get(key); ok && entry.fresh(opts.Now) {
			metrics.SummaryCache.WithLabelValues("hit").Inc()
			s.logger.DebugContext(ctx, "Summary served from cache",
				log.FieldOwnerID, ownerID,
				log.FieldCacheHit, true)
			return entry.Summary, nil
		}
		metrics.SummaryCache.WithLabelValues("miss").Inc()
	}

	records, err := s.Snapshot(ctx, ownerID)
	if err != nil {
		return aggregate.Summary{}, err
	}

	start := time.Now()
	sum, err := aggregate.Summarize(records, opts)
	if err != nil {
		return aggregate.Summary{}, err
	}
	elapsed := time.Since(start)
	metrics.SummaryDuration.WithLabelValues(string(opts.Granularity)).Observe(elapsed.Seconds())
	metrics.SummaryRecords.Observe(float64(len(records)))

	s.logger.DebugContext(ctx, "Summary computed",
		log.FieldOwnerID, ownerID,
		log.FieldGranularity, opts.Granularity,
		log.FieldTimezone, locationName(opts.Location),
		log.FieldRecords, len(records),
		log.FieldDuration, elapsed.Milliseconds())

	if s.cache != nil {
		entry := CachedSummary{Summary: sum}
		if until, ok, err := aggregate.WindowExpiry(records, opts.Granularity, opts.Now, opts.Location); err == nil && ok {
			entry.ValidUntil = until
		}
		s.cache.Set(key, entry)
	}
	return sum, nil
}

// Series recomputes only the time series, e.g. when the client switches
// granularity.
func (s *SummaryService) Series(ctx context.Context, ownerID string, req SummaryRequest) ([]aggregate.TimeBucket, error) {
	opts := s.options(req)
	records, err := s.Snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return aggregate.Series(records, opts.Granularity, opts.Now, opts.Location)
}

// Snapshot returns the owner's complete expense list.
func (s *SummaryService) Snapshot(ctx context.Context, ownerID string) ([]core.Expense, error) {
	records, err := s.store.ListExpenses(ctx, ownerID, core.ExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return records, nil
}

// InvalidateOwner drops every cached summary of ownerID.
func (s *SummaryService) InvalidateOwner(ownerID string) {
	if s.cache == nil {
		return
	}
	if n := s.cache.DeletePrefix(ownerID + "|"); n > 0 {
		s.logger.Debug("Invalidated cached summaries", log.FieldOwnerID, ownerID, "entries", n)
	}
}

// The local date is part of the key so a cached series never outlives the
// day its window was computed for.
func cacheKey(ownerID string, opts aggregate.Options) string {
	now := opts.Now
	if opts.Location != nil {
		now = now.In(opts.Location)
	}
	return strings.Join([]string{
		ownerID,
		string(opts.Granularity),
		locationName(opts.Location),
		strconv.FormatBool(opts.MergeYears),
		now.Format(time.DateOnly),
	}, "|")
}

func locationName(loc *time.Location) string {
	if loc == nil {
		return "record"
	}
	return loc.String()
}
