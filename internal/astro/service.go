package astro

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service resolves AstroData for "today": the in-memory entry while fresh,
// then the persistent cache, then the provider, then the stale entry, and
// finally the fixed 06:30/18:30 fallback.
type Service struct {
	provider Provider
	cache    Cache
	loc      *time.Location
	ttl      time.Duration
	retry    time.Duration
	logger   zerolog.Logger

	mu          sync.Mutex
	entry       *CacheEntry
	lastAttempt time.Time
	invalidated bool
}

type ServiceConfig struct {
	Provider Provider
	Cache    Cache
	Location *time.Location
	TTL      time.Duration
	// RetryInterval limits fetch attempts while running on fallback or
	// stale data.
	RetryInterval time.Duration
	Logger        zerolog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = 15 * time.Minute
	}
	return &Service{
		provider: cfg.Provider,
		cache:    cfg.Cache,
		loc:      loc,
		ttl:      ttl,
		retry:    retry,
		logger:   cfg.Logger.With().Str("component", "astro").Logger(),
	}
}

// Invalidate forces the next Get to try the provider regardless of freshness.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.invalidated = true
	s.lastAttempt = time.Time{}
	s.mu.Unlock()
}

// Entry returns the entry backing the last Get, if any.
func (s *Service) Entry() *CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return nil
	}
	e := *s.entry
	return &e
}

func (s *Service) Get(ctx context.Context, now time.Time) (AstroData, error) {
	now = now.In(s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.resolve(ctx, now)
	s.entry = entry
	return Extract(&entry.Forecast, s.loc)
}

func (s *Service) resolve(ctx context.Context, now time.Time) *CacheEntry {
	if !s.invalidated && s.entry != nil && !s.entry.Fallback && s.entry.IsFreshWithin(now, s.ttl) {
		return s.entry
	}

	if s.entry == nil && s.cache != nil {
		cached, err := s.cache.Load()
		if err != nil {
			s.logger.Debug().Err(err).Msg("astro cache unreadable")
		}
		if cached != nil {
			s.entry = cached
		}
	}

	if !s.invalidated && s.entry != nil && !s.entry.Fallback && s.entry.IsFreshWithin(now, s.ttl) {
		return s.entry
	}

	// A recent failed attempt keeps the current (stale or fallback) entry.
	if s.entry != nil && !s.lastAttempt.IsZero() && now.Sub(s.lastAttempt) < s.retry && now.Sub(s.lastAttempt) >= 0 {
		return s.entry
	}

	s.invalidated = false
	s.lastAttempt = now
	if fetched := s.fetch(ctx, now); fetched != nil {
		s.lastAttempt = time.Time{}
		return fetched
	}

	if s.entry != nil && !s.entry.Fallback {
		s.logger.Debug().Time("fetched_at", s.entry.FetchedAt(s.loc)).Msg("reusing stale astro cache")
		return s.entry
	}

	s.logger.Warn().Msg("no astro data available, using 06:30/18:30 fallback")
	return &CacheEntry{
		Forecast: *fallbackForecast(now),
		TS:       now.Unix(),
		Source:   "fallback",
		Fallback: true,
	}
}

func (s *Service) fetch(ctx context.Context, now time.Time) *CacheEntry {
	if s.provider == nil {
		return nil
	}

	forecast, err := s.provider.Forecast(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Str("provider", s.provider.Name()).Msg("astro fetch failed")
		return nil
	}
	if len(forecast.Daily) == 0 {
		s.logger.Debug().Str("provider", s.provider.Name()).Msg("astro fetch returned no daily entries")
		return nil
	}

	entry := &CacheEntry{
		Forecast: *forecast,
		TS:       now.Unix(),
		Source:   s.provider.Name(),
	}
	if s.cache != nil {
		if err := s.cache.Save(entry); err != nil {
			s.logger.Debug().Err(err).Msg("astro cache write failed")
		}
	}
	s.logger.Info().Str("provider", s.provider.Name()).Msg("astro data refreshed")
	return entry
}
