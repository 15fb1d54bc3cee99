package services

import (
	"context"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/pkg/cache"
	"rosterbot/pkg/tracing"

	"go.uber.org/zap"
)

// ProfileLookup fetches display names with a bounded timeout and a TTL
// cache. It never fails: errors degrade to domain.UnknownProfile.
type ProfileLookup struct {
	fetcher ports.ProfileFetcher
	cache   *cache.Cache[domain.UserID, domain.Profile]
	timeout time.Duration
	metrics ports.Metrics
	logger  *zap.SugaredLogger
}

func NewProfileLookup(fetcher ports.ProfileFetcher, cacheTTL, timeout time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) *ProfileLookup {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	l := &ProfileLookup{
		fetcher: fetcher,
		timeout: timeout,
		metrics: metrics,
		logger:  logger,
	}
	if cacheTTL > 0 {
		l.cache = cache.New[domain.UserID, domain.Profile](cacheTTL)
	}
	return l
}

func (l *ProfileLookup) Profile(ctx context.Context, id domain.UserID) domain.Profile {
	if l.fetcher == nil {
		return domain.UnknownProfile()
	}

	fetch := func(ctx context.Context) (domain.Profile, error) {
		ctx, span := tracing.TraceLookup(ctx, "fetch_profile")
		defer span.End()

		ctx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		profile, err := l.fetcher.FetchProfile(ctx, id)
		if err != nil {
			tracing.RecordError(ctx, err)
		}
		return profile, err
	}

	var (
		profile domain.Profile
		err     error
	)
	if l.cache != nil {
		profile, err = l.cache.GetOrLoad(ctx, id, fetch)
	} else {
		profile, err = fetch(ctx)
	}
	if err != nil {
		l.metrics.RecordLookupFailure("profile")
		l.logger.Warnw("profile lookup failed", "user_id", id, "error", err)
		return domain.UnknownProfile()
	}
	return profile
}

// Close stops the cache janitor.
func (l *ProfileLookup) Close() {
	if l.cache != nil {
		l.cache.Stop()
	}
}
