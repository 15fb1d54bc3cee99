package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rosterbot/internal/core/domain"
	"rosterbot/internal/core/ports"
	"rosterbot/pkg/tracing"
	"rosterbot/pkg/validation"

	"go.uber.org/zap"
)

// DefaultLookupTimeout bounds every external identity or profile call.
const DefaultLookupTimeout = 5 * time.Second

// TargetRef is a parsed target reference. Exactly one of ID or ScreenName
// is meaningful: ScreenName is set only when a lookup is still required.
type TargetRef struct {
	ID         domain.UserID
	ScreenName string
}

func (r TargetRef) NeedsLookup() bool {
	return r.ScreenName != ""
}

// ParseTargetReference applies the acceptance grammar for target references:
// a bare numeric id, a mention token "[id<N>|label]", or a profile URL on one
// of hosts carrying either "id<N>" or a vanity name.
func ParseTargetReference(raw string, hosts []string) (TargetRef, error) {
	text := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if text == "" {
		return TargetRef{}, fmt.Errorf("%w: empty reference", domain.ErrUnresolvable)
	}

	if strings.HasPrefix(text, "[id") {
		inner, _, found := strings.Cut(text[len("[id"):], "|")
		if !found {
			return TargetRef{}, fmt.Errorf("%w: malformed mention %q", domain.ErrUnresolvable, raw)
		}
		id, err := domain.ParseUserID(inner)
		if err != nil {
			return TargetRef{}, fmt.Errorf("%w: %w", domain.ErrUnresolvable, err)
		}
		return TargetRef{ID: id}, nil
	}

	if path, ok := profilePath(text, hosts); ok {
		return parseProfilePath(path, raw)
	}

	if id, err := domain.ParseUserID(text); err == nil {
		return TargetRef{ID: id}, nil
	}
	return TargetRef{}, fmt.Errorf("%w: %q", domain.ErrUnresolvable, raw)
}

// profilePath returns the first path segment following "<host>/".
func profilePath(text string, hosts []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, host := range hosts {
		marker := strings.ToLower(host) + "/"
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		if idx > 0 && !strings.ContainsRune("/.: \t", rune(lower[idx-1])) {
			continue
		}
		rest := text[idx+len(marker):]
		if end := strings.IndexAny(rest, "/?# \t\n"); end >= 0 {
			rest = rest[:end]
		}
		return rest, true
	}
	return "", false
}

func parseProfilePath(segment, raw string) (TargetRef, error) {
	if segment == "" {
		return TargetRef{}, fmt.Errorf("%w: empty profile path in %q", domain.ErrUnresolvable, raw)
	}
	if strings.HasPrefix(segment, "id") {
		if id, err := domain.ParseUserID(segment[2:]); err == nil {
			return TargetRef{ID: id}, nil
		}
	}
	if err := validation.ValidateScreenName(segment); err != nil {
		return TargetRef{}, fmt.Errorf("%w: %w", domain.ErrUnresolvable, err)
	}
	return TargetRef{ScreenName: segment}, nil
}

// TargetResolver turns free-form target references into user ids, asking the
// identity service for vanity names under a bounded timeout.
type TargetResolver struct {
	identity ports.IdentityResolver
	hosts    []string
	timeout  time.Duration
	metrics  ports.Metrics
	logger   *zap.SugaredLogger
}

func NewTargetResolver(identity ports.IdentityResolver, hosts []string, timeout time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) *TargetResolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if len(hosts) == 0 {
		hosts = []string{"vk.com"}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TargetResolver{
		identity: identity,
		hosts:    hosts,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Resolve returns the canonical user id or an error wrapping
// domain.ErrUnresolvable.
func (r *TargetResolver) Resolve(ctx context.Context, raw string) (domain.UserID, error) {
	ref, err := ParseTargetReference(raw, r.hosts)
	if err != nil {
		return 0, err
	}
	if !ref.NeedsLookup() {
		return ref.ID, nil
	}
	if r.identity == nil {
		return 0, fmt.Errorf("%w: no identity service for %q", domain.ErrUnresolvable, ref.ScreenName)
	}

	ctx, span := tracing.TraceLookup(ctx, "resolve_screen_name")
	defer span.End()

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.identity.ResolveScreenName(lookupCtx, ref.ScreenName)
	if err != nil {
		if !errors.Is(err, domain.ErrUnresolvable) {
			r.metrics.RecordLookupFailure("identity")
			r.logger.Warnw("screen name lookup failed", "screen_name", ref.ScreenName, "error", err)
			tracing.RecordError(ctx, err)
		}
		return 0, fmt.Errorf("%w: %q: %w", domain.ErrUnresolvable, ref.ScreenName, err)
	}
	return id, nil
}
