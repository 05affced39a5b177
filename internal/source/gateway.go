// Package source implements the fetch layer for external NBA data
// providers: ordered fallback between sources, per-provider rate limits,
// bounded retry on transient transport errors, and validity-window
// routing between live and archival endpoints.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hoopsight/hoopsync/internal/resilience"
)

// Kind names a logical data feed.
type Kind string

const (
	KindSchedule   Kind = "schedule"
	KindRoster     Kind = "roster"
	KindPlayByPlay Kind = "playbyplay"
	KindBoxScore   Kind = "boxscore"
	KindOdds       Kind = "odds"
	KindInjury     Kind = "injury"
)

// EntityRef identifies the entity a fetch is for. GameID is empty for
// league-wide feeds (schedule, roster, injury reports).
type EntityRef struct {
	GameID   string
	Season   string
	GameDate time.Time
}

// ValidityWindow restricts a source to entities within an age range
// relative to now. A zero window accepts everything. Live endpoints
// typically carry only recent games; routing old games straight to the
// archival source avoids a guaranteed miss.
type ValidityWindow struct {
	MaxAge time.Duration // skip if now - GameDate > MaxAge (0 = no limit)
	MinAge time.Duration // skip if now - GameDate < MinAge (0 = no limit)
}

func (w ValidityWindow) accepts(ref EntityRef, now time.Time) bool {
	if ref.GameDate.IsZero() {
		return true
	}
	age := now.Sub(ref.GameDate)
	if w.MaxAge > 0 && age > w.MaxAge {
		return false
	}
	if w.MinAge > 0 && age < w.MinAge {
		return false
	}
	return true
}

// Provider fetches one raw payload for an entity.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ref EntityRef) ([]byte, error)
}

// Source is one entry in a kind's ordered fallback list.
type Source struct {
	Provider Provider
	Window   ValidityWindow
	Limiter  *rate.Limiter // nil = unlimited
}

// Attempt records one failed source try inside an exhausted fetch.
type Attempt struct {
	Provider string
	Err      error
}

// ExhaustedError reports that every eligible source failed for an
// entity. It lists each attempted provider so a failed fetch is never
// mistaken for "no data".
type ExhaustedError struct {
	Kind     Kind
	Ref      EntityRef
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Provider
	}
	return fmt.Sprintf("source: %s fetch exhausted for %q after trying [%s]",
		e.Kind, e.Ref.GameID, strings.Join(names, ", "))
}

// AttemptedProviders returns the names of the sources that were tried.
func (e *ExhaustedError) AttemptedProviders() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Provider
	}
	return names
}

// Gateway routes fetches to the ordered source list registered for each
// data kind.
type Gateway struct {
	sources map[Kind][]Source
	backoff resilience.Backoff
	now     func() time.Time
	log     *zap.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithBackoff overrides the per-source retry policy.
func WithBackoff(b resilience.Backoff) Option {
	return func(g *Gateway) { g.backoff = b }
}

// WithClock overrides the clock used for validity-window routing.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a Gateway with no registered sources.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		sources: make(map[Kind][]Source),
		backoff: resilience.DefaultBackoff(),
		now:     time.Now,
		log:     zap.L().With(zap.String("component", "source")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register appends sources to a kind's fallback list, in priority order.
func (g *Gateway) Register(kind Kind, sources ...Source) {
	g.sources[kind] = append(g.sources[kind], sources...)
}

// RawResult carries a fetched payload together with its origin.
type RawResult struct {
	Provider string
	Body     []byte
}

// Fetch tries each registered source for the kind in order. A source is
// skipped when the entity falls outside its validity window; a source
// that errors (after bounded retry on transient failures) falls through
// to the next. When no source succeeds the returned error is an
// *ExhaustedError naming every attempted provider.
func (g *Gateway) Fetch(ctx context.Context, kind Kind, ref EntityRef) (*RawResult, error) {
	body, provider, err := FetchAs(ctx, g, kind, ref, func(b []byte) ([]byte, error) {
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return &RawResult{Provider: provider, Body: body}, nil
}

// FetchAs fetches via the gateway and decodes the payload with the
// given decoder. A payload that fails to decode counts as a failed
// source, so malformed responses from a primary fall through to the
// fallback just like transport errors do.
func FetchAs[T any](ctx context.Context, g *Gateway, kind Kind, ref EntityRef, decode func([]byte) (T, error)) (T, string, error) {
	var zero T

	sources, ok := g.sources[kind]
	if !ok || len(sources) == 0 {
		return zero, "", eris.Errorf("source: no sources registered for kind %s", kind)
	}

	now := g.now()
	var attempts []Attempt
	for _, src := range sources {
		if !src.Window.accepts(ref, now) {
			g.log.Debug("source outside validity window, skipping",
				zap.String("kind", string(kind)),
				zap.String("provider", src.Provider.Name()),
				zap.String("game_id", ref.GameID),
			)
			continue
		}

		if src.Limiter != nil {
			if err := src.Limiter.Wait(ctx); err != nil {
				return zero, "", eris.Wrap(err, "source: rate limiter wait")
			}
		}

		body, err := resilience.Retry(ctx, g.backoff, func(ctx context.Context) ([]byte, error) {
			return src.Provider.Fetch(ctx, ref)
		})
		if err != nil {
			if ctx.Err() != nil {
				return zero, "", eris.Wrap(ctx.Err(), "source: fetch canceled")
			}
			g.log.Warn("source failed, falling through",
				zap.String("kind", string(kind)),
				zap.String("provider", src.Provider.Name()),
				zap.String("game_id", ref.GameID),
				zap.Error(err),
			)
			attempts = append(attempts, Attempt{Provider: src.Provider.Name(), Err: err})
			continue
		}

		decoded, err := decode(body)
		if err != nil {
			g.log.Warn("payload failed to decode, falling through",
				zap.String("kind", string(kind)),
				zap.String("provider", src.Provider.Name()),
				zap.String("game_id", ref.GameID),
				zap.Error(err),
			)
			attempts = append(attempts, Attempt{
				Provider: src.Provider.Name(),
				Err:      eris.Wrapf(err, "decode %s payload", src.Provider.Name()),
			})
			continue
		}

		return decoded, src.Provider.Name(), nil
	}

	return zero, "", &ExhaustedError{Kind: kind, Ref: ref, Attempts: attempts}
}
