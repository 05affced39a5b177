package source

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsync/internal/resilience"
)

type fakeProvider struct {
	name    string
	body    []byte
	err     error
	calls   int
	failFor int // fail this many calls before succeeding
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(_ context.Context, _ EntityRef) ([]byte, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.calls <= p.failFor {
		return nil, resilience.NewTransientError(errors.New("503"), 503)
	}
	return p.body, nil
}

func noSleepBackoff() resilience.Backoff {
	return resilience.Backoff{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func TestGatewayFallbackToSecondary(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("400 bad request")}
	fallback := &fakeProvider{name: "fallback", body: []byte(`{"ok":true}`)}

	g := NewGateway(WithBackoff(noSleepBackoff()))
	g.Register(KindOdds, Source{Provider: primary}, Source{Provider: fallback})

	res, err := g.Fetch(context.Background(), KindOdds, EntityRef{GameID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", res.Provider)
	assert.JSONEq(t, `{"ok":true}`, string(res.Body))
	// The primary was attempted, not silently skipped.
	assert.Equal(t, 1, primary.calls)
}

func TestGatewayExhaustedNamesAllSources(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", err: errors.New("also down")}

	g := NewGateway(WithBackoff(noSleepBackoff()))
	g.Register(KindPlayByPlay, Source{Provider: a}, Source{Provider: b})

	_, err := g.Fetch(context.Background(), KindPlayByPlay, EntityRef{GameID: "g1"})
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"a", "b"}, exhausted.AttemptedProviders())
	assert.Contains(t, err.Error(), "exhausted")
}

func TestGatewayRetriesTransientThenSucceeds(t *testing.T) {
	flaky := &fakeProvider{name: "flaky", body: []byte(`{}`), failFor: 1}

	g := NewGateway(WithBackoff(noSleepBackoff()))
	g.Register(KindBoxScore, Source{Provider: flaky})

	res, err := g.Fetch(context.Background(), KindBoxScore, EntityRef{GameID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, "flaky", res.Provider)
	assert.Equal(t, 2, flaky.calls)
}

func TestGatewayNonTransientNotRetried(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("404 not found")}

	g := NewGateway(WithBackoff(noSleepBackoff()))
	g.Register(KindBoxScore, Source{Provider: broken})

	_, err := g.Fetch(context.Background(), KindBoxScore, EntityRef{GameID: "g1"})
	require.Error(t, err)
	assert.Equal(t, 1, broken.calls)
}

func TestGatewayValidityWindowRouting(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	live := &fakeProvider{name: "live", body: []byte(`{"live":true}`)}
	archival := &fakeProvider{name: "archival", body: []byte(`{"archival":true}`)}

	g := NewGateway(
		WithBackoff(noSleepBackoff()),
		WithClock(func() time.Time { return now }),
	)
	g.Register(KindPlayByPlay,
		Source{Provider: live, Window: ValidityWindow{MaxAge: 7 * 24 * time.Hour}},
		Source{Provider: archival},
	)

	// A recent game goes to the live source.
	recent := EntityRef{GameID: "recent", GameDate: now.Add(-24 * time.Hour)}
	res, err := g.Fetch(context.Background(), KindPlayByPlay, recent)
	require.NoError(t, err)
	assert.Equal(t, "live", res.Provider)

	// An old game skips the live source entirely; no wasted request.
	old := EntityRef{GameID: "old", GameDate: now.Add(-30 * 24 * time.Hour)}
	res, err = g.Fetch(context.Background(), KindPlayByPlay, old)
	require.NoError(t, err)
	assert.Equal(t, "archival", res.Provider)
	assert.Equal(t, 1, live.calls)
}

func TestFetchAsDecodeFailureFallsThrough(t *testing.T) {
	// The primary answers but with a shape the decoder rejects.
	garbled := &fakeProvider{name: "garbled", body: []byte(`{"unexpected":1}`)}
	good := &fakeProvider{name: "good", body: []byte(`{"value":42}`)}

	g := NewGateway(WithBackoff(noSleepBackoff()))
	g.Register(KindOdds, Source{Provider: garbled}, Source{Provider: good})

	type payload struct {
		Value int `json:"value"`
	}
	decode := func(b []byte) (payload, error) {
		var p payload
		if err := json.Unmarshal(b, &p); err != nil {
			return p, err
		}
		if p.Value == 0 {
			return p, errors.New("missing value field")
		}
		return p, nil
	}

	got, provider, err := FetchAs(context.Background(), g, KindOdds, EntityRef{GameID: "g1"}, decode)
	require.NoError(t, err)
	assert.Equal(t, "good", provider)
	assert.Equal(t, 42, got.Value)
}

func TestGatewayNoSourcesRegistered(t *testing.T) {
	g := NewGateway(WithBackoff(noSleepBackoff()))
	_, err := g.Fetch(context.Background(), KindSchedule, EntityRef{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources registered")
}

func TestGatewayContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := &fakeProvider{name: "slow", err: resilience.NewTransientError(errors.New("timeout"), 504)}
	g := NewGateway(WithBackoff(noSleepBackoff()))
	g.Register(KindSchedule, Source{Provider: slow})

	_, err := g.Fetch(ctx, KindSchedule, EntityRef{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
