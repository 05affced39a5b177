package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopsight/hoopsync/internal/finalize"
	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/resilience"
	"github.com/hoopsight/hoopsync/internal/source"
	"github.com/hoopsight/hoopsync/internal/store"
)

// mapProvider serves canned payloads keyed by game id, with optional
// per-game failures.
type mapProvider struct {
	name    string
	byGame  map[string][]byte
	failing map[string]error
	global  []byte // served when GameID is empty (league-wide feeds)
}

func (p *mapProvider) Name() string { return p.name }

func (p *mapProvider) Fetch(_ context.Context, ref source.EntityRef) ([]byte, error) {
	if err, ok := p.failing[ref.GameID]; ok {
		return nil, err
	}
	if ref.GameID == "" {
		if p.global == nil {
			return nil, errors.New("no league payload")
		}
		return p.global, nil
	}
	body, ok := p.byGame[ref.GameID]
	if !ok {
		return nil, errors.New("no payload for game")
	}
	return body, nil
}

func newTestDeps(t *testing.T) (Deps, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	gw := source.NewGateway(source.WithBackoff(resilience.Backoff{
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}))
	return Deps{Store: s, Gateway: gw, Machine: finalize.NewMachine(s)}, s
}

func seedFinalGames(t *testing.T, s store.Store, n int) []string {
	t.Helper()
	var games []model.Game
	var ids []string
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("002230000%d", i)
		ids = append(ids, id)
		games = append(games, model.Game{
			ID:         id,
			Season:     "2023-2024",
			SeasonType: model.SeasonRegular,
			DateTime:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			HomeTeam:   "BOS",
			AwayTeam:   "NYK",
			Status:     model.StatusFinal,
		})
	}
	_, err := s.UpsertGames(context.Background(), games)
	require.NoError(t, err)
	return ids
}

func livePBPBody(n int) []byte {
	return []byte(fmt.Sprintf(`{"game":{"actions":[
		{"actionNumber":1,"period":1,"clock":"PT11M00.00S","scoreHome":"2","scoreAway":"0","actionType":"2pt"},
		{"actionNumber":%d,"period":4,"clock":"PT00M00.00S","scoreHome":"100","scoreAway":"95","actionType":"game","subType":"end"}
	]}}`, n))
}

func TestPlayByPlayStageIsolatesFailures(t *testing.T) {
	deps, s := newTestDeps(t)
	ids := seedFinalGames(t, s, 5)

	provider := &mapProvider{
		name:    "live",
		byGame:  map[string][]byte{},
		failing: map[string]error{ids[2]: errors.New("410 gone")},
	}
	for i, id := range ids {
		provider.byGame[id] = livePBPBody(100 + i)
	}
	deps.Gateway.Register(source.KindPlayByPlay, source.Source{Provider: provider})

	stage := &playByPlayStage{}
	summary, err := stage.Run(context.Background(), deps, Options{Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, ids[2], summary.Failures[0].GameID)

	// The failing game blocked nothing else.
	events, err := s.ListPlayByPlay(context.Background(), ids[4])
	require.NoError(t, err)
	assert.Len(t, events, 2)
	events, err = s.ListPlayByPlay(context.Background(), ids[2])
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGameStatesStageAdvancesCoreFlagAndIsIdempotent(t *testing.T) {
	deps, s := newTestDeps(t)
	ids := seedFinalGames(t, s, 2)

	provider := &mapProvider{name: "live", byGame: map[string][]byte{}}
	for i, id := range ids {
		provider.byGame[id] = livePBPBody(200 + i)
	}
	deps.Gateway.Register(source.KindPlayByPlay, source.Source{Provider: provider})

	ctx := context.Background()
	pbp := &playByPlayStage{}
	states := &gameStatesStage{}

	_, err := pbp.Run(ctx, deps, Options{})
	require.NoError(t, err)
	summary, err := states.Run(ctx, deps, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)

	for _, id := range ids {
		g, err := s.GetGame(ctx, id)
		require.NoError(t, err)
		assert.True(t, g.CoreDataFinalized, "game %s", id)
	}

	// A second full run finds no pending work and changes nothing.
	summary, err = states.Run(ctx, deps, Options{})
	require.NoError(t, err)
	assert.Zero(t, summary.Succeeded)
	assert.Zero(t, summary.Failed)

	events, err := s.ListPlayByPlay(ctx, ids[0])
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestScheduleStageCacheWindow(t *testing.T) {
	deps, s := newTestDeps(t)

	body := []byte(`{"leagueSchedule":{"gameDates":[{"games":[
		{"gameId":"0022300001","gameDateTimeUTC":"2024-01-15T00:00:00Z","gameStatus":1,
		 "homeTeam":{"teamTricode":"BOS"},"awayTeam":{"teamTricode":"NYK"}}]}]}}`)
	deps.Gateway.Register(source.KindSchedule,
		source.Source{Provider: &mapProvider{name: "league", global: body}})

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	opts := Options{Season: "2023-2024", Now: func() time.Time { return now }}

	stage := &scheduleStage{}
	summary, err := stage.Run(context.Background(), deps, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	// Within the cache window the stage skips the refetch.
	summary, err = stage.Run(context.Background(), deps, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Succeeded)

	// Force overrides the cache.
	opts.Force = true
	summary, err = stage.Run(context.Background(), deps, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	count, err := s.CountGamesBySeason(context.Background(), "2023-2024", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScheduleStageFinalizesPastSeason(t *testing.T) {
	deps, s := newTestDeps(t)

	body := []byte(`{"leagueSchedule":{"gameDates":[{"games":[
		{"gameId":"0022200001","gameDateTimeUTC":"2023-01-15T00:00:00Z","gameStatus":3,
		 "homeTeam":{"teamTricode":"BOS"},"awayTeam":{"teamTricode":"NYK"}}]}]}}`)
	deps.Gateway.Register(source.KindSchedule,
		source.Source{Provider: &mapProvider{name: "league", global: body}})

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	opts := Options{Season: "2022-2023", Now: func() time.Time { return now }}

	stage := &scheduleStage{}
	_, err := stage.Run(context.Background(), deps, opts)
	require.NoError(t, err)

	cache, err := s.GetScheduleCache(context.Background(), "2022-2023")
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.True(t, cache.Finalized)

	// A finalized season is never refetched, cache window or not.
	later := Options{Season: "2022-2023", Now: func() time.Time { return now.Add(48 * time.Hour) }}
	summary, err := stage.Run(context.Background(), deps, later)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
}

func TestShouldFetchOdds(t *testing.T) {
	_, s := newTestDeps(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	farOut := &model.Game{ID: "far", DateTime: now.Add(10 * 24 * time.Hour), Status: model.StatusScheduled}
	fetch, err := shouldFetchOdds(ctx, s, farOut, now)
	require.NoError(t, err)
	assert.False(t, fetch, "games more than a week out have no lines yet")

	upcoming := &model.Game{ID: "soon", DateTime: now.Add(2 * 24 * time.Hour), Status: model.StatusScheduled}
	fetch, err = shouldFetchOdds(ctx, s, upcoming, now)
	require.NoError(t, err)
	assert.True(t, fetch)

	// An old final game with finalized lines is done forever.
	oldFinal := &model.Game{ID: "old", DateTime: now.Add(-5 * 24 * time.Hour), Status: model.StatusFinal}
	spread, total := -3.5, 220.0
	require.NoError(t, s.UpsertOddsLine(ctx, model.OddsLine{
		GameID: "old", Source: "covers", Spread: &spread, Total: &total, LinesFinal: true,
	}))
	fetch, err = shouldFetchOdds(ctx, s, oldFinal, now)
	require.NoError(t, err)
	assert.False(t, fetch)

	// Without finalized lines it still needs a backfill.
	noLines := &model.Game{ID: "backfill", DateTime: now.Add(-5 * 24 * time.Hour), Status: model.StatusFinal}
	fetch, err = shouldFetchOdds(ctx, s, noLines, now)
	require.NoError(t, err)
	assert.True(t, fetch)
}

func TestRegistryOrderAndSelection(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []string{
		"schedule", "rosters", "playbyplay", "gamestates",
		"boxscores", "odds", "injuries", "handoff",
	}, reg.AllNames())

	// Selection never reorders.
	stages, err := reg.Select([]string{"odds", "schedule"})
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "schedule", stages[0].Name())
	assert.Equal(t, "odds", stages[1].Name())

	_, err = reg.Select([]string{"nonsense"})
	require.Error(t, err)
}

func TestOrchestratorContinuesAfterStageFailure(t *testing.T) {
	deps, s := newTestDeps(t)
	// No schedule source registered: the schedule stage fails outright.
	// Later stages still run against the empty store.
	reg := NewRegistry()
	orch := NewOrchestrator(deps, reg)

	summaries, err := orch.Run(context.Background(), []string{"schedule", "handoff"}, Options{
		Season: "2023-2024",
		Now:    func() time.Time { return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, 1, summaries[0].Failed)
	assert.Equal(t, "handoff", summaries[1].Stage)
	assert.Zero(t, summaries[1].Failed)

	entries, err := s.ListSyncLog(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byStage := map[string]string{}
	for _, e := range entries {
		byStage[e.Stage] = e.Status
	}
	assert.Equal(t, "failed", byStage["schedule"])
	assert.Equal(t, "complete", byStage["handoff"])
}
