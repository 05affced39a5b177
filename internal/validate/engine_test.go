package validate

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/store"
)

// testDB is a store plus a raw connection to the same file, used to
// inject defects the store's own write paths would never produce.
type testDB struct {
	store store.Store
	raw   *sql.DB
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	return &testDB{store: s, raw: raw}
}

func (db *testDB) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := db.raw.Exec(query, args...)
	require.NoError(t, err)
}

func (db *testDB) seedGame(t *testing.T, id string, status model.GameStatus) {
	t.Helper()
	g := model.Game{
		ID:         id,
		Season:     "2023-2024",
		SeasonType: model.SeasonRegular,
		DateTime:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		HomeTeam:   "BOS",
		AwayTeam:   "NYK",
		Status:     status,
	}
	_, err := db.store.UpsertGames(context.Background(), []model.Game{g})
	require.NoError(t, err)
}

func (db *testDB) seedCoreEvidence(t *testing.T, gameID string) {
	t.Helper()
	ctx := context.Background()
	_, err := db.store.UpsertPlayByPlay(ctx, gameID, []model.PlayByPlayEvent{
		{GameID: gameID, PlayID: 1, Payload: []byte(`{}`)},
		{GameID: gameID, PlayID: 2, Payload: []byte(`{}`)},
	})
	require.NoError(t, err)
	_, err = db.store.UpsertGameStates(ctx, gameID, []model.GameState{
		{GameID: gameID, PlayID: 1, Period: 1, HomeScore: 2, AwayScore: 0},
		{GameID: gameID, PlayID: 2, Period: 4, HomeScore: 101, AwayScore: 99, IsFinal: true},
	})
	require.NoError(t, err)
}

func runEngine(t *testing.T, db *testDB, opts RunOpts) *Report {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC) }
	}
	report, err := NewEngine(db.store).Run(context.Background(), opts)
	require.NoError(t, err)
	return report
}

func findingsFor(report *Report, checkID string) []Finding {
	var out []Finding
	for _, f := range report.Findings {
		if f.CheckID == checkID {
			out = append(out, f)
		}
	}
	return out
}

func TestCleanStoreHasNoFindings(t *testing.T) {
	db := newTestDB(t)
	db.seedGame(t, "g1", model.StatusFinal)
	db.seedCoreEvidence(t, "g1")

	require.NoError(t, db.store.SetFinalizationFlag(context.Background(), "g1", model.FlagCoreData, true))

	report := runEngine(t, db, RunOpts{})
	for _, f := range report.Findings {
		// The season opener cold-start warning is expected.
		assert.Equal(t, "temporal-002", f.CheckID, "unexpected finding: %+v", f)
	}
	assert.Zero(t, report.Criticals)
	assert.False(t, report.HasCritical())
}

func TestCoreFlagWithoutEvidence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	// Flag set, but no events or states behind it.
	require.NoError(t, db.store.SetFinalizationFlag(ctx, "g1", model.FlagCoreData, true))

	report := runEngine(t, db, RunOpts{})
	found := findingsFor(report, "flags-001")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.True(t, found[0].Fixable)
	assert.True(t, report.HasCritical())

	// The fix clears the flag; the re-run inside the same engine pass
	// comes back clean.
	report = runEngine(t, db, RunOpts{Fix: true})
	assert.Empty(t, findingsFor(report, "flags-001"))
	assert.Equal(t, int64(1), report.Fixed["flags-001"])

	g, err := db.store.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, g.CoreDataFinalized)
}

func TestPredBeforeCoreOrderingInvariant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	require.NoError(t, db.store.SetFinalizationFlag(ctx, "g1", model.FlagPredData, true))

	report := runEngine(t, db, RunOpts{Categories: []string{"flags"}})
	found := findingsFor(report, "flags-002")
	require.Len(t, found, 1)
	assert.True(t, found[0].Fixable)

	report = runEngine(t, db, RunOpts{Categories: []string{"flags"}, Fix: true})
	assert.Empty(t, findingsFor(report, "flags-002"))

	g, err := db.store.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, g.PredDataFinalized)
}

func TestOrphanFixDeletesExactlyTheOrphans(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	db.seedCoreEvidence(t, "g1")
	_, err := db.store.UpsertBoxScoreRows(ctx, []model.BoxScoreRow{
		{GameID: "g1", PlayerID: 1, Team: "BOS", Home: true, Points: 10},
	})
	require.NoError(t, err)

	// One orphan box row alongside the legitimate one.
	db.exec(t, `INSERT INTO box_scores (game_id, player_id, team, home, minutes, points, rebounds, assists)
		VALUES ('ghost', 9, 'XXX', 1, '', 0, 0, 0)`)

	report := runEngine(t, db, RunOpts{Categories: []string{"integrity"}})
	require.Len(t, findingsFor(report, "integrity-001"), 1)

	report = runEngine(t, db, RunOpts{Categories: []string{"integrity"}, Fix: true})
	assert.Empty(t, findingsFor(report, "integrity-001"))
	assert.Equal(t, int64(1), report.Fixed["integrity-001"])

	// The legitimate row survived.
	rows, err := db.store.ListBoxScoreRows(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDuplicateEventFixConverges(t *testing.T) {
	db := newTestDB(t)

	db.seedGame(t, "g1", model.StatusFinal)
	for i := 0; i < 3; i++ {
		db.exec(t, `INSERT INTO play_by_play (game_id, play_id, payload) VALUES ('g1', 7, '{}')`)
	}

	report := runEngine(t, db, RunOpts{CheckID: "integrity-003"})
	require.Len(t, findingsFor(report, "integrity-003"), 1)

	report = runEngine(t, db, RunOpts{CheckID: "integrity-003", Fix: true})
	assert.Empty(t, report.Findings)
	assert.Equal(t, int64(2), report.Fixed["integrity-003"])

	// Running the fix again is a no-op.
	report = runEngine(t, db, RunOpts{CheckID: "integrity-003", Fix: true})
	assert.Empty(t, report.Findings)
	assert.Equal(t, int64(0), report.Fixed["integrity-003"])

	events, err := db.store.ListPlayByPlay(context.Background(), "g1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUnmatchedStateFix(t *testing.T) {
	db := newTestDB(t)

	db.seedGame(t, "g1", model.StatusFinal)
	db.seedCoreEvidence(t, "g1")
	db.exec(t, `INSERT INTO game_states (game_id, play_id, period, seconds_remaining, home_score, away_score, is_final)
		VALUES ('g1', 99, 4, 0, 50, 50, 0)`)

	report := runEngine(t, db, RunOpts{Categories: []string{"xref"}})
	require.Len(t, findingsFor(report, "xref-001"), 1)

	report = runEngine(t, db, RunOpts{Categories: []string{"xref"}, Fix: true})
	assert.Empty(t, findingsFor(report, "xref-001"))
}

func TestMultipleFinalStatesNotFixable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	_, err := db.store.UpsertPlayByPlay(ctx, "g1", []model.PlayByPlayEvent{
		{GameID: "g1", PlayID: 1, Payload: []byte(`{}`)},
		{GameID: "g1", PlayID: 2, Payload: []byte(`{}`)},
	})
	require.NoError(t, err)
	// Two conflicting terminal snapshots: which score is right cannot
	// be inferred.
	_, err = db.store.UpsertGameStates(ctx, "g1", []model.GameState{
		{GameID: "g1", PlayID: 1, Period: 4, HomeScore: 100, AwayScore: 98, IsFinal: true},
		{GameID: "g1", PlayID: 2, Period: 4, HomeScore: 101, AwayScore: 99, IsFinal: true},
	})
	require.NoError(t, err)

	report := runEngine(t, db, RunOpts{CheckID: "domain-002", Fix: true})
	found := findingsFor(report, "domain-002")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.False(t, found[0].Fixable)
	// Fix pass ran, but this check exposes no fix: the finding stays
	// and the exit condition holds.
	assert.Empty(t, report.Fixed)
	assert.True(t, report.HasCritical())
}

func TestCoreFlagOnUnfinishedGame(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Full core evidence, but the game never finished: the flag is
	// still provably wrong.
	db.seedGame(t, "g1", model.StatusScheduled)
	db.seedCoreEvidence(t, "g1")
	require.NoError(t, db.store.SetFinalizationFlag(ctx, "g1", model.FlagCoreData, true))

	report := runEngine(t, db, RunOpts{CheckID: "flags-001"})
	found := findingsFor(report, "flags-001")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.True(t, found[0].Fixable)
	assert.Contains(t, found[0].Message, "scheduled")

	report = runEngine(t, db, RunOpts{CheckID: "flags-001", Fix: true})
	assert.Empty(t, report.Findings)

	g, err := db.store.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, g.CoreDataFinalized)
}

func TestScoreAgreementMismatchIsCritical(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	db.seedCoreEvidence(t, "g1")
	// Final snapshot says 101-99; box totals say 90-99.
	_, err := db.store.UpsertBoxScoreRows(ctx, []model.BoxScoreRow{
		{GameID: "g1", PlayerID: 1, Team: "BOS", Home: true, Points: 90},
		{GameID: "g1", PlayerID: 2, Team: "NYK", Home: false, Points: 99},
	})
	require.NoError(t, err)

	report := runEngine(t, db, RunOpts{CheckID: "domain-003", Fix: true})
	found := findingsFor(report, "domain-003")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityCritical, found[0].Severity)
	assert.False(t, found[0].Fixable)
	assert.Contains(t, found[0].Message, "101-99")
	// No fix exists; the disagreement blocks a clean run.
	assert.Empty(t, report.Fixed)
	assert.True(t, report.HasCritical())
}

func TestUnknownBoxPlayerWarning(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	_, err := db.store.UpsertBoxScoreRows(ctx, []model.BoxScoreRow{
		{GameID: "g1", PlayerID: 1, Team: "BOS", Home: true, Points: 10},
		{GameID: "g1", PlayerID: 999, Team: "NYK", Home: false, Points: 8},
	})
	require.NoError(t, err)

	// Rosters never synced: nothing to judge against yet.
	report := runEngine(t, db, RunOpts{CheckID: "xref-003"})
	assert.Empty(t, report.Findings)

	_, err = db.store.UpsertPlayers(ctx, []model.Player{
		{ID: 1, Name: "Known Player", NormalizedName: "known player", Team: "BOS", Active: true},
	})
	require.NoError(t, err)

	report = runEngine(t, db, RunOpts{CheckID: "xref-003"})
	found := findingsFor(report, "xref-003")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityWarning, found[0].Severity)
	assert.False(t, found[0].Fixable)
	assert.Equal(t, "g1", found[0].GameID)
	assert.Contains(t, found[0].Message, "999")
	assert.False(t, report.HasCritical())
}

func TestScoreMonotonicity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.seedGame(t, "g1", model.StatusFinal)
	_, err := db.store.UpsertPlayByPlay(ctx, "g1", []model.PlayByPlayEvent{
		{GameID: "g1", PlayID: 1, Payload: []byte(`{}`)},
		{GameID: "g1", PlayID: 2, Payload: []byte(`{}`)},
	})
	require.NoError(t, err)
	_, err = db.store.UpsertGameStates(ctx, "g1", []model.GameState{
		{GameID: "g1", PlayID: 1, Period: 2, HomeScore: 50, AwayScore: 40},
		{GameID: "g1", PlayID: 2, Period: 3, HomeScore: 45, AwayScore: 41}, // home score went down
	})
	require.NoError(t, err)

	report := runEngine(t, db, RunOpts{CheckID: "domain-001"})
	found := findingsFor(report, "domain-001")
	require.Len(t, found, 1)
	assert.False(t, found[0].Fixable)
	assert.Contains(t, found[0].Message, "decreases")
}

func TestSeasonVolumeWarning(t *testing.T) {
	db := newTestDB(t)
	// One game in a finished historical season expecting 1230.
	g := model.Game{
		ID: "0022200001", Season: "2022-2023", SeasonType: model.SeasonRegular,
		DateTime: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
		HomeTeam: "BOS", AwayTeam: "NYK", Status: model.StatusFinal,
	}
	_, err := db.store.UpsertGames(context.Background(), []model.Game{g})
	require.NoError(t, err)

	report := runEngine(t, db, RunOpts{CheckID: "volume-001", Season: "2022-2023"})
	found := findingsFor(report, "volume-001")
	require.Len(t, found, 1)
	assert.Equal(t, SeverityWarning, found[0].Severity)
	assert.Contains(t, found[0].Message, "1230")
}

func TestSeasonWindowWarning(t *testing.T) {
	db := newTestDB(t)
	g := model.Game{
		ID: "0022300001", Season: "2023-2024", SeasonType: model.SeasonRegular,
		DateTime: time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), // before September
		HomeTeam: "BOS", AwayTeam: "NYK", Status: model.StatusScheduled,
	}
	_, err := db.store.UpsertGames(context.Background(), []model.Game{g})
	require.NoError(t, err)

	report := runEngine(t, db, RunOpts{CheckID: "temporal-001"})
	require.Len(t, findingsFor(report, "temporal-001"), 1)
}

func TestCategorySubsetDoesNotMutateWithoutFix(t *testing.T) {
	db := newTestDB(t)
	db.seedGame(t, "g1", model.StatusFinal)
	db.exec(t, `INSERT INTO play_by_play (game_id, play_id, payload) VALUES ('ghost', 1, '{}')`)

	// Reads only: the orphan must survive any number of no-fix runs,
	// whether a subset or all categories run.
	runEngine(t, db, RunOpts{Categories: []string{"integrity"}})
	runEngine(t, db, RunOpts{})

	keys, err := db.store.OrphanEventKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestSelectUnknownCategoryAndCheckID(t *testing.T) {
	db := newTestDB(t)

	_, err := NewEngine(db.store).Run(context.Background(), RunOpts{Categories: []string{"bogus"}})
	require.Error(t, err)

	_, err = NewEngine(db.store).Run(context.Background(), RunOpts{CheckID: "nope-999"})
	require.Error(t, err)
}

func TestReportRenderFormats(t *testing.T) {
	report := &Report{
		RunID: "run-1",
		Findings: []Finding{
			{CheckID: "flags-001", Category: CategoryFlags, Severity: SeverityCritical, Fixable: true, GameID: "g1", Message: "core flag without evidence"},
			{CheckID: "volume-001", Category: CategoryVolume, Severity: SeverityWarning, Message: "short season"},
		},
		Criticals: 1,
		Warnings:  1,
	}

	var human bytes.Buffer
	require.NoError(t, report.Render(&human, FormatHuman))
	assert.Contains(t, human.String(), "CRIT flags-001 g1")
	assert.Contains(t, human.String(), "(fixable)")
	assert.Contains(t, human.String(), "1 critical, 1 warning")

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, FormatJSON))
	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Findings, 2)

	var yamlBuf bytes.Buffer
	require.NoError(t, report.Render(&yamlBuf, FormatYAML))
	assert.Contains(t, yamlBuf.String(), "check_id: flags-001")

	require.Error(t, report.Render(&bytes.Buffer{}, Format("xml")))
}
