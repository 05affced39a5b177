// Package finalize implements the per-game finalization state machine.
//
// Each game carries three independent boolean flags, each a durable
// promise to downstream consumers that a class of data is complete.
// A flag is advanced only when its predicate holds against current
// store contents; flags are never flipped back by ingestion, and the
// derived flag cannot be set before the core flag.
package finalize

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hoopsight/hoopsync/internal/model"
	"github.com/hoopsight/hoopsync/internal/store"
)

// ErrOrderViolation marks an attempt to set the prediction flag on a
// game whose core data is not finalized. It is a logic error in the
// caller, never a data condition, so it is rejected and logged rather
// than applied.
var ErrOrderViolation = eris.New("finalize: pred flag requires core flag")

// Machine evaluates finalization predicates and persists flag advances.
type Machine struct {
	store store.Store
	log   *zap.Logger
}

// NewMachine creates a Machine over the given store.
func NewMachine(st store.Store) *Machine {
	return &Machine{
		store: st,
		log:   zap.L().With(zap.String("component", "finalize")),
	}
}

// Evaluate reports whether the predicate for the given flag currently
// holds for the game, using the evidence counts from the store.
func (m *Machine) Evaluate(ctx context.Context, gameID string, flag model.Flag) (bool, error) {
	g, err := m.store.GetGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	if g == nil {
		return false, eris.Errorf("finalize: game %s not found", gameID)
	}
	return m.evaluate(ctx, g, flag)
}

func (m *Machine) evaluate(ctx context.Context, g *model.Game, flag model.Flag) (bool, error) {
	switch flag {
	case model.FlagCoreData:
		return m.coreDataComplete(ctx, g)
	case model.FlagBoxData:
		return m.boxDataComplete(ctx, g)
	case model.FlagPredData:
		return m.predDataComplete(ctx, g)
	default:
		return false, eris.Errorf("finalize: unknown flag %q", flag)
	}
}

// coreDataComplete holds when the game is over, at least one
// play-by-play event exists, and exactly one snapshot is marked final.
func (m *Machine) coreDataComplete(ctx context.Context, g *model.Game) (bool, error) {
	if !g.Status.Completed() {
		return false, nil
	}
	events, err := m.store.ListPlayByPlay(ctx, g.ID)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}
	states, err := m.store.ListGameStates(ctx, g.ID)
	if err != nil {
		return false, err
	}
	finals := 0
	for _, st := range states {
		if st.IsFinal {
			finals++
		}
	}
	return finals == 1, nil
}

// boxDataComplete holds when both sides have a plausible full box
// score. Independent of the core flag: box collection may lag or fail
// while event data succeeds, and vice versa.
func (m *Machine) boxDataComplete(ctx context.Context, g *model.Game) (bool, error) {
	if !g.Status.Completed() {
		return false, nil
	}
	rows, err := m.store.ListBoxScoreRows(ctx, g.ID)
	if err != nil {
		return false, err
	}
	var home, away int
	for _, r := range rows {
		if r.Home {
			home++
		} else {
			away++
		}
	}
	return home >= model.MinBoxRowsPerSide && away >= model.MinBoxRowsPerSide, nil
}

// predDataComplete holds when at least one prediction row exists. The
// ordering constraint against the core flag is enforced in Advance,
// not here: the predicate answers "do the rows exist", Advance answers
// "may the promise be made".
func (m *Machine) predDataComplete(ctx context.Context, g *model.Game) (bool, error) {
	n, err := m.store.CountPredictions(ctx, g.ID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Advance re-evaluates the flag's predicate and persists the flag if it
// newly holds. Returns true when the flag was advanced by this call.
//
// Monotonic: a set flag is left alone even if the predicate no longer
// holds — clearing a published promise is the validator's job, done
// explicitly, never a side effect of ingestion. Setting the prediction
// flag while the core flag is unset returns ErrOrderViolation.
func (m *Machine) Advance(ctx context.Context, g *model.Game, flag model.Flag) (bool, error) {
	if g.FlagValue(flag) {
		return false, nil
	}

	ok, err := m.evaluate(ctx, g, flag)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if flag == model.FlagPredData && !g.CoreDataFinalized {
		m.log.Error("rejecting pred flag before core flag",
			zap.String("game_id", g.ID),
		)
		return false, eris.Wrapf(ErrOrderViolation, "game %s", g.ID)
	}

	if err := m.store.SetFinalizationFlag(ctx, g.ID, flag, true); err != nil {
		return false, err
	}
	g.SetFlagValue(flag, true)
	m.log.Info("finalization flag advanced",
		zap.String("game_id", g.ID),
		zap.String("flag", string(flag)),
	)
	return true, nil
}
