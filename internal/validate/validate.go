// Package validate implements the data validation engine: categorized
// consistency checks over one store, each a pure read predicate
// producing findings, with optional conservative auto-fixes.
//
// Checks never mutate state on their own. A fixable check exposes a
// Fix that deletes or clears only what the check's own predicate
// proves inconsistent, so fixes are idempotent and running a category
// subset mutates nothing differently than running all.
package validate

import (
	"context"
	"time"

	"github.com/hoopsight/hoopsync/internal/store"
)

// Category groups related checks.
type Category string

const (
	CategoryFlags     Category = "flags"
	CategoryXref      Category = "xref"
	CategoryIntegrity Category = "integrity"
	CategoryDomain    Category = "domain"
	CategoryVolume    Category = "volume"
	CategoryTemporal  Category = "temporal"
)

// Severity classifies a finding.
type Severity string

const (
	// SeverityCritical marks data that is provably wrong or violates a
	// hard invariant.
	SeverityCritical Severity = "critical"
	// SeverityWarning marks a plausible-but-unconfirmed anomaly that is
	// expected in some edge cases.
	SeverityWarning Severity = "warning"
)

// Finding is one violation reported by a check.
type Finding struct {
	CheckID  string   `json:"check_id" yaml:"check_id"`
	Category Category `json:"category" yaml:"category"`
	Severity Severity `json:"severity" yaml:"severity"`
	Fixable  bool     `json:"fixable" yaml:"fixable"`
	GameID   string   `json:"game_id,omitempty" yaml:"game_id,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

// Env is the read context shared by all checks in one engine run.
type Env struct {
	Store  store.Store
	Season string // empty = all seasons
	Now    time.Time
}

// Check is one named validation predicate.
type Check interface {
	ID() string
	Category() Category
	Description() string
	Run(ctx context.Context, env Env) ([]Finding, error)
}

// Fixer is implemented by checks whose findings can be auto-corrected.
// Fix applies exactly the check's predicate: it removes or clears only
// records the check reported, returns the number of mutations, and is
// a no-op when re-run.
type Fixer interface {
	Fix(ctx context.Context, env Env) (int64, error)
}

// AllChecks returns every check in report order.
func AllChecks() []Check {
	return []Check{
		&coreFlagEvidenceCheck{},
		&predBeforeCoreCheck{},
		&laggingCoreCheck{},
		&boxFlagEvidenceCheck{},
		&unmatchedStateCheck{},
		&unmappedOddsCheck{},
		&unknownBoxPlayerCheck{},
		&orphanBoxCheck{},
		&orphanChildCheck{},
		&duplicateEventCheck{},
		&scoreMonotonicityCheck{},
		&multipleFinalStatesCheck{},
		&scoreAgreementCheck{},
		&seasonVolumeCheck{},
		&playerVolumeCheck{},
		&seasonWindowCheck{},
		&coldStartCheck{},
	}
}
