package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Report is the result of one engine run.
type Report struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	StartedAt time.Time        `json:"started_at" yaml:"started_at"`
	Season    string           `json:"season,omitempty" yaml:"season,omitempty"`
	Findings  []Finding        `json:"findings" yaml:"findings"`
	Fixed     map[string]int64 `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Criticals int              `json:"criticals" yaml:"criticals"`
	Warnings  int              `json:"warnings" yaml:"warnings"`
}

// HasCritical reports whether any critical finding remains. After a fix
// pass the findings already reflect post-fix state, so this is exactly
// the "unfixed criticals" exit condition.
func (r *Report) HasCritical() bool {
	return r.Criticals > 0
}

// Format names a report output encoding.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Render writes the report in the requested format.
func (r *Report) Render(w io.Writer, format Format) error {
	switch format {
	case FormatHuman, "":
		return r.renderHuman(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(r), "report: encode json")
	case FormatYAML:
		return eris.Wrap(yaml.NewEncoder(w).Encode(r), "report: encode yaml")
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

func (r *Report) renderHuman(w io.Writer) error {
	fmt.Fprintf(w, "validation run %s\n", r.RunID)
	if r.Season != "" {
		fmt.Fprintf(w, "season: %s\n", r.Season)
	}

	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "no findings")
	}

	// Findings arrive in check order; print category headers as they
	// change.
	var current Category
	for _, f := range r.Findings {
		if f.Category != current {
			current = f.Category
			fmt.Fprintf(w, "\n[%s]\n", current)
		}
		marker := "WARN"
		if f.Severity == SeverityCritical {
			marker = "CRIT"
		}
		suffix := ""
		if f.Fixable {
			suffix = " (fixable)"
		}
		if f.GameID != "" {
			fmt.Fprintf(w, "  %s %s %s: %s%s\n", marker, f.CheckID, f.GameID, f.Message, suffix)
		} else {
			fmt.Fprintf(w, "  %s %s: %s%s\n", marker, f.CheckID, f.Message, suffix)
		}
	}

	if len(r.Fixed) > 0 {
		fmt.Fprintln(w)
		for id, n := range r.Fixed {
			fmt.Fprintf(w, "fixed %s: %d mutation(s)\n", id, n)
		}
	}

	fmt.Fprintf(w, "\n%d critical, %d warning\n", r.Criticals, r.Warnings)
	return nil
}
