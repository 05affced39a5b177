package model

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Player is one roster entry from the league player index.
type Player struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
	Team           string `json:"team"` // tricode, empty for free agents
	Active         bool   `json:"active"`
	FromYear       int    `json:"from_year"`
	ToYear         int    `json:"to_year"`
}

// InjuryEntry is one row of the league injury report for a given date.
// Injuries are an auxiliary input for the feature engine and gate no flag.
type InjuryEntry struct {
	ReportDate time.Time `json:"report_date"`
	Team       string    `json:"team"`
	PlayerName string    `json:"player_name"`
	Status     string    `json:"status"` // "Out", "Questionable", ...
	Reason     string    `json:"reason,omitempty"`
}

var nameFolder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName folds accents and case so roster entries can be matched
// against box score and injury report spellings (e.g. "Dončić" → "doncic").
func NormalizeName(name string) string {
	folded, _, err := transform.String(nameFolder, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	folded = strings.ReplaceAll(folded, ".", "")
	folded = strings.ReplaceAll(folded, "'", "")
	return folded
}
