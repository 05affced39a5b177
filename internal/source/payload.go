package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hoopsight/hoopsync/internal/model"
)

// Decoders normalize per-provider payload shapes into canonical record
// types. Shapes vary not just by provider but by API generation, so the
// play-by-play decoder probes the payload and dispatches to the matching
// versioned struct; an unrecognized shape is a decode error, which the
// gateway treats as a failed source.

// --- Schedule ---

type schedulePayload struct {
	LeagueSchedule struct {
		GameDates []struct {
			Games []scheduleGame `json:"games"`
		} `json:"gameDates"`
	} `json:"leagueSchedule"`
}

type scheduleGame struct {
	GameID          string    `json:"gameId"`
	GameDateTimeUTC time.Time `json:"gameDateTimeUTC"`
	GameStatus      int       `json:"gameStatus"`
	HomeTeam        teamRef   `json:"homeTeam"`
	AwayTeam        teamRef   `json:"awayTeam"`
}

type teamRef struct {
	Tricode string `json:"teamTricode"`
}

// seasonTypeForGameID maps the game id prefix to a season type. Play-in
// games (005) count as post season.
func seasonTypeForGameID(gameID string) model.SeasonType {
	if len(gameID) < 3 {
		return model.SeasonType("unknown")
	}
	switch gameID[:3] {
	case "001":
		return model.SeasonPre
	case "002":
		return model.SeasonRegular
	case "003":
		return model.SeasonAllStar
	case "004", "005":
		return model.SeasonPost
	default:
		return model.SeasonType("unknown")
	}
}

// DecodeSchedule parses a league schedule payload into games for the
// given season.
func DecodeSchedule(season string) func([]byte) ([]model.Game, error) {
	return func(body []byte) ([]model.Game, error) {
		var p schedulePayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "schedule payload")
		}
		if len(p.LeagueSchedule.GameDates) == 0 {
			return nil, eris.New("schedule payload: no game dates")
		}

		var games []model.Game
		for _, date := range p.LeagueSchedule.GameDates {
			for _, g := range date.Games {
				if g.GameID == "" {
					return nil, eris.New("schedule payload: game missing id")
				}
				games = append(games, model.Game{
					ID:         g.GameID,
					Season:     season,
					SeasonType: seasonTypeForGameID(g.GameID),
					DateTime:   g.GameDateTimeUTC,
					HomeTeam:   g.HomeTeam.Tricode,
					AwayTeam:   g.AwayTeam.Tricode,
					Status:     model.GameStatus(g.GameStatus),
				})
			}
		}
		return games, nil
	}
}

// --- Play-by-play ---

// GameFeed is the canonical play-by-play decode result: raw events for
// storage plus the derived score snapshots.
type GameFeed struct {
	Events []model.PlayByPlayEvent
	States []model.GameState
}

// livePBPPayload is the current-generation live feed shape.
type livePBPPayload struct {
	Game struct {
		GameID  string      `json:"gameId"`
		Actions []liveEvent `json:"actions"`
	} `json:"game"`
}

type liveEvent struct {
	ActionNumber int    `json:"actionNumber"`
	Period       int    `json:"period"`
	Clock        string `json:"clock"` // ISO-8601 duration, e.g. PT11M22.00S
	ScoreHome    string `json:"scoreHome"`
	ScoreAway    string `json:"scoreAway"`
	ActionType   string `json:"actionType"`
	SubType      string `json:"subType"`
}

// statsPBPPayload is the archival result-set shape: column headers plus
// positional rows.
type statsPBPPayload struct {
	ResultSets []struct {
		Name    string            `json:"name"`
		Headers []string          `json:"headers"`
		RowSet  [][]json.RawMessage `json:"rowSet"`
	} `json:"resultSets"`
}

// DecodePlayByPlay probes the payload shape and normalizes either
// generation into one GameFeed.
func DecodePlayByPlay(gameID string) func([]byte) (*GameFeed, error) {
	return func(body []byte) (*GameFeed, error) {
		var probe struct {
			Game       json.RawMessage `json:"game"`
			ResultSets json.RawMessage `json:"resultSets"`
		}
		if err := json.Unmarshal(body, &probe); err != nil {
			return nil, eris.Wrap(err, "play-by-play payload")
		}
		switch {
		case len(probe.Game) > 0:
			return decodeLivePBP(gameID, body)
		case len(probe.ResultSets) > 0:
			return decodeStatsPBP(gameID, body)
		default:
			return nil, eris.New("play-by-play payload: unrecognized shape")
		}
	}
}

func decodeLivePBP(gameID string, body []byte) (*GameFeed, error) {
	var p livePBPPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, eris.Wrap(err, "live play-by-play payload")
	}
	if len(p.Game.Actions) == 0 {
		return nil, eris.New("live play-by-play payload: no actions")
	}

	feed := &GameFeed{}
	for _, a := range p.Game.Actions {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, eris.Wrap(err, "live play-by-play payload: re-encode action")
		}
		feed.Events = append(feed.Events, model.PlayByPlayEvent{
			GameID:  gameID,
			PlayID:  a.ActionNumber,
			Payload: raw,
		})

		home, okH := parseScore(a.ScoreHome)
		away, okA := parseScore(a.ScoreAway)
		if !okH || !okA {
			continue
		}
		secs, err := parseISOClock(a.Clock)
		if err != nil {
			return nil, eris.Wrapf(err, "live play-by-play payload: action %d", a.ActionNumber)
		}
		feed.States = append(feed.States, model.GameState{
			GameID:           gameID,
			PlayID:           a.ActionNumber,
			Period:           a.Period,
			SecondsRemaining: secs,
			HomeScore:        home,
			AwayScore:        away,
			IsFinal:          a.ActionType == "game" && a.SubType == "end",
		})
	}
	return feed, nil
}

// Archival event message type 13 marks end of period; in period 4+ with
// the clock at zero it is the end of the game.
const statsEventEndOfPeriod = 13

func decodeStatsPBP(gameID string, body []byte) (*GameFeed, error) {
	var p statsPBPPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, eris.Wrap(err, "stats play-by-play payload")
	}

	for _, rs := range p.ResultSets {
		if rs.Name != "PlayByPlay" {
			continue
		}
		idx := make(map[string]int, len(rs.Headers))
		for i, h := range rs.Headers {
			idx[h] = i
		}
		for _, col := range []string{"EVENTNUM", "EVENTMSGTYPE", "PERIOD", "PCTIMESTRING", "SCORE"} {
			if _, ok := idx[col]; !ok {
				return nil, eris.Errorf("stats play-by-play payload: missing column %s", col)
			}
		}

		feed := &GameFeed{}
		for _, row := range rs.RowSet {
			eventNum, err := intCell(row, idx["EVENTNUM"])
			if err != nil {
				return nil, eris.Wrap(err, "stats play-by-play payload: EVENTNUM")
			}
			msgType, err := intCell(row, idx["EVENTMSGTYPE"])
			if err != nil {
				return nil, eris.Wrap(err, "stats play-by-play payload: EVENTMSGTYPE")
			}
			period, err := intCell(row, idx["PERIOD"])
			if err != nil {
				return nil, eris.Wrap(err, "stats play-by-play payload: PERIOD")
			}

			raw, err := json.Marshal(map[string]any{"headers": rs.Headers, "row": row})
			if err != nil {
				return nil, eris.Wrap(err, "stats play-by-play payload: re-encode row")
			}
			feed.Events = append(feed.Events, model.PlayByPlayEvent{
				GameID:  gameID,
				PlayID:  eventNum,
				Payload: raw,
			})

			score, _ := stringCell(row, idx["SCORE"])
			away, home, ok := parseStatsScore(score)
			if !ok {
				continue
			}
			clock, _ := stringCell(row, idx["PCTIMESTRING"])
			secs, err := parseGameClock(clock)
			if err != nil {
				return nil, eris.Wrapf(err, "stats play-by-play payload: event %d", eventNum)
			}
			feed.States = append(feed.States, model.GameState{
				GameID:           gameID,
				PlayID:           eventNum,
				Period:           period,
				SecondsRemaining: secs,
				HomeScore:        home,
				AwayScore:        away,
				IsFinal:          msgType == statsEventEndOfPeriod && period >= 4 && secs == 0,
			})
		}
		if len(feed.Events) == 0 {
			return nil, eris.New("stats play-by-play payload: empty row set")
		}
		return feed, nil
	}
	return nil, eris.New("stats play-by-play payload: no PlayByPlay result set")
}

func intCell(row []json.RawMessage, i int) (int, error) {
	if i >= len(row) {
		return 0, eris.Errorf("row too short for column %d", i)
	}
	var n int
	if err := json.Unmarshal(row[i], &n); err != nil {
		return 0, eris.Wrap(err, "numeric cell")
	}
	return n, nil
}

func stringCell(row []json.RawMessage, i int) (string, bool) {
	if i >= len(row) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(row[i], &s); err != nil {
		return "", false
	}
	return s, true
}

func parseScore(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseStatsScore parses the archival "AWAY - HOME" score string.
func parseStatsScore(s string) (away, home int, ok bool) {
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		return 0, 0, false
	}
	away, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	home, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return away, home, true
}

// parseISOClock parses the live feed's ISO-8601 game clock, e.g.
// "PT11M22.00S", into seconds remaining in the period.
func parseISOClock(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(s, "PT")
	if !ok {
		return 0, eris.Errorf("bad clock %q", s)
	}
	var minutes, seconds float64
	if mIdx := strings.Index(rest, "M"); mIdx >= 0 {
		m, err := strconv.ParseFloat(rest[:mIdx], 64)
		if err != nil {
			return 0, eris.Errorf("bad clock %q", s)
		}
		minutes = m
		rest = rest[mIdx+1:]
	}
	if sec, ok := strings.CutSuffix(rest, "S"); ok && sec != "" {
		v, err := strconv.ParseFloat(sec, 64)
		if err != nil {
			return 0, eris.Errorf("bad clock %q", s)
		}
		seconds = v
	}
	return minutes*60 + seconds, nil
}

// parseGameClock parses the archival "MM:SS" clock.
func parseGameClock(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, eris.Errorf("bad clock %q", s)
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, eris.Errorf("bad clock %q", s)
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, eris.Errorf("bad clock %q", s)
	}
	return float64(minutes*60 + seconds), nil
}

// --- Box score ---

type boxScorePayload struct {
	Game struct {
		GameID   string  `json:"gameId"`
		HomeTeam boxTeam `json:"homeTeam"`
		AwayTeam boxTeam `json:"awayTeam"`
	} `json:"game"`
}

type boxTeam struct {
	Tricode string      `json:"teamTricode"`
	Players []boxPlayer `json:"players"`
}

type boxPlayer struct {
	PersonID   int    `json:"personId"`
	Statistics struct {
		Minutes  string `json:"minutes"`
		Points   int    `json:"points"`
		Rebounds int    `json:"reboundsTotal"`
		Assists  int    `json:"assists"`
	} `json:"statistics"`
}

// DecodeBoxScore normalizes a box score payload into per-player rows.
func DecodeBoxScore(gameID string) func([]byte) ([]model.BoxScoreRow, error) {
	return func(body []byte) ([]model.BoxScoreRow, error) {
		var p boxScorePayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "box score payload")
		}
		if len(p.Game.HomeTeam.Players) == 0 && len(p.Game.AwayTeam.Players) == 0 {
			return nil, eris.New("box score payload: no players")
		}

		var rows []model.BoxScoreRow
		appendTeam := func(team boxTeam, home bool) {
			for _, pl := range team.Players {
				rows = append(rows, model.BoxScoreRow{
					GameID:   gameID,
					PlayerID: pl.PersonID,
					Team:     team.Tricode,
					Home:     home,
					Minutes:  pl.Statistics.Minutes,
					Points:   pl.Statistics.Points,
					Rebounds: pl.Statistics.Rebounds,
					Assists:  pl.Statistics.Assists,
				})
			}
		}
		appendTeam(p.Game.HomeTeam, true)
		appendTeam(p.Game.AwayTeam, false)
		return rows, nil
	}
}

// --- Rosters ---

type rosterPayload struct {
	ResultSets []struct {
		Name    string              `json:"name"`
		Headers []string            `json:"headers"`
		RowSet  [][]json.RawMessage `json:"rowSet"`
	} `json:"resultSets"`
}

// DecodeRoster normalizes a league-wide player index payload.
func DecodeRoster(currentSeasonStart int) func([]byte) ([]model.Player, error) {
	return func(body []byte) ([]model.Player, error) {
		var p rosterPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "roster payload")
		}

		for _, rs := range p.ResultSets {
			if rs.Name != "CommonAllPlayers" {
				continue
			}
			idx := make(map[string]int, len(rs.Headers))
			for i, h := range rs.Headers {
				idx[h] = i
			}
			for _, col := range []string{"PERSON_ID", "DISPLAY_FIRST_LAST", "FROM_YEAR", "TO_YEAR"} {
				if _, ok := idx[col]; !ok {
					return nil, eris.Errorf("roster payload: missing column %s", col)
				}
			}

			var players []model.Player
			for _, row := range rs.RowSet {
				id, err := intCell(row, idx["PERSON_ID"])
				if err != nil {
					return nil, eris.Wrap(err, "roster payload: PERSON_ID")
				}
				name, _ := stringCell(row, idx["DISPLAY_FIRST_LAST"])
				fromYear, err := yearCell(row, idx["FROM_YEAR"])
				if err != nil {
					return nil, eris.Wrap(err, "roster payload: FROM_YEAR")
				}
				toYear, err := yearCell(row, idx["TO_YEAR"])
				if err != nil {
					return nil, eris.Wrap(err, "roster payload: TO_YEAR")
				}
				team := ""
				if i, ok := idx["TEAM_ABBREVIATION"]; ok {
					team, _ = stringCell(row, i)
				}
				players = append(players, model.Player{
					ID:             id,
					Name:           name,
					NormalizedName: model.NormalizeName(name),
					Team:           team,
					Active:         toYear >= currentSeasonStart,
					FromYear:       fromYear,
					ToYear:         toYear,
				})
			}
			if len(players) == 0 {
				return nil, eris.New("roster payload: empty row set")
			}
			return players, nil
		}
		return nil, eris.New("roster payload: no CommonAllPlayers result set")
	}
}

// yearCell tolerates years encoded either as numbers or strings; the
// player index payload has used both.
func yearCell(row []json.RawMessage, i int) (int, error) {
	if n, err := intCell(row, i); err == nil {
		return n, nil
	}
	s, ok := stringCell(row, i)
	if !ok {
		return 0, eris.Errorf("bad year cell at column %d", i)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Wrapf(err, "bad year %q", s)
	}
	return n, nil
}

// --- Odds ---

// espnSummaryPayload carries the pickcenter block of an event summary.
type espnSummaryPayload struct {
	Pickcenter []struct {
		Provider struct {
			Name string `json:"name"`
		} `json:"provider"`
		Spread       *float64 `json:"spread"`
		OverUnder    *float64 `json:"overUnder"`
		HomeTeamOdds struct {
			MoneyLine *int `json:"moneyLine"`
		} `json:"homeTeamOdds"`
		AwayTeamOdds struct {
			MoneyLine *int `json:"moneyLine"`
		} `json:"awayTeamOdds"`
	} `json:"pickcenter"`
}

// DecodeESPNOdds extracts the first usable line from an event summary.
func DecodeESPNOdds(gameID string) func([]byte) (*model.OddsLine, error) {
	return func(body []byte) (*model.OddsLine, error) {
		var p espnSummaryPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "espn odds payload")
		}
		for _, pc := range p.Pickcenter {
			if pc.Spread == nil && pc.OverUnder == nil {
				continue
			}
			return &model.OddsLine{
				GameID:        gameID,
				Source:        "espn",
				Spread:        pc.Spread,
				Total:         pc.OverUnder,
				HomeMoneyline: pc.HomeTeamOdds.MoneyLine,
				AwayMoneyline: pc.AwayTeamOdds.MoneyLine,
			}, nil
		}
		return nil, eris.New("espn odds payload: no usable pickcenter entry")
	}
}

// coversOddsPayload is the closing-line shape of the fallback provider:
// spread and total only, no moneylines.
type coversOddsPayload struct {
	GameID string   `json:"gameId"`
	Spread *float64 `json:"spread"`
	Total  *float64 `json:"total"`
}

// DecodeCoversOdds normalizes a closing-line payload. Closing lines are
// final by definition.
func DecodeCoversOdds(gameID string) func([]byte) (*model.OddsLine, error) {
	return func(body []byte) (*model.OddsLine, error) {
		var p coversOddsPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "covers odds payload")
		}
		if p.Spread == nil && p.Total == nil {
			return nil, eris.New("covers odds payload: no lines")
		}
		return &model.OddsLine{
			GameID:     gameID,
			Source:     "covers",
			Spread:     p.Spread,
			Total:      p.Total,
			LinesFinal: true,
		}, nil
	}
}

// DecodeOdds probes the payload shape: the primary provider wraps lines
// in a pickcenter block, the fallback returns bare closing numbers.
func DecodeOdds(gameID string) func([]byte) (*model.OddsLine, error) {
	return func(body []byte) (*model.OddsLine, error) {
		var probe struct {
			Pickcenter json.RawMessage `json:"pickcenter"`
		}
		if err := json.Unmarshal(body, &probe); err != nil {
			return nil, eris.Wrap(err, "odds payload")
		}
		if len(probe.Pickcenter) > 0 {
			return DecodeESPNOdds(gameID)(body)
		}
		return DecodeCoversOdds(gameID)(body)
	}
}

// --- Injuries ---

type injuryPayload struct {
	ReportDate string `json:"reportDate"`
	Entries    []struct {
		Team   string `json:"team"`
		Player string `json:"player"`
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"entries"`
}

// DecodeInjuries normalizes an injury report payload.
func DecodeInjuries() func([]byte) ([]model.InjuryEntry, error) {
	return func(body []byte) ([]model.InjuryEntry, error) {
		var p injuryPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "injury payload")
		}
		reportDate, err := time.Parse("2006-01-02", p.ReportDate)
		if err != nil {
			return nil, eris.Wrapf(err, "injury payload: report date %q", p.ReportDate)
		}
		if len(p.Entries) == 0 {
			return nil, eris.New("injury payload: no entries")
		}

		entries := make([]model.InjuryEntry, 0, len(p.Entries))
		for _, e := range p.Entries {
			if e.Player == "" || e.Team == "" {
				return nil, eris.New("injury payload: entry missing player or team")
			}
			entries = append(entries, model.InjuryEntry{
				ReportDate: reportDate,
				Team:       e.Team,
				PlayerName: e.Player,
				Status:     e.Status,
				Reason:     e.Reason,
			})
		}
		return entries, nil
	}
}
