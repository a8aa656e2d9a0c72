// Package columns classifies a tabular header row into a dialect and maps the
// semantic stat and game fields onto the source column keys.
//
// Matching is exact on the trimmed, lower-cased header, with no substring or
// fuzzy matching: "Runs Against" must never be read as runs.
package columns

import (
	"fmt"
	"strings"
)

// Dialect is a recognized column-naming convention.
type Dialect string

const (
	GameChanger Dialect = "gamechanger"
	Standard    Dialect = "standard"
	Unknown     Dialect = "unknown"
)

// Field is a semantic column role.
type Field string

const (
	PlayerName Field = "player_name"

	AB  Field = "ab"
	R   Field = "r"
	H   Field = "h"
	RBI Field = "rbi"
	BB  Field = "bb"
	SO  Field = "so"
	HBP Field = "hbp"
	Sac Field = "sac"

	IP      Field = "ip"
	ER      Field = "er"
	Pitches Field = "pitches"
	Strikes Field = "strikes"

	GameDate    Field = "game_date"
	GameTime    Field = "game_time"
	Opponent    Field = "opponent"
	WinLoss     Field = "win_loss"
	RunsFor     Field = "runs_for"
	RunsAgainst Field = "runs_against"
)

// GameFields are the per-game metadata fields, in report order.
var GameFields = []Field{GameDate, GameTime, Opponent, WinLoss, RunsFor, RunsAgainst}

// --------------------------------------------------------------------------
// GameChanger dialect
// --------------------------------------------------------------------------

// The GameChanger export comes in two shapes. Scraped straight from the box
// score page the header carries the grid's CSS names
// ("BoxScoreComponents__playerName", "ag-cell", "ag-cell 2", ...); any one of
// them marks the file. Saved from the web grid every header cell is blank,
// and HeaderKeys keys them "__EMPTY", "__EMPTY_1", ... A header with labels
// and some blank cells (a pandas index column) is not GameChanger.
const emptyKeyPrefix = "__EMPTY"

var gameChangerOrder = []Field{PlayerName, AB, R, H, RBI, BB, SO}

var scrapedKeys = []string{"BoxScoreComponents__playerName", "ag-cell", "ag-cell 2", "ag-cell 3", "ag-cell 4", "ag-cell 5", "ag-cell 6"}

var scrapedKeySet = func() map[string]bool {
	m := make(map[string]bool, len(scrapedKeys))
	for _, k := range scrapedKeys {
		m[k] = true
	}
	return m
}()

func emptyKey(n int) string {
	if n == 0 {
		return emptyKeyPrefix
	}
	return fmt.Sprintf("%s_%d", emptyKeyPrefix, n)
}

// IsGameChangerKey reports whether a header is one of the scraped sentinel
// keys. Generated blank keys only count as a whole row; see Detect.
func IsGameChangerKey(header string) bool {
	return scrapedKeySet[header]
}

// allBlankKeys reports whether headers is exactly the generated key
// sequence of an all-blank header row.
func allBlankKeys(headers []string) bool {
	if len(headers) == 0 {
		return false
	}
	for i, h := range headers {
		if h != emptyKey(i) {
			return false
		}
	}
	return true
}

func positional(keys []string) Mapping {
	m := newMapping(GameChanger)
	for i, f := range gameChangerOrder {
		if i < len(keys) {
			m.set(f, keys[i])
		}
	}
	return m
}

// --------------------------------------------------------------------------
// Standard dialect synonyms
// --------------------------------------------------------------------------

var synonyms = map[Field][]string{
	PlayerName: {"player", "player name", "player_name", "playername", "name", "batter", "hitter", "pitcher"},

	AB:  {"ab", "at bats", "at_bats", "atbats", "at-bats"},
	R:   {"r", "runs", "run"},
	H:   {"h", "hits", "hit"},
	RBI: {"rbi", "rbis", "runs batted in"},
	BB:  {"bb", "walks", "walk", "base on balls"},
	SO:  {"so", "k", "strikeouts", "strikeout", "strike outs", "ks"},
	HBP: {"hbp", "hit by pitch", "hitbypitch"},
	Sac: {"sac", "sacrifices", "sacrifice", "sh", "sf"},

	IP:      {"ip", "innings pitched", "innings"},
	ER:      {"er", "earned runs"},
	Pitches: {"pitches", "pc", "#p", "np", "pitch count"},
	Strikes: {"strikes", "str", "st", "strikes thrown"},

	GameDate:    {"date", "game date", "game_date", "gamedate"},
	GameTime:    {"time", "game time", "game_time", "gametime", "start_time"},
	Opponent:    {"opponent", "opp", "vs", "versus", "opposing_team"},
	WinLoss:     {"result", "w/l", "wl", "win_loss", "win/loss", "outcome"},
	RunsFor:     {"runs_for", "runs for", "runsfor", "rf", "team runs", "score for", "score", "our_score", "us"},
	RunsAgainst: {"runs_against", "runs against", "runsagainst", "ra", "opp runs", "score against", "opp_score", "their_score", "them"},
}

// fieldOrder fixes the iteration order so mapping is deterministic.
var fieldOrder = []Field{
	PlayerName, AB, R, H, RBI, BB, SO, HBP, Sac,
	IP, ER, Pitches, Strikes,
	GameDate, GameTime, Opponent, WinLoss, RunsFor, RunsAgainst,
}

var synonymIndex = func() map[string]Field {
	m := make(map[string]Field)
	for _, f := range fieldOrder {
		for _, s := range synonyms[f] {
			m[s] = f
		}
	}
	return m
}()

// --------------------------------------------------------------------------
// Mapping
// --------------------------------------------------------------------------

// Mapping is the detection result: a dialect and a partial function from
// field to source column key. Reverse is the inverse.
type Mapping struct {
	Dialect Dialect
	Fields  map[Field]string
	Reverse map[string]Field
}

// Has reports whether a field was mapped.
func (m Mapping) Has(f Field) bool {
	_, ok := m.Fields[f]
	return ok
}

// Column returns the source key for a field.
func (m Mapping) Column(f Field) (string, bool) {
	k, ok := m.Fields[f]
	return k, ok
}

// IsPitching reports whether the table is a pitching table: it has an
// innings column and no at-bats column.
func (m Mapping) IsPitching() bool {
	return m.Has(IP) && !m.Has(AB)
}

func (m *Mapping) set(f Field, key string) {
	if _, taken := m.Fields[f]; taken {
		return
	}
	m.Fields[f] = key
	m.Reverse[key] = f
}

func newMapping(d Dialect) Mapping {
	return Mapping{Dialect: d, Fields: map[Field]string{}, Reverse: map[string]Field{}}
}

// Detect classifies a header row. Any scraped GameChanger key wins over
// standard synonyms, as does a header row that was entirely blank. For the
// standard dialect the first header that matches a field claims it.
func Detect(headers []string) Mapping {
	for _, h := range headers {
		if IsGameChangerKey(h) {
			return positional(scrapedKeys)
		}
	}
	if allBlankKeys(headers) {
		keys := make([]string, len(gameChangerOrder))
		for i := range keys {
			keys[i] = emptyKey(i)
		}
		return positional(keys)
	}

	m := newMapping(Standard)
	for _, h := range headers {
		if f, ok := synonymIndex[normalize(h)]; ok {
			m.set(f, h)
		}
	}
	if len(m.Fields) == 0 {
		return newMapping(Unknown)
	}
	return m
}

func normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// HeaderKeys turns a raw header row into column keys. Non-blank cells are
// trimmed; blank cells get generated ids in order of appearance. A repeated
// label gets a numeric suffix so every key is unique. Blank cells trailing
// the last label are dropped, so a stray trailing delimiter on a labeled
// header does not look like a GameChanger export.
func HeaderKeys(row []string) []string {
	if !isBlankRow(row) {
		last := len(row) - 1
		for last >= 0 && strings.TrimSpace(row[last]) == "" {
			last--
		}
		row = row[:last+1]
	}
	keys := make([]string, len(row))
	seen := make(map[string]int, len(row))
	blanks := 0
	for i, cell := range row {
		k := strings.TrimSpace(cell)
		if k == "" {
			k = emptyKey(blanks)
			blanks++
		}
		if n, dup := seen[k]; dup {
			seen[k] = n + 1
			k = fmt.Sprintf("%s_%d", k, n+1)
		} else {
			seen[k] = 0
		}
		keys[i] = k
	}
	return keys
}

// FindHeaderRow picks the header among the leading maxScan rows. A row whose
// labels detect as the standard dialect wins; otherwise the first non-blank
// row that detects at all (a GameChanger header); otherwise row 0.
func FindHeaderRow(rows [][]string, maxScan int) int {
	if maxScan > len(rows) {
		maxScan = len(rows)
	}
	fallback := -1
	for i := 0; i < maxScan; i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		switch Detect(HeaderKeys(rows[i])).Dialect {
		case Standard:
			return i
		case GameChanger:
			if fallback < 0 {
				fallback = i
			}
		}
	}
	if fallback >= 0 {
		return fallback
	}
	return 0
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
