// Package model defines the scouting entities the importers produce. These
// structs are the contract between the parsers and the store: parsers output
// these, stores persist them.
//
// IDs are store-assigned; zero means "not persisted yet". Optional scalars are
// pointers so a nil can be told apart from a real zero (a 0-0 game is a score).
package model

import (
	"fmt"
	"strings"
)

// SeasonType is the half of the calendar year a season belongs to.
type SeasonType string

const (
	Spring SeasonType = "Spring"
	Fall   SeasonType = "Fall"
)

// ParseSeasonType accepts any casing of "spring" or "fall".
func ParseSeasonType(s string) (SeasonType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spring":
		return Spring, nil
	case "fall":
		return Fall, nil
	}
	return "", fmt.Errorf("unknown season type %q", s)
}

// AgeGroup is a youth division such as "12U". Identity = Name.
type AgeGroup struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// AgeSortOrder orders "8U" before "10U". Names without a leading number sort
// first.
func AgeSortOrder(name string) int {
	var n int
	if _, err := fmt.Sscanf(strings.ToUpper(strings.TrimSpace(name)), "%dU", &n); err != nil {
		return 0
	}
	return n
}

// Team is one of our own teams. Identity = (Name, AgeGroupID).
type Team struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	AgeGroupID int64  `json:"age_group_id"`
	Location   string `json:"location,omitempty"`
}

// OpponentTeam is a scouted opponent. Identity = Name, global across age groups.
type OpponentTeam struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Location     string   `json:"location,omitempty"`
	ScoutingURLs []string `json:"scouting_urls,omitempty"`
}

// Season is identified by (Year, Type, TeamID). A nil TeamID is the unscoped
// season used by legacy imports.
type Season struct {
	ID     int64      `json:"id"`
	Year   int        `json:"year"`
	Type   SeasonType `json:"season_type"`
	TeamID *int64     `json:"team_id,omitempty"`
}

// Label renders the season the way the workbooks spell it ("FALL 2025").
func (s Season) Label() string {
	return fmt.Sprintf("%s %d", strings.ToUpper(string(s.Type)), s.Year)
}

// Player is identified by (Name, JerseyNumber). Same name with different
// jerseys are different players.
type Player struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	JerseyNumber string `json:"jersey_number,omitempty"`
	Bats         string `json:"bats,omitempty"`
	Throws       string `json:"throws,omitempty"`
}

// Game belongs to one season. Date is free text ("9/6"), never normalized
// beyond what the source gives us.
type Game struct {
	ID             int64  `json:"id"`
	SeasonID       int64  `json:"season_id"`
	Date           string `json:"date"`
	Time           string `json:"time,omitempty"`
	Opponent       string `json:"opponent"`
	OpponentTeamID *int64 `json:"opponent_team_id,omitempty"`
	WinLoss        string `json:"win_loss,omitempty"`
	RunsFor        *int   `json:"runs_for,omitempty"`
	RunsAgainst    *int   `json:"runs_against,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// HasScore reports whether both sides of the score are known, which switches
// the game identity to include the score.
func (g Game) HasScore() bool {
	return g.RunsFor != nil && g.RunsAgainst != nil
}

// BattingLine holds raw counting stats for one (game, player).
type BattingLine struct {
	GameID   int64 `json:"game_id"`
	PlayerID int64 `json:"player_id"`
	AB       int   `json:"ab"`
	R        int   `json:"r"`
	H        int   `json:"h"`
	RBI      int   `json:"rbi"`
	BB       int   `json:"bb"`
	SO       int   `json:"so"`
	HBP      int   `json:"hbp"`
	Sac      int   `json:"sac"`
}

// PitchingLine holds raw counting stats for one (game, player).
type PitchingLine struct {
	GameID   int64   `json:"game_id"`
	PlayerID int64   `json:"player_id"`
	IP       float64 `json:"ip"`
	H        int     `json:"h"`
	R        int     `json:"r"`
	ER       int     `json:"er"`
	K        int     `json:"k"`
	BB       int     `json:"bb"`
	HBP      int     `json:"hbp"`
	Pitches  int     `json:"pitches"`
	Strikes  int     `json:"strikes"`
}

// Int is a convenience for building optional ints.
func Int(v int) *int { return &v }

// ID64 is a convenience for building optional ids.
func ID64(v int64) *int64 { return &v }
