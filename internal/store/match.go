package store

import (
	"strings"

	"github.com/albapepper/scoracle-softball/internal/model"
)

// --------------------------------------------------------------------------
// Game identity
// --------------------------------------------------------------------------

// FindGame picks the stored game that g's identity key resolves to among the
// candidates sharing its (season, date, opponent). With a known score an
// exact score match wins, then a candidate with no score recorded yet (the
// same game seen first without its score). Without a score the first
// candidate wins.
func FindGame(candidates []model.Game, g model.Game) (model.Game, bool) {
	var sameKey []model.Game
	for _, c := range candidates {
		if c.SeasonID == g.SeasonID && c.Date == g.Date && c.Opponent == g.Opponent {
			sameKey = append(sameKey, c)
		}
	}
	if len(sameKey) == 0 {
		return model.Game{}, false
	}
	if !g.HasScore() {
		return sameKey[0], true
	}
	for _, c := range sameKey {
		if c.HasScore() && *c.RunsFor == *g.RunsFor && *c.RunsAgainst == *g.RunsAgainst {
			return c, true
		}
	}
	for _, c := range sameKey {
		if c.RunsFor == nil && c.RunsAgainst == nil {
			return c, true
		}
	}
	return model.Game{}, false
}

// MergeGame overlays the non-empty fields of incoming onto existing. A
// stored value is never replaced by a missing one.
func MergeGame(existing, incoming model.Game) model.Game {
	out := existing
	if incoming.Time != "" {
		out.Time = incoming.Time
	}
	if incoming.OpponentTeamID != nil {
		out.OpponentTeamID = incoming.OpponentTeamID
	}
	if incoming.WinLoss != "" {
		out.WinLoss = incoming.WinLoss
	}
	if incoming.RunsFor != nil {
		out.RunsFor = incoming.RunsFor
	}
	if incoming.RunsAgainst != nil {
		out.RunsAgainst = incoming.RunsAgainst
	}
	if incoming.Notes != "" {
		out.Notes = incoming.Notes
	}
	return out
}

// MergePlayer overlays known handedness onto a stored player.
func MergePlayer(existing, incoming model.Player) model.Player {
	out := existing
	if incoming.Bats != "" {
		out.Bats = incoming.Bats
	}
	if incoming.Throws != "" {
		out.Throws = incoming.Throws
	}
	return out
}

// --------------------------------------------------------------------------
// Fuzzy opponent matching
// --------------------------------------------------------------------------

// MatchOpponent reports whether two opponent labels plausibly name the same
// team: after lower-casing and dropping all whitespace, either contains the
// other. "NJ Vipers" matches "NJ Vipers 12U White".
//
// Short labels can false-positive ("Stars" matches "NJ All-Stars"). Known
// risk; tightening it would stop abbreviated names of one opponent matching.
func MatchOpponent(a, b string) bool {
	na, nb := squash(a), squash(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func squash(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// FindFuzzyGame returns the first game on the same date whose opponent
// matches loosely.
func FindFuzzyGame(games []model.Game, date, opponent string) (model.Game, bool) {
	date = strings.TrimSpace(date)
	for _, g := range games {
		if strings.TrimSpace(g.Date) == date && MatchOpponent(g.Opponent, opponent) {
			return g, true
		}
	}
	return model.Game{}, false
}
