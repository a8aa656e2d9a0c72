package model

// InningsPerGame is the regulation length of a softball game. ERA is scaled
// to it instead of baseball's nine.
const InningsPerGame = 7

// ratio returns 0 for a zero denominator.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// BattingAverage is H / AB.
func (b BattingLine) BattingAverage() float64 {
	return ratio(float64(b.H), float64(b.AB))
}

// OnBasePct is (H + BB + HBP) / (AB + BB + HBP + Sac).
func (b BattingLine) OnBasePct() float64 {
	return ratio(float64(b.H+b.BB+b.HBP), float64(b.AB+b.BB+b.HBP+b.Sac))
}

// ERA is ER * 7 / IP.
func (p PitchingLine) ERA() float64 {
	return ratio(float64(p.ER)*InningsPerGame, p.IP)
}

// WHIP is (BB + H) / IP.
func (p PitchingLine) WHIP() float64 {
	return ratio(float64(p.BB+p.H), p.IP)
}

// StrikePct is Strikes / Pitches.
func (p PitchingLine) StrikePct() float64 {
	return ratio(float64(p.Strikes), float64(p.Pitches))
}

// BattingStats is a batting line together with its derived metrics, the shape
// the read endpoints return.
type BattingStats struct {
	BattingLine
	PlayerName string  `json:"player_name"`
	BA         float64 `json:"ba"`
	OBP        float64 `json:"obp"`
}

// PitchingStats is a pitching line together with its derived metrics.
type PitchingStats struct {
	PitchingLine
	PlayerName string  `json:"player_name"`
	ERA        float64 `json:"era"`
	WHIP       float64 `json:"whip"`
	StrikePct  float64 `json:"strike_pct"`
}

// WithDerived attaches computed metrics to a batting line.
func (b BattingLine) WithDerived(playerName string) BattingStats {
	return BattingStats{BattingLine: b, PlayerName: playerName, BA: b.BattingAverage(), OBP: b.OnBasePct()}
}

// WithDerived attaches computed metrics to a pitching line.
func (p PitchingLine) WithDerived(playerName string) PitchingStats {
	return PitchingStats{
		PitchingLine: p,
		PlayerName:   playerName,
		ERA:          p.ERA(),
		WHIP:         p.WHIP(),
		StrikePct:    p.StrikePct(),
	}
}
