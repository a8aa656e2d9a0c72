package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBattingLine_ZeroDenominators(t *testing.T) {
	var b BattingLine
	require.Equal(t, 0.0, b.BattingAverage())
	require.Equal(t, 0.0, b.OnBasePct())
}

func TestBattingLine_Derived(t *testing.T) {
	b := BattingLine{AB: 4, H: 1, BB: 1, HBP: 0, Sac: 0}
	require.InDelta(t, 0.25, b.BattingAverage(), 1e-9)
	require.InDelta(t, 0.4, b.OnBasePct(), 1e-9)
}

func TestPitchingLine_ZeroDenominators(t *testing.T) {
	p := PitchingLine{ER: 3, H: 2, BB: 1, Strikes: 10}
	require.Equal(t, 0.0, p.ERA())
	require.Equal(t, 0.0, p.WHIP())
	require.Equal(t, 0.0, p.StrikePct())
}

func TestPitchingLine_ERAUsesSevenInnings(t *testing.T) {
	p := PitchingLine{ER: 3, IP: 6.0}
	require.InDelta(t, 3.5, p.ERA(), 1e-9)
}

func TestPitchingLine_WithDerived(t *testing.T) {
	p := PitchingLine{IP: 4, H: 3, BB: 1, Pitches: 80, Strikes: 52}
	s := p.WithDerived("Ava Smith")
	require.Equal(t, "Ava Smith", s.PlayerName)
	require.InDelta(t, 1.0, s.WHIP, 1e-9)
	require.InDelta(t, 0.65, s.StrikePct, 1e-9)
}

func TestParseSeasonType(t *testing.T) {
	st, err := ParseSeasonType(" FALL ")
	require.NoError(t, err)
	require.Equal(t, Fall, st)

	st, err = ParseSeasonType("spring")
	require.NoError(t, err)
	require.Equal(t, Spring, st)

	_, err = ParseSeasonType("summer")
	require.Error(t, err)
}

func TestSeason_Label(t *testing.T) {
	require.Equal(t, "FALL 2025", Season{Year: 2025, Type: Fall}.Label())
}
