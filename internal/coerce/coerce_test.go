package coerce

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int
	}{
		{name: "plain", in: "3", want: 3},
		{name: "padded", in: "  12 ", want: 12},
		{name: "decimal truncates", in: "2.9", want: 2},
		{name: "thousands", in: "1,204", want: 1204},
		{name: "blank", in: "", want: 0},
		{name: "dash", in: "-", want: 0},
		{name: "text", in: "DNP", want: 0},
		{name: "float", in: 4.0, want: 4},
		{name: "nil", in: nil, want: 0},
		{name: "unsupported type", in: []string{"1"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Int(tt.in))
		})
	}
}

func TestFloatAndOptionalInt(t *testing.T) {
	require.InDelta(t, 4.2, Float("4.2"), 1e-9)
	require.Equal(t, 0.0, Float("n/a"))

	require.Nil(t, OptionalInt(""))
	require.Nil(t, OptionalInt("x"))
	v := OptionalInt("0")
	require.NotNil(t, v)
	require.Equal(t, 0, *v)
}

func TestString(t *testing.T) {
	require.Equal(t, "7", String(7.0))
	require.Equal(t, "6.1", String(6.1))
	require.Equal(t, "abc", String("  abc "))
	require.Equal(t, "", String(nil))
}

func TestJersey(t *testing.T) {
	require.Equal(t, "7", Jersey("#7"))
	require.Equal(t, "7", Jersey(" 7 "))
	require.Equal(t, "7", Jersey("7.0"))
	require.Equal(t, "00", Jersey("00"))
	require.Equal(t, "", Jersey(""))
	require.Equal(t, "7", Jersey(7.0))
}

func TestSplitHandedness(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantHand string
	}{
		{in: "Ava Smith (R)", wantName: "Ava Smith", wantHand: "R"},
		{in: "Ava Smith(l)", wantName: "Ava Smith", wantHand: "L"},
		{in: "  Mia   Jones ( S ) ", wantName: "Mia Jones", wantHand: "S"},
		{in: "Kate (Katie) Lee", wantName: "Kate (Katie) Lee", wantHand: ""},
		{in: "Zoe Park (RHP)", wantName: "Zoe Park (RHP)", wantHand: ""},
		{in: "", wantName: "", wantHand: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, hand := SplitHandedness(tt.in)
			require.Equal(t, tt.wantName, name)
			require.Equal(t, tt.wantHand, hand)
			require.Equal(t, tt.wantName, PlayerName(tt.in))
		})
	}
}

func TestWinLoss(t *testing.T) {
	require.Equal(t, "W", WinLoss("win"))
	require.Equal(t, "L", WinLoss(" L "))
	require.Equal(t, "T", WinLoss("Tie"))
	require.Equal(t, "", WinLoss(""))
	require.Equal(t, "Forfeit", WinLoss("Forfeit"))
}

func TestIsHeaderRow(t *testing.T) {
	require.True(t, IsHeaderRow("TOTALS", "12"))
	require.True(t, IsHeaderRow("Player", ""))
	require.True(t, IsHeaderRow("", "3"))
	require.True(t, IsHeaderRow("Ava Smith", "#"))
	require.True(t, IsHeaderRow("Ava Smith", "No."))
	require.False(t, IsHeaderRow("Ava Smith", "12"))
	require.False(t, IsHeaderRow("Ava Smith", ""))
}
