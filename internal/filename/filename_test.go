package filename

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		file         string
		wantMatch    bool
		wantNum      int
		wantDate     string
		wantOpponent string
	}{
		{name: "conventional", file: "game2_sep6_vipers.csv", wantMatch: true, wantNum: 2, wantDate: "9/6", wantOpponent: "Vipers"},
		{name: "multi word opponent", file: "game12_Oct14_nj_lady_hawks.csv", wantMatch: true, wantNum: 12, wantDate: "10/14", wantOpponent: "Nj Lady Hawks"},
		{name: "long month", file: "game1_september21_storm.csv", wantMatch: true, wantNum: 1, wantDate: "9/21", wantOpponent: "Storm"},
		{name: "directory ignored", file: "/tmp/uploads/game3_may4_fury.CSV", wantMatch: true, wantNum: 3, wantDate: "5/4", wantOpponent: "Fury"},
		{name: "hyphenated opponent", file: "game1_sep6_nj-vipers.csv", wantMatch: true, wantNum: 1, wantDate: "9/6", wantOpponent: "Nj-Vipers"},
		{name: "punctuated opponent", file: "game3_oct12_st._marys.csv", wantMatch: true, wantNum: 3, wantDate: "10/12", wantOpponent: "St. Marys"},
		{name: "no convention", file: "random_export.csv"},
		{name: "blank opponent", file: "game2_sep6__.csv"},
		{name: "two letter month", file: "game2_se6_vipers.csv"},
		{name: "not a month", file: "game2_foo6_vipers.csv"},
		{name: "missing opponent", file: "game2_sep6.csv"},
		{name: "three digit day", file: "game2_sep123_vipers.csv"},
		{name: "day zero", file: "game2_sep0_vipers.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.file)
			require.Equal(t, tt.wantMatch, got.Matched())
			if !tt.wantMatch {
				require.Equal(t, Info{}, got)
				return
			}
			require.Equal(t, tt.wantNum, *got.GameNumber)
			require.Equal(t, tt.wantDate, got.GameDate)
			require.Equal(t, tt.wantOpponent, got.Opponent)
		})
	}
}

func TestStem(t *testing.T) {
	require.Equal(t, "random_export", Stem("/a/b/random_export.csv"))
	require.Equal(t, "noext", Stem("noext"))
}
