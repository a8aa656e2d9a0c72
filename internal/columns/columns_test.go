package columns

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDetect_Standard(t *testing.T) {
	m := Detect([]string{"Player", "AB", "R", "H", "RBI", "BB", "K", "Date", "Opponent", "Result", "RF", "RA"})
	require.Equal(t, Standard, m.Dialect)

	want := map[Field]string{
		PlayerName:  "Player",
		AB:          "AB",
		R:           "R",
		H:           "H",
		RBI:         "RBI",
		BB:          "BB",
		SO:          "K",
		GameDate:    "Date",
		Opponent:    "Opponent",
		WinLoss:     "Result",
		RunsFor:     "RF",
		RunsAgainst: "RA",
	}
	if diff := cmp.Diff(want, m.Fields); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, SO, m.Reverse["K"])
	require.False(t, m.IsPitching())
}

func TestDetect_FirstMatchWins(t *testing.T) {
	m := Detect([]string{"Name", "Player", "SO", "K"})
	require.Equal(t, "Name", m.Fields[PlayerName])
	require.Equal(t, "SO", m.Fields[SO])
	_, mapped := m.Reverse["K"]
	require.False(t, mapped)
}

func TestDetect_ExactTokensOnly(t *testing.T) {
	m := Detect([]string{"Runs Scored Total", "Player Names", "hits!"})
	require.Equal(t, Unknown, m.Dialect)
	require.Empty(t, m.Fields)
}

func TestDetect_CaseAndWhitespaceInsensitive(t *testing.T) {
	m := Detect([]string{"  PLAYER NAME ", "At Bats"})
	require.Equal(t, Standard, m.Dialect)
	require.Equal(t, "  PLAYER NAME ", m.Fields[PlayerName])
	require.Equal(t, "At Bats", m.Fields[AB])
}

func TestDetect_GameChangerBeatsStandard(t *testing.T) {
	m := Detect([]string{"Player", "AB", "ag-cell 2", "H"})
	require.Equal(t, GameChanger, m.Dialect)
	require.Equal(t, "BoxScoreComponents__playerName", m.Fields[PlayerName])
	require.Equal(t, "ag-cell", m.Fields[AB])
	require.False(t, m.Has(HBP))
}

func TestDetect_AllBlankHeaderIsGameChanger(t *testing.T) {
	m := Detect(HeaderKeys([]string{"", "", "", "", "", "", ""}))
	require.Equal(t, GameChanger, m.Dialect)
	require.Equal(t, "__EMPTY", m.Fields[PlayerName])
	require.Equal(t, "__EMPTY_1", m.Fields[AB])
	require.Equal(t, "__EMPTY_2", m.Fields[R])
	require.Equal(t, "__EMPTY_3", m.Fields[H])
	require.Equal(t, "__EMPTY_4", m.Fields[RBI])
	require.Equal(t, "__EMPTY_5", m.Fields[BB])
	require.Equal(t, "__EMPTY_6", m.Fields[SO])
	require.False(t, m.Has(HBP))
}

func TestDetect_IndexColumnStaysStandard(t *testing.T) {
	m := Detect(HeaderKeys([]string{"", "Player", "AB", "R", "H"}))
	require.Equal(t, Standard, m.Dialect)
	require.Equal(t, "Player", m.Fields[PlayerName])
	require.Equal(t, "AB", m.Fields[AB])
	_, mapped := m.Reverse["__EMPTY"]
	require.False(t, mapped)
	require.False(t, IsGameChangerKey("__EMPTY"))
}

func TestDetect_GameChangerScrapedHeader(t *testing.T) {
	m := Detect([]string{"BoxScoreComponents__playerName", "ag-cell", "ag-cell 2", "ag-cell 3", "ag-cell 4", "ag-cell 5", "ag-cell 6"})
	require.Equal(t, GameChanger, m.Dialect)
	require.Equal(t, "BoxScoreComponents__playerName", m.Fields[PlayerName])
	require.Equal(t, "ag-cell", m.Fields[AB])
	require.Equal(t, "ag-cell 6", m.Fields[SO])
	require.True(t, IsGameChangerKey("ag-cell 3"))
	require.False(t, IsGameChangerKey("ag-cell 7"))
}

func TestDetect_Pitching(t *testing.T) {
	m := Detect([]string{"Pitcher", "IP", "H", "R", "ER", "BB", "K", "Pitches", "Strikes"})
	require.Equal(t, Standard, m.Dialect)
	require.True(t, m.IsPitching())
	require.Equal(t, "Pitcher", m.Fields[PlayerName])
}

func TestHeaderKeys(t *testing.T) {
	got := HeaderKeys([]string{"", " AB ", "", "H", "H", "", " "})
	require.Equal(t, []string{"__EMPTY", "AB", "__EMPTY_1", "H", "H_1"}, got)

	got = HeaderKeys([]string{"", "", ""})
	require.Equal(t, []string{"__EMPTY", "__EMPTY_1", "__EMPTY_2"}, got)

	require.Equal(t, Standard, Detect(HeaderKeys([]string{"Player", "AB", "H", ""})).Dialect)
}

func TestFindHeaderRow(t *testing.T) {
	t.Run("title row above standard header", func(t *testing.T) {
		rows := [][]string{
			{"Game 2 vs Vipers", "", ""},
			{"Player", "AB", "H"},
			{"Ava", "3", "1"},
		}
		require.Equal(t, 1, FindHeaderRow(rows, 5))
	})

	t.Run("gamechanger header", func(t *testing.T) {
		rows := [][]string{
			{"", "", "", ""},
			{"", "", "", ""},
		}
		require.Equal(t, 0, FindHeaderRow(rows, 5))

		rows = [][]string{
			{},
			{"", "", ""},
			{"Ava", "3", "1"},
		}
		require.Equal(t, 0, FindHeaderRow(rows, 5))
	})

	t.Run("banner row is not a header", func(t *testing.T) {
		rows := [][]string{
			{"Season Stats", "", ""},
			{"Ava", "3", "1"},
		}
		require.Equal(t, 0, FindHeaderRow(rows, 5))
	})

	t.Run("nothing recognizable", func(t *testing.T) {
		rows := [][]string{{"foo", "bar"}, {"1", "2"}}
		require.Equal(t, 0, FindHeaderRow(rows, 5))
	})
}
