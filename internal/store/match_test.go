package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-softball/internal/model"
)

func TestMatchOpponent(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"NJ Vipers", "NJ Vipers 12U White", true},
		{"nj vipers 12u white", "NJ  Vipers", true},
		{"NJVipers", "NJ Vipers", true},
		{"Vipers", "Storm", false},
		{"", "Storm", false},
		{"Storm", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			require.Equal(t, tt.want, MatchOpponent(tt.a, tt.b))
		})
	}
}

func TestFindFuzzyGame(t *testing.T) {
	games := []model.Game{
		{ID: 1, Date: "9/6", Opponent: "Storm"},
		{ID: 2, Date: "9/6", Opponent: "NJ Vipers 12U White"},
		{ID: 3, Date: "9/7", Opponent: "NJ Vipers"},
	}
	g, ok := FindFuzzyGame(games, " 9/6 ", "NJ Vipers")
	require.True(t, ok)
	require.Equal(t, int64(2), g.ID)

	_, ok = FindFuzzyGame(games, "9/8", "NJ Vipers")
	require.False(t, ok)
}

func TestFindGame(t *testing.T) {
	unscored := model.Game{ID: 1, SeasonID: 1, Date: "9/6", Opponent: "Storm"}
	scored := model.Game{ID: 2, SeasonID: 1, Date: "9/6", Opponent: "Storm", RunsFor: model.Int(5), RunsAgainst: model.Int(3)}
	other := model.Game{ID: 3, SeasonID: 2, Date: "9/6", Opponent: "Storm"}

	t.Run("no score takes first same-key game", func(t *testing.T) {
		g, ok := FindGame([]model.Game{other, unscored, scored}, model.Game{SeasonID: 1, Date: "9/6", Opponent: "Storm"})
		require.True(t, ok)
		require.Equal(t, int64(1), g.ID)
	})

	t.Run("exact score wins over unscored", func(t *testing.T) {
		g, ok := FindGame([]model.Game{unscored, scored}, model.Game{SeasonID: 1, Date: "9/6", Opponent: "Storm", RunsFor: model.Int(5), RunsAgainst: model.Int(3)})
		require.True(t, ok)
		require.Equal(t, int64(2), g.ID)
	})

	t.Run("score falls back to unscored game", func(t *testing.T) {
		g, ok := FindGame([]model.Game{scored, unscored}, model.Game{SeasonID: 1, Date: "9/6", Opponent: "Storm", RunsFor: model.Int(1), RunsAgainst: model.Int(0)})
		require.True(t, ok)
		require.Equal(t, int64(1), g.ID)
	})

	t.Run("different score is a different game", func(t *testing.T) {
		_, ok := FindGame([]model.Game{scored}, model.Game{SeasonID: 1, Date: "9/6", Opponent: "Storm", RunsFor: model.Int(1), RunsAgainst: model.Int(0)})
		require.False(t, ok)
	})
}

func TestMergeGame(t *testing.T) {
	existing := model.Game{ID: 4, Date: "9/6", Opponent: "Storm", WinLoss: "W", RunsFor: model.Int(5), Notes: "rain delay"}
	merged := MergeGame(existing, model.Game{RunsAgainst: model.Int(2), Time: "10:00"})
	require.Equal(t, "W", merged.WinLoss)
	require.Equal(t, 5, *merged.RunsFor)
	require.Equal(t, 2, *merged.RunsAgainst)
	require.Equal(t, "10:00", merged.Time)
	require.Equal(t, "rain delay", merged.Notes)

	merged = MergeGame(existing, model.Game{WinLoss: "L", RunsFor: model.Int(1)})
	require.Equal(t, "L", merged.WinLoss)
	require.Equal(t, 1, *merged.RunsFor)
}
