package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "scouting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigrateIsIdempotent(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	ag, err := s.GetOrCreateAgeGroup(ctx, "12U")
	require.NoError(t, err)
	again, err := s.GetOrCreateAgeGroup(ctx, "12U")
	require.NoError(t, err)
	require.Equal(t, ag, again)

	team, err := s.GetOrCreateTeam(ctx, "Bandits", ag, "Edison, NJ")
	require.NoError(t, err)
	sameTeam, err := s.GetOrCreateTeam(ctx, "Bandits", ag, "")
	require.NoError(t, err)
	require.Equal(t, team, sameTeam)

	scoped, err := s.GetOrCreateSeason(ctx, 2025, model.Fall, &team)
	require.NoError(t, err)
	unscoped, err := s.GetOrCreateSeason(ctx, 2025, model.Fall, nil)
	require.NoError(t, err)
	require.NotEqual(t, scoped, unscoped)
	unscopedAgain, err := s.GetOrCreateSeason(ctx, 2025, model.Fall, nil)
	require.NoError(t, err)
	require.Equal(t, unscoped, unscopedAgain)

	se, err := s.GetSeason(ctx, scoped)
	require.NoError(t, err)
	require.Equal(t, model.Fall, se.Type)
	require.Equal(t, team, *se.TeamID)

	_, err = s.GetOrCreateTeam(ctx, "Ghosts", 999, "")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetSeason(ctx, 999)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGamesAndLines(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	season, err := s.GetOrCreateSeason(ctx, 2025, model.Spring, nil)
	require.NoError(t, err)

	g1, err := s.CreateOrUpdateGame(ctx, model.Game{SeasonID: season, Date: "4/12", Opponent: "Storm", WinLoss: "W"})
	require.NoError(t, err)
	g2, err := s.CreateOrUpdateGame(ctx, model.Game{SeasonID: season, Date: "4/12", Opponent: "Storm", RunsFor: model.Int(0), RunsAgainst: model.Int(0)})
	require.NoError(t, err)
	require.Equal(t, g1, g2)

	game, err := s.GetGame(ctx, g1)
	require.NoError(t, err)
	require.Equal(t, "W", game.WinLoss)
	require.True(t, game.HasScore())
	require.Equal(t, 0, *game.RunsFor)

	player, err := s.GetOrCreatePlayer(ctx, model.Player{Name: "Ava Smith", JerseyNumber: "7", Bats: "L"})
	require.NoError(t, err)
	samePlayer, err := s.GetOrCreatePlayer(ctx, model.Player{Name: "Ava Smith", JerseyNumber: "7"})
	require.NoError(t, err)
	require.Equal(t, player, samePlayer)

	require.NoError(t, s.UpsertBattingLine(ctx, model.BattingLine{GameID: g1, PlayerID: player, AB: 3, H: 1, BB: 1}))
	require.NoError(t, s.UpsertBattingLine(ctx, model.BattingLine{GameID: g1, PlayerID: player, AB: 4, H: 2}))
	require.NoError(t, s.UpsertPitchingLine(ctx, model.PitchingLine{GameID: g1, PlayerID: player, IP: 7, ER: 2, Pitches: 90, Strikes: 60}))

	bat, err := s.GameBattingStats(ctx, g1)
	require.NoError(t, err)
	require.Len(t, bat, 1)
	require.Equal(t, 4, bat[0].AB)
	require.Equal(t, 0, bat[0].BB)
	require.InDelta(t, 0.5, bat[0].BA, 1e-9)

	pit, err := s.GamePitchingStats(ctx, g1)
	require.NoError(t, err)
	require.Len(t, pit, 1)
	require.InDelta(t, 2.0, pit[0].ERA, 1e-9)

	err = s.UpsertBattingLine(ctx, model.BattingLine{GameID: 999, PlayerID: player})
	require.ErrorIs(t, err, store.ErrNotFound)

	games, err := s.GamesInSeason(ctx, season)
	require.NoError(t, err)
	require.Len(t, games, 1)
}

func TestWithinTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r store.Reconciler) error {
		if _, err := r.GetOrCreateSeason(ctx, 2024, model.Fall, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	seasons, err := s.ListSeasons(ctx)
	require.NoError(t, err)
	require.Empty(t, seasons)

	err = s.WithinTx(ctx, func(ctx context.Context, r store.Reconciler) error {
		_, err := r.GetOrCreateSeason(ctx, 2024, model.Fall, nil)
		return err
	})
	require.NoError(t, err)

	seasons, err = s.ListSeasons(ctx)
	require.NoError(t, err)
	require.Len(t, seasons, 1)
	require.Equal(t, "FALL 2024", seasons[0].Label())
}
