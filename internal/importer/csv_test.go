package importer

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-softball/internal/columns"
	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store/memstore"
)

func TestImportCSV_FilenameFallbackAndRunsSum(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)

	rep := newImporter(t, s).ImportFile(ctx, "game2_sep6_vipers.csv", []byte(battingCSV), Request{SeasonID: seasonID})
	require.False(t, rep.Failed(), rep.Errors)
	require.Equal(t, FileCSV, rep.FileType)
	require.Equal(t, columns.Standard, rep.Dialect)
	require.Equal(t, 2, rep.StatsImported)
	require.Equal(t, 1, rep.TotalGames)
	require.Equal(t, 2, rep.TotalBatting)

	want := map[string]string{
		"game_date_from_filename":   "9/6",
		"opponent_from_filename":    "Vipers",
		"runs_for_from_player_runs": "3",
	}
	if diff := cmp.Diff(want, rep.DetectedFields); diff != "" {
		t.Errorf("detected fields (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"game_time", "win_loss", "runs_for", "runs_against"}, rep.MissingFields)

	g, err := s.GetGame(ctx, *rep.GameID)
	require.NoError(t, err)
	require.Equal(t, "9/6", g.Date)
	require.Equal(t, "Vipers", g.Opponent)
	require.Equal(t, model.Int(3), g.RunsFor)
	require.Nil(t, g.RunsAgainst)
	require.Equal(t, "Imported from CSV (standard): game2_sep6_vipers.csv", g.Notes)
	require.NotNil(t, g.OpponentTeamID)

	stats, err := s.GameBattingStats(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, "Ava Smith", stats[0].PlayerName)
	require.Equal(t, 2, stats[0].H)
	require.InDelta(t, 2.0/3.0, stats[0].BA, 1e-9)

	require.Equal(t, "R", s.Players()[0].Bats)
}

func TestImportCSV_ReimportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)
	im := newImporter(t, s)

	first := im.ImportFile(ctx, "game2_sep6_vipers.csv", []byte(battingCSV), Request{SeasonID: seasonID})
	require.False(t, first.Failed(), first.Errors)
	second := im.ImportFile(ctx, "game2_sep6_vipers.csv", []byte(battingCSV), Request{SeasonID: seasonID})
	require.False(t, second.Failed(), second.Errors)

	require.Equal(t, *first.GameID, *second.GameID)
	c := s.Counts()
	require.Equal(t, 1, c.Games)
	require.Equal(t, 2, c.Batting)
	require.Equal(t, 2, c.Players)
	require.Equal(t, 1, c.Opponents)
}

func TestImportCSV_OverridesWin(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)

	data := []byte(`Date,Opponent,Result,Runs For,Runs Against,Player,AB,R,H
9/1,Storm,L,2,5,Ava Smith,3,1,1
`)
	rep := newImporter(t, s).ImportFile(ctx, "game1_sep1_storm.csv", data, Request{
		SeasonID: seasonID,
		Overrides: Overrides{
			GameDate:    "9/2",
			GameTime:    "10:00",
			WinLoss:     "win",
			RunsFor:     model.Int(7),
			RunsAgainst: model.Int(0),
		},
	})
	require.False(t, rep.Failed(), rep.Errors)
	require.Empty(t, rep.MissingFields)
	require.Equal(t, "9/1", rep.DetectedFields["game_date"])
	require.Equal(t, "2", rep.DetectedFields["runs_for"])

	g, err := s.GetGame(ctx, *rep.GameID)
	require.NoError(t, err)
	require.Equal(t, "9/2", g.Date)
	require.Equal(t, "10:00", g.Time)
	require.Equal(t, "Storm", g.Opponent)
	require.Equal(t, "W", g.WinLoss)
	require.Equal(t, model.Int(7), g.RunsFor)
	require.Equal(t, model.Int(0), g.RunsAgainst)
}

func TestImportCSV_MissingDateWritesNothing(t *testing.T) {
	s := memstore.New()
	seasonID := fallSeason(t, s)
	before := s.Counts()

	rep := newImporter(t, s).ImportFile(context.Background(), "random_export.csv", []byte(battingCSV), Request{SeasonID: seasonID})

	require.True(t, rep.Failed())
	require.ErrorIs(t, rep.Err(), ErrMissingGameDate)
	require.Nil(t, rep.GameID)
	require.Equal(t, before, s.Counts())
}

func TestImportCSV_UnknownDialect(t *testing.T) {
	s := memstore.New()
	seasonID := fallSeason(t, s)

	rep := newImporter(t, s).ImportFile(context.Background(), "game2_sep6_vipers.csv",
		[]byte("foo,bar,baz\n1,2,3\n"), Request{SeasonID: seasonID})

	require.ErrorIs(t, rep.Err(), ErrUnknownDialect)
	require.Equal(t, columns.Unknown, rep.Dialect)
	require.Zero(t, s.Counts().Games)
}

func TestImportCSV_IndexColumnIsStandard(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)

	data := []byte(",Player,AB,R,H\n0,Alice,3,1,2\n1,Bea,4,0,1\n")
	rep := newImporter(t, s).ImportFile(ctx, "g.csv", data, Request{
		SeasonID:  seasonID,
		Overrides: Overrides{GameDate: "9/20", Opponent: "Fury"},
	})
	require.False(t, rep.Failed(), rep.Errors)
	require.Equal(t, FileCSV, rep.FileType)
	require.Equal(t, columns.Standard, rep.Dialect)
	require.Equal(t, 2, rep.StatsImported)

	var names []string
	for _, p := range s.Players() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"Alice", "Bea"}, names)

	stats, err := s.GameBattingStats(ctx, *rep.GameID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	byName := map[string]model.BattingStats{}
	for _, b := range stats {
		byName[b.PlayerName] = b
	}
	require.Equal(t, 3, byName["Alice"].AB)
	require.Equal(t, 2, byName["Alice"].H)
	require.Equal(t, 4, byName["Bea"].AB)
}

func TestImportCSV_FuzzyOpponentAttachesToExistingGame(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)

	existingID, err := s.CreateOrUpdateGame(ctx, model.Game{
		SeasonID:    seasonID,
		Date:        "9/6",
		Opponent:    "NJ Vipers 12U White",
		WinLoss:     "W",
		RunsFor:     model.Int(8),
		RunsAgainst: model.Int(3),
		Notes:       "from workbook",
	})
	require.NoError(t, err)

	rep := newImporter(t, s).ImportFile(ctx, "box.csv", []byte(battingCSV), Request{
		SeasonID:  seasonID,
		Overrides: Overrides{GameDate: "9/6", Opponent: "NJ Vipers"},
	})
	require.False(t, rep.Failed(), rep.Errors)
	require.Equal(t, existingID, *rep.GameID)

	g, err := s.GetGame(ctx, existingID)
	require.NoError(t, err)
	require.Equal(t, "NJ Vipers 12U White", g.Opponent)
	require.Equal(t, model.Int(8), g.RunsFor, "an estimated score never replaces a recorded one")
	require.Equal(t, "from workbook", g.Notes)

	c := s.Counts()
	require.Equal(t, 1, c.Games)
	require.Equal(t, 2, c.Batting)
}

func TestImportCSV_GameChangerExport(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)

	data := []byte(`,,,,,,
Ava Smith,3,1,2,1,0,0
Bea Jones,3,0,0,0,0,2
Totals,6,1,2,1,0,2
`)
	rep := newImporter(t, s).ImportFile(ctx, "box.csv", data, Request{
		SeasonID:  seasonID,
		Overrides: Overrides{GameDate: "9/13", Opponent: "Storm"},
	})
	require.False(t, rep.Failed(), rep.Errors)
	require.Equal(t, FileGameChangerCSV, rep.FileType)
	require.Equal(t, columns.GameChanger, rep.Dialect)
	require.Equal(t, 2, rep.StatsImported)

	g, err := s.GetGame(ctx, *rep.GameID)
	require.NoError(t, err)
	require.Equal(t, model.Int(1), g.RunsFor)
	require.Equal(t, "Imported from CSV (gamechanger): box.csv", g.Notes)

	stats, err := s.GameBattingStats(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats[1].SO)
}

func TestImportCSV_Pitching(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seasonID := fallSeason(t, s)

	data := []byte("\xEF\xBB\xBFPitcher;IP;H;R;ER;BB;SO;Pitches;Strikes\nAva Smith (R);6;5;3;3;2;7;90;60\n")
	rep := newImporter(t, s).ImportFile(ctx, "game3_sep13_storm.csv", data, Request{SeasonID: seasonID})
	require.False(t, rep.Failed(), rep.Errors)
	require.True(t, rep.Pitching)
	require.Equal(t, 1, rep.TotalPitching)
	require.Zero(t, rep.TotalBatting)
	require.NotContains(t, rep.DetectedFields, "runs_for_from_player_runs")

	stats, err := s.GamePitchingStats(ctx, *rep.GameID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, 7, stats[0].K)
	require.InDelta(t, 3.5, stats[0].ERA, 1e-9)

	require.Equal(t, "R", s.Players()[0].Throws)
}

func TestImportCSV_FailureRollsBackWholeFile(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	seasonID := fallSeason(t, mem)
	s := &flakyStore{Store: mem, failAt: 2}

	rep := newImporter(t, s).ImportFile(ctx, "game2_sep6_vipers.csv", []byte(battingCSV), Request{SeasonID: seasonID})
	require.ErrorIs(t, rep.Err(), errInjected)

	c := mem.Counts()
	require.Zero(t, c.Games)
	require.Zero(t, c.Players)
	require.Zero(t, c.Batting)
	require.Zero(t, c.Opponents)
}

func TestPreviewCSV(t *testing.T) {
	p, err := PreviewCSV("game2_sep6_vipers.csv", []byte(battingCSV))
	require.NoError(t, err)
	require.Equal(t, columns.Standard, p.Dialect)
	require.Equal(t, 3, p.RowCount)
	require.True(t, p.HasPlayerStats)
	require.False(t, p.Pitching)
	require.Equal(t, "Player", p.Mapping["player_name"])
	require.Equal(t, "9/6", p.DetectedFields["game_date_from_filename"])

	_, err = PreviewCSV("x.csv", []byte("foo,bar\n1,2\n"))
	require.ErrorIs(t, err, ErrUnknownDialect)
}
