// Package sqlitestore is the single-file store.Store, on the cgo-free
// modernc.org/sqlite driver. It is the default backend for local imports.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists to one SQLite file.
type Store struct {
	conn
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:"
	} else if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; also keeps an in-memory database alive on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	s := &Store{conn: conn{q: db}, db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a single transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r store.Reconciler) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &conn{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

type conn struct {
	q querier
}

// --------------------------------------------------------------------------
// Reconciler
// --------------------------------------------------------------------------

func (c *conn) GetOrCreateAgeGroup(ctx context.Context, name string) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `
		INSERT INTO `+config.AgeGroupsTable+` (name, sort_order) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`,
		name, model.AgeSortOrder(name),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("age group %q: %w", name, mapErr(err))
	}
	return id, nil
}

func (c *conn) GetOrCreateTeam(ctx context.Context, name string, ageGroupID int64, location string) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `
		INSERT INTO `+config.TeamsTable+` (name, age_group_id, location) VALUES (?, ?, ?)
		ON CONFLICT (name, age_group_id) DO UPDATE SET
			location = COALESCE(excluded.location, location)
		RETURNING id`,
		name, ageGroupID, nilEmpty(location),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("team %q: %w", name, mapErr(err))
	}
	return id, nil
}

// GetOrCreateSeason looks up before inserting: the identity index is on an
// expression, which SQLite's upsert target cannot name.
func (c *conn) GetOrCreateSeason(ctx context.Context, year int, seasonType model.SeasonType, teamID *int64) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `
		SELECT id FROM `+config.SeasonsTable+`
		WHERE year = ? AND season_type = ? AND team_id IS ?`,
		year, string(seasonType), teamID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("season %d %s: %w", year, seasonType, err)
	}

	err = c.q.QueryRowContext(ctx, `
		INSERT INTO `+config.SeasonsTable+` (year, season_type, team_id) VALUES (?, ?, ?)
		RETURNING id`,
		year, string(seasonType), teamID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("season %d %s: %w", year, seasonType, mapErr(err))
	}
	return id, nil
}

func (c *conn) GetOrCreatePlayer(ctx context.Context, p model.Player) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `
		INSERT INTO `+config.PlayersTable+` (name, jersey_number, bats, throws) VALUES (?, ?, ?, ?)
		ON CONFLICT (name, jersey_number) DO UPDATE SET
			bats = COALESCE(excluded.bats, bats),
			throws = COALESCE(excluded.throws, throws)
		RETURNING id`,
		p.Name, p.JerseyNumber, nilEmpty(p.Bats), nilEmpty(p.Throws),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("player %q #%s: %w", p.Name, p.JerseyNumber, mapErr(err))
	}
	return id, nil
}

func (c *conn) GetOrCreateOpponentTeam(ctx context.Context, name string) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, `
		INSERT INTO `+config.OpponentTeamsTable+` (name) VALUES (?)
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("opponent team %q: %w", name, mapErr(err))
	}
	return id, nil
}

func (c *conn) CreateOrUpdateGame(ctx context.Context, g model.Game) (int64, error) {
	if g.ID != 0 {
		existing, err := c.GetGame(ctx, g.ID)
		if err != nil {
			return 0, err
		}
		return g.ID, c.updateGame(ctx, store.MergeGame(existing, g))
	}

	candidates, err := c.queryGames(ctx, `
		WHERE season_id = ? AND game_date = ? AND opponent = ?
		ORDER BY id`, g.SeasonID, g.Date, g.Opponent)
	if err != nil {
		return 0, err
	}
	if existing, ok := store.FindGame(candidates, g); ok {
		return existing.ID, c.updateGame(ctx, store.MergeGame(existing, g))
	}

	var id int64
	err = c.q.QueryRowContext(ctx, `
		INSERT INTO `+config.GamesTable+` (
			season_id, game_date, game_time, opponent, opponent_team_id,
			win_loss, runs_for, runs_against, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		g.SeasonID, g.Date, nilEmpty(g.Time), g.Opponent, g.OpponentTeamID,
		nilEmpty(g.WinLoss), g.RunsFor, g.RunsAgainst, nilEmpty(g.Notes),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("game %s vs %s: %w", g.Date, g.Opponent, mapErr(err))
	}
	return id, nil
}

func (c *conn) updateGame(ctx context.Context, g model.Game) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE `+config.GamesTable+` SET
			game_time = ?, opponent_team_id = ?, win_loss = ?,
			runs_for = ?, runs_against = ?, notes = ?
		WHERE id = ?`,
		nilEmpty(g.Time), g.OpponentTeamID, nilEmpty(g.WinLoss),
		g.RunsFor, g.RunsAgainst, nilEmpty(g.Notes), g.ID,
	)
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID, mapErr(err))
	}
	return nil
}

func (c *conn) UpsertBattingLine(ctx context.Context, b model.BattingLine) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO `+config.BattingTable+` (
			game_id, player_id, ab, r, h, rbi, bb, so, hbp, sac
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			ab = excluded.ab, r = excluded.r, h = excluded.h, rbi = excluded.rbi,
			bb = excluded.bb, so = excluded.so, hbp = excluded.hbp, sac = excluded.sac`,
		b.GameID, b.PlayerID, b.AB, b.R, b.H, b.RBI, b.BB, b.SO, b.HBP, b.Sac,
	)
	if err != nil {
		return fmt.Errorf("batting line game %d player %d: %w", b.GameID, b.PlayerID, mapErr(err))
	}
	return nil
}

func (c *conn) UpsertPitchingLine(ctx context.Context, p model.PitchingLine) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO `+config.PitchingTable+` (
			game_id, player_id, ip, h, r, er, k, bb, hbp, pitches, strikes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			ip = excluded.ip, h = excluded.h, r = excluded.r, er = excluded.er,
			k = excluded.k, bb = excluded.bb, hbp = excluded.hbp,
			pitches = excluded.pitches, strikes = excluded.strikes`,
		p.GameID, p.PlayerID, p.IP, p.H, p.R, p.ER, p.K, p.BB, p.HBP, p.Pitches, p.Strikes,
	)
	if err != nil {
		return fmt.Errorf("pitching line game %d player %d: %w", p.GameID, p.PlayerID, mapErr(err))
	}
	return nil
}

func (c *conn) GetSeason(ctx context.Context, id int64) (model.Season, error) {
	var (
		se         model.Season
		seasonType string
	)
	err := c.q.QueryRowContext(ctx, `
		SELECT id, year, season_type, team_id FROM `+config.SeasonsTable+` WHERE id = ?`, id,
	).Scan(&se.ID, &se.Year, &seasonType, &se.TeamID)
	if err != nil {
		return model.Season{}, fmt.Errorf("season %d: %w", id, mapErr(err))
	}
	se.Type = model.SeasonType(seasonType)
	return se, nil
}

func (c *conn) GamesInSeason(ctx context.Context, seasonID int64) ([]model.Game, error) {
	return c.queryGames(ctx, `WHERE season_id = ? ORDER BY id`, seasonID)
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

func (c *conn) ListSeasons(ctx context.Context) ([]model.Season, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, year, season_type, team_id FROM `+config.SeasonsTable+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	var out []model.Season
	for rows.Next() {
		var (
			se         model.Season
			seasonType string
		)
		if err := rows.Scan(&se.ID, &se.Year, &seasonType, &se.TeamID); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		se.Type = model.SeasonType(seasonType)
		out = append(out, se)
	}
	return out, rows.Err()
}

func (c *conn) GetGame(ctx context.Context, id int64) (model.Game, error) {
	games, err := c.queryGames(ctx, `WHERE id = ?`, id)
	if err != nil {
		return model.Game{}, err
	}
	if len(games) == 0 {
		return model.Game{}, fmt.Errorf("game %d: %w", id, store.ErrNotFound)
	}
	return games[0], nil
}

func (c *conn) queryGames(ctx context.Context, where string, args ...any) ([]model.Game, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, season_id, game_date, game_time, opponent, opponent_team_id,
			win_loss, runs_for, runs_against, notes
		FROM `+config.GamesTable+` `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []model.Game
	for rows.Next() {
		var g model.Game
		var gameTime, wl, notes *string
		if err := rows.Scan(
			&g.ID, &g.SeasonID, &g.Date, &gameTime, &g.Opponent, &g.OpponentTeamID,
			&wl, &g.RunsFor, &g.RunsAgainst, &notes,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.Time, g.WinLoss, g.Notes = deref(gameTime), deref(wl), deref(notes)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (c *conn) GameBattingStats(ctx context.Context, gameID int64) ([]model.BattingStats, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT b.game_id, b.player_id, b.ab, b.r, b.h, b.rbi, b.bb, b.so, b.hbp, b.sac, p.name
		FROM `+config.BattingTable+` b
		JOIN `+config.PlayersTable+` p ON p.id = b.player_id
		WHERE b.game_id = ?
		ORDER BY p.name`, gameID)
	if err != nil {
		return nil, fmt.Errorf("batting stats game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []model.BattingStats
	for rows.Next() {
		var (
			b    model.BattingLine
			name string
		)
		if err := rows.Scan(&b.GameID, &b.PlayerID, &b.AB, &b.R, &b.H, &b.RBI, &b.BB, &b.SO, &b.HBP, &b.Sac, &name); err != nil {
			return nil, fmt.Errorf("scan batting line: %w", err)
		}
		out = append(out, b.WithDerived(name))
	}
	return out, rows.Err()
}

func (c *conn) GamePitchingStats(ctx context.Context, gameID int64) ([]model.PitchingStats, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT l.game_id, l.player_id, l.ip, l.h, l.r, l.er, l.k, l.bb, l.hbp, l.pitches, l.strikes, p.name
		FROM `+config.PitchingTable+` l
		JOIN `+config.PlayersTable+` p ON p.id = l.player_id
		WHERE l.game_id = ?
		ORDER BY p.name`, gameID)
	if err != nil {
		return nil, fmt.Errorf("pitching stats game %d: %w", gameID, err)
	}
	defer rows.Close()

	var out []model.PitchingStats
	for rows.Next() {
		var (
			l    model.PitchingLine
			name string
		)
		if err := rows.Scan(&l.GameID, &l.PlayerID, &l.IP, &l.H, &l.R, &l.ER, &l.K, &l.BB, &l.HBP, &l.Pitches, &l.Strikes, &name); err != nil {
			return nil, fmt.Errorf("scan pitching line: %w", err)
		}
		out = append(out, l.WithDerived(name))
	}
	return out, rows.Err()
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// mapErr folds missing rows and dangling references into store.ErrNotFound.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "FOREIGN KEY") {
		return fmt.Errorf("%s: %w", se.Error(), store.ErrNotFound)
	}
	return err
}

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
