// Package pgstore is the Postgres store.Store, built on the shared pgxpool
// from internal/db. Identity keys are enforced by unique constraints and
// every get-or-create is a single INSERT ... ON CONFLICT ... RETURNING id.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/db"
	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists to Postgres.
type Store struct {
	conn
	pool *db.Pool
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool.
func New(pool *db.Pool) *Store {
	return &Store{conn: conn{q: pool}, pool: pool}
}

// Migrate applies the embedded schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a single transaction. A successful transaction
// also queues a NOTIFY on config.ImportsChannel, which Postgres delivers
// only on commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r store.Reconciler) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := fn(ctx, &conn{q: tx}); err != nil {
			return err
		}
		payload := fmt.Sprintf(`{"ts":%d}`, time.Now().Unix())
		if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", config.ImportsChannel, payload); err != nil {
			return fmt.Errorf("notify %s: %w", config.ImportsChannel, err)
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.HealthCheck(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// conn implements store.Reconciler and store.Reader over a pool or a tx.
type conn struct {
	q querier
}

// --------------------------------------------------------------------------
// Reconciler
// --------------------------------------------------------------------------

func (c *conn) GetOrCreateAgeGroup(ctx context.Context, name string) (int64, error) {
	var id int64
	err := c.q.QueryRow(ctx, `
		INSERT INTO `+config.AgeGroupsTable+` (name, sort_order)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
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
	err := c.q.QueryRow(ctx, `
		INSERT INTO `+config.TeamsTable+` (name, age_group_id, location)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, age_group_id) DO UPDATE SET
			location = COALESCE(EXCLUDED.location, `+config.TeamsTable+`.location),
			updated_at = NOW()
		RETURNING id`,
		name, ageGroupID, nilEmpty(location),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("team %q: %w", name, mapErr(err))
	}
	return id, nil
}

func (c *conn) GetOrCreateSeason(ctx context.Context, year int, seasonType model.SeasonType, teamID *int64) (int64, error) {
	var id int64
	err := c.q.QueryRow(ctx, `
		INSERT INTO `+config.SeasonsTable+` (year, season_type, team_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (year, season_type, (COALESCE(team_id, 0))) DO UPDATE SET year = EXCLUDED.year
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
	err := c.q.QueryRow(ctx, `
		INSERT INTO `+config.PlayersTable+` (name, jersey_number, bats, throws)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, jersey_number) DO UPDATE SET
			bats = COALESCE(EXCLUDED.bats, `+config.PlayersTable+`.bats),
			throws = COALESCE(EXCLUDED.throws, `+config.PlayersTable+`.throws)
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
	err := c.q.QueryRow(ctx, `
		INSERT INTO `+config.OpponentTeamsTable+` (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("opponent team %q: %w", name, mapErr(err))
	}
	return id, nil
}

// CreateOrUpdateGame resolves identity in Go (store.FindGame) because a
// game's key includes the score only when the score is known.
func (c *conn) CreateOrUpdateGame(ctx context.Context, g model.Game) (int64, error) {
	if g.ID != 0 {
		existing, err := c.GetGame(ctx, g.ID)
		if err != nil {
			return 0, err
		}
		return g.ID, c.updateGame(ctx, store.MergeGame(existing, g))
	}

	candidates, err := c.queryGames(ctx, `
		WHERE season_id = $1 AND game_date = $2 AND opponent = $3
		ORDER BY id`, g.SeasonID, g.Date, g.Opponent)
	if err != nil {
		return 0, err
	}
	if existing, ok := store.FindGame(candidates, g); ok {
		return existing.ID, c.updateGame(ctx, store.MergeGame(existing, g))
	}

	var id int64
	err = c.q.QueryRow(ctx, `
		INSERT INTO `+config.GamesTable+` (
			season_id, game_date, game_time, opponent, opponent_team_id,
			win_loss, runs_for, runs_against, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
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
	_, err := c.q.Exec(ctx, `
		UPDATE `+config.GamesTable+` SET
			game_time = $2,
			opponent_team_id = $3,
			win_loss = $4,
			runs_for = $5,
			runs_against = $6,
			notes = $7,
			updated_at = NOW()
		WHERE id = $1`,
		g.ID, nilEmpty(g.Time), g.OpponentTeamID, nilEmpty(g.WinLoss),
		g.RunsFor, g.RunsAgainst, nilEmpty(g.Notes),
	)
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID, mapErr(err))
	}
	return nil
}

func (c *conn) UpsertBattingLine(ctx context.Context, b model.BattingLine) error {
	_, err := c.q.Exec(ctx, `
		INSERT INTO `+config.BattingTable+` (
			game_id, player_id, ab, r, h, rbi, bb, so, hbp, sac
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			ab = EXCLUDED.ab,
			r = EXCLUDED.r,
			h = EXCLUDED.h,
			rbi = EXCLUDED.rbi,
			bb = EXCLUDED.bb,
			so = EXCLUDED.so,
			hbp = EXCLUDED.hbp,
			sac = EXCLUDED.sac,
			updated_at = NOW()`,
		b.GameID, b.PlayerID, b.AB, b.R, b.H, b.RBI, b.BB, b.SO, b.HBP, b.Sac,
	)
	if err != nil {
		return fmt.Errorf("batting line game %d player %d: %w", b.GameID, b.PlayerID, mapErr(err))
	}
	return nil
}

func (c *conn) UpsertPitchingLine(ctx context.Context, p model.PitchingLine) error {
	_, err := c.q.Exec(ctx, `
		INSERT INTO `+config.PitchingTable+` (
			game_id, player_id, ip, h, r, er, k, bb, hbp, pitches, strikes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			ip = EXCLUDED.ip,
			h = EXCLUDED.h,
			r = EXCLUDED.r,
			er = EXCLUDED.er,
			k = EXCLUDED.k,
			bb = EXCLUDED.bb,
			hbp = EXCLUDED.hbp,
			pitches = EXCLUDED.pitches,
			strikes = EXCLUDED.strikes,
			updated_at = NOW()`,
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
	err := c.q.QueryRow(ctx, `
		SELECT id, year, season_type, team_id FROM `+config.SeasonsTable+` WHERE id = $1`, id,
	).Scan(&se.ID, &se.Year, &seasonType, &se.TeamID)
	if err != nil {
		return model.Season{}, fmt.Errorf("season %d: %w", id, mapErr(err))
	}
	se.Type = model.SeasonType(seasonType)
	return se, nil
}

func (c *conn) GamesInSeason(ctx context.Context, seasonID int64) ([]model.Game, error) {
	return c.queryGames(ctx, `WHERE season_id = $1 ORDER BY id`, seasonID)
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

func (c *conn) ListSeasons(ctx context.Context) ([]model.Season, error) {
	rows, err := c.q.Query(ctx, `
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
	games, err := c.queryGames(ctx, `WHERE id = $1`, id)
	if err != nil {
		return model.Game{}, err
	}
	if len(games) == 0 {
		return model.Game{}, fmt.Errorf("game %d: %w", id, store.ErrNotFound)
	}
	return games[0], nil
}

func (c *conn) queryGames(ctx context.Context, where string, args ...any) ([]model.Game, error) {
	rows, err := c.q.Query(ctx, `
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
	rows, err := c.q.Query(ctx, `
		SELECT b.game_id, b.player_id, b.ab, b.r, b.h, b.rbi, b.bb, b.so, b.hbp, b.sac, p.name
		FROM `+config.BattingTable+` b
		JOIN `+config.PlayersTable+` p ON p.id = b.player_id
		WHERE b.game_id = $1
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
	rows, err := c.q.Query(ctx, `
		SELECT l.game_id, l.player_id, l.ip, l.h, l.r, l.er, l.k, l.bb, l.hbp, l.pitches, l.strikes, p.name
		FROM `+config.PitchingTable+` l
		JOIN `+config.PlayersTable+` p ON p.id = l.player_id
		WHERE l.game_id = $1
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

// foreignKeyViolation is SQLSTATE 23503.
const foreignKeyViolation = "23503"

// mapErr folds missing rows and dangling references into store.ErrNotFound.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrNotFound)
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
