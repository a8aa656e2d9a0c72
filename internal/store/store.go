// Package store defines the persistence contract the importers reconcile
// against. Implementations live in subpackages (memstore, pgstore,
// sqlitestore); the importers only ever see these interfaces.
//
// Every GetOrCreate/Upsert follows one shape: look the entity up by its
// identity key, merge non-empty incoming values over the stored ones, insert
// if absent, return the id. Lookups and inserts are not guarded against
// concurrent writers; callers serialize imports per store.
package store

import (
	"context"
	"errors"

	"github.com/albapepper/scoracle-softball/internal/model"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("not found")

// Reconciler is the write side used by the importers.
type Reconciler interface {
	GetOrCreateAgeGroup(ctx context.Context, name string) (int64, error)
	GetOrCreateTeam(ctx context.Context, name string, ageGroupID int64, location string) (int64, error)
	GetOrCreateSeason(ctx context.Context, year int, seasonType model.SeasonType, teamID *int64) (int64, error)
	GetOrCreatePlayer(ctx context.Context, p model.Player) (int64, error)
	GetOrCreateOpponentTeam(ctx context.Context, name string) (int64, error)

	// CreateOrUpdateGame merges into g.ID when it is set, otherwise into the
	// game matching g's identity key, otherwise inserts.
	CreateOrUpdateGame(ctx context.Context, g model.Game) (int64, error)

	UpsertBattingLine(ctx context.Context, b model.BattingLine) error
	UpsertPitchingLine(ctx context.Context, p model.PitchingLine) error

	GetSeason(ctx context.Context, id int64) (model.Season, error)
	GamesInSeason(ctx context.Context, seasonID int64) ([]model.Game, error)
}

// Reader is the read side used by the CLI and the API.
type Reader interface {
	ListSeasons(ctx context.Context) ([]model.Season, error)
	GetGame(ctx context.Context, id int64) (model.Game, error)
	GameBattingStats(ctx context.Context, gameID int64) ([]model.BattingStats, error)
	GamePitchingStats(ctx context.Context, gameID int64) ([]model.PitchingStats, error)
}

// Store is a complete backend. WithinTx runs fn against a transactional
// Reconciler: if fn returns an error nothing it wrote is kept.
type Store interface {
	Reconciler
	Reader
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Reconciler) error) error
	Ping(ctx context.Context) error
	Close() error
}
