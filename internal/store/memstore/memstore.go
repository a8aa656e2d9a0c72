// Package memstore is an in-memory store.Store. It backs the tests and the
// CLI's --backend memory dry runs. Transactions snapshot every table and
// restore the snapshot when the transaction function fails.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store"
)

type lineKey struct{ game, player int64 }

type tables struct {
	nextID    int64
	ageGroups map[int64]model.AgeGroup
	teams     map[int64]model.Team
	opponents map[int64]model.OpponentTeam
	seasons   map[int64]model.Season
	players   map[int64]model.Player
	games     map[int64]model.Game
	batting   map[lineKey]model.BattingLine
	pitching  map[lineKey]model.PitchingLine
}

func newTables() tables {
	return tables{
		ageGroups: map[int64]model.AgeGroup{},
		teams:     map[int64]model.Team{},
		opponents: map[int64]model.OpponentTeam{},
		seasons:   map[int64]model.Season{},
		players:   map[int64]model.Player{},
		games:     map[int64]model.Game{},
		batting:   map[lineKey]model.BattingLine{},
		pitching:  map[lineKey]model.PitchingLine{},
	}
}

func (t tables) clone() tables {
	c := newTables()
	c.nextID = t.nextID
	for k, v := range t.ageGroups {
		c.ageGroups[k] = v
	}
	for k, v := range t.teams {
		c.teams[k] = v
	}
	for k, v := range t.opponents {
		c.opponents[k] = v
	}
	for k, v := range t.seasons {
		c.seasons[k] = v
	}
	for k, v := range t.players {
		c.players[k] = v
	}
	for k, v := range t.games {
		c.games[k] = v
	}
	for k, v := range t.batting {
		c.batting[k] = v
	}
	for k, v := range t.pitching {
		c.pitching[k] = v
	}
	return c
}

// Store is safe for concurrent use. WithinTx calls are serialized.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	t    tables
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{t: newTables()}
}

func (s *Store) id() int64 {
	s.t.nextID++
	return s.t.nextID
}

// WithinTx runs fn and rolls every table back if it fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r store.Reconciler) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.t.clone()
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close() error                   { return nil }

// --------------------------------------------------------------------------
// Reconciler
// --------------------------------------------------------------------------

func (s *Store) GetOrCreateAgeGroup(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ag := range s.t.ageGroups {
		if ag.Name == name {
			return id, nil
		}
	}
	id := s.id()
	s.t.ageGroups[id] = model.AgeGroup{ID: id, Name: name, SortOrder: model.AgeSortOrder(name)}
	return id, nil
}

func (s *Store) GetOrCreateTeam(ctx context.Context, name string, ageGroupID int64, location string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.ageGroups[ageGroupID]; !ok {
		return 0, fmt.Errorf("team %q: age group %d: %w", name, ageGroupID, store.ErrNotFound)
	}
	for id, t := range s.t.teams {
		if t.Name == name && t.AgeGroupID == ageGroupID {
			if location != "" && t.Location != location {
				t.Location = location
				s.t.teams[id] = t
			}
			return id, nil
		}
	}
	id := s.id()
	s.t.teams[id] = model.Team{ID: id, Name: name, AgeGroupID: ageGroupID, Location: location}
	return id, nil
}

func (s *Store) GetOrCreateSeason(ctx context.Context, year int, seasonType model.SeasonType, teamID *int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, se := range s.t.seasons {
		if se.Year == year && se.Type == seasonType && sameTeam(se.TeamID, teamID) {
			return id, nil
		}
	}
	if teamID != nil {
		if _, ok := s.t.teams[*teamID]; !ok {
			return 0, fmt.Errorf("season %d %s: team %d: %w", year, seasonType, *teamID, store.ErrNotFound)
		}
	}
	id := s.id()
	s.t.seasons[id] = model.Season{ID: id, Year: year, Type: seasonType, TeamID: copyID(teamID)}
	return id, nil
}

func sameTeam(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *Store) GetOrCreatePlayer(ctx context.Context, p model.Player) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.t.players {
		if existing.Name == p.Name && existing.JerseyNumber == p.JerseyNumber {
			s.t.players[id] = store.MergePlayer(existing, p)
			return id, nil
		}
	}
	p.ID = s.id()
	s.t.players[p.ID] = p
	return p.ID, nil
}

func (s *Store) GetOrCreateOpponentTeam(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.t.opponents {
		if o.Name == name {
			return id, nil
		}
	}
	id := s.id()
	s.t.opponents[id] = model.OpponentTeam{ID: id, Name: name}
	return id, nil
}

func (s *Store) CreateOrUpdateGame(ctx context.Context, g model.Game) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.seasons[g.SeasonID]; !ok {
		return 0, fmt.Errorf("game %s vs %s: season %d: %w", g.Date, g.Opponent, g.SeasonID, store.ErrNotFound)
	}

	if g.ID != 0 {
		existing, ok := s.t.games[g.ID]
		if !ok {
			return 0, fmt.Errorf("game %d: %w", g.ID, store.ErrNotFound)
		}
		s.t.games[g.ID] = store.MergeGame(existing, g)
		return g.ID, nil
	}

	if existing, ok := store.FindGame(s.sortedGames(g.SeasonID), g); ok {
		s.t.games[existing.ID] = store.MergeGame(existing, g)
		return existing.ID, nil
	}
	g.ID = s.id()
	s.t.games[g.ID] = g
	return g.ID, nil
}

func (s *Store) UpsertBattingLine(ctx context.Context, b model.BattingLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLine(b.GameID, b.PlayerID); err != nil {
		return err
	}
	s.t.batting[lineKey{b.GameID, b.PlayerID}] = b
	return nil
}

func (s *Store) UpsertPitchingLine(ctx context.Context, p model.PitchingLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLine(p.GameID, p.PlayerID); err != nil {
		return err
	}
	s.t.pitching[lineKey{p.GameID, p.PlayerID}] = p
	return nil
}

func (s *Store) checkLine(gameID, playerID int64) error {
	if _, ok := s.t.games[gameID]; !ok {
		return fmt.Errorf("stat line: game %d: %w", gameID, store.ErrNotFound)
	}
	if _, ok := s.t.players[playerID]; !ok {
		return fmt.Errorf("stat line: player %d: %w", playerID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) GetSeason(ctx context.Context, id int64) (model.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	se, ok := s.t.seasons[id]
	if !ok {
		return model.Season{}, fmt.Errorf("season %d: %w", id, store.ErrNotFound)
	}
	return se, nil
}

func (s *Store) GamesInSeason(ctx context.Context, seasonID int64) ([]model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedGames(seasonID), nil
}

// sortedGames returns a season's games in insertion (id) order.
func (s *Store) sortedGames(seasonID int64) []model.Game {
	var out []model.Game
	for _, g := range s.t.games {
		if g.SeasonID == seasonID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

func (s *Store) ListSeasons(ctx context.Context) ([]model.Season, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Season, 0, len(s.t.seasons))
	for _, se := range s.t.seasons {
		out = append(out, se)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetGame(ctx context.Context, id int64) (model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.t.games[id]
	if !ok {
		return model.Game{}, fmt.Errorf("game %d: %w", id, store.ErrNotFound)
	}
	return g, nil
}

func (s *Store) GameBattingStats(ctx context.Context, gameID int64) ([]model.BattingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.BattingStats
	for k, b := range s.t.batting {
		if k.game == gameID {
			out = append(out, b.WithDerived(s.t.players[k.player].Name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerName < out[j].PlayerName })
	return out, nil
}

func (s *Store) GamePitchingStats(ctx context.Context, gameID int64) ([]model.PitchingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PitchingStats
	for k, p := range s.t.pitching {
		if k.game == gameID {
			out = append(out, p.WithDerived(s.t.players[k.player].Name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerName < out[j].PlayerName })
	return out, nil
}

// --------------------------------------------------------------------------
// Inspection helpers for tests and dry runs
// --------------------------------------------------------------------------

// Counts reports the number of rows per table.
type Counts struct {
	AgeGroups, Teams, Opponents, Seasons, Players, Games, Batting, Pitching int
}

// Counts returns current table sizes.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		AgeGroups: len(s.t.ageGroups),
		Teams:     len(s.t.teams),
		Opponents: len(s.t.opponents),
		Seasons:   len(s.t.seasons),
		Players:   len(s.t.players),
		Games:     len(s.t.games),
		Batting:   len(s.t.batting),
		Pitching:  len(s.t.pitching),
	}
}

// Players returns every player ordered by id.
func (s *Store) Players() []model.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Player, 0, len(s.t.players))
	for _, p := range s.t.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Teams returns every team ordered by id.
func (s *Store) Teams() []model.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Team, 0, len(s.t.teams))
	for _, t := range s.t.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
