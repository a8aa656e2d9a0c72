package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/albapepper/scoracle-softball/internal/coerce"
	"github.com/albapepper/scoracle-softball/internal/columns"
	"github.com/albapepper/scoracle-softball/internal/filename"
	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store"
)

// headerScanRows is how far down a CSV the header row is searched for.
const headerScanRows = 5

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// table is a parsed CSV: the header keys, their mapping, and the non-blank
// data rows keyed by header key.
type table struct {
	keys    []string
	mapping columns.Mapping
	rows    []map[string]string
}

func readTable(data []byte) (table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("read CSV: %w", err)
	}
	if len(records) == 0 {
		return table{}, ErrEmptyFile
	}

	hi := columns.FindHeaderRow(records, headerScanRows)
	keys := columns.HeaderKeys(records[hi])
	t := table{keys: keys, mapping: columns.Detect(keys)}

	for _, rec := range records[hi+1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(map[string]string, len(keys))
		for i, k := range keys {
			if i < len(rec) {
				row[k] = strings.TrimSpace(rec[i])
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// value returns a row's cell for a field, or "" when the field is unmapped.
func (t table) value(row map[string]string, f columns.Field) string {
	k, ok := t.mapping.Column(f)
	if !ok {
		return ""
	}
	return row[k]
}

// sniffDelimiter picks comma, semicolon or tab by counting them on the
// first non-empty line.
func sniffDelimiter(data []byte) rune {
	line := data
	for len(line) > 0 {
		end := bytes.IndexByte(line, '\n')
		if end < 0 {
			break
		}
		if len(bytes.TrimSpace(line[:end])) > 0 {
			line = line[:end]
			break
		}
		line = line[end+1:]
	}

	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{'\t', ';'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------
// Game field resolution
// --------------------------------------------------------------------------

// resolveGame merges the game fields from, in priority order, the caller's
// overrides, the first data row, and the file name. It fills detected and
// missing fields on res. estimated reports that RunsFor was computed by
// summing the runs column rather than read from anywhere.
func resolveGame(name string, t table, ov Overrides, res *CSVResult) (g model.Game, estimated bool) {
	first := map[string]string{}
	if len(t.rows) > 0 {
		first = t.rows[0]
	}

	detected := func(f columns.Field) string {
		v := t.value(first, f)
		if v != "" {
			res.DetectedFields[string(f)] = v
		}
		return v
	}
	detectedInt := func(f columns.Field) *int {
		n := coerce.OptionalInt(t.value(first, f))
		if n != nil {
			res.DetectedFields[string(f)] = strconv.Itoa(*n)
		}
		return n
	}

	g.Date = firstNonEmpty(ov.GameDate, detected(columns.GameDate))
	g.Time = firstNonEmpty(ov.GameTime, detected(columns.GameTime))
	g.Opponent = firstNonEmpty(ov.Opponent, detected(columns.Opponent))
	g.WinLoss = coerce.WinLoss(firstNonEmpty(ov.WinLoss, detected(columns.WinLoss)))
	g.RunsFor = firstNonNil(ov.RunsFor, detectedInt(columns.RunsFor))
	g.RunsAgainst = firstNonNil(ov.RunsAgainst, detectedInt(columns.RunsAgainst))

	if g.Date == "" || g.Opponent == "" {
		info := filename.Parse(name)
		if g.Date == "" && info.GameDate != "" {
			g.Date = info.GameDate
			res.DetectedFields["game_date_from_filename"] = info.GameDate
		}
		if g.Opponent == "" && info.Opponent != "" {
			g.Opponent = info.Opponent
			res.DetectedFields["opponent_from_filename"] = info.Opponent
		}
	}

	for _, f := range columns.GameFields {
		if !gameFieldSet(g, f) {
			res.MissingFields = append(res.MissingFields, string(f))
		}
	}

	if g.Opponent == "" {
		g.Opponent = filename.Stem(name)
	}

	// Team runs scored is approximated by the players' runs scored.
	if g.RunsFor == nil && !t.mapping.IsPitching() && t.mapping.Has(columns.R) {
		total := 0
		for _, row := range t.rows {
			if pname, _ := playerName(t, row); pname != "" {
				total += coerce.Int(t.value(row, columns.R))
			}
		}
		g.RunsFor = &total
		estimated = true
		res.DetectedFields["runs_for_from_player_runs"] = strconv.Itoa(total)
	}
	return g, estimated
}

func gameFieldSet(g model.Game, f columns.Field) bool {
	switch f {
	case columns.GameDate:
		return g.Date != ""
	case columns.GameTime:
		return g.Time != ""
	case columns.Opponent:
		return g.Opponent != ""
	case columns.WinLoss:
		return g.WinLoss != ""
	case columns.RunsFor:
		return g.RunsFor != nil
	case columns.RunsAgainst:
		return g.RunsAgainst != nil
	}
	return false
}

// playerName returns the cleaned name and handedness letter of a data row.
// Header and summary rows yield an empty name.
func playerName(t table, row map[string]string) (string, string) {
	name, hand := coerce.SplitHandedness(t.value(row, columns.PlayerName))
	if coerce.IsHeaderName(name) {
		return "", ""
	}
	return name, hand
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Import
// --------------------------------------------------------------------------

// importCSV imports one per-game CSV into seasonID. A file that fails writes
// nothing.
func (im *Importer) importCSV(ctx context.Context, rep *Report, name string, data []byte, req Request) {
	res := &CSVResult{DetectedFields: map[string]string{}, MissingFields: []string{}}
	rep.CSVResult = res

	t, err := readTable(data)
	if err != nil {
		rep.fail(err)
		return
	}
	res.Dialect = t.mapping.Dialect
	if t.mapping.Dialect == columns.Unknown {
		rep.fail(fmt.Errorf("%w; headers found: %v", ErrUnknownDialect, t.keys))
		return
	}
	if len(t.rows) == 0 {
		rep.fail(ErrEmptyFile)
		return
	}
	res.Pitching = t.mapping.IsPitching()

	g, estimated := resolveGame(name, t, req.Overrides, res)
	if g.Date == "" {
		rep.fail(ErrMissingGameDate)
		return
	}
	g.SeasonID = req.SeasonID

	im.logger.Info("Importing game CSV",
		"file", name, "dialect", res.Dialect, "pitching", res.Pitching,
		"date", g.Date, "opponent", g.Opponent, "rows", len(t.rows))
	if len(res.MissingFields) > 0 {
		im.logger.Debug("Optional game fields missing", "file", name, "fields", res.MissingFields)
	}

	var (
		gameID int64
		stats  int
	)
	err = im.store.WithinTx(ctx, func(ctx context.Context, r store.Reconciler) error {
		stats = 0
		if _, err := r.GetSeason(ctx, req.SeasonID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrSeasonNotFound, req.SeasonID)
			}
			return err
		}

		id, err := im.reconcileGame(ctx, r, g, estimated, res.Dialect, name)
		if err != nil {
			return err
		}
		gameID = id

		for _, row := range t.rows {
			pname, hand := playerName(t, row)
			if pname == "" {
				continue
			}
			p := model.Player{Name: pname}
			if res.Pitching {
				p.Throws = hand
			} else {
				p.Bats = hand
			}
			playerID, err := r.GetOrCreatePlayer(ctx, p)
			if err != nil {
				return err
			}

			if res.Pitching {
				err = r.UpsertPitchingLine(ctx, pitchingLine(t, row, gameID, playerID))
			} else {
				err = r.UpsertBattingLine(ctx, battingLine(t, row, gameID, playerID))
			}
			if err != nil {
				return err
			}
			stats++
		}
		return nil
	})
	if err != nil {
		rep.fail(err)
		return
	}

	res.GameID = &gameID
	res.StatsImported = stats
	rep.TotalGames = 1
	if res.Pitching {
		rep.TotalPitching = stats
	} else {
		rep.TotalBatting = stats
	}
	im.logger.Info("Game CSV imported", "file", name, "game_id", gameID, "stats", stats)
}

// reconcileGame attaches the import to an existing game on the same date
// whose opponent loosely matches, or creates one.
func (im *Importer) reconcileGame(ctx context.Context, r store.Reconciler, g model.Game, estimated bool, dialect columns.Dialect, name string) (int64, error) {
	games, err := r.GamesInSeason(ctx, g.SeasonID)
	if err != nil {
		return 0, err
	}

	opponentLabel := g.Opponent
	if existing, ok := store.FindFuzzyGame(games, g.Date, g.Opponent); ok {
		im.logger.Info("Matched existing game",
			"file", name, "game_id", existing.ID, "opponent", existing.Opponent)
		g.ID = existing.ID
		opponentLabel = existing.Opponent
		if estimated && existing.RunsFor != nil {
			g.RunsFor = nil
		}
		if existing.OpponentTeamID != nil {
			opponentLabel = ""
		}
	} else {
		g.Notes = fmt.Sprintf("Imported from CSV (%s): %s", dialect, filepath.Base(name))
	}

	if opponentLabel != "" {
		oppID, err := r.GetOrCreateOpponentTeam(ctx, opponentLabel)
		if err != nil {
			return 0, err
		}
		g.OpponentTeamID = &oppID
	}
	return r.CreateOrUpdateGame(ctx, g)
}

func battingLine(t table, row map[string]string, gameID, playerID int64) model.BattingLine {
	return model.BattingLine{
		GameID:   gameID,
		PlayerID: playerID,
		AB:       coerce.Int(t.value(row, columns.AB)),
		R:        coerce.Int(t.value(row, columns.R)),
		H:        coerce.Int(t.value(row, columns.H)),
		RBI:      coerce.Int(t.value(row, columns.RBI)),
		BB:       coerce.Int(t.value(row, columns.BB)),
		SO:       coerce.Int(t.value(row, columns.SO)),
		HBP:      coerce.Int(t.value(row, columns.HBP)),
		Sac:      coerce.Int(t.value(row, columns.Sac)),
	}
}

func pitchingLine(t table, row map[string]string, gameID, playerID int64) model.PitchingLine {
	return model.PitchingLine{
		GameID:   gameID,
		PlayerID: playerID,
		IP:       coerce.Float(t.value(row, columns.IP)),
		H:        coerce.Int(t.value(row, columns.H)),
		R:        coerce.Int(t.value(row, columns.R)),
		ER:       coerce.Int(t.value(row, columns.ER)),
		K:        coerce.Int(t.value(row, columns.SO)),
		BB:       coerce.Int(t.value(row, columns.BB)),
		HBP:      coerce.Int(t.value(row, columns.HBP)),
		Pitches:  coerce.Int(t.value(row, columns.Pitches)),
		Strikes:  coerce.Int(t.value(row, columns.Strikes)),
	}
}

// --------------------------------------------------------------------------
// Preview
// --------------------------------------------------------------------------

// Preview is what a CSV would import, computed without touching a store.
type Preview struct {
	File           string            `json:"file"`
	Dialect        columns.Dialect   `json:"format_type"`
	Headers        []string          `json:"headers"`
	Mapping        map[string]string `json:"mapping"`
	RowCount       int               `json:"row_count"`
	HasPlayerStats bool              `json:"has_player_stats"`
	Pitching       bool              `json:"pitching"`
	DetectedFields map[string]string `json:"detected_fields"`
	MissingFields  []string          `json:"missing_fields"`
}

// PreviewCSV detects a CSV's dialect and game fields.
func PreviewCSV(name string, data []byte) (Preview, error) {
	t, err := readTable(data)
	if err != nil {
		return Preview{}, err
	}
	p := Preview{
		File:     name,
		Dialect:  t.mapping.Dialect,
		Headers:  t.keys,
		Mapping:  make(map[string]string, len(t.mapping.Fields)),
		RowCount: len(t.rows),
	}
	if t.mapping.Dialect == columns.Unknown {
		return p, fmt.Errorf("%w; headers found: %v", ErrUnknownDialect, t.keys)
	}
	for f, k := range t.mapping.Fields {
		p.Mapping[string(f)] = k
	}
	p.HasPlayerStats = t.mapping.Has(columns.PlayerName)
	p.Pitching = t.mapping.IsPitching()

	res := &CSVResult{DetectedFields: map[string]string{}, MissingFields: []string{}}
	resolveGame(name, t, Overrides{}, res)
	p.DetectedFields, p.MissingFields = res.DetectedFields, res.MissingFields
	return p, nil
}
