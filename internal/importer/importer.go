// Package importer turns coach workbooks and per-game CSV exports into
// scouting records. It detects the file type, parses with the column,
// filename and layout heuristics, and reconciles the result against a
// store.Store, one transaction per file.
package importer

import (
	"log/slog"

	"github.com/albapepper/scoracle-softball/internal/store"
)

// Options bound the workbook scan.
type Options struct {
	// ScanCeiling is the last sheet row ever read.
	ScanCeiling int
	// EmptyLookahead is how many consecutive empty rows end a single-season
	// block.
	EmptyLookahead int
}

// DefaultOptions matches the config defaults.
var DefaultOptions = Options{ScanCeiling: 500, EmptyLookahead: 5}

// Overrides are caller-supplied game fields for a CSV import. They win over
// anything detected from the file. Empty strings and nil pointers mean
// "not supplied".
type Overrides struct {
	GameDate    string `json:"game_date,omitempty"`
	GameTime    string `json:"game_time,omitempty"`
	Opponent    string `json:"opponent,omitempty"`
	WinLoss     string `json:"win_loss,omitempty"`
	RunsFor     *int   `json:"runs_for,omitempty"`
	RunsAgainst *int   `json:"runs_against,omitempty"`
}

// Request is what the caller knows about a file besides its bytes. SeasonID
// is required for CSV files and ignored for workbooks.
type Request struct {
	SeasonID int64
	Overrides
}

// Importer runs imports against one store. Imports must not run
// concurrently against the same store; see store.Store.
type Importer struct {
	store  store.Store
	logger *slog.Logger
	opts   Options
}

// New creates an Importer. Zero option fields take DefaultOptions.
func New(s store.Store, logger *slog.Logger, opts Options) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ScanCeiling <= 0 {
		opts.ScanCeiling = DefaultOptions.ScanCeiling
	}
	if opts.EmptyLookahead <= 0 {
		opts.EmptyLookahead = DefaultOptions.EmptyLookahead
	}
	return &Importer{store: s, logger: logger, opts: opts}
}
