package importer

import (
	"errors"
	"fmt"

	"github.com/albapepper/scoracle-softball/internal/columns"
)

// FileType is the discriminant of a Report.
type FileType string

const (
	FileExcel          FileType = "excel"
	FileCSV            FileType = "csv"
	FileGameChangerCSV FileType = "gamechanger_csv"
	FileUnknown        FileType = "unknown"
)

// IsCSV reports whether the type routes to the CSV importer.
func (t FileType) IsCSV() bool {
	return t == FileCSV || t == FileGameChangerCSV
}

var (
	ErrUnknownFileType = errors.New("unsupported file type")
	ErrUnknownDialect  = errors.New("could not detect CSV format")
	ErrMissingGameDate = errors.New("game date is required")
	ErrSeasonRequired  = errors.New("season id required for CSV imports")
	ErrSeasonNotFound  = errors.New("season not found")
	ErrEmptyFile       = errors.New("file has no data rows")
)

// --------------------------------------------------------------------------
// Per-file report
// --------------------------------------------------------------------------

// Report is the outcome of importing one file. Exactly one of ExcelResult
// and CSVResult is set once the file type is known; both flatten into the
// JSON object.
type Report struct {
	ImportID      string   `json:"import_id"`
	File          string   `json:"file"`
	FileType      FileType `json:"file_type"`
	TotalGames    int      `json:"total_games"`
	TotalBatting  int      `json:"total_batting"`
	TotalPitching int      `json:"total_pitching"`

	*ExcelResult
	*CSVResult

	Errors []string `json:"errors"`

	// failure is the first hard error; soft errors only land in Errors.
	failure error
}

// ExcelResult carries the workbook-specific fields.
type ExcelResult struct {
	SheetsProcessed int            `json:"sheets_processed"`
	Teams           []TeamInfo     `json:"teams,omitempty"`
	Seasons         []SeasonResult `json:"details,omitempty"`
}

// TeamInfo is the team metadata found at the top of a sheet.
type TeamInfo struct {
	Sheet    string `json:"sheet"`
	Name     string `json:"team_name"`
	AgeGroup string `json:"age_group,omitempty"`
	Location string `json:"location,omitempty"`
	TeamID   *int64 `json:"team_id,omitempty"`
}

// SeasonResult describes one season block of one sheet.
type SeasonResult struct {
	Sheet    string `json:"sheet"`
	Layout   string `json:"layout"`
	Season   string `json:"season"`
	SeasonID int64  `json:"season_id"`
	FirstRow int    `json:"first_row"`
	LastRow  int    `json:"last_row"`
	Games    int    `json:"games_imported"`
	Batters  int    `json:"batters"`
	Pitchers int    `json:"pitchers"`
}

// CSVResult carries the per-game CSV fields.
type CSVResult struct {
	Dialect        columns.Dialect   `json:"dialect"`
	Pitching       bool              `json:"pitching,omitempty"`
	GameID         *int64            `json:"game_id,omitempty"`
	StatsImported  int               `json:"stats_imported"`
	DetectedFields map[string]string `json:"detected_fields"`
	MissingFields  []string          `json:"missing_fields"`
}

// AddError records a soft error message.
func (r *Report) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted soft error message.
func (r *Report) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// fail records a hard, file-level error.
func (r *Report) fail(err error) {
	if r.failure == nil {
		r.failure = err
	}
	r.AddError(err.Error())
}

// Failed reports whether the file hit a hard error and wrote nothing.
func (r *Report) Failed() bool {
	return r.failure != nil
}

// Err returns the hard error, if any, for errors.Is checks.
func (r *Report) Err() error {
	return r.failure
}

// Summary returns a human-readable summary of the import.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%s [%s] games=%d batting=%d pitching=%d",
		r.File, r.FileType, r.TotalGames, r.TotalBatting, r.TotalPitching)
	if r.ExcelResult != nil {
		s += fmt.Sprintf(" sheets=%d", r.SheetsProcessed)
	}
	if r.CSVResult != nil {
		s += fmt.Sprintf(" stats=%d", r.StatsImported)
	}
	return s + fmt.Sprintf(" errors=%d", len(r.Errors))
}

// --------------------------------------------------------------------------
// Batch report
// --------------------------------------------------------------------------

// BatchReport aggregates the per-file reports of one batch. A failed file
// never affects the others.
type BatchReport struct {
	FilesProcessed int      `json:"files_processed"`
	FilesFailed    int      `json:"files_failed"`
	ExcelFiles     int      `json:"excel_files"`
	CSVFiles       int      `json:"csv_files"`
	TotalGames     int      `json:"total_games"`
	TotalBatting   int      `json:"total_batting"`
	TotalPitching  int      `json:"total_pitching"`
	TotalStats     int      `json:"total_stats"`
	Errors         []string `json:"errors"`
	Files          []Report `json:"details"`
}

// Add merges a file report into the batch.
func (b *BatchReport) Add(r Report) {
	b.FilesProcessed++
	if r.Failed() {
		b.FilesFailed++
	}
	switch {
	case r.FileType == FileExcel:
		b.ExcelFiles++
	case r.FileType.IsCSV():
		b.CSVFiles++
	}
	b.TotalGames += r.TotalGames
	b.TotalBatting += r.TotalBatting
	b.TotalPitching += r.TotalPitching
	if r.CSVResult != nil {
		b.TotalStats += r.StatsImported
	}
	for _, e := range r.Errors {
		b.Errors = append(b.Errors, r.File+": "+e)
	}
	b.Files = append(b.Files, r)
}

// Summary returns a human-readable summary of the batch.
func (b *BatchReport) Summary() string {
	return fmt.Sprintf(
		"files=%d failed=%d excel=%d csv=%d games=%d batting=%d pitching=%d stats=%d errors=%d",
		b.FilesProcessed, b.FilesFailed, b.ExcelFiles, b.CSVFiles,
		b.TotalGames, b.TotalBatting, b.TotalPitching, b.TotalStats, len(b.Errors),
	)
}
