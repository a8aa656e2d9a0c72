// Command ingest is the softball scouting import CLI.
//
// Usage:
//
//	scoracle-softball import stats.xlsx
//	scoracle-softball import game*.csv --season-id 3 --opponent "NJ Vipers"
//	scoracle-softball detect game2_sep6_vipers.csv
//	scoracle-softball migrate --backend postgres
//	scoracle-softball stats --game-id 12
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-softball/internal/backend"
	"github.com/albapepper/scoracle-softball/internal/config"
	"github.com/albapepper/scoracle-softball/internal/importer"
	"github.com/albapepper/scoracle-softball/internal/store"
)

// Logs go to stderr so --json output on stdout stays machine-readable.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Global flags.
var (
	backendFlag string
	sqlitePath  string
	jsonOut     bool
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "scoracle-softball",
		Short:         "Softball scouting import CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&backendFlag, "backend", "", "Store backend (postgres, sqlite, memory); overrides STORE_BACKEND")
	root.PersistentFlags().StringVar(&sqlitePath, "db", "", "SQLite file; overrides SQLITE_PATH")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(importCmd())
	root.AddCommand(detectCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(seasonsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// import command
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	var (
		req                  importer.Request
		runsFor, runsAgainst int
	)
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import coach workbooks (.xlsx) and per-game CSV exports",
		Long: "Each file is imported in its own transaction. Workbooks describe their own\n" +
			"seasons; CSV files need --season-id. Game overrides apply to every CSV.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("runs-for") {
				req.RunsFor = &runsFor
			}
			if cmd.Flags().Changed("runs-against") {
				req.RunsAgainst = &runsAgainst
			}

			return withStore(func(ctx context.Context, cfg *config.Config, s store.Store) error {
				im := importer.New(s, logger, importer.Options{
					ScanCeiling:    cfg.ExcelScanCeiling,
					EmptyLookahead: cfg.ExcelEmptyLookahead,
				})
				sources := make([]importer.Source, 0, len(paths))
				for _, p := range paths {
					sources = append(sources, importer.PathSource(p))
				}

				start := time.Now()
				batch := im.ImportBatch(ctx, sources, req)
				logger.Info("Import finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", batch.Summary())

				if jsonOut {
					if err := printJSON(os.Stdout, batch); err != nil {
						return err
					}
				} else {
					printBatch(os.Stdout, batch)
				}
				if batch.FilesFailed > 0 {
					return fmt.Errorf("%d of %d files failed", batch.FilesFailed, batch.FilesProcessed)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&req.SeasonID, "season-id", 0, "Season the CSV games belong to")
	cmd.Flags().StringVar(&req.GameDate, "date", "", "Game date override (M/D)")
	cmd.Flags().StringVar(&req.GameTime, "time", "", "Game time override")
	cmd.Flags().StringVar(&req.Opponent, "opponent", "", "Opponent override")
	cmd.Flags().StringVar(&req.WinLoss, "result", "", "Result override (W, L, T)")
	cmd.Flags().IntVar(&runsFor, "runs-for", 0, "Runs scored override")
	cmd.Flags().IntVar(&runsAgainst, "runs-against", 0, "Runs allowed override")
	return cmd
}

// expandPaths resolves glob patterns. A pattern that matches nothing is
// passed through so the import reports the missing file.
func expandPaths(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		matches, err := filepath.Glob(a)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", a, err)
		}
		if len(matches) == 0 {
			out = append(out, a)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

func printBatch(w io.Writer, b importer.BatchReport) {
	for _, r := range b.Files {
		status := "ok"
		if r.Failed() {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%-6s %s\n", status, r.Summary())
		for _, e := range r.Errors {
			fmt.Fprintf(w, "       - %s\n", e)
		}
	}
	fmt.Fprintln(w, b.Summary())
}

// --------------------------------------------------------------------------
// detect command
// --------------------------------------------------------------------------

func detectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [files...]",
		Short: "Show the detected file type and CSV column mapping without importing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandPaths(args)
			if err != nil {
				return err
			}
			failed := 0
			for _, p := range paths {
				if err := detectFile(os.Stdout, p); err != nil {
					logger.Error("Detect failed", "file", p, "error", err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be detected", failed, len(paths))
			}
			return nil
		},
	}
}

func detectFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ft := importer.DetectFileType(path, data)
	if !ft.IsCSV() {
		if jsonOut {
			return printJSON(w, map[string]interface{}{"file": path, "file_type": ft})
		}
		fmt.Fprintf(w, "%s: %s\n", path, ft)
		if ft == importer.FileUnknown {
			return importer.ErrUnknownFileType
		}
		return nil
	}

	p, perr := importer.PreviewCSV(filepath.Base(path), data)
	if jsonOut {
		if err := printJSON(w, map[string]interface{}{"file": path, "file_type": ft, "preview": p}); err != nil {
			return err
		}
		return perr
	}

	fmt.Fprintf(w, "%s: %s (%s, %d rows, pitching=%t)\n", path, ft, p.Dialect, p.RowCount, p.Pitching)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for field, col := range p.Mapping {
		fmt.Fprintf(tw, "  %s\t<- %q\n", field, col)
	}
	for field, val := range p.DetectedFields {
		fmt.Fprintf(tw, "  detected %s\t= %s\n", field, val)
	}
	tw.Flush()
	if len(p.MissingFields) > 0 {
		fmt.Fprintf(w, "  missing: %v\n", p.MissingFields)
	}
	return perr
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema to the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, s store.Store) error {
				applied, err := backend.Migrate(ctx, s)
				if err != nil {
					return err
				}
				if !applied {
					logger.Info("Backend has no schema", "backend", cfg.Backend)
					return nil
				}
				logger.Info("Schema applied", "backend", cfg.Backend)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// stats and seasons commands
// --------------------------------------------------------------------------

func statsCmd() *cobra.Command {
	var gameID int64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a game's batting and pitching lines with derived metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if gameID == 0 {
				return fmt.Errorf("--game-id is required")
			}
			return withStore(func(ctx context.Context, cfg *config.Config, s store.Store) error {
				game, err := s.GetGame(ctx, gameID)
				if err != nil {
					return err
				}
				batting, err := s.GameBattingStats(ctx, gameID)
				if err != nil {
					return err
				}
				pitching, err := s.GamePitchingStats(ctx, gameID)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(os.Stdout, map[string]interface{}{
						"game": game, "batting": batting, "pitching": pitching,
					})
				}

				fmt.Printf("%s vs %s  %s\n", game.Date, game.Opponent, score(game.WinLoss, game.RunsFor, game.RunsAgainst))
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				if len(batting) > 0 {
					fmt.Fprintln(tw, "BATTER\tAB\tR\tH\tRBI\tBB\tSO\tBA\tOBP")
					for _, b := range batting {
						fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\n",
							b.PlayerName, b.AB, b.R, b.H, b.RBI, b.BB, b.SO, b.BA, b.OBP)
					}
				}
				if len(pitching) > 0 {
					fmt.Fprintln(tw, "PITCHER\tIP\tH\tER\tK\tBB\tERA\tWHIP\tSTR%")
					for _, p := range pitching {
						fmt.Fprintf(tw, "%s\t%.1f\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.1f\n",
							p.PlayerName, p.IP, p.H, p.ER, p.K, p.BB, p.ERA, p.WHIP, p.StrikePct)
					}
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().Int64Var(&gameID, "game-id", 0, "Game to show")
	return cmd
}

func seasonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seasons",
		Short: "List seasons and their game counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, s store.Store) error {
				seasons, err := s.ListSeasons(ctx)
				if err != nil {
					return err
				}
				if jsonOut {
					return printJSON(os.Stdout, seasons)
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSEASON\tTEAM\tGAMES")
				for _, se := range seasons {
					games, err := s.GamesInSeason(ctx, se.ID)
					if err != nil {
						return err
					}
					team := "-"
					if se.TeamID != nil {
						team = fmt.Sprint(*se.TeamID)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", se.ID, se.Label(), team, len(games))
				}
				return tw.Flush()
			})
		},
	}
}

func score(result string, rf, ra *int) string {
	if rf == nil || ra == nil {
		return result
	}
	return fmt.Sprintf("%s %d-%d", result, *rf, *ra)
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withStore handles config loading, the store connection, and context
// cancellation.
func withStore(fn func(ctx context.Context, cfg *config.Config, s store.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if backendFlag != "" {
		os.Setenv("STORE_BACKEND", backendFlag)
	}
	if sqlitePath != "" {
		os.Setenv("SQLITE_PATH", sqlitePath)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	s, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, cfg, s)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
