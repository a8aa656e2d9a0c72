package importer

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/albapepper/scoracle-softball/internal/coerce"
	"github.com/albapepper/scoracle-softball/internal/model"
	"github.com/albapepper/scoracle-softball/internal/store"
)

// teamScanRows is how many leading rows of column A may hold the team and
// location labels.
const teamScanRows = 10

var (
	seasonMarker  = regexp.MustCompile(`(?i)\b(FALL|SPRING)\s+(\d{4})\b`)
	gameEntry     = regexp.MustCompile(`(?i)^(\d{1,2}/\d{1,2})\s+vs\.?\s+(.+)$`)
	teamLabel     = regexp.MustCompile(`(?i)\bteam(?:\s+name)?\s*:\s*(.*)$`)
	locationLabel = regexp.MustCompile(`(?i)\blocation\s*:\s*(.*)$`)
	ageGroupToken = regexp.MustCompile(`(?i)\b(\d{1,2}U)\b`)
)

// --------------------------------------------------------------------------
// Sheet access
// --------------------------------------------------------------------------

type sheet struct {
	name string
	rows [][]string
}

// cell returns the trimmed value at a 1-based row and 0-based column.
func (s sheet) cell(row, col int) string {
	if col < 0 || row < 1 || row > len(s.rows) {
		return ""
	}
	r := s.rows[row-1]
	if col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// --------------------------------------------------------------------------
// Structure detection
// --------------------------------------------------------------------------

type marker struct {
	row  int
	typ  model.SeasonType
	year int
}

func (m marker) label() string {
	return strings.ToUpper(string(m.typ)) + " " + strconv.Itoa(m.year)
}

// parseSeason finds "FALL 2025" / "spring 2024" anywhere in a cell.
func parseSeason(text string) (model.SeasonType, int, bool) {
	m := seasonMarker.FindStringSubmatch(text)
	if m == nil {
		return "", 0, false
	}
	typ, err := model.ParseSeasonType(m[1])
	if err != nil {
		return "", 0, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return typ, year, true
}

// seasonMarkers returns the first mention of each distinct (type, year) in
// column A, in row order. Repeat mentions of one season are not new blocks.
func seasonMarkers(s sheet, ceiling int) []marker {
	last := min(len(s.rows), ceiling)
	seen := map[string]bool{}
	var out []marker
	for row := 1; row <= last; row++ {
		typ, year, ok := parseSeason(s.cell(row, 0))
		if !ok {
			continue
		}
		m := marker{row: row, typ: typ, year: year}
		if seen[m.label()] {
			continue
		}
		seen[m.label()] = true
		out = append(out, m)
	}
	return out
}

// parseGameEntry splits "9/6 vs. NJ Vipers 12U White".
func parseGameEntry(text string) (date, opponent string, ok bool) {
	m := gameEntry.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// extractTeamInfo reads the team and location labels at the top of column A.
// The age group is the "12U" token inside the team name, if any.
func extractTeamInfo(s sheet) TeamInfo {
	info := TeamInfo{Sheet: s.name}
	for row := 1; row <= teamScanRows; row++ {
		text := s.cell(row, 0)
		if text == "" {
			continue
		}
		if m := locationLabel.FindStringSubmatch(text); m != nil {
			info.Location = strings.TrimSpace(m[1])
			continue
		}
		if m := teamLabel.FindStringSubmatch(text); m != nil {
			info.Name = strings.TrimSpace(m[1])
			if ag := ageGroupToken.FindStringSubmatch(info.Name); ag != nil {
				info.AgeGroup = strings.ToUpper(ag[1])
			}
		}
	}
	return info
}

// --------------------------------------------------------------------------
// Block parsing
// --------------------------------------------------------------------------

type rosterEntry struct {
	name, jersey, bats, throws string
	batting, pitching          bool
}

type blockData struct {
	games    []model.Game
	roster   []rosterEntry
	batters  int
	pitchers int
	lastRow  int
}

// parseBlock reads rows first..last under layout l. With lookahead > 0 the
// block also ends at the first run of lookahead rows that hold no game
// entry, pitcher or batter.
func parseBlock(s sheet, l Layout, first, last, lookahead int) blockData {
	gc := l.Games.gameColumns()
	pc := l.Pitching.rosterColumns()
	bc := l.Batting.rosterColumns()

	roster := map[string]*rosterEntry{}
	entry := func(name string) *rosterEntry {
		e, ok := roster[name]
		if !ok {
			e = &rosterEntry{name: name}
			roster[name] = e
		}
		return e
	}

	var out blockData
	for row := first; row <= last; row++ {
		out.lastRow = row

		raw := s.cell(row, gc.entry)
		if date, opp, ok := parseGameEntry(raw); ok {
			out.games = append(out.games, model.Game{
				Date:        date,
				Opponent:    opp,
				WinLoss:     coerce.WinLoss(s.cell(row, gc.result)),
				RunsFor:     coerce.OptionalInt(s.cell(row, gc.runsFor)),
				RunsAgainst: coerce.OptionalInt(s.cell(row, gc.runsAgainst)),
				Notes:       s.cell(row, gc.notes),
			})
		}

		pitcher, throws := rosterName(s, row, pc)
		if pitcher != "" {
			e := entry(pitcher)
			if !e.pitching {
				e.pitching = true
				out.pitchers++
			}
			if e.jersey == "" {
				e.jersey = coerce.Jersey(s.cell(row, pc.jersey))
			}
			if throws != "" {
				e.throws = throws
			}
		}

		batter, bats := rosterName(s, row, bc)
		if batter != "" {
			e := entry(batter)
			if !e.batting {
				e.batting = true
				out.batters++
			}
			// The batting table's jersey wins over the pitching table's.
			if j := coerce.Jersey(s.cell(row, bc.jersey)); j != "" {
				e.jersey = j
			}
			if bats != "" {
				e.bats = bats
			}
		}

		if lookahead > 0 && raw == "" && pitcher == "" && batter == "" &&
			!anyWithin(s, row+1, row+lookahead-1, gc.entry, pc.name, bc.name) {
			break
		}
	}

	names := make([]string, 0, len(roster))
	for n := range roster {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		out.roster = append(out.roster, *roster[n])
	}
	return out
}

// rosterName returns the cleaned player name and handedness of a roster
// row, or "" for blank, header and totals rows.
func rosterName(s sheet, row int, rc rosterColumns) (string, string) {
	raw := s.cell(row, rc.name)
	if raw == "" {
		return "", ""
	}
	name, hand := coerce.SplitHandedness(raw)
	if name == "" || coerce.IsHeaderRow(name, s.cell(row, rc.jersey)) {
		return "", ""
	}
	return name, hand
}

// anyWithin reports whether any of cols holds a value on rows from..to.
func anyWithin(s sheet, from, to int, cols ...int) bool {
	for row := from; row <= to; row++ {
		for _, c := range cols {
			if s.cell(row, c) != "" {
				return true
			}
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Sheet plans
// --------------------------------------------------------------------------

type seasonBlock struct {
	marker *marker
	first  int
	data   blockData
}

type sheetPlan struct {
	name   string
	team   TeamInfo
	layout Layout
	blocks []seasonBlock
}

// planSheet decides the layout of a sheet and parses its blocks. One
// distinct season means the single-season layout; more means one block per
// season in the multi-season layout.
func (im *Importer) planSheet(s sheet) sheetPlan {
	plan := sheetPlan{name: s.name, team: extractTeamInfo(s)}
	markers := seasonMarkers(s, im.opts.ScanCeiling)
	ceiling := min(len(s.rows), im.opts.ScanCeiling)

	if len(markers) <= 1 {
		plan.layout = SingleSeason
		b := seasonBlock{first: SingleSeason.FirstRow}
		if len(markers) == 1 {
			b.marker = &markers[0]
		}
		b.data = parseBlock(s, SingleSeason, b.first, ceiling, im.opts.EmptyLookahead)
		plan.blocks = append(plan.blocks, b)
		return plan
	}

	plan.layout = MultiSeason
	for i := range markers {
		last := ceiling
		if i+1 < len(markers) {
			last = markers[i+1].row - 1
		}
		b := seasonBlock{marker: &markers[i], first: markers[i].row + MultiSeason.MarkerOffset}
		b.data = parseBlock(s, MultiSeason, b.first, last, 0)
		plan.blocks = append(plan.blocks, b)
	}
	return plan
}

// --------------------------------------------------------------------------
// Import
// --------------------------------------------------------------------------

// importExcel imports every sheet of a workbook in one transaction. The
// workbook carries season totals only, so it yields teams, seasons, games
// and the roster; per-game stat lines come from the game CSVs.
func (im *Importer) importExcel(ctx context.Context, rep *Report, name string, data []byte) {
	res := &ExcelResult{}
	rep.ExcelResult = res

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		rep.fail(fmt.Errorf("open workbook: %w", err))
		return
	}
	defer f.Close()

	var plans []sheetPlan
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			rep.AddErrorf("sheet %q: read rows: %v", sheetName, err)
			continue
		}
		plan := im.planSheet(sheet{name: sheetName, rows: rows})
		plans = append(plans, plan)
		im.logger.Info("Parsed sheet",
			"file", name, "sheet", sheetName, "layout", plan.layout.Kind, "blocks", len(plan.blocks))
	}
	if len(plans) == 0 {
		rep.fail(fmt.Errorf("workbook %s has no readable sheets", name))
		return
	}

	var (
		seasons []SeasonResult
		teams   []TeamInfo
		soft    []string
	)
	err = im.store.WithinTx(ctx, func(ctx context.Context, r store.Reconciler) error {
		seasons, teams, soft = nil, nil, nil
		teamIDs := map[string]*int64{}

		resolveTeam := func(info TeamInfo) (*int64, error) {
			if id, ok := teamIDs[info.Name]; ok {
				return id, nil
			}
			var id *int64
			if info.Name != "" && info.AgeGroup != "" {
				agID, err := r.GetOrCreateAgeGroup(ctx, info.AgeGroup)
				if err != nil {
					return nil, err
				}
				tid, err := r.GetOrCreateTeam(ctx, info.Name, agID, info.Location)
				if err != nil {
					return nil, err
				}
				id = &tid
			} else if info.Name != "" {
				im.logger.Warn("Team name has no age group; sheet left unattributed",
					"file", name, "sheet", info.Sheet, "team", info.Name)
			}
			teamIDs[info.Name] = id
			info.TeamID = id
			if info.Name != "" {
				teams = append(teams, info)
			}
			return id, nil
		}

		// The first sheet names the workbook's team; later sheets only
		// switch teams when they name a different one.
		workbookTeam := plans[0].team
		if _, err := resolveTeam(workbookTeam); err != nil {
			return err
		}

		for _, plan := range plans {
			info := workbookTeam
			if plan.team.Name != "" && plan.team.Name != workbookTeam.Name {
				info = plan.team
			}
			teamID, err := resolveTeam(info)
			if err != nil {
				return err
			}

			for _, b := range plan.blocks {
				sr, msg, err := im.importBlock(ctx, r, plan, b, teamID)
				if err != nil {
					return fmt.Errorf("sheet %q: %w", plan.name, err)
				}
				if msg != "" {
					soft = append(soft, msg)
				}
				seasons = append(seasons, sr)
			}
		}
		return nil
	})
	if err != nil {
		rep.fail(err)
		return
	}

	res.SheetsProcessed = len(plans)
	res.Teams = teams
	res.Seasons = seasons
	for _, msg := range soft {
		rep.AddError(msg)
	}
	for _, sr := range seasons {
		rep.TotalGames += sr.Games
		rep.TotalBatting += sr.Batters
		rep.TotalPitching += sr.Pitchers
	}
	im.logger.Info("Workbook imported",
		"file", name, "sheets", res.SheetsProcessed, "games", rep.TotalGames,
		"batters", rep.TotalBatting, "pitchers", rep.TotalPitching)
}

// importBlock writes one season block: the roster always, the games only
// when the block's season is known. A block without a season yields a soft
// error message.
func (im *Importer) importBlock(ctx context.Context, r store.Reconciler, plan sheetPlan, b seasonBlock, teamID *int64) (SeasonResult, string, error) {
	sr := SeasonResult{
		Sheet:    plan.name,
		Layout:   plan.layout.Kind,
		FirstRow: b.first,
		LastRow:  b.data.lastRow,
		Batters:  b.data.batters,
		Pitchers: b.data.pitchers,
	}

	for _, e := range b.data.roster {
		if _, err := r.GetOrCreatePlayer(ctx, model.Player{
			Name:         e.name,
			JerseyNumber: e.jersey,
			Bats:         e.bats,
			Throws:       e.throws,
		}); err != nil {
			return sr, "", err
		}
	}

	if b.marker == nil {
		im.logger.Warn("No season marker; games skipped",
			"sheet", plan.name, "games", len(b.data.games))
		return sr, fmt.Sprintf("sheet %q: could not determine season; %d games skipped", plan.name, len(b.data.games)), nil
	}

	sr.Season = b.marker.label()
	seasonID, err := r.GetOrCreateSeason(ctx, b.marker.year, b.marker.typ, teamID)
	if err != nil {
		return sr, "", err
	}
	sr.SeasonID = seasonID

	for _, g := range b.data.games {
		g.SeasonID = seasonID
		oppID, err := r.GetOrCreateOpponentTeam(ctx, g.Opponent)
		if err != nil {
			return sr, "", err
		}
		g.OpponentTeamID = &oppID
		if _, err := r.CreateOrUpdateGame(ctx, g); err != nil {
			return sr, "", err
		}
		sr.Games++
	}

	im.logger.Info("Season block imported",
		"sheet", plan.name, "season", sr.Season, "games", sr.Games,
		"batters", sr.Batters, "pitchers", sr.Pitchers)
	return sr, "", nil
}
