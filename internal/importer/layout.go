package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// The coach's workbook is positional: each section lives at fixed columns.
// A Layout names those columns once so nothing else in the extractor
// hard-codes a column letter.

// Section is one table of a sheet, by column letter.
type Section struct {
	From, To string // inclusive column span
	Name     string // player-name column, or the compound "M/D vs. opponent" cell for games
	Jersey   string // jersey-number column; empty for the games section
}

// Layout is one workbook convention.
type Layout struct {
	Kind     string
	Games    Section // entry, W/L, runs for, runs against, notes
	Pitching Section
	Batting  Section
	// FirstRow is the first data row for a single-season sheet. Multi-season
	// blocks start MarkerOffset rows below their season marker instead.
	FirstRow     int
	MarkerOffset int
}

var (
	// SingleSeason is a sheet holding one season.
	SingleSeason = Layout{
		Kind:     "single_season",
		Games:    Section{From: "A", To: "E", Name: "A"},
		Pitching: Section{From: "G", To: "W", Name: "H", Jersey: "G"},
		Batting:  Section{From: "Y", To: "AG", Name: "Z", Jersey: "Y"},
		FirstRow: 10,
	}

	// MultiSeason is a sheet with one block per season, stacked vertically.
	MultiSeason = Layout{
		Kind:         "multi_season",
		Games:        Section{From: "A", To: "E", Name: "A"},
		Pitching:     Section{From: "G", To: "U", Name: "H", Jersey: "G"},
		Batting:      Section{From: "W", To: "AE", Name: "X", Jersey: "W"},
		MarkerOffset: 3,
	}
)

// columnIndex converts a column letter to a 0-based index into a row slice.
// Layouts are package constants, so a bad letter is a programming error.
func columnIndex(letter string) int {
	if letter == "" {
		return -1
	}
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		panic(fmt.Sprintf("layout column %q: %v", letter, err))
	}
	return n - 1
}

// gameColumns resolves the games section: the entry cell, then result, runs
// for, runs against and notes in the following columns.
type gameColumns struct {
	entry, result, runsFor, runsAgainst, notes int
}

func (s Section) gameColumns() gameColumns {
	first := columnIndex(s.Name)
	return gameColumns{
		entry:       first,
		result:      first + 1,
		runsFor:     first + 2,
		runsAgainst: first + 3,
		notes:       columnIndex(s.To),
	}
}

// rosterColumns resolves a player table.
type rosterColumns struct {
	name, jersey int
}

func (s Section) rosterColumns() rosterColumns {
	return rosterColumns{name: columnIndex(s.Name), jersey: columnIndex(s.Jersey)}
}
