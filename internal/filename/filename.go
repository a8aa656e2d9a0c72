// Package filename recovers game metadata from conventionally named export
// files such as "game2_sep6_vipers.csv".
package filename

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Info is what a filename told us. Every field is zero when the name does not
// follow the convention; there is no partial credit.
type Info struct {
	GameNumber *int   `json:"game_num"`
	GameDate   string `json:"game_date,omitempty"`
	Opponent   string `json:"opponent,omitempty"`
}

// Matched reports whether the name followed the convention.
func (i Info) Matched() bool {
	return i.GameNumber != nil
}

// game<N>_<month><day>_<opponent-slug>
var pattern = regexp.MustCompile(`(?i)^game(\d+)_([a-z]{3,})(\d{1,2})_(.+)$`)

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Parse extracts game number, "M/D" date and title-cased opponent from a
// file name. Any directory part and the extension are ignored.
func Parse(name string) Info {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	m := pattern.FindStringSubmatch(stem)
	if m == nil {
		return Info{}
	}

	num, err := strconv.Atoi(m[1])
	if err != nil {
		return Info{}
	}
	month := monthNumber(m[2])
	if month == 0 {
		return Info{}
	}
	day, err := strconv.Atoi(m[3])
	if err != nil || day < 1 || day > 31 {
		return Info{}
	}
	slug := strings.Trim(strings.ReplaceAll(m[4], "_", " "), " ")
	if slug == "" {
		return Info{}
	}

	return Info{
		GameNumber: &num,
		GameDate:   strconv.Itoa(month) + "/" + strconv.Itoa(day),
		Opponent:   cases.Title(language.English).String(strings.Join(strings.Fields(slug), " ")),
	}
}

// monthNumber resolves an English month name or prefix of at least three
// letters ("sep", "sept", "september") to 1-12, or 0.
func monthNumber(abbrev string) int {
	a := strings.ToLower(abbrev)
	if len(a) < 3 {
		return 0
	}
	for i, m := range months {
		if strings.HasPrefix(m, a) {
			return i + 1
		}
	}
	return 0
}

// Stem returns the file name without directory or extension, the last-resort
// opponent label.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
