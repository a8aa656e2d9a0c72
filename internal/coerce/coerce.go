// Package coerce turns loosely typed spreadsheet and CSV cells into the values
// the importers need. Nothing here returns an error: a cell that cannot be
// read as a number is zero, a blank name is blank.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Value normalizes a cell value from the various shapes the readers produce.
//
// CSV and excelize hand us strings, tests and JSON bodies hand us numbers.
// Strings tolerate surrounding whitespace and thousands separators.
//
// Returns the scalar float64 value, and ok=false if not extractable.
func Value(val interface{}) (float64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Int coerces a cell to an int, truncating fractions. Anything unreadable is 0.
func Int(val interface{}) int {
	f, ok := Value(val)
	if !ok {
		return 0
	}
	return int(f)
}

// Float coerces a cell to a float64. Anything unreadable is 0.
func Float(val interface{}) float64 {
	f, _ := Value(val)
	return f
}

// OptionalInt returns nil for a blank or non-numeric cell.
func OptionalInt(val interface{}) *int {
	f, ok := Value(val)
	if !ok {
		return nil
	}
	n := int(f)
	return &n
}

// String trims a cell. Numbers that are whole print without a decimal point.
func String(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Jersey normalizes a jersey number cell: "#7", " 7 " and "7.0" all become
// "7". "00" stays "00" since it is a different jersey from "0".
func Jersey(val interface{}) string {
	s := strings.TrimPrefix(String(val), "#")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.Atoi(strings.TrimSuffix(s, ".0")); err == nil {
			s = strings.TrimSuffix(s, ".0")
		}
	}
	return s
}

var handednessSuffix = regexp.MustCompile(`(?i)\s*\(\s*([RLS])\s*\)\s*$`)

// PlayerName strips a trailing "(R)", "(L)" or "(S)" handedness note and
// collapses inner whitespace. The result is the player's identity key.
func PlayerName(raw string) string {
	name, _ := SplitHandedness(raw)
	return name
}

// SplitHandedness returns the cleaned name and the upper-cased annotation
// letter, or "" if the name carried none.
func SplitHandedness(raw string) (string, string) {
	s := strings.TrimSpace(raw)
	hand := ""
	if m := handednessSuffix.FindStringSubmatch(s); m != nil {
		hand = strings.ToUpper(m[1])
		s = s[:len(s)-len(m[0])]
	}
	return strings.Join(strings.Fields(s), " "), hand
}

// WinLoss normalizes a result cell to W, L or T. Unrecognized text is kept
// as-is so nothing the coach typed is lost.
func WinLoss(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "":
		return ""
	case "w", "win", "won":
		return "W"
	case "l", "loss", "lost":
		return "L"
	case "t", "tie", "tied":
		return "T"
	}
	return s
}

// Column-header literals that show up in the name and jersey columns of the
// workbook tables. A row carrying one of these is a header or summary row.
var (
	headerNames = map[string]struct{}{
		"": {}, "player": {}, "players": {}, "name": {}, "totals": {}, "#": {},
	}
	headerJerseys = map[string]struct{}{
		"#": {}, "no": {}, "no.": {}, "num": {}, "number": {}, "jersey": {},
	}
)

// IsHeaderName reports whether a name cell is a column label or summary row
// label rather than a player.
func IsHeaderName(cell string) bool {
	_, ok := headerNames[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// IsHeaderJersey reports whether a jersey cell is a column label.
func IsHeaderJersey(cell string) bool {
	_, ok := headerJerseys[strings.ToLower(strings.TrimSpace(cell))]
	return ok
}

// IsHeaderRow reports whether a (name, jersey) pair belongs to a header or
// totals row.
func IsHeaderRow(name, jersey string) bool {
	return IsHeaderName(name) || IsHeaderJersey(jersey)
}
