// Package a1 formats and parses spreadsheet ranges in A1 notation.
package a1

import (
	"fmt"
	"strconv"
	"strings"
)

// Column returns the letters for a 1-based column index (1 -> A, 27 -> AA).
func Column(index int) string {
	if index <= 0 {
		return ""
	}
	var b []byte
	for index > 0 {
		index--
		b = append([]byte{byte('A' + index%26)}, b...)
		index /= 26
	}
	return string(b)
}

// ColumnIndex returns the 1-based index of column letters, or 0 if invalid.
func ColumnIndex(letters string) int {
	letters = strings.ToUpper(letters)
	if letters == "" {
		return 0
	}
	n := 0
	for _, c := range letters {
		if c < 'A' || c > 'Z' {
			return 0
		}
		n = n*26 + int(c-'A'+1)
	}
	return n
}

// Cell formats a single cell reference such as "F12".
func Cell(col, row int) string {
	return Column(col) + strconv.Itoa(row)
}

// Sheet qualifies a range with a sheet name. Names that are not plain
// identifiers are quoted the way the remote store expects.
func Sheet(name, rng string) string {
	if name == "" {
		return rng
	}
	if needsQuote(name) {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'!" + rng
	}
	return name + "!" + rng
}

func needsQuote(name string) bool {
	for _, c := range name {
		if !(c == '_' || c == ' ' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return true
		}
	}
	return false
}

// Rect formats "A2:K10" from 1-based corners.
func Rect(fromCol, fromRow, toCol, toRow int) string {
	return Cell(fromCol, fromRow) + ":" + Cell(toCol, toRow)
}

// Range is a parsed A1 range. Zero bounds mean open-ended: "A:D" has no rows,
// "A2:A" has no end row.
type Range struct {
	Sheet   string
	FromCol int
	FromRow int
	ToCol   int
	ToRow   int
}

// Parse parses "Sheet!A1:B2", "Sheet!A:D", "Sheet!A2:A", "'My Sheet'!F3" and
// unqualified forms.
func Parse(s string) (Range, error) {
	var r Range
	rest := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		r.Sheet = unquoteSheet(s[:i])
		rest = s[i+1:]
	}
	if rest == "" {
		return r, fmt.Errorf("a1: empty range in %q", s)
	}
	from, to, hasTo := strings.Cut(rest, ":")
	var err error
	r.FromCol, r.FromRow, err = parseRef(from)
	if err != nil {
		return r, fmt.Errorf("a1: %q: %w", s, err)
	}
	if !hasTo {
		r.ToCol, r.ToRow = r.FromCol, r.FromRow
		return r, nil
	}
	r.ToCol, r.ToRow, err = parseRef(to)
	if err != nil {
		return r, fmt.Errorf("a1: %q: %w", s, err)
	}
	if r.ToCol != 0 && r.FromCol > r.ToCol || r.ToRow != 0 && r.FromRow > r.ToRow {
		return r, fmt.Errorf("a1: %q: inverted range", s)
	}
	return r, nil
}

// Contains reports whether the 1-based cell lies inside the range.
func (r Range) Contains(col, row int) bool {
	if col < r.FromCol || r.ToCol != 0 && col > r.ToCol {
		return false
	}
	if r.FromRow != 0 && row < r.FromRow || r.ToRow != 0 && row > r.ToRow {
		return false
	}
	return true
}

func unquoteSheet(name string) string {
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

func parseRef(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && (ref[i] >= 'A' && ref[i] <= 'Z' || ref[i] >= 'a' && ref[i] <= 'z') {
		i++
	}
	if i > 0 {
		col = ColumnIndex(ref[:i])
	}
	if i < len(ref) {
		row, err = strconv.Atoi(ref[i:])
		if err != nil || row <= 0 {
			return 0, 0, fmt.Errorf("bad row in %q", ref)
		}
	}
	if col == 0 && row == 0 {
		return 0, 0, fmt.Errorf("bad reference %q", ref)
	}
	return col, row, nil
}
