package fields

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"plotloader/app/interfaces"
)

// ParseFloat parses the longest numeric prefix of s the way browsers'
// parseFloat does: leading whitespace and U+FEFF are skipped, then an optional sign
// followed by digits with optional fraction and exponent, or "Infinity".
// Anything after the prefix is ignored, so "42abc" gives 42.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '\uFEFF' })

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN(), false
	}
	end := i

	// Exponent only counts when at least one digit follows it.
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			end = j
		}
	}

	// The prefix is well formed; a range error still yields ±Inf or 0.
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsNumeric reports whether v can be plotted on a numeric axis: a finite
// number, or a string whose numeric prefix is finite. Infinity, NaN, empty
// strings, booleans, null and missing values are not numeric.
func IsNumeric(v interfaces.Value) bool {
	switch v.Kind {
	case interfaces.KindNumber:
		return !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0)
	case interfaces.KindString:
		f, ok := ParseFloat(v.Str)
		return ok && !math.IsInf(f, 0)
	default:
		return false
	}
}

// IsColumnNumeric reports whether every row holds a numeric value at key.
// An empty row set is numeric.
func IsColumnNumeric(rows []*interfaces.Row, key string) bool {
	for _, row := range rows {
		if !IsNumeric(row.Value(key)) {
			return false
		}
	}
	return true
}

// Coerce converts numeric values to numbers and returns everything else
// unchanged.
func Coerce(v interfaces.Value) interfaces.Value {
	switch v.Kind {
	case interfaces.KindNumber:
		return v
	case interfaces.KindString:
		if f, ok := ParseFloat(v.Str); ok && !math.IsInf(f, 0) {
			return interfaces.Number(f)
		}
	}
	return v
}

// ColumnInfo describes one selectable column.
type ColumnInfo struct {
	Key     string `json:"key"`
	Numeric bool   `json:"numeric"`
	Present int    `json:"present"` // rows that carry the key
}

// ClassifyColumns describes every column of the table in Columns() order.
func ClassifyColumns(table *interfaces.Table) []ColumnInfo {
	columns := table.Columns()
	infos := make([]ColumnInfo, 0, len(columns))
	for _, key := range columns {
		present := 0
		for _, row := range table.Rows {
			if _, ok := row.Get(key); ok {
				present++
			}
		}
		infos = append(infos, ColumnInfo{
			Key:     key,
			Numeric: IsColumnNumeric(table.Rows, key),
			Present: present,
		})
	}
	return infos
}
