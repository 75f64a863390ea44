package interfaces

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies which scalar a Value holds.
type ValueKind int

const (
	// KindAbsent marks a key that is missing from a row.
	KindAbsent ValueKind = iota
	KindNull
	KindString
	KindNumber
	KindBool
)

// String returns the string representation of ValueKind
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "absent"
	}
}

// Value is a flat cell value. Nested structure never reaches a Row: the
// extractors collapse objects and arrays into compound keys first.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// Absent is the zero Value, returned for missing keys.
var Absent = Value{}

// Null returns the JSON null value.
func Null() Value { return Value{Kind: KindNull} }

// String wraps s.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps f.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool wraps b.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsAbsent reports whether the value stands for a missing key.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// String renders the value the way a browser's String() would, which is what
// group partitions are keyed by.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindString:
		return v.Str
	case KindNumber:
		return FormatNumber(v.Num)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return "undefined"
	}
}

// Interface returns the value as a plain Go value for encoders:
// nil, string, float64 or bool.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// FormatNumber formats f in the shortest round-trip form, switching to
// exponent notation outside [1e-6, 1e21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits ("1e+06"); strip that.
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row is an insertion-ordered mapping from column key to Value.
type Row struct {
	keys   []string
	values map[string]Value
}

// NewRow returns an empty row with room for n keys.
func NewRow(n int) *Row {
	return &Row{
		keys:   make([]string, 0, n),
		values: make(map[string]Value, n),
	}
}

// Set assigns v to key. Re-assigning an existing key keeps its position.
func (r *Row) Set(key string, v Value) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value at key and whether the key is present.
func (r *Row) Get(key string) (Value, bool) {
	if r == nil {
		return Absent, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value at key, or Absent.
func (r *Row) Value(key string) Value {
	v, _ := r.Get(key)
	return v
}

// Keys returns the row's keys in insertion order. The slice must not be modified.
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	return r.keys
}

// Len returns the number of keys.
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns an independent copy of the row.
func (r *Row) Clone() *Row {
	c := NewRow(len(r.keys))
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// Merge copies every key of other into r, in other's order.
func (r *Row) Merge(other *Row) {
	for _, k := range other.Keys() {
		r.Set(k, other.values[k])
	}
}

// Map returns the row as a plain map for encoders.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k].Interface()
	}
	return m
}

// FileType represents the type of data file being processed
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeDelimited
	FileTypeJSON
	FileTypeXML
)

// String returns the string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeDelimited:
		return "Delimited"
	case FileTypeJSON:
		return "JSON"
	case FileTypeXML:
		return "XML"
	default:
		return "Unknown"
	}
}

// ParseWarning is a non-fatal problem found while reading a file.
type ParseWarning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Table is the result of one ingestion pass. It is never modified after
// it has been handed to a session.
type Table struct {
	Source    string   // file name the table was loaded from
	Type      FileType // adapter that produced the rows
	Delimiter rune     // delimiter used for delimited text, 0 otherwise
	ArrayPath []string // JSON path segments of the row-generating array, nil if none
	Rows      []*Row
	Warnings  []ParseWarning
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Columns returns the keys of the first row. This is the field list offered
// for selection, so the first row must be representative.
func (t *Table) Columns() []string {
	if t.Len() == 0 {
		return nil
	}
	keys := t.Rows[0].Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// AllColumns returns the union of all row keys in first-seen order.
func (t *Table) AllColumns() []string {
	if t.Len() == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		for _, k := range r.Keys() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// HasColumn reports whether key is one of Columns().
func (t *Table) HasColumn(key string) bool {
	if t.Len() == 0 {
		return false
	}
	_, ok := t.Rows[0].Get(key)
	return ok
}
