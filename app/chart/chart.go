package chart

import (
	"strings"

	"github.com/pkg/errors"

	"plotloader/app/fields"
	"plotloader/app/grouping"
	"plotloader/app/interfaces"
)

// ErrUnknownChartKind is returned for chart kinds other than line, bar and scatter.
var ErrUnknownChartKind = errors.New("unknown chart kind")

// Kind is the chart type the user picked.
type Kind string

const (
	KindLine    Kind = "line"
	KindBar     Kind = "bar"
	KindScatter Kind = "scatter"
)

// ParseKind parses a chart kind name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLine, KindBar, KindScatter:
		return k, nil
	}
	return "", errors.Wrapf(ErrUnknownChartKind, "%q", s)
}

// TraceType is the plotting library's trace type for the kind.
func (k Kind) TraceType() string {
	if k == KindBar {
		return "bar"
	}
	return "scatter"
}

// Mode is the scatter drawing mode for the kind, empty for bars.
func (k Kind) Mode() string {
	switch k {
	case KindLine:
		return "lines"
	case KindScatter:
		return "markers"
	}
	return ""
}

// Selection names the columns mapped to the chart axes. Group is optional.
type Selection struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Group string `json:"group,omitempty"`
}

// Trace is one plotted series.
type Trace struct {
	Name  string
	Color string
	Kind  Kind
	X     []interfaces.Value
	Y     []interfaces.Value
}

// Map returns the trace in the plotting library's object form.
// Missing values are encoded as null, which plots as a gap.
func (t Trace) Map() map[string]any {
	m := map[string]any{
		"type":   t.Kind.TraceType(),
		"name":   t.Name,
		"x":      plain(t.X),
		"y":      plain(t.Y),
		"marker": map[string]any{"color": t.Color},
	}
	if mode := t.Kind.Mode(); mode != "" {
		m["mode"] = mode
	}
	if t.Kind == KindLine {
		m["line"] = map[string]any{"color": t.Color}
	}
	return m
}

func plain(values []interfaces.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Interface()
	}
	return out
}

// BuildTrace extracts parallel x and y arrays from rows, converting numeric
// values to numbers.
func BuildTrace(rows []*interfaces.Row, xKey, yKey, name, color string, kind Kind) Trace {
	t := Trace{
		Name:  name,
		Color: color,
		Kind:  kind,
		X:     make([]interfaces.Value, len(rows)),
		Y:     make([]interfaces.Value, len(rows)),
	}
	for i, row := range rows {
		t.X[i] = fields.Coerce(row.Value(xKey))
		t.Y[i] = fields.Coerce(row.Value(yKey))
	}
	return t
}

// BuildTraces builds the series for a selection. Without a group column there
// is one series named after the y column. With one, each group becomes a
// series named by its value and colored by discovery order.
func BuildTraces(rows []*interfaces.Row, sel Selection, kind Kind) []Trace {
	if sel.Group == "" {
		return []Trace{BuildTrace(rows, sel.X, sel.Y, sel.Y, grouping.ColorAt(0), kind)}
	}

	groups := grouping.GroupRows(rows, sel.Group).Ordered()
	traces := make([]Trace, 0, len(groups))
	for _, g := range groups {
		traces = append(traces, BuildTrace(g.Rows, sel.X, sel.Y, g.Key, g.Color, kind))
	}
	return traces
}

// Maps converts traces for encoding.
func Maps(traces []Trace) []map[string]any {
	out := make([]map[string]any, len(traces))
	for i, t := range traces {
		out[i] = t.Map()
	}
	return out
}
