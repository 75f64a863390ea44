package grouping

import (
	"plotloader/app/interfaces"
)

// Group is one partition of a row set.
type Group struct {
	Key   string
	Color string
	Rows  []*interfaces.Row
}

// Partition maps group keys to their rows. Keys lists the keys in the order
// they were first seen, which is also the order groups are drawn in.
type Partition struct {
	Keys   []string
	Groups map[string][]*interfaces.Row
}

// Len returns the number of groups.
func (p *Partition) Len() int {
	return len(p.Keys)
}

// Rows returns the rows of the group named key.
func (p *Partition) Rows(key string) []*interfaces.Row {
	return p.Groups[key]
}

// Ordered returns the groups in discovery order with their palette colors.
func (p *Partition) Ordered() []Group {
	groups := make([]Group, 0, len(p.Keys))
	for i, k := range p.Keys {
		groups = append(groups, Group{Key: k, Color: ColorAt(i), Rows: p.Groups[k]})
	}
	return groups
}

// GroupRows partitions rows by the string form of their value at key.
// A row without the key lands in the "undefined" group and a null value in
// the "null" group. Row order is preserved inside each group.
func GroupRows(rows []*interfaces.Row, key string) *Partition {
	p := &Partition{Groups: make(map[string][]*interfaces.Row)}
	for _, row := range rows {
		k := row.Value(key).String()
		if _, seen := p.Groups[k]; !seen {
			p.Keys = append(p.Keys, k)
		}
		p.Groups[k] = append(p.Groups[k], row)
	}
	return p
}
