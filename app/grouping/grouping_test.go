package grouping

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotloader/app/interfaces"
)

func row(kv ...any) *interfaces.Row {
	r := interfaces.NewRow(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1].(interfaces.Value))
	}
	return r
}

func TestGroupRows_DiscoveryOrder(t *testing.T) {
	rows := []*interfaces.Row{
		row("k", interfaces.String("b"), "i", interfaces.Number(0)),
		row("k", interfaces.String("a"), "i", interfaces.Number(1)),
		row("k", interfaces.String("b"), "i", interfaces.Number(2)),
		row("k", interfaces.String("c"), "i", interfaces.Number(3)),
		row("k", interfaces.String("a"), "i", interfaces.Number(4)),
	}

	p := GroupRows(rows, "k")
	assert.Equal(t, []string{"b", "a", "c"}, p.Keys)
	assert.Equal(t, 3, p.Len())

	b := p.Rows("b")
	require.Len(t, b, 2)
	assert.Same(t, rows[0], b[0])
	assert.Same(t, rows[2], b[1])

	ordered := p.Ordered()
	require.Len(t, ordered, 3)
	assert.Equal(t, "b", ordered[0].Key)
	assert.Equal(t, Palette[0], ordered[0].Color)
	assert.Equal(t, Palette[2], ordered[2].Color)
}

func TestGroupRows_StringForms(t *testing.T) {
	rows := []*interfaces.Row{
		row("k", interfaces.Number(1)),
		row("k", interfaces.String("1")),
		row("k", interfaces.Null()),
		row("other", interfaces.String("x")),
		row("k", interfaces.Bool(true)),
		row("k", interfaces.Number(0.5)),
	}

	p := GroupRows(rows, "k")
	assert.Equal(t, []string{"1", "null", "undefined", "true", "0.5"}, p.Keys)
	assert.Len(t, p.Rows("1"), 2, "number 1 and string \"1\" share a group")
}

func TestGroupRows_PartitionCoversInput(t *testing.T) {
	var rows []*interfaces.Row
	for i := 0; i < 50; i++ {
		rows = append(rows, row("k", interfaces.String(strconv.Itoa(i%7)), "i", interfaces.Number(float64(i))))
	}

	p := GroupRows(rows, "k")
	total := 0
	for _, k := range p.Keys {
		group := p.Rows(k)
		total += len(group)
		for i := 1; i < len(group); i++ {
			assert.Less(t, group[i-1].Value("i").Num, group[i].Value("i").Num, "input order kept within group %s", k)
		}
		for _, r := range group {
			assert.Equal(t, k, r.Value("k").String())
		}
	}
	assert.Equal(t, len(rows), total)
}

func TestGroupRows_Empty(t *testing.T) {
	p := GroupRows(nil, "k")
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Ordered())
}

func TestColorAt_Cycles(t *testing.T) {
	require.Len(t, Palette, 10)
	for i := 0; i < 25; i++ {
		assert.Equal(t, Palette[i%10], ColorAt(i))
	}
	assert.Equal(t, "#1f77b4", ColorAt(10))
	assert.Equal(t, "#ff7f0e", ColorAt(11))
}
