package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotloader/app/interfaces"
)

func table(source string, rows int) *interfaces.Table {
	t := &interfaces.Table{Source: source}
	for i := 0; i < rows; i++ {
		r := interfaces.NewRow(1)
		r.Set("value", interfaces.String(fmt.Sprintf("%08d", i)))
		t.Rows = append(t.Rows, r)
	}
	return t
}

func TestKey(t *testing.T) {
	a, err := Key("a.csv", []byte("x,y\n1,2\n"), "")
	require.NoError(t, err)
	b, err := Key("other/b.CSV", []byte("x,y\n1,2\n"), "")
	require.NoError(t, err)
	c, err := Key("a.tsv", []byte("x,y\n1,2\n"), "")
	require.NoError(t, err)
	d, err := Key("a.csv", []byte("x,y\n1,3\n"), "")
	require.NoError(t, err)
	e, err := Key("a.json", []byte("x,y\n1,2\n"), "$.items")
	require.NoError(t, err)
	f, err := Key("a.json", []byte("x,y\n1,2\n"), "")
	require.NoError(t, err)

	assert.Equal(t, a, b, "same content and extension share a key")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.NotEqual(t, e, f)
}

func TestCache_GetPut(t *testing.T) {
	c := New(0, nil)
	tbl := table("a.csv", 3)

	_, ok := c.Get("k")
	assert.False(t, ok)

	require.True(t, c.Put("k", tbl))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Same(t, tbl, got)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
	assert.Equal(t, EstimateTableSize(tbl), stats.Size)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	size := EstimateTableSize(table("t", 10))
	c := New(size*2, nil)

	require.True(t, c.Put("a", table("t", 10)))
	require.True(t, c.Put("b", table("t", 10)))
	_, ok := c.Get("a") // b is now the oldest
	require.True(t, ok)

	require.True(t, c.Put("c", table("t", 10)))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_TooLarge(t *testing.T) {
	c := New(100, nil)
	assert.False(t, c.Put("big", table("big.csv", 100)))
	assert.Equal(t, 0, c.Len())
}

func TestCache_ReplaceKeepsSizeConsistent(t *testing.T) {
	c := New(0, nil)
	c.Put("k", table("t", 10))
	c.Put("k", table("t", 2))
	assert.Equal(t, EstimateTableSize(table("t", 2)), c.Stats().Size)
	assert.Equal(t, 1, c.Len())
}

func TestCache_UpdateMaxSizeEvicts(t *testing.T) {
	size := EstimateTableSize(table("t", 5))
	c := New(size*4, nil)
	for _, k := range []string{"a", "b", "c", "d"} {
		require.True(t, c.Put(k, table("t", 5)))
	}

	c.UpdateMaxSize(size * 2)
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("d")
	assert.True(t, ok)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_RemoveAndClear(t *testing.T) {
	c := New(0, nil)
	c.Put("a", table("t", 1))
	c.Put("b", table("t", 1))

	c.Remove("a")
	assert.Equal(t, 1, c.Len())
	c.Remove("missing")

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Stats().Size)
}

func TestCache_Concurrent(t *testing.T) {
	c := New(EstimateTableSize(table("t", 1))*8, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%16)
				if _, ok := c.Get(key); !ok {
					c.Put(key, table("t", 1))
				}
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Size, stats.MaxSize)
	assert.Equal(t, int64(800), stats.Hits+stats.Misses)
}

func TestLRUList(t *testing.T) {
	l := newLRUList[string]()
	l.touch("a")
	l.touch("b")
	l.touch("c")
	l.touch("a")
	l.remove("c")

	oldest, ok := l.popOldest()
	require.True(t, ok)
	assert.Equal(t, "b", oldest)
	oldest, ok = l.popOldest()
	require.True(t, ok)
	assert.Equal(t, "a", oldest)
	_, ok = l.popOldest()
	assert.False(t, ok)
	assert.Equal(t, 0, l.len())
}
