package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotRollbackLIFO(t *testing.T) {
	l := New[int, string]()
	l.Push(1, "a")
	s1 := l.Snapshot()
	l.Push(2, "b")
	s2 := l.Snapshot()
	l.Push(3, "c")

	require.Equal(t, 3, l.Len())
	l.Rollback(s2)
	require.Equal(t, 2, l.Len())
	v, m, ok := l.Top()
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, "b", m)

	l.Rollback(s1)
	require.Equal(t, 1, l.Len())
}

func TestRollbackBeyondCurrentLengthPanics(t *testing.T) {
	l := New[int, string]()
	l.Push(1, "a")
	snap := l.Snapshot()
	l.Rollback(snap)
	require.Panics(t, func() {
		l.Rollback(Snapshot(5))
	})
}

func TestCounterCollapsesWithinEpoch(t *testing.T) {
	c := NewCounter[int, string]()
	c.Update(1, "x")
	c.Update(2, "y") // no snapshot since last push: collapses
	v, m, ok := c.Top()
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, "y", m)
	require.Equal(t, 1, c.list.Len())

	snap := c.Snapshot()
	c.Update(3, "z") // snapshot taken: pushes anew
	require.Equal(t, 2, c.list.Len())

	c.Rollback(snap)
	v, _, ok = c.Top()
	require.True(t, ok)
	require.Equal(t, 2, v)
}
