package utils

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCircularQueueDropsOldest(t *testing.T) {
	q := NewCircularQueue[int](3, nil)
	for i := 1; i <= 3; i++ {
		_, dropped, err := q.Append(i)
		require.NoError(t, err)
		require.False(t, dropped)
	}

	old, dropped, err := q.Append(4)
	require.NoError(t, err)
	require.True(t, dropped)
	require.Equal(t, 1, old)
	require.Equal(t, []int{2, 3, 4}, slices.Collect(q.Iter()))

	last, ok := q.Last()
	require.True(t, ok)
	require.Equal(t, 4, last)
	require.Equal(t, 3, q.Len())
	require.Equal(t, 3, q.Cap())
}

func TestCircularQueuePopAndGet(t *testing.T) {
	q := NewCircularQueue[int](4, nil)
	for i := range 6 {
		_, _, err := q.Append(i)
		require.NoError(t, err)
	}

	first, err := q.Get(0)
	require.NoError(t, err)
	require.Equal(t, 2, first)

	_, err = q.Get(4)
	require.Error(t, err)

	item, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, item)
	require.NoError(t, q.Set(0, 30))
	require.Equal(t, []int{30, 4, 5}, slices.Collect(q.Iter()))

	q.Clear()
	require.Equal(t, 0, q.Len())
	_, ok = q.Pop()
	require.False(t, ok)
	_, ok = q.Last()
	require.False(t, ok)
}

func TestCircularQueueZeroCapacity(t *testing.T) {
	q := NewCircularQueue[int](0, nil)
	_, _, err := q.Append(1)
	require.Error(t, err)
}
