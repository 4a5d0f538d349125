package utils

import (
	"testing"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapToString(t *testing.T) {
	m := orderedmap.NewOrderedMap[string, any]()
	m.Set("seq", 12)
	m.Set("delta", 0.5)
	m.Set("mode", "falling")
	require.Equal(t, "[seq=12 delta=0.5 mode=falling]", OrderedMapToString(m))

	require.Equal(t, "[]", OrderedMapToString(orderedmap.NewOrderedMap[string, any]()))
}

func TestHasFlag(t *testing.T) {
	require.True(t, HasFlag(0b101, 2))
	require.False(t, HasFlag(0b101, 1))
}
