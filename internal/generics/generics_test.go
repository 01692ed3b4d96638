package generics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceMap(t *testing.T) {
	require.Equal(t, []int{2, 4, 6}, SliceMap([]int{1, 2, 3}, func(e int) int { return 2 * e }))
	require.Empty(t, SliceMap(nil, func(e int) int { return e }))
}
