package gomlxnn

import (
	"testing"

	"github.com/gridmind/deepq/internal/state"
	"github.com/stretchr/testify/require"
)

// hostQNet builds a QNet without executors: enough for the host-side tensor
// conversion paths.
func hostQNet(actionSize, batchSize int) *QNet {
	return &QNet{name: "test", actionSize: actionSize, batchSize: batchSize, ctx: newQNetContext()}
}

func TestPaddedSize(t *testing.T) {
	q := hostQNet(64, 128)
	wantPaddedSizes := []int{1, 8, 8, 8, 8, 8, 8, 8, 12, 12, 12, 12, 18, 18, 18, 18, 18, 18}
	for ii, want := range wantPaddedSizes {
		require.Equal(t, want, q.paddedSize(ii+1), "paddedSize(%d)", ii+1)
	}
	// The configured batch size never pads.
	require.Equal(t, 128, q.paddedSize(128))
}

func TestCreateInputs(t *testing.T) {
	q := hostQNet(64, 128)
	var g1, g2 state.Grid
	g1[0][0] = 1
	g2[7][7] = 2

	inputs := q.createInputs([]state.Grid{g1, g2}, []float32{1, 2})
	require.Len(t, inputs, 3)
	statesT, turnsT, numUsedT := inputs[0], inputs[1], inputs[2]

	padded := q.paddedSize(2)
	require.Equal(t, []int{padded, state.Size, state.Size, 1}, statesT.Shape().Dimensions)
	require.Equal(t, []int{padded, 1}, turnsT.Shape().Dimensions)

	states := statesT.Value().([][][][]float32)
	require.Equal(t, float32(1), states[0][0][0][0])
	require.Equal(t, float32(2), states[1][7][7][0])
	require.Equal(t, float32(0), states[2][0][0][0]) // padding rows stay zero

	turns := turnsT.Value().([][]float32)
	require.Equal(t, float32(1), turns[0][0])
	require.Equal(t, float32(2), turns[1][0])

	var numUsed int32 = 2
	require.Equal(t, numUsed, numUsedT.Value().(int32))
}

func TestCreateLabels(t *testing.T) {
	q := hostQNet(4, 128)
	row0 := []float32{1, 2, 3, 4}
	row1 := []float32{5, 6, 7, 8}
	labelsT := q.createLabels([][]float32{row0, row1})

	padded := q.paddedSize(2)
	require.Equal(t, []int{padded, 4}, labelsT.Shape().Dimensions)
	labels := labelsT.Value().([][]float32)
	require.Equal(t, row0, labels[0])
	require.Equal(t, row1, labels[1])
	require.Equal(t, []float32{0, 0, 0, 0}, labels[2])
}
