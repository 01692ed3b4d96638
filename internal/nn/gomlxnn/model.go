package gomlxnn

import (
	"fmt"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/layers/batchnorm"
	"github.com/gomlx/gomlx/ml/train/losses"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gridmind/deepq/internal/state"
)

// Residual stack configuration: 3 blocks of 64 filters, then 4 blocks of 128
// filters with a 1x1 projection on the first block to match channels.
const (
	numBlocksStage1 = 3
	numBlocksStage2 = 4
	filtersStage1   = 64
	filtersStage2   = 128
)

// paddedSize returns the padded batch size for numStates examples, so that the
// backend only compiles a limited number of graph specializations.
func (q *QNet) paddedSize(numStates int) int {
	if numStates == 1 {
		// Single-state inference (policy queries) is always supported unpadded.
		return numStates
	}
	if numStates == q.batchSize {
		return numStates
	}
	paddedSize := 8
	for paddedSize < numStates {
		// Increase 1.5x at a time.
		paddedSize = paddedSize + (paddedSize+1)/2
	}
	return paddedSize
}

// createInputs converts a batch of grids and turn values to the model's input
// tensors: states shaped [batch, 8, 8, 1], turns shaped [batch, 1] and the
// used (un-padded) batch size as a scalar.
func (q *QNet) createInputs(states []state.Grid, turns []float32) []*tensors.Tensor {
	padded := q.paddedSize(len(states))
	statesT := tensors.FromShape(shapes.Make(dtypes.Float32, padded, state.Size, state.Size, 1))
	tensors.MutableFlatData(statesT, func(flat []float32) {
		for stateIdx := range states {
			base := stateIdx * state.NumCells
			for cellIdx := range state.NumCells {
				flat[base+cellIdx] = float32(states[stateIdx].At(cellIdx))
			}
		}
	})
	turnsT := tensors.FromShape(shapes.Make(dtypes.Float32, padded, 1))
	tensors.MutableFlatData(turnsT, func(flat []float32) {
		copy(flat, turns)
	})
	return []*tensors.Tensor{statesT, turnsT, tensors.FromScalar(int32(len(states)))}
}

// createLabels converts per-action target rows to a [batch, actionSize]
// tensor, padded to match the inputs.
func (q *QNet) createLabels(targets [][]float32) *tensors.Tensor {
	padded := q.paddedSize(len(targets))
	labelsT := tensors.FromShape(shapes.Make(dtypes.Float32, padded, q.actionSize))
	tensors.MutableFlatData(labelsT, func(flat []float32) {
		for rowIdx, row := range targets {
			copy(flat[rowIdx*q.actionSize:], row)
		}
	})
	return labelsT
}

// getBatchMask returns a [batch, 1] boolean mask that is false on padded rows.
func (q *QNet) getBatchMask(inputs []*Node) *Node {
	statesInput := inputs[0]
	usedBatchSize := inputs[2]
	g := statesInput.Graph()
	batchSize := statesInput.Shape().Dim(0)
	return LessThan(Iota(g, shapes.Make(dtypes.Int32, batchSize, 1), 0), usedBatchSize)
}

// residualBlock is two 3x3 convolutions with batch normalization plus the
// identity shortcut. When project is true the shortcut goes through a 1x1
// convolution, used where the number of channels changes.
func residualBlock(ctx *context.Context, x *Node, filters int, project bool) *Node {
	shortcut := x
	if project {
		shortcut = layers.Convolution(ctx.In("proj"), shortcut).Filters(filters).KernelSize(1).PadSame().Done()
		shortcut = batchnorm.New(ctx.In("proj_norm"), shortcut, -1).Done()
	}
	out := layers.Convolution(ctx.In("conv_a"), x).Filters(filters).KernelSize(3).PadSame().Done()
	out = batchnorm.New(ctx.In("norm_a"), out, -1).Done()
	out = activations.Relu(out)
	out = layers.Convolution(ctx.In("conv_b"), out).Filters(filters).KernelSize(3).PadSame().Done()
	out = batchnorm.New(ctx.In("norm_b"), out, -1).Done()
	out = Add(out, shortcut)
	return activations.Relu(out)
}

// ForwardGraph is the model graph: the turn value is broadcast to an extra
// input plane, concatenated to the board plane, and run through the stem
// convolution and the residual stack. It returns per-action value estimates
// shaped [batch, actionSize].
func (q *QNet) ForwardGraph(ctx *context.Context, inputs []*Node) *Node {
	statesInput := inputs[0]
	turnsInput := inputs[1]
	batchSize := statesInput.Shape().Dim(0)

	// Combine the board plane with the broadcast turn plane: [batch, 8, 8, 2].
	turnPlane := BroadcastToDims(
		Reshape(turnsInput, batchSize, 1, 1, 1),
		batchSize, state.Size, state.Size, 1)
	x := Concatenate([]*Node{statesInput, turnPlane}, -1)

	// Stem: 7x7/2 convolution, batch norm, relu and 3x3/2 max-pooling.
	x = layers.Convolution(ctx.In("stem"), x).Filters(filtersStage1).KernelSize(7).Strides(2).PadSame().Done()
	x = batchnorm.New(ctx.In("stem_norm"), x, -1).Done()
	x = activations.Relu(x)
	x = MaxPool(x).Window(3).Strides(2).PadSame().Done()

	for blockIdx := range numBlocksStage1 {
		x = residualBlock(ctx.In(fmt.Sprintf("stage1_block%d", blockIdx)), x, filtersStage1, false)
	}
	for blockIdx := range numBlocksStage2 {
		x = residualBlock(ctx.In(fmt.Sprintf("stage2_block%d", blockIdx)), x, filtersStage2, blockIdx == 0)
	}

	// Global average pooling over the spatial axes, then the linear head.
	x = ReduceMean(x, 1, 2)
	x = layers.DenseWithBias(ctx.In("head"), x, q.actionSize)
	x.AssertDims(batchSize, q.actionSize)
	return x
}

// LossGraph is the ordinary squared-error loss between predicted and target
// action-value rows, with padded rows masked out.
func (q *QNet) LossGraph(ctx *context.Context, inputs []*Node, labels *Node) *Node {
	predictions := q.ForwardGraph(ctx, inputs)
	batchMask := q.getBatchMask(inputs)
	return losses.MeanSquaredError([]*Node{labels, batchMask}, []*Node{predictions})
}
