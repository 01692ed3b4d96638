package main

import (
	"context"
	"testing"

	"github.com/gridmind/deepq/internal/agent"
	"github.com/gridmind/deepq/internal/game/reversi"
	"github.com/gridmind/deepq/internal/nn"
	"github.com/gridmind/deepq/internal/replay"
	"github.com/gridmind/deepq/internal/state"
	"github.com/stretchr/testify/require"
)

// zeroNet is an nn.Learner predicting zero for every action, so the behavior
// policy stays on its uniform-random fallback.
type zeroNet struct {
	actionSize int
}

func (n *zeroNet) Predict(states []state.Grid, turns []float32) [][]float32 {
	out := make([][]float32, len(states))
	for ii := range states {
		out[ii] = make([]float32, n.actionSize)
	}
	return out
}

func (n *zeroNet) TrainOnBatch(states []state.Grid, turns []float32, targets [][]float32) float32 {
	return 0
}

func (n *zeroNet) Weights() nn.Weights { return nil }

func (n *zeroNet) SetWeights(w nn.Weights) error { return nil }

func (n *zeroNet) Save() error { return nil }

func (n *zeroNet) ActionSize() int { return n.actionSize }

func (n *zeroNet) String() string { return "zero" }

var _ nn.Learner = (*zeroNet)(nil)

func TestPlayMatchTerminalLabels(t *testing.T) {
	net := &zeroNet{actionSize: reversi.ActionSize}
	// A replay bound far below a match's length must not disturb the
	// per-player terminal labels: staging is independent of the buffer.
	ag := agent.New(agent.Config{ActionSize: reversi.ActionSize, MaxBufferSize: 5}, net, net)

	transitions, winner, err := playMatch(context.Background(), ag)
	require.NoError(t, err)
	require.Greater(t, len(transitions), 5)

	var done []replay.Transition
	lastByTurn := map[float32]int{}
	for idx, tr := range transitions {
		lastByTurn[tr.Turn] = idx
		if tr.Done {
			done = append(done, tr)
		}
	}
	// Both players moved, and each player's final move carries the terminal
	// label.
	require.Len(t, lastByTurn, 2)
	require.Len(t, done, 2)
	for _, idx := range lastByTurn {
		require.True(t, transitions[idx].Done)
	}

	// Terminal rewards are zero-sum, and non-zero for a decided game.
	require.Equal(t, float32(0), done[0].Reward+done[1].Reward)
	if winner != reversi.NoPlayer {
		require.NotZero(t, done[0].Reward)
	}

	// All other transitions are unlabeled.
	for idx, tr := range transitions {
		if idx == lastByTurn[tr.Turn] {
			continue
		}
		require.False(t, tr.Done)
		require.Zero(t, tr.Reward)
	}
}

func TestTrainIterationSyncEveryDisabled(t *testing.T) {
	oldSyncEvery, oldTrainSteps := *flagSyncEvery, *flagTrainSteps
	defer func() { *flagSyncEvery, *flagTrainSteps = oldSyncEvery, oldTrainSteps }()
	*flagSyncEvery = 0
	*flagTrainSteps = 4

	net := &zeroNet{actionSize: reversi.ActionSize}
	ag := agent.New(agent.Config{ActionSize: reversi.ActionSize, BatchSize: 1}, net, net)
	for range 2 {
		ag.Insert(replay.Transition{Done: true, ValidActions: []int{0}})
	}
	require.NotPanics(t, func() { trainIteration(context.Background(), ag) })
	require.Zero(t, ag.BufferLen())
}
