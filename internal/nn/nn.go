// Package nn defines the contracts a function approximator has to implement
// to be usable as the Q-network of the agent.
//
// The network maps a batch of (board, turn) pairs to one value estimate per
// action of the (fixed) action space. The exact topology behind the mapping is
// not part of the contract; see the gomlxnn package for the implementation
// used in production.
package nn

import (
	"github.com/gridmind/deepq/internal/state"
)

// Predictor estimates per-action values for a batch of states.
type Predictor interface {
	// Predict returns one row per input state, each row holding the value
	// estimates for every action of the action space.
	Predict(states []state.Grid, turns []float32) [][]float32

	String() string
}

// Weights is an opaque snapshot of a network's full parameter state. It can
// only be restored into a network of identical structure. Implementations
// must return independent copies: mutating the source network after taking a
// snapshot must not change the snapshot.
type Weights any

// Learner is a Predictor that can be trained and snapshotted. The agent keeps
// two of them: the online network, updated on every training step, and the
// target network, overwritten from an online snapshot on explicit request.
type Learner interface {
	Predictor

	// TrainOnBatch performs one optimization step toward the given per-action
	// target rows, using a squared-error loss, and returns the scalar loss.
	TrainOnBatch(states []state.Grid, turns []float32, targets [][]float32) float32

	// Weights returns a snapshot of the network's parameters.
	Weights() Weights

	// SetWeights overwrites the network's parameters from a snapshot taken
	// from a structurally identical network.
	SetWeights(w Weights) error

	// Save persists the network's current parameters, if the network is
	// attached to durable storage. It is a no-op otherwise.
	Save() error

	// ActionSize returns the size of the action space the network predicts
	// over.
	ActionSize() int
}
