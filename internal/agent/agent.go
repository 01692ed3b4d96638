// Package agent implements the Q-learning agent: the dual-network TD update
// over a replay buffer, the visit-count bookkeeping, and the two action
// selection policies (UCT-style exploratory and greedy).
//
// An Agent owns its replay buffer and visit counter explicitly; components
// that need them receive the Agent. All methods assume a single controlling
// loop: with parallel self-play, stage transitions per worker and insert them
// into the agent's buffer under a single lock (see cmd/dqtrainer).
package agent

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/gomlx/exceptions"
	"github.com/gridmind/deepq/internal/nn"
	"github.com/gridmind/deepq/internal/replay"
	"github.com/gridmind/deepq/internal/state"
	"github.com/gridmind/deepq/internal/visits"
	"k8s.io/klog/v2"
)

// RewardScale divides raw environment rewards before they enter the training
// target.
const RewardScale = float32(100.0)

// Environment is the narrow capability the behavior policy needs from the
// game: a pure lookahead of the state an action leads to, with no side
// effects.
type Environment interface {
	SimulateNextState(action int) state.Grid
}

// Config holds the agent's hyperparameters.
type Config struct {
	// ActionSize is the size of the discrete action space. It must match the
	// action size of the networks; New panics on a mismatch.
	ActionSize int

	// BatchSize of each training step. Defaults to 128.
	BatchSize int

	// Gamma is the discount factor of the TD target. Defaults to 0.99.
	Gamma float32

	// MaxBufferSize is the replay buffer's soft bound. Defaults to 10000.
	MaxBufferSize int
}

func (cfg Config) withDefaults() Config {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 128
	}
	if cfg.Gamma == 0 {
		cfg.Gamma = 0.99
	}
	if cfg.MaxBufferSize == 0 {
		cfg.MaxBufferSize = 10000
	}
	return cfg
}

// Agent ties the function approximator pair to the replay buffer and the
// visit counter.
type Agent struct {
	cfg    Config
	online nn.Learner
	target nn.Learner
	buffer *replay.Buffer
	counts *visits.Counter
}

// New creates an Agent from an already-synchronized online/target pair (see
// gomlxnn.NewPair) and an empty buffer and visit-count table. It panics if
// the configured action size disagrees with the networks'.
func New(cfg Config, online, target nn.Learner) *Agent {
	cfg = cfg.withDefaults()
	if cfg.ActionSize != online.ActionSize() || cfg.ActionSize != target.ActionSize() {
		exceptions.Panicf("agent: config action size %d does not match the networks (online=%d, target=%d)",
			cfg.ActionSize, online.ActionSize(), target.ActionSize())
	}
	return &Agent{
		cfg:    cfg,
		online: online,
		target: target,
		buffer: replay.New(cfg.MaxBufferSize),
		counts: visits.NewCounter(),
	}
}

// Config returns the agent's (defaulted) configuration.
func (a *Agent) Config() Config { return a.cfg }

// BufferLen returns the number of transitions currently in the replay buffer.
func (a *Agent) BufferLen() int { return a.buffer.Len() }

// Insert records one transition of experience into the replay buffer.
func (a *Agent) Insert(t replay.Transition) {
	a.buffer.Insert(t)
}

// Drain removes and returns the buffer's entire contents, e.g. to hand
// accumulated experience to a central collector.
func (a *Agent) Drain() []replay.Transition {
	return a.buffer.Drain()
}

// VisitCount returns how many training-time visits have been recorded for g.
func (a *Agent) VisitCount(g *state.Grid) int {
	return a.counts.Count(g)
}

// TrainStep consumes one minibatch from the replay buffer and performs a
// single gradient step of the online network.
//
// The training target starts as the online network's own predictions, so only
// the acted-on action slot of each row carries a gradient signal. For that
// slot the target is reward/RewardScale, plus, on non-terminal transitions,
// gamma times the target network's bootstrap estimate maximized over the legal
// actions at the next state. Each sampled state is recorded in the visit
// counter exactly once.
//
// If the buffer holds fewer than BatchSize transitions no update is performed
// and ok is false.
func (a *Agent) TrainStep() (loss float32, ok bool) {
	batch := a.buffer.SampleAndConsume(a.cfg.BatchSize)
	if batch == nil {
		return 0, false
	}

	states := make([]state.Grid, len(batch))
	nextStates := make([]state.Grid, len(batch))
	turns := make([]float32, len(batch))
	for ii, t := range batch {
		states[ii] = t.State
		nextStates[ii] = t.NextState
		turns[ii] = t.Turn
	}

	targets := a.online.Predict(states, turns)
	// The bootstrap reuses the sampled turn values for the next states: turns
	// alternate in lockstep in the games this is used with.
	bootstrap := a.target.Predict(nextStates, turns)

	for ii, t := range batch {
		value := t.Reward / RewardScale
		if !t.Done {
			if len(t.ValidActions) == 0 {
				exceptions.Panicf("agent: non-terminal transition with empty valid-action list")
			}
			best := math32.Inf(-1)
			for _, action := range t.ValidActions {
				if bootstrap[ii][action] > best {
					best = bootstrap[ii][action]
				}
			}
			value += a.cfg.Gamma * best
		}
		targets[ii][t.Action] = value
		a.counts.Record(&batch[ii].State)
	}

	loss = a.online.TrainOnBatch(states, turns, targets)
	klog.V(2).Infof("TrainStep: batch=%d loss=%.5f", len(batch), loss)
	return loss, true
}

// SyncTarget overwrites the target network with the online network's current
// parameters. The caller decides the cadence: it is never invoked implicitly.
func (a *Agent) SyncTarget() error {
	return a.target.SetWeights(a.online.Weights())
}

// Save persists the target network's weights.
func (a *Agent) Save() error {
	return a.target.Save()
}

// BehaviorPolicy selects an action for self-play: target-network value
// estimates plus a UCT-style exploration bonus from the visit counts of the
// states each legal action leads to.
//
// With no visit data at all (total count 0) the bonus is degenerate, and the
// policy falls back to a uniformly random legal action. Reads only: neither
// the buffer nor the visit counter is mutated.
//
// An empty valid list is a precondition violation and panics.
func (a *Agent) BehaviorPolicy(env Environment, g *state.Grid, turn float32, valid []int) int {
	if len(valid) == 0 {
		exceptions.Panicf("agent: BehaviorPolicy called with no valid actions")
	}
	estimates := a.target.Predict([]state.Grid{*g}, []float32{turn})[0]

	counts := make([]int, len(valid))
	total := 0
	for ii, action := range valid {
		next := env.SimulateNextState(action)
		counts[ii] = a.counts.Count(&next)
		total += counts[ii]
	}
	if total == 0 {
		return valid[rand.IntN(len(valid))]
	}

	best := valid[0]
	bestScore := math32.Inf(-1)
	for ii, action := range valid {
		score := estimates[action] + math32.Sqrt(2*math32.Log(float32(total))/float32(1+counts[ii]))
		if score > bestScore {
			best = action
			bestScore = score
		}
	}
	return best
}

// EstimatePolicy selects the legal action with the highest target-network
// value estimate, breaking ties by first occurrence.
//
// An empty valid list is a precondition violation and panics.
func (a *Agent) EstimatePolicy(g *state.Grid, turn float32, valid []int) int {
	if len(valid) == 0 {
		exceptions.Panicf("agent: EstimatePolicy called with no valid actions")
	}
	estimates := a.target.Predict([]state.Grid{*g}, []float32{turn})[0]
	best := valid[0]
	bestScore := math32.Inf(-1)
	for _, action := range valid {
		if estimates[action] > bestScore {
			best = action
			bestScore = estimates[action]
		}
	}
	return best
}
