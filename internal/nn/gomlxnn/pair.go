package gomlxnn

import (
	"maps"

	"github.com/gridmind/deepq/internal/parameters"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Pair is the online/target Q-network pair.
//
// The online network is updated by every training step; the target network is
// only overwritten by SyncTarget (or at construction), so it is a stable
// snapshot for bootstrap targets and for action selection.
//
// Saving persists the target network's weights; loading restores them and
// immediately makes both networks identical.
type Pair struct {
	Online, Target *QNet
}

// NewPair creates the pair over an action space of actionSize. If
// checkpointDir is non-empty and holds a previous checkpoint, both networks
// start from the saved weights; otherwise both start from the same random
// initialization.
func NewPair(actionSize int, checkpointDir string, params parameters.Params) (*Pair, error) {
	// The target network owns the checkpoint: it is the network whose weights
	// are persisted. It gets a copy of params, since extracting hyperparameters
	// pops the keys; the online network consumes the original map, so leftover
	// (unknown) keys remain visible to the caller.
	target, err := NewQNet("target", actionSize, checkpointDir, maps.Clone(params))
	if err != nil {
		return nil, err
	}
	online, err := NewQNet("online", actionSize, "", params)
	if err != nil {
		return nil, err
	}
	p := &Pair{Online: online, Target: target}

	// Both networks must start identical, whether or not a checkpoint was
	// restored into the target.
	if err := online.SetWeights(target.Weights()); err != nil {
		return nil, errors.WithMessage(err, "failed to initialize online network from target")
	}
	klog.V(1).Infof("Created Q-network pair: online=%s target=%s", online, target)
	return p, nil
}

// SyncTarget copies the online network's full parameter state into the target
// network, overwriting it. The copy is deep: later online updates don't leak
// into the target's snapshot.
func (p *Pair) SyncTarget() error {
	return p.Target.SetWeights(p.Online.Weights())
}

// Save persists the target network's current weights.
func (p *Pair) Save() error {
	return p.Target.Save()
}
