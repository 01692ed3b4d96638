package gomlxnn

import (
	"fmt"
	"sync"

	"github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/checkpoints"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/ml/train/optimizers"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gridmind/deepq/internal/generics"
	"github.com/gridmind/deepq/internal/nn"
	"github.com/gridmind/deepq/internal/parameters"
	"github.com/gridmind/deepq/internal/state"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// QNet is a GoMLX-backed Q-network: it implements nn.Learner for the residual
// convolutional model in model.go.
type QNet struct {
	name       string
	actionSize int

	// ctx holds the model weights and hyperparameters.
	ctx *context.Context

	// Executors.
	scoreExec, lossExec, trainStepExec *context.Exec

	// checkpoint handler, if the network is being saved/loaded to/from disk.
	checkpoint *checkpoints.Handler

	// Hyperparameters cached values: they are also set in ctx.
	batchSize int

	// optimizer used by TrainOnBatch.
	optimizer optimizers.Interface

	// muLearning: "write" for learning and weight overwrites, "read" for
	// scoring.
	muLearning sync.RWMutex
}

// Assert QNet implements nn.Learner.
var _ nn.Learner = (*QNet)(nil)

// NewQNet creates a Q-network over an action space of actionSize, with
// hyperparameters taken from params (see newQNetContext for defaults). If
// checkpointDir is not empty the network is attached to it, and previously
// saved weights are restored.
//
// Unknown keys are left in params, so callers can detect typos after all
// components consumed their share.
func NewQNet(name string, actionSize int, checkpointDir string, params parameters.Params) (*QNet, error) {
	q := &QNet{
		name:       name,
		actionSize: actionSize,
		ctx:        newQNetContext(),
	}
	if err := extractParams(params, q.ctx); err != nil {
		return nil, err
	}
	q.batchSize = context.GetParamOr(q.ctx, "batch_size", 128)

	if checkpointDir != "" {
		var err error
		q.checkpoint, err = checkpoints.Build(q.ctx).Dir(checkpointDir).Immediate().Keep(10).Done()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to attach %s to checkpoint directory %q", name, checkpointDir)
		}
	}

	// Create the backend and the executors.
	_ = backend()
	muNewExec.Lock()
	q.scoreExec = context.NewExec(backend(), q.ctx,
		func(ctx *context.Context, inputs []*graph.Node) *graph.Node {
			ctx = ctx.Checked(false)
			return q.ForwardGraph(ctx, inputs)
		})
	q.lossExec = context.NewExec(backend(), q.ctx,
		func(ctx *context.Context, inputsAndLabels []*graph.Node) *graph.Node {
			inputs := inputsAndLabels[:len(inputsAndLabels)-1]
			labels := inputsAndLabels[len(inputsAndLabels)-1]
			loss := q.LossGraph(ctx, inputs, labels)
			if !loss.IsScalar() {
				loss = graph.ReduceAllMean(loss)
			}
			return loss
		})
	q.optimizer = optimizers.FromContext(q.ctx)
	q.trainStepExec = context.NewExec(backend(), q.ctx,
		func(ctx *context.Context, inputsAndLabels []*graph.Node) *graph.Node {
			inputs := inputsAndLabels[:len(inputsAndLabels)-1]
			labels := inputsAndLabels[len(inputsAndLabels)-1]
			g := labels.Graph()
			ctx.SetTraining(g, true)
			loss := q.LossGraph(ctx, inputs, labels)
			q.optimizer.UpdateGraph(ctx, g, loss)
			train.ExecPerStepUpdateGraphFn(ctx, g)
			return loss
		})
	muNewExec.Unlock()

	// Force creation (or loading) of all forward-path variables.
	var zero state.Grid
	_ = q.Predict([]state.Grid{zero}, []float32{0})
	klog.V(1).Infof("Created Q-network %s", q)
	return q, nil
}

// newQNetContext returns a fresh context with the default hyperparameters.
func newQNetContext() *context.Context {
	ctx := context.New()
	ctx.RngStateReset()
	ctx.SetParams(map[string]any{
		"batch_size": 128,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 0.001,
		optimizers.ParamAdamEpsilon:  1e-7,
	})
	return ctx.Checked(false)
}

// String implements fmt.Stringer and nn.Predictor.
func (q *QNet) String() string {
	if q == nil {
		return "<nil>[GoMLX]"
	}
	if q.checkpoint == nil {
		return fmt.Sprintf("%s[GoMLX]", q.name)
	}
	return fmt.Sprintf("%s[GoMLX]@%s", q.name, q.checkpoint.Dir())
}

// ActionSize implements nn.Learner.
func (q *QNet) ActionSize() int { return q.actionSize }

// BatchSize returns the batch size hyperparameter, as an optimization hint.
func (q *QNet) BatchSize() int { return q.batchSize }

// Predict implements nn.Predictor: it returns one row of per-action value
// estimates per input state.
func (q *QNet) Predict(states []state.Grid, turns []float32) [][]float32 {
	inputs := q.createInputs(states, turns)

	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	donated := generics.SliceMap(inputs, func(t *tensors.Tensor) any {
		return graph.DonateTensorBuffer(t, backend())
	})
	scoresT := q.scoreExec.Call(donated...)[0]
	scores := scoresT.Value().([][]float32)
	// Drop any padding.
	return scores[:len(states)]
}

// TrainOnBatch implements nn.Learner: one optimization step toward the given
// target rows, returning the scalar loss.
func (q *QNet) TrainOnBatch(states []state.Grid, turns []float32, targets [][]float32) float32 {
	q.muLearning.Lock()
	defer q.muLearning.Unlock()
	lossT := q.trainStepExec.Call(q.createInputsAndLabels(states, turns, targets)...)[0]
	return tensors.ToScalar[float32](lossT)
}

// Loss returns the current loss for the batch without updating any weights.
func (q *QNet) Loss(states []state.Grid, turns []float32, targets [][]float32) float32 {
	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	lossT := q.lossExec.Call(q.createInputsAndLabels(states, turns, targets)...)[0]
	return tensors.ToScalar[float32](lossT)
}

func (q *QNet) createInputsAndLabels(states []state.Grid, turns []float32, targets [][]float32) []any {
	inputs := q.createInputs(states, turns)
	inputs = append(inputs, q.createLabels(targets))
	return generics.SliceMap(inputs, func(t *tensors.Tensor) any {
		return graph.DonateTensorBuffer(t, backend())
	})
}

// weightEntry is one variable of a weights snapshot.
type weightEntry struct {
	scope, name string
	value       *tensors.Tensor
}

// weightsSnapshot is the nn.Weights implementation of QNet: an independent
// copy of every variable of the network's context.
type weightsSnapshot struct {
	entries []weightEntry
}

// Weights implements nn.Learner. The returned snapshot owns cloned tensors:
// training this network afterwards does not change the snapshot.
func (q *QNet) Weights() nn.Weights {
	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	snapshot := &weightsSnapshot{}
	q.ctx.EnumerateVariables(func(v *context.Variable) {
		snapshot.entries = append(snapshot.entries, weightEntry{
			scope: v.Scope(),
			name:  v.Name(),
			value: v.Value().LocalClone(),
		})
	})
	return snapshot
}

// SetWeights implements nn.Learner: it overwrites this network's parameters
// with a snapshot taken from a structurally identical QNet. Variables missing
// here (e.g. optimizer slots the source network accumulated) are created.
func (q *QNet) SetWeights(w nn.Weights) error {
	snapshot, ok := w.(*weightsSnapshot)
	if !ok {
		return errors.Errorf("%s: SetWeights got %T, want a QNet weights snapshot", q, w)
	}
	q.muLearning.Lock()
	defer q.muLearning.Unlock()
	for _, entry := range snapshot.entries {
		v := q.ctx.GetVariableByScopeAndName(entry.scope, entry.name)
		if v == nil {
			q.ctx.InAbsPath(entry.scope).VariableWithValue(entry.name, entry.value.LocalClone())
			continue
		}
		v.SetValue(entry.value.LocalClone())
	}
	return nil
}

// Save implements nn.Learner: it creates a new checkpoint with the network's
// current weights. It is a no-op for networks without a checkpoint directory.
func (q *QNet) Save() error {
	if q.checkpoint == nil {
		klog.Warningf("%s is not attached to a checkpoint directory, not saving", q)
		return nil
	}
	q.muLearning.RLock()
	defer q.muLearning.RUnlock()
	return q.checkpoint.Save()
}
