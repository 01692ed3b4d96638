// dqtrainer trains the Reversi Q-network by iterating self-play and training
// phases: matches are played in parallel with the current target network,
// their transitions are drained into the agent's replay buffer, and then a
// round of training steps updates the online network, with periodic
// online->target synchronization.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gridmind/deepq/internal/agent"
	"github.com/gridmind/deepq/internal/game/reversi"
	"github.com/gridmind/deepq/internal/nn/gomlxnn"
	"github.com/gridmind/deepq/internal/parameters"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

var (
	flagCheckpoint = flag.String("checkpoint", "", "Directory to save/restore the model weights. "+
		"If empty the model is not persisted.")
	flagParams = flag.String("params", "", "Comma-separated hyperparameters, e.g. "+
		"\"batch_size=128,gamma=0.99,buffer_size=10000,learning_rate=0.001\".")
	flagNumIterations = flag.Int("num_iterations", 0, "Number of iterations of self-play and then train. "+
		"A value of <= 0 means to train indefinitely, until interrupted.")
	flagTrainSteps = flag.Int("train_steps", 200, "Max number of training steps per iteration. "+
		"Each step consumes one minibatch from the replay buffer; the iteration stops early when "+
		"the buffer runs low.")
	flagSyncEvery = flag.Int("sync_every", 50, "Copy the online network into the target network "+
		"every these many training steps. A value of <= 0 synchronizes only at the end of "+
		"each iteration.")
)

// createAgent builds the network pair and the agent from the -params flag.
func createAgent() (*agent.Agent, error) {
	params := parameters.NewFromConfigString(*flagParams)
	cfg := agent.Config{ActionSize: reversi.ActionSize}
	var err error
	// batch_size is shared with the network context, which pops it later.
	if cfg.BatchSize, err = parameters.GetParamOr(params, "batch_size", 128); err != nil {
		return nil, err
	}
	if cfg.Gamma, err = parameters.PopParamOr(params, "gamma", float32(0.99)); err != nil {
		return nil, err
	}
	if cfg.MaxBufferSize, err = parameters.PopParamOr(params, "buffer_size", 10000); err != nil {
		return nil, err
	}

	pair, err := gomlxnn.NewPair(reversi.ActionSize, *flagCheckpoint, params)
	if err != nil {
		return nil, err
	}
	for key := range params {
		return nil, errors.Errorf("unknown parameter %q in -params", key)
	}
	return agent.New(cfg, pair.Online, pair.Target), nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	// Capture Control+C.
	globalCtx, globalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer globalCancel()

	ag := must.M1(createAgent())

	for iteration := 0; *flagNumIterations <= 0 || iteration < *flagNumIterations; iteration++ {
		fmt.Printf("\nIteration: %d\n", iteration)
		aWins, bWins, draws := must.M3(runMatches(globalCtx, *flagNumMatches, ag))
		if globalCtx.Err() != nil {
			return
		}
		fmt.Printf("\t- %d/%d/%d A-wins/B-wins/draws, buffer=%d\n", aWins, bWins, draws, ag.BufferLen())

		trainIteration(globalCtx, ag)
		if globalCtx.Err() != nil {
			return
		}
		must.M(ag.Save())
	}
}

// trainIteration runs up to -train_steps training steps, synchronizing the
// target network on the -sync_every cadence and once more at the end.
func trainIteration(ctx context.Context, ag *agent.Agent) {
	losses := make([]float64, 0, *flagTrainSteps)
	for step := range *flagTrainSteps {
		if ctx.Err() != nil {
			return
		}
		loss, ok := ag.TrainStep()
		if !ok {
			klog.V(1).Infof("Buffer low after %d steps, ending training phase", step)
			break
		}
		losses = append(losses, float64(loss))
		if *flagSyncEvery > 0 && (step+1)%*flagSyncEvery == 0 {
			must.M(ag.SyncTarget())
		}
	}
	must.M(ag.SyncTarget())
	if len(losses) > 0 {
		fmt.Printf("\t- %d train steps, mean loss %.5f\n", len(losses), stat.Mean(losses, nil))
	} else {
		fmt.Printf("\t- no training: buffer below one batch\n")
	}
}
