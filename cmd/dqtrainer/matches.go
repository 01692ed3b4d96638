package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gridmind/deepq/internal/agent"
	"github.com/gridmind/deepq/internal/game/reversi"
	"github.com/gridmind/deepq/internal/replay"
	"github.com/gridmind/deepq/internal/state"
	"github.com/gridmind/deepq/internal/ui/cli"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

var (
	flagNumMatches  = flag.Int("num_matches", 50, "Number of self-play matches per iteration.")
	flagMaxMoves    = flag.Int("max_moves", 120, "Max moves before a match is abandoned as a draw.")
	flagParallelism = flag.Int("parallelism", 0, "If > 0 ignore GOMAXPROCS and play "+
		"these many matches simultaneously.")
	flagPrintSteps = flag.Bool("print_steps", false, "Print the board at each step. "+
		"Very verbose; you probably want parallelism=1 with this.")
)

var (
	stepUI   = cli.New(true)
	muStepUI sync.Mutex
)

func getParallelism() int {
	if *flagParallelism > 0 {
		return *flagParallelism
	}
	return runtime.GOMAXPROCS(0)
}

// runMatches plays numMatches self-play matches in parallel. Each worker
// accumulates its match's transitions locally and inserts them into the
// agent's central replay buffer under the collector lock when the match
// finishes -- the agent itself is not safe for concurrent insertion.
func runMatches(ctx context.Context, numMatches int, ag *agent.Agent) (aWins, bWins, draws int, err error) {
	var muCollect sync.Mutex
	var wg errgroup.Group
	parallelism := getParallelism()
	wg.SetLimit(parallelism)

	var count int
	start := time.Now()
	printUpdate := func() {
		elapsed := time.Since(start)
		fmt.Printf("\r\tRunning matches (parallelism=%d): %5d of %d finished in %s\x1b[0K",
			parallelism, count, numMatches, elapsed)
	}
	printUpdate()

	for range numMatches {
		wg.Go(func() error {
			transitions, winner, matchErr := playMatch(ctx, ag)
			if matchErr != nil || ctx.Err() != nil {
				return matchErr
			}
			muCollect.Lock()
			defer muCollect.Unlock()
			for _, t := range transitions {
				ag.Insert(t)
			}
			switch winner {
			case reversi.PlayerA:
				aWins++
			case reversi.PlayerB:
				bWins++
			default:
				draws++
			}
			count++
			printUpdate()
			return nil
		})
	}
	err = wg.Wait()
	printUpdate()
	fmt.Println()
	return
}

// playMatch plays one self-play match with the behavior policy and returns
// its transitions, terminal rewards already assigned to each player's final
// move. The transitions are staged in a plain slice -- a match is bounded by
// -max_moves, and the agent's replay bound must not evict entries mid-match,
// or the per-player indices below would go stale.
func playMatch(ctx context.Context, ag *agent.Agent) ([]replay.Transition, state.Cell, error) {
	matchID := uuid.NewString()
	if klog.V(1).Enabled() {
		klog.Infof("Starting match %s", matchID)
		defer klog.Infof("Finished match %s", matchID)
	}

	game := reversi.New()
	transitions := make([]replay.Transition, 0, *flagMaxMoves)
	lastByPlayer := map[state.Cell]int{}

	for !game.IsOver() && len(transitions) < *flagMaxMoves {
		if ctx.Err() != nil {
			return nil, reversi.NoPlayer, nil
		}
		mover := game.Turn
		turnValue := game.TurnValue()
		before := game.Board
		valid := game.ValidMoves()
		action := ag.BehaviorPolicy(game, &before, turnValue, valid)
		game.Apply(action)

		transitions = append(transitions, replay.Transition{
			State:        before,
			Action:       action,
			NextState:    game.Board,
			ValidActions: game.ValidMoves(),
			Turn:         turnValue,
		})
		lastByPlayer[mover] = len(transitions) - 1

		if *flagPrintSteps {
			muStepUI.Lock()
			stepUI.PrintBoard(game)
			muStepUI.Unlock()
		}
	}

	winner := reversi.NoPlayer
	if game.IsOver() {
		winner = game.Winner()
	}
	for player, idx := range lastByPlayer {
		transitions[idx].Done = true
		transitions[idx].Reward = game.Reward(player)
	}
	return transitions, winner, nil
}
