// Package gomlxnn implements the nn.Learner contract on GoMLX, with the
// residual convolutional Q-network used for 8x8 boards.
//
// The package provides two entry points:
//
//   - QNet: a single network (model graph + executors + optimizer).
//   - Pair: the online/target network pair used by the agent, with the
//     explicit online->target synchronization and checkpointing.
//
// The backend (XLA or the pure Go simplego) must be linked in by the final
// binary, e.g. with `import _ "github.com/gomlx/gomlx/backends/default"`.
package gomlxnn

import (
	"sync"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gridmind/deepq/internal/parameters"
	"github.com/pkg/errors"
)

var (
	// backend is a singleton, shared by all networks.
	backend = sync.OnceValue(func() backends.Backend { return backends.New() })

	// muNewExec synchronizes executor creation, which is not reentrant.
	muNewExec sync.Mutex
)

// extractParams overwrites the context hyperparameters from the user-provided
// params map, converting each value to the type of the context default.
func extractParams(params parameters.Params, ctx *context.Context) error {
	var err error
	ctx.EnumerateParams(func(scope, key string, valueAny any) {
		if err != nil || scope != context.RootScope {
			return
		}
		switch defaultValue := valueAny.(type) {
		case string:
			value, _ := parameters.PopParamOr(params, key, defaultValue)
			ctx.SetParam(key, value)
		case int:
			value, newErr := parameters.PopParamOr(params, key, defaultValue)
			if newErr != nil {
				err = errors.WithMessagef(newErr, "parsing %q (int)", key)
				return
			}
			ctx.SetParam(key, value)
		case float64:
			value, newErr := parameters.PopParamOr(params, key, defaultValue)
			if newErr != nil {
				err = errors.WithMessagef(newErr, "parsing %q (float64)", key)
				return
			}
			ctx.SetParam(key, value)
		case float32:
			value, newErr := parameters.PopParamOr(params, key, defaultValue)
			if newErr != nil {
				err = errors.WithMessagef(newErr, "parsing %q (float32)", key)
				return
			}
			ctx.SetParam(key, value)
		case bool:
			value, newErr := parameters.PopParamOr(params, key, defaultValue)
			if newErr != nil {
				err = errors.WithMessagef(newErr, "parsing %q (bool)", key)
				return
			}
			ctx.SetParam(key, value)
		default:
			err = errors.Errorf("hyperparameter %q is of unsupported type %T", key, defaultValue)
		}
	})
	return err
}
