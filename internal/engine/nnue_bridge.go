package engine

import (
	"fmt"

	"github.com/hailam/shogiplay/internal/board"
	"github.com/hailam/shogiplay/internal/nnue"
)

// NNUEEvaluator adapts the network evaluator to the search. It refreshes the
// accumulator from scratch on every call and keeps no state, so all workers
// can share one instance; pair it with a CachedEvaluator to avoid repeats.
type NNUEEvaluator struct {
	net *nnue.Evaluator
}

// NewNNUEEvaluator loads weightsFile. An empty name selects deterministic
// random weights, which only make sense in tests.
func NewNNUEEvaluator(weightsFile string) (*NNUEEvaluator, error) {
	net, err := nnue.NewEvaluator(weightsFile)
	if err != nil {
		return nil, fmt.Errorf("load network %q: %w", weightsFile, err)
	}
	return &NNUEEvaluator{net: net}, nil
}

// Evaluate implements Evaluator.
func (e *NNUEEvaluator) Evaluate(pos *board.Position) int {
	return clamp(e.net.Evaluate(pos), -mateBound+1, mateBound-1)
}
