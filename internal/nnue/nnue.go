// Package nnue implements a small neural network evaluator for shogi with
// king-bucketed piece and hand features.
package nnue

import "github.com/hailam/shogiplay/internal/board"

// Network architecture constants
const (
	// Board features: every piece type (kings included) of both colors on every square.
	NumBoardFeatures = board.NumPieceTypes * 2 * board.NumSquares // 2268

	// Hand features: one per (color, hand type, count) with count >= 1.
	NumHandFeatures = 2 * handSlots // 76

	// FeaturesPerBucket is the piece and hand feature count of one king bucket.
	FeaturesPerBucket = NumBoardFeatures + NumHandFeatures // 2344

	// NumKingBuckets splits the own king's squares into three by three regions.
	NumKingBuckets = 9

	// FeatureSize is the input width per perspective.
	FeatureSize = NumKingBuckets * FeaturesPerBucket

	// Network dimensions
	L1Size = 256 // Transformed features per perspective
	L2Size = 32  // Hidden layer

	// Quantization constants
	L1QuantShift = 6   // L1 output scaled by 2^6
	L2QuantShift = 6   // L2 output scaled by 2^6
	OutputScale  = 600 // Final scale to centipawns
)

// ClampedReLU clamps value to [0, 127] for quantized inference.
func ClampedReLU(x int16) int8 {
	if x < 0 {
		return 0
	}
	if x > 127 {
		return 127
	}
	return int8(x)
}

// Evaluator evaluates positions with a loaded network. It keeps no
// per-position state, so one Evaluator can serve every search worker.
type Evaluator struct {
	net *Network
}

// NewEvaluator creates a new NNUE evaluator.
// If weightsFile is empty, uses random weights for testing.
func NewEvaluator(weightsFile string) (*Evaluator, error) {
	net := NewNetwork()

	if weightsFile != "" {
		if err := net.LoadWeights(weightsFile); err != nil {
			return nil, err
		}
	} else {
		net.InitRandom(12345) // For testing only
	}

	return &Evaluator{net: net}, nil
}

// NewEvaluatorFromNetwork wraps an existing network.
func NewEvaluatorFromNetwork(net *Network) *Evaluator {
	return &Evaluator{net: net}
}

// Evaluate returns NNUE evaluation for the position.
// Returns score in centipawns from side to move's perspective.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	var acc Accumulator
	acc.ComputeFull(pos, e.net)
	return e.net.Forward(&acc, pos.SideToMove)
}

// Network returns the underlying network.
func (e *Evaluator) Network() *Network {
	return e.net
}
