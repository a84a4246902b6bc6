package nnue

import "github.com/hailam/shogiplay/internal/board"

// hiddenLayer maps both perspectives' clipped activations to L2Size neurons.
// Weights are stored per output neuron.
type hiddenLayer struct {
	Weights [L2Size][L1Size * 2]int8
	Bias    [L2Size]int32
}

func (l *hiddenLayer) propagate(in *[L1Size * 2]int8, out *[L2Size]int8) {
	for o := range out {
		sum := l.Bias[o]
		row := &l.Weights[o]
		for i, x := range in {
			sum += int32(x) * int32(row[i])
		}
		out[o] = ClampedReLU(clampInt16(sum >> L1QuantShift))
	}
}

type outputLayer struct {
	Weights [L2Size]int8
	Bias    int32
}

func (l *outputLayer) propagate(in *[L2Size]int8) int32 {
	sum := l.Bias
	for i, x := range in {
		sum += int32(x) * int32(l.Weights[i])
	}
	return sum
}

// Network holds the weights of the shogi evaluator.
//
// The feature transformer turns the active king-bucketed piece and hand
// features of each perspective into L1Size activations. Alongside it every
// feature carries a material weight that bypasses the hidden layers, so the
// output is a positional term from the layers plus half the material balance
// of the two perspectives.
type Network struct {
	FeatureWeights  [FeatureSize][L1Size]int16
	FeatureBias     [L1Size]int16
	MaterialWeights [FeatureSize]int32

	Hidden hiddenLayer
	Output outputLayer
}

// NewNetwork creates a network with zero weights (must load weights or init random).
func NewNetwork() *Network {
	return &Network{}
}

// Forward computes the evaluation in centipawns for the side to move.
func (n *Network) Forward(acc *Accumulator, sideToMove board.Color) int {
	them := sideToMove.Other()

	var l1 [L1Size * 2]int8
	for i, v := range &acc.Values[sideToMove] {
		l1[i] = ClampedReLU(v)
	}
	for i, v := range &acc.Values[them] {
		l1[L1Size+i] = ClampedReLU(v)
	}

	var l2 [L2Size]int8
	n.Hidden.propagate(&l1, &l2)
	positional := n.Output.propagate(&l2) * OutputScale >> (L2QuantShift + 8)

	material := (acc.Material[sideToMove] - acc.Material[them]) / 2
	return int(positional + material)
}

func clampInt16(v int32) int16 {
	return int16(max(-32768, min(32767, v)))
}

func clampInt8(v int16) int8 {
	return int8(max(-128, min(127, v)))
}

// initMaterial sets every feature's material weight to its piece value.
func (n *Network) initMaterial() {
	for b := 0; b < NumKingBuckets; b++ {
		for local := 0; local < FeaturesPerBucket; local++ {
			n.MaterialWeights[b*FeaturesPerBucket+local] = featureMaterial(local)
		}
	}
}

// InitRandom fills the layers with small deterministic values and the
// material weights with piece values. Only tests and weightless runs use it.
func (n *Network) InitRandom(seed int64) {
	state := uint64(seed)
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state>>48)&0xFF) - 128
	}

	for i := range n.FeatureWeights {
		for j := range n.FeatureWeights[i] {
			n.FeatureWeights[i][j] = next() >> 5
		}
	}
	for i := range n.FeatureBias {
		n.FeatureBias[i] = next() >> 3
	}
	for o := range n.Hidden.Weights {
		for i := range n.Hidden.Weights[o] {
			n.Hidden.Weights[o][i] = clampInt8(next() >> 6)
		}
		n.Hidden.Bias[o] = int32(next())
	}
	for i := range n.Output.Weights {
		n.Output.Weights[i] = clampInt8(next() >> 6)
	}
	n.Output.Bias = int32(next()) * 100
	n.initMaterial()
}
