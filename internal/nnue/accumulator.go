package nnue

import "github.com/hailam/shogiplay/internal/board"

// Accumulator holds the transformed features of both perspectives: the
// hidden activations and the summed material weights.
type Accumulator struct {
	Values   [2][L1Size]int16
	Material [2]int32
}

// ComputeFull computes the accumulator from scratch for a position.
func (acc *Accumulator) ComputeFull(pos *board.Position, net *Network) {
	var buf [MaxActiveFeatures]int
	for perspective := board.Black; perspective <= board.White; perspective++ {
		copy(acc.Values[perspective][:], net.FeatureBias[:])
		acc.Material[perspective] = 0
		for _, idx := range AppendActiveFeatures(pos, perspective, buf[:0]) {
			acc.add(net, perspective, idx)
		}
	}
}

func (acc *Accumulator) add(net *Network, perspective board.Color, idx int) {
	v, w := &acc.Values[perspective], &net.FeatureWeights[idx]
	for i := range v {
		v[i] += w[i]
	}
	acc.Material[perspective] += net.MaterialWeights[idx]
}
