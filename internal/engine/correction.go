package engine

import (
	"github.com/hailam/shogiplay/internal/board"
)

const (
	correctionSize  = 1 << 18
	correctionMask  = correctionSize - 1
	handCorrSize    = 1 << 14
	handCorrMask    = handCorrSize - 1
	correctionLimit = 16000
	correctionGrain = 16
)

// CorrectionHistory adjusts static evaluation based on search results.
// When the search finds the static eval was wrong, the error is recorded
// under the position hash and under the hand configuration, and later
// applied to positions sharing either key.
type CorrectionHistory struct {
	positionCorr [2][correctionSize]int16
	handCorr     [2][handCorrSize]int16
}

// NewCorrectionHistory creates a new correction history table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

func positionIndex(hash uint64) int {
	return int((hash ^ hash>>18) & correctionMask)
}

// handIndex mixes both hands into a small key.
func handIndex(pos *board.Position) int {
	var h uint64
	for c := range pos.Hands {
		for pt, n := range pos.Hands[c] {
			h = h*31 + uint64(n) + uint64(c*board.NumHandTypes+pt)
		}
	}
	h *= 0x9E3779B97F4A7C15
	return int(h >> 50 & handCorrMask)
}

// Get returns the correction to add to the static evaluation.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	us := pos.SideToMove
	p := int(ch.positionCorr[us][positionIndex(pos.Hash)])
	h := int(ch.handCorr[us][handIndex(pos)])
	return (p*2 + h) / (3 * correctionGrain)
}

// Update records the difference between the search result and the static eval.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}
	bonus := clamp((searchScore-staticEval)*depth*correctionGrain/8, -256*correctionGrain, 256*correctionGrain)
	us := pos.SideToMove

	update := func(slot *int16) {
		old := int(*slot)
		*slot = int16(clamp(old+(bonus-old)/16, -correctionLimit, correctionLimit))
	}
	update(&ch.positionCorr[us][positionIndex(pos.Hash)])
	update(&ch.handCorr[us][handIndex(pos)])
}

// Clear resets all correction values.
func (ch *CorrectionHistory) Clear() {
	clear(ch.positionCorr[0][:])
	clear(ch.positionCorr[1][:])
	clear(ch.handCorr[0][:])
	clear(ch.handCorr[1][:])
}

// Age scales down all correction values (called between games).
func (ch *CorrectionHistory) Age() {
	for c := range ch.positionCorr {
		for i := range ch.positionCorr[c] {
			ch.positionCorr[c][i] /= 2
		}
		for i := range ch.handCorr[c] {
			ch.handCorr[c][i] /= 2
		}
	}
}
