package engine

import (
	"math"
	"strconv"

	"github.com/hailam/shogiplay/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128

	// mateBound separates mate scores from ordinary evaluations.
	mateBound = MateScore - MaxPly
)

// Pruning constants
const (
	rfpMaxDepth      = 6
	rfpMargin        = 90  // per ply
	futilityMaxDepth = 3
	seePruneMargin   = -100 // per ply, captures below are skipped
	deltaMargin      = 200  // quiescence delta pruning
	aspirationWindow = 50
	aspirationDepth  = 5
	maxQuiescencePly = 32
)

// futilityMargins by remaining depth.
var futilityMargins = [futilityMaxDepth + 1]int{0, 200, 300, 500}

// lmrReductions is the late move reduction table, 21.46 * ln(depth) * ln(moveCount) / 1024
// scaled up for shogi's wider trees.
var lmrReductions [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrReductions[d][m] = int(0.5 + math.Log(float64(d))*math.Log(float64(m))/2.1)
		}
	}
}

// SearchConfig toggles the pruning and reduction gates of the search.
// A worker copies it into locals at each node, so a profile costs
// nothing once the search is running.
type SearchConfig struct {
	NullMove          bool
	ReverseFutility   bool
	Futility          bool
	LateMoveReduction bool
	SEEPruning        bool
	Aspiration        bool
	CorrectionHistory bool
}

var (
	// FullProfile enables every gate and is the default.
	FullProfile = SearchConfig{
		NullMove:          true,
		ReverseFutility:   true,
		Futility:          true,
		LateMoveReduction: true,
		SEEPruning:        true,
		Aspiration:        true,
		CorrectionHistory: true,
	}

	// BasicProfile is a plain alpha-beta search with quiescence.
	BasicProfile = SearchConfig{}
)

// PVTable stores the principal variation.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

// update makes m followed by the child line the PV at ply.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = max(pv.length[ply+1], ply+1)
}

// line returns a copy of the root PV.
func (pv *PVTable) line() []board.Move {
	out := make([]board.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return abs(score) >= mateBound
}

// ScoreToString converts a score to USI format ("cp 35" or "mate 5").
func ScoreToString(score int) string {
	if score >= mateBound {
		return "mate " + strconv.Itoa(MateScore-score)
	}
	if score <= -mateBound {
		return "mate -" + strconv.Itoa(MateScore+score)
	}
	return "cp " + strconv.Itoa(score)
}
