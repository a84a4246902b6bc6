// Package engine implements the shogi search engine.
package engine

import (
	"github.com/hailam/shogiplay/internal/board"
)

// Evaluator scores a position in centipawns from the side to move's point of view.
// Implementations must be safe for concurrent use by several workers.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// handValue is the value of a piece held in hand. A piece in hand can be
// dropped anywhere, so it is worth a little more than the same piece on the board.
var handValue [board.NumHandTypes]int

func init() {
	for pt := board.Pawn; pt < board.NumHandTypes; pt++ {
		handValue[pt] = board.PieceValue[pt] * 11 / 10
	}
}

// Mobility weights for the long-range pieces, per reachable square.
const (
	bishopMobility = 2
	rookMobility   = 2
	lanceMobility  = 1
)

// MaterialEvaluator counts material on the board and in hand, plus a small
// mobility term for the sliders.
type MaterialEvaluator struct{}

// Evaluate implements Evaluator.
func (MaterialEvaluator) Evaluate(pos *board.Position) int {
	us := pos.SideToMove
	score := evaluateSide(pos, us) - evaluateSide(pos, us.Other())
	return clamp(score, -mateBound+1, mateBound-1)
}

// Evaluate returns the material evaluation of pos.
func Evaluate(pos *board.Position) int {
	return MaterialEvaluator{}.Evaluate(pos)
}

// EvaluateMaterial returns only the material balance for the side to move.
func EvaluateMaterial(pos *board.Position) int {
	us := pos.SideToMove
	return material(pos, us) - material(pos, us.Other())
}

func material(pos *board.Position, c board.Color) int {
	score := 0
	for pt := board.Pawn; pt < board.NumPieceTypes; pt++ {
		if pt == board.King {
			continue
		}
		score += pos.Pieces[c][pt].PopCount() * board.PieceValue[pt]
	}
	for pt := board.Pawn; pt < board.NumHandTypes; pt++ {
		score += pos.Hands[c].Count(pt) * handValue[pt]
	}
	return score
}

func evaluateSide(pos *board.Position, c board.Color) int {
	return material(pos, c) + mobility(pos, c)
}

func mobility(pos *board.Position, c board.Color) int {
	t := pos.Tables()
	occ := pos.AllOccupied
	own := pos.Occupied[c]
	pcs := &pos.Pieces[c]
	score := 0

	for b := pcs[board.Bishop].Or(pcs[board.Horse]); b.More(); {
		sq := b.PopLSB()
		score += t.BishopAttacks(sq, occ).AndNot(own).PopCount() * bishopMobility
	}
	for b := pcs[board.Rook].Or(pcs[board.Dragon]); b.More(); {
		sq := b.PopLSB()
		score += t.RookAttacks(sq, occ).AndNot(own).PopCount() * rookMobility
	}
	for b := pcs[board.Lance]; b.More(); {
		sq := b.PopLSB()
		score += t.LanceAttacks(c, sq, occ).AndNot(own).PopCount() * lanceMobility
	}
	return score
}
