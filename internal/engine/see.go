package engine

import "github.com/hailam/shogiplay/internal/board"

// seeOrder lists piece types from least to most valuable attacker.
var seeOrder = [board.NumPieceTypes]board.PieceType{
	board.Pawn, board.Lance, board.Knight, board.ProPawn, board.ProLance,
	board.ProKnight, board.Silver, board.ProSilver, board.Gold, board.Bishop,
	board.Rook, board.Horse, board.Dragon, board.King,
}

// SEE (Static Exchange Evaluation) estimates the result of the exchange
// started by m on its destination square, from the mover's point of view.
// A drop starts the exchange without capturing anything.
func SEE(pos *board.Position, m board.Move) int {
	to := m.To()
	moving := m.MovedPiece(pos)
	if moving == board.NoPiece {
		return 0
	}

	var gain [32]int
	occupied := pos.AllOccupied
	if victim := pos.PieceAt(to); !m.IsDrop() && victim != board.NoPiece {
		gain[0] = victim.Value()
	}

	attackerValue := moving.Value()
	if m.IsPromotion() {
		promoted := moving.Promote()
		gain[0] += promoted.Value() - attackerValue
		attackerValue = promoted.Value()
	}
	if !m.IsDrop() {
		occupied = occupied.Clear(m.From())
	}

	side := moving.Color().Other()
	d := 0
	for d < len(gain)-1 {
		attackers := pos.AttackersTo(to, side, occupied).And(occupied)
		if attackers.IsEmpty() {
			break
		}
		sq, pt := leastValuableAttacker(pos, attackers, side)

		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		occupied = occupied.Clear(sq)
		if pt == board.King && pos.AttackersTo(to, side.Other(), occupied).And(occupied).More() {
			// The king cannot recapture into an attacked square.
			d--
			break
		}
		attackerValue = board.PieceValue[pt]
		side = side.Other()
	}

	for ; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker picks the cheapest piece of side among attackers.
func leastValuableAttacker(pos *board.Position, attackers board.Bitboard, side board.Color) (board.Square, board.PieceType) {
	for _, pt := range seeOrder {
		if b := attackers.And(pos.Pieces[side][pt]); b.More() {
			return b.LSB(), pt
		}
	}
	return board.NoSquare, board.NoPieceType
}
