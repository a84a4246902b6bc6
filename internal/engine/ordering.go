package engine

import (
	"sync/atomic"

	"github.com/hailam/shogiplay/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore      = 10000000 // TT move gets highest priority
	GoodCaptureBase  = 1000000  // Base score for captures that do not lose material
	PromotionScore   = 950000   // Quiet promotions
	KillerScore1     = 900000   // First killer move
	KillerScore2     = 800000   // Second killer move
	CounterMoveScore = 700000   // Reply to the opponent's last move
	BadCaptureBase   = -100000  // Losing captures
)

const (
	maxHistory = 16384
	// numFrom covers the 81 board squares plus one slot per hand type for drops.
	numFrom = board.NumSquares + board.NumHandTypes
)

// SharedHistory is the butterfly history shared by all workers.
// Updates race benignly: each slot is read and written atomically but a
// concurrent update to the same slot may be lost.
type SharedHistory struct {
	table [2][numFrom][board.NumSquares]atomic.Int32
}

// NewSharedHistory creates a zeroed history table.
func NewSharedHistory() *SharedHistory {
	return &SharedHistory{}
}

// Get returns the history score of m for color c.
func (h *SharedHistory) Get(c board.Color, m board.Move) int {
	return int(h.table[c][m.From()][m.To()].Load())
}

// Update applies a gravity bonus so the score stays within ±maxHistory.
func (h *SharedHistory) Update(c board.Color, m board.Move, bonus int) {
	slot := &h.table[c][m.From()][m.To()]
	old := int(slot.Load())
	slot.Store(int32(old + bonus - old*abs(bonus)/maxHistory))
}

// Age halves every entry.
func (h *SharedHistory) Age() {
	for c := range h.table {
		for from := range h.table[c] {
			for to := range h.table[c][from] {
				slot := &h.table[c][from][to]
				slot.Store(slot.Load() / 2)
			}
		}
	}
}

// Clear zeroes every entry.
func (h *SharedHistory) Clear() {
	for c := range h.table {
		for from := range h.table[c] {
			for to := range h.table[c][from] {
				h.table[c][from][to].Store(0)
			}
		}
	}
}

// PieceToHistory scores a move by the moved piece type and its destination.
// The mover's color is implied by the previous move's owner.
type PieceToHistory [board.NumPieceTypes][board.NumSquares]int16

// ContinuationHistory is indexed by the previous move's piece and destination.
type ContinuationHistory [board.NumPieces][board.NumSquares]PieceToHistory

func (h *PieceToHistory) update(pt board.PieceType, to board.Square, bonus int) {
	old := int(h[pt][to])
	h[pt][to] = int16(old + bonus - old*abs(bonus)/maxHistory)
}

// MoveOrderer holds the per-worker ordering state. Killers live in the
// search stack; the butterfly history is shared.
type MoveOrderer struct {
	history      *SharedHistory
	contHist     *ContinuationHistory
	counterMoves [board.NumPieces][board.NumSquares]board.Move

	// sentinel used where no previous move exists (root, after a null move)
	empty PieceToHistory
}

// NewMoveOrderer creates a move orderer bound to a shared history table.
func NewMoveOrderer(history *SharedHistory) *MoveOrderer {
	return &MoveOrderer{
		history:  history,
		contHist: new(ContinuationHistory),
	}
}

// Clear resets the per-worker tables for a new game.
func (mo *MoveOrderer) Clear() {
	clear(mo.contHist[:])
	for i := range mo.counterMoves {
		clear(mo.counterMoves[i][:])
	}
}

// Age halves the continuation history between searches.
func (mo *MoveOrderer) Age() {
	for p := range mo.contHist {
		for sq := range mo.contHist[p] {
			t := &mo.contHist[p][sq]
			for pt := range t {
				for to := range t[pt] {
					t[pt][to] /= 2
				}
			}
		}
	}
}

// continuation returns the table selected by a move of piece to sq.
func (mo *MoveOrderer) continuation(piece board.Piece, sq board.Square) *PieceToHistory {
	if piece == board.NoPiece || sq >= board.NumSquares {
		return &mo.empty
	}
	return &mo.contHist[piece][sq]
}

// CounterMove returns the stored reply to the previous move.
func (mo *MoveOrderer) CounterMove(prev *SearchNode) board.Move {
	if prev == nil || prev.CurrentMove == board.NoMove {
		return board.NoMove
	}
	return mo.counterMoves[prev.MovedPiece][prev.CurrentMove.To()]
}

// mvvLva orders captures by victim value, then by cheap attacker.
func mvvLva(victim, attacker board.Piece) int {
	return victim.Value()*16 - attacker.Value()/16
}

// ScoreMoves assigns ordering scores to the moves of node.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, node *SearchNode, prev1, prev2 *PieceToHistory, counter, ttMove board.Move) {
	us := pos.SideToMove
	for i := 0; i < node.Moves.Len(); i++ {
		m := node.Moves.Get(i)
		score := 0
		switch {
		case m == ttMove:
			score = TTMoveScore
		case m.IsCapture(pos):
			victim := pos.PieceAt(m.To())
			attacker := m.MovedPiece(pos)
			if SEE(pos, m) >= 0 {
				score = GoodCaptureBase + mvvLva(victim, attacker)
			} else {
				score = BadCaptureBase + mvvLva(victim, attacker)
			}
		case m.IsPromotion():
			score = PromotionScore + m.MovedPiece(pos).Promote().Value()
		case m == node.Killers[0]:
			score = KillerScore1
		case m == node.Killers[1]:
			score = KillerScore2
		case m == counter:
			score = CounterMoveScore
		default:
			pt := m.MovedPiece(pos).Type()
			to := m.To()
			score = mo.history.Get(us, m) + int(prev1[pt][to]) + int(prev2[pt][to])
		}
		node.Scores[i] = score
	}
}

// ScoreCaptures scores quiescence moves by SEE-checked MVV-LVA.
func (mo *MoveOrderer) ScoreCaptures(pos *board.Position, node *SearchNode) {
	for i := 0; i < node.Moves.Len(); i++ {
		m := node.Moves.Get(i)
		attacker := m.MovedPiece(pos)
		score := 0
		if m.IsCapture(pos) {
			score = GoodCaptureBase + mvvLva(pos.PieceAt(m.To()), attacker)
		}
		if m.IsPromotion() {
			score += attacker.Promote().Value() - attacker.Value()
		}
		node.Scores[i] = score
	}
}

// PickMove selects the best remaining move and moves it to position index.
// This allows lazy move sorting (only sort as much as needed).
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// UpdateKillers adds a killer move at the node.
func UpdateKillers(node *SearchNode, m board.Move) {
	if node.Killers[0] == m {
		return
	}
	node.Killers[1] = node.Killers[0]
	node.Killers[0] = m
}

// historyBonus is the reward for a cutoff at depth.
func historyBonus(depth int) int {
	return min(depth*depth*16, 1200)
}

// UpdateQuietStats rewards the quiet move that caused a cutoff and
// penalizes the quiets tried before it.
func (mo *MoveOrderer) UpdateQuietStats(pos *board.Position, node, prev *SearchNode, prev1, prev2 *PieceToHistory, best board.Move, tried []board.Move, depth int) {
	us := pos.SideToMove
	bonus := historyBonus(depth)

	UpdateKillers(node, best)
	if prev != nil && prev.CurrentMove != board.NoMove {
		mo.counterMoves[prev.MovedPiece][prev.CurrentMove.To()] = best
	}

	reward := func(m board.Move, b int) {
		pt := m.MovedPiece(pos).Type()
		mo.history.Update(us, m, b)
		if prev1 != &mo.empty {
			prev1.update(pt, m.To(), b)
		}
		if prev2 != &mo.empty {
			prev2.update(pt, m.To(), b)
		}
	}
	reward(best, bonus)
	for _, m := range tried {
		reward(m, -bonus)
	}
}
