package board

import (
	"errors"
	"fmt"
)

// Move encodes a shogi move in 16 bits:
// bits 0-6:  to square (0-80)
// bits 7-13: from square (0-80), or 81+hand type for a drop
// bit 14:    promotion flag
type Move uint16

const (
	moveToMask   = 0x7F
	moveFromBits = 7
	dropBase     = NumSquares

	// FlagPromotion marks a promoting move.
	FlagPromotion Move = 1 << 14
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

// ErrIllegalMove is returned when a move string does not name a legal move.
var ErrIllegalMove = errors.New("illegal move")

// NewMove creates a normal board move.
func NewMove(from, to Square) Move {
	return Move(to) | Move(from)<<moveFromBits
}

// NewPromotion creates a promoting board move.
func NewPromotion(from, to Square) Move {
	return NewMove(from, to) | FlagPromotion
}

// NewDrop creates a drop of a hand piece onto sq.
func NewDrop(pt PieceType, to Square) Move {
	return Move(to) | Move(dropBase+int(pt))<<moveFromBits
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m & moveToMask)
}

// From returns the origin square; meaningless for drops.
func (m Move) From() Square {
	return Square((m >> moveFromBits) & moveToMask)
}

// IsDrop returns true if the move places a hand piece.
func (m Move) IsDrop() bool {
	return int(m.From()) >= dropBase
}

// DropType returns the dropped piece type (only valid if IsDrop() is true).
func (m Move) DropType() PieceType {
	return PieceType(int(m.From()) - dropBase)
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m&FlagPromotion != 0
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture(pos *Position) bool {
	return !m.IsDrop() && pos.Board[m.To()] != NoPiece
}

// IsQuiet returns true if this is not a capture or promotion.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// MovedPiece returns the piece that makes the move (after a drop, the dropped piece).
func (m Move) MovedPiece(pos *Position) Piece {
	if m.IsDrop() {
		return NewPiece(m.DropType(), pos.SideToMove)
	}
	return pos.Board[m.From()]
}

// String returns the USI format of the move (e.g., "7g7f", "8h2b+", "P*5e").
func (m Move) String() string {
	if m == NoMove {
		return "none"
	}

	if m.IsDrop() {
		return fmt.Sprintf("%c*%s", m.DropType().Char(), m.To())
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += "+"
	}
	return s
}

// ParseMove parses a USI format move string and checks it is legal in pos.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("invalid move string: %q", s)
	}

	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	var m Move
	if s[1] == '*' {
		if len(s) != 4 {
			return NoMove, fmt.Errorf("invalid drop: %q", s)
		}
		p, ok := PieceFromChar(s[0], false)
		if !ok || p.Color() != Black || p.Type() == King {
			return NoMove, fmt.Errorf("invalid drop piece: %c", s[0])
		}
		m = NewDrop(p.Type(), to)
	} else {
		from, err := ParseSquare(s[0:2])
		if err != nil {
			return NoMove, err
		}
		if len(s) == 5 {
			if s[4] != '+' {
				return NoMove, fmt.Errorf("invalid promotion suffix: %c", s[4])
			}
			m = NewPromotion(from, to)
		} else {
			m = NewMove(from, to)
		}
	}

	if !pos.IsLegal(m) {
		return NoMove, fmt.Errorf("%s: %w", s, ErrIllegalMove)
	}
	return m, nil
}

// MaxMoves bounds the legal moves of any position (the known maximum is 593).
const MaxMoves = 600

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set sets the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo stores information needed to undo a move.
type UndoInfo struct {
	Captured Piece
	Hash     uint64
	Checkers Bitboard
	Valid    bool // True if move was actually applied
}
