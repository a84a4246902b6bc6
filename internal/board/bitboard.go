package board

import (
	"math/bits"
	"strings"
)

// Bitboard represents the 81 squares of the board as two 64-bit halves.
// lo holds files 1-7 (squares 0..62), hi holds files 8-9 (squares 63..80, bit = sq-63).
type Bitboard struct {
	lo, hi uint64
}

const (
	loSquares = 63
	loMask    = uint64(1)<<loSquares - 1
	hiMask    = uint64(1)<<(NumSquares-loSquares) - 1
)

// Special masks
var (
	Empty    = Bitboard{}
	Universe = Bitboard{lo: loMask, hi: hiMask}
)

var (
	squareBB [NumSquares]Bitboard

	// FileMask holds one mask per file (0 = USI file 1).
	FileMask [9]Bitboard
	// RankMask holds one mask per rank (0 = USI rank a).
	RankMask [9]Bitboard

	// PromotionZone is the three far ranks for each color.
	PromotionZone [2]Bitboard
)

func init() {
	for sq := Square(0); sq < NumSquares; sq++ {
		if sq < loSquares {
			squareBB[sq] = Bitboard{lo: 1 << sq}
		} else {
			squareBB[sq] = Bitboard{hi: 1 << (sq - loSquares)}
		}
		FileMask[sq.File()] = FileMask[sq.File()].Or(squareBB[sq])
		RankMask[sq.Rank()] = RankMask[sq.Rank()].Or(squareBB[sq])
	}
	PromotionZone[Black] = RankMask[0].Or(RankMask[1]).Or(RankMask[2])
	PromotionZone[White] = RankMask[6].Or(RankMask[7]).Or(RankMask[8])
}

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	return squareBB[sq]
}

// And returns the intersection of two bitboards.
func (b Bitboard) And(o Bitboard) Bitboard {
	return Bitboard{b.lo & o.lo, b.hi & o.hi}
}

// Or returns the union of two bitboards.
func (b Bitboard) Or(o Bitboard) Bitboard {
	return Bitboard{b.lo | o.lo, b.hi | o.hi}
}

// Xor returns the symmetric difference of two bitboards.
func (b Bitboard) Xor(o Bitboard) Bitboard {
	return Bitboard{b.lo ^ o.lo, b.hi ^ o.hi}
}

// AndNot clears every square of o in b.
func (b Bitboard) AndNot(o Bitboard) Bitboard {
	return Bitboard{b.lo &^ o.lo, b.hi &^ o.hi}
}

// Not returns the complement, restricted to board squares.
func (b Bitboard) Not() Bitboard {
	return Bitboard{^b.lo & loMask, ^b.hi & hiMask}
}

// Set sets a bit at the given square.
func (b Bitboard) Set(sq Square) Bitboard {
	return b.Or(squareBB[sq])
}

// Clear clears a bit at the given square.
func (b Bitboard) Clear(sq Square) Bitboard {
	return b.AndNot(squareBB[sq])
}

// IsSet returns true if the bit at the given square is set.
func (b Bitboard) IsSet(sq Square) bool {
	if sq < loSquares {
		return b.lo&(1<<sq) != 0
	}
	return b.hi&(1<<(sq-loSquares)) != 0
}

// Intersects reports whether b and o share a square.
func (b Bitboard) Intersects(o Bitboard) bool {
	return b.lo&o.lo != 0 || b.hi&o.hi != 0
}

// PopCount returns the number of set bits (population count).
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(b.lo) + bits.OnesCount64(b.hi)
}

// LSB returns the lowest set square.
func (b Bitboard) LSB() Square {
	if b.lo != 0 {
		return Square(bits.TrailingZeros64(b.lo))
	}
	if b.hi != 0 {
		return Square(bits.TrailingZeros64(b.hi) + loSquares)
	}
	return NoSquare
}

// MSB returns the highest set square.
func (b Bitboard) MSB() Square {
	if b.hi != 0 {
		return Square(63 - bits.LeadingZeros64(b.hi) + loSquares)
	}
	if b.lo != 0 {
		return Square(63 - bits.LeadingZeros64(b.lo))
	}
	return NoSquare
}

// PopLSB removes and returns the least significant bit.
func (b *Bitboard) PopLSB() Square {
	if b.lo != 0 {
		sq := Square(bits.TrailingZeros64(b.lo))
		b.lo &= b.lo - 1
		return sq
	}
	sq := Square(bits.TrailingZeros64(b.hi) + loSquares)
	b.hi &= b.hi - 1
	return sq
}

// More returns true if there are any bits set.
func (b Bitboard) More() bool {
	return b.lo != 0 || b.hi != 0
}

// IsEmpty returns true if no bits are set.
func (b Bitboard) IsEmpty() bool {
	return b.lo == 0 && b.hi == 0
}

// MoreThanOne reports whether at least two squares are set.
func (b Bitboard) MoreThanOne() bool {
	if b.lo != 0 && b.hi != 0 {
		return true
	}
	return b.lo&(b.lo-1) != 0 || b.hi&(b.hi-1) != 0
}


// merge folds both halves into one word for magic indexing.
func (b Bitboard) merge() uint64 {
	return b.lo | b.hi
}

// String returns a visual representation of the bitboard, file 9 on the left.
func (b Bitboard) String() string {
	var sb strings.Builder
	for rank := 0; rank < 9; rank++ {
		for file := 8; file >= 0; file-- {
			if b.IsSet(NewSquare(file, rank)) {
				sb.WriteString("1 ")
			} else {
				sb.WriteString(". ")
			}
		}
		sb.WriteByte(byte('a' + rank))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ForEach calls the function for each set square.
func (b Bitboard) ForEach(f func(Square)) {
	for b.More() {
		f(b.PopLSB())
	}
}

// Squares returns a slice of all squares that are set.
func (b Bitboard) Squares() []Square {
	squares := make([]Square, 0, b.PopCount())
	for b.More() {
		squares = append(squares, b.PopLSB())
	}
	return squares
}
