// Package board implements the shogi board representation using 81-square bitboards.
package board

import "fmt"

// Square represents a square on the board (0-80).
// sq = file*9 + rank, where file 0 is USI file "1" and rank 0 is USI rank "a".
type Square uint8

// NumSquares is the number of board squares.
const NumSquares = 81

// NoSquare marks the absence of a square.
const NoSquare Square = NumSquares

// File returns the file (0-8, where 0 is USI file 1).
func (sq Square) File() int {
	return int(sq) / 9
}

// Rank returns the rank (0-8, where 0 is USI rank a).
func (sq Square) Rank() int {
	return int(sq) % 9
}

// String returns the USI notation for the square (e.g., "7g").
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return fmt.Sprintf("%c%c", '1'+sq.File(), 'a'+sq.Rank())
}

// NewSquare creates a square from file and rank (0-indexed).
func NewSquare(file, rank int) Square {
	return Square(file*9 + rank)
}

// SquareFromIndex converts an integer to a Square, rejecting out-of-range values.
func SquareFromIndex(i int) (Square, bool) {
	if i < 0 || i >= NumSquares {
		return NoSquare, false
	}
	return Square(i), true
}

// ParseSquare parses USI notation (e.g., "7g") into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	file := int(s[0]) - '1'
	rank := int(s[1]) - 'a'

	if file < 0 || file > 8 || rank < 0 || rank > 8 {
		return NoSquare, fmt.Errorf("invalid square: %s", s)
	}

	return NewSquare(file, rank), nil
}

// IsValid returns true if the square is a valid board square (0-80).
func (sq Square) IsValid() bool {
	return sq < NoSquare
}

// Flip rotates the square 180 degrees (the opponent's point of view).
func (sq Square) Flip() Square {
	return NumSquares - 1 - sq
}

// RelativeRank returns the rank counted from the given color's far side.
// For Black, rank 0 is rank a; for White, rank 0 is rank i.
func (sq Square) RelativeRank(c Color) int {
	if c == Black {
		return sq.Rank()
	}
	return 8 - sq.Rank()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Distance returns the Chebyshev distance between two squares.
func Distance(a, b Square) int {
	return max(abs(a.File()-b.File()), abs(a.Rank()-b.Rank()))
}
