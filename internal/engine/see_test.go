package engine

import (
	"testing"

	"github.com/hailam/shogiplay/internal/board"
)

func mustPosition(t *testing.T, sfen string) *board.Position {
	t.Helper()
	pos, err := board.ParseSFEN(sfen)
	if err != nil {
		t.Fatalf("ParseSFEN(%q): %v", sfen, err)
	}
	return pos
}

func mustMove(t *testing.T, pos *board.Position, s string) board.Move {
	t.Helper()
	m, err := board.ParseMove(s, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func TestSEE(t *testing.T) {
	pawn := board.PieceValue[board.Pawn]
	tests := []struct {
		name string
		sfen string
		move string
		want int
	}{
		{"free pawn", "4k4/9/9/9/4p4/4P4/9/9/4K4 b - 1", "5f5e", pawn},
		{"defended pawn", "4k4/9/9/4g4/4p4/4P4/9/9/4K4 b - 1", "5f5e", 0},
		{"rook takes defended pawn", "4k4/9/9/4g4/4p4/9/9/4R4/4K4 b - 1", "5h5e", pawn - board.PieceValue[board.Rook]},
		{"quiet drop", "4k4/9/9/9/9/9/9/9/4K4 b P 1", "P*5e", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustPosition(t, tc.sfen)
			m := mustMove(t, pos, tc.move)
			if got := SEE(pos, m); got != tc.want {
				t.Errorf("SEE(%s) = %d, want %d", tc.move, got, tc.want)
			}
		})
	}
}
