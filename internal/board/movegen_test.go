package board

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, sfen string) *Position {
	t.Helper()
	pos, err := ParseSFEN(sfen)
	if err != nil {
		t.Fatalf("ParseSFEN(%q): %v", sfen, err)
	}
	return pos
}

func TestNifu(t *testing.T) {
	pos := mustParse(t, "4k4/9/9/9/9/9/2P6/9/4K4 b P 1")

	moves := pos.GenerateLegalMoves()
	for _, m := range moves.Slice() {
		if m.IsDrop() && m.DropType() == Pawn && m.To().File() == 6 {
			t.Errorf("pawn drop %s on a file that already has a pawn", m)
		}
	}

	if _, err := ParseMove("P*7e", pos); !errors.Is(err, ErrIllegalMove) {
		t.Errorf("P*7e: got %v, want ErrIllegalMove", err)
	}
	if _, err := ParseMove("P*6e", pos); err != nil {
		t.Errorf("P*6e should be legal: %v", err)
	}
}

func TestDropsAvoidDeadSquares(t *testing.T) {
	pos := mustParse(t, "4k4/9/9/9/9/9/9/9/4K4 b NLP 1")

	moves := pos.GenerateLegalMoves()
	drops := 0
	for _, m := range moves.Slice() {
		if !m.IsDrop() {
			continue
		}
		drops++
		rank := m.To().Rank()
		switch m.DropType() {
		case Pawn, Lance:
			if rank == 0 {
				t.Errorf("%s drops on the last rank", m)
			}
		case Knight:
			if rank <= 1 {
				t.Errorf("%s drops on the last two ranks", m)
			}
		}
	}

	// 79 empty squares: pawn and lance lose the 8 empty squares of rank a,
	// the knight loses the 17 empty squares of ranks a and b.
	want := 71*2 + 62
	if drops != want {
		t.Errorf("got %d drops, want %d", drops, want)
	}
}

func TestMandatoryPromotion(t *testing.T) {
	tests := []struct {
		name    string
		sfen    string
		legal   []string
		illegal []string
	}{
		{
			name:  "pawn entering the zone may stay unpromoted",
			sfen:  "4k4/9/9/6P2/9/9/9/9/4K4 b - 1",
			legal: []string{"3d3c", "3d3c+"},
		},
		{
			name:    "pawn on the last rank must promote",
			sfen:    "4k4/6P2/9/9/9/9/9/9/4K4 b - 1",
			legal:   []string{"3b3a+"},
			illegal: []string{"3b3a"},
		},
		{
			name:    "knight reaching the last two ranks must promote",
			sfen:    "4k4/9/9/7N1/9/9/9/9/4K4 b - 1",
			legal:   []string{"2d1b+", "2d3b+"},
			illegal: []string{"2d1b", "2d3b"},
		},
		{
			name:    "gold never promotes",
			sfen:    "4k4/9/9/6G2/9/9/9/9/4K4 b - 1",
			legal:   []string{"3d3c"},
			illegal: []string{"3d3c+"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustParse(t, tc.sfen)
			for _, s := range tc.legal {
				if _, err := ParseMove(s, pos); err != nil {
					t.Errorf("%s should be legal: %v", s, err)
				}
			}
			for _, s := range tc.illegal {
				if _, err := ParseMove(s, pos); err == nil {
					t.Errorf("%s should be illegal", s)
				}
			}
		})
	}
}

func TestPawnDropMate(t *testing.T) {
	// Gold on 2c guards 1b and 2b, silver on 3b covers 2a.
	mated := mustParse(t, "8k/6S2/7G1/9/9/9/9/9/4K4 b P 1")
	drop := NewDrop(Pawn, NewSquare(0, 1))
	if mated.IsLegal(drop) {
		t.Error("pawn drop mate must be illegal")
	}
	if mated.GenerateLegalMoves().Contains(drop) {
		t.Error("generator produced a pawn drop mate")
	}

	// Without the silver the king escapes to 2a, so the drop is only a check.
	escape := mustParse(t, "8k/9/7G1/9/9/9/9/9/4K4 b P 1")
	if !escape.IsLegal(drop) {
		t.Error("pawn drop check with an escape must be legal")
	}
}

func TestEvasionsOnly(t *testing.T) {
	// White rook on 5e checks the black king on 5i.
	pos := mustParse(t, "4k4/9/9/9/4r4/9/9/9/4K4 b G 1")
	if !pos.InCheck() {
		t.Fatal("expected check")
	}

	for _, m := range pos.GenerateLegalMoves().Slice() {
		undo := pos.MakeMove(m)
		if pos.IsAttacked(pos.KingSquare[Black], White) {
			t.Errorf("%s leaves the king in check", m)
		}
		pos.UnmakeMove(m, undo)
	}

	// Interposing drops on 5f, 5g, 5h are legal; a drop elsewhere is not.
	for _, s := range []string{"G*5f", "G*5g", "G*5h"} {
		if _, err := ParseMove(s, pos); err != nil {
			t.Errorf("%s should be legal: %v", s, err)
		}
	}
	if _, err := ParseMove("G*1a", pos); err == nil {
		t.Error("G*1a does not answer the check")
	}
}

func TestPinnedPieceStaysOnLine(t *testing.T) {
	// Black silver on 5h is pinned by the white rook on 5a.
	pos := mustParse(t, "4r3k/9/9/9/9/9/9/4S4/4K4 b - 1")

	for _, m := range pos.GenerateLegalMoves().Slice() {
		if m.From() == NewSquare(4, 7) && m.To().File() != 4 {
			t.Errorf("pinned silver left the file with %s", m)
		}
	}
	if _, err := ParseMove("5h5g", pos); err != nil {
		t.Errorf("5h5g should be legal: %v", err)
	}
}
