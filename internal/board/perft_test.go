package board

import "testing"

// perft counts the number of leaf nodes at the given depth.
// This is the standard way to verify move generation correctness.
func perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}

	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return int64(moves.Len())
	}

	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

// TestPerftStartingPosition tests move generation from the starting position.
func TestPerftStartingPosition(t *testing.T) {
	pos := NewPosition()

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 30},
		{2, 900},
		{3, 25470},
		{4, 719731},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			if tc.depth >= 4 && testing.Short() {
				t.Skip("skipping deep perft in short mode")
			}
			got := perft(pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftMaximumMoves uses the position with the largest known number of legal moves.
func TestPerftMaximumMoves(t *testing.T) {
	pos, err := ParseSFEN("R8/2K1S1SSk/4B4/9/9/9/9/9/1L1L1L3 b RBGSNLP3g3n17p 1")
	if err != nil {
		t.Fatalf("Failed to parse SFEN: %v", err)
	}

	if got := perft(pos, 1); got != 593 {
		t.Errorf("perft(1) = %d, want 593", got)
	}
}

// TestPerftMiddlegame covers drops, promoted pieces and captures into hand.
func TestPerftMiddlegame(t *testing.T) {
	pos, err := ParseSFEN("l6nl/5+P1gk/2np1S3/p1p4Pp/3P2Sp1/1PPb2P1P/P5GS1/R8/LN4bKL w RGgsn5p 1")
	if err != nil {
		t.Fatalf("Failed to parse SFEN: %v", err)
	}

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 207},
		{2, 28684},
	}

	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got := perft(pos, tc.depth)
			if got != tc.expected {
				t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
			}
		})
	}
}

// TestPerftMatchesDivide checks the exported counters agree with each other.
func TestPerftMatchesDivide(t *testing.T) {
	pos := NewPosition()

	var sum uint64
	for _, n := range pos.Divide(2) {
		sum += n
	}
	if sum != pos.Perft(2) {
		t.Errorf("divide sum %d != perft %d", sum, pos.Perft(2))
	}
	if pos.SFEN() != StartSFEN {
		t.Errorf("position changed by perft: %s", pos.SFEN())
	}
}
