package board

import "testing"

func randomOccupancy(rng *prng) Bitboard {
	return Bitboard{lo: rng.next() & rng.next() & loMask, hi: rng.next() & rng.next() & hiMask}
}

// TestSliderAttacksMatchRayWalk compares the ray tables with a plain board walk.
func TestSliderAttacksMatchRayWalk(t *testing.T) {
	tables := NewTables()
	rng := newPRNG(42)

	occupancies := []Bitboard{Empty, Universe}
	for i := 0; i < 200; i++ {
		occupancies = append(occupancies, randomOccupancy(rng))
	}

	for _, occ := range occupancies {
		for sq := Square(0); sq < NumSquares; sq++ {
			if got, want := tables.RookAttacks(sq, occ), rookAttacksSlow(sq, occ); got != want {
				t.Fatalf("rook %s: got\n%s want\n%s", sq, got, want)
			}
			if got, want := tables.BishopAttacks(sq, occ), bishopAttacksSlow(sq, occ); got != want {
				t.Fatalf("bishop %s: got\n%s want\n%s", sq, got, want)
			}
			if got, want := tables.LanceAttacks(Black, sq, occ), rayAttacks(sq, occ, [][2]int{{0, -1}}); got != want {
				t.Fatalf("black lance %s: got\n%s want\n%s", sq, got, want)
			}
			if got, want := tables.LanceAttacks(White, sq, occ), rayAttacks(sq, occ, [][2]int{{0, 1}}); got != want {
				t.Fatalf("white lance %s: got\n%s want\n%s", sq, got, want)
			}
		}
	}
}

func TestSlidersWithoutMagics(t *testing.T) {
	tables := &Tables{}
	tables.initRays()
	rng := newPRNG(7)

	for i := 0; i < 50; i++ {
		occ := randomOccupancy(rng)
		for sq := Square(0); sq < NumSquares; sq++ {
			if got, want := tables.RookAttacks(sq, occ), rookAttacksSlow(sq, occ); got != want {
				t.Fatalf("rook %s: got\n%s want\n%s", sq, got, want)
			}
			if got, want := tables.BishopAttacks(sq, occ), bishopAttacksSlow(sq, occ); got != want {
				t.Fatalf("bishop %s: got\n%s want\n%s", sq, got, want)
			}
		}
	}
}

func TestMagicSearchTerminates(t *testing.T) {
	tables := NewTables()
	if tables.magicSquares < 0 || tables.magicSquares > 2*NumSquares {
		t.Fatalf("magic squares = %d", tables.magicSquares)
	}
	t.Logf("%d of %d slider squares use a magic", tables.magicSquares, 2*NumSquares)
	for sq := Square(0); sq < NumSquares; sq++ {
		if m := tables.rookMagics[sq]; m.Magic != 0 && int(m.Offset)+(1<<(64-int(m.Shift))) > len(tables.rookTable) {
			t.Errorf("rook %s: table slice out of range", sq)
		}
		if m := tables.bishopMagics[sq]; m.Magic != 0 && int(m.Offset)+(1<<(64-int(m.Shift))) > len(tables.bishopTable) {
			t.Errorf("bishop %s: table slice out of range", sq)
		}
	}
}

func TestBitboardMSB(t *testing.T) {
	tests := []struct {
		squares []Square
		want    Square
	}{
		{nil, NoSquare},
		{[]Square{0}, 0},
		{[]Square{5, 62}, 62},
		{[]Square{3, 63}, 63},
		{[]Square{10, 70, 80}, 80},
	}
	for _, tc := range tests {
		var b Bitboard
		for _, sq := range tc.squares {
			b = b.Set(sq)
		}
		if got := b.MSB(); got != tc.want {
			t.Errorf("MSB of %v = %d, want %d", tc.squares, got, tc.want)
		}
	}
}

func TestLanceAttacks(t *testing.T) {
	tables := DefaultTables()
	sq := NewSquare(0, 8) // 1i
	occ := SquareBB(NewSquare(0, 3))

	got := tables.LanceAttacks(Black, sq, occ)
	want := Empty
	for r := 3; r < 8; r++ {
		want = want.Set(NewSquare(0, r))
	}
	if got != want {
		t.Errorf("black lance on 1i: got\n%s want\n%s", got, want)
	}
	if !tables.LanceAttacks(White, sq, occ).IsEmpty() {
		t.Error("white lance on its last rank should have no moves")
	}
}

func TestStepAttacks(t *testing.T) {
	tables := DefaultTables()
	center := NewSquare(4, 4) // 5e

	tests := []struct {
		pt    PieceType
		c     Color
		count int
	}{
		{Pawn, Black, 1},
		{Knight, Black, 2},
		{Silver, Black, 5},
		{Gold, White, 6},
		{ProSilver, Black, 6},
		{King, White, 8},
	}
	for _, tc := range tests {
		if got := tables.StepAttacks(tc.pt, tc.c, center).PopCount(); got != tc.count {
			t.Errorf("%s %s: %d targets, want %d", tc.c, tc.pt, got, tc.count)
		}
	}

	if !tables.StepAttacks(Pawn, Black, center).IsSet(NewSquare(4, 3)) {
		t.Error("black pawn should attack toward rank a")
	}
	if !tables.StepAttacks(Pawn, White, center).IsSet(NewSquare(4, 5)) {
		t.Error("white pawn should attack toward rank i")
	}
}

func TestBitboardHalves(t *testing.T) {
	var b Bitboard
	for _, sq := range []Square{0, 62, 63, 80} {
		b = b.Set(sq)
	}
	if b.PopCount() != 4 {
		t.Fatalf("PopCount = %d, want 4", b.PopCount())
	}

	var got []Square
	for b.More() {
		got = append(got, b.PopLSB())
	}
	want := []Square{0, 62, 63, 80}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PopLSB order = %v, want %v", got, want)
			break
		}
	}

	if Universe.PopCount() != NumSquares || Universe.Not() != Empty {
		t.Error("universe must cover exactly the board")
	}
}

func TestBetweenAndLine(t *testing.T) {
	tables := DefaultTables()
	a, b := NewSquare(0, 0), NewSquare(4, 4) // 1a, 5e

	if got := tables.Between(a, b).PopCount(); got != 3 {
		t.Errorf("Between(1a, 5e) has %d squares, want 3", got)
	}
	if got := tables.Line(a, b).PopCount(); got != 9 {
		t.Errorf("Line(1a, 5e) has %d squares, want 9", got)
	}
	if !tables.Between(a, NewSquare(1, 2)).IsEmpty() {
		t.Error("knight-distance squares are not aligned")
	}
}
