package board

// Ray tables: one precomputed ray per direction and square. The first blocker
// on a ray is its lowest square for directions that raise the square index and
// its highest square otherwise; the attack set is the ray with the blocker's
// own ray cut off. Lances always slide; rooks and bishops slide on squares
// without a magic.

// numDirs is the number of ray directions.
const numDirs = 8

// Ray directions as {file, rank} steps. The first four raise the square index
// (sq = file*9 + rank), the last four lower it.
const (
	dirDown      = iota // rank + 1
	dirLeft             // file + 1
	dirLeftDown         // file + 1, rank + 1
	dirLeftUp           // file + 1, rank - 1
	dirUp               // rank - 1
	dirRight            // file - 1
	dirRightUp          // file - 1, rank - 1
	dirRightDown        // file - 1, rank + 1
)

var dirSteps = [numDirs][2]int{
	dirDown:      {0, 1},
	dirLeft:      {1, 0},
	dirLeftDown:  {1, 1},
	dirLeftUp:    {1, -1},
	dirUp:        {0, -1},
	dirRight:     {-1, 0},
	dirRightUp:   {-1, -1},
	dirRightDown: {-1, 1},
}

var (
	rookRayDirs   = [4]int{dirDown, dirLeft, dirUp, dirRight}
	bishopRayDirs = [4]int{dirLeftDown, dirLeftUp, dirRightUp, dirRightDown}
)

func (t *Tables) initRays() {
	for d := 0; d < numDirs; d++ {
		for sq := Square(0); sq < NumSquares; sq++ {
			t.rays[d][sq] = rayAttacks(sq, Empty, [][2]int{dirSteps[d]})
		}
	}
}

// slide returns the squares reached along direction d up to and including the
// first occupied square.
func (t *Tables) slide(d int, sq Square, occupied Bitboard) Bitboard {
	ray := t.rays[d][sq]
	blockers := ray.And(occupied)
	if blockers.IsEmpty() {
		return ray
	}
	var first Square
	if d < dirUp {
		first = blockers.LSB()
	} else {
		first = blockers.MSB()
	}
	return ray.AndNot(t.rays[d][first])
}

// slideAll joins the slides along every direction in dirs.
func (t *Tables) slideAll(dirs *[4]int, sq Square, occupied Bitboard) Bitboard {
	var bb Bitboard
	for _, d := range dirs {
		bb = bb.Or(t.slide(d, sq, occupied))
	}
	return bb
}

// rayAttacks walks from sq in each direction until it leaves the board or hits a blocker.
func rayAttacks(sq Square, occupied Bitboard, dirs [][2]int) Bitboard {
	var attacks Bitboard
	file, rank := sq.File(), sq.Rank()
	for _, d := range dirs {
		for f, r := file+d[0], rank+d[1]; f >= 0 && f < 9 && r >= 0 && r < 9; f, r = f+d[0], r+d[1] {
			s := NewSquare(f, r)
			attacks = attacks.Set(s)
			if occupied.IsSet(s) {
				break
			}
		}
	}
	return attacks
}

var (
	bishopDirs = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	rookDirs   = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// bishopAttacksSlow computes bishop attacks by walking the board.
func bishopAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(sq, occupied, bishopDirs)
}

// rookAttacksSlow computes rook attacks by walking the board.
func rookAttacksSlow(sq Square, occupied Bitboard) Bitboard {
	return rayAttacks(sq, occupied, rookDirs)
}
