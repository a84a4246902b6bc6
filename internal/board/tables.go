package board

import "sync"

// Tables holds every precomputed lookup the board needs: step attacks, magic
// slider tables backed by per-direction rays, between/line masks and zobrist
// keys. It is built once and never mutated, so one instance is shared by
// every Position.
type Tables struct {
	step     [2][NumPieceTypes][NumSquares]Bitboard // [Color][PieceType][Square]
	rays     [numDirs][NumSquares]Bitboard          // empty-board ray per direction, origin excluded

	rookMagics   [NumSquares]Magic
	bishopMagics [NumSquares]Magic
	rookTable    []Bitboard
	bishopTable  []Bitboard
	magicSquares int // squares of both sliders served by a magic

	between [NumSquares][NumSquares]Bitboard // Squares strictly between two squares
	line    [NumSquares][NumSquares]Bitboard // Full line through two squares (including endpoints)

	Zobrist Zobrist
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
)

// DefaultTables returns the process-wide tables, building them on first use.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		defaultTables = NewTables()
	})
	return defaultTables
}

// Step offsets {file, rank} as seen by Black (forward = rank - 1).
var stepOffsets = [NumPieceTypes][][2]int{
	Pawn:   {{0, -1}},
	Knight: {{-1, -2}, {1, -2}},
	Silver: {{-1, -1}, {0, -1}, {1, -1}, {-1, 1}, {1, 1}},
	Gold:   {{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {0, 1}},
	King:   {{-1, -1}, {0, -1}, {1, -1}, {-1, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}},
}

// NewTables builds a fresh set of tables.
func NewTables() *Tables {
	t := &Tables{}
	t.initSteps()
	t.initLines()
	t.initRays()

	rng := newPRNG(0x6A09E667F3BCC909)
	var rooks, bishops int
	t.rookTable, rooks = initMagics(&t.rookMagics, rookMask, rookAttacksSlow, rng)
	t.bishopTable, bishops = initMagics(&t.bishopMagics, bishopMask, bishopAttacksSlow, rng)
	t.magicSquares = rooks + bishops

	t.Zobrist = newZobrist()
	return t
}

func (t *Tables) initSteps() {
	for c := Black; c <= White; c++ {
		dir := 1
		if c == White {
			dir = -1
		}
		for sq := Square(0); sq < NumSquares; sq++ {
			for _, pt := range []PieceType{Pawn, Knight, Silver, Gold, King} {
				var bb Bitboard
				for _, off := range stepOffsets[pt] {
					f, r := sq.File()+off[0], sq.Rank()+off[1]*dir
					if f >= 0 && f < 9 && r >= 0 && r < 9 {
						bb = bb.Set(NewSquare(f, r))
					}
				}
				t.step[c][pt][sq] = bb
			}
			for _, pt := range []PieceType{ProPawn, ProLance, ProKnight, ProSilver} {
				t.step[c][pt][sq] = t.step[c][Gold][sq]
			}
			t.step[c][Horse][sq] = t.step[c][King][sq]
			t.step[c][Dragon][sq] = t.step[c][King][sq]
		}
	}
}

func (t *Tables) initLines() {
	dirs := append(append([][2]int{}, rookDirs...), bishopDirs...)
	for a := Square(0); a < NumSquares; a++ {
		for _, d := range dirs {
			var path Bitboard
			for f, r := a.File()+d[0], a.Rank()+d[1]; f >= 0 && f < 9 && r >= 0 && r < 9; f, r = f+d[0], r+d[1] {
				b := NewSquare(f, r)
				t.between[a][b] = path
				path = path.Set(b)
			}
			// The full line runs in both directions from a.
			full := rayAttacks(a, Empty, [][2]int{d, {-d[0], -d[1]}}).Set(a)
			for f, r := a.File()+d[0], a.Rank()+d[1]; f >= 0 && f < 9 && r >= 0 && r < 9; f, r = f+d[0], r+d[1] {
				t.line[a][NewSquare(f, r)] = full
			}
		}
	}
}
