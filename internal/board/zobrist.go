package board

// maxHandCount bounds hand counts for hashing (18 pawns plus the empty hand).
const maxHandCount = 19

// Zobrist holds the hash keys for position hashing.
// Hand keys are toggled per count, so a hand of n pieces contributes Hand[c][pt][n].
type Zobrist struct {
	Piece [NumPieces][NumSquares]uint64
	Hand  [2][NumHandTypes][maxHandCount]uint64
	Side  uint64 // XOR when White to move
}

// Simple PRNG for reproducible keys and magic search.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

// sparse returns a value with few bits set, good magic candidates.
func (p *prng) sparse() uint64 {
	return p.next() & p.next() & p.next()
}

func newZobrist() Zobrist {
	var z Zobrist
	rng := newPRNG(0x98F107A2BEEF1234) // Fixed seed

	for pc := 0; pc < NumPieces; pc++ {
		for sq := 0; sq < NumSquares; sq++ {
			z.Piece[pc][sq] = rng.next()
		}
	}

	for c := 0; c < 2; c++ {
		for pt := 0; pt < NumHandTypes; pt++ {
			for n := 0; n < maxHandCount; n++ {
				z.Hand[c][pt][n] = rng.next()
			}
		}
	}

	z.Side = rng.next()
	return z
}
