package board

import "math/bits"

// Magic bitboard lookup for rook and bishop attacks.
// The masked occupancy is folded into one word (lo | hi) before multiplying;
// relevant-occupancy masks never set the same bit index in both halves.
// The search per square is bounded. A square left without a magic keeps a
// zero multiplier and is served from the ray tables instead.

// Magic holds the magic bitboard data for a single square.
type Magic struct {
	Mask   Bitboard // Relevant occupancy mask (excludes edges)
	Magic  uint64   // Magic multiplier, 0 if none was found
	Shift  uint8    // Bits to shift right
	Offset uint32   // Index into attack table
}

// maxMagicAttempts bounds the search for one square.
const maxMagicAttempts = 1 << 12

func (m *Magic) index(occupied Bitboard) uint32 {
	return m.Offset + uint32((occupied.And(m.Mask).merge()*m.Magic)>>m.Shift)
}

// initMagics searches a magic for every square and fills the attack table.
// It returns the table and the number of squares that got one.
func initMagics(magics *[NumSquares]Magic, maskFn func(Square) Bitboard,
	slow func(Square, Bitboard) Bitboard, rng *prng) ([]Bitboard, int) {

	var table []Bitboard
	found := 0
	for sq := Square(0); sq < NumSquares; sq++ {
		mask := maskFn(sq)
		nbits := mask.PopCount()
		n := 1 << nbits

		occupancies := make([]Bitboard, n)
		attacks := make([]Bitboard, n)
		for i := 0; i < n; i++ {
			occupancies[i] = indexToOccupancy(i, nbits, mask)
			attacks[i] = slow(sq, occupancies[i])
		}

		offset := uint32(len(table))
		table = append(table, make([]Bitboard, n)...)
		if magic, ok := searchMagic(table[offset:], mask, occupancies, attacks, rng); ok {
			magics[sq] = Magic{
				Mask:   mask,
				Magic:  magic,
				Shift:  uint8(64 - nbits),
				Offset: offset,
			}
			found++
		} else {
			table = table[:offset]
			magics[sq] = Magic{Mask: mask}
		}
	}
	return table, found
}

// searchMagic looks for a multiplier that maps every occupancy to a slot
// holding its attack set, writing the slots into entries.
func searchMagic(entries []Bitboard, mask Bitboard, occupancies, attacks []Bitboard, rng *prng) (uint64, bool) {
	shift := 64 - mask.PopCount()
	epoch := make([]int, len(entries))
	for attempt := 1; attempt <= maxMagicAttempts; attempt++ {
		magic := rng.sparse()
		if bits.OnesCount64((mask.merge()*magic)>>56) < 6 {
			continue
		}
		ok := true
		for i, occ := range occupancies {
			idx := (occ.merge() * magic) >> shift
			if epoch[idx] != attempt {
				epoch[idx] = attempt
				entries[idx] = attacks[i]
			} else if entries[idx] != attacks[i] {
				ok = false
				break
			}
		}
		if ok {
			return magic, true
		}
	}
	return 0, false
}

// bishopMask returns the relevant occupancy mask for a bishop at square.
// Excludes edge squares since they don't affect the result.
func bishopMask(sq Square) Bitboard {
	edges := FileMask[0].Or(FileMask[8]).Or(RankMask[0]).Or(RankMask[8])
	return bishopAttacksSlow(sq, Empty).AndNot(edges)
}

// rookMask returns the relevant occupancy mask for a rook at square.
func rookMask(sq Square) Bitboard {
	file := sq.File()
	rank := sq.Rank()

	var mask Bitboard
	for f := 1; f < 8; f++ {
		if f != file {
			mask = mask.Set(NewSquare(f, rank))
		}
	}
	for r := 1; r < 8; r++ {
		if r != rank {
			mask = mask.Set(NewSquare(file, r))
		}
	}
	return mask
}

// indexToOccupancy converts an index to an occupancy bitboard.
func indexToOccupancy(index, nbits int, mask Bitboard) Bitboard {
	var occ Bitboard
	for i := 0; i < nbits; i++ {
		sq := mask.PopLSB()
		if index&(1<<i) != 0 {
			occ = occ.Set(sq)
		}
	}
	return occ
}
