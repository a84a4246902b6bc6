package nnue

import "github.com/hailam/shogiplay/internal/board"

// maxHandCount is the most pieces of each hand type a side can hold.
var maxHandCount = [board.NumHandTypes]int{18, 4, 4, 4, 2, 2, 4}

// handOffset is the first hand slot of each hand type; handSlots is their total.
var handOffset [board.NumHandTypes]int

const handSlots = 38

func init() {
	n := 0
	for pt := range maxHandCount {
		handOffset[pt] = n
		n += maxHandCount[pt]
	}
	if n != handSlots {
		panic("nnue: hand slot table out of sync")
	}
}

// MaxActiveFeatures bounds the features active in one perspective:
// 40 pieces on the board plus at most 38 hand slots.
const MaxActiveFeatures = 40 + handSlots

// relative maps a color and square to the perspective's point of view.
// White sees the board rotated so both sides look up the board.
func relative(perspective, c board.Color, sq board.Square) (own bool, s board.Square) {
	if perspective == board.White {
		sq = board.Square(board.NumSquares - 1 - int(sq))
	}
	return c == perspective, sq
}

// KingBucket returns the region of the perspective's own king: the board cut
// into three by three blocks, seen from that side. A position without the
// king uses bucket 0.
func KingBucket(pos *board.Position, perspective board.Color) int {
	ksq := pos.KingSquare[perspective]
	if ksq == board.NoSquare {
		return 0
	}
	_, s := relative(perspective, perspective, ksq)
	return (s.File()/3)*3 + s.Rank()/3
}

// BoardIndex computes the index of a piece on the board within one king bucket.
func BoardIndex(perspective board.Color, p board.Piece, sq board.Square) int {
	own, s := relative(perspective, p.Color(), sq)
	side := 1
	if own {
		side = 0
	}
	return (int(p.Type())*2+side)*board.NumSquares + int(s)
}

// HandIndex computes the index, within one king bucket, of the count-th
// piece (1-based) of a hand type held by color c.
func HandIndex(perspective, c board.Color, pt board.PieceType, count int) int {
	side := 1
	if c == perspective {
		side = 0
	}
	return NumBoardFeatures + side*handSlots + handOffset[pt] + count - 1
}

// AppendActiveFeatures appends every active feature of pos for a perspective.
// Piece and hand indexes are offset into the bucket of the perspective's king.
func AppendActiveFeatures(pos *board.Position, perspective board.Color, dst []int) []int {
	base := KingBucket(pos, perspective) * FeaturesPerBucket
	for c := board.Black; c <= board.White; c++ {
		for pt := board.Pawn; pt < board.NumPieceTypes; pt++ {
			piece := board.NewPiece(pt, c)
			for bb := pos.Pieces[c][pt]; bb.More(); {
				dst = append(dst, base+BoardIndex(perspective, piece, bb.PopLSB()))
			}
		}
		for pt := board.Pawn; pt < board.NumHandTypes; pt++ {
			n := min(pos.Hands[c].Count(pt), maxHandCount[pt])
			for i := 1; i <= n; i++ {
				dst = append(dst, base+HandIndex(perspective, c, pt, i))
			}
		}
	}
	return dst
}

// featureMaterial is the material weight of a bucket-local feature: the
// piece's value, negative when the opponent owns it. Kings carry none.
func featureMaterial(local int) int32 {
	var pt board.PieceType
	var own bool
	if local < NumBoardFeatures {
		kind := local / board.NumSquares
		pt, own = board.PieceType(kind/2), kind%2 == 0
	} else {
		slot := (local - NumBoardFeatures) % handSlots
		own = local-NumBoardFeatures < handSlots
		pt = board.NumHandTypes - 1
		for handOffset[pt] > slot {
			pt--
		}
	}
	if pt == board.King {
		return 0
	}
	v := int32(board.PieceValue[pt])
	if !own {
		v = -v
	}
	return v
}
