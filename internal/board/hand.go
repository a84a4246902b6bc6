package board

import (
	"strconv"
	"strings"
)

// Hand counts the captured pieces a side may drop, indexed by hand type (Pawn..Gold).
type Hand [NumHandTypes]uint8

// maxHand is the number of each hand type in a full set.
var maxHand = Hand{18, 4, 4, 4, 2, 2, 4}

// Count returns how many pieces of the type are held.
func (h *Hand) Count(pt PieceType) int {
	return int(h[pt])
}

// IsEmpty returns true if nothing is held.
func (h *Hand) IsEmpty() bool {
	return *h == Hand{}
}

// Total returns the number of pieces held.
func (h *Hand) Total() int {
	n := 0
	for _, c := range h {
		n += int(c)
	}
	return n
}

// handOrder is the conventional SFEN output order: R B G S N L P.
var handOrder = [NumHandTypes]PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// handString formats both hands in SFEN order, "-" when empty.
func handString(hands *[2]Hand) string {
	var sb strings.Builder
	for c := Black; c <= White; c++ {
		for _, pt := range handOrder {
			n := hands[c].Count(pt)
			if n == 0 {
				continue
			}
			if n > 1 {
				sb.WriteString(strconv.Itoa(n))
			}
			sb.WriteString(NewPiece(pt, c).String())
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}
