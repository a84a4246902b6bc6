package board

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	p.generate(ml, false)
	return ml
}

// GenerateLegal fills ml with all legal moves, replacing its contents.
func (p *Position) GenerateLegal(ml *MoveList) {
	ml.Clear()
	p.generate(ml, false)
}

// GenerateCaptures fills ml with legal captures and quiet promotions of pawns.
// When in check it produces every evasion instead.
func (p *Position) GenerateCaptures(ml *MoveList) {
	ml.Clear()
	p.generate(ml, true)
}

// HasLegalMoves returns true if the side to move has any legal moves.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.generate(&ml, false)
	return ml.Len() > 0
}

// IsCheckmate returns true if the position is checkmate.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// mustPromote reports whether a piece of type pt would be dead on sq.
func mustPromote(pt PieceType, c Color, sq Square) bool {
	switch pt {
	case Pawn, Lance:
		return sq.RelativeRank(c) == 0
	case Knight:
		return sq.RelativeRank(c) <= 1
	default:
		return false
	}
}

// deadRanks returns the ranks where a dropped piece of type pt could never move.
func deadRanks(pt PieceType, c Color) Bitboard {
	last, second := RankMask[0], RankMask[1]
	if c == White {
		last, second = RankMask[8], RankMask[7]
	}
	switch pt {
	case Pawn, Lance:
		return last
	case Knight:
		return last.Or(second)
	default:
		return Empty
	}
}

// addBoardMoves adds the promotion variants of a board move from -> to.
// quietOnlyPromo drops non-promotions of quiet moves (capture generation).
func (p *Position) addBoardMoves(ml *MoveList, pt PieceType, from, to Square, quietOnlyPromo bool) {
	us := p.SideToMove
	zone := PromotionZone[us]
	if pt.CanPromote() && (zone.IsSet(from) || zone.IsSet(to)) {
		ml.Add(NewPromotion(from, to))
		if mustPromote(pt, us, to) || (quietOnlyPromo && p.Board[to] == NoPiece) {
			return
		}
	}
	ml.Add(NewMove(from, to))
}

// generate produces legal moves. captureOnly restricts to captures and
// quiet pawn promotions unless the side to move is in check.
func (p *Position) generate(ml *MoveList, captureOnly bool) {
	t := p.tables
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	ksq := p.KingSquare[us]

	target := p.Occupied[us].Not()
	dropTarget := occupied.Not()
	kingTarget := target

	inCheck := p.Checkers.More()
	if inCheck {
		captureOnly = false
	} else if captureOnly {
		target = p.Occupied[them]
		kingTarget = target
		dropTarget = Empty
	}

	// King moves
	if ksq != NoSquare {
		attacks := t.StepAttacks(King, us, ksq).And(kingTarget)
		withoutKing := occupied.Clear(ksq)
		for attacks.More() {
			to := attacks.PopLSB()
			if p.AttackersTo(to, them, withoutKing).IsEmpty() {
				ml.Add(NewMove(ksq, to))
			}
		}
	}

	if inCheck {
		// Double check: only the king can move
		if p.Checkers.MoreThanOne() {
			return
		}
		checker := p.Checkers.LSB()
		between := t.Between(ksq, checker)
		target = between.Set(checker)
		dropTarget = between
	}

	pinned := p.Pinned(us)
	pawnPromoTarget := Empty
	if captureOnly {
		pawnPromoTarget = occupied.Not().And(PromotionZone[us])
	}

	for pt := Pawn; pt < NumPieceTypes; pt++ {
		if pt == King {
			continue
		}
		piece := NewPiece(pt, us)
		pieces := p.Pieces[us][pt]
		for pieces.More() {
			from := pieces.PopLSB()
			dest := target
			if pt == Pawn {
				dest = dest.Or(pawnPromoTarget)
			}
			attacks := t.Attacks(piece, from, occupied).And(dest)
			if pinned.IsSet(from) {
				attacks = attacks.And(t.Line(ksq, from))
			}
			for attacks.More() {
				p.addBoardMoves(ml, pt, from, attacks.PopLSB(), captureOnly)
			}
		}
	}

	p.generateDrops(ml, dropTarget)
}

// generateDrops adds every legal drop onto the target squares.
func (p *Position) generateDrops(ml *MoveList, target Bitboard) {
	if target.IsEmpty() {
		return
	}
	us := p.SideToMove
	hand := &p.Hands[us]

	for pt := Pawn; pt < NumHandTypes; pt++ {
		if hand[pt] == 0 {
			continue
		}
		to := target.AndNot(deadRanks(pt, us))
		if pt == Pawn {
			// Nifu: no second unpromoted pawn on a file
			pawns := p.Pieces[us][Pawn]
			for pawns.More() {
				to = to.AndNot(FileMask[pawns.PopLSB().File()])
			}
		}
		for to.More() {
			sq := to.PopLSB()
			if pt == Pawn && p.isPawnDropMate(sq) {
				continue
			}
			ml.Add(NewDrop(pt, sq))
		}
	}
}

// isPawnDropMate reports whether dropping a pawn on sq mates the opponent
// (uchifuzume), which makes the drop illegal.
func (p *Position) isPawnDropMate(sq Square) bool {
	us := p.SideToMove
	eksq := p.KingSquare[us.Other()]
	if eksq == NoSquare || !p.tables.StepAttacks(Pawn, us, sq).IsSet(eksq) {
		return false
	}
	m := NewDrop(Pawn, sq)
	undo := p.MakeMove(m)
	mate := !p.HasLegalMoves()
	p.UnmakeMove(m, undo)
	return mate
}

// IsLegal returns true if m is a legal move in the position.
func (p *Position) IsLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	t := p.tables
	us := p.SideToMove
	them := us.Other()
	to := m.To()
	ksq := p.KingSquare[us]
	if !to.IsValid() {
		return false
	}

	if m.IsDrop() {
		pt := m.DropType()
		if m.IsPromotion() || pt >= NumHandTypes || p.Hands[us][pt] == 0 || !p.IsEmpty(to) {
			return false
		}
		if mustPromote(pt, us, to) {
			return false
		}
		if pt == Pawn && p.Pieces[us][Pawn].Intersects(FileMask[to.File()]) {
			return false
		}
		if p.Checkers.More() {
			if p.Checkers.MoreThanOne() || !t.Between(ksq, p.Checkers.LSB()).IsSet(to) {
				return false
			}
		}
		return pt != Pawn || !p.isPawnDropMate(to)
	}

	from := m.From()
	if !from.IsValid() {
		return false
	}
	piece := p.Board[from]
	if piece == NoPiece || piece.Color() != us || p.Occupied[us].IsSet(to) {
		return false
	}
	if !t.Attacks(piece, from, p.AllOccupied).IsSet(to) {
		return false
	}

	pt := piece.Type()
	zone := PromotionZone[us]
	if m.IsPromotion() {
		if !pt.CanPromote() || !(zone.IsSet(from) || zone.IsSet(to)) {
			return false
		}
	} else if mustPromote(pt, us, to) {
		return false
	}

	if pt == King {
		return p.AttackersTo(to, them, p.AllOccupied.Clear(from)).IsEmpty()
	}

	if p.Checkers.More() {
		if p.Checkers.MoreThanOne() {
			return false
		}
		checker := p.Checkers.LSB()
		if !t.Between(ksq, checker).Set(checker).IsSet(to) {
			return false
		}
	}

	if ksq != NoSquare && p.Pinned(us).IsSet(from) && !t.Line(ksq, from).IsSet(to) {
		return false
	}
	return true
}

// Perft counts the leaf nodes of the legal move tree at the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}

	var ml MoveList
	p.GenerateLegal(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		undo := p.MakeMove(m)
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

// Divide returns the perft count below each legal root move.
func (p *Position) Divide(depth int) map[Move]uint64 {
	result := make(map[Move]uint64)
	if depth < 1 {
		return result
	}
	var ml MoveList
	p.GenerateLegal(&ml)
	for _, m := range ml.Slice() {
		undo := p.MakeMove(m)
		result[m] = p.Perft(depth - 1)
		p.UnmakeMove(m, undo)
	}
	return result
}
