package board

// StepAttacks returns the non-sliding moves of a piece type from sq.
// For Horse and Dragon this is only the king-step component.
func (t *Tables) StepAttacks(pt PieceType, c Color, sq Square) Bitboard {
	return t.step[c][pt][sq]
}

// RookAttacks returns rook attacks using magic bitboards.
func (t *Tables) RookAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &t.rookMagics[sq]
	if m.Magic == 0 {
		return t.slideAll(&rookRayDirs, sq, occupied)
	}
	return t.rookTable[m.index(occupied)]
}

// BishopAttacks returns bishop attacks using magic bitboards.
func (t *Tables) BishopAttacks(sq Square, occupied Bitboard) Bitboard {
	m := &t.bishopMagics[sq]
	if m.Magic == 0 {
		return t.slideAll(&bishopRayDirs, sq, occupied)
	}
	return t.bishopTable[m.index(occupied)]
}

// LanceAttacks returns the forward file attacks of a lance of color c.
func (t *Tables) LanceAttacks(c Color, sq Square, occupied Bitboard) Bitboard {
	if c == Black {
		return t.slide(dirUp, sq, occupied)
	}
	return t.slide(dirDown, sq, occupied)
}

// Attacks returns the squares a piece on sq attacks given the occupancy.
func (t *Tables) Attacks(p Piece, sq Square, occupied Bitboard) Bitboard {
	pt, c := p.Type(), p.Color()
	switch pt {
	case Lance:
		return t.LanceAttacks(c, sq, occupied)
	case Bishop:
		return t.BishopAttacks(sq, occupied)
	case Rook:
		return t.RookAttacks(sq, occupied)
	case Horse:
		return t.BishopAttacks(sq, occupied).Or(t.step[c][King][sq])
	case Dragon:
		return t.RookAttacks(sq, occupied).Or(t.step[c][King][sq])
	case NoPieceType:
		return Empty
	default:
		return t.step[c][pt][sq]
	}
}

// Between returns the squares strictly between a and b, empty if not aligned.
func (t *Tables) Between(a, b Square) Bitboard {
	return t.between[a][b]
}

// Line returns the full line through a and b, empty if not aligned.
func (t *Tables) Line(a, b Square) Bitboard {
	return t.line[a][b]
}

// goldsOf returns the gold-moving pieces of color c.
func (p *Position) goldsOf(c Color) Bitboard {
	pcs := &p.Pieces[c]
	return pcs[Gold].Or(pcs[ProPawn]).Or(pcs[ProLance]).Or(pcs[ProKnight]).Or(pcs[ProSilver])
}

// AttackersTo returns the pieces of color c that attack sq.
func (p *Position) AttackersTo(sq Square, c Color, occupied Bitboard) Bitboard {
	t := p.tables
	them := c.Other()
	pcs := &p.Pieces[c]

	// Step attackers, found by looking from sq with the opposite color's steps.
	attackers := t.step[them][Pawn][sq].And(pcs[Pawn])
	attackers = attackers.Or(t.step[them][Knight][sq].And(pcs[Knight]))
	attackers = attackers.Or(t.step[them][Silver][sq].And(pcs[Silver]))
	attackers = attackers.Or(t.step[them][Gold][sq].And(p.goldsOf(c)))
	attackers = attackers.Or(t.step[them][King][sq].And(pcs[King].Or(pcs[Horse]).Or(pcs[Dragon])))

	// Sliders
	attackers = attackers.Or(t.LanceAttacks(them, sq, occupied).And(pcs[Lance]))
	attackers = attackers.Or(t.RookAttacks(sq, occupied).And(pcs[Rook].Or(pcs[Dragon])))
	attackers = attackers.Or(t.BishopAttacks(sq, occupied).And(pcs[Bishop].Or(pcs[Horse])))

	return attackers
}

// AllAttackersTo returns the pieces of both colors that attack sq.
func (p *Position) AllAttackersTo(sq Square, occupied Bitboard) Bitboard {
	return p.AttackersTo(sq, Black, occupied).Or(p.AttackersTo(sq, White, occupied))
}

// IsAttacked returns true if sq is attacked by color c.
func (p *Position) IsAttacked(sq Square, c Color) bool {
	return p.AttackersTo(sq, c, p.AllOccupied).More()
}

// sliderBlockers returns the pieces (of either color) that are the only
// blocker between the king of color c and an enemy slider.
func (p *Position) sliderBlockers(c Color) Bitboard {
	ksq := p.KingSquare[c]
	if ksq == NoSquare {
		return Empty
	}
	t := p.tables
	them := c.Other()
	pcs := &p.Pieces[them]

	snipers := t.RookAttacks(ksq, Empty).And(pcs[Rook].Or(pcs[Dragon]))
	snipers = snipers.Or(t.BishopAttacks(ksq, Empty).And(pcs[Bishop].Or(pcs[Horse])))
	snipers = snipers.Or(t.LanceAttacks(c, ksq, Empty).And(pcs[Lance]))

	var blockers Bitboard
	for snipers.More() {
		sniper := snipers.PopLSB()
		b := t.Between(ksq, sniper).And(p.AllOccupied)
		if b.More() && !b.MoreThanOne() {
			blockers = blockers.Or(b)
		}
	}
	return blockers
}

// Pinned returns the pieces of color c pinned to their own king.
func (p *Position) Pinned(c Color) Bitboard {
	return p.sliderBlockers(c).And(p.Occupied[c])
}
