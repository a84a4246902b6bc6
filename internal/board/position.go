package board

import (
	"fmt"
	"slices"
	"strings"
)

// stateEntry records a position that preceded the current one.
type stateEntry struct {
	Hash    uint64
	InCheck bool // side to move was in check
}

// Position represents a complete shogi position.
type Position struct {
	tables *Tables

	// Piece bitboards: [Color][PieceType]
	Pieces [2][NumPieceTypes]Bitboard

	// Occupancy bitboards (cached for efficiency)
	Occupied    [2]Bitboard // All pieces of each color
	AllOccupied Bitboard    // All pieces on the board

	// Mailbox, NoPiece on empty squares
	Board [NumSquares]Piece

	// Pieces in hand: [Color]
	Hands [2]Hand

	// Game state
	SideToMove Color
	MoveNumber int // SFEN move counter, starts at 1 and counts plies

	// Zobrist hash over board, hands and side to move
	Hash uint64

	// King positions (cached for check detection), NoSquare if absent
	KingSquare [2]Square

	// Checkers bitboard (pieces giving check)
	Checkers Bitboard

	// Earlier positions, oldest first, for undo and repetition
	history []stateEntry
}

// newEmptyPosition creates an empty board bound to t.
func newEmptyPosition(t *Tables) *Position {
	p := &Position{tables: t}
	p.Clear()
	return p
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, _ := ParseSFEN(StartSFEN)
	return pos
}

// Tables returns the lookup tables the position uses.
func (p *Position) Tables() *Tables {
	return p.tables
}

// Copy creates a deep copy of the position.
func (p *Position) Copy() *Position {
	newPos := *p
	newPos.history = slices.Grow(slices.Clone(p.history), 256)
	return &newPos
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	return p.Board[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Board[sq] == NoPiece
}

// putPiece places a piece on an empty square and updates the hash.
func (p *Position) putPiece(piece Piece, sq Square) {
	c := piece.Color()
	pt := piece.Type()

	p.Pieces[c][pt] = p.Pieces[c][pt].Set(sq)
	p.Occupied[c] = p.Occupied[c].Set(sq)
	p.AllOccupied = p.AllOccupied.Set(sq)
	p.Board[sq] = piece
	p.Hash ^= p.tables.Zobrist.Piece[piece][sq]

	if pt == King {
		p.KingSquare[c] = sq
	}
}

// removePiece removes the piece on sq and updates the hash.
func (p *Position) removePiece(sq Square) Piece {
	piece := p.Board[sq]
	if piece == NoPiece {
		return NoPiece
	}

	c := piece.Color()
	pt := piece.Type()

	p.Pieces[c][pt] = p.Pieces[c][pt].Clear(sq)
	p.Occupied[c] = p.Occupied[c].Clear(sq)
	p.AllOccupied = p.AllOccupied.Clear(sq)
	p.Board[sq] = NoPiece
	p.Hash ^= p.tables.Zobrist.Piece[piece][sq]

	return piece
}

// addToHand changes the hand count of pt for c by delta and updates the hash.
func (p *Position) addToHand(c Color, pt PieceType, delta int) {
	z := &p.tables.Zobrist.Hand[c][pt]
	n := p.Hands[c][pt]
	p.Hash ^= z[n]
	n = uint8(int(n) + delta)
	p.Hash ^= z[n]
	p.Hands[c][pt] = n
}

// computeHash recalculates the hash from scratch.
func (p *Position) computeHash() uint64 {
	z := &p.tables.Zobrist
	var h uint64
	for sq := Square(0); sq < NumSquares; sq++ {
		if pc := p.Board[sq]; pc != NoPiece {
			h ^= z.Piece[pc][sq]
		}
	}
	for c := Black; c <= White; c++ {
		for pt := Pawn; pt < NumHandTypes; pt++ {
			h ^= z.Hand[c][pt][p.Hands[c][pt]]
		}
	}
	if p.SideToMove == White {
		h ^= z.Side
	}
	return h
}

// updateCheckers recomputes the pieces checking the side to move.
func (p *Position) updateCheckers() {
	us := p.SideToMove
	if p.KingSquare[us] == NoSquare {
		p.Checkers = Empty
		return
	}
	p.Checkers = p.AttackersTo(p.KingSquare[us], us.Other(), p.AllOccupied)
}

// MakeMove applies m and returns the information needed to take it back.
// Moves the piece cannot make are rejected with Valid == false: a wrong
// owner, an unreachable or blocked target, a promotion outside the zone and a
// piece left on a square it could never leave. Leaving the king in check is
// not detected here.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		Captured: NoPiece,
		Hash:     p.Hash,
		Checkers: p.Checkers,
	}
	us := p.SideToMove
	to := m.To()
	if !to.IsValid() {
		return undo
	}

	if m.IsDrop() {
		pt := m.DropType()
		if pt >= NumHandTypes || p.Hands[us][pt] == 0 || p.Board[to] != NoPiece || m.IsPromotion() ||
			mustPromote(pt, us, to) {
			return undo
		}
		p.history = append(p.history, stateEntry{Hash: p.Hash, InCheck: p.Checkers.More()})
		p.addToHand(us, pt, -1)
		p.putPiece(NewPiece(pt, us), to)
	} else {
		from := m.From()
		piece := p.Board[from]
		if piece == NoPiece || piece.Color() != us {
			return undo
		}
		captured := p.Board[to]
		if captured != NoPiece && (captured.Color() == us || captured.Type() == King) {
			return undo
		}
		if !p.tables.Attacks(piece, from, p.AllOccupied).IsSet(to) {
			return undo
		}
		if m.IsPromotion() {
			zone := PromotionZone[us]
			if !piece.Type().CanPromote() || !(zone.IsSet(from) || zone.IsSet(to)) {
				return undo
			}
		} else if mustPromote(piece.Type(), us, to) {
			return undo
		}

		p.history = append(p.history, stateEntry{Hash: p.Hash, InCheck: p.Checkers.More()})
		if captured != NoPiece {
			p.removePiece(to)
			p.addToHand(us, captured.Type().HandType(), 1)
			undo.Captured = captured
		}
		p.removePiece(from)
		if m.IsPromotion() {
			piece = piece.Promote()
		}
		p.putPiece(piece, to)
	}

	p.SideToMove = us.Other()
	p.Hash ^= p.tables.Zobrist.Side
	p.MoveNumber++
	p.updateCheckers()

	undo.Valid = true
	return undo
}

// UnmakeMove takes back a move applied by MakeMove.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	if !undo.Valid {
		return
	}

	p.SideToMove = p.SideToMove.Other()
	p.MoveNumber--
	us := p.SideToMove
	to := m.To()

	if m.IsDrop() {
		p.removePiece(to)
		p.Hands[us][m.DropType()]++
	} else {
		piece := p.removePiece(to)
		if m.IsPromotion() {
			piece = NewPiece(piece.Type().Unpromote(), us)
		}
		p.putPiece(piece, m.From())
		if undo.Captured != NoPiece {
			p.putPiece(undo.Captured, to)
			p.Hands[us][undo.Captured.Type().HandType()]--
		}
	}

	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.history = p.history[:len(p.history)-1]
}

// NullMoveUndo stores state for unmake of null move.
// Returned by MakeNullMove and passed to UnmakeNullMove.
type NullMoveUndo struct {
	Hash     uint64
	Checkers Bitboard
}

// MakeNullMove makes a null move (passes the turn without moving).
// Used for null move pruning in search.
// Returns undo info that must be passed to UnmakeNullMove.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		Hash:     p.Hash,
		Checkers: p.Checkers,
	}

	p.history = append(p.history, stateEntry{Hash: p.Hash, InCheck: p.Checkers.More()})
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= p.tables.Zobrist.Side
	p.updateCheckers()

	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.SideToMove = p.SideToMove.Other()
	p.history = p.history[:len(p.history)-1]
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers.More()
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n  9  8  7  6  5  4  3  2  1\n")
	for rank := 0; rank < 9; rank++ {
		sb.WriteString(" ")
		for file := 8; file >= 0; file-- {
			piece := p.Board[NewSquare(file, rank)]
			if piece == NoPiece {
				sb.WriteString(" . ")
			} else {
				fmt.Fprintf(&sb, "%2s ", piece.String())
			}
		}
		fmt.Fprintf(&sb, " %c\n", 'a'+rank)
	}
	fmt.Fprintf(&sb, "\nHands: %s\n", handString(&p.Hands))
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Move: %d\n", p.MoveNumber)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

// Clear resets the position to an empty board.
func (p *Position) Clear() {
	t := p.tables
	if t == nil {
		t = DefaultTables()
	}
	*p = Position{
		tables:     t,
		MoveNumber: 1,
	}
	for sq := range p.Board {
		p.Board[sq] = NoPiece
	}
	p.KingSquare[Black] = NoSquare
	p.KingSquare[White] = NoSquare
	p.Hash = p.computeHash()
}

// Validate checks if the position is valid.
func (p *Position) Validate() error {
	for c := Black; c <= White; c++ {
		if p.Pieces[c][King].PopCount() > 1 {
			return fmt.Errorf("%s has more than one king", c)
		}

		// Dead pieces: no further move from where they stand
		last := RankMask[0]
		lastTwo := RankMask[0].Or(RankMask[1])
		if c == White {
			last = RankMask[8]
			lastTwo = RankMask[8].Or(RankMask[7])
		}
		if p.Pieces[c][Pawn].Or(p.Pieces[c][Lance]).Intersects(last) || p.Pieces[c][Knight].Intersects(lastTwo) {
			return fmt.Errorf("%s has a piece with no legal move", c)
		}

		for f := 0; f < 9; f++ {
			if p.Pieces[c][Pawn].And(FileMask[f]).MoreThanOne() {
				return fmt.Errorf("%s has two pawns on file %d", c, f+1)
			}
		}

		for pt := Pawn; pt < NumHandTypes; pt++ {
			if p.Hands[c][pt] > maxHand[pt] {
				return fmt.Errorf("%s holds too many %s", c, pt)
			}
		}
	}

	them := p.SideToMove.Other()
	if ksq := p.KingSquare[them]; ksq != NoSquare && p.IsAttacked(ksq, p.SideToMove) {
		return fmt.Errorf("side not to move is in check")
	}

	return nil
}

// Repetition classifies the current position against earlier ones.
type Repetition uint8

const (
	NoRepetition Repetition = iota
	RepetitionDraw
	RepetitionWin  // the opponent has been giving perpetual check
	RepetitionLoss // the side to move has been giving perpetual check
)

// CheckRepetition looks for the current position among earlier ones.
// A repeat inside the last searchPly plies counts at once; older repeats
// count only once the position has occurred four times (sennichite).
func (p *Position) CheckRepetition(searchPly int) Repetition {
	n := len(p.history)
	occurrences := 1
	first := -1
	for i := n - 4; i >= 0; i -= 2 {
		if p.history[i].Hash != p.Hash {
			continue
		}
		if first < 0 {
			first = i
		}
		occurrences++
		if n-i <= searchPly || occurrences >= 4 {
			return p.classifyCycle(first)
		}
	}
	return NoRepetition
}

// classifyCycle decides a repetition whose cycle starts at history[start].
func (p *Position) classifyCycle(start int) Repetition {
	n := len(p.history)
	usChecked := p.Checkers.More()
	themChecked := true
	for k := start; k < n; k++ {
		if (n-k)%2 == 0 {
			usChecked = usChecked && p.history[k].InCheck
		} else {
			themChecked = themChecked && p.history[k].InCheck
		}
	}
	switch {
	case usChecked:
		return RepetitionWin
	case themChecked:
		return RepetitionLoss
	default:
		return RepetitionDraw
	}
}
