package board

// Color represents the side owning a piece. Black (sente) moves first.
type Color uint8

const (
	Black Color = iota
	White
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case Black:
		return "Black"
	case White:
		return "White"
	default:
		return "NoColor"
	}
}

// ColorFromIndex converts an integer to a Color.
func ColorFromIndex(i int) (Color, bool) {
	if i < 0 || i >= int(NoColor) {
		return NoColor, false
	}
	return Color(i), true
}

// PieceType represents the kind of a piece, promoted kinds included.
type PieceType uint8

const (
	Pawn PieceType = iota
	Lance
	Knight
	Silver
	Bishop
	Rook
	Gold
	King
	ProPawn
	ProLance
	ProKnight
	ProSilver
	Horse
	Dragon
	NoPieceType PieceType = 14
)

const (
	// NumPieceTypes counts the piece types including promoted ones.
	NumPieceTypes = 14
	// NumHandTypes counts the piece types that can be held in hand (Pawn..Gold).
	NumHandTypes = 7
	// NumPieces counts colored pieces.
	NumPieces = 28

	promoteOffset = 8
)

var pieceTypeNames = [NumPieceTypes + 1]string{
	"Pawn", "Lance", "Knight", "Silver", "Bishop", "Rook", "Gold", "King",
	"ProPawn", "ProLance", "ProKnight", "ProSilver", "Horse", "Dragon", "None",
}

// String returns the piece type name.
func (pt PieceType) String() string {
	if pt > NoPieceType {
		return "None"
	}
	return pieceTypeNames[pt]
}

// PieceTypeFromIndex converts an integer to a PieceType.
func PieceTypeFromIndex(i int) (PieceType, bool) {
	if i < 0 || i >= NumPieceTypes {
		return NoPieceType, false
	}
	return PieceType(i), true
}

// CanPromote reports whether the type has a promoted form.
func (pt PieceType) CanPromote() bool {
	return pt <= Rook
}

// IsPromoted reports whether the type is a promoted form.
func (pt PieceType) IsPromoted() bool {
	return pt >= ProPawn && pt <= Dragon
}

// Promote returns the promoted form, or pt itself if it cannot promote.
func (pt PieceType) Promote() PieceType {
	if pt.CanPromote() {
		return pt + promoteOffset
	}
	return pt
}

// Unpromote returns the base form of a promoted type.
func (pt PieceType) Unpromote() PieceType {
	if pt.IsPromoted() {
		return pt - promoteOffset
	}
	return pt
}

// HandType returns the type a captured piece of this type becomes in hand.
func (pt PieceType) HandType() PieceType {
	return pt.Unpromote()
}

// MovesLikeGold reports whether the type uses gold steps.
func (pt PieceType) MovesLikeGold() bool {
	return pt == Gold || (pt >= ProPawn && pt <= ProSilver)
}

// IsSlider reports whether the type has ranging moves.
func (pt PieceType) IsSlider() bool {
	return pt == Lance || pt == Bishop || pt == Rook || pt == Horse || pt == Dragon
}

// sfenChars maps base types to their SFEN letter.
const sfenChars = "PLNSBRGK"

// Char returns the SFEN letter for the base type (uppercase).
func (pt PieceType) Char() byte {
	if pt >= NoPieceType {
		return ' '
	}
	return sfenChars[pt.Unpromote()]
}

// PieceValue is the material value of each piece type in centipawns.
var PieceValue = [NumPieceTypes + 1]int{
	Pawn:      90,
	Lance:     315,
	Knight:    405,
	Silver:    495,
	Bishop:    855,
	Rook:      990,
	Gold:      540,
	King:      15000,
	ProPawn:   540,
	ProLance:  540,
	ProKnight: 540,
	ProSilver: 540,
	Horse:     945,
	Dragon:    1395,
}

// Piece combines PieceType and Color into a single value.
// Encoded as: pieceType + color*14
type Piece uint8

// NoPiece marks an empty square.
const NoPiece Piece = NumPieces

// NewPiece creates a Piece from PieceType and Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*NumPieceTypes
}

// PieceFromIndex converts an integer to a Piece.
func PieceFromIndex(i int) (Piece, bool) {
	if i < 0 || i >= NumPieces {
		return NoPiece, false
	}
	return Piece(i), true
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % NumPieceTypes)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / NumPieceTypes)
}

// Promote returns the promoted piece of the same owner.
func (p Piece) Promote() Piece {
	return NewPiece(p.Type().Promote(), p.Color())
}

// String returns the SFEN token for the piece.
// Uppercase for Black, lowercase for White, "+" prefix for promoted pieces.
func (p Piece) String() string {
	if p >= NoPiece {
		return " "
	}
	pt := p.Type()
	c := pt.Char()
	if p.Color() == White {
		c += 'a' - 'A'
	}
	if pt.IsPromoted() {
		return "+" + string(c)
	}
	return string(c)
}

// PieceFromChar converts an SFEN letter to a Piece, optionally promoted.
func PieceFromChar(c byte, promoted bool) (Piece, bool) {
	color := Black
	if c >= 'a' && c <= 'z' {
		color = White
		c -= 'a' - 'A'
	}
	for i := 0; i < len(sfenChars); i++ {
		if sfenChars[i] != c {
			continue
		}
		pt := PieceType(i)
		if promoted {
			if !pt.CanPromote() {
				return NoPiece, false
			}
			pt = pt.Promote()
		}
		return NewPiece(pt, color), true
	}
	return NoPiece, false
}

// Value returns the material value of the piece in centipawns.
func (p Piece) Value() int {
	return PieceValue[p.Type()]
}
