package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartSFEN is the SFEN string for the starting position.
const StartSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// ErrInvalidSFEN is returned for malformed SFEN strings.
var ErrInvalidSFEN = errors.New("invalid SFEN")

// ParseSFEN parses an SFEN string using the default tables.
func ParseSFEN(sfen string) (*Position, error) {
	return ParseSFENWithTables(sfen, DefaultTables())
}

// ParseSFENWithTables parses an SFEN string into a Position bound to t.
func ParseSFENWithTables(sfen string, t *Tables) (*Position, error) {
	parts := strings.Fields(sfen)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 fields, got %d", ErrInvalidSFEN, len(parts))
	}

	pos := newEmptyPosition(t)

	// Piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	// Side to move (field 1)
	switch parts[1] {
	case "b":
		pos.SideToMove = Black
	case "w":
		pos.SideToMove = White
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidSFEN, parts[1])
	}

	// Hands (field 2)
	if err := parseHands(pos, parts[2]); err != nil {
		return nil, err
	}

	// Move number (field 3, optional)
	if len(parts) > 3 {
		n, err := strconv.Atoi(parts[3])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: move number %q", ErrInvalidSFEN, parts[3])
		}
		pos.MoveNumber = n
	}

	pos.Hash = pos.computeHash()
	pos.updateCheckers()

	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSFEN, err)
	}
	return pos, nil
}

// parsePiecePlacement reads ranks a..i, each from file 9 down to file 1.
func parsePiecePlacement(pos *Position, placement string) error {
	rows := strings.Split(placement, "/")
	if len(rows) != 9 {
		return fmt.Errorf("%w: need 9 ranks, got %d", ErrInvalidSFEN, len(rows))
	}

	for rank, row := range rows {
		col := 0
		promoted := false
		for i := 0; i < len(row); i++ {
			ch := row[i]
			switch {
			case ch == '+':
				if promoted {
					return fmt.Errorf("%w: double promotion marker in %q", ErrInvalidSFEN, row)
				}
				promoted = true
			case ch >= '1' && ch <= '9':
				if promoted {
					return fmt.Errorf("%w: promotion marker before empty squares in %q", ErrInvalidSFEN, row)
				}
				col += int(ch - '0')
			default:
				piece, ok := PieceFromChar(ch, promoted)
				if !ok {
					return fmt.Errorf("%w: bad piece %q", ErrInvalidSFEN, string(ch))
				}
				if col >= 9 {
					return fmt.Errorf("%w: rank %c too long", ErrInvalidSFEN, 'a'+rank)
				}
				pos.putPiece(piece, NewSquare(8-col, rank))
				col++
				promoted = false
			}
		}
		if col != 9 || promoted {
			return fmt.Errorf("%w: rank %c has %d files", ErrInvalidSFEN, 'a'+rank, col)
		}
	}
	return nil
}

// parseHands reads the hand field, e.g. "RBG2s17p" or "-".
func parseHands(pos *Position, field string) error {
	if field == "-" {
		return nil
	}
	count := 0
	for i := 0; i < len(field); i++ {
		ch := field[i]
		if ch >= '0' && ch <= '9' {
			count = count*10 + int(ch-'0')
			continue
		}
		piece, ok := PieceFromChar(ch, false)
		if !ok || piece.Type() == King {
			return fmt.Errorf("%w: bad hand piece %q", ErrInvalidSFEN, string(ch))
		}
		if count == 0 {
			count = 1
		}
		pt := piece.Type()
		c := piece.Color()
		if int(pos.Hands[c][pt])+count > int(maxHand[pt]) {
			return fmt.Errorf("%w: too many %s in hand", ErrInvalidSFEN, pt)
		}
		pos.Hands[c][pt] += uint8(count)
		count = 0
	}
	if count != 0 {
		return fmt.Errorf("%w: dangling count in hand %q", ErrInvalidSFEN, field)
	}
	return nil
}

// SFEN returns the SFEN string for the position.
func (p *Position) SFEN() string {
	var sb strings.Builder

	for rank := 0; rank < 9; rank++ {
		if rank > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for file := 8; file >= 0; file-- {
			piece := p.Board[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
	}

	if p.SideToMove == Black {
		sb.WriteString(" b ")
	} else {
		sb.WriteString(" w ")
	}
	sb.WriteString(handString(&p.Hands))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.MoveNumber))

	return sb.String()
}
