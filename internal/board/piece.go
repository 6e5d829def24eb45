package board

import (
	"fmt"

	"github.com/notnil/chess"
)

// Kind identifies one of the 12 piece glyphs, or an empty cell.
type Kind int

// Kinds are declared in canonical assembly order: black pieces first, each
// colour alphabetical by piece name. Assemble relies on this order.
const (
	Empty Kind = iota
	BlackBishop
	BlackKing
	BlackKnight
	BlackPawn
	BlackQueen
	BlackRook
	WhiteBishop
	WhiteKing
	WhiteKnight
	WhitePawn
	WhiteQueen
	WhiteRook
)

// Kinds returns the 12 piece kinds in canonical order.
func Kinds() []Kind {
	return []Kind{
		BlackBishop, BlackKing, BlackKnight, BlackPawn, BlackQueen, BlackRook,
		WhiteBishop, WhiteKing, WhiteKnight, WhitePawn, WhiteQueen, WhiteRook,
	}
}

var kindInfo = map[Kind]struct {
	symbol byte
	name   string
	piece  chess.Piece
}{
	BlackBishop: {'b', "blackbishop", chess.BlackBishop},
	BlackKing:   {'k', "blackking", chess.BlackKing},
	BlackKnight: {'n', "blackknight", chess.BlackKnight},
	BlackPawn:   {'p', "blackpawn", chess.BlackPawn},
	BlackQueen:  {'q', "blackqueen", chess.BlackQueen},
	BlackRook:   {'r', "blackrook", chess.BlackRook},
	WhiteBishop: {'B', "whitebishop", chess.WhiteBishop},
	WhiteKing:   {'K', "whiteking", chess.WhiteKing},
	WhiteKnight: {'N', "whiteknight", chess.WhiteKnight},
	WhitePawn:   {'P', "whitepawn", chess.WhitePawn},
	WhiteQueen:  {'Q', "whitequeen", chess.WhiteQueen},
	WhiteRook:   {'R', "whiterook", chess.WhiteRook},
}

// Symbol returns the FEN letter for the kind, or 0 for Empty.
func (k Kind) Symbol() byte {
	return kindInfo[k].symbol
}

// Name returns the asset base name, e.g. "whiteknight".
func (k Kind) Name() string {
	if k == Empty {
		return "empty"
	}
	info, ok := kindInfo[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return info.name
}

// String implements fmt.Stringer
func (k Kind) String() string {
	return k.Name()
}

// IsWhite reports whether the kind is a white piece.
func (k Kind) IsWhite() bool {
	return k >= WhiteBishop && k <= WhiteRook
}

// IsBlack reports whether the kind is a black piece.
func (k Kind) IsBlack() bool {
	return k >= BlackBishop && k <= BlackRook
}

// ChessPiece converts the kind to the rules library representation.
func (k Kind) ChessPiece() chess.Piece {
	if k == Empty {
		return chess.NoPiece
	}
	return kindInfo[k].piece
}

// KindFromSymbol returns the kind for a FEN letter.
func KindFromSymbol(c byte) (Kind, bool) {
	for _, k := range Kinds() {
		if kindInfo[k].symbol == c {
			return k, true
		}
	}
	return Empty, false
}

// KindFromChess converts a rules library piece back to a Kind.
func KindFromChess(p chess.Piece) Kind {
	if p == chess.NoPiece {
		return Empty
	}
	for _, k := range Kinds() {
		if kindInfo[k].piece == p {
			return k
		}
	}
	return Empty
}

// Side is the colour the player is playing, which also fixes the board
// orientation on screen.
type Side int

const (
	White Side = iota
	Black
)

// Letter returns the FEN side-to-move letter.
func (s Side) Letter() string {
	if s == Black {
		return "b"
	}
	return "w"
}

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Black {
		return White
	}
	return Black
}
