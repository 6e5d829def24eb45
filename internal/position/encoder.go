package position

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/thyrook/clanker/internal/board"
)

// SquareReader answers what stands on a named square ("e1").
type SquareReader interface {
	PieceAt(square string) board.Kind
}

// Castling returns the castling field inferred from the squares alone: a
// right is granted when the king and the matching rook stand on their home
// squares. Whether either has moved and come back is not known, so the
// result can overstate the rights. Returns "-" when no right applies.
func Castling(squares SquareReader) string {
	var rights strings.Builder

	if squares.PieceAt("e1") == board.WhiteKing {
		if squares.PieceAt("h1") == board.WhiteRook {
			rights.WriteByte('K')
		}
		if squares.PieceAt("a1") == board.WhiteRook {
			rights.WriteByte('Q')
		}
	}
	if squares.PieceAt("e8") == board.BlackKing {
		if squares.PieceAt("h8") == board.BlackRook {
			rights.WriteByte('k')
		}
		if squares.PieceAt("a8") == board.BlackRook {
			rights.WriteByte('q')
		}
	}

	if rights.Len() == 0 {
		return "-"
	}
	return rights.String()
}

// Format builds a full FEN from its parts. En passant, halfmove and
// fullmove are always "- 0 1".
func Format(placement string, side board.Side, castling string) string {
	if castling == "" {
		castling = "-"
	}
	return fmt.Sprintf("%s %s %s - 0 1", placement, side.Letter(), castling)
}

// Encoder turns a recognized placement into a validated position string.
type Encoder struct {
	validator Validator
	logger    *zap.Logger
}

// NewEncoder creates an encoder. A nil validator accepts everything.
func NewEncoder(validator Validator, logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{validator: validator, logger: logger}
}

// Encode appends side to move and castling rights to the placement and
// validates the result. Any rejection matches ErrInvalidPosition and the
// position must not be used.
func (e *Encoder) Encode(ctx context.Context, placement string, side board.Side, squares SquareReader) (string, error) {
	fen := Format(placement, side, Castling(squares))

	if e.validator == nil {
		return fen, nil
	}

	if err := e.validator.Validate(ctx, fen); err != nil {
		e.logger.Debug("Position rejected",
			zap.String("fen", fen),
			zap.Error(err),
		)
		return "", err
	}
	return fen, nil
}
