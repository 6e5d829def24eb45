package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/notnil/chess"
)

// ErrInvalidPosition marks a position that failed validation.
var ErrInvalidPosition = errors.New("invalid position")

// Validator decides whether a FEN may be handed to the move oracle.
type Validator interface {
	Validate(ctx context.Context, fen string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, fen string) error

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, fen string) error {
	return f(ctx, fen)
}

func invalid(fen, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidPosition, fen, fmt.Sprintf(format, args...))
}

// Chain runs validators in order and stops at the first rejection.
type Chain []Validator

// Validate implements Validator.
func (c Chain) Validate(ctx context.Context, fen string) error {
	for _, v := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := v.Validate(ctx, fen); err != nil {
			return err
		}
	}
	return nil
}

// RulesValidator checks a position in-process: it must parse, have exactly
// one king per colour, no pawn on the first or last rank, the side not to
// move must not be in check, and the side to move needs a legal move.
type RulesValidator struct{}

// Validate implements Validator.
func (RulesValidator) Validate(_ context.Context, fen string) (err error) {
	// Move generation on a malformed board can panic.
	defer func() {
		if r := recover(); r != nil {
			err = invalid(fen, "rules check panicked: %v", r)
		}
	}()

	opt, perr := chess.FEN(fen)
	if perr != nil {
		return invalid(fen, "%v", perr)
	}
	game := chess.NewGame(opt)
	pos := game.Position()

	kings := map[chess.Color]int{}
	for sq, p := range pos.Board().SquareMap() {
		if p.Type() == chess.King {
			kings[p.Color()]++
		}
		if p.Type() == chess.Pawn && (sq.Rank() == chess.Rank1 || sq.Rank() == chess.Rank8) {
			return invalid(fen, "pawn on %s", sq)
		}
	}
	if kings[chess.White] != 1 || kings[chess.Black] != 1 {
		return invalid(fen, "%d white and %d black kings", kings[chess.White], kings[chess.Black])
	}

	mover := pos.Turn()
	if sq, ok := kingSquare(pos.Board(), mover.Other()); ok && attacked(pos.Board(), sq, mover) {
		return invalid(fen, "%s king on %s is in check with %s to move", mover.Other().Name(), sq, mover.Name())
	}

	if len(game.ValidMoves()) == 0 {
		return invalid(fen, "no legal move")
	}
	return nil
}

func kingSquare(b *chess.Board, c chess.Color) (chess.Square, bool) {
	for sq, p := range b.SquareMap() {
		if p.Type() == chess.King && p.Color() == c {
			return sq, true
		}
	}
	return chess.NoSquare, false
}

var (
	knightSteps   = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps     = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightLines = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalLines = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// attacked reports whether any piece of colour by attacks target.
func attacked(b *chess.Board, target chess.Square, by chess.Color) bool {
	f, r := int(target.File()), int(target.Rank())

	at := func(df, dr int) chess.Piece {
		nf, nr := f+df, r+dr
		if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
			return chess.NoPiece
		}
		return b.Piece(chess.NewSquare(chess.File(nf), chess.Rank(nr)))
	}
	is := func(p chess.Piece, types ...chess.PieceType) bool {
		if p == chess.NoPiece || p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	// Pawns attack towards the opponent, so look one rank behind target.
	pawnRank := -1
	if by == chess.Black {
		pawnRank = 1
	}
	if is(at(-1, pawnRank), chess.Pawn) || is(at(1, pawnRank), chess.Pawn) {
		return true
	}
	for _, s := range knightSteps {
		if is(at(s[0], s[1]), chess.Knight) {
			return true
		}
	}
	for _, s := range kingSteps {
		if is(at(s[0], s[1]), chess.King) {
			return true
		}
	}

	slide := func(lines [][2]int, types ...chess.PieceType) bool {
		for _, l := range lines {
			for n := 1; n < 8; n++ {
				nf, nr := f+l[0]*n, r+l[1]*n
				if nf < 0 || nf > 7 || nr < 0 || nr > 7 {
					break
				}
				p := b.Piece(chess.NewSquare(chess.File(nf), chess.Rank(nr)))
				if p == chess.NoPiece {
					continue
				}
				if is(p, types...) {
					return true
				}
				break
			}
		}
		return false
	}
	return slide(straightLines, chess.Rook, chess.Queen) || slide(diagonalLines, chess.Bishop, chess.Queen)
}

// Probe is a throwaway engine used to test a position.
type Probe interface {
	SetPosition(fen string) error
	BestMove(ctx context.Context, elo, depth int) (string, error)
	Close() error
}

// ProbeFactory starts a fresh probe.
type ProbeFactory func() (Probe, error)

// DefaultProbeTimeout bounds one engine validation when no timeout is given.
const DefaultProbeTimeout = 2 * time.Second

// EngineValidator asks a disposable engine process for a move in the
// position. Illegal positions tend to crash engines, so the probe never
// shares a process with the player's oracle and is always torn down. A
// probe that crashes or does not answer within the timeout rejects the
// position.
type EngineValidator struct {
	newProbe ProbeFactory
	depth    int
	timeout  time.Duration
}

// NewEngineValidator creates an engine validator searching to depth and
// giving each probe at most timeout to answer.
func NewEngineValidator(newProbe ProbeFactory, depth int, timeout time.Duration) *EngineValidator {
	if depth <= 0 {
		depth = 1
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &EngineValidator{newProbe: newProbe, depth: depth, timeout: timeout}
}

// Validate implements Validator.
func (v *EngineValidator) Validate(ctx context.Context, fen string) error {
	probe, err := v.newProbe()
	if err != nil {
		return fmt.Errorf("start validation engine: %w", err)
	}
	defer probe.Close()

	if err := probe.SetPosition(fen); err != nil {
		return invalid(fen, "%v", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	move, err := probe.BestMove(probeCtx, 0, v.depth)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if probeCtx.Err() != nil {
		return invalid(fen, "engine did not answer within %s", v.timeout)
	}
	if err != nil {
		return invalid(fen, "engine: %v", err)
	}
	if move == "" {
		return invalid(fen, "engine found no move")
	}
	return nil
}
