package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"go.uber.org/zap"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/position"
)

var (
	// ErrProcessFailure wraps any failure talking to the engine process.
	ErrProcessFailure = errors.New("engine process failure")
	// ErrNoMove is returned when the position has no legal move.
	ErrNoMove = errors.New("no legal move")
	// ErrNoPosition is returned when a query needs a position and none is set.
	ErrNoPosition = errors.New("no position set")
)

// Options configures an engine process.
type Options struct {
	Path    string `json:"path"`    // Engine binary, looked up on PATH when bare
	Threads int    `json:"threads"` // Search threads (0 leaves the engine default)
	Hash    int    `json:"hash"`    // Hash table size in MB (0 leaves the engine default)
	Elo     int    `json:"elo"`     // Playing strength; 0 plays at full strength
	Depth   int    `json:"depth"`   // Search depth per move
}

// DefaultOptions returns options for a locally installed stockfish.
func DefaultOptions() Options {
	return Options{
		Path:    "stockfish",
		Threads: 3,
		Depth:   4,
		Elo:     1400,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Path == "" {
		return fmt.Errorf("engine path is empty")
	}
	if o.Threads < 0 || o.Hash < 0 || o.Elo < 0 {
		return fmt.Errorf("engine threads, hash and elo must be non-negative")
	}
	if o.Depth < 1 || o.Depth > 64 {
		return fmt.Errorf("invalid depth: %d (must be 1-64)", o.Depth)
	}
	return nil
}

// handshakeTimeout bounds engine start-up.
const handshakeTimeout = 10 * time.Second

// Oracle holds one UCI engine process and the position it is working on.
// It answers best-move queries and the square and capture questions the
// player asks about the held position.
type Oracle struct {
	opts   Options
	logger *zap.Logger

	mu   sync.Mutex
	proc *process
	game *chess.Game
	elo  int
}

// New starts the engine process and runs the UCI handshake.
func New(opts Options, logger *zap.Logger) (*Oracle, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine options: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Oracle{opts: opts, logger: logger}
	if err := o.start(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Oracle) start() error {
	proc, err := startProcess(o.opts.Path)
	if err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrProcessFailure, o.opts.Path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	if err := handshake(ctx, proc, o.opts); err != nil {
		proc.kill()
		return fmt.Errorf("%w: handshake: %v", ErrProcessFailure, err)
	}

	o.proc = proc
	o.elo = -1
	return nil
}

func handshake(ctx context.Context, proc *process, opts Options) error {
	if err := proc.send(uci.CmdUCI); err != nil {
		return err
	}
	if _, err := proc.readUntil(ctx, "uciok"); err != nil {
		return err
	}

	var cmds []uci.Cmd
	if opts.Threads > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(opts.Threads)})
	}
	if opts.Hash > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(opts.Hash)})
	}
	cmds = append(cmds, uci.CmdUCINewGame, uci.CmdIsReady)
	if err := proc.send(cmds...); err != nil {
		return err
	}
	_, err := proc.readUntil(ctx, "readyok")
	return err
}

// SetPosition replaces the held position with a FEN.
func (o *Oracle) SetPosition(fen string) error {
	opt, err := chess.FEN(fen)
	if err != nil {
		return fmt.Errorf("bad position %q: %w", fen, err)
	}

	o.mu.Lock()
	o.game = chess.NewGame(opt)
	o.mu.Unlock()
	return nil
}

// BestMove searches the held position and returns the move in UCI
// notation. elo <= 0 searches at full strength, depth <= 0 uses the
// configured depth. Cancelling ctx kills the process, as does an engine
// that exits or answers nonsense; the oracle must be restarted afterwards.
func (o *Oracle) BestMove(ctx context.Context, elo, depth int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.proc == nil {
		return "", fmt.Errorf("%w: engine closed", ErrProcessFailure)
	}
	if o.game == nil {
		return "", ErrNoPosition
	}
	if len(o.game.ValidMoves()) == 0 {
		return "", ErrNoMove
	}
	if depth <= 0 {
		depth = o.opts.Depth
	}

	var cmds []uci.Cmd
	if elo != o.elo {
		cmds = append(cmds, strengthCmds(elo)...)
	}
	cmds = append(cmds, uci.CmdPosition{Position: o.game.Position()}, uci.CmdGo{Depth: depth})

	if err := o.proc.send(cmds...); err != nil {
		o.drop()
		return "", fmt.Errorf("%w: %v", ErrProcessFailure, err)
	}

	line, err := o.proc.readUntil(ctx, "bestmove")
	if err != nil {
		o.drop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		// Legal moves exist, so a silent exit is a crash.
		return "", fmt.Errorf("%w: %v during search", ErrProcessFailure, err)
	}
	o.elo = elo

	fields := strings.Fields(line)
	if len(fields) < 2 {
		o.drop()
		return "", fmt.Errorf("%w: malformed reply %q", ErrProcessFailure, line)
	}
	best := fields[1]
	if !isLegal(o.game, best) {
		o.drop()
		return "", fmt.Errorf("%w: engine answered %q in %s", ErrProcessFailure, best, o.game.Position())
	}

	o.logger.Debug("Engine move",
		zap.String("move", best),
		zap.Int("elo", elo),
		zap.Int("depth", depth),
	)
	return best, nil
}

func isLegal(game *chess.Game, move string) bool {
	for _, m := range game.ValidMoves() {
		if m.String() == move {
			return true
		}
	}
	return false
}

// drop kills the process. Callers hold mu.
func (o *Oracle) drop() {
	o.proc.kill()
	o.proc = nil
}

func strengthCmds(elo int) []uci.Cmd {
	if elo <= 0 {
		return []uci.Cmd{uci.CmdSetOption{Name: "UCI_LimitStrength", Value: "false"}}
	}
	return []uci.Cmd{
		uci.CmdSetOption{Name: "UCI_LimitStrength", Value: "true"},
		uci.CmdSetOption{Name: "UCI_Elo", Value: strconv.Itoa(elo)},
	}
}

// PieceAt returns what stands on a square ("e1") of the held position.
func (o *Oracle) PieceAt(square string) board.Kind {
	idx, err := board.ParseSquare(square)
	if err != nil {
		return board.Empty
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.game == nil {
		return board.Empty
	}
	return board.KindFromChess(o.game.Position().Board().Piece(chessSquare(idx)))
}

// WouldBeCapture reports whether a UCI move takes a piece standing on its
// destination square. En passant does not count.
func (o *Oracle) WouldBeCapture(move string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.game == nil {
		return false
	}
	m, err := chess.UCINotation{}.Decode(o.game.Position(), move)
	if err != nil {
		return false
	}
	return m.HasTag(chess.Capture) && !m.HasTag(chess.EnPassant)
}

// Play advances the held position by one UCI move.
func (o *Oracle) Play(move string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.game == nil {
		return ErrNoPosition
	}
	m, err := chess.UCINotation{}.Decode(o.game.Position(), move)
	if err != nil {
		return fmt.Errorf("bad move %q: %w", move, err)
	}
	if err := o.game.Move(m); err != nil {
		return fmt.Errorf("illegal move %q: %w", move, err)
	}
	return nil
}

// Restart replaces the engine process, keeping the held position.
func (o *Oracle) Restart() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.proc != nil {
		o.proc.close()
		o.proc = nil
	}

	o.logger.Warn("Restarting engine", zap.String("path", o.opts.Path))
	return o.start()
}

// Close stops the engine process.
func (o *Oracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.proc == nil {
		return nil
	}
	o.proc.close()
	o.proc = nil
	return nil
}

func chessSquare(idx board.Index) chess.Square {
	return chess.Square(idx.Rank*8 + idx.File)
}

// Factory starts oracles that share one set of options.
type Factory struct {
	Options Options
	Logger  *zap.Logger
}

// New starts an oracle.
func (f Factory) New() (*Oracle, error) {
	return New(f.Options, f.Logger)
}

// Probe starts an oracle for one-off position checks.
func (f Factory) Probe() (position.Probe, error) {
	o, err := f.New()
	if err != nil {
		return nil, err
	}
	return o, nil
}
