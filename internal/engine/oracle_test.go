package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/position"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func newTestOracle(t *testing.T) *Oracle {
	t.Helper()

	path, err := exec.LookPath("stockfish")
	if err != nil {
		t.Skip("stockfish not installed")
	}

	opts := DefaultOptions()
	opts.Path = path
	opts.Threads = 1
	opts.Hash = 16

	o, err := New(opts, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to start engine: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Options)
		expectErr bool
	}{
		{"Defaults", func(o *Options) {}, false},
		{"Empty path", func(o *Options) { o.Path = "" }, true},
		{"Zero depth", func(o *Options) { o.Depth = 0 }, true},
		{"Negative hash", func(o *Options) { o.Hash = -1 }, true},
		{"Full strength", func(o *Options) { o.Elo = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modifyFn(&opts)

			err := opts.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestNewMissingBinary(t *testing.T) {
	opts := DefaultOptions()
	opts.Path = "/nonexistent/engine-binary"

	_, err := New(opts, zap.NewNop())
	if !errors.Is(err, ErrProcessFailure) {
		t.Errorf("Expected ErrProcessFailure, got %v", err)
	}
}

func TestOracleBestMove(t *testing.T) {
	o := newTestOracle(t)

	if err := o.SetPosition(startFEN); err != nil {
		t.Fatal(err)
	}

	move, err := o.BestMove(context.Background(), 0, 4)
	if err != nil {
		t.Fatalf("BestMove failed: %v", err)
	}
	if len(move) != 4 {
		t.Errorf("Expected a 4 character move, got %q", move)
	}

	if err := o.Play(move); err != nil {
		t.Errorf("Engine move %s not playable: %v", move, err)
	}
}

func TestOracleNoMove(t *testing.T) {
	o := newTestOracle(t)

	// Fool's mate: white is checkmated.
	if err := o.SetPosition("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"); err != nil {
		t.Fatal(err)
	}

	if _, err := o.BestMove(context.Background(), 0, 2); !errors.Is(err, ErrNoMove) {
		t.Errorf("Expected ErrNoMove, got %v", err)
	}
}

func TestOracleRestartKeepsPosition(t *testing.T) {
	o := newTestOracle(t)

	if err := o.SetPosition(startFEN); err != nil {
		t.Fatal(err)
	}
	if err := o.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	if o.PieceAt("e1") != board.WhiteKing {
		t.Errorf("Expected position kept across restart, e1 holds %s", o.PieceAt("e1"))
	}
	if _, err := o.BestMove(context.Background(), 1500, 2); err != nil {
		t.Errorf("BestMove after restart failed: %v", err)
	}
}

// scriptedEngine writes a shell script that speaks enough UCI for the
// handshake and runs onGo when a search starts.
func scriptedEngine(t *testing.T, onGo string) Options {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}

	script := `#!/bin/sh
while read -r line; do
  case "$line" in
    uci) echo "id name scripted"; echo "uciok" ;;
    isready) echo "readyok" ;;
    go*) ` + onGo + ` ;;
    quit) exit 0 ;;
  esac
done
`
	path := filepath.Join(t.TempDir(), "engine.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write engine script: %v", err)
	}

	opts := DefaultOptions()
	opts.Path = path
	return opts
}

func newScriptedOracle(t *testing.T, onGo string) *Oracle {
	t.Helper()

	o, err := New(scriptedEngine(t, onGo), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to start scripted engine: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	if err := o.SetPosition(startFEN); err != nil {
		t.Fatal(err)
	}
	return o
}

func TestScriptedBestMove(t *testing.T) {
	o := newScriptedOracle(t, `echo "info depth 1 score cp 20"; echo "bestmove e2e4 ponder e7e5"`)

	move, err := o.BestMove(context.Background(), 1400, 1)
	if err != nil {
		t.Fatalf("BestMove failed: %v", err)
	}
	if move != "e2e4" {
		t.Errorf("Expected e2e4, got %s", move)
	}

	// Same strength again skips the option commands.
	if _, err := o.BestMove(context.Background(), 1400, 1); err != nil {
		t.Errorf("Second search failed: %v", err)
	}
}

func TestOracleCancelledSearch(t *testing.T) {
	o := newScriptedOracle(t, ":")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := o.BestMove(ctx, 0, 30)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Cancelled search took %v to return", elapsed)
	}

	// The process is gone; further searches report a process failure.
	if _, err := o.BestMove(context.Background(), 0, 2); !errors.Is(err, ErrProcessFailure) {
		t.Errorf("Expected ErrProcessFailure, got %v", err)
	}

	if err := o.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if o.PieceAt("e1") != board.WhiteKing {
		t.Error("Expected position kept across restart")
	}
}

func TestOracleEngineCrashDuringSearch(t *testing.T) {
	o := newScriptedOracle(t, "exit 1")

	_, err := o.BestMove(context.Background(), 0, 2)
	if !errors.Is(err, ErrProcessFailure) {
		t.Fatalf("Expected ErrProcessFailure, got %v", err)
	}
	if errors.Is(err, ErrNoMove) {
		t.Error("A crash with legal moves available must not read as no move")
	}

	if err := o.Restart(); err != nil {
		t.Errorf("Restart after crash failed: %v", err)
	}
}

func TestOracleRejectsIllegalReply(t *testing.T) {
	o := newScriptedOracle(t, `echo "bestmove e2e5"`)

	if _, err := o.BestMove(context.Background(), 0, 2); !errors.Is(err, ErrProcessFailure) {
		t.Errorf("Expected ErrProcessFailure for an illegal reply, got %v", err)
	}
}

func TestHandshakeFailure(t *testing.T) {
	opts := scriptedEngine(t, ":")
	if err := os.WriteFile(opts.Path, []byte("#!/bin/sh\nexit 3\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := New(opts, zap.NewNop()); !errors.Is(err, ErrProcessFailure) {
		t.Errorf("Expected ErrProcessFailure, got %v", err)
	}
}

func TestEngineValidatorWithCrashingEngine(t *testing.T) {
	tests := []struct {
		name string
		onGo string
	}{
		{"Engine exits on search", "exit 1"},
		{"Engine never answers", ":"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Factory{Options: scriptedEngine(t, tt.onGo), Logger: zap.NewNop()}
			v := position.NewEngineValidator(f.Probe, 1, 300*time.Millisecond)

			start := time.Now()
			err := v.Validate(context.Background(), startFEN)
			if !errors.Is(err, position.ErrInvalidPosition) {
				t.Errorf("Expected ErrInvalidPosition, got %v", err)
			}
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Errorf("Validation took %v", elapsed)
			}
		})
	}
}

func TestEngineValidatorWithAnsweringEngine(t *testing.T) {
	f := Factory{Options: scriptedEngine(t, `echo "bestmove e2e4"`), Logger: zap.NewNop()}
	v := position.NewEngineValidator(f.Probe, 1, time.Second)

	if err := v.Validate(context.Background(), startFEN); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

// Position queries run in-process and need no engine binary.
func positionOnly(t *testing.T, fen string) *Oracle {
	t.Helper()

	o := &Oracle{opts: DefaultOptions(), logger: zap.NewNop()}
	if err := o.SetPosition(fen); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	return o
}

func TestPieceAt(t *testing.T) {
	o := positionOnly(t, startFEN)

	tests := []struct {
		square   string
		expected board.Kind
	}{
		{"e1", board.WhiteKing},
		{"h1", board.WhiteRook},
		{"a8", board.BlackRook},
		{"d8", board.BlackQueen},
		{"e4", board.Empty},
		{"z9", board.Empty},
	}

	for _, tt := range tests {
		if got := o.PieceAt(tt.square); got != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.square, tt.expected, got)
		}
	}
}

func TestWouldBeCapture(t *testing.T) {
	// White pawn e5 can take d6 en passant or the knight on f6.
	o := positionOnly(t, "4k3/8/5n2/3pP3/8/8/8/4K3 w - d6 0 2")

	tests := []struct {
		move     string
		expected bool
	}{
		{"e5f6", true},
		{"e5d6", false},
		{"e5e6", false},
		{"e1e2", false},
		{"a1a8", false},
	}

	for _, tt := range tests {
		if got := o.WouldBeCapture(tt.move); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.move, tt.expected, got)
		}
	}
}

func TestPlay(t *testing.T) {
	o := positionOnly(t, startFEN)

	if err := o.Play("e2e4"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if o.PieceAt("e4") != board.WhitePawn {
		t.Errorf("Expected white pawn on e4, got %s", o.PieceAt("e4"))
	}
	if err := o.Play("e2e4"); err == nil {
		t.Error("Expected error replaying a move from an empty square")
	}
}

func TestQueriesWithoutPosition(t *testing.T) {
	o := &Oracle{opts: DefaultOptions(), logger: zap.NewNop()}

	if o.PieceAt("e1") != board.Empty {
		t.Error("Expected empty square without a position")
	}
	if o.WouldBeCapture("e2e4") {
		t.Error("Expected no capture without a position")
	}
	if err := o.Play("e2e4"); !errors.Is(err, ErrNoPosition) {
		t.Errorf("Expected ErrNoPosition, got %v", err)
	}
}
