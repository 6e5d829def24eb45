package position

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thyrook/clanker/internal/board"
)

const startPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

func grid(t *testing.T, placement string) *board.Grid {
	t.Helper()

	g, err := board.ParsePlacement(placement)
	if err != nil {
		t.Fatalf("Bad placement %q: %v", placement, err)
	}
	return &g
}

func TestCastling(t *testing.T) {
	tests := []struct {
		name      string
		placement string
		expected  string
	}{
		{"Starting position", startPlacement, "KQkq"},
		{"White king moved", "r3k2r/8/8/8/8/8/8/R4K1R", "kq"},
		{"Only short rooks", "4k2r/8/8/8/8/8/8/4K2R", "Kk"},
		{"Only long rooks", "r3k3/8/8/8/8/8/8/R3K3", "Qq"},
		{"White rook on black corner", "R3k2R/8/8/8/8/8/8/4K3", "-"},
		{"No rooks", "4k3/8/8/8/8/8/8/4K3", "-"},
		{"Bare kings elsewhere", "8/3k4/8/8/8/8/3K4/8", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Castling(grid(t, tt.placement)); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	got := Format(startPlacement, board.White, "KQkq")
	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	got = Format("8/8/8/8/8/8/8/8", board.Black, "")
	if got != "8/8/8/8/8/8/8/8 b - - 0 1" {
		t.Errorf("Expected empty castling as '-', got %s", got)
	}
}

func TestEncodeStartingPosition(t *testing.T) {
	enc := NewEncoder(RulesValidator{}, zap.NewNop())

	fen, err := enc.Encode(context.Background(), startPlacement, board.White, grid(t, startPlacement))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	if fen != want {
		t.Errorf("Expected %s, got %s", want, fen)
	}
}

func TestEncodeQueensideRight(t *testing.T) {
	enc := NewEncoder(nil, zap.NewNop())

	// Rook on a1 emits Q; moving it to b1 suppresses it.
	with := "4k3/8/8/8/8/8/8/R3K3"
	without := "4k3/8/8/8/8/8/8/1R2K3"

	fen, err := enc.Encode(context.Background(), with, board.White, grid(t, with))
	if err != nil {
		t.Fatal(err)
	}
	if fen != with+" w Q - 0 1" {
		t.Errorf("Expected Q right, got %s", fen)
	}

	fen, err = enc.Encode(context.Background(), without, board.White, grid(t, without))
	if err != nil {
		t.Fatal(err)
	}
	if fen != without+" w - - 0 1" {
		t.Errorf("Expected no rights, got %s", fen)
	}
}

func TestEncodeBlackToMove(t *testing.T) {
	enc := NewEncoder(RulesValidator{}, zap.NewNop())
	placement := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR"

	fen, err := enc.Encode(context.Background(), placement, board.Black, grid(t, placement))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if fen != placement+" b KQkq - 0 1" {
		t.Errorf("Unexpected FEN %s", fen)
	}
}

func TestRulesValidator(t *testing.T) {
	tests := []struct {
		name      string
		fen       string
		expectErr bool
	}{
		{"Starting position", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", false},
		{"Bare kings", "4k3/8/8/8/8/8/8/4K3 b - - 0 1", false},
		{"No white king", "4k3/8/8/8/8/8/8/8 w - - 0 1", true},
		{"Two black kings", "3kk3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"Pawn on back rank", "4k2P/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"Checkmated", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 0 1", true},
		{"Stalemated", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", true},
		{"Unparseable", "not a fen", true},
		{"Short rank", "rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", true},
		{"Waiting side in check by rook", "4k3/8/8/8/8/8/8/4RK2 w - - 0 1", true},
		{"Waiting side in check by pawn", "8/8/8/3k4/4P3/8/8/4K3 w - - 0 1", true},
		{"Waiting side in check by knight", "4k3/8/3N4/8/8/8/8/4K3 w - - 0 1", true},
		{"Waiting side in check by black pawn", "4k3/8/8/8/8/8/3p4/4K3 b - - 0 1", true},
		{"Blocked bishop", "4k3/3p4/8/8/B7/8/8/4K3 w - - 0 1", false},
		{"Side to move in check", "4k3/8/8/8/8/8/8/4rK2 w - - 0 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RulesValidator{}.Validate(context.Background(), tt.fen)
			if tt.expectErr {
				if !errors.Is(err, ErrInvalidPosition) {
					t.Errorf("Expected ErrInvalidPosition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

type fakeProbe struct {
	move     string
	err      error
	setErr   error
	hang     bool
	closed   bool
	position string
}

func (p *fakeProbe) SetPosition(fen string) error {
	p.position = fen
	return p.setErr
}

func (p *fakeProbe) BestMove(ctx context.Context, elo, depth int) (string, error) {
	if p.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.move, p.err
}

func (p *fakeProbe) Close() error {
	p.closed = true
	return nil
}

func TestEngineValidator(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/8/4K3 w - - 0 1"

	tests := []struct {
		name      string
		probe     *fakeProbe
		expectErr bool
	}{
		{"Engine answers", &fakeProbe{move: "e1e2"}, false},
		{"Engine crashes", &fakeProbe{err: errors.New("broken pipe")}, true},
		{"No best move", &fakeProbe{}, true},
		{"Position refused", &fakeProbe{setErr: errors.New("bad fen")}, true},
		{"Engine never answers", &fakeProbe{hang: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewEngineValidator(func() (Probe, error) { return tt.probe, nil }, 2, 50*time.Millisecond)

			err := v.Validate(context.Background(), fen)
			if tt.expectErr && !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("Expected ErrInvalidPosition, got %v", err)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.probe.closed {
				t.Error("Expected probe to be closed")
			}
		})
	}
}

func TestEngineValidatorStartFailure(t *testing.T) {
	v := NewEngineValidator(func() (Probe, error) { return nil, errors.New("no binary") }, 2, time.Second)

	err := v.Validate(context.Background(), "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err == nil {
		t.Fatal("Expected error when the engine cannot start")
	}
	if errors.Is(err, ErrInvalidPosition) {
		t.Error("Start failure must not be reported as an invalid position")
	}
}

func TestEngineValidatorCallerCancels(t *testing.T) {
	probe := &fakeProbe{hang: true}
	v := NewEngineValidator(func() (Probe, error) { return probe, nil }, 2, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := v.Validate(ctx, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the caller's deadline, got %v", err)
	}
	if errors.Is(err, ErrInvalidPosition) {
		t.Error("Caller cancellation must not be reported as an invalid position")
	}
	if !probe.closed {
		t.Error("Expected probe to be closed")
	}
}

func TestChainStopsAtFirstRejection(t *testing.T) {
	called := false
	chain := Chain{
		RulesValidator{},
		ValidatorFunc(func(ctx context.Context, fen string) error {
			called = true
			return nil
		}),
	}

	if err := chain.Validate(context.Background(), "4k3/8/8/8/8/8/8/8 w - - 0 1"); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Expected ErrInvalidPosition, got %v", err)
	}
	if called {
		t.Error("Expected chain to stop after rules rejection")
	}

	if err := chain.Validate(context.Background(), "4k3/8/8/8/8/8/8/4K3 w - - 0 1"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !called {
		t.Error("Expected second validator to run")
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	enc := NewEncoder(RulesValidator{}, zap.NewNop())
	placement := "8/8/8/8/8/8/8/4K3"

	fen, err := enc.Encode(context.Background(), placement, board.White, grid(t, placement))
	if !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("Expected ErrInvalidPosition, got %v", err)
	}
	if fen != "" {
		t.Errorf("Expected no FEN on rejection, got %s", fen)
	}
}
