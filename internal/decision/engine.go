package decision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/engine"
	"github.com/thyrook/clanker/internal/position"
	"github.com/thyrook/clanker/internal/vision"
)

// ErrOracleDown is returned when the move oracle failed and could not be
// restarted. The player cannot continue.
var ErrOracleDown = errors.New("move oracle unavailable")

// latencyWindow is how many recognition timings the statistics keep.
const latencyWindow = 256

// BoardReader recognizes the board in a frame.
type BoardReader interface {
	Recognize(frame *vision.Frame, side board.Side) (*vision.Recognition, error)
}

// Oracle is the long-lived move oracle the player talks to.
type Oracle interface {
	SetPosition(fen string) error
	BestMove(ctx context.Context, elo, depth int) (string, error)
	PieceAt(square string) board.Kind
	WouldBeCapture(move string) bool
	Play(move string) error
	Restart() error
}

// Decision is the outcome of one accepted cycle.
type Decision struct {
	FEN         string
	Move        string
	Capture     bool
	Grid        board.Grid
	Recognition time.Duration
	Timestamp   time.Time
}

// DecisionEngine runs one recognition-to-move cycle: recognize the board,
// encode and validate the position, and ask the oracle for a move.
type DecisionEngine struct {
	reader  BoardReader
	encoder *position.Encoder
	oracle  Oracle
	elo     int
	depth   int
	logger  *zap.Logger
	mu      sync.RWMutex

	// Statistics
	totalCycles      int
	acceptedCycles   int
	malformedFrames  int
	conflicts        int
	invalidPositions int
	oracleRestarts   int
	latencies        []float64
}

// NewDecisionEngine creates a decision engine
func NewDecisionEngine(
	reader BoardReader,
	encoder *position.Encoder,
	oracle Oracle,
	elo int,
	depth int,
	logger *zap.Logger,
) *DecisionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionEngine{
		reader:  reader,
		encoder: encoder,
		oracle:  oracle,
		elo:     elo,
		depth:   depth,
		logger:  logger,
	}
}

// Decide runs a full cycle on frame for the given side. Errors other than
// ErrOracleDown and context cancellation mean the cycle was discarded and
// the caller should poll again.
func (de *DecisionEngine) Decide(ctx context.Context, frame *vision.Frame, side board.Side) (*Decision, error) {
	startTime := time.Now()

	de.mu.Lock()
	de.totalCycles++
	de.mu.Unlock()

	rec, err := de.reader.Recognize(frame, side)
	if err != nil {
		de.mu.Lock()
		switch {
		case errors.Is(err, board.ErrAmbiguousSquare):
			de.conflicts++
		default:
			de.malformedFrames++
		}
		de.mu.Unlock()

		de.logger.Warn("Recognition failed", zap.Error(err))
		return nil, fmt.Errorf("recognition failed: %w", err)
	}
	de.recordLatency(rec.Duration)

	fen, err := de.encoder.Encode(ctx, rec.Grid.Placement(), side, &rec.Grid)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		de.mu.Lock()
		de.invalidPositions++
		de.mu.Unlock()

		de.logger.Info("Position not valid", zap.Error(err))
		return nil, fmt.Errorf("encode failed: %w", err)
	}

	move, err := de.bestMove(ctx, fen)
	if err != nil {
		return nil, err
	}

	decision := &Decision{
		FEN:         fen,
		Move:        move,
		Capture:     de.oracle.WouldBeCapture(move),
		Grid:        rec.Grid,
		Recognition: rec.Duration,
		Timestamp:   time.Now(),
	}

	de.mu.Lock()
	de.acceptedCycles++
	de.mu.Unlock()

	de.logger.Info("Decision made",
		zap.String("move", move),
		zap.String("fen", fen),
		zap.Bool("capture", decision.Capture),
		zap.Duration("recognition", rec.Duration),
		zap.Duration("total_time", time.Since(startTime)),
	)

	return decision, nil
}

// bestMove loads fen into the oracle and searches it, restarting the
// oracle once if its process failed.
func (de *DecisionEngine) bestMove(ctx context.Context, fen string) (string, error) {
	if err := de.oracle.SetPosition(fen); err != nil {
		return "", fmt.Errorf("oracle rejected position: %w", err)
	}

	move, err := de.oracle.BestMove(ctx, de.elo, de.depth)
	switch {
	case err == nil:
		return move, nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, engine.ErrProcessFailure):
		de.logger.Error("Oracle process failed", zap.Error(err))
		if rerr := de.restart(); rerr != nil {
			return "", rerr
		}
		return "", fmt.Errorf("oracle restarted, cycle dropped: %w", err)
	default:
		return "", fmt.Errorf("oracle: %w", err)
	}
}

func (de *DecisionEngine) restart() error {
	de.mu.Lock()
	de.oracleRestarts++
	de.mu.Unlock()

	if err := de.oracle.Restart(); err != nil {
		de.logger.Error("Oracle restart failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrOracleDown, err)
	}
	return nil
}

// RecoverOracle restarts the oracle when err is a process failure seen
// outside Decide. It returns ErrOracleDown only when the restart fails.
func (de *DecisionEngine) RecoverOracle(err error) error {
	if !errors.Is(err, engine.ErrProcessFailure) {
		return nil
	}
	return de.restart()
}

func (de *DecisionEngine) recordLatency(d time.Duration) {
	de.mu.Lock()
	defer de.mu.Unlock()

	de.latencies = append(de.latencies, d.Seconds()*1000)
	if len(de.latencies) > latencyWindow {
		de.latencies = de.latencies[1:]
	}
}

// GetStatistics returns engine statistics
func (de *DecisionEngine) GetStatistics() EngineStats {
	de.mu.RLock()
	defer de.mu.RUnlock()

	stats := EngineStats{
		TotalCycles:      de.totalCycles,
		AcceptedCycles:   de.acceptedCycles,
		MalformedFrames:  de.malformedFrames,
		Conflicts:        de.conflicts,
		InvalidPositions: de.invalidPositions,
		OracleRestarts:   de.oracleRestarts,
	}

	if de.totalCycles > 0 {
		stats.AcceptRate = float64(de.acceptedCycles) / float64(de.totalCycles) * 100
	}
	if len(de.latencies) > 0 {
		stats.RecognitionMeanMs, stats.RecognitionStdMs = stat.MeanStdDev(de.latencies, nil)
	}

	return stats
}

// EngineStats represents engine performance statistics
type EngineStats struct {
	TotalCycles       int
	AcceptedCycles    int
	MalformedFrames   int
	Conflicts         int
	InvalidPositions  int
	OracleRestarts    int
	AcceptRate        float64
	RecognitionMeanMs float64
	RecognitionStdMs  float64
}

// DecisionHistory keeps the last decisions in memory for display.
type DecisionHistory struct {
	decisions []Decision
	maxSize   int
	mu        sync.RWMutex
}

// NewDecisionHistory creates a new decision history tracker
func NewDecisionHistory(maxSize int) *DecisionHistory {
	return &DecisionHistory{
		decisions: make([]Decision, 0, maxSize),
		maxSize:   maxSize,
	}
}

// Add adds a decision to history
func (dh *DecisionHistory) Add(decision *Decision) {
	dh.mu.Lock()
	defer dh.mu.Unlock()

	dh.decisions = append(dh.decisions, *decision)
	if len(dh.decisions) > dh.maxSize {
		dh.decisions = dh.decisions[1:]
	}
}

// GetRecent returns N most recent decisions, oldest first
func (dh *DecisionHistory) GetRecent(n int) []Decision {
	dh.mu.RLock()
	defer dh.mu.RUnlock()

	if n > len(dh.decisions) {
		n = len(dh.decisions)
	}

	start := len(dh.decisions) - n
	recent := make([]Decision, n)
	copy(recent, dh.decisions[start:])
	return recent
}

// GetStats returns statistics about decision history
func (dh *DecisionHistory) GetStats() HistoryStats {
	dh.mu.RLock()
	defer dh.mu.RUnlock()

	if len(dh.decisions) == 0 {
		return HistoryStats{}
	}

	var captures int
	var totalRecognitionMs float64
	for _, decision := range dh.decisions {
		if decision.Capture {
			captures++
		}
		totalRecognitionMs += decision.Recognition.Seconds() * 1000
	}

	return HistoryStats{
		TotalDecisions:   len(dh.decisions),
		Captures:         captures,
		AvgRecognitionMs: totalRecognitionMs / float64(len(dh.decisions)),
	}
}

// HistoryStats represents statistics about decision history
type HistoryStats struct {
	TotalDecisions   int
	Captures         int
	AvgRecognitionMs float64
}
