package decision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thyrook/clanker/internal/actuator"
	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/storage"
	"github.com/thyrook/clanker/internal/vision"
)

// actuatorHint is shown to the operator when the mouse could not be driven.
const actuatorHint = "if moves stop registering, tab out of the browser and back in"

// GameWatcher detects the end-of-game banners.
type GameWatcher interface {
	GameOver(frame *vision.Frame) (bool, error)
}

// MovePlayer replays a move on screen.
type MovePlayer interface {
	Play(move string, side board.Side) error
}

// Pauser sets the delay before each input action.
type Pauser interface {
	SetPause(d time.Duration)
}

// HistoryWriter persists accepted cycles.
type HistoryWriter interface {
	Append(rec storage.Record) error
}

// PlayConfig controls the player's behaviour.
type PlayConfig struct {
	Elo          int           // Strength of our own moves
	PremoveElo   int           // Strength used to predict the opponent's reply
	Premove      bool          // Premove captures after each move
	PollInterval time.Duration // Delay between polls
	ActionPause  time.Duration // Pause before each input action
	FastPause    time.Duration // Pause when our clock is low
	PremovePause time.Duration // Pause for premoves
}

// DefaultPlayConfig returns the default player configuration.
func DefaultPlayConfig() PlayConfig {
	return PlayConfig{
		Elo:          1400,
		PremoveElo:   2000,
		Premove:      false,
		PollInterval: 100 * time.Millisecond,
		ActionPause:  100 * time.Millisecond,
		FastPause:    time.Millisecond,
		PremovePause: 10 * time.Millisecond,
	}
}

// StepResult says what one poll did.
type StepResult int

const (
	StepIdle StepResult = iota
	StepWaiting
	StepGameOver
	StepRejected
	StepActuatorFailed
	StepMoved
)

func (r StepResult) String() string {
	switch r {
	case StepWaiting:
		return "waiting"
	case StepGameOver:
		return "game-over"
	case StepRejected:
		return "rejected"
	case StepActuatorFailed:
		return "actuator-failed"
	case StepMoved:
		return "moved"
	default:
		return "idle"
	}
}

// Player is the polling loop: capture, detect turn, decide, act.
type Player struct {
	source    vision.FrameSource
	watcher   GameWatcher
	indicator vision.IndicatorConfig
	engine    *DecisionEngine
	oracle    Oracle
	mover     MovePlayer
	pauser    Pauser
	history   HistoryWriter
	session   *RecognitionSession
	recent    *DecisionHistory
	config    PlayConfig
	logger    *zap.Logger

	onMove func(*Decision)

	mu       sync.RWMutex
	moves    int
	premoves int
	polls    int
}

// NewPlayer wires a player. history and pauser may be nil.
func NewPlayer(
	source vision.FrameSource,
	watcher GameWatcher,
	indicator vision.IndicatorConfig,
	engine *DecisionEngine,
	oracle Oracle,
	mover MovePlayer,
	pauser Pauser,
	history HistoryWriter,
	config PlayConfig,
	logger *zap.Logger,
) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		source:    source,
		watcher:   watcher,
		indicator: indicator,
		engine:    engine,
		oracle:    oracle,
		mover:     mover,
		pauser:    pauser,
		history:   history,
		session:   NewRecognitionSession(),
		recent:    NewDecisionHistory(50),
		config:    config,
		logger:    logger,
	}
}

// OnMove registers fn to be called after each move is played. It must be
// set before Run.
func (p *Player) OnMove(fn func(*Decision)) {
	p.onMove = fn
}

// Session returns the player's carried state.
func (p *Player) Session() *RecognitionSession {
	return p.session
}

// Recent returns the in-memory decision history.
func (p *Player) Recent() *DecisionHistory {
	return p.recent
}

// Run polls until ctx is done or the oracle is lost.
func (p *Player) Run(ctx context.Context) error {
	interval := p.config.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("Player started", zap.Duration("poll_interval", interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Player stopped", zap.Int("moves", p.Moves()))
			return nil
		case <-ticker.C:
		}

		if _, err := p.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step performs one poll. It returns an error only when the loop cannot go
// on; discarded cycles are reported through the result.
func (p *Player) Step(ctx context.Context) (StepResult, error) {
	p.mu.Lock()
	p.polls++
	p.mu.Unlock()

	frame, err := p.source.ReadFrame()
	if err != nil {
		p.logger.Warn("Frame capture failed", zap.Error(err))
		return StepRejected, nil
	}
	defer frame.Close()

	over, err := p.watcher.GameOver(frame)
	if err != nil {
		p.logger.Warn("Game state check failed", zap.Error(err))
		return StepRejected, nil
	}
	if over {
		if _, known := p.session.Side(); known {
			p.logger.Info("Game ended, waiting for the next one",
				zap.Int("turns", p.session.Turn()),
			)
		}
		p.session.Reset()
		return StepGameOver, nil
	}

	state, err := p.indicator.Classify(frame)
	if err != nil {
		p.logger.Warn("Clock indicator unreadable", zap.Error(err))
		return StepRejected, nil
	}

	obs := p.session.Observe(state)
	side, known := p.session.Side()
	if obs.SideChanged {
		p.logger.Info("Playing side detected", zap.String("side", side.String()))
	}
	if !known {
		return StepIdle, nil
	}
	if !obs.MyTurn {
		return StepWaiting, nil
	}

	decision, err := p.engine.Decide(ctx, frame, side)
	if err != nil {
		if errors.Is(err, ErrOracleDown) || ctx.Err() != nil {
			return StepRejected, err
		}
		return StepRejected, nil
	}

	p.setPause(obs.LowTime)
	if err := p.mover.Play(decision.Move, side); err != nil {
		p.reportActuatorError(decision.Move, err)
		return StepActuatorFailed, nil
	}

	var premove string
	if p.config.Premove {
		premove, err = p.premove(ctx, decision.Move, side)
		if err != nil {
			return StepMoved, err
		}
	}

	p.session.MarkMoved(p.config.Premove)
	p.recent.Add(decision)
	if p.onMove != nil {
		p.onMove(decision)
	}

	p.mu.Lock()
	p.moves++
	if premove != "" {
		p.premoves++
	}
	p.mu.Unlock()

	p.logger.Info("Made move",
		zap.String("move", decision.Move),
		zap.String("premove", premove),
		zap.String("fen", decision.FEN),
		zap.Int("turn", p.session.Turn()),
	)

	if p.history != nil {
		rec := storage.Record{
			FEN:           decision.FEN,
			Move:          decision.Move,
			Premove:       premove,
			Side:          side.Letter(),
			Turn:          p.session.Turn(),
			RecognitionMs: decision.Recognition.Seconds() * 1000,
			Timestamp:     decision.Timestamp.Unix(),
		}
		if err := p.history.Append(rec); err != nil {
			p.logger.Warn("Failed to record move", zap.Error(err))
		}
	}

	return StepMoved, nil
}

func (p *Player) setPause(lowTime bool) {
	if p.pauser == nil {
		return
	}
	if lowTime {
		p.logger.Debug("Low on time, moving fast")
		p.pauser.SetPause(p.config.FastPause)
		return
	}
	p.pauser.SetPause(p.config.ActionPause)
}

// premove plays our move and the predicted reply in the oracle, then
// premoves our answer if it is a capture. Returns the premoved move or "".
// Only a lost oracle is reported as an error.
func (p *Player) premove(ctx context.Context, played string, side board.Side) (string, error) {
	if err := p.oracle.Play(played); err != nil {
		p.logger.Warn("Premove skipped", zap.Error(err))
		return "", nil
	}

	reply, err := p.oracle.BestMove(ctx, p.config.PremoveElo, 0)
	if err != nil {
		return "", p.premoveError(ctx, err)
	}
	if err := p.oracle.Play(reply); err != nil {
		p.logger.Warn("Premove skipped", zap.Error(err))
		return "", nil
	}

	answer, err := p.oracle.BestMove(ctx, p.config.Elo, 0)
	if err != nil {
		return "", p.premoveError(ctx, err)
	}
	if !p.oracle.WouldBeCapture(answer) {
		return "", nil
	}

	if p.pauser != nil {
		p.pauser.SetPause(p.config.PremovePause)
	}
	if err := p.mover.Play(answer, side); err != nil {
		p.reportActuatorError(answer, err)
		return "", nil
	}

	p.logger.Debug("Premoved capture",
		zap.String("expected_reply", reply),
		zap.String("premove", answer),
	)
	return answer, nil
}

func (p *Player) premoveError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.logger.Warn("Premove search failed", zap.Error(err))
	return p.engine.RecoverOracle(err)
}

func (p *Player) reportActuatorError(move string, err error) {
	if errors.Is(err, actuator.ErrPromotionUnsupported) {
		p.logger.Warn("Cannot play promotion, make it by hand", zap.String("move", move))
		return
	}
	p.logger.Error("Failed to make move on screen",
		zap.String("move", move),
		zap.Error(err),
		zap.String("hint", actuatorHint),
	)
}

// Moves returns how many moves were made.
func (p *Player) Moves() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.moves
}

// PlayerStats summarises a player's activity.
type PlayerStats struct {
	Polls    int
	Moves    int
	Premoves int
	Games    int
	Engine   EngineStats
}

// GetStats returns player statistics.
func (p *Player) GetStats() PlayerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PlayerStats{
		Polls:    p.polls,
		Moves:    p.moves,
		Premoves: p.premoves,
		Games:    p.session.Games(),
		Engine:   p.engine.GetStatistics(),
	}
}

// String returns player status
func (p *Player) String() string {
	s := p.GetStats()
	return fmt.Sprintf(
		"Player:\n"+
			"  Polls: %d\n"+
			"  Moves: %d (premoves %d)\n"+
			"  Games: %d\n"+
			"  Cycles Accepted: %d/%d\n"+
			"  Rejected: %d malformed, %d conflicts, %d invalid\n"+
			"  Oracle Restarts: %d\n"+
			"  Recognition: %.1f ± %.1f ms\n",
		s.Polls, s.Moves, s.Premoves, s.Games,
		s.Engine.AcceptedCycles, s.Engine.TotalCycles,
		s.Engine.MalformedFrames, s.Engine.Conflicts, s.Engine.InvalidPositions,
		s.Engine.OracleRestarts,
		s.Engine.RecognitionMeanMs, s.Engine.RecognitionStdMs,
	)
}
