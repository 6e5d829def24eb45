package decision

import (
	"sync"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/vision"
)

// RecognitionSession is the state carried between polls: which side we
// play, how many of our moves were made, and whether we already moved on
// the current turn.
type RecognitionSession struct {
	mu        sync.Mutex
	side      board.Side
	sideKnown bool
	turn      int
	moved     bool
	games     int
}

// Observation is what one indicator reading means for the player.
type Observation struct {
	MyTurn      bool // Our clock runs and we have not moved yet
	LowTime     bool // Our clock is in the low time colour
	SideChanged bool // The indicator revealed a new side
}

// NewRecognitionSession creates a session with no side chosen.
func NewRecognitionSession() *RecognitionSession {
	return &RecognitionSession{}
}

// Observe updates the session from the clock indicator.
func (s *RecognitionSession) Observe(state vision.ClockState) Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var obs Observation

	switch state {
	case vision.ClockWhiteActive, vision.ClockBlackActive:
		side := board.White
		if state == vision.ClockBlackActive {
			side = board.Black
		}
		if !s.sideKnown || s.side != side {
			s.side = side
			s.sideKnown = true
			s.turn = 0
			s.moved = false
			obs.SideChanged = true
		}
		obs.MyTurn = !s.moved

	case vision.ClockLowTime:
		if s.sideKnown {
			obs.MyTurn = !s.moved
			obs.LowTime = true
		}

	case vision.ClockWhiteIdle, vision.ClockBlackIdle:
		// Opponent to move; our next active clock is a new turn.
		s.moved = false
	}

	return obs
}

// Side returns the side we play and whether it is known yet.
func (s *RecognitionSession) Side() (board.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.side, s.sideKnown
}

// Turn returns the number of our moves made this game.
func (s *RecognitionSession) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// Moved reports whether we already moved this turn.
func (s *RecognitionSession) Moved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moved
}

// Games returns how many finished games the session has seen.
func (s *RecognitionSession) Games() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games
}

// MarkMoved records our move. A premove counts as a second move.
func (s *RecognitionSession) MarkMoved(premoved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.moved = true
	s.turn++
	if premoved {
		s.turn++
	}
}

// Reset forgets the side and turn after a game ends.
func (s *RecognitionSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sideKnown {
		s.games++
	}
	s.side = board.White
	s.sideKnown = false
	s.turn = 0
	s.moved = false
}
