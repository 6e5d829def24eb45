package actuator

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/vision"
)

var (
	// ErrActuator wraps failures of the input device.
	ErrActuator = errors.New("actuator failure")
	// ErrBadMove is returned for move strings that are not [a-h][1-8][a-h][1-8].
	ErrBadMove = errors.New("malformed move")
	// ErrPromotionUnsupported is returned for five character promotion moves.
	ErrPromotionUnsupported = errors.New("promotion moves are not supported")
)

// Actuator performs a press-drag-release gesture in screen coordinates.
type Actuator interface {
	Drag(from, to image.Point) error
}

// Robot drives the real mouse. The pause is slept before every device call.
type Robot struct {
	mu    sync.Mutex
	pause time.Duration

	move   func(x, y int)
	toggle func(args ...string) int
}

// NewRobot creates a mouse actuator with the given action pause.
func NewRobot(pause time.Duration) *Robot {
	return &Robot{pause: pause, move: robotgo.Move, toggle: robotgo.Toggle}
}

// SetPause changes the delay slept before each device call.
func (r *Robot) SetPause(d time.Duration) {
	r.mu.Lock()
	r.pause = d
	r.mu.Unlock()
}

// Pause returns the current action pause.
func (r *Robot) Pause() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pause
}

// Drag implements Actuator.
func (r *Robot) Drag(from, to image.Point) (err error) {
	// robotgo panics on some display server errors.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrActuator, rec)
		}
	}()

	pause := r.Pause()
	steps := []func() error{
		func() error { r.move(from.X, from.Y); return nil },
		func() error { return r.press("down") },
		func() error { r.move(to.X, to.Y); return nil },
		func() error { return r.press("up") },
	}
	for _, step := range steps {
		time.Sleep(pause)
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Robot) press(state string) error {
	if status := r.toggle("left", state); status != 0 {
		return fmt.Errorf("%w: left button %s returned %d", ErrActuator, state, status)
	}
	return nil
}

// Mover replays UCI moves on the on-screen board.
type Mover struct {
	actuator Actuator
	mapper   vision.Mapper
	offset   image.Point
}

// NewMover creates a mover for a board drawn by mapper inside a capture
// region whose top-left screen corner is offset.
func NewMover(actuator Actuator, mapper vision.Mapper, offset image.Point) *Mover {
	return &Mover{actuator: actuator, mapper: mapper, offset: offset}
}

// ParseMove splits a four character UCI move into its squares.
func ParseMove(move string) (from, to board.Index, err error) {
	switch {
	case len(move) == 5:
		return from, to, fmt.Errorf("%w: %s", ErrPromotionUnsupported, move)
	case len(move) != 4:
		return from, to, fmt.Errorf("%w: %q", ErrBadMove, move)
	}

	from, err = board.ParseSquare(move[:2])
	if err != nil {
		return from, to, fmt.Errorf("%w: %q", ErrBadMove, move)
	}
	to, err = board.ParseSquare(move[2:])
	if err != nil {
		return from, to, fmt.Errorf("%w: %q", ErrBadMove, move)
	}
	return from, to, nil
}

// Points returns the screen points at the centre of the move's squares.
func (m *Mover) Points(move string, side board.Side) (image.Point, image.Point, error) {
	from, to, err := ParseMove(move)
	if err != nil {
		return image.Point{}, image.Point{}, err
	}
	return m.offset.Add(m.mapper.SquareCenter(from, side)),
		m.offset.Add(m.mapper.SquareCenter(to, side)), nil
}

// Play drags the piece for move from the perspective of side.
func (m *Mover) Play(move string, side board.Side) error {
	from, to, err := m.Points(move, side)
	if err != nil {
		return err
	}
	if err := m.actuator.Drag(from, to); err != nil {
		if errors.Is(err, ErrActuator) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrActuator, err)
	}
	return nil
}
