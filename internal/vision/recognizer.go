package vision

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/thyrook/clanker/internal/board"
)

// Recognizer turns a frame into a board grid: one template-match pass per
// glyph kind, square mapping, then assembly.
type Recognizer struct {
	glyphs          *GlyphSet
	matcher         *Matcher
	mapper          Mapper
	frameSize       image.Point
	markerThreshold float64

	mu    sync.Mutex
	stats RecognizerStats
}

// RecognizerStats tracks recognition performance
type RecognizerStats struct {
	FramesProcessed  int64
	FramesRejected   int64
	LastProcessTime  time.Duration
	AverageFrameTime time.Duration
}

// Recognition is the result of one successful pass.
type Recognition struct {
	Grid       board.Grid
	Detections map[board.Kind][]image.Point
	Duration   time.Duration
}

// NewRecognizer creates a recognizer from the vision config and a complete
// glyph set.
func NewRecognizer(config *Config, glyphs *GlyphSet) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := glyphs.Complete(); err != nil {
		return nil, err
	}

	return &Recognizer{
		glyphs:          glyphs,
		matcher:         NewMatcher(config.MatchThreshold),
		mapper:          config.Mapper(),
		frameSize:       config.CaptureRegion.Size(),
		markerThreshold: config.MarkerThreshold,
	}, nil
}

// Mapper returns the coordinate mapper in use.
func (r *Recognizer) Mapper() Mapper {
	return r.mapper
}

// Recognize runs the full recognition pass on one frame. It is a pure
// function of the frame and side: an unchanged frame yields the same grid.
func (r *Recognizer) Recognize(frame *Frame, side board.Side) (*Recognition, error) {
	start := time.Now()

	rec, err := r.recognize(frame, side)

	elapsed := time.Since(start)
	r.mu.Lock()
	r.stats.FramesProcessed++
	if err != nil {
		r.stats.FramesRejected++
	}
	r.stats.LastProcessTime = elapsed
	if r.stats.AverageFrameTime == 0 {
		r.stats.AverageFrameTime = elapsed
	} else {
		r.stats.AverageFrameTime = (r.stats.AverageFrameTime + elapsed) / 2
	}
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	rec.Duration = elapsed
	return rec, nil
}

func (r *Recognizer) recognize(frame *Frame, side board.Side) (*Recognition, error) {
	if r.frameSize != (image.Point{}) {
		if err := frame.CheckSize(r.frameSize); err != nil {
			return nil, err
		}
	}

	detections := make(map[board.Kind][]image.Point, 12)
	perKind := make(map[board.Kind][]board.Index, 12)

	for _, kind := range board.Kinds() {
		glyph, _ := r.glyphs.Glyph(kind)

		points, err := r.matcher.FindOccurrences(glyph, frame)
		if err != nil {
			return nil, err
		}
		detections[kind] = points

		for _, p := range points {
			idx, err := r.mapper.ToBoardIndex(p, side)
			if err != nil {
				return nil, fmt.Errorf("%s detection: %w", kind, err)
			}
			perKind[kind] = append(perKind[kind], idx)
		}
	}

	grid, err := board.Assemble(perKind)
	if err != nil {
		return nil, err
	}

	return &Recognition{Grid: grid, Detections: detections}, nil
}

// GameOver reports whether the game-end or abort banner is on screen.
// Missing marker templates are treated as not shown.
func (r *Recognizer) GameOver(frame *Frame) (bool, error) {
	for _, name := range []string{MarkerGameEnd, MarkerAbort} {
		marker, ok := r.glyphs.Marker(name)
		if !ok {
			continue
		}
		score, err := r.matcher.BestScore(marker, frame)
		if err != nil {
			return false, fmt.Errorf("marker %s: %w", name, err)
		}
		if score > r.markerThreshold {
			return true, nil
		}
	}
	return false, nil
}

// GetStats returns current recognition statistics
func (r *Recognizer) GetStats() RecognizerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// String returns recognizer status
func (r *Recognizer) String() string {
	stats := r.GetStats()
	return fmt.Sprintf(
		"Recognizer:\n"+
			"  Frames Processed: %d\n"+
			"  Frames Rejected: %d\n"+
			"  Last Process Time: %v\n"+
			"  Avg Frame Time: %v\n",
		stats.FramesProcessed,
		stats.FramesRejected,
		stats.LastProcessTime,
		stats.AverageFrameTime,
	)
}
