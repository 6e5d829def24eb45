package vision

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// DefaultMatchThreshold is the minimum normalized correlation accepted as
// a piece detection.
const DefaultMatchThreshold = 0.9

// Matcher finds glyph occurrences in a frame by normalized
// cross-correlation.
type Matcher struct {
	threshold float32
}

// NewMatcher creates a matcher with the given acceptance threshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Matcher{threshold: float32(threshold)}
}

// FindOccurrences returns the centre of every distinct on-screen copy of the
// glyph. Overlapping candidate boxes collapse to one point per piece.
func (m *Matcher) FindOccurrences(g Glyph, frame *Frame) ([]image.Point, error) {
	surface, err := correlate(g.Mat, frame.Mat())
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", g.Kind, err)
	}
	defer surface.Close()

	scores, err := surface.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", g.Kind, err)
	}

	w, h := g.Size()
	cols := surface.Cols()

	var rects []image.Rectangle
	for i, score := range scores {
		// NaN scores (flat windows) must not pass.
		if !(score >= m.threshold) {
			continue
		}
		x, y := i%cols, i/cols
		r := image.Rect(x, y, x+w, y+h)
		// GroupRectangles drops clusters with fewer than two members, so
		// every candidate goes in twice to keep isolated detections.
		rects = append(rects, r, r)
	}

	if len(rects) == 0 {
		return nil, nil
	}

	grouped := gocv.GroupRectangles(rects, 1, 0.5)

	points := make([]image.Point, 0, len(grouped))
	for _, r := range grouped {
		points = append(points, image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2))
	}

	sort.Slice(points, func(i, j int) bool {
		if points[i].Y != points[j].Y {
			return points[i].Y < points[j].Y
		}
		return points[i].X < points[j].X
	})

	return points, nil
}

// BestScore returns the highest correlation of a template anywhere in the
// frame. Used for single-instance markers such as the game-end banner.
func (m *Matcher) BestScore(template gocv.Mat, frame *Frame) (float64, error) {
	surface, err := correlate(template, frame.Mat())
	if err != nil {
		return 0, err
	}
	defer surface.Close()

	_, maxVal, _, _ := gocv.MinMaxLoc(surface)
	return float64(maxVal), nil
}

// correlate computes the TM_CCOEFF_NORMED surface of template over img.
func correlate(template, img gocv.Mat) (gocv.Mat, error) {
	if template.Empty() {
		return gocv.Mat{}, fmt.Errorf("empty template")
	}
	if img.Empty() {
		return gocv.Mat{}, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	if template.Channels() != img.Channels() {
		return gocv.Mat{}, fmt.Errorf("%w: frame has %d channels, template has %d",
			ErrMalformedFrame, img.Channels(), template.Channels())
	}
	if template.Cols() > img.Cols() || template.Rows() > img.Rows() {
		return gocv.Mat{}, fmt.Errorf("%w: %dx%d template larger than %dx%d frame",
			ErrMalformedFrame, template.Cols(), template.Rows(), img.Cols(), img.Rows())
	}

	result := gocv.NewMat()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(img, template, &result, gocv.TmCcoeffNormed, mask)
	return result, nil
}
