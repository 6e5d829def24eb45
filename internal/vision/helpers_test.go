package vision

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"gocv.io/x/gocv"

	"github.com/thyrook/clanker/internal/board"
)

const (
	testTile  = 24
	testGlyph = 20
)

// noiseMat returns a w x h BGR mat of seeded random pixels. Independent
// noise patches correlate near zero with each other, which makes them
// unambiguous stand-ins for piece artwork.
func noiseMat(t *testing.T, seed int64, w, h int) gocv.Mat {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, w*h*3)
	rng.Read(data)

	wrapped, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
	if err != nil {
		t.Fatalf("Failed to build noise mat: %v", err)
	}
	defer wrapped.Close()

	// NewMatFromBytes aliases Go memory; hand out an owned copy.
	return wrapped.Clone()
}

func newTestGlyphSet(t *testing.T) *GlyphSet {
	t.Helper()

	gs := NewGlyphSet()
	for _, kind := range board.Kinds() {
		if err := gs.Add(kind, noiseMat(t, int64(kind)*7919+1, testGlyph, testGlyph)); err != nil {
			t.Fatalf("Failed to add glyph %s: %v", kind, err)
		}
	}
	t.Cleanup(func() { gs.Close() })
	return gs
}

// testConfig describes a 192x240 frame with the board one tile below the
// top edge, the same layout as a name bar above a live board.
func testConfig() *Config {
	config := DefaultConfig()
	config.CaptureRegion = CaptureRegion{Width: 8 * testTile, Height: 10 * testTile}
	config.BoardOrigin = Point{X: 0, Y: testTile}
	config.SquareSize = testTile
	return config
}

func renderPlacement(t *testing.T, placement string, side board.Side, gs *GlyphSet) *Frame {
	t.Helper()

	grid, err := board.ParsePlacement(placement)
	if err != nil {
		t.Fatalf("Bad placement %q: %v", placement, err)
	}

	config := testConfig()
	frame, err := RenderBoard(&grid, side, gs, config.Mapper(), config.CaptureRegion.Size(), DefaultBoardTheme())
	if err != nil {
		t.Fatalf("Failed to render board: %v", err)
	}
	t.Cleanup(func() { frame.Close() })
	return frame
}

func blankFrame(t *testing.T, w, h int) *Frame {
	t.Helper()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&mat, image.Rect(0, 0, w, h), color.RGBA{A: 255}, -1)
	frame, err := NewFrame(mat)
	if err != nil {
		t.Fatalf("Failed to create frame: %v", err)
	}
	t.Cleanup(func() { frame.Close() })
	return frame
}

func pointsEqual(a, b []image.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
