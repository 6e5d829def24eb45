package vision

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/thyrook/clanker/internal/board"
)

// Marker names for single-instance banners on the game page.
const (
	MarkerGameEnd = "gameend"
	MarkerAbort   = "abort"
)

// Glyph is the reference image for one piece kind.
type Glyph struct {
	Kind board.Kind
	Mat  gocv.Mat
}

// Size returns the glyph width and height.
func (g Glyph) Size() (int, int) {
	return g.Mat.Cols(), g.Mat.Rows()
}

// GlyphSet holds the 12 piece glyphs plus optional marker templates.
type GlyphSet struct {
	glyphs  map[board.Kind]Glyph
	markers map[string]gocv.Mat
}

// NewGlyphSet creates an empty set. Mats added later are owned by the set.
func NewGlyphSet() *GlyphSet {
	return &GlyphSet{
		glyphs:  make(map[board.Kind]Glyph),
		markers: make(map[string]gocv.Mat),
	}
}

// LoadGlyphSet reads <dir>/<kind name>.png for all 12 kinds, and the
// gameend/abort markers when present.
func LoadGlyphSet(dir string) (*GlyphSet, error) {
	gs := NewGlyphSet()

	for _, kind := range board.Kinds() {
		path := filepath.Join(dir, kind.Name()+".png")
		mat := gocv.IMRead(path, gocv.IMReadColor)
		if mat.Empty() {
			gs.Close()
			return nil, fmt.Errorf("failed to load glyph %s from %s", kind, path)
		}
		if err := gs.Add(kind, mat); err != nil {
			gs.Close()
			return nil, err
		}
	}

	for _, name := range []string{MarkerGameEnd, MarkerAbort} {
		mat := gocv.IMRead(filepath.Join(dir, name+".png"), gocv.IMReadColor)
		if mat.Empty() {
			mat.Close()
			continue
		}
		gs.AddMarker(name, mat)
	}

	return gs, nil
}

// Add registers the glyph for a kind, replacing any previous one.
func (gs *GlyphSet) Add(kind board.Kind, mat gocv.Mat) error {
	if kind == board.Empty {
		mat.Close()
		return fmt.Errorf("cannot register a glyph for an empty square")
	}
	if mat.Empty() || mat.Type() != gocv.MatTypeCV8UC3 {
		mat.Close()
		return fmt.Errorf("glyph %s must be a non-empty 8-bit BGR image", kind)
	}
	if old, ok := gs.glyphs[kind]; ok {
		old.Mat.Close()
	}
	gs.glyphs[kind] = Glyph{Kind: kind, Mat: mat}
	return nil
}

// AddMarker registers a marker template, replacing any previous one.
func (gs *GlyphSet) AddMarker(name string, mat gocv.Mat) {
	if old, ok := gs.markers[name]; ok {
		old.Close()
	}
	gs.markers[name] = mat
}

// Glyph returns the glyph for a kind.
func (gs *GlyphSet) Glyph(kind board.Kind) (Glyph, bool) {
	g, ok := gs.glyphs[kind]
	return g, ok
}

// Marker returns a marker template by name.
func (gs *GlyphSet) Marker(name string) (gocv.Mat, bool) {
	m, ok := gs.markers[name]
	return m, ok
}

// Complete reports whether all 12 kinds have a glyph.
func (gs *GlyphSet) Complete() error {
	for _, kind := range board.Kinds() {
		if _, ok := gs.glyphs[kind]; !ok {
			return fmt.Errorf("missing glyph for %s", kind)
		}
	}
	return nil
}

// Close releases all images held by the set.
func (gs *GlyphSet) Close() error {
	for kind, g := range gs.glyphs {
		g.Mat.Close()
		delete(gs.glyphs, kind)
	}
	for name, m := range gs.markers {
		m.Close()
		delete(gs.markers, name)
	}
	return nil
}
