package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/thyrook/clanker/internal/board"
)

// BoardTheme holds the square colours used when rendering a board.
type BoardTheme struct {
	Background RGB
	Light      RGB
	Dark       RGB
}

// DefaultBoardTheme returns a brown board on a dark page.
func DefaultBoardTheme() BoardTheme {
	return BoardTheme{
		Background: RGB{48, 46, 43},
		Light:      RGB{240, 217, 181},
		Dark:       RGB{181, 136, 99},
	}
}

func (c RGB) rgba() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// RenderBoard draws a synthetic screenshot of grid: a frame of the given
// size with the board placed by mapper and each piece's glyph centred on its
// square. The result is what the recognizer expects to see.
func RenderBoard(grid *board.Grid, side board.Side, glyphs *GlyphSet, mapper Mapper, size image.Point, theme BoardTheme) (*Frame, error) {
	if !mapper.Bounds().In(image.Rectangle{Max: size}) {
		return nil, fmt.Errorf("board %v does not fit in %dx%d frame", mapper.Bounds(), size.X, size.Y)
	}

	mat := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&mat, image.Rectangle{Max: size}, theme.Background.rgba(), -1)

	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			idx := board.Index{File: file, Rank: rank}
			shade := theme.Dark
			if (file+rank)%2 == 1 {
				shade = theme.Light
			}
			gocv.Rectangle(&mat, mapper.SquareRect(idx, side), shade.rgba(), -1)
		}
	}

	for kind, indices := range grid.Indices() {
		glyph, ok := glyphs.Glyph(kind)
		if !ok {
			mat.Close()
			return nil, fmt.Errorf("missing glyph for %s", kind)
		}
		w, h := glyph.Size()
		if w > mapper.Tile || h > mapper.Tile {
			mat.Close()
			return nil, fmt.Errorf("glyph %s (%dx%d) larger than %d px square", kind, w, h, mapper.Tile)
		}

		for _, idx := range indices {
			sq := mapper.SquareRect(idx, side)
			at := sq.Min.Add(image.Pt((mapper.Tile-w)/2, (mapper.Tile-h)/2))
			roi := mat.Region(image.Rect(at.X, at.Y, at.X+w, at.Y+h))
			glyph.Mat.CopyTo(&roi)
			roi.Close()
		}
	}

	return NewFrame(mat)
}

// PaintIndicator fills the clock indicator area of a frame with c. Used to
// fake turn state in synthetic frames.
func PaintIndicator(frame *Frame, cfg IndicatorConfig, c RGB) {
	size := frame.Size()
	mat := frame.Mat()
	r := image.Rect(size.X-2*cfg.Inset, size.Y-2*cfg.Inset, size.X, size.Y)
	gocv.Rectangle(&mat, r, c.rgba(), -1)
}
