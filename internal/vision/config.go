package vision

import (
	"fmt"
	"image"
)

// Config holds vision system configuration
type Config struct {
	// Screen capture settings
	CaptureRegion CaptureRegion `json:"capture_region"`

	// Board geometry inside the captured frame
	BoardOrigin Point `json:"board_origin"` // Top-left corner of square a8 (white view)
	SquareSize  int   `json:"square_size"`  // Pixels per square

	// Template matching settings
	GlyphDir        string  `json:"glyph_dir"`        // Directory holding the 12 piece glyphs and marker images
	MatchThreshold  float64 `json:"match_threshold"`  // Minimum normalized correlation for a piece
	MarkerThreshold float64 `json:"marker_threshold"` // Minimum correlation for game-end/abort banners

	// Polling rate of the player loop
	FPS int `json:"fps"`

	// Clock indicator pixel
	Indicator IndicatorConfig `json:"indicator"`
}

// CaptureRegion defines the screen area to capture
type CaptureRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is a JSON friendly pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToRectangle converts CaptureRegion to image.Rectangle
func (cr CaptureRegion) ToRectangle() image.Rectangle {
	return image.Rect(cr.X, cr.Y, cr.X+cr.Width, cr.Y+cr.Height)
}

// Origin returns the top-left screen coordinate of the region.
func (cr CaptureRegion) Origin() image.Point {
	return image.Pt(cr.X, cr.Y)
}

// Size returns the frame dimensions produced by a capture of the region.
func (cr CaptureRegion) Size() image.Point {
	return image.Pt(cr.Width, cr.Height)
}

// DefaultConfig returns default vision configuration.
// Geometry matches a 1600x900 desktop at 100% scaling with the board
// rendered at 75px squares, one name bar above the board.
func DefaultConfig() *Config {
	return &Config{
		CaptureRegion: CaptureRegion{
			X:      231,
			Y:      104,
			Width:  597,
			Height: 728,
		},
		BoardOrigin:     Point{X: 0, Y: 49},
		SquareSize:      75,
		GlyphDir:        "assets",
		MatchThreshold:  0.9,
		MarkerThreshold: 0.9,
		FPS:             10,
		Indicator:       DefaultIndicatorConfig(),
	}
}

// Mapper returns the coordinate mapper for the configured geometry.
func (c *Config) Mapper() Mapper {
	return Mapper{
		Origin: image.Pt(c.BoardOrigin.X, c.BoardOrigin.Y),
		Tile:   c.SquareSize,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.CaptureRegion.Width <= 0 || c.CaptureRegion.Height <= 0 {
		return fmt.Errorf("invalid capture region dimensions")
	}

	if c.SquareSize < 10 || c.SquareSize > 500 {
		return fmt.Errorf("invalid square size: %d (must be 10-500)", c.SquareSize)
	}

	if c.BoardOrigin.X < 0 || c.BoardOrigin.Y < 0 {
		return fmt.Errorf("invalid board origin: (%d,%d)", c.BoardOrigin.X, c.BoardOrigin.Y)
	}

	// The board must fit in the frame, allowing a few pixels of slack for
	// regions measured by hand.
	const slack = 8
	if c.BoardOrigin.X+8*c.SquareSize > c.CaptureRegion.Width+slack ||
		c.BoardOrigin.Y+8*c.SquareSize > c.CaptureRegion.Height+slack {
		return fmt.Errorf("board (%d px squares at %d,%d) does not fit in %dx%d capture region",
			c.SquareSize, c.BoardOrigin.X, c.BoardOrigin.Y,
			c.CaptureRegion.Width, c.CaptureRegion.Height)
	}

	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("invalid match threshold: %f (must be 0-1)", c.MatchThreshold)
	}

	if c.MarkerThreshold <= 0 || c.MarkerThreshold > 1 {
		return fmt.Errorf("invalid marker threshold: %f (must be 0-1)", c.MarkerThreshold)
	}

	if c.FPS < 1 || c.FPS > 60 {
		return fmt.Errorf("invalid FPS: %d (must be 1-60)", c.FPS)
	}

	if c.Indicator.Inset < 1 {
		return fmt.Errorf("invalid indicator inset: %d", c.Indicator.Inset)
	}

	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Vision Config:\n"+
			"  Capture Region: (%d,%d) %dx%d\n"+
			"  Board Origin: (%d,%d)\n"+
			"  Square Size: %dpx\n"+
			"  Glyph Dir: %s\n"+
			"  Match Threshold: %.2f\n"+
			"  FPS: %d\n",
		c.CaptureRegion.X, c.CaptureRegion.Y,
		c.CaptureRegion.Width, c.CaptureRegion.Height,
		c.BoardOrigin.X, c.BoardOrigin.Y,
		c.SquareSize,
		c.GlyphDir,
		c.MatchThreshold,
		c.FPS,
	)
}
