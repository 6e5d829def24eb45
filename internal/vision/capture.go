package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/kbinani/screenshot"
	"gocv.io/x/gocv"
)

// ErrMalformedFrame is returned when a frame has unexpected dimensions or
// format, or when a detection maps outside the board.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameSource produces frames for recognition.
type FrameSource interface {
	ReadFrame() (*Frame, error)
	Close() error
}

// Frame is a 3-channel BGR raster. It is consumed by one recognition pass
// and then closed.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat and normalizes it to 8-bit BGR. Alpha
// channels are stripped, grayscale is expanded.
func NewFrame(mat gocv.Mat) (*Frame, error) {
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}

	switch mat.Type() {
	case gocv.MatTypeCV8UC3:
		return &Frame{mat: mat}, nil
	case gocv.MatTypeCV8UC4:
		bgr := gocv.NewMat()
		gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR)
		mat.Close()
		return &Frame{mat: bgr}, nil
	case gocv.MatTypeCV8UC1:
		bgr := gocv.NewMat()
		gocv.CvtColor(mat, &bgr, gocv.ColorGrayToBGR)
		mat.Close()
		return &Frame{mat: bgr}, nil
	default:
		t := mat.Type()
		mat.Close()
		return nil, fmt.Errorf("%w: unsupported mat type %v", ErrMalformedFrame, t)
	}
}

// FrameFromImage converts an image.Image (as returned by screen capture)
// to a BGR frame.
func FrameFromImage(img image.Image) (*Frame, error) {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() {
		bounds := rgba.Bounds()
		src, err := gocv.NewMatFromBytes(bounds.Dy(), bounds.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
		if err != nil {
			return nil, fmt.Errorf("failed to wrap capture: %w", err)
		}
		defer src.Close()

		bgr := gocv.NewMat()
		gocv.CvtColor(src, &bgr, gocv.ColorRGBAToBGR)
		return NewFrame(bgr)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	return NewFrame(mat)
}

// Mat returns the underlying BGR mat. The frame keeps ownership.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

// Size returns the frame width and height.
func (f *Frame) Size() image.Point {
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

// CheckSize fails with ErrMalformedFrame unless the frame is exactly
// width x height.
func (f *Frame) CheckSize(size image.Point) error {
	if got := f.Size(); got != size {
		return fmt.Errorf("%w: expected %dx%d, got %dx%d",
			ErrMalformedFrame, size.X, size.Y, got.X, got.Y)
	}
	return nil
}

// Pixel returns the colour at (x, y).
func (f *Frame) Pixel(x, y int) (color.RGBA, error) {
	if x < 0 || y < 0 || x >= f.mat.Cols() || y >= f.mat.Rows() {
		return color.RGBA{}, fmt.Errorf("%w: pixel (%d,%d) outside %dx%d",
			ErrMalformedFrame, x, y, f.mat.Cols(), f.mat.Rows())
	}
	return color.RGBA{
		B: f.mat.GetUCharAt(y, x*3+0),
		G: f.mat.GetUCharAt(y, x*3+1),
		R: f.mat.GetUCharAt(y, x*3+2),
		A: 255,
	}, nil
}

// Clone returns an independent copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{mat: f.mat.Clone()}
}

// Close releases the frame's memory.
func (f *Frame) Close() error {
	return f.mat.Close()
}

// Capturer handles screen capture of a fixed region
type Capturer struct {
	region image.Rectangle
	mu     sync.Mutex
}

// NewCapturer creates a new screen capturer
func NewCapturer(region CaptureRegion) *Capturer {
	return &Capturer{
		region: region.ToRectangle(),
	}
}

// Region returns the captured screen rectangle.
func (c *Capturer) Region() image.Rectangle {
	return c.region
}

// ReadFrame captures the current screen region as a BGR frame.
func (c *Capturer) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Capture screen region
	img, err := screenshot.CaptureRect(c.region)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}

	frame, err := FrameFromImage(img)
	if err != nil {
		return nil, err
	}

	if err := frame.CheckSize(c.region.Size()); err != nil {
		frame.Close()
		return nil, err
	}

	return frame, nil
}

// Close releases resources
func (c *Capturer) Close() error {
	return nil
}
