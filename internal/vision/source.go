package vision

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"
)

// StillSource replays a single image file as an endless stream of
// identical frames. Useful for offline recognition and calibration.
type StillSource struct {
	path  string
	frame *Frame
}

// NewStillSource loads an image file as a frame source
func NewStillSource(path string) (*StillSource, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to load image: %s", path)
	}

	frame, err := NewFrame(mat)
	if err != nil {
		return nil, err
	}

	return &StillSource{path: path, frame: frame}, nil
}

// ReadFrame returns a fresh copy of the image
func (ss *StillSource) ReadFrame() (*Frame, error) {
	if ss.frame == nil {
		return nil, fmt.Errorf("still source closed")
	}
	return ss.frame.Clone(), nil
}

// Close releases the image
func (ss *StillSource) Close() error {
	if ss.frame != nil {
		err := ss.frame.Close()
		ss.frame = nil
		return err
	}
	return nil
}

// VideoSource provides frames from a recorded game for replay/testing
type VideoSource struct {
	video        *gocv.VideoCapture
	frameCount   int
	currentFrame int
}

// NewVideoSource opens a video file for playback
func NewVideoSource(videoPath string) (*VideoSource, error) {
	video, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file: %w", err)
	}

	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("video file not opened")
	}

	return &VideoSource{
		video:      video,
		frameCount: int(video.Get(gocv.VideoCaptureFrameCount)),
	}, nil
}

// ReadFrame reads the next frame from the video. It returns io.EOF once
// the video is exhausted.
func (vs *VideoSource) ReadFrame() (*Frame, error) {
	if vs.video == nil {
		return nil, fmt.Errorf("video source not initialized")
	}

	mat := gocv.NewMat()
	if !vs.video.Read(&mat) {
		mat.Close()
		return nil, io.EOF
	}

	vs.currentFrame++
	return NewFrame(mat)
}

// GetProgress returns playback progress (0-1)
func (vs *VideoSource) GetProgress() float64 {
	if vs.frameCount == 0 {
		return 0
	}
	return float64(vs.currentFrame) / float64(vs.frameCount)
}

// Close releases video resources
func (vs *VideoSource) Close() error {
	if vs.video != nil {
		err := vs.video.Close()
		vs.video = nil
		return err
	}
	return nil
}
