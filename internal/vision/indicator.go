package vision

import (
	"image/color"
)

// ClockState is what the clock indicator pixel says about whose turn it is.
type ClockState int

const (
	ClockUnknown ClockState = iota
	ClockWhiteActive
	ClockBlackActive
	ClockWhiteIdle
	ClockBlackIdle
	ClockLowTime
)

func (s ClockState) String() string {
	switch s {
	case ClockWhiteActive:
		return "white-active"
	case ClockBlackActive:
		return "black-active"
	case ClockWhiteIdle:
		return "white-idle"
	case ClockBlackIdle:
		return "black-idle"
	case ClockLowTime:
		return "low-time"
	default:
		return "unknown"
	}
}

// RGB is a JSON friendly colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Matches reports exact equality with c, ignoring alpha.
func (c RGB) Matches(o color.RGBA) bool {
	return c.R == o.R && c.G == o.G && c.B == o.B
}

// IndicatorConfig describes the player's clock pixel, sampled Inset pixels
// in from the bottom-right corner of the frame.
type IndicatorConfig struct {
	Inset       int `json:"inset"`
	WhiteActive RGB `json:"white_active"`
	BlackActive RGB `json:"black_active"`
	WhiteIdle   RGB `json:"white_idle"`
	BlackIdle   RGB `json:"black_idle"`
	LowTime     RGB `json:"low_time"`
}

// DefaultIndicatorConfig returns the clock colours of the supported board
// theme.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		Inset:       3,
		WhiteActive: RGB{255, 255, 255},
		BlackActive: RGB{38, 36, 33},
		WhiteIdle:   RGB{152, 151, 149},
		BlackIdle:   RGB{42, 40, 37},
		LowTime:     RGB{173, 31, 36},
	}
}

// Sample reads the indicator pixel.
func (c IndicatorConfig) Sample(frame *Frame) (color.RGBA, error) {
	size := frame.Size()
	return frame.Pixel(size.X-c.Inset, size.Y-c.Inset)
}

// Classify maps the indicator pixel to a clock state.
func (c IndicatorConfig) Classify(frame *Frame) (ClockState, error) {
	px, err := c.Sample(frame)
	if err != nil {
		return ClockUnknown, err
	}

	switch {
	case c.WhiteActive.Matches(px):
		return ClockWhiteActive, nil
	case c.BlackActive.Matches(px):
		return ClockBlackActive, nil
	case c.LowTime.Matches(px):
		return ClockLowTime, nil
	case c.WhiteIdle.Matches(px):
		return ClockWhiteIdle, nil
	case c.BlackIdle.Matches(px):
		return ClockBlackIdle, nil
	default:
		return ClockUnknown, nil
	}
}
