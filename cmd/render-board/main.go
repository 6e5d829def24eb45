package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gocv.io/x/gocv"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/config"
	"github.com/thyrook/clanker/internal/iface"
	"github.com/thyrook/clanker/internal/vision"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func main() {
	fen := flag.String("fen", startFEN, "Position to draw")
	sideFlag := flag.String("side", "w", "Orientation: w or b")
	clock := flag.String("clock", "", "Paint the clock indicator: white, black, white-idle, black-idle, low")
	outFile := flag.String("out", "board.png", "Output image")
	configFile := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	cfg := config.LoadOrDefault(*configFile)
	cli := iface.NewCLI(cfg, false)

	side := board.White
	if *sideFlag == "b" {
		side = board.Black
	}

	placement := strings.Fields(*fen)
	if len(placement) == 0 {
		cli.PrintError(fmt.Errorf("empty position"))
		os.Exit(1)
	}
	grid, err := board.ParsePlacement(placement[0])
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}

	glyphs, err := vision.LoadGlyphSet(cfg.Vision.GlyphDir)
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}
	defer glyphs.Close()

	cli.PrintModeHeader("render")

	frame, err := vision.RenderBoard(&grid, side, glyphs, cfg.Vision.Mapper(),
		cfg.Vision.CaptureRegion.Size(), vision.DefaultBoardTheme())
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}
	defer frame.Close()

	if *clock != "" {
		c, ok := clockColour(cfg.Vision.Indicator, *clock)
		if !ok {
			cli.PrintError(fmt.Errorf("unknown clock state %q", *clock))
			os.Exit(1)
		}
		vision.PaintIndicator(frame, cfg.Vision.Indicator, c)
	}

	if ok := gocv.IMWrite(*outFile, frame.Mat()); !ok {
		cli.PrintError(fmt.Errorf("failed to save image to %s", *outFile))
		os.Exit(1)
	}

	cli.PrintBoard(&grid, side)
	size := frame.Size()
	cli.PrintSuccess(fmt.Sprintf("Rendered %s (%dx%d)", *outFile, size.X, size.Y))
}

func clockColour(ind vision.IndicatorConfig, name string) (vision.RGB, bool) {
	switch name {
	case "white":
		return ind.WhiteActive, true
	case "black":
		return ind.BlackActive, true
	case "white-idle":
		return ind.WhiteIdle, true
	case "black-idle":
		return ind.BlackIdle, true
	case "low":
		return ind.LowTime, true
	default:
		return vision.RGB{}, false
	}
}
