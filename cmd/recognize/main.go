package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/config"
	"github.com/thyrook/clanker/internal/iface"
	"github.com/thyrook/clanker/internal/position"
	"github.com/thyrook/clanker/internal/vision"
)

func main() {
	imageFile := flag.String("image", "", "Screenshot of the capture region")
	videoFile := flag.String("video", "", "Recording of the capture region")
	configFile := flag.String("config", "config.json", "Path to configuration file")
	sideFlag := flag.String("side", "w", "Side at the bottom of the board: w or b")
	every := flag.Int("every", 1, "Recognize every Nth video frame")
	verbose := flag.Bool("v", false, "Verbose output")
	quiet := flag.Bool("quiet", false, "Print only positions")
	flag.Parse()

	cfg := config.LoadOrDefault(*configFile)
	cli := iface.NewCLI(cfg, *quiet)

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, closeLog, err := iface.NewLogger("", level)
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}
	defer closeLog()

	side := board.White
	switch *sideFlag {
	case "w":
	case "b":
		side = board.Black
	default:
		cli.PrintError(fmt.Errorf("invalid side %q", *sideFlag))
		os.Exit(1)
	}

	var (
		source vision.FrameSource
		video  *vision.VideoSource
	)
	switch {
	case *imageFile != "":
		source, err = vision.NewStillSource(*imageFile)
	case *videoFile != "":
		video, err = vision.NewVideoSource(*videoFile)
		source = video
	default:
		cli.PrintHelp("recognize")
		os.Exit(1)
	}
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}
	defer source.Close()

	glyphs, err := vision.LoadGlyphSet(cfg.Vision.GlyphDir)
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}
	defer glyphs.Close()

	recognizer, err := vision.NewRecognizer(&cfg.Vision, glyphs)
	if err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}

	encoder := position.NewEncoder(position.RulesValidator{}, logger)

	cli.PrintModeHeader("recognize")

	if *imageFile != "" {
		if err := recognizeOne(context.Background(), cli, recognizer, encoder, cfg.Vision.Indicator, source, side); err != nil {
			cli.PrintError(err)
			os.Exit(1)
		}
		return
	}

	if *every < 1 {
		*every = 1
	}
	replay(cli, recognizer, encoder, video, side, *every, logger)
}

func recognizeOne(
	ctx context.Context,
	cli *iface.CLI,
	r *vision.Recognizer,
	enc *position.Encoder,
	indicator vision.IndicatorConfig,
	source vision.FrameSource,
	side board.Side,
) error {
	frame, err := source.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	over, err := r.GameOver(frame)
	if err != nil {
		return err
	}
	if over {
		cli.PrintInfo("Game over banner visible")
	}

	state, err := indicator.Classify(frame)
	if err == nil {
		cli.PrintInfo(fmt.Sprintf("Clock: %s", state))
	}

	rec, err := r.Recognize(frame, side)
	if err != nil {
		return err
	}

	cli.PrintBoard(&rec.Grid, side)

	fen, err := enc.Encode(ctx, rec.Grid.Placement(), side, &rec.Grid)
	if err != nil {
		cli.PrintWarning(err.Error())
		fmt.Println(position.Format(rec.Grid.Placement(), side, position.Castling(&rec.Grid)))
		return nil
	}
	fmt.Println(fen)
	return nil
}

// replay recognizes a recording, printing each position that differs from
// the previous one.
func replay(cli *iface.CLI, r *vision.Recognizer, enc *position.Encoder, source *vision.VideoSource, side board.Side, every int, logger *zap.Logger) {
	var (
		last    board.Grid
		haveOne bool
		index   int
		changes int
		failed  int
	)

	for {
		frame, err := source.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cli.PrintError(err)
			return
		}

		index++
		if index%every != 0 {
			frame.Close()
			continue
		}

		rec, err := r.Recognize(frame, side)
		frame.Close()
		if err != nil {
			failed++
			logger.Debug("Frame skipped", zap.Int("frame", index), zap.Error(err))
			continue
		}

		if haveOne && len(board.Diff(last, rec.Grid)) == 0 {
			continue
		}
		last = rec.Grid
		haveOne = true
		changes++

		fen, err := enc.Encode(context.Background(), rec.Grid.Placement(), side, &rec.Grid)
		if err != nil {
			fen = rec.Grid.Placement() + " (invalid)"
		}
		fmt.Printf("%6d  %s\n", index, fen)
	}

	cli.PrintStats(map[string]interface{}{
		"Frames read":     index,
		"Positions":       changes,
		"Frames rejected": failed,
		"Recognition":     r.GetStats().AverageFrameTime.String(),
		"Video read":      fmt.Sprintf("%.0f%%", source.GetProgress()*100),
	})
}
