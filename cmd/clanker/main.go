package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thyrook/clanker/internal/actuator"
	"github.com/thyrook/clanker/internal/config"
	"github.com/thyrook/clanker/internal/decision"
	"github.com/thyrook/clanker/internal/engine"
	"github.com/thyrook/clanker/internal/iface"
	"github.com/thyrook/clanker/internal/position"
	"github.com/thyrook/clanker/internal/storage"
	"github.com/thyrook/clanker/internal/vision"
)

// statusInterval is how often the running player logs its counters.
const statusInterval = 30 * time.Second

func main() {
	var (
		configPath = flag.String("config", "config.json", "Path to configuration file")
		premove    = flag.Bool("premove", false, "Premove captures after each move")
		elo        = flag.Int("elo", 0, "Playing strength (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		quiet      = flag.Bool("quiet", false, "Minimal console output")
		statsAddr  = flag.String("statsview", "", "Serve runtime charts on this address, e.g. localhost:12600")
		showN      = flag.Int("history", 0, "Print the last N stored moves and exit")
		exportPath = flag.String("export", "", "Export stored moves to a JSON file and exit")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *premove {
		cfg.Play.Premove = true
	}
	if *elo > 0 {
		cfg.Engine.Elo = *elo
	}
	if *verbose {
		cfg.Interface.LogLevel = "debug"
	}
	if *quiet {
		cfg.Interface.Quiet = true
	}

	cli := iface.NewCLI(cfg, cfg.Interface.Quiet)
	if *help {
		cli.PrintHelp("clanker")
		return
	}

	if err := cfg.Validate(); err != nil {
		cli.PrintError(fmt.Errorf("invalid configuration: %w", err))
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		cli.PrintError(err)
		os.Exit(1)
	}

	logger, closeLog, err := iface.NewLogger(cfg.Interface.LogPath, cfg.Interface.LogLevel)
	if err != nil {
		cli.PrintError(fmt.Errorf("failed to initialize logger: %w", err))
		os.Exit(1)
	}
	defer closeLog()

	var history *storage.HistoryStore
	if cfg.HistoryEnabled() {
		history, err = storage.NewHistoryStore(cfg.Storage.HistoryPath, cfg.Storage.HistorySize)
		if err != nil {
			logger.Error("Failed to open move history", zap.Error(err))
			os.Exit(1)
		}
		defer history.Close()
	}

	if (*showN > 0 || *exportPath != "") && history == nil {
		cli.PrintError(fmt.Errorf("move history is disabled (storage.history_path is empty)"))
		os.Exit(1)
	}

	switch {
	case *showN > 0:
		records, err := history.Recent(*showN)
		if err != nil {
			logger.Error("Failed to read move history", zap.Error(err))
			os.Exit(1)
		}
		cli.PrintHistory(records)
		return
	case *exportPath != "":
		if err := history.ExportToJSON(*exportPath); err != nil {
			logger.Error("Failed to export move history", zap.Error(err))
			os.Exit(1)
		}
		cli.PrintSuccess(fmt.Sprintf("Exported move history to %s", *exportPath))
		return
	}

	cli.PrintBanner()
	cli.PrintModeHeader("play")

	logger.Info("clanker starting",
		zap.String("version", cfg.Version),
		zap.String("go_version", runtime.Version()),
		zap.Int("elo", cfg.Engine.Elo),
		zap.Bool("premove", cfg.Play.Premove),
	)

	if *statsAddr != "" {
		launchStatsView(*statsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	player, cleanup, err := buildPlayer(cfg, history, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		cli.PrintError(err)
		os.Exit(1)
	}
	defer cleanup()
	player.OnMove(cli.PrintDecision)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return player.Run(ctx)
	})
	g.Go(func() error {
		reportStatus(ctx, player, logger)
		return nil
	})

	err = g.Wait()

	cli.PrintPlayerStats(player.GetStats())

	if err != nil {
		if errors.Is(err, decision.ErrOracleDown) {
			logger.Error("Engine lost, stopping", zap.Error(err))
		} else {
			logger.Error("Player stopped", zap.Error(err))
		}
		closeLog()
		os.Exit(1)
	}

	logger.Info("clanker shutting down")
	cli.PrintStatus("Goodbye.", "success")
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

// buildPlayer wires the recognizer, move oracle, actuator and history into a
// player. cleanup releases the glyphs and stops the engine.
func buildPlayer(cfg *config.Config, history *storage.HistoryStore, logger *zap.Logger) (*decision.Player, func(), error) {
	glyphs, err := vision.LoadGlyphSet(cfg.Vision.GlyphDir)
	if err != nil {
		return nil, nil, fmt.Errorf("glyphs: %w", err)
	}

	recognizer, err := vision.NewRecognizer(&cfg.Vision, glyphs)
	if err != nil {
		glyphs.Close()
		return nil, nil, fmt.Errorf("recognizer: %w", err)
	}

	factory := engine.Factory{Options: cfg.Engine, Logger: logger.Named("oracle")}
	oracle, err := factory.New()
	if err != nil {
		glyphs.Close()
		return nil, nil, fmt.Errorf("engine: %w", err)
	}

	validator := position.Chain{position.RulesValidator{}}
	if cfg.Play.ValidateEngine {
		probeOpts := cfg.Engine
		probeOpts.Threads = 1
		probeOpts.Hash = 1
		probes := engine.Factory{Options: probeOpts, Logger: logger.Named("probe")}
		validator = append(validator, position.NewEngineValidator(probes.Probe,
			cfg.Play.ValidationDepth, cfg.ValidationTimeout()))
	}
	encoder := position.NewEncoder(validator, logger.Named("position"))

	playConfig := cfg.PlayerConfig()
	de := decision.NewDecisionEngine(recognizer, encoder, oracle,
		playConfig.Elo, cfg.Engine.Depth, logger.Named("decision"))

	capturer := vision.NewCapturer(cfg.Vision.CaptureRegion)
	robot := actuator.NewRobot(playConfig.ActionPause)
	mover := actuator.NewMover(robot, cfg.Vision.Mapper(), cfg.Vision.CaptureRegion.Origin())

	// A nil store must reach the player as a nil interface.
	var writer decision.HistoryWriter
	if history != nil {
		writer = history
	}

	player := decision.NewPlayer(capturer, recognizer, cfg.Vision.Indicator, de, oracle,
		mover, robot, writer, playConfig, logger.Named("player"))

	cleanup := func() {
		capturer.Close()
		oracle.Close()
		glyphs.Close()
	}
	return player, cleanup, nil
}

func reportStatus(ctx context.Context, player *decision.Player, logger *zap.Logger) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := player.GetStats()
			logger.Info("Status",
				zap.Int("moves", s.Moves),
				zap.Int("premoves", s.Premoves),
				zap.Int("games", s.Games),
				zap.Int("cycles", s.Engine.TotalCycles),
				zap.Float64("accept_rate", s.Engine.AcceptRate),
				zap.Float64("recognition_ms", s.Engine.RecognitionMeanMs),
			)
		}
	}
}

func launchStatsView(addr string, logger *zap.Logger) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()
	logger.Info("Stats server available", zap.String("url", "http://"+addr+"/debug/statsview"))
}
