// Package main is the entry point of the application
package main

import (
	"flag"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/chess-clock/internal/auth"
	"github.com/tecu23/chess-clock/pkg/config"
	"github.com/tecu23/chess-clock/pkg/events"
	"github.com/tecu23/chess-clock/pkg/manager"
	"github.com/tecu23/chess-clock/pkg/repository"
	"github.com/tecu23/chess-clock/pkg/server"
)

// App encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Manager   *manager.Manager
	Hub       *server.Hub
	Server    *http.Server

	StartTime time.Time
}

func main() {
	cfg := config.Default()

	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", cfg.Port, "server port")
	tickInterval := flag.Duration("tick", 0, "clock tick interval, overrides TICK_INTERVAL")
	presetsPath := flag.String("presets", "", "YAML presets file, overrides PRESETS_PATH")
	statsView := flag.Bool("statsview", false, "serve runtime statistics on "+statsViewAddr)
	flag.Parse()

	cfg.Debug = *debug
	cfg.Port = *port
	cfg.StatsView = *statsView

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	if err := cfg.LoadEnv(); err != nil {
		logger.Fatal("loading env error", zap.Error(err))
	}
	if *tickInterval != 0 {
		cfg.TickInterval = *tickInterval
	}
	if *presetsPath != "" {
		cfg.PresetsPath = *presetsPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	presets, err := config.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Fatal("loading presets error", zap.Error(err))
	}

	if cfg.StatsView {
		launchStatsView(logger)
	}

	// Initialize event publisher
	publisher := events.NewPublisher()

	// Initialize repository
	repository := repository.NewInMemoryRepository(logger)

	// Initialize game manager
	gm := manager.NewManager(repository, presets, logger, publisher,
		manager.WithTickInterval(cfg.TickInterval),
	)

	hub := server.NewHub(gm, publisher, logger)

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Manager:   gm,
		Hub:       hub,
		StartTime: time.Now(),
	}

	if !app.Auth.Enabled() {
		logger.Warn("no API keys configured, authentication disabled")
	}

	go app.Hub.Run()

	err = app.serve()
	if err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	// Shut down hub
	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	app.Logger.Info("All components shut down successfully")
}
