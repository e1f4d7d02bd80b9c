// Package main is a chess clock for the terminal
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tecu23/chess-clock/internal/locale"
	"github.com/tecu23/chess-clock/internal/terminal"
	"github.com/tecu23/chess-clock/pkg/chess"
	"github.com/tecu23/chess-clock/pkg/config"
	"github.com/tecu23/chess-clock/pkg/tick"
)

func main() {
	var opts clockOptions

	flag.StringVar(&opts.preset, "preset", "", "named time control, see -list")
	flag.StringVar(&opts.presetsPath, "presets", "", "YAML presets file")
	flag.StringVar(&opts.method, "method", "fischer", "time control method")
	flag.DurationVar(&opts.time, "time", 5*time.Minute, "initial time per player")
	flag.DurationVar(&opts.delay, "delay", 0, "delay or increment per player")
	flag.DurationVar(&opts.blackTime, "black-time", 0, "initial time for black when it differs")
	flag.DurationVar(&opts.blackDelay, "black-delay", 0, "delay or increment for black when it differs")
	interval := flag.Duration("interval", tick.DefaultInterval, "tick interval")
	lang := flag.String("lang", "en", "display language")
	list := flag.Bool("list", false, "list the presets and exit")
	logPath := flag.String("log", "", "write debug logs to this file")
	flag.Parse()

	if err := run(opts, *interval, *lang, *list, *logPath); err != nil {
		fmt.Fprintln(os.Stderr, "chessclock:", err)
		os.Exit(1)
	}
}

func run(opts clockOptions, interval time.Duration, lang string, list bool, logPath string) error {
	presets, err := config.LoadPresets(opts.presetsPath)
	if err != nil {
		return err
	}

	if list {
		for _, p := range presets {
			fmt.Println(p.Name)
		}
		return nil
	}

	tc, err := opts.timeControl(presets)
	if err != nil {
		return err
	}

	logger, err := initLogger(logPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tr, err := locale.New(lang, logger)
	if err != nil {
		return err
	}

	term, err := terminal.New(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	if err := term.CBreakMode(); err != nil {
		return err
	}
	defer func() {
		_ = term.CanonicalMode()
		term.Print(terminal.ShowCursor + "\n")
	}()

	var latest atomic.Pointer[chess.Snapshot]
	redraw := make(chan struct{}, 1)

	clock, err := chess.NewClock(tc,
		chess.WithTickInterval(interval),
		chess.WithLogger(logger),
		chess.WithObserver(func(s chess.Snapshot) {
			latest.Store(&s)
			select {
			case redraw <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return err
	}
	defer clock.Restart()

	keys := make(chan byte)
	go func() {
		for {
			key, err := term.ReadKey()
			if err != nil {
				close(keys)
				return
			}
			keys <- key
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	term.Print("%s", terminal.HideCursor+tr.Msg(locale.KeyHelp)+"\n")
	term.Redraw("%s", render(clock.Snapshot(), tr))

	for {
		select {
		case key, ok := <-keys:
			if !ok {
				return nil
			}
			if !handleKey(clock, key) {
				return nil
			}
			term.Redraw("%s", render(clock.Snapshot(), tr))

		case <-redraw:
			if s := latest.Load(); s != nil {
				term.Redraw("%s", render(*s, tr))
			}

		case <-quit:
			return nil
		}
	}
}

// handleKey applies a key press and reports false when the user quits
func handleKey(clock *chess.Clock, key byte) bool {
	switch key {
	case 'a', 'A':
		_, _ = clock.SwitchTurn(chess.White)
	case 'l', 'L':
		_, _ = clock.SwitchTurn(chess.Black)
	case ' ':
		clock.PauseResume()
	case 'r', 'R':
		clock.Restart()
	case 'q', 'Q', 0x1b:
		return false
	}

	return true
}

func initLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return logger, nil
}
