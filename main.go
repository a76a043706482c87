package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kmoroz/aurora/internal/config"
	"github.com/kmoroz/aurora/internal/engine"
	"github.com/kmoroz/aurora/internal/logger"
	"github.com/kmoroz/aurora/internal/session"
	"github.com/kmoroz/aurora/internal/signal"
	"github.com/kmoroz/aurora/internal/ui"
)

func main() {
	engineMode := flag.String("engine", "", "sound engine: drone or beds (overrides config)")
	bedsDir := flag.String("beds", "", "directory of ambient bed files for the beds engine")
	noMic := flag.Bool("no-mic", false, "start without microphone capture")
	synthetic := flag.Bool("synthetic", false, "use a synthetic test tone instead of the microphone")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *engineMode != "" {
		cfg.Engine = config.EngineMode(*engineMode)
	}
	if *bedsDir != "" {
		cfg.BedsDir = *bedsDir
	}
	if *noMic {
		cfg.Microphone = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// the terminal belongs to the TUI, logs go to a file
	logger.SetLevel(cfg.LogLevel)
	if path := cfg.ResolveLogFile(); path != "" {
		if err := logger.SetOutputFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file, logging to stderr: %v\n", err)
		} else {
			defer logger.CloseLogFile()
		}
	}

	eng, err := engine.New(string(cfg.Engine), cfg.BedsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var acq signal.Acquirer
	if *synthetic {
		acq = signal.NewSine(220, 0.5, true)
	} else {
		acq = signal.NewMic()
	}

	sess := session.New(cfg, acq, eng, time.Now())
	defer sess.Close()

	if err := sess.Start(); err != nil {
		switch {
		case errors.Is(err, signal.ErrPermissionDenied):
			fmt.Fprintln(os.Stderr, "Microphone access denied; running without live audio.")
		case errors.Is(err, signal.ErrDeviceUnavailable):
			fmt.Fprintln(os.Stderr, "No audio capture device; running without live audio.")
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	program := tea.NewProgram(ui.New(sess), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
