// Package main is the entry point for the nanobasic debugger.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/kesava/nanobasic/internal/config"
	"github.com/kesava/nanobasic/internal/debug"
	"github.com/kesava/nanobasic/internal/event"
	"github.com/kesava/nanobasic/internal/lang/interp"
	"github.com/kesava/nanobasic/internal/lang/parser"
	"github.com/kesava/nanobasic/internal/repl"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "nanobasic",
		Short: "nanobasic is a single-stepping debugger for line-numbered BASIC programs",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML configuration file")
	rootCmd.AddCommand(
		debugCommand(),
		runCommand(),
		versionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session holds everything a command needs to execute programs.
type session struct {
	cfg    *config.Config
	bus    *event.Bus
	ctrl   *debug.Controller
	interp *interp.Interpreter
	logger *log.Logger
	closer func()
}

// newSession wires the bus, state machine, breakpoint registry,
// controller and interpreter from the effective configuration.
func newSession(interpOpts ...interp.Option) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(event.WithLogger(logger))
	machine := debug.NewMachine(
		debug.WithHistoryCapacity(cfg.History.Capacity),
		debug.WithMachineLogger(logger),
	)

	regOpts := []debug.RegistryOption{debug.WithRegistryLogger(logger)}
	if cfg.Breakpoints.PersistPath != "" {
		regOpts = append(regOpts, debug.WithPersistPath(cfg.Breakpoints.PersistPath))
	}
	registry := debug.NewRegistry(bus, regOpts...)
	if cfg.Breakpoints.PersistPath != "" && cfg.Breakpoints.LoadOnStart {
		if err := registry.Load(); err != nil {
			logger.Printf("breakpoints: load %s: %v", cfg.Breakpoints.PersistPath, err)
		}
	}

	ctrl := debug.NewController(machine, registry, bus, debug.WithControllerLogger(logger))
	in := interp.New(ctrl, append([]interp.Option{interp.WithPublisher(bus)}, interpOpts...)...)

	return &session{
		cfg:    cfg,
		bus:    bus,
		ctrl:   ctrl,
		interp: in,
		logger: logger,
		closer: closeLog,
	}, nil
}

func (s *session) close() {
	if s.ctrl.Registry().PersistPath() != "" {
		if err := s.ctrl.Registry().Save(); err != nil {
			s.logger.Printf("breakpoints: save: %v", err)
		}
	}
	s.closer()
}

func (s *session) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := parser.Parse(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.interp.Load(prog)
	return nil
}

func debugCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "debug [program]",
		Short: "debug starts an interactive debug session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			if len(args) > 0 {
				if err := s.loadFile(args[0]); err != nil {
					return err
				}
			}

			if configPath != "" {
				watcher, err := config.NewWatcher(configPath, s.bus, config.WithWatcherLogger(s.logger))
				if err != nil {
					s.logger.Printf("config: watch %s: %v", configPath, err)
				} else {
					defer watcher.Close()
				}
			}

			repl.New(s.ctrl, s.interp, s.bus, s.cfg).Run()
			return nil
		},
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run program",
		Short: "run executes a program to completion without the interactive prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(interp.WithOutput(os.Stdout))
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.loadFile(args[0]); err != nil {
				return err
			}
			return s.interp.Run(context.Background())
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "version prints build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("nanobasic %s (%s)\n", version, commit)
		},
	}
}

// newLogger builds the session logger from the logging configuration.
// Debug level logs to stderr as well; otherwise diagnostics stay out of
// the prompt's way.
func newLogger(cfg *config.Config) (*log.Logger, func(), error) {
	var w io.Writer = io.Discard
	closer := func() {}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closer = func() { f.Close() }
	} else if cfg.Logging.Level == "debug" {
		w = os.Stderr
	}

	return log.New(w, "", log.LstdFlags|log.Lmicroseconds), closer, nil
}
