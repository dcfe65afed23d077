package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/ambient/config"
	"github.com/pthm-cable/ambient/game"
	"github.com/pthm-cable/ambient/telemetry"
	"github.com/pthm-cable/ambient/terminal"
	"github.com/pthm-cable/ambient/window"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	seed       int64
	outputDir  string
	logLevel   string
}

// session is the per-run setup: config, logger and optional CSV output.
type session struct {
	cfg    *config.Config
	log    *slog.Logger
	out    *telemetry.OutputManager
	runID  string
	seed   int64
	closer io.Closer
}

func (s *session) Close() error {
	outErr := s.out.Close()
	logErr := s.closer.Close()
	if outErr != nil {
		return outErr
	}
	return logErr
}

// onReport writes window reports synchronously on the loop goroutine.
func (s *session) onReport(r game.Report) {
	if err := game.WriteReport(s.log, s.out, r); err != nil {
		s.log.Error("writing telemetry", "error", err)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ambient",
		Short:         "Interactive ambient particle field",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (empty = use defaults)")
	flags.Int64Var(&opts.seed, "seed", 0, "RNG seed (0 = time-based)")
	flags.StringVar(&opts.outputDir, "output-dir", "", "directory for CSV telemetry and config snapshot")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	windowCmd := newWindowCmd(opts)
	root.RunE = windowCmd.RunE
	root.AddCommand(
		windowCmd,
		newTermCmd(opts),
		newHeadlessCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// loadConfig loads the config file and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// open builds a session. console receives log output and may be nil.
func (o *rootOptions) open(console io.Writer) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := game.NewLogger(cfg.Logging, console)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	runID := telemetry.NewRunID()

	out, err := telemetry.NewOutputManager(o.outputDir, runID)
	if err != nil {
		closer.Close()
		return nil, err
	}
	if err := out.WriteConfig(cfg); err != nil {
		out.Close()
		closer.Close()
		return nil, err
	}

	logger.Info("session started", "run_id", runID, "seed", seed, "output_dir", o.outputDir)
	return &session{cfg: cfg, log: logger, out: out, runID: runID, seed: seed, closer: closer}, nil
}

func newWindowCmd(opts *rootOptions) *cobra.Command {
	var maxTicks int
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Run the field in a raylib window (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			return window.Run(cmd.Context(), window.Options{
				Config:   s.cfg,
				Logger:   s.log,
				Seed:     s.seed,
				RunID:    s.runID,
				MaxTicks: maxTicks,
				OnReport: s.onReport,
			})
		},
	}
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "stop after N ticks (0 = unlimited)")
	return cmd
}

func newTermCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "term",
		Short: "Run the field in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The screen owns the terminal; logs go to logging.file only
			s, err := opts.open(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("opening terminal: %w", err)
			}
			host, err := terminal.New(screen, terminal.Options{
				Config:   s.cfg,
				Logger:   s.log,
				Seed:     s.seed,
				RunID:    s.runID,
				OnReport: s.onReport,
			})
			if err != nil {
				return err
			}
			defer host.Close()
			return host.Run(cmd.Context())
		},
	}
}

func newHeadlessCmd(opts *rootOptions) *cobra.Command {
	var (
		maxTicks int
		fps      float64
	)
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Run the field without graphics and record telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := game.NewHeadless(s.cfg, game.HeadlessOptions{
				Seed:     s.seed,
				MaxTicks: maxTicks,
				FPS:      fps,
				Output:   s.out,
				Logger:   s.log,
			})
			if err != nil {
				return err
			}
			s.log.Info("starting headless run", "max_ticks", maxTicks, "fps", fps)
			return h.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "stop after N ticks (0 = until interrupted)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "frames per second (0 = as fast as possible)")
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
