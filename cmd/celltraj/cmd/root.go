// Package cmd implements the celltraj command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/celltraj/internal/config"
	"github.com/MeKo-Tech/celltraj/internal/trajectory"
	"github.com/MeKo-Tech/celltraj/internal/version"
)

// app is the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	tracker trajectory.Tracker
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds a fresh command tree with its own configuration
// state, so tests can execute commands repeatedly in-process.
func NewRootCommand() *cobra.Command {
	return newRootCommand(nil)
}

// newRootCommand builds the command tree with tracker building missing
// trajectory files. A nil tracker requires the file to exist.
func newRootCommand(tracker trajectory.Tracker) *cobra.Command {
	a := &app{v: viper.New(), tracker: tracker}

	root := &cobra.Command{
		Use:   "celltraj",
		Short: "Per-cell trajectory feature extraction for monolayer microscopy",
		Long: `celltraj turns labeled segmentation masks and tracked cell trajectories
into one feature record per cell and timestep: position, shape descriptors,
boundary length, mean color and the cells in physical contact.

Examples:
  celltraj extract --masks masks --frames frames --trajectories traj.json
  celltraj contours --t 0
  celltraj neighbors --t 0 --cell 3
  celltraj overlay --t 0 --out overlay.png --window 0,200,0,200`,
		Version:           version.String(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/celltraj, /etc/celltraj)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("frames", "", "directory of t=<t> frame images")
	pf.String("masks", "", "directory of t=<t> label masks")
	pf.String("trajectories", "", "trajectory file (.json, .yaml)")
	a.bind(pf, map[string]string{
		"verbose":                 "verbose",
		"log_level":               "log-level",
		"input.frames_dir":        "frames",
		"input.masks_dir":         "masks",
		"input.trajectories_file": "trajectories",
	})

	root.AddCommand(
		newExtractCommand(a),
		newContoursCommand(a),
		newNeighborsCommand(a),
		newOverlayCommand(a),
	)
	return root
}

func (a *app) bind(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// setup loads the configuration and installs the JSON logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoaderWithViper(a.v).LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// stdout carries command output
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}
