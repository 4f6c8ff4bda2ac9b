package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KyungWonPark/DynamicConnectivity/internal/config"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dfc",
		Short: "Windowed dynamic functional connectivity",
		Long: `dfc computes a Pearson correlation matrix per sliding window of a
region-averaged BOLD time series (rows are samples, columns are regions),
the global connectivity of every region per window, and optionally maps the
global connectivity back onto a labelled brain volume.

Example usage:
  dfc run sub01.npy                          # 44 sample windows, step 2, TR 0.9s
  dfc run sub01.csv --window 30 --tr 0.72    # other acquisition
  dfc run sub01.npy --labels atlas.nii       # also write a 4D NIfTI
  dfc batch data/*.npy                       # several runs
  dfc sfc sub01.npy                          # one matrix over the whole run
  dfc check out/sub01_dfc.npy                # validate a stored stack
  dfc config init                            # write dfc.yaml with defaults`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "dfc.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newRunCmd(a),
		newBatchCmd(a),
		newSfcCmd(a),
		newCheckCmd(a),
		newConfigCmd(a),
	)

	return rootCmd
}

// initConfig loads the config file and sets up the logger.
func (a *app) initConfig(cmd *cobra.Command) error {
	var err error

	a.cfg, err = config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := a.cfg.LogLevel()
	if err != nil {
		return err
	}
	if a.verbose || a.cfg.Processing.Debug {
		level = slog.LevelDebug
	}

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))

	a.logger.Debug("configuration loaded",
		"config", a.cfgFile,
		"window", a.cfg.Window.Size,
		"step", a.cfg.Window.Step,
		"frame_duration", a.cfg.Window.FrameDuration,
		"workers", a.cfg.Processing.Workers,
	)

	return nil
}
