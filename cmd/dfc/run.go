package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var f computeFlags

	cmd := &cobra.Command{
		Use:   "run <series>",
		Short: "Compute dynamic connectivity of one series",
		Long: `Compute one correlation matrix per sliding window of a samples x regions
series (.npy or .csv), the global connectivity of every region per window and
the optional region of interest series and volume reconstruction.

Outputs are written to the output directory as <name>_dfc.npy,
<name>_timestamps.npy, <name>_gfc.npy and <name>_manifest.yaml.

Examples:
  dfc run sub01.npy
  dfc run sub01.npy --labels atlas.nii --names atlas.csv --roi 7Networks_LH_Default_PFC_1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyFlags(cmd, &f); err != nil {
				return err
			}

			res, err := a.loadResources()
			if err != nil {
				return err
			}

			ts, err := loadSeries(args[0])
			if err != nil {
				res.recorder.RecordSeries("error")
				return err
			}

			if _, err := a.process(cmd, args[0], ts, res); err != nil {
				res.recorder.RecordSeries("error")
				if ferr := a.finish(res); ferr != nil {
					a.logger.Error("writing metrics failed", "error", ferr)
				}
				return err
			}
			res.recorder.RecordSeries("ok")

			return a.finish(res)
		},
	}

	f.register(cmd)

	return cmd
}
