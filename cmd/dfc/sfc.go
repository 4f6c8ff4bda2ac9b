package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
	dfcio "github.com/KyungWonPark/DynamicConnectivity/internal/io"
)

func newSfcCmd(a *app) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "sfc <series>",
		Short: "Compute stationary connectivity over the whole series",
		Long: `Compute one correlation matrix over every sample of the series and the
global connectivity of every region. Writes <name>_sfc.npy and
<name>_sfc_gfc.npy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("out-dir") {
				a.cfg.Output.Dir = outDir
			}

			ts, err := loadSeries(args[0])
			if err != nil {
				return err
			}

			corr, degenerate, err := dfc.Stationary(ts)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			for _, region := range degenerate {
				a.logger.Warn("degenerate region", "input", args[0], "region", region)
			}

			gc, err := calc.Global(corr)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}

			prefix := filepath.Join(a.cfg.Output.Dir, outputPrefix(args[0]))
			if err := dfcio.DensetoNpy(prefix+"_sfc.npy", corr); err != nil {
				return err
			}
			if err := dfcio.SlicetoNpy(prefix+"_sfc_gfc.npy", gc); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d regions, %d degenerate -> %s_sfc.npy\n",
				args[0], corr.SymmetricDim(), len(degenerate), prefix)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "output directory")

	return cmd
}
