package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dfcio "github.com/KyungWonPark/DynamicConnectivity/internal/io"
)

func newCheckCmd(a *app) *cobra.Command {
	var precision float64

	cmd := &cobra.Command{
		Use:   "check <stack.npy>",
		Short: "Validate a stored connectivity stack",
		Long: `Check that every matrix of an n_windows x R x R stack is symmetric, has a
zero diagonal and holds correlations within [-1, 1]. NaN entries of
degenerate regions are accepted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matrices, err := dfcio.NpytoStack(args[0])
			if err != nil {
				return err
			}

			pl := a.pipeline()

			failed := 0
			for i, m := range matrices {
				if !pl.CheckConnectivity(m, precision) {
					fmt.Fprintf(cmd.OutOrStdout(), "window %d: invalid\n", i)
					failed++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d windows checked, %d invalid\n", args[0], len(matrices), failed)
			if failed > 0 {
				return fmt.Errorf("%d invalid windows", failed)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&precision, "precision", 1e-9, "tolerance for symmetry and diagonal checks")

	return cmd
}
