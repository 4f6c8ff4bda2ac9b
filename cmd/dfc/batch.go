package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/KyungWonPark/DynamicConnectivity/internal/calc"
	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
	dfcio "github.com/KyungWonPark/DynamicConnectivity/internal/io"
)

func newBatchCmd(a *app) *cobra.Command {
	var f computeFlags
	var group bool

	cmd := &cobra.Command{
		Use:   "batch <series>...",
		Short: "Compute dynamic connectivity of several series",
		Long: `Compute every series like run does. Series are loaded ahead into a ring
of processing.queueSize slots while earlier ones are computed. A failing
series is logged and the remaining ones are still processed.

With --group, the stationary connectivity of every successful series is
averaged into group_sfc.npy and its global connectivity into
group_sfc_gfc.npy.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyFlags(cmd, &f); err != nil {
				return err
			}

			res, err := a.loadResources()
			if err != nil {
				return err
			}

			var acc *calc.Accumulator
			if group {
				acc = &calc.Accumulator{}
			}

			failed := a.batch(cmd, args, res, acc)

			if group {
				if err := a.writeGroup(cmd, res, acc); err != nil {
					return err
				}
			}

			if err := a.finish(res); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d series failed", failed, len(args))
			}
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&group, "group", false, "also average stationary connectivity over all series")

	return cmd
}

// batch loads series into the pipeline's ring buffer on one goroutine and
// computes them in input order on the calling one. It returns the number of
// failed series. A non-nil acc collects each series' stationary connectivity.
func (a *app) batch(cmd *cobra.Command, inputs []string, res *resources, acc *calc.Accumulator) int {
	pl := res.pl
	numQueueSize := pl.QueueSize()

	ringBuffer := make([]*mat.Dense, numQueueSize)
	ringInput := make([]string, numQueueSize)
	ringErr := make([]error, numQueueSize)

	go func() {
		for _, input := range inputs {
			dest := pl.Malloc()
			ringInput[dest] = input
			ringBuffer[dest], ringErr[dest] = loadSeries(input)
			pl.Push(dest)
		}

		pl.Close()
	}()

	failed := 0
	for {
		job, ok := pl.Pop()
		if !ok {
			break
		}

		input, err := ringInput[job], ringErr[job]
		if err == nil {
			_, err = a.process(cmd, input, ringBuffer[job], res)
		}
		if err == nil && acc != nil {
			err = a.accumulate(input, ringBuffer[job], res.pl, acc)
		}

		ringBuffer[job] = nil
		pl.Free(job)

		if err != nil {
			a.logger.Error("series failed", "input", input, "error", err)
			res.recorder.RecordSeries("error")
			failed++
			continue
		}
		res.recorder.RecordSeries("ok")
	}

	return failed
}

// accumulate adds the stationary connectivity of ts to acc, sizing acc by
// the first series.
func (a *app) accumulate(input string, ts *mat.Dense, pl *calc.PipeLine, acc *calc.Accumulator) error {
	corr, _, err := dfc.Stationary(ts)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	if acc.Len() == 0 {
		*acc = *calc.NewAccumulator(corr.SymmetricDim())
	}
	if err := pl.Acc(corr, acc); err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	return nil
}

func (a *app) writeGroup(cmd *cobra.Command, res *resources, acc *calc.Accumulator) error {
	if acc.Len() == 0 {
		a.logger.Warn("no series for the group average")
		return nil
	}

	avg := res.pl.Avg(acc)
	dim := acc.Dim()

	sym := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			sym.SetSym(i, j, avg.At(i, j))
		}
	}
	gc, err := calc.Global(sym)
	if err != nil {
		return err
	}

	path := filepath.Join(a.cfg.Output.Dir, "group_sfc.npy")
	if err := dfcio.DensetoNpy(path, avg); err != nil {
		return err
	}
	if err := dfcio.SlicetoNpy(filepath.Join(a.cfg.Output.Dir, "group_sfc_gfc.npy"), gc); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "group: %d series, %d regions -> %s\n", acc.Len(), dim, path)
	return nil
}
