package nnet

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/felipe6san/Fatec-5Sem/stats"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Settings for a sweep over hidden layer layouts.
type SweepOptions struct {
	// Number of training runs per layout, RandSeed+run is used as the seed for each one.
	Runs int
	// Maximum number of networks trained at once, defaults to the number of CPUs.
	Jobs int
	// Optional writer for one line per completed run.
	Log io.Writer
}

// Result of training each layout, Net is the network from the last run.
type SweepResult struct {
	Hidden   []int
	Accuracy stats.Average
	Scores   []float64
	Net      *Network
}

func (r SweepResult) String() string {
	return fmt.Sprintf("%v: accuracy %.4f", r.Hidden, r.Accuracy.Mean)
}

// Train a network for each hidden layer layout with the other settings taken from base and score
// each on the test set. Results are returned in the order of layouts. The first error cancels
// any runs still in progress.
func Sweep(ctx context.Context, base Config, layouts [][]int, train, test Data, opts SweepOptions) ([]SweepResult, error) {
	if opts.Runs <= 0 {
		opts.Runs = 1
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	results := make([]SweepResult, len(layouts))
	nets := make([][]*Network, len(layouts))
	for i, hidden := range layouts {
		results[i] = SweepResult{Hidden: hidden, Scores: make([]float64, opts.Runs)}
		nets[i] = make([]*Network, opts.Runs)
	}
	var logMu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Jobs)
	for i := range layouts {
		for run := 0; run < opts.Runs; run++ {
			i, run := i, run
			group.Go(func() error {
				conf := base
				conf.Hidden = layouts[i]
				conf.Verbose = false
				if base.RandSeed > 0 {
					conf.RandSeed = base.RandSeed + int64(run)
				}
				net, err := New(conf)
				if err != nil {
					return err
				}
				net.Out = io.Discard
				if err = net.Train(ctx, train, nil); err != nil {
					return errors.Wrapf(err, "layout %v", layouts[i])
				}
				score, err := net.Score(test.Matrix(), test.Labels)
				if err != nil {
					return errors.Wrapf(err, "layout %v", layouts[i])
				}
				results[i].Scores[run] = score
				nets[i][run] = net
				if opts.Log != nil {
					logMu.Lock()
					defer logMu.Unlock()
					fmt.Fprintf(opts.Log, "layout %v run %d: accuracy %.4f in %d iterations\n", layouts[i], run, score, net.Iterations)
				}
				return nil
			})
		}
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i := range results {
		for _, score := range results[i].Scores {
			results[i].Accuracy.Add(score)
		}
		results[i].Net = nets[i][opts.Runs-1]
	}
	return results, nil
}
