package nnet

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/felipe6san/Fatec-5Sem/num"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Training statistics for one epoch. Valid is the validation accuracy, or -1 without early stopping.
type Stats struct {
	Epoch        int           `json:"epoch"`
	Loss         float64       `json:"loss"`
	Valid        float64       `json:"valid"`
	NoImprove    int           `json:"no_improve"`
	LearningRate float64       `json:"learning_rate"`
	Elapsed      time.Duration `json:"elapsed"`
}

func (s Stats) Format() []string {
	str := []string{fmt.Sprintf("%.8f", s.Loss)}
	if s.Valid >= 0 {
		str = append(str, fmt.Sprintf("%6.2f%%", s.Valid*100))
	}
	return str
}

// Tester interface is called at the end of each epoch. Test returns true if training should stop.
type Tester interface {
	Test(net *Network, s Stats) bool
}

// TesterFunc adapts a function to the Tester interface.
type TesterFunc func(net *Network, s Stats) bool

func (f TesterFunc) Test(net *Network, s Stats) bool { return f(net, s) }

type testLogger struct {
	out io.Writer
}

// Create a new tester which logs the loss for each epoch, as printed by a verbose MLPClassifier.
func NewTestLogger(out io.Writer) Tester {
	return testLogger{out: out}
}

func (t testLogger) Test(net *Network, s Stats) bool {
	fmt.Fprintf(t.out, "Iteration %d, loss = %.8f\n", s.Epoch, s.Loss)
	if s.Valid >= 0 {
		fmt.Fprintf(t.out, "Validation score: %f\n", s.Valid)
	}
	return false
}

// Fit trains the network on the rows of x with class labels y.
func (n *Network) Fit(x mat.Matrix, y []int) error {
	if x == nil {
		return errors.New("no input data")
	}
	rows, cols := x.Dims()
	if rows != len(y) {
		return errors.Errorf("got %d rows but %d labels", rows, len(y))
	}
	d := Data{Nfeat: cols, Labels: y, Inputs: make([]float64, 0, rows*cols)}
	for i := 0; i < rows; i++ {
		d.Inputs = append(d.Inputs, mat.Row(nil, i, x)...)
	}
	return n.Train(context.Background(), d, nil)
}

// Train the network from scratch on the given data set. The weights are reinitialised, then
// mini batch updates are applied until the loss stops improving, MaxIter epochs have run, the
// tester asks to stop or the context is cancelled.
func (n *Network) Train(ctx context.Context, data Data, test Tester) error {
	if err := data.Validate(); err != nil {
		return err
	}
	n.Classes = data.Classes()
	if len(n.Classes) < 2 {
		return errors.Errorf("need samples of at least 2 classes, got %v", n.Classes)
	}
	n.classIndex = make(map[int]int)
	for i, c := range n.Classes {
		n.classIndex[c] = i
	}
	labels, err := n.encode(data.Labels)
	if err != nil {
		return err
	}
	train := data
	train.Labels = labels
	n.rng = NewRand(n.RandSeed)

	var valid Data
	if n.EarlyStopping {
		nValid := int(math.Ceil(n.ValidationFraction * float64(train.Len())))
		if nValid < 1 || nValid >= train.Len() {
			return errors.Errorf("validation fraction %g leaves no training samples from %d", n.ValidationFraction, train.Len())
		}
		perm := n.rng.Perm(train.Len())
		train, valid = train.Subset(perm[nValid:]), train.Subset(perm[:nValid])
	}

	n.Features = data.Nfeat
	n.Outputs = len(n.Classes)
	if n.Outputs == 2 {
		n.Outputs = 1
	}
	if err = n.build(n.Features, n.Outputs); err != nil {
		return err
	}
	n.InitWeights(n.rng)
	n.Loss, n.BestLoss = 0, math.Inf(1)
	n.BestValidationScore = math.Inf(-1)
	n.LossCurve, n.ValidationScores = nil, nil
	n.Samples, n.Iterations = 0, 0
	n.Converged = false

	batchSize := n.BatchSize
	if batchSize == 0 {
		batchSize = min(200, train.Len())
	}
	dset := NewDataset(train, batchSize, n.rng)
	values, grads := n.params()
	n.optimizer = newOptimizer(n.Config, values)

	logOut := io.Discard
	var logger Tester
	if n.Verbose {
		logOut = n.out()
		logger = NewTestLogger(logOut)
	}
	start := time.Now()
	noImprove := 0
	var best [][]float64
	for epoch := 1; epoch <= n.MaxIter; epoch++ {
		if err = ctx.Err(); err != nil {
			return errors.Wrapf(err, "training stopped at epoch %d", epoch)
		}
		loss := n.TrainEpoch(dset, values, grads)
		n.Iterations++
		n.Samples += dset.Samples
		n.Loss = loss
		n.LossCurve = append(n.LossCurve, loss)
		s := Stats{Epoch: epoch, Loss: loss, Valid: -1}

		if n.EarlyStopping {
			score, err := n.Score(valid.Matrix(), n.decode(valid.Labels))
			if err != nil {
				return err
			}
			s.Valid = score
			n.ValidationScores = append(n.ValidationScores, score)
			if score < n.BestValidationScore+n.Tol {
				noImprove++
			} else {
				noImprove = 0
			}
			if score > n.BestValidationScore {
				n.BestValidationScore = score
				best = n.snapshot()
			}
		} else {
			if loss > n.BestLoss-n.Tol {
				noImprove++
			} else {
				noImprove = 0
			}
			if loss < n.BestLoss {
				n.BestLoss = loss
			}
		}
		n.optimizer.IterationEnds(n.Samples)
		s.NoImprove = noImprove
		s.LearningRate = n.optimizer.LearningRate()
		s.Elapsed = time.Since(start)

		if logger != nil {
			logger.Test(n, s)
		}
		if test != nil && test.Test(n, s) {
			break
		}
		if noImprove > n.NIterNoChange {
			msg := fmt.Sprintf("Training loss did not improve more than tol=%f for %d consecutive epochs.", n.Tol, n.NIterNoChange)
			if n.EarlyStopping {
				msg = fmt.Sprintf("Validation score did not improve more than tol=%f for %d consecutive epochs.", n.Tol, n.NIterNoChange)
			}
			if n.optimizer.TriggerStopping(msg, logOut) {
				n.Converged = true
				break
			}
			noImprove = 0
		}
	}
	if !n.Converged && n.Iterations == n.MaxIter {
		fmt.Fprintf(n.out(), "ConvergenceWarning: Stochastic Optimizer: Maximum iterations (%d) reached and the optimization hasn't converged yet.\n", n.MaxIter)
	}
	if best != nil {
		n.restore(best)
	}
	return nil
}

// Perform one training epoch on dataset, returns the mean loss over the samples.
func (n *Network) TrainEpoch(dset *Dataset, values, grads [][]float64) float64 {
	if n.Shuffle {
		dset.Shuffle()
	}
	dset.Rewind()
	total := 0.0
	for batch := 0; batch < dset.Batches; batch++ {
		x, labels := dset.NextBatch()
		rows, _ := x.Dims()
		total += n.backprop(x, num.Onehot(labels, n.Outputs)) * float64(rows)
		n.optimizer.Update(values, grads)
	}
	return total / float64(dset.Samples)
}

// Compute the loss for one batch including the L2 penalty and set the parameter gradients.
func (n *Network) backprop(x, yTrue *mat.Dense) float64 {
	yPred := n.Fprop(x)
	rows, _ := x.Dims()
	batch := float64(rows)
	loss := n.OutLayer().Loss(yTrue, yPred)
	layers := n.paramLayers()
	sumSq := 0.0
	for _, l := range layers {
		W, _ := l.Params()
		sumSq += num.SumSquares(W)
	}
	loss += 0.5 * n.Alpha * sumSq / batch

	// get difference at output and back propagate
	grad := mat.NewDense(rows, n.Outputs, nil)
	grad.Sub(yPred, yTrue)
	for i := len(n.Layers) - 1; i >= 0 && grad != nil; i-- {
		grad = n.Layers[i].Bprop(grad)
	}
	for _, l := range layers {
		W, _ := l.Params()
		dW, dB := l.ParamGrads()
		dW.Add(dW, scaled(n.Alpha, W))
		dW.Scale(1/batch, dW)
		dB.ScaleVec(1/batch, dB)
	}
	return loss
}

// map output indexes back to labels
func (n *Network) decode(index []int) []int {
	res := make([]int, len(index))
	for i, ix := range index {
		res[i] = n.Classes[ix]
	}
	return res
}

func scaled(alpha float64, m *mat.Dense) *mat.Dense {
	var res mat.Dense
	res.Scale(alpha, m)
	return &res
}
