// Package nnet contains routines for constructing, training and testing multi-layer perceptron
// classifiers.
package nnet

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/felipe6san/Fatec-5Sem/num"
	"github.com/felipe6san/Fatec-5Sem/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var ErrNotFitted = errors.New("network has not been fitted")

// Network type represents a multilayer perceptron classifier and the attributes learned by Fit.
type Network struct {
	Config
	Layers              []Layer
	Classes             []int
	Loss                float64
	BestLoss            float64
	LossCurve           []float64
	ValidationScores    []float64
	BestValidationScore float64
	Samples             int
	Features            int
	Iterations          int
	Outputs             int
	OutActivation       string
	Converged           bool
	// Out receives progress and warning messages, defaults to stdout.
	Out        io.Writer
	classIndex map[int]int
	optimizer  Optimizer
	rng        *rand.Rand
}

// New function creates a new unfitted network with the given configuration.
func New(conf Config) (*Network, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	conf.Hidden = append([]int{}, conf.Hidden...)
	return &Network{Config: conf, Out: os.Stdout}, nil
}

// build the layer stack for nin input features and nout output units
func (n *Network) build(nin, nout int) error {
	n.Layers = nil
	var prev Layer
	add := func(l Layer) {
		l.Init(nin, prev)
		nin = l.OutShape(nin)
		n.Layers = append(n.Layers, l)
		prev = l
	}
	for _, size := range n.Hidden {
		add(newLinear(size))
		act, err := newActivation(n.Activation)
		if err != nil {
			return err
		}
		add(act)
	}
	add(newLinear(nout))
	add(newOutput(nout))
	n.OutActivation = n.OutLayer().Name()
	return nil
}

// Initialise network weights with the Glorot uniform scheme. The bound for each layer is
// sqrt(6/(fan_in+fan_out)), or sqrt(2/(fan_in+fan_out)) with logistic hidden units.
func (n *Network) InitWeights(rng *rand.Rand) {
	factor := 6.0
	if a, _ := num.GetActivation(n.Activation); a.Name == "logistic" {
		factor = 2
	}
	for _, l := range n.paramLayers() {
		W, _ := l.Params()
		fanIn, fanOut := W.Dims()
		l.InitParams(math.Sqrt(factor/float64(fanIn+fanOut)), rng)
	}
}

// Accessor for output layer
func (n *Network) OutLayer() OutputLayer {
	return n.Layers[len(n.Layers)-1].(OutputLayer)
}

// Number of layers including the input and output layers.
func (n *Network) NumLayers() int { return len(n.Hidden) + 2 }

// Weight matrices for each layer, fan_in x fan_out.
func (n *Network) Coefs() []*mat.Dense {
	var res []*mat.Dense
	for _, l := range n.paramLayers() {
		W, _ := l.Params()
		res = append(res, W)
	}
	return res
}

// Bias vectors for each layer.
func (n *Network) Intercepts() []*mat.VecDense {
	var res []*mat.VecDense
	for _, l := range n.paramLayers() {
		_, B := l.Params()
		res = append(res, B)
	}
	return res
}

// Feed forward the input to get the output layer activations
func (n *Network) Fprop(input *mat.Dense) *mat.Dense {
	pred := input
	for _, layer := range n.Layers {
		pred = layer.Fprop(pred)
	}
	return pred
}

// Probability of each class for each row of x, columns are in the order of Classes.
func (n *Network) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if err := n.checkInput(x); err != nil {
		return nil, err
	}
	out := n.Fprop(mat.DenseCopyOf(x))
	if n.Outputs > 1 {
		return out, nil
	}
	rows, _ := out.Dims()
	prob := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := out.At(i, 0)
		prob.Set(i, 0, 1-p)
		prob.Set(i, 1, p)
	}
	return prob, nil
}

// Predict class labels for each row of x.
func (n *Network) Predict(x mat.Matrix) ([]int, error) {
	if err := n.checkInput(x); err != nil {
		return nil, err
	}
	index := num.Argmax(n.Fprop(mat.DenseCopyOf(x)))
	labels := make([]int, len(index))
	for i, ix := range index {
		labels[i] = n.Classes[ix]
	}
	return labels, nil
}

// Score returns the mean accuracy of the predictions for x against y.
func (n *Network) Score(x mat.Matrix, y []int) (float64, error) {
	pred, err := n.Predict(x)
	if err != nil {
		return 0, err
	}
	return stats.Accuracy(y, pred)
}

func (n *Network) checkInput(x mat.Matrix) error {
	if len(n.Layers) == 0 {
		return ErrNotFitted
	}
	if x == nil {
		return errors.New("no input data")
	}
	if _, cols := x.Dims(); cols != n.Features {
		return errors.Errorf("input has %d features, network expects %d", cols, n.Features)
	}
	return nil
}

// map labels to output indexes
func (n *Network) encode(labels []int) ([]int, error) {
	res := make([]int, len(labels))
	for i, l := range labels {
		ix, ok := n.classIndex[l]
		if !ok {
			return nil, errors.Errorf("unknown class label %d", l)
		}
		res[i] = ix
	}
	return res, nil
}

func (n *Network) paramLayers() []ParamLayer {
	var res []ParamLayer
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			res = append(res, l)
		}
	}
	return res
}

type flatParams interface {
	values() [][]float64
	grads() [][]float64
}

// flat views on all of the parameters and gradients
func (n *Network) params() (values, grads [][]float64) {
	for _, layer := range n.Layers {
		if l, ok := layer.(flatParams); ok {
			values = append(values, l.values()...)
			grads = append(grads, l.grads()...)
		}
	}
	return
}

// copy of the current parameter values
func (n *Network) snapshot() [][]float64 {
	values, _ := n.params()
	res := make([][]float64, len(values))
	for i, v := range values {
		res[i] = append([]float64{}, v...)
	}
	return res
}

func (n *Network) restore(saved [][]float64) {
	values, _ := n.params()
	for i, v := range values {
		copy(v, saved[i])
	}
}

// Print network description
func (n *Network) String() string {
	var s []string
	nin := n.Features
	for i, layer := range n.Layers {
		s = append(s, fmt.Sprintf("%2d: %-25s %d", i, layer.ToString(), nin))
		nin = layer.OutShape(nin)
	}
	return fmt.Sprintf("%s\n== Network ==\n%s", n.Config, strings.Join(s, "\n"))
}

// Print network weights
func (n *Network) PrintWeights(w io.Writer) {
	for i, l := range n.paramLayers() {
		W, B := l.Params()
		fmt.Fprintf(w, "== Layer %d weights ==\n%s\n%s\n", i, num.Format(W), num.Format(B.T()))
	}
}

func (n *Network) out() io.Writer {
	if n.Out == nil {
		return os.Stdout
	}
	return n.Out
}

// Random number source from seed, or seeded from the clock if seed <= 0
func NewRand(seed int64) *rand.Rand {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
