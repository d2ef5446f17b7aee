// Package num contains the numeric kernels used by the network: activation functions, softmax,
// log loss and label encoding. Arrays are gonum dense matrices with one row per sample.
package num

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Probabilities are clipped to [LossEpsilon, 1-LossEpsilon] before taking logs.
const LossEpsilon = 1e-10

// Activation holds an element wise function and its derivative.
// Deriv is expressed in terms of the activated output z and scales grad in place.
type Activation struct {
	Name  string
	Func  func(x *mat.Dense)
	Deriv func(z, grad *mat.Dense)
}

var activations = map[string]Activation{
	"identity": {Name: "identity", Func: func(x *mat.Dense) {}, Deriv: func(z, grad *mat.Dense) {}},
	"logistic": {Name: "logistic", Func: Sigmoid, Deriv: SigmoidD},
	"tanh":     {Name: "tanh", Func: Tanh, Deriv: TanhD},
	"relu":     {Name: "relu", Func: Relu, Deriv: ReluD},
}

// ActivationNames lists the registered activation functions in sorted order.
func ActivationNames() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetActivation looks up an activation by name, sigmoid is accepted as an alias for logistic.
func GetActivation(name string) (Activation, error) {
	if name == "sigmoid" {
		name = "logistic"
	}
	a, ok := activations[name]
	if !ok {
		return Activation{}, errors.Errorf("activation type %q invalid", name)
	}
	return a, nil
}

// Sigmoid applies the logistic function in place.
func Sigmoid(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, x)
}

// SigmoidD multiplies grad by z*(1-z).
func SigmoidD(z, grad *mat.Dense) {
	checkShape("SigmoidD", z, grad)
	grad.Apply(func(i, j int, g float64) float64 {
		v := z.At(i, j)
		return g * v * (1 - v)
	}, grad)
}

// Tanh applies the hyperbolic tangent in place.
func Tanh(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, x)
}

// TanhD multiplies grad by 1-z².
func TanhD(z, grad *mat.Dense) {
	checkShape("TanhD", z, grad)
	grad.Apply(func(i, j int, g float64) float64 {
		v := z.At(i, j)
		return g * (1 - v*v)
	}, grad)
}

// Relu applies max(0, x) in place.
func Relu(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, x)
}

// ReluD zeroes grad wherever the output was not positive.
func ReluD(z, grad *mat.Dense) {
	checkShape("ReluD", z, grad)
	grad.Apply(func(i, j int, g float64) float64 {
		if z.At(i, j) <= 0 {
			return 0
		}
		return g
	}, grad)
}

// Softmax normalises each row in place, subtracting the row max first for stability.
func Softmax(x *mat.Dense) {
	rows, cols := x.Dims()
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		max := math.Inf(-1)
		for _, v := range row {
			max = math.Max(max, v)
		}
		sum := 0.0
		for j := 0; j < cols; j++ {
			row[j] = math.Exp(row[j] - max)
			sum += row[j]
		}
		for j := range row {
			row[j] /= sum
		}
	}
}

// LogLoss is the cross entropy -sum(y*log p) averaged over rows.
func LogLoss(yTrue, yProb mat.Matrix) float64 {
	checkShape("LogLoss", yTrue, yProb)
	rows, cols := yTrue.Dims()
	total := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if y := yTrue.At(i, j); y != 0 {
				total -= y * math.Log(clip(yProb.At(i, j)))
			}
		}
	}
	return total / float64(rows)
}

// BinaryLogLoss is the cross entropy for a single logistic output column averaged over rows.
func BinaryLogLoss(yTrue, yProb mat.Matrix) float64 {
	checkShape("BinaryLogLoss", yTrue, yProb)
	rows, cols := yTrue.Dims()
	total := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			y, p := yTrue.At(i, j), clip(yProb.At(i, j))
			total -= y*math.Log(p) + (1-y)*math.Log(1-p)
		}
	}
	return total / float64(rows)
}

// Onehot encodes class indexes as rows with a single 1. With n == 1 it returns a single 0/1 column.
func Onehot(index []int, n int) *mat.Dense {
	if n == 1 {
		m := mat.NewDense(len(index), 1, nil)
		for i, ix := range index {
			if ix > 0 {
				m.Set(i, 0, 1)
			}
		}
		return m
	}
	m := mat.NewDense(len(index), n, nil)
	for i, ix := range index {
		if ix < 0 || ix >= n {
			panic("Onehot: index out of range")
		}
		m.Set(i, ix, 1)
	}
	return m
}

// Argmax returns the column index of the largest value in each row.
// A single column is treated as a probability and thresholded at 0.5.
func Argmax(m mat.Matrix) []int {
	rows, cols := m.Dims()
	res := make([]int, rows)
	for i := range res {
		if cols == 1 {
			if m.At(i, 0) > 0.5 {
				res[i] = 1
			}
			continue
		}
		best := m.At(i, 0)
		for j := 1; j < cols; j++ {
			if v := m.At(i, j); v > best {
				best, res[i] = v, j
			}
		}
	}
	return res
}

// SumSquares returns the sum of the squared elements.
func SumSquares(m mat.Matrix) float64 {
	rows, cols := m.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			sum += v * v
		}
	}
	return sum
}

func clip(p float64) float64 {
	return math.Min(math.Max(p, LossEpsilon), 1-LossEpsilon)
}

func checkShape(name string, x, y mat.Matrix) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr || xc != yc {
		panic(name + ": arrays must be same shape")
	}
}
