package nnet

import (
	"fmt"
	"math/rand"

	"github.com/felipe6san/Fatec-5Sem/num"
	"gonum.org/v1/gonum/mat"
)

// Layer interface type represents one layer of the neural net.
type Layer interface {
	Init(nin int, prev Layer) Layer
	OutShape(nin int) int
	Fprop(in *mat.Dense) *mat.Dense
	Bprop(grad *mat.Dense) *mat.Dense
	ToString() string
}

// ParamLayer is a layer with weight and bias parameters
type ParamLayer interface {
	Layer
	InitParams(bound float64, rng *rand.Rand)
	Params() (W *mat.Dense, B *mat.VecDense)
	ParamGrads() (dW *mat.Dense, dB *mat.VecDense)
	SetParams(W *mat.Dense, B *mat.VecDense)
}

// OutputLayer is the final layer in the stack
type OutputLayer interface {
	Layer
	Name() string
	Loss(yTrue, yPred *mat.Dense) float64
}

// linear fully connected layer, weights are nin x nout.
type linear struct {
	Nout int
	layerBase
	paramBase
	first bool
}

func newLinear(nout int) *linear { return &linear{Nout: nout} }

func (l *linear) ToString() string { return fmt.Sprintf("linear {Nout:%d}", l.Nout) }

func (l *linear) OutShape(nin int) int { return l.Nout }

func (l *linear) Init(nin int, prev Layer) Layer {
	l.paramBase = newParams(nin, l.Nout)
	l.first = prev == nil
	return l
}

func (l *linear) Fprop(in *mat.Dense) *mat.Dense {
	l.src = in
	rows, _ := in.Dims()
	l.dst = mat.NewDense(rows, l.Nout, nil)
	l.dst.Mul(in, l.w)
	b := l.b.RawVector().Data
	for i := 0; i < rows; i++ {
		row := l.dst.RawRowView(i)
		for j := range row {
			row[j] += b[j]
		}
	}
	return l.dst
}

// Bprop sets the weight and bias gradients summed over the batch. The input gradient is not
// needed for the first layer so nil is returned.
func (l *linear) Bprop(grad *mat.Dense) *mat.Dense {
	l.dw.Mul(l.src.T(), grad)
	rows, _ := grad.Dims()
	db := l.db.RawVector().Data
	for j := range db {
		db[j] = 0
	}
	for i := 0; i < rows; i++ {
		for j, v := range grad.RawRowView(i) {
			db[j] += v
		}
	}
	if l.first {
		return nil
	}
	_, nin := l.src.Dims()
	l.dsrc = mat.NewDense(rows, nin, nil)
	l.dsrc.Mul(grad, l.w.T())
	return l.dsrc
}

// activation layer for hidden units
type activation struct {
	layerBase
	fn num.Activation
}

func newActivation(name string) (*activation, error) {
	fn, err := num.GetActivation(name)
	if err != nil {
		return nil, err
	}
	return &activation{fn: fn}, nil
}

func (l *activation) ToString() string { return fmt.Sprintf("activation {Atype:%s}", l.fn.Name) }

func (l *activation) Init(nin int, prev Layer) Layer { return l }

func (l *activation) Fprop(in *mat.Dense) *mat.Dense {
	l.dst = mat.DenseCopyOf(in)
	l.fn.Func(l.dst)
	return l.dst
}

func (l *activation) Bprop(grad *mat.Dense) *mat.Dense {
	l.dsrc = mat.DenseCopyOf(grad)
	l.fn.Deriv(l.dst, l.dsrc)
	return l.dsrc
}

// output layer with logistic activation for binary problems or softmax otherwise. Paired with
// the log loss the gradient at the output is yPred - yTrue so Bprop passes it through unchanged.
type output struct {
	layerBase
	softmax bool
}

func newOutput(nout int) *output { return &output{softmax: nout > 1} }

func (l *output) Name() string {
	if l.softmax {
		return "softmax"
	}
	return "logistic"
}

func (l *output) ToString() string { return "output {Atype:" + l.Name() + "}" }

func (l *output) Init(nin int, prev Layer) Layer { return l }

func (l *output) Fprop(in *mat.Dense) *mat.Dense {
	l.dst = mat.DenseCopyOf(in)
	if l.softmax {
		num.Softmax(l.dst)
	} else {
		num.Sigmoid(l.dst)
	}
	return l.dst
}

func (l *output) Bprop(grad *mat.Dense) *mat.Dense {
	l.dsrc = grad
	return l.dsrc
}

func (l *output) Loss(yTrue, yPred *mat.Dense) float64 {
	if l.softmax {
		return num.LogLoss(yTrue, yPred)
	}
	return num.BinaryLogLoss(yTrue, yPred)
}

// base layer type
type layerBase struct {
	src  *mat.Dense
	dst  *mat.Dense
	dsrc *mat.Dense
}

func (l layerBase) OutShape(nin int) int { return nin }

// weight and bias parameters
type paramBase struct {
	w, dw *mat.Dense
	b, db *mat.VecDense
}

func newParams(nin, nout int) paramBase {
	return paramBase{
		w:  mat.NewDense(nin, nout, nil),
		b:  mat.NewVecDense(nout, nil),
		dw: mat.NewDense(nin, nout, nil),
		db: mat.NewVecDense(nout, nil),
	}
}

func (p paramBase) Params() (W *mat.Dense, B *mat.VecDense) {
	return p.w, p.b
}

func (p paramBase) ParamGrads() (dW *mat.Dense, dB *mat.VecDense) {
	return p.dw, p.db
}

// Weights and bias are drawn uniformly from [-bound, bound].
func (p paramBase) InitParams(bound float64, rng *rand.Rand) {
	for _, data := range [][]float64{p.w.RawMatrix().Data, p.b.RawVector().Data} {
		for i := range data {
			data[i] = (2*rng.Float64() - 1) * bound
		}
	}
}

func (p paramBase) SetParams(W *mat.Dense, B *mat.VecDense) {
	p.w.Copy(W)
	p.b.CopyVec(B)
}

// flat views on the parameter and gradient storage, in the same order
func (p paramBase) values() [][]float64 {
	return [][]float64{p.w.RawMatrix().Data, p.b.RawVector().Data}
}

func (p paramBase) grads() [][]float64 {
	return [][]float64{p.dw.RawMatrix().Data, p.db.RawVector().Data}
}
