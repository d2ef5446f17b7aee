package nnet

import (
	"fmt"
	"io"
	"math"
)

// Optimizer updates the network parameters from the gradients of each mini batch.
type Optimizer interface {
	// Update applies one step, params and grads are flat slices in matching order.
	Update(params, grads [][]float64)
	// IterationEnds is called at the end of each epoch with the total samples seen.
	IterationEnds(samples int)
	// TriggerStopping is called when the loss has stopped improving, returns true to stop.
	TriggerStopping(msg string, out io.Writer) bool
	// Current learning rate
	LearningRate() float64
}

func newOptimizer(c Config, params [][]float64) Optimizer {
	if c.Solver == "sgd" {
		return newSGD(c, params)
	}
	return newAdam(c, params)
}

// stochastic gradient descent with momentum
type sgd struct {
	rate       float64
	rateInit   float64
	schedule   string
	momentum   float64
	nesterov   bool
	powerT     float64
	velocities [][]float64
}

func newSGD(c Config, params [][]float64) *sgd {
	return &sgd{
		rate:       c.LearningRateInit,
		rateInit:   c.LearningRateInit,
		schedule:   c.LearningRate,
		momentum:   c.Momentum,
		nesterov:   c.Nesterov,
		powerT:     c.PowerT,
		velocities: zerosLike(params),
	}
}

func (o *sgd) Update(params, grads [][]float64) {
	for i, p := range params {
		v, g := o.velocities[i], grads[i]
		for j := range p {
			v[j] = o.momentum*v[j] - o.rate*g[j]
			if o.nesterov {
				p[j] += o.momentum*v[j] - o.rate*g[j]
			} else {
				p[j] += v[j]
			}
		}
	}
}

func (o *sgd) IterationEnds(samples int) {
	if o.schedule == "invscaling" {
		o.rate = o.rateInit / math.Pow(float64(samples+1), o.powerT)
	}
}

func (o *sgd) TriggerStopping(msg string, out io.Writer) bool {
	if o.schedule != "adaptive" {
		fmt.Fprintln(out, msg+" Stopping.")
		return true
	}
	if o.rate <= 1e-6 {
		fmt.Fprintln(out, msg+" Learning rate too small. Stopping.")
		return true
	}
	o.rate /= 5
	fmt.Fprintf(out, "%s Setting learning rate to %f\n", msg, o.rate)
	return false
}

func (o *sgd) LearningRate() float64 { return o.rate }

// adam optimizer with bias corrected step size
type adam struct {
	rateInit float64
	rate     float64
	beta1    float64
	beta2    float64
	epsilon  float64
	t        int
	ms, vs   [][]float64
}

func newAdam(c Config, params [][]float64) *adam {
	return &adam{
		rateInit: c.LearningRateInit,
		rate:     c.LearningRateInit,
		beta1:    c.Beta1,
		beta2:    c.Beta2,
		epsilon:  c.Epsilon,
		ms:       zerosLike(params),
		vs:       zerosLike(params),
	}
}

func (o *adam) Update(params, grads [][]float64) {
	o.t++
	t := float64(o.t)
	o.rate = o.rateInit * math.Sqrt(1-math.Pow(o.beta2, t)) / (1 - math.Pow(o.beta1, t))
	for i, p := range params {
		m, v, g := o.ms[i], o.vs[i], grads[i]
		for j := range p {
			m[j] = o.beta1*m[j] + (1-o.beta1)*g[j]
			v[j] = o.beta2*v[j] + (1-o.beta2)*g[j]*g[j]
			p[j] -= o.rate * m[j] / (math.Sqrt(v[j]) + o.epsilon)
		}
	}
}

func (o *adam) IterationEnds(samples int) {}

func (o *adam) TriggerStopping(msg string, out io.Writer) bool {
	fmt.Fprintln(out, msg+" Stopping.")
	return true
}

func (o *adam) LearningRate() float64 { return o.rate }

func zerosLike(params [][]float64) [][]float64 {
	res := make([][]float64, len(params))
	for i, p := range params {
		res[i] = make([]float64, len(p))
	}
	return res
}
