package nnet

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/felipe6san/Fatec-5Sem/num"
	"gonum.org/v1/gonum/mat"
)

const (
	batch = 5
	nIn   = 3
	eps   = 1e-6
)

func randMatrix(rng *rand.Rand, rows, cols int, min, max float64) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = min + rng.Float64()*(max-min)
	}
	return m
}

func setupNetwork(t *testing.T, act string, hidden []int, nout int) *Network {
	t.Helper()
	conf := DefaultConfig()
	conf.Hidden = hidden
	conf.Activation = act
	conf.Alpha = 0.01
	net, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	net.Features, net.Outputs = nIn, nout
	if err = net.build(nIn, nout); err != nil {
		t.Fatal(err)
	}
	net.InitWeights(rand.New(rand.NewSource(42)))
	return net
}

// compare the backprop gradients with central differences of the loss
func TestGradients(t *testing.T) {
	tests := []struct {
		act    string
		hidden []int
		nout   int
		labels []int
	}{
		{"logistic", []int{4}, 1, []int{0, 1, 1, 0, 1}},
		{"tanh", []int{4, 3}, 3, []int{0, 2, 1, 2, 0}},
		{"identity", []int{2}, 2, []int{1, 0, 0, 1, 1}},
	}
	rng := rand.New(rand.NewSource(1))
	for _, test := range tests {
		net := setupNetwork(t, test.act, test.hidden, test.nout)
		x := randMatrix(rng, batch, nIn, -1, 1)
		y := num.Onehot(test.labels, test.nout)
		net.backprop(x, y)
		values, grads := net.params()
		expect := make([][]float64, len(grads))
		for i, g := range grads {
			expect[i] = append([]float64{}, g...)
		}
		maxDiff := 0.0
		for i, v := range values {
			for j := range v {
				orig := v[j]
				v[j] = orig + eps
				lossPlus := net.backprop(x, y)
				v[j] = orig - eps
				lossMinus := net.backprop(x, y)
				v[j] = orig
				diff := math.Abs((lossPlus-lossMinus)/(2*eps) - expect[i][j])
				maxDiff = math.Max(maxDiff, diff)
			}
		}
		t.Logf("%s %v: max gradient difference %.3g", test.act, test.hidden, maxDiff)
		if maxDiff > 1e-6 {
			t.Errorf("%s %v: gradient mismatch %g", test.act, test.hidden, maxDiff)
		}
	}
}

func xorData() Data {
	return Data{Nfeat: 2, Inputs: []float64{0, 0, 0, 1, 1, 0, 1, 1}, Labels: []int{0, 1, 1, 0}}
}

func TestXOR(t *testing.T) {
	data := xorData()
	solved := false
	for seed := int64(1); seed <= 5 && !solved; seed++ {
		conf := DefaultConfig()
		conf.Hidden = []int{16}
		conf.Activation = "tanh"
		conf.LearningRateInit = 0.05
		conf.MaxIter = 2000
		conf.Tol = 1e-6
		conf.RandSeed = seed
		net, err := New(conf)
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		net.Out = &out
		if err = net.Fit(data.Matrix(), data.Labels); err != nil {
			t.Fatal(err)
		}
		pred, err := net.Predict(data.Matrix())
		if err != nil {
			t.Fatal(err)
		}
		t.Logf("seed %d: %d iterations loss=%.6f pred=%v", seed, net.Iterations, net.Loss, pred)
		solved = reflect.DeepEqual(pred, data.Labels)
	}
	if !solved {
		t.Error("failed to learn XOR")
	}
}

func TestAttributes(t *testing.T) {
	data := xorData()
	conf := DefaultConfig()
	conf.Hidden = []int{4}
	conf.MaxIter = 30
	conf.NIterNoChange = 100
	conf.RandSeed = 3
	net, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	net.Out = &out
	if err = net.Fit(data.Matrix(), data.Labels); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(net.Classes, []int{0, 1}) {
		t.Error("classes:", net.Classes)
	}
	if net.Outputs != 1 || net.OutActivation != "logistic" || net.NumLayers() != 3 || net.Features != 2 {
		t.Errorf("outputs=%d activation=%s layers=%d features=%d", net.Outputs, net.OutActivation, net.NumLayers(), net.Features)
	}
	if net.Iterations != 30 || net.Samples != net.Iterations*4 || len(net.LossCurve) != 30 {
		t.Errorf("iterations=%d samples=%d curve=%d", net.Iterations, net.Samples, len(net.LossCurve))
	}
	if net.Loss != net.LossCurve[29] || net.Converged {
		t.Error("loss should be the last epoch and not converged")
	}
	if !strings.Contains(out.String(), "ConvergenceWarning") {
		t.Error("expected convergence warning, got", out.String())
	}
	W := net.Coefs()
	B := net.Intercepts()
	if len(W) != 2 || len(B) != 2 {
		t.Fatal("expected 2 weight layers")
	}
	if r, c := W[0].Dims(); r != 2 || c != 4 {
		t.Error("layer 0 weights", r, c)
	}
	if r, c := W[1].Dims(); r != 4 || c != 1 {
		t.Error("layer 1 weights", r, c)
	}
	prob, err := net.PredictProba(data.Matrix())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if sum := prob.At(i, 0) + prob.At(i, 1); math.Abs(sum-1) > 1e-12 {
			t.Error("probabilities should sum to 1, got", sum)
		}
	}
	t.Log(net)
}

// three well separated clusters
func blobs(rng *rand.Rand, n int) Data {
	centres := [][]float64{{0, 5}, {5, 0}, {-5, -5}}
	var d Data
	d.Nfeat = 2
	for i := 0; i < n; i++ {
		c := i % 3
		d.Inputs = append(d.Inputs, centres[c][0]+rng.NormFloat64(), centres[c][1]+rng.NormFloat64())
		d.Labels = append(d.Labels, c*10+3)
	}
	return d
}

func TestMulticlass(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	train, test := blobs(rng, 150), blobs(rng, 60)
	conf := DefaultConfig()
	conf.Hidden = []int{10}
	conf.LearningRateInit = 0.01
	conf.RandSeed = 1
	net, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	net.Out = &out
	if err = net.Train(context.Background(), train, nil); err != nil {
		t.Fatal(err)
	}
	if net.Outputs != 3 || net.OutActivation != "softmax" || !reflect.DeepEqual(net.Classes, []int{3, 13, 23}) {
		t.Errorf("outputs=%d activation=%s classes=%v", net.Outputs, net.OutActivation, net.Classes)
	}
	acc, err := net.Score(test.Matrix(), test.Labels)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("accuracy %.4f after %d iterations", acc, net.Iterations)
	if acc < 0.95 {
		t.Error("accuracy too low:", acc)
	}
	prob, _ := net.PredictProba(test.Matrix())
	if _, c := prob.Dims(); c != 3 {
		t.Error("expected 3 probability columns, got", c)
	}
}

func TestSolvers(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	data := blobs(rng, 90)
	for _, lr := range []string{"constant", "invscaling", "adaptive"} {
		conf := DefaultConfig()
		conf.Solver = "sgd"
		conf.LearningRate = lr
		conf.LearningRateInit = 0.01
		conf.Hidden = []int{8}
		conf.MaxIter = 100
		conf.RandSeed = 2
		net, err := New(conf)
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		net.Out = &out
		if err = net.Train(context.Background(), data, nil); err != nil {
			t.Fatal(err)
		}
		t.Logf("sgd %s: loss %.4f after %d iterations", lr, net.Loss, net.Iterations)
		if net.Loss >= net.LossCurve[0] {
			t.Errorf("sgd %s: loss did not decrease: %v", lr, net.LossCurve)
		}
	}
}

func TestEarlyStopping(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	data := blobs(rng, 100)
	conf := DefaultConfig()
	conf.Hidden = []int{6}
	conf.EarlyStopping = true
	conf.NIterNoChange = 3
	conf.LearningRateInit = 0.05
	conf.MaxIter = 500
	conf.RandSeed = 5
	conf.Verbose = true
	net, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	net.Out = &out
	if err = net.Train(context.Background(), data, nil); err != nil {
		t.Fatal(err)
	}
	if len(net.ValidationScores) != net.Iterations {
		t.Errorf("got %d validation scores for %d iterations", len(net.ValidationScores), net.Iterations)
	}
	if !net.Converged || net.Iterations >= 500 {
		t.Errorf("expected early stop, converged=%v iterations=%d", net.Converged, net.Iterations)
	}
	if !strings.Contains(out.String(), "Validation score:") || !strings.Contains(out.String(), "Validation score did not improve") {
		t.Error("missing log output:", out.String())
	}
	// 90 training samples per epoch after the validation split
	if net.Samples != net.Iterations*90 {
		t.Errorf("samples=%d iterations=%d", net.Samples, net.Iterations)
	}
}

func TestTesterStop(t *testing.T) {
	conf := DefaultConfig()
	conf.Hidden = []int{4}
	conf.RandSeed = 1
	net, _ := New(conf)
	net.Out = &bytes.Buffer{}
	var epochs []int
	stop := TesterFunc(func(net *Network, s Stats) bool {
		epochs = append(epochs, s.Epoch)
		return s.Epoch == 5
	})
	if err := net.Train(context.Background(), xorData(), stop); err != nil {
		t.Fatal(err)
	}
	if net.Iterations != 5 || !reflect.DeepEqual(epochs, []int{1, 2, 3, 4, 5}) {
		t.Error("got", net.Iterations, epochs)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := net.Train(ctx, xorData(), nil); err == nil {
		t.Error("expected cancelled error")
	}
}

func TestErrors(t *testing.T) {
	conf := DefaultConfig()
	net, _ := New(conf)
	x := mat.NewDense(1, 2, []float64{0, 1})
	if _, err := net.Predict(x); err != ErrNotFitted {
		t.Error("expected not fitted error, got", err)
	}
	net.Out = &bytes.Buffer{}
	if err := net.Fit(x, []int{1}); err == nil {
		t.Error("expected error for a single class")
	}
	if err := net.Fit(x, []int{1, 0}); err == nil {
		t.Error("expected error for label count")
	}
	net.MaxIter = 2
	data := xorData()
	if err := net.Fit(data.Matrix(), data.Labels); err != nil {
		t.Fatal(err)
	}
	if _, err := net.Predict(mat.NewDense(1, 3, nil)); err == nil {
		t.Error("expected feature count error")
	}
	conf.Hidden = []int{0}
	if _, err := New(conf); err == nil {
		t.Error("expected invalid config error")
	}
}

func TestDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := blobs(rng, 60)
	var curves [][]float64
	for i := 0; i < 2; i++ {
		conf := DefaultConfig()
		conf.Hidden = []int{5}
		conf.MaxIter = 20
		conf.RandSeed = 99
		net, _ := New(conf)
		net.Out = &bytes.Buffer{}
		if err := net.Train(context.Background(), data, nil); err != nil {
			t.Fatal(err)
		}
		curves = append(curves, net.LossCurve)
	}
	if !reflect.DeepEqual(curves[0], curves[1]) {
		t.Error("same seed should give the same loss curve")
	}
}
