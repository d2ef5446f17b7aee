package datasets

import (
	"context"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/stats"
	"github.com/pkg/errors"
)

// Names of the models which can be trained.
var Models = []string{"xor", "wine"}

// Fraction of the wine samples held out for testing and the seed used for the split.
const (
	WineTestSize = 0.2
	WineSeed     = 42
)

// Config returns the classifier settings used for the named model.
func Config(model string) (nnet.Config, error) {
	c := nnet.DefaultConfig()
	c.Tol = 1e-6
	c.Verbose = true
	switch model {
	case "xor":
		c.Hidden = []int{4}
		c.Activation = "relu"
		c.MaxIter = 10000
	case "wine":
		c.Hidden = []int{10}
		c.Activation = "logistic"
		c.MaxIter = 1000
	default:
		return c, errors.Errorf("unknown model %q", model)
	}
	return c, nil
}

// Load returns the train and test sets for the named model. The XOR table is used for both,
// the wine data is split with WineTestSize and WineSeed and optionally standardised.
func Load(ctx context.Context, model string, opts WineOptions, scale bool) (train, test nnet.Data, err error) {
	switch model {
	case "xor":
		d := XOR()
		return d, d, nil
	case "wine":
		var d nnet.Data
		if d, err = Wine(ctx, opts); err != nil {
			return
		}
		if train, test, err = nnet.TrainTestSplit(d, WineTestSize, WineSeed); err != nil {
			return
		}
		if scale {
			train, test, _, err = Scale(train, test)
		}
		return
	}
	return train, test, errors.Errorf("unknown model %q", model)
}

// Scale standardises both sets with the column statistics of train.
func Scale(train, test nnet.Data) (nnet.Data, nnet.Data, *stats.Scaler, error) {
	s, err := FitScaler(train)
	if err != nil {
		return train, test, nil, err
	}
	if train, err = ScaleWith(s, train); err != nil {
		return train, test, s, err
	}
	test, err = ScaleWith(s, test)
	return train, test, s, err
}

// FitScaler computes the column statistics of d.
func FitScaler(d nnet.Data) (*stats.Scaler, error) {
	s := &stats.Scaler{}
	if err := s.Fit(d.Matrix()); err != nil {
		return nil, err
	}
	return s, nil
}

// ScaleWith returns a copy of d standardised with a fitted scaler.
func ScaleWith(s *stats.Scaler, d nnet.Data) (nnet.Data, error) {
	x, err := s.Transform(d.Matrix())
	if err != nil {
		return d, err
	}
	d.Inputs = x.RawMatrix().Data
	return d, nil
}
