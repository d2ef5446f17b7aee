package nnet

import (
	"flag"
	"fmt"
)

// command line flag names for the config fields which can be overridden
var configFlags = []struct {
	name, field, usage string
}{
	{"hidden", "Hidden", "hidden layer sizes, e.g. 10 or 10,10"},
	{"activation", "Activation", "hidden layer activation: identity, logistic, tanh or relu"},
	{"solver", "Solver", "solver: adam or sgd"},
	{"eta", "LearningRateInit", "initial learning rate"},
	{"lr", "LearningRate", "learning rate schedule for sgd: constant, invscaling or adaptive"},
	{"alpha", "Alpha", "L2 penalty"},
	{"batch", "BatchSize", "train batch size, 0 for min(200, samples)"},
	{"epochs", "MaxIter", "max epochs"},
	{"tol", "Tol", "tolerance for the stopping test"},
	{"seed", "RandSeed", "random number seed, 0 to seed from the clock"},
	{"early", "EarlyStopping", "stop when the validation score does not improve"},
	{"verbose", "Verbose", "print the loss for each epoch"},
}

// AddFlags registers a flag for each overridable config field with the current value as the
// default. Call ApplyFlags after parsing to copy the flags which were set.
func (c Config) AddFlags(fs *flag.FlagSet) {
	for _, f := range configFlags {
		val := c.Get(f.field)
		switch v := val.(type) {
		case []int:
			fs.String(f.name, FormatHidden(v), f.usage)
		case bool:
			fs.Bool(f.name, v, f.usage)
		default:
			fs.String(f.name, fmt.Sprint(v), f.usage)
		}
	}
}

// ApplyFlags returns a copy of the config with the fields for each flag set on the command line.
func (c Config) ApplyFlags(fs *flag.FlagSet) (Config, error) {
	fields := make(map[string]string)
	for _, f := range configFlags {
		fields[f.name] = f.field
	}
	var err error
	fs.Visit(func(f *flag.Flag) {
		if key, ok := fields[f.Name]; ok && err == nil {
			c, err = c.SetString(key, f.Value.String())
		}
	})
	return c, err
}
