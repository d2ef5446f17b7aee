package nnet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/felipe6san/Fatec-5Sem/num"
	"github.com/pkg/errors"
)

// Training configuration settings, field names and defaults follow the scikit-learn MLPClassifier.
type Config struct {
	Hidden             []int
	Activation         string
	Solver             string
	Alpha              float64
	BatchSize          int
	LearningRate       string
	LearningRateInit   float64
	PowerT             float64
	MaxIter            int
	Shuffle            bool
	RandSeed           int64
	Tol                float64
	Verbose            bool
	Momentum           float64
	Nesterov           bool
	EarlyStopping      bool
	ValidationFraction float64
	Beta1              float64
	Beta2              float64
	Epsilon            float64
	NIterNoChange      int
}

// Default settings as used by MLPClassifier()
func DefaultConfig() Config {
	return Config{
		Hidden:             []int{100},
		Activation:         "relu",
		Solver:             "adam",
		Alpha:              1e-4,
		LearningRate:       "constant",
		LearningRateInit:   1e-3,
		PowerT:             0.5,
		MaxIter:            200,
		Shuffle:            true,
		Tol:                1e-4,
		Momentum:           0.9,
		Nesterov:           true,
		ValidationFraction: 0.1,
		Beta1:              0.9,
		Beta2:              0.999,
		Epsilon:            1e-8,
		NIterNoChange:      10,
	}
}

// Check the settings are in range.
func (c Config) Validate() error {
	if len(c.Hidden) == 0 {
		return errors.New("at least one hidden layer is required")
	}
	for _, n := range c.Hidden {
		if n <= 0 {
			return errors.Errorf("hidden layer sizes must be > 0, got %v", c.Hidden)
		}
	}
	if _, err := num.GetActivation(c.Activation); err != nil {
		return err
	}
	switch c.Solver {
	case "adam", "sgd":
	default:
		return errors.Errorf("solver %q is not supported", c.Solver)
	}
	switch c.LearningRate {
	case "constant", "invscaling", "adaptive":
	default:
		return errors.Errorf("learning rate %q is not supported", c.LearningRate)
	}
	switch {
	case c.MaxIter <= 0:
		return errors.Errorf("MaxIter must be > 0, got %d", c.MaxIter)
	case c.Alpha < 0:
		return errors.Errorf("Alpha must be >= 0, got %g", c.Alpha)
	case c.LearningRateInit <= 0:
		return errors.Errorf("LearningRateInit must be > 0, got %g", c.LearningRateInit)
	case c.BatchSize < 0:
		return errors.Errorf("BatchSize must be >= 0, got %d", c.BatchSize)
	case c.Momentum < 0 || c.Momentum > 1:
		return errors.Errorf("Momentum must be >= 0 and <= 1, got %g", c.Momentum)
	case c.ValidationFraction <= 0 || c.ValidationFraction >= 1:
		return errors.Errorf("ValidationFraction must be > 0 and < 1, got %g", c.ValidationFraction)
	case c.Beta1 < 0 || c.Beta1 >= 1:
		return errors.Errorf("Beta1 must be >= 0 and < 1, got %g", c.Beta1)
	case c.Beta2 < 0 || c.Beta2 >= 1:
		return errors.Errorf("Beta2 must be >= 0 and < 1, got %g", c.Beta2)
	case c.Epsilon <= 0:
		return errors.Errorf("Epsilon must be > 0, got %g", c.Epsilon)
	case c.NIterNoChange <= 0:
		return errors.Errorf("NIterNoChange must be > 0, got %d", c.NIterNoChange)
	}
	return nil
}

// Load config from a JSON file, fields which are not present keep their default values.
func LoadConfig(filePath string) (c Config, err error) {
	c = DefaultConfig()
	var f *os.File
	if f, err = os.Open(filePath); err != nil {
		return
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&c); err != nil {
		return c, errors.Wrapf(err, "decoding %s", filePath)
	}
	return
}

// Save config to JSON file, written to a temporary file then renamed.
func (c Config) Save(filePath string) error {
	tmp := filepath.Join(filepath.Dir(filePath), "."+filepath.Base(filePath))
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(c); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

func (c Config) Fields() []string {
	st := reflect.TypeOf(c)
	fld := make([]string, st.NumField())
	for i := range fld {
		fld[i] = st.Field(i).Name
	}
	return fld
}

func (c Config) Get(key string) interface{} {
	s := reflect.ValueOf(c)
	return s.FieldByName(key).Interface()
}

func (c Config) String() string {
	str := []string{"== Config =="}
	for _, key := range c.Fields() {
		str = append(str, fmt.Sprintf("%-18s: %v", key, c.Get(key)))
	}
	return strings.Join(str, "\n")
}

// Set field from string value, hidden layer sizes are given as a comma separated list.
func (c Config) SetString(key, val string) (Config, error) {
	s := reflect.ValueOf(&c).Elem()
	f := s.FieldByName(key)
	if !f.IsValid() {
		return c, errors.Errorf("invalid config field %q", key)
	}
	var err error
	switch f.Type().Kind() {
	case reflect.Int, reflect.Int64:
		var x int64
		if x, err = strconv.ParseInt(val, 10, 64); err == nil {
			f.SetInt(x)
		}
	case reflect.Float64:
		var x float64
		if x, err = strconv.ParseFloat(val, 64); err == nil {
			f.SetFloat(x)
		}
	case reflect.String:
		f.SetString(val)
	case reflect.Bool:
		var x bool
		if x, err = strconv.ParseBool(val); err == nil {
			f.SetBool(x)
		}
	case reflect.Slice:
		var x []int
		if x, err = ParseHidden(val); err == nil {
			f.Set(reflect.ValueOf(x))
		}
	default:
		return c, errors.Errorf("invalid type for SetString: %v", f.Type().Kind())
	}
	return c, errors.Wrapf(err, "setting %s", key)
}

func (c Config) SetBool(key string, val bool) (Config, error) {
	s := reflect.ValueOf(&c).Elem()
	f := s.FieldByName(key)
	if f.IsValid() && f.Type().Kind() == reflect.Bool {
		f.SetBool(val)
		return c, nil
	}
	return c, errors.Errorf("invalid field for SetBool: %s", key)
}

// Parse comma separated list of hidden layer sizes, e.g. "10,10".
func ParseHidden(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "()[]")
	var sizes []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid hidden layer size %q", field)
		}
		if n <= 0 {
			return nil, errors.Errorf("hidden layer size must be > 0, got %d", n)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, errors.Errorf("no hidden layer sizes in %q", s)
	}
	return sizes, nil
}

// Format hidden layer sizes in the form accepted by ParseHidden.
func FormatHidden(sizes []int) string {
	s := make([]string, len(sizes))
	for i, n := range sizes {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}

// Parse semicolon separated list of hidden layer layouts, e.g. "20;40;10,10".
func ParseLayouts(s string) ([][]int, error) {
	var layouts [][]int
	for _, field := range strings.Split(s, ";") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		sizes, err := ParseHidden(field)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, sizes)
	}
	return layouts, nil
}
