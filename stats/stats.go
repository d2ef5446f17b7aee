// Package stats has running averages and the metrics used to evaluate a classifier.
package stats

import (
	"fmt"
	"html/template"
	"math"
)

// EMA is an exponential moving average over a span of n values. The zero value starts
// from the first value added.
type EMA float64

// Add returns the average after including x.
func (e EMA) Add(x, span float64) float64 {
	if e == 0 {
		return x
	}
	alpha := 2 / (span + 1)
	return alpha*x + (1-alpha)*float64(e)
}

// Running mean and stddev as per http://www.johndcook.com/blog/standard_deviation/
// StdDev is the sample standard deviation and PopStdDev the population one.
type Average struct {
	Count, Mean float64
	Var, StdDev float64
	PopStdDev   float64
	oldM, oldV  float64
}

func (s *Average) Add(x float64) {
	s.Count++
	if s.Count == 1 {
		s.oldM, s.Mean = x, x
		s.oldV = 0
	} else {
		s.Mean = s.oldM + (x-s.oldM)/s.Count
		s.Var = s.oldV + (x-s.oldM)*(x-s.Mean)
		s.oldM, s.oldV = s.Mean, s.Var
		s.StdDev = math.Sqrt(s.Var / (s.Count - 1))
		s.PopStdDev = math.Sqrt(s.Var / s.Count)
	}
}

func (s *Average) String() string {
	if s.Count <= 1 || s.StdDev < 1e-4 {
		return fmt.Sprintf("%.4f", s.Mean)
	}
	return fmt.Sprintf("%.4f ± %.4f", s.Mean, s.StdDev)
}

func (s *Average) HTML() template.HTML {
	var text string
	if s.Mean > 10 {
		if s.StdDev < 0.1 {
			text = fmt.Sprintf("%.1f", s.Mean)
		} else {
			text = fmt.Sprintf("%.1f&PlusMinus;%.1f", s.Mean, s.StdDev)
		}
	} else {
		if s.StdDev < 0.01 {
			text = fmt.Sprintf("%.2f", s.Mean)
		} else {
			text = fmt.Sprintf("%.2f&PlusMinus;%.2f", s.Mean, s.StdDev)
		}
	}
	return template.HTML(text)
}
