package num

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Parameters for array printing
var (
	PrintThreshold = 12
	PrintEdgeitems = 4
)

// Format returns a numpy style bracketed listing of the matrix. Rows and columns beyond
// PrintThreshold are elided leaving PrintEdgeitems at each end.
func Format(m mat.Matrix) string {
	rows, cols := m.Dims()
	var s strings.Builder
	for i := 0; i < rows; i++ {
		if i == 0 {
			s.WriteString("[[")
		} else {
			s.WriteString(" [")
		}
		for j := 0; j < cols; j++ {
			if cols > PrintThreshold+1 && j == PrintEdgeitems {
				s.WriteString("...  ")
				j = cols - PrintEdgeitems - 1
				continue
			}
			s.WriteString(formatValue(m.At(i, j)))
			if j < cols-1 {
				s.WriteByte(' ')
			}
		}
		if i < rows-1 {
			s.WriteString("]\n")
		} else {
			s.WriteString("]]")
		}
		if rows > PrintThreshold+1 && i == PrintEdgeitems-1 {
			s.WriteString(" ...\n")
			i = rows - PrintEdgeitems - 1
		}
	}
	if rows == 0 {
		s.WriteString("[]")
	}
	return s.String()
}

// FormatInts lists a vector of integers in the same style as Format.
func FormatInts(v []int) string {
	var s strings.Builder
	s.WriteByte('[')
	for i := 0; i < len(v); i++ {
		if len(v) > PrintThreshold+1 && i == PrintEdgeitems {
			s.WriteString("... ")
			i = len(v) - PrintEdgeitems - 1
			continue
		}
		fmt.Fprint(&s, v[i])
		if i < len(v)-1 {
			s.WriteByte(' ')
		}
	}
	s.WriteByte(']')
	return s.String()
}

func formatValue(v float64) string {
	if v == float64(int64(v)) && abs(v) < 1e6 {
		return fmt.Sprintf("%7.0f.", v)
	}
	return fmt.Sprintf("%8.4g", v)
}

func abs(x float64) float64 {
	if x >= 0 {
		return x
	}
	return -x
}
