// Package datasets provides the XOR truth table and the UCI wine quality data.
package datasets

import "github.com/felipe6san/Fatec-5Sem/nnet"

// XOR returns the logical exclusive or truth table.
func XOR() nnet.Data {
	return nnet.Data{
		Names:  []string{"a", "b"},
		Target: "xor",
		Nfeat:  2,
		Inputs: []float64{0, 0, 0, 1, 1, 0, 1, 1},
		Labels: []int{0, 1, 1, 0},
	}
}
