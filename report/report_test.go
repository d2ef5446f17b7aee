package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/stats"
)

func testNet() *nnet.Network {
	conf := nnet.DefaultConfig()
	conf.Hidden = []int{4}
	return &nnet.Network{
		Config:        conf,
		Classes:       []int{0, 1},
		Loss:          0.0123,
		Samples:       40,
		Features:      2,
		Iterations:    10,
		Outputs:       1,
		OutActivation: "logistic",
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		lang   string
		expect []string
	}{
		{"en", []string{
			"Classes: [0 1]", "Loss: 0.01230000", "Samples seen: 40", "Input features: 2",
			"Iterations: 10", "Number of layers: 3", "Hidden layer sizes: (4)",
			"Output neurons: 1", "Output activation: logistic",
		}},
		{"pt", []string{
			"Classes: [0 1]", "Erro: 0.01230000", "Amostras visitadas: 40", "Atributos de entrada: 2",
			"Número de ciclos: 10", "Número de camadas: 3", "Tamanhos das camadas ocultas: (4)",
			"Número de neurônios saída: 1", "Função de ativação: logistic",
		}},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		p, err := NewPrinter(&buf, test.lang)
		if err != nil {
			t.Fatal(err)
		}
		p.Attributes(testNet())
		out := buf.String()
		t.Logf("%s:\n%s", test.lang, out)
		for _, line := range test.expect {
			if !strings.Contains(out, line+"\n") {
				t.Errorf("%s: missing %q", test.lang, line)
			}
		}
	}
}

func TestNewPrinterError(t *testing.T) {
	if _, err := NewPrinter(&bytes.Buffer{}, "xx"); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestCasesAndSweep(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, "pt-BR")
	if err != nil {
		t.Fatal(err)
	}
	d := nnet.Data{Nfeat: 2, Inputs: []float64{0, 1, 1, 1}, Labels: []int{1, 0}}
	p.Cases(d, []int{1, 0})
	var avg stats.Average
	avg.Add(0.5)
	avg.Add(0.7)
	p.Sweep([]nnet.SweepResult{{Hidden: []int{10, 10}, Accuracy: avg}})
	p.Accuracy(0.75)
	out := buf.String()
	t.Log(out)
	for _, line := range []string{
		"Caso: [0, 1] => Previsto: 1\n",
		"Caso: [1, 1] => Previsto: 0\n",
		"Acurácia com (10, 10) neurônios: 0.6000 ± 0.1414\n",
		"Acurácia: 0.7500\n",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("missing %q", line)
		}
	}
}
