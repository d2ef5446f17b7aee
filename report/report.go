// Package report prints the learned network attributes and evaluation results in English or
// Brazilian Portuguese.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/num"
	"github.com/felipe6san/Fatec-5Sem/plots"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// message keys, the English text is used as the key
const (
	msgClasses     = "Classes: %s\n"
	msgLoss        = "Loss: %.8f\n"
	msgSamples     = "Samples seen: %d\n"
	msgFeatures    = "Input features: %d\n"
	msgIterations  = "Iterations: %d\n"
	msgLayers      = "Number of layers: %d\n"
	msgHidden      = "Hidden layer sizes: %s\n"
	msgOutputs     = "Output neurons: %d\n"
	msgActivation  = "Output activation: %s\n"
	msgCase        = "Case: %v => Predicted: %d\n"
	msgAccuracy    = "Accuracy: %.4f\n"
	msgLayout      = "Accuracy with %s neurons: %s\n"
	msgPrediction  = "Predicted quality: %d\n"
	msgConfusion   = "Confusion matrix:\n%s\n"
	msgShapeTrain  = "Training data shape %v %v\n"
	msgShapeTest   = "Test data shape %v %v\n"
	msgPause       = "Press enter to continue:"
	msgConverged   = "Converged: %t\n"
	msgInputMatrix = "INPUT DATA MATRIX\n%s\n"
	msgClassVector = "CLASS VECTOR\n%s\n"
	msgPredictions = "Predictions = %s\n"
	msgMetadata    = "\nMetadata\n"
	msgVariables   = "\nVariables\n"
	msgReport      = "Classification report:\n%s\n"
)

var portuguese = map[string]string{
	msgClasses:     "Classes: %s\n",
	msgLoss:        "Erro: %.8f\n",
	msgSamples:     "Amostras visitadas: %d\n",
	msgFeatures:    "Atributos de entrada: %d\n",
	msgIterations:  "Número de ciclos: %d\n",
	msgLayers:      "Número de camadas: %d\n",
	msgHidden:      "Tamanhos das camadas ocultas: %s\n",
	msgOutputs:     "Número de neurônios saída: %d\n",
	msgActivation:  "Função de ativação: %s\n",
	msgCase:        "Caso: %v => Previsto: %d\n",
	msgAccuracy:    "Acurácia: %.4f\n",
	msgLayout:      "Acurácia com %s neurônios: %s\n",
	msgPrediction:  "Qualidade prevista: %d\n",
	msgConfusion:   "Matriz de Confusão:\n%s\n",
	msgShapeTrain:  "Formato dados de treinamento %v %v\n",
	msgShapeTest:   "Formato dados de teste %v %v\n",
	msgPause:       "Aperte enter para continuar:",
	msgConverged:   "Convergiu: %t\n",
	msgInputMatrix: "MATRIZ DOS DADOS DE ENTRADA\n%s\n",
	msgClassVector: "VETOR DAS CLASSES\n%s\n",
	msgPredictions: "Vetor de previsões = %s\n",
	msgMetadata:    "\nMetadados\n",
	msgVariables:   "\nVariáveis\n",
	msgReport:      "Relatório de classificação:\n%s\n",
}

func init() {
	for key, msg := range portuguese {
		if err := message.SetString(language.BrazilianPortuguese, key, msg); err != nil {
			panic(err)
		}
	}
}

// Printer writes localized report lines.
type Printer struct {
	*message.Printer
	w io.Writer
}

// NewPrinter returns a printer for the language, "en" or "pt".
func NewPrinter(w io.Writer, lang string) (*Printer, error) {
	var tag language.Tag
	switch strings.ToLower(lang) {
	case "", "en":
		tag = language.English
	case "pt", "pt-br", "pt_br":
		tag = language.BrazilianPortuguese
	default:
		return nil, errors.Errorf("unsupported language %q", lang)
	}
	return &Printer{Printer: message.NewPrinter(tag), w: w}, nil
}

func (p *Printer) printf(key string, args ...interface{}) {
	p.Fprintf(p.w, key, args...)
}

// Attributes prints the parameters learned by Fit.
func (p *Printer) Attributes(net *nnet.Network) {
	p.printf(msgClasses, num.FormatInts(net.Classes))
	p.printf(msgLoss, net.Loss)
	p.printf(msgSamples, net.Samples)
	p.printf(msgFeatures, net.Features)
	p.printf(msgIterations, net.Iterations)
	p.printf(msgLayers, net.NumLayers())
	p.printf(msgHidden, plots.LayoutName(net.Hidden))
	p.printf(msgOutputs, net.Outputs)
	p.printf(msgActivation, net.OutActivation)
	p.printf(msgConverged, net.Converged)
}

// Cases prints each input row with the predicted label.
func (p *Printer) Cases(data nnet.Data, pred []int) {
	for i := 0; i < data.Len(); i++ {
		p.printf(msgCase, formatRow(data.Row(i)), pred[i])
	}
}

func (p *Printer) Accuracy(acc float64) { p.printf(msgAccuracy, acc) }

func (p *Printer) Prediction(label int) { p.printf(msgPrediction, label) }

func (p *Printer) Predictions(pred []int) { p.printf(msgPredictions, num.FormatInts(pred)) }

func (p *Printer) Confusion(matrix fmt.Stringer) { p.printf(msgConfusion, matrix) }

func (p *Printer) Report(report fmt.Stringer) { p.printf(msgReport, report) }

// Metadata prints the key value pairs sorted by key.
func (p *Printer) Metadata(meta map[string]string) {
	p.printf(msgMetadata)
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "  %-10s %s\n", k+":", meta[k])
	}
}

// Variables prints a table with one row per column of the data.
func (p *Printer) Variables(vars [][3]string) {
	p.printf(msgVariables)
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tname\trole\tdescription")
	for i, v := range vars {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, v[0], v[1], v[2])
	}
	tw.Flush()
}

// Shapes prints the train and test feature and label dimensions.
func (p *Printer) Shapes(train, test nnet.Data) {
	p.printf(msgShapeTrain, train.Shape(), []int{train.Len()})
	p.printf(msgShapeTest, test.Shape(), []int{test.Len()})
}

// Data prints the feature matrix and label vector.
func (p *Printer) Data(d nnet.Data) {
	p.printf(msgInputMatrix, num.Format(d.Matrix()))
	p.printf(msgClassVector, num.FormatInts(d.Labels))
}

// Sweep prints the accuracy for each hidden layer layout.
func (p *Printer) Sweep(results []nnet.SweepResult) {
	for _, r := range results {
		p.printf(msgLayout, plots.LayoutName(r.Hidden), r.Accuracy.String())
	}
}

// Pause prints the prompt used between sections.
func (p *Printer) Pause() { p.printf(msgPause) }

func formatRow(row []float64) string {
	s := make([]string, len(row))
	for i, v := range row {
		s[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(s, ", ") + "]"
}
