// Package plots draws the confusion matrix and training loss charts with gonum/plot.
package plots

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/felipe6san/Fatec-5Sem/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default image size
var (
	Width  = 6 * vg.Inch
	Height = 5 * vg.Inch
)

// grid over the confusion matrix, column index is the predicted label and row the true label
// with the first label at the top
type confusionGrid struct {
	c *stats.Confusion
}

func (g confusionGrid) Dims() (c, r int) { return len(g.c.Labels), len(g.c.Labels) }

func (g confusionGrid) Z(c, r int) float64 {
	n := len(g.c.Labels)
	return float64(g.c.Counts[n-1-r][c])
}

func (g confusionGrid) X(c int) float64 { return float64(c) }

func (g confusionGrid) Y(r int) float64 { return float64(r) }

// Confusion draws the matrix as a heat map with the count in each cell.
func Confusion(c *stats.Confusion, title string) (*plot.Plot, error) {
	n := len(c.Labels)
	if n == 0 {
		return nil, errors.New("empty confusion matrix")
	}
	p := newPlot(title)
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"

	grid := confusionGrid{c: c}
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	maxCount := 0
	for _, row := range c.Counts {
		for _, v := range row {
			maxCount = max(maxCount, v)
		}
	}
	hm.Min, hm.Max = 0, float64(max(maxCount, 1))
	p.Add(hm)

	var labels plotter.XYLabels
	for r := 0; r < n; r++ {
		for col := 0; col < n; col++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(col), Y: float64(r)})
			labels.Labels = append(labels.Labels, strconv.Itoa(int(grid.Z(col, r))))
		}
	}
	text, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range text.TextStyle {
		text.TextStyle[i].XAlign = -0.5
		text.TextStyle[i].YAlign = -0.5
	}
	p.Add(text)

	xticks := make([]plot.Tick, n)
	yticks := make([]plot.Tick, n)
	for i, l := range c.Labels {
		xticks[i] = plot.Tick{Value: float64(i), Label: strconv.Itoa(l)}
		yticks[i] = plot.Tick{Value: float64(n - 1 - i), Label: strconv.Itoa(l)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xticks)
	p.Y.Tick.Marker = plot.ConstantTicks(yticks)
	p.X.Min, p.X.Max = -0.5, float64(n)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(n)-0.5
	return p, nil
}

// Series is one named line on a chart.
type Series struct {
	Name   string
	Values []float64
}

// LossCurves plots the loss against the epoch number for each series.
func LossCurves(title string, series ...Series) (*plot.Plot, error) {
	p := newPlot(title)
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Loss"
	p.Add(plotter.NewGrid())
	for i, s := range series {
		pts := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			pts[j].X, pts[j].Y = float64(j+1), v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "series %s", s.Name)
		}
		line.Width = 2
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// Save writes the plot to file with the format given by the extension (png, svg, pdf, ...).
func Save(p *plot.Plot, file string) error {
	return errors.Wrapf(p.Save(Width, Height, file), "saving plot to %s", file)
}

// SVG renders the plot as an svg document of the given size in points.
func SVG(p *plot.Plot, w, h int) ([]byte, error) {
	writer, err := p.WriterTo(vg.Length(w), vg.Length(h), "svg")
	if err != nil {
		return nil, errors.Wrap(err, "rendering plot")
	}
	var buf bytes.Buffer
	if _, err = writer.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newPlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.BackgroundColor = color.White
	return p
}

// Name for a hidden layer layout as used in legends, e.g. "(10, 10)".
func LayoutName(hidden []int) string {
	s := make([]string, len(hidden))
	for i, n := range hidden {
		s[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("(%s)", strings.Join(s, ", "))
}
