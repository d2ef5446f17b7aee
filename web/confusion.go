package web

import (
	"html/template"
	"log"
	"net/http"

	"github.com/felipe6san/Fatec-5Sem/plots"
	"github.com/felipe6san/Fatec-5Sem/stats"
)

// ConfusionPage shows the test set results of the last completed training run.
type ConfusionPage struct {
	*Templates
	Matrix *stats.Confusion
	Report stats.Report
	net    *Network
}

func NewConfusionPage(t *Templates, net *Network) *ConfusionPage {
	p := &ConfusionPage{net: net}
	p.Templates = t.Select("/confusion")
	return p
}

// Handler function for the confusion template
func (p *ConfusionPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		p.Matrix = nil
		if p.net.Net != nil {
			c, err := p.net.Confusion()
			if err != nil {
				logError(w, err)
				return
			}
			p.Matrix, p.Report = c, c.Report()
		}
		if err := p.ExecuteTemplate(w, "confusion", p); err != nil {
			logError(w, err)
		}
	}
}

func (p *ConfusionPage) Heading() template.HTML {
	return template.HTML(template.HTMLEscapeString(p.net.Model) + ": test set results")
}

func (p *ConfusionPage) Plot(width, height int) template.HTML {
	if p.Matrix == nil {
		return ""
	}
	plt, err := plots.Confusion(p.Matrix, "Confusion matrix")
	if err != nil {
		log.Println("confusion plot:", err)
		return ""
	}
	return writePlot(plt, width, height)
}
