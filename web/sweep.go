package web

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/plots"
)

// Hidden layer layouts compared by default.
var DefaultLayouts = [][]int{{20}, {40}, {100}, {10, 10}, {20, 20}, {30, 30}, {50, 50}}

// SweepPage trains a network for each layout in the background and shows the test accuracy
// and loss curves.
type SweepPage struct {
	*Templates
	Layouts [][]int
	Runs    int
	Results []nnet.SweepResult
	Error   string
	net     *Network
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

func NewSweepPage(t *Templates, net *Network) *SweepPage {
	p := &SweepPage{net: net, Layouts: DefaultLayouts, Runs: 1}
	p.Templates = t.Select("/sweep")
	p.AddOption(Link{Name: "start", Url: "/sweep/start", Submit: true})
	p.AddOption(Link{Name: "stop", Url: "/sweep/stop"})
	return p
}

// Handler function for the sweep template
func (p *SweepPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.SelectOptions(runningOpts(p.running, "start"))
		if err := p.ExecuteTemplate(w, "sweep", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for the start action, layouts and runs are read from the form.
func (p *SweepPage) Start() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.running {
			log.Println("skip sweep - already running")
			http.Redirect(w, r, "/sweep", http.StatusFound)
			return
		}
		if s := r.FormValue("layouts"); s != "" {
			layouts, err := nnet.ParseLayouts(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			p.Layouts = layouts
		}
		if s := r.FormValue("runs"); s != "" {
			runs, err := strconv.Atoi(s)
			if err != nil || runs < 1 {
				http.Error(w, "invalid number of runs", http.StatusBadRequest)
				return
			}
			p.Runs = runs
		}
		p.net.Lock()
		base, train, test := p.net.Conf, p.net.Train, p.net.Test
		p.net.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		p.running, p.cancel, p.Error = true, cancel, ""
		p.done = make(chan struct{})
		layouts, runs, done := p.Layouts, p.Runs, p.done
		log.Printf("sweep %s: %d layouts x %d runs", p.net.Model, len(layouts), runs)
		go func() {
			results, err := nnet.Sweep(ctx, base, layouts, train, test, nnet.SweepOptions{Runs: runs, Log: log.Writer()})
			defer close(done)
			p.mu.Lock()
			defer p.mu.Unlock()
			p.running = false
			cancel()
			if err != nil {
				log.Println("sweep failed:", err)
				p.Error = err.Error()
				return
			}
			p.Results = results
		}()
		http.Redirect(w, r, "/sweep", http.StatusFound)
	}
}

// Handler function for the stop action
func (p *SweepPage) Stop() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		if p.running && p.cancel != nil {
			p.cancel()
		}
		p.mu.Unlock()
		http.Redirect(w, r, "/sweep", http.StatusFound)
	}
}

// Wait blocks until the current sweep has finished.
func (p *SweepPage) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *SweepPage) Heading() template.HTML {
	return template.HTML(template.HTMLEscapeString(p.net.Model) + ": hidden layer sweep")
}

// LayoutNames used in the form field.
func (p *SweepPage) LayoutNames() string {
	s := make([]string, len(p.Layouts))
	for i, l := range p.Layouts {
		s[i] = nnet.FormatHidden(l)
	}
	return strings.Join(s, ";")
}

func (p *SweepPage) Name(hidden []int) string { return plots.LayoutName(hidden) }

// LossPlot draws the loss curve of the last network trained for each layout.
func (p *SweepPage) LossPlot(width, height int) template.HTML {
	var series []plots.Series
	for _, r := range p.Results {
		if r.Net != nil {
			series = append(series, plots.Series{Name: plots.LayoutName(r.Hidden), Values: r.Net.LossCurve})
		}
	}
	if len(series) == 0 {
		return ""
	}
	plt, err := plots.LossCurves("", series...)
	if err != nil {
		log.Println("sweep plot:", err)
		return ""
	}
	return writePlot(plt, width, height)
}
