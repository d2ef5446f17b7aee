package web

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/plots"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type TrainPage struct {
	*Templates
	net *Network
}

// Base data for handler functions to perform network training and display the stats
func NewTrainPage(t *Templates, net *Network) *TrainPage {
	p := &TrainPage{net: net}
	p.Templates = t.Select("/train")
	p.AddOption(Link{Name: "start", Url: "/train/start"})
	p.AddOption(Link{Name: "stop", Url: "/train/stop"})
	return p
}

// Handler function for the train template
func (p *TrainPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd := mux.Vars(r)["cmd"]
		p.net.Lock()
		defer p.net.Unlock()
		switch cmd {
		case "start":
			if err := p.net.Start(); err != nil {
				log.Println("skip start:", err)
			}
			http.Redirect(w, r, "/train", http.StatusFound)
		case "stop":
			p.net.Stop()
			http.Redirect(w, r, "/train", http.StatusFound)
		default:
			p.SelectOptions(runningOpts(p.net.running, "start"))
			if err := p.ExecuteTemplate(w, "train", p); err != nil {
				logError(w, err)
			}
		}
	}
}

// Handler function returning the current run and the stats for every epoch as JSON
func (p *TrainPage) API() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		resp := struct {
			Update
			Epochs []nnet.Stats `json:"epochs"`
		}{Update: p.net.update(), Epochs: append([]nnet.Stats{}, p.net.Stats...)}
		p.net.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Println("error encoding stats:", err)
		}
	}
}

// Handler function for websocket connection, an Update is sent as JSON after each epoch
func (p *TrainPage) Websocket() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("websocket upgrade:", err)
			return
		}
		p.net.addConn(conn)
		// read until the client goes away
		go func() {
			defer p.net.removeConn(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func (p *TrainPage) Heading() template.HTML {
	epoch := 0
	if len(p.net.Stats) > 0 {
		epoch = p.net.Stats[len(p.net.Stats)-1].Epoch
	}
	s := fmt.Sprintf(`%s: epoch <span id="epoch">%d</span> of %d`, template.HTMLEscapeString(p.net.Model), epoch, p.net.Conf.MaxIter)
	return template.HTML(s)
}

func (p *TrainPage) RunID() string { return p.net.RunID }

func (p *TrainPage) RunError() string {
	if p.net.Err == nil {
		return ""
	}
	return p.net.Err.Error()
}

func (p *TrainPage) Config() nnet.Config { return p.net.Conf }

func (p *TrainPage) Headers() []string {
	h := []string{"epoch", "loss"}
	if p.net.Conf.EarlyStopping {
		h = append(h, "valid")
	}
	return h
}

// Most recent stats first
func (p *TrainPage) LatestStats(n int) []nnet.Stats {
	last := len(p.net.Stats) - 1
	res := []nnet.Stats{}
	for i := last; i >= 0 && i > last-n; i-- {
		res = append(res, p.net.Stats[i])
	}
	return res
}

func (p *TrainPage) RunTime() string {
	if len(p.net.Stats) == 0 {
		return ""
	}
	elapsed := p.net.Stats[len(p.net.Stats)-1].Elapsed
	return fmt.Sprintf("run time: %s", elapsed.Round(10*time.Millisecond))
}

func (p *TrainPage) LossPlot(width, height int) template.HTML {
	if len(p.net.Stats) == 0 {
		return ""
	}
	loss := make([]float64, len(p.net.Stats))
	for i, s := range p.net.Stats {
		loss[i] = s.Loss
	}
	plt, err := plots.LossCurves("",
		plots.Series{Name: "training loss", Values: loss},
		plots.Series{Name: "smoothed", Values: p.net.Smoothed},
	)
	if err != nil {
		log.Println("loss plot:", err)
		return ""
	}
	return writePlot(plt, width, height)
}
