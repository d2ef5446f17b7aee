// Package web serves pages to train the selected model, view the test set confusion matrix and
// run a sweep over hidden layer layouts.
package web

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/felipe6san/Fatec-5Sem/datasets"
	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/gorilla/mux"
)

// Server with the pages for a single model.
type Server struct {
	Settings
	Net       *Network
	Train     *TrainPage
	Confusion *ConfusionPage
	Sweep     *SweepPage
	Config    *ConfigPage
	router    *mux.Router
}

// NewServer loads the model data and config and sets up the routes.
func NewServer(ctx context.Context, s Settings) (*Server, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.DataDir != "" {
		nnet.DataDir = s.DataDir
	}
	train, test, err := datasets.Load(ctx, s.Model, datasets.WineOptions{Log: log.Writer()}, s.Scale)
	if err != nil {
		return nil, err
	}
	conf, err := LoadModelConfig(s.Model)
	if err != nil {
		return nil, err
	}
	log.Printf("model %s: %d training and %d test samples", s.Model, train.Len(), test.Len())

	t, err := NewTemplates()
	if err != nil {
		return nil, err
	}
	srv := &Server{Settings: s, Net: NewNetwork(s.Model, conf, train, test)}
	srv.Train = NewTrainPage(t.Clone(), srv.Net)
	srv.Confusion = NewConfusionPage(t.Clone(), srv.Net)
	srv.Sweep = NewSweepPage(t.Clone(), srv.Net)
	srv.Config = NewConfigPage(t.Clone(), srv.Net)

	r := mux.NewRouter()
	r.Handle("/", http.RedirectHandler("/train", http.StatusFound))
	r.HandleFunc("/train", srv.Train.Base())
	r.HandleFunc("/train/{cmd:(?:start|stop)}", srv.Train.Base())
	r.HandleFunc("/api/stats", srv.Train.API()).Methods("GET")
	r.HandleFunc("/ws", srv.Train.Websocket())

	r.HandleFunc("/confusion", srv.Confusion.Base())

	r.HandleFunc("/sweep", srv.Sweep.Base())
	r.HandleFunc("/sweep/start", srv.Sweep.Start()).Methods("POST")
	r.HandleFunc("/sweep/stop", srv.Sweep.Stop())

	r.HandleFunc("/config", srv.Config.Base())
	r.HandleFunc("/config/save", srv.Config.Save()).Methods("POST")
	r.HandleFunc("/config/reset", srv.Config.Reset())

	if s.User != "" {
		r.Use(NewAuthMiddleware(s).Middleware)
	} else {
		log.Println("warning: authentication is disabled, set MLP_USER and MLP_PASSWORD to enable")
	}
	srv.router = r
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves the pages until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	hs := &http.Server{Addr: s.Addr, Handler: s}
	go func() {
		<-ctx.Done()
		hs.Close()
	}()
	host, _ := os.Hostname()
	log.Printf("serving web page at http://%s%s", host, s.Addr)
	if err := hs.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
