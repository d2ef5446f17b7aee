// web serves pages to train and evaluate the model selected in the environment, see web.Settings.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/web"
)

func main() {
	log.SetFlags(0)
	settings, err := web.LoadSettings()
	nnet.CheckErr(err)
	flag.StringVar(&settings.Addr, "addr", settings.Addr, "address to listen on")
	flag.StringVar(&settings.Model, "model", settings.Model, "model to train: xor or wine")
	flag.BoolVar(&settings.Scale, "scale", settings.Scale, "standardise the wine features")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	srv, err := web.NewServer(ctx, settings)
	nnet.CheckErr(err)
	nnet.CheckErr(srv.ListenAndServe(ctx))
}
