// xor trains a small network on the exclusive or truth table and prints the prediction for
// each case along with the learned attributes.
package main

import (
	"flag"
	"os"

	"github.com/felipe6san/Fatec-5Sem/datasets"
	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/report"
)

func main() {
	conf, err := datasets.Config("xor")
	nnet.CheckErr(err)
	conf.AddFlags(flag.CommandLine)
	configFile := flag.String("config", "", "load settings from JSON file")
	save := flag.String("save", "", "save settings to JSON file")
	lang := flag.String("lang", "en", "output language: en or pt")
	weights := flag.Bool("weights", false, "print the learned weights")
	flag.Parse()

	if *configFile != "" {
		conf, err = nnet.LoadConfig(*configFile)
		nnet.CheckErr(err)
	}
	conf, err = conf.ApplyFlags(flag.CommandLine)
	nnet.CheckErr(err)
	if *save != "" {
		nnet.CheckErr(conf.Save(*save))
	}
	p, err := report.NewPrinter(os.Stdout, *lang)
	nnet.CheckErr(err)

	data := datasets.XOR()
	net, err := nnet.New(conf)
	nnet.CheckErr(err)
	nnet.CheckErr(net.Fit(data.Matrix(), data.Labels))

	pred, err := net.Predict(data.Matrix())
	nnet.CheckErr(err)
	p.Cases(data, pred)
	p.Attributes(net)
	if *weights {
		net.PrintWeights(os.Stdout)
	}
}
