// wine trains a classifier on the UCI wine quality data, evaluates it on a held out test set and
// compares the accuracy of a range of hidden layer layouts.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/felipe6san/Fatec-5Sem/datasets"
	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/felipe6san/Fatec-5Sem/plots"
	"github.com/felipe6san/Fatec-5Sem/report"
	"github.com/felipe6san/Fatec-5Sem/stats"
)

const defaultSweep = "20;40;100;10,10;20,20;30,30;50,50"

func main() {
	conf, err := datasets.Config("wine")
	nnet.CheckErr(err)
	conf.AddFlags(flag.CommandLine)
	configFile := flag.String("config", "", "load settings from JSON file")
	lang := flag.String("lang", "en", "output language: en or pt")
	testSize := flag.Float64("test", datasets.WineTestSize, "fraction of samples held out for testing")
	splitSeed := flag.Int64("split", datasets.WineSeed, "random seed for the train test split")
	scale := flag.Bool("scale", false, "standardise the features")
	pause := flag.Bool("pause", false, "wait for enter between each section")
	plotFile := flag.String("plot", "", "save the confusion matrix heat map to file (png, svg or pdf)")
	lossFile := flag.String("loss", "", "save the sweep loss curves to file")
	sweep := flag.String("sweep", defaultSweep, "semicolon separated hidden layer layouts to compare, empty to skip")
	runs := flag.Int("runs", 1, "training runs per sweep layout")
	jobs := flag.Int("jobs", 0, "networks trained in parallel, 0 for the number of CPUs")
	refresh := flag.Bool("refresh", false, "download the data even if cached")
	baseURL := flag.String("url", datasets.WineURL, "location of the csv files")
	flag.Parse()

	if *configFile != "" {
		conf, err = nnet.LoadConfig(*configFile)
		nnet.CheckErr(err)
	}
	conf, err = conf.ApplyFlags(flag.CommandLine)
	nnet.CheckErr(err)
	p, err := report.NewPrinter(os.Stdout, *lang)
	nnet.CheckErr(err)
	layouts, err := nnet.ParseLayouts(*sweep)
	nnet.CheckErr(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stdin := bufio.NewReader(os.Stdin)
	wait := func() {
		if *pause {
			p.Pause()
			stdin.ReadString('\n')
		}
	}

	// load data
	data, err := datasets.Wine(ctx, datasets.WineOptions{BaseURL: *baseURL, Refresh: *refresh, Log: os.Stdout})
	nnet.CheckErr(err)
	p.Metadata(datasets.WineMetadata)
	vars := make([][3]string, len(datasets.WineVariables))
	for i, v := range datasets.WineVariables {
		vars[i] = [3]string{v.Name, v.Role, v.Description}
	}
	p.Variables(vars)
	p.Data(data)
	wait()

	train, test, err := nnet.TrainTestSplit(data, *testSize, *splitSeed)
	nnet.CheckErr(err)
	p.Shapes(train, test)
	var scaler *stats.Scaler
	if *scale {
		train, test, scaler, err = datasets.Scale(train, test)
		nnet.CheckErr(err)
	}
	wait()

	// train the network
	net, err := nnet.New(conf)
	nnet.CheckErr(err)
	nnet.CheckErr(net.Train(ctx, train, nil))

	sample := nnet.Data{Nfeat: len(datasets.WineSample), Inputs: datasets.WineSample, Labels: []int{0}}
	if scaler != nil {
		sample, err = datasets.ScaleWith(scaler, sample)
		nnet.CheckErr(err)
	}
	pred, err := net.Predict(sample.Matrix())
	nnet.CheckErr(err)
	p.Prediction(pred[0])
	wait()

	// performance on the test set
	pred, err = net.Predict(test.Matrix())
	nnet.CheckErr(err)
	p.Predictions(pred)
	wait()
	acc, err := stats.Accuracy(test.Labels, pred)
	nnet.CheckErr(err)
	p.Accuracy(acc)
	wait()

	cm, err := stats.ConfusionMatrix(test.Labels, pred, net.Classes)
	nnet.CheckErr(err)
	p.Confusion(cm)
	p.Report(cm.Report())
	if *plotFile != "" {
		plt, err := plots.Confusion(cm, "Wine quality")
		nnet.CheckErr(err)
		nnet.CheckErr(plots.Save(plt, *plotFile))
		fmt.Println("saved", *plotFile)
	}
	wait()

	if len(layouts) == 0 {
		p.Attributes(net)
		return
	}
	base := conf
	base.Verbose = false
	results, err := nnet.Sweep(ctx, base, layouts, train, test, nnet.SweepOptions{Runs: *runs, Jobs: *jobs})
	nnet.CheckErr(err)
	p.Sweep(results)
	if *lossFile != "" {
		var series []plots.Series
		for _, r := range results {
			series = append(series, plots.Series{Name: plots.LayoutName(r.Hidden), Values: r.Net.LossCurve})
		}
		plt, err := plots.LossCurves("Training loss", series...)
		nnet.CheckErr(err)
		nnet.CheckErr(plots.Save(plt, *lossFile))
		fmt.Println("saved", *lossFile)
	}
	p.Attributes(results[len(results)-1].Net)
}
