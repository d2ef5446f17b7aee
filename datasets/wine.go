package datasets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/pkg/errors"
)

// Location of the wine quality files in the UCI machine learning repository.
const WineURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/wine-quality"

// Name of the cached data file under nnet.DataDir.
const WineCache = "wine_quality"

var wineFiles = []string{"winequality-red.csv", "winequality-white.csv"}

// Description of each input column followed by the target.
var WineVariables = []struct {
	Name, Role, Description string
}{
	{"fixed_acidity", "Feature", "fixed acidity (g(tartaric acid)/dm3)"},
	{"volatile_acidity", "Feature", "volatile acidity (g(acetic acid)/dm3)"},
	{"citric_acid", "Feature", "citric acid (g/dm3)"},
	{"residual_sugar", "Feature", "residual sugar (g/dm3)"},
	{"chlorides", "Feature", "chlorides (g(sodium chloride)/dm3)"},
	{"free_sulfur_dioxide", "Feature", "free sulfur dioxide (mg/dm3)"},
	{"total_sulfur_dioxide", "Feature", "total sulfur dioxide (mg/dm3)"},
	{"density", "Feature", "density (g/cm3)"},
	{"pH", "Feature", "pH"},
	{"sulphates", "Feature", "sulphates (g(potassium sulphate)/dm3)"},
	{"alcohol", "Feature", "alcohol (% vol.)"},
	{"quality", "Target", "score between 0 and 10 based on sensory data"},
}

// Summary of the UCI repository entry (dataset id 186).
var WineMetadata = map[string]string{
	"uci_id":   "186",
	"name":     "Wine Quality",
	"url":      "https://archive.ics.uci.edu/dataset/186/wine+quality",
	"task":     "Classification, Regression",
	"abstract": "Two datasets related to red and white variants of the Portuguese \"Vinho Verde\" wine.",
	"citation": "P. Cortez, A. Cerdeira, F. Almeida, T. Matos and J. Reis. Modeling wine preferences by data mining from physicochemical properties. Decision Support Systems, 2009.",
}

// Measurements of an unknown wine, in the order of WineVariables.
var WineSample = []float64{7.0, 0.5, 0.2, 2.0, 0.07, 10.0, 50.0, 0.991, 3.3, 0.55, 10.0}

// Options for loading the wine data.
type WineOptions struct {
	// Base URL of the csv files, defaults to WineURL.
	BaseURL string
	// Download even if there is a cached copy.
	Refresh bool
	// Maximum number of attempts for each file, defaults to 5.
	MaxTries uint
	// Delay policy between attempts, defaults to exponential backoff.
	BackOff backoff.BackOff
	Client  *http.Client
	// Optional progress messages.
	Log io.Writer
}

// Wine loads the red and white wine quality data, red samples first. The parsed table is cached
// under nnet.DataDir so later calls do not need the network.
func Wine(ctx context.Context, opts WineOptions) (nnet.Data, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = WineURL
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 5
	}
	if opts.BackOff == nil {
		opts.BackOff = backoff.NewExponentialBackOff()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: time.Minute}
	}
	if opts.Log == nil {
		opts.Log = io.Discard
	}
	if !opts.Refresh && nnet.FileExists(WineCache+".dat") {
		fmt.Fprintf(opts.Log, "loading data from %s.dat\n", WineCache)
		return nnet.LoadDataFile(WineCache)
	}
	var data nnet.Data
	for _, name := range wineFiles {
		url := strings.TrimSuffix(opts.BaseURL, "/") + "/" + name
		fmt.Fprintln(opts.Log, "downloading", url)
		d, err := backoff.Retry(ctx, func() (nnet.Data, error) {
			return fetchWine(ctx, opts.Client, url)
		}, backoff.WithBackOff(opts.BackOff), backoff.WithMaxTries(opts.MaxTries))
		if err != nil {
			return data, errors.Wrapf(err, "fetching %s", name)
		}
		if data.Nfeat == 0 {
			data = d
		} else {
			data.Inputs = append(data.Inputs, d.Inputs...)
			data.Labels = append(data.Labels, d.Labels...)
		}
	}
	if err := nnet.SaveDataFile(data, WineCache); err != nil {
		return data, errors.Wrap(err, "saving wine data")
	}
	return data, nil
}

func fetchWine(ctx context.Context, client *http.Client, url string) (nnet.Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nnet.Data{}, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nnet.Data{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nnet.Data{}, backoff.Permanent(errors.Errorf("GET %s: %s", url, resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nnet.Data{}, errors.Errorf("GET %s: %s", url, resp.Status)
	}
	d, err := ParseWine(resp.Body)
	if err != nil {
		return d, backoff.Permanent(err)
	}
	return d, nil
}

// ParseWine reads a semicolon separated wine quality file with a header row.
func ParseWine(r io.Reader) (nnet.Data, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	header, err := cr.Read()
	if err != nil {
		return nnet.Data{}, errors.Wrap(err, "reading header")
	}
	if len(header) != len(WineVariables) {
		return nnet.Data{}, errors.Errorf("expected %d columns, got %d", len(WineVariables), len(header))
	}
	nfeat := len(header) - 1
	d := nnet.Data{Target: "quality", Nfeat: nfeat}
	for _, v := range WineVariables[:nfeat] {
		d.Names = append(d.Names, v.Name)
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return d, errors.Wrapf(err, "line %d", line)
		}
		for _, field := range rec[:nfeat] {
			x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return d, errors.Wrapf(err, "line %d", line)
			}
			d.Inputs = append(d.Inputs, x)
		}
		q, err := strconv.Atoi(strings.TrimSpace(rec[nfeat]))
		if err != nil {
			return d, errors.Wrapf(err, "line %d quality", line)
		}
		d.Labels = append(d.Labels, q)
	}
	return d, d.Validate()
}
