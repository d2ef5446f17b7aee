package datasets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/felipe6san/Fatec-5Sem/nnet"
)

const wineHeader = `"fixed acidity";"volatile acidity";"citric acid";"residual sugar";"chlorides";` +
	`"free sulfur dioxide";"total sulfur dioxide";"density";"pH";"sulphates";"alcohol";"quality"`

var wineRows = map[string][]string{
	"/winequality-red.csv": {
		"7.4;0.7;0;1.9;0.076;11;34;0.9978;3.51;0.56;9.4;5",
		"7.8;0.88;0;2.6;0.098;25;67;0.9968;3.2;0.68;9.8;5",
		"11.2;0.28;0.56;1.9;0.075;17;60;0.998;3.16;0.58;9.8;6",
	},
	"/winequality-white.csv": {
		"7;0.27;0.36;20.7;0.045;45;170;1.001;3;0.45;8.8;6",
		"6.3;0.3;0.34;1.6;0.049;14;132;0.994;3.3;0.49;9.5;7",
	},
}

func TestXOR(t *testing.T) {
	d := XOR()
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Classes(), []int{0, 1}) || d.Len() != 4 {
		t.Error("got", d.Classes(), d.Len())
	}
	for i := 0; i < d.Len(); i++ {
		row := d.Row(i)
		if expect := int(row[0]) ^ int(row[1]); d.Labels[i] != expect {
			t.Errorf("row %d: %v => %d", i, row, d.Labels[i])
		}
	}
}

func TestParseWine(t *testing.T) {
	src := wineHeader + "\n" + strings.Join(wineRows["/winequality-red.csv"], "\n") + "\n"
	d, err := ParseWine(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 3 || d.Features() != 11 || d.Names[8] != "pH" || d.Target != "quality" {
		t.Errorf("got %d rows, %d features, names %v", d.Len(), d.Features(), d.Names)
	}
	if !reflect.DeepEqual(d.Labels, []int{5, 5, 6}) {
		t.Error("labels:", d.Labels)
	}
	if d.Row(2)[0] != 11.2 {
		t.Error("row 2:", d.Row(2))
	}
	if _, err = ParseWine(strings.NewReader("a;b;c\n1;2;3\n")); err == nil {
		t.Error("expected column count error")
	}
	if _, err = ParseWine(strings.NewReader(wineHeader + "\n" + strings.Repeat("x;", 11) + "5\n")); err == nil {
		t.Error("expected parse error")
	}
}

func wineServer(t *testing.T, failures int32) (*httptest.Server, *int32) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n <= failures {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		rows, ok := wineRows[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, wineHeader)
		fmt.Fprintln(w, strings.Join(rows, "\n"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestWineDownloadAndCache(t *testing.T) {
	nnet.DataDir = t.TempDir()
	srv, hits := wineServer(t, 1)
	opts := WineOptions{BaseURL: srv.URL, BackOff: &backoff.ZeroBackOff{}}

	d, err := Wine(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 5 || !reflect.DeepEqual(d.Labels, []int{5, 5, 6, 6, 7}) {
		t.Error("got labels", d.Labels)
	}
	if n := atomic.LoadInt32(hits); n != 3 {
		t.Error("expected one retry, got hits =", n)
	}
	if !nnet.FileExists(WineCache + ".dat") {
		t.Fatal("cache file not written")
	}

	// second load comes from the cache
	cached, err := Wine(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(hits); n != 3 {
		t.Error("cache not used, hits =", n)
	}
	if !reflect.DeepEqual(cached.Inputs, d.Inputs) || !reflect.DeepEqual(cached.Labels, d.Labels) {
		t.Error("cached data differs")
	}

	opts.Refresh = true
	if _, err = Wine(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(hits); n != 5 {
		t.Error("refresh did not download, hits =", n)
	}
}

func TestWineNotFound(t *testing.T) {
	nnet.DataDir = t.TempDir()
	srv, hits := wineServer(t, 0)
	opts := WineOptions{BaseURL: srv.URL + "/missing", BackOff: &backoff.ZeroBackOff{}}
	if _, err := Wine(context.Background(), opts); err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Error("4xx should not be retried, hits =", n)
	}
}
