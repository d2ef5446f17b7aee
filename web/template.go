package web

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/felipe6san/Fatec-5Sem/plots"
	"gonum.org/v1/plot"
)

//go:embed assets/*.html
var assets embed.FS

// Template and main menu definition
type Templates struct {
	*template.Template
	Menu    []Link
	Options []Link
}

type Link struct {
	Url      string
	Name     string
	Selected bool
	Submit   bool
}

// Parse the embedded templates and initialise the main menu
func NewTemplates() (*Templates, error) {
	t := &Templates{Menu: []Link{}, Options: []Link{}}
	var err error
	t.Template, err = template.ParseFS(assets, "assets/*.html")
	if err != nil {
		return nil, err
	}
	t.AddMenuItem(Link{Name: "train", Url: "/train"})
	t.AddMenuItem(Link{Name: "confusion", Url: "/confusion"})
	t.AddMenuItem(Link{Name: "sweep", Url: "/sweep"})
	t.AddMenuItem(Link{Name: "config", Url: "/config"})
	return t, nil
}

func (t *Templates) Clone() *Templates {
	return &Templates{
		Template: t.Template,
		Menu:     append([]Link{}, t.Menu...),
		Options:  append([]Link{}, t.Options...),
	}
}

func (t *Templates) Select(url string) *Templates {
	for i, key := range t.Menu {
		t.Menu[i].Selected = strings.HasPrefix(key.Url, url)
	}
	return t
}

func (t *Templates) AddMenuItem(l Link) *Templates {
	t.Menu = append(t.Menu, l)
	return t
}

func (t *Templates) AddOption(l Link) *Templates {
	t.Options = append(t.Options, l)
	return t
}

func (t *Templates) SelectOptions(names []string) *Templates {
	for i, key := range t.Options {
		t.Options[i].Selected = false
		for _, name := range names {
			if key.Name == name {
				t.Options[i].Selected = true
			}
		}
	}
	return t
}

// options to highlight depending on if a job is running
func runningOpts(running bool, name string) []string {
	if running {
		return []string{name}
	}
	return nil
}

// svg user units per inch
const svgDPI = 96

// render plot as inline svg with size in pixels
func writePlot(p *plot.Plot, w, h int) template.HTML {
	svg, err := plots.SVG(p, w*72/svgDPI, h*72/svgDPI)
	if err != nil {
		log.Println(err)
		return ""
	}
	return template.HTML(svg)
}

func logError(w http.ResponseWriter, err error) {
	log.Println(err)
	http.Error(w, fmt.Sprint(err), http.StatusInternalServerError)
}
