package web

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/felipe6san/Fatec-5Sem/datasets"
	"github.com/felipe6san/Fatec-5Sem/nnet"
	"github.com/pkg/errors"
)

// Server settings read from the environment.
type Settings struct {
	Addr     string `env:"MLP_ADDR" envDefault:":8080"`
	User     string `env:"MLP_USER"`
	Password string `env:"MLP_PASSWORD"`
	Model    string `env:"MLP_MODEL" envDefault:"xor"`
	DataDir  string `env:"MLP_DATA"`
	Scale    bool   `env:"MLP_SCALE" envDefault:"true"`
	// Session cookie set after a basic auth login.
	Cookie       string        `env:"MLP_COOKIE" envDefault:"mlp-session"`
	CookieMaxAge time.Duration `env:"MLP_COOKIE_MAX_AGE" envDefault:"24h"`
	SecureCookie bool          `env:"MLP_SECURE_COOKIE"`
}

// LoadSettings parses the settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return s, errors.Wrap(err, "parsing environment")
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	if _, err := datasets.Config(s.Model); err != nil {
		return err
	}
	if s.User == "" && s.Password != "" {
		return errors.New("MLP_PASSWORD is set without MLP_USER")
	}
	if s.CookieMaxAge < 0 {
		return errors.Errorf("MLP_COOKIE_MAX_AGE must not be negative, got %s", s.CookieMaxAge)
	}
	return nil
}

// Path of the saved config for a model under nnet.DataDir.
func ConfigFile(model string) string {
	return filepath.Join(nnet.DataDir, model+".net")
}

// LoadModelConfig returns the saved config for the model if there is one, else the default.
func LoadModelConfig(model string) (nnet.Config, error) {
	file := ConfigFile(model)
	if _, err := os.Stat(file); err == nil {
		log.Println("load config:", file)
		return nnet.LoadConfig(file)
	}
	return datasets.Config(model)
}

type ConfigPage struct {
	*Templates
	Fields []Field
	net    *Network
}

type Field struct {
	Name    string
	Value   string
	Error   string
	Boolean bool
	On      bool
}

// Base data for handler functions to view and update the network config
func NewConfigPage(t *Templates, net *Network) *ConfigPage {
	p := &ConfigPage{net: net}
	p.Templates = t.Select("/config")
	p.AddOption(Link{Name: "save", Url: "/config/save", Submit: true})
	p.AddOption(Link{Name: "reset", Url: "/config/reset"})
	p.Fields = getFields(net.Conf)
	return p
}

// Handler function for the config template
func (p *ConfigPage) Base() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		if err := p.ExecuteTemplate(w, "config", p); err != nil {
			logError(w, err)
		}
	}
}

// Handler function for the config form save action
func (p *ConfigPage) Save() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		haveErrors := false
		conf := p.net.Conf
		for i, fld := range p.Fields {
			val := r.Form.Get(fld.Name)
			var err error
			if fld.Boolean {
				p.Fields[i].On = (val == "true")
				conf, err = conf.SetBool(fld.Name, p.Fields[i].On)
			} else {
				p.Fields[i].Value = val
				conf, err = conf.SetString(fld.Name, val)
			}
			p.Fields[i].Error = ""
			if err != nil {
				p.Fields[i].Error = "invalid syntax"
				haveErrors = true
			}
		}
		if !haveErrors {
			if err := conf.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := p.save(conf); err != nil {
				logError(w, err)
				return
			}
		}
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

// Handler function for the config reset action
func (p *ConfigPage) Reset() func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		p.net.Lock()
		defer p.net.Unlock()
		conf, err := datasets.Config(p.net.Model)
		if err != nil {
			logError(w, err)
			return
		}
		conf.Verbose = false
		if err = p.save(conf); err != nil {
			logError(w, err)
			return
		}
		p.Fields = getFields(conf)
		http.Redirect(w, r, "/config", http.StatusFound)
	}
}

func (p *ConfigPage) save(conf nnet.Config) error {
	if err := os.MkdirAll(nnet.DataDir, 0755); err != nil {
		return err
	}
	if err := conf.Save(ConfigFile(p.net.Model)); err != nil {
		return err
	}
	log.Printf("saved config for %s: hidden=%v", p.net.Model, conf.Hidden)
	p.net.Conf = conf
	return nil
}

func (p *ConfigPage) Heading() template.HTML {
	return template.HTML("model: " + template.HTMLEscapeString(p.net.Model))
}

func getFields(conf nnet.Config) []Field {
	var flds []Field
	for _, key := range conf.Fields() {
		if key == "Verbose" {
			continue
		}
		f := Field{Name: key, Value: fmt.Sprint(conf.Get(key))}
		if key == "Hidden" {
			f.Value = nnet.FormatHidden(conf.Hidden)
		}
		f.On, f.Boolean = conf.Get(key).(bool)
		flds = append(flds, f)
	}
	return flds
}
