package web

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, user, password string) *Server {
	t.Helper()
	srv, err := NewServer(context.Background(), Settings{Model: "xor", DataDir: t.TempDir(), User: user, Password: password})
	if err != nil {
		t.Fatal(err)
	}
	srv.Net.Conf.MaxIter = 50
	srv.Net.Conf.RandSeed = 1
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, "", "")
	for _, path := range []string{"/train", "/confusion", "/sweep", "/config"} {
		w := get(t, srv, path)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status %d: %s", path, w.Code, w.Body)
		}
	}
	if w := get(t, srv, "/"); w.Code != http.StatusFound {
		t.Error("expected redirect, got", w.Code)
	}
	if w := get(t, srv, "/confusion"); !strings.Contains(w.Body.String(), "not been trained") {
		t.Error("confusion page before training:", w.Body)
	}
}

func TestTrainAndStats(t *testing.T) {
	srv := newTestServer(t, "", "")
	if w := get(t, srv, "/train/start"); w.Code != http.StatusFound {
		t.Fatal("start: status", w.Code)
	}
	srv.Net.Wait()

	w := get(t, srv, "/api/stats")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/json" {
		t.Fatal("api/stats:", w.Code, w.Header())
	}
	var resp struct {
		Update
		Epochs []struct {
			Epoch int     `json:"epoch"`
			Loss  float64 `json:"loss"`
		} `json:"epochs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	t.Logf("run %s: %d epochs", resp.RunID, len(resp.Epochs))
	if resp.RunID == "" || resp.Running || resp.Model != "xor" || resp.Error != "" {
		t.Errorf("unexpected status %+v", resp.Update)
	}
	if len(resp.Epochs) == 0 || len(resp.Epochs) > 50 || resp.Epochs[0].Epoch != 1 {
		t.Errorf("got %d epochs", len(resp.Epochs))
	}
	if resp.Stats == nil || resp.Stats.Epoch != len(resp.Epochs) {
		t.Error("latest stats:", resp.Stats)
	}
	smoothed := srv.Net.Smoothed
	if len(smoothed) != len(resp.Epochs) || smoothed[0] != resp.Epochs[0].Loss {
		t.Fatalf("smoothed loss %v", smoothed)
	}
	if resp.Smoothed != smoothed[len(smoothed)-1] {
		t.Error("update should carry the latest smoothed loss", resp.Smoothed)
	}
	if len(smoothed) > 1 {
		k := 2.0 / (smoothEpochs + 1)
		want := resp.Epochs[1].Loss*k + smoothed[0]*(1-k)
		if math.Abs(smoothed[1]-want) > 1e-12 {
			t.Errorf("smoothed[1]=%g want %g", smoothed[1], want)
		}
	}

	w = get(t, srv, "/confusion")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<svg") {
		t.Error("confusion page should include the heat map")
	}
	w = get(t, srv, "/train")
	if !strings.Contains(w.Body.String(), resp.RunID) || !strings.Contains(w.Body.String(), "<svg") {
		t.Error("train page should show the run id and loss plot")
	}
}

func TestWebsocket(t *testing.T) {
	srv := newTestServer(t, "", "")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var msg Update
	if err = conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Running || msg.Model != "xor" {
		t.Fatalf("initial status %+v", msg)
	}

	srv.Net.Lock()
	err = srv.Net.Start()
	srv.Net.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	epochs := 0
	for {
		if err = conn.ReadJSON(&msg); err != nil {
			t.Fatal(err)
		}
		if msg.Running && msg.Stats != nil {
			epochs++
		}
		if !msg.Running {
			break
		}
	}
	t.Logf("received %d epoch updates for run %s", epochs, msg.RunID)
	if epochs == 0 || msg.Stats == nil || msg.Stats.Epoch != epochs {
		t.Errorf("got %d updates, final %+v", epochs, msg.Stats)
	}
}

func TestSweep(t *testing.T) {
	srv := newTestServer(t, "", "")
	form := url.Values{"layouts": {"4;8,8"}, "runs": {"2"}}
	req := httptest.NewRequest("POST", "/sweep/start", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatal("sweep start:", w.Code, w.Body)
	}
	srv.Sweep.Wait()
	if srv.Sweep.Error != "" || len(srv.Sweep.Results) != 2 {
		t.Fatalf("sweep error %q, %d results", srv.Sweep.Error, len(srv.Sweep.Results))
	}
	if r := srv.Sweep.Results[1]; len(r.Scores) != 2 || r.Hidden[1] != 8 {
		t.Errorf("got %+v", r)
	}
	if w = get(t, srv, "/sweep"); !strings.Contains(w.Body.String(), "(8, 8)") {
		t.Error("sweep page missing layout")
	}

	req = httptest.NewRequest("POST", "/sweep/start", strings.NewReader("layouts=a;b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Error("expected bad request, got", w.Code)
	}
}

func TestConfigSave(t *testing.T) {
	srv := newTestServer(t, "", "")
	form := url.Values{}
	for _, f := range srv.Config.Fields {
		if f.Boolean {
			if f.On {
				form.Set(f.Name, "true")
			}
		} else {
			form.Set(f.Name, f.Value)
		}
	}
	form.Set("Hidden", "6,3")
	form.Set("MaxIter", "50")
	req := httptest.NewRequest("POST", "/config/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatal("save:", w.Code, w.Body)
	}
	if h := srv.Net.Conf.Hidden; len(h) != 2 || h[0] != 6 || h[1] != 3 {
		t.Error("hidden not updated:", h)
	}
	conf, err := LoadModelConfig("xor")
	if err != nil {
		t.Fatal(err)
	}
	if len(conf.Hidden) != 2 || conf.MaxIter != 50 {
		t.Errorf("saved config: %v", conf)
	}
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t, "admin", "secret")
	if w := get(t, srv, "/api/stats"); w.Code != http.StatusUnauthorized {
		t.Fatal("expected 401, got", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.SetBasicAuth("admin", "wrong")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Error("wrong password: expected 401, got", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatal("expected 200, got", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != defaultCookie || !cookies[0].HttpOnly {
		t.Fatal("session cookie not set:", cookies)
	}

	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Error("cookie login: expected 200, got", w.Code)
	}

	forged := *cookies[0]
	forged.Value = "x" + forged.Value
	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.AddCookie(&forged)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Error("tampered cookie: expected 401, got", w.Code)
	}
}

func TestAuthCookieSettings(t *testing.T) {
	srv, err := NewServer(context.Background(), Settings{
		Model: "xor", DataDir: t.TempDir(), User: "admin", Password: "secret",
		Cookie: "xor-login", CookieMaxAge: time.Hour, SecureCookie: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/api/stats", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	cookies := w.Result().Cookies()
	if w.Code != http.StatusOK || len(cookies) != 1 {
		t.Fatal("login failed:", w.Code, cookies)
	}
	c := cookies[0]
	if c.Name != "xor-login" || c.MaxAge != 3600 || !c.Secure {
		t.Errorf("got cookie %+v", c)
	}

	// a cookie signed by another server is rejected
	other, err := NewServer(context.Background(), Settings{
		Model: "xor", DataDir: t.TempDir(), User: "admin", Password: "secret", Cookie: "xor-login",
	})
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest("GET", "/api/stats", nil)
	req.AddCookie(c)
	w = httptest.NewRecorder()
	other.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Error("expected 401 for cookie from another server, got", w.Code)
	}
}

func TestSettings(t *testing.T) {
	t.Setenv("MLP_MODEL", "wine")
	t.Setenv("MLP_ADDR", ":9000")
	s, err := LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if s.Model != "wine" || s.Addr != ":9000" || !s.Scale || s.User != "" {
		t.Errorf("got %+v", s)
	}
	if s.Cookie != "mlp-session" || s.CookieMaxAge != 24*time.Hour || s.SecureCookie {
		t.Errorf("cookie settings %+v", s)
	}
	t.Setenv("MLP_MODEL", "mnist")
	if _, err = LoadSettings(); err == nil {
		t.Error("expected error for unknown model")
	}
}
