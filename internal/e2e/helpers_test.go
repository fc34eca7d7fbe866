package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"relayd/internal/config"
	"relayd/internal/httpapi"
	"relayd/internal/relay"
	"relayd/internal/upstream"
)

// fakeOllama is a scripted stand-in for the inference server.
type fakeOllama struct {
	t *testing.T

	mu       sync.Mutex
	requests []upstream.GenerateRequest

	// streamParts are written and flushed one by one for streamed generates.
	streamParts []string
	// buffered is the whole body returned for stream=false.
	buffered string
	// generateStatus, when non-zero, is returned for every generate call.
	generateStatus int
	// tagsBody is the raw /api/tags response; tagsStatus overrides 200.
	tagsBody   string
	tagsStatus int
	// hold keeps a streamed response open after the scripted parts until the client goes away.
	hold     bool
	canceled chan struct{}
}

func newFakeOllama(t *testing.T) *fakeOllama {
	return &fakeOllama{t: t, canceled: make(chan struct{}, 1)}
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/version":
		_, _ = w.Write([]byte(`{"version":"0.5.7"}`))
	case "/api/tags":
		if f.tagsStatus != 0 {
			w.WriteHeader(f.tagsStatus)
		}
		_, _ = w.Write([]byte(f.tagsBody))
	case "/api/generate":
		f.generate(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOllama) generate(w http.ResponseWriter, r *http.Request) {
	var req upstream.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.t.Errorf("fake upstream: bad generate body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.generateStatus != 0 {
		w.WriteHeader(f.generateStatus)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
		return
	}
	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.buffered))
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	fl := w.(http.Flusher)
	for _, p := range f.streamParts {
		_, _ = io.WriteString(w, p)
		fl.Flush()
		time.Sleep(5 * time.Millisecond)
	}
	if f.hold {
		<-r.Context().Done()
		f.canceled <- struct{}{}
	}
}

func (f *fakeOllama) generateCalls() []upstream.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstream.GenerateRequest(nil), f.requests...)
}

// newRelayServer starts the full HTTP stack against the fake upstream.
func newRelayServer(t *testing.T, f *fakeOllama, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	up := httptest.NewServer(f)
	t.Cleanup(up.Close)

	cfg := config.Default()
	cfg.UpstreamURL = up.URL
	cfg.RequestTimeoutSec = 10
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	mode, err := relay.ParseLineMode(cfg.LineMode)
	if err != nil {
		t.Fatalf("line mode: %v", err)
	}
	client := upstream.New(cfg.UpstreamBase(), cfg.ConnectTimeout())
	r := relay.New(client, relay.Options{
		DefaultModel:    cfg.DefaultModel,
		Timeout:         cfg.RequestTimeout(),
		LineMode:        mode,
		ReadBufferBytes: cfg.ReadBufferBytes,
		MaxLineBytes:    cfg.MaxLineBytes,
		Logger:          zerolog.Nop(),
	})
	dir := relay.NewDirectory(client, cfg.RequestTimeout(), zerolog.Nop())
	svc := relay.NewService(r, dir, client, cfg.ReadyTimeout())

	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp, b
}
