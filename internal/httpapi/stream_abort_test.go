package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"relayd/internal/relay"
)

func postStream(t *testing.T, url string) (*http.Response, []byte, error) {
	t.Helper()
	resp, err := http.Post(url+"/api/chat", "application/json", bytes.NewBufferString(`{"message":"hi","stream":true}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, rerr := io.ReadAll(resp.Body)
	return resp, body, rerr
}

// A failing stream must end in an error state the client can observe, not a clean EOF.
func TestStreamFailureAbortsResponse(t *testing.T) {
	svc := &mockService{streamErr: &relay.Error{Kind: relay.KindUpstream, Op: "generate", Err: errors.New("503 Service Unavailable")}}
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	before := testutil.ToFloat64(streamAbortsTotal.WithLabelValues("upstream"))
	resp, body, err := postStream(t, srv.URL)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if err == nil {
		t.Fatalf("expected truncated body error, got clean EOF with %q", body)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected unexpected EOF, got %v", err)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %q", body)
	}
	if got := testutil.ToFloat64(streamAbortsTotal.WithLabelValues("upstream")); got < before+1 {
		t.Fatalf("abort counter not incremented: before=%v after=%v", before, got)
	}
}

func TestStreamFailureKeepsSentFragments(t *testing.T) {
	svc := &mockService{frags: []string{"par", "tial"}, streamErr: &relay.Error{Kind: relay.KindUpstream, Op: "stream read", Err: io.ErrUnexpectedEOF}}
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	_, body, err := postStream(t, srv.URL)
	if err == nil {
		t.Fatalf("expected truncated body error")
	}
	if string(body) != "partial" {
		t.Fatalf("body=%q", body)
	}
}

func TestStreamSuccessEndsCleanly(t *testing.T) {
	svc := &mockService{frags: []string{"a", "b"}}
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	_, body, err := postStream(t, srv.URL)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != "ab" {
		t.Fatalf("body=%q", body)
	}
}
