package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relayd/internal/relay"
	"relayd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Stream(ctx context.Context, req relay.GenerationRequest, w io.Writer, flush func()) (relay.Stats, error)
	Complete(ctx context.Context, req relay.GenerationRequest) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Ready(ctx context.Context) bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints only; streamed text must reach the client unbuffered.
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/api/chat", chatHandler(svc))
	r.Get("/api/models", modelsHandler(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready(r.Context()) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func chatHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// Oversized bodies also land here; report them as 400 without size details.
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		greq := relay.GenerationRequest{
			Prompt:       req.Message,
			SystemPrompt: req.SystemPrompt,
			ModelID:      req.Model,
			Streaming:    req.Stream,
		}
		// Rejected before any upstream call or committed header.
		if err := greq.Validate(); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Message is required")
			return
		}

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		lvl := requestLogLevel(r)
		if req.Stream {
			serveStream(ctx, w, r, svc, greq, lvl)
			return
		}
		serveBuffered(ctx, w, r, svc, greq, lvl)
	}
}

func serveBuffered(ctx context.Context, w http.ResponseWriter, r *http.Request, svc Service, req relay.GenerationRequest, lvl LogLevel) {
	rl := newRelayLog(r, lvl, "buffered", req.ModelID)
	rl.started()
	text, err := svc.Complete(ctx, req)
	if err != nil {
		// If context was canceled (client disconnect), just return.
		if r.Context().Err() != nil {
			rl.ended(499, 0, 0, err)
			return
		}
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		rl.ended(status, 0, 0, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Response: text})
	rl.ended(http.StatusOK, 0, 0, nil)
}

// serveStream commits a plain-text streaming response and relays fragments
// into it. A failure after the headers are out cannot be reported with a
// status code, so the response is aborted instead: the client sees a
// truncated chunked body rather than a clean end of stream.
func serveStream(ctx context.Context, w http.ResponseWriter, r *http.Request, svc Service, req relay.GenerationRequest, lvl LogLevel) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
		flush()
	}
	writer := io.Writer(w)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &fragmentLogWriter{requestID: middleware.GetReqID(r.Context())})
	}

	rl := newRelayLog(r, lvl, "stream", req.ModelID)
	rl.started()
	st, err := svc.Stream(ctx, req, writer, flush)
	if err == nil {
		rl.ended(http.StatusOK, st.Fragments, st.Malformed, nil)
		return
	}
	rl.ended(http.StatusOK, st.Fragments, st.Malformed, err)
	if r.Context().Err() != nil {
		// Nobody is listening anymore.
		return
	}
	IncrementStreamAbort(relay.KindOf(err).String())
	panic(http.ErrAbortHandler)
}

func modelsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		models, err := svc.ListModels(ctx)
		if err != nil {
			status := statusFor(err)
			if zlog != nil {
				zlog.Warn().Err(err).Int("status", status).Str("request_id", middleware.GetReqID(r.Context())).Msg("models unavailable")
			} else {
				log.Printf("models unavailable status=%d err=%v", status, err)
			}
			writeJSON(w, status, types.ModelsResponse{Models: []string{}, Error: "Failed to fetch models", Code: status})
			return
		}
		if models == nil {
			models = []string{}
		}
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
	}
}
