package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// fragmentLogWriter logs every relayed fragment. The relay writes exactly
// one fragment per Write call.
type fragmentLogWriter struct {
	requestID string
	n         int
}

func (fw *fragmentLogWriter) Write(p []byte) (int, error) {
	fw.n++
	if zlog != nil {
		zlog.Debug().Str("request_id", fw.requestID).Int("seq", fw.n).Str("fragment", string(p)).Msg("relay>")
	} else {
		log.Printf("relay> %d %q", fw.n, p)
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

var defaultLogLevel = LevelInfo

// SetDefaultLogLevel sets the level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// relayLog carries the per-request fields shared by start and end lines.
type relayLog struct {
	r     *http.Request
	lvl   LogLevel
	mode  string
	model string
	start time.Time
}

func newRelayLog(r *http.Request, lvl LogLevel, mode, model string) *relayLog {
	return &relayLog{r: r, lvl: lvl, mode: mode, model: model, start: time.Now()}
}

func (rl *relayLog) started() {
	if rl.lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", rl.r.URL.Path).Str("mode", rl.mode).Str("model", rl.model)
		if rid := middleware.GetReqID(rl.r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("relay start")
		return
	}
	log.Printf("relay start path=%s mode=%s model=%s", rl.r.URL.Path, rl.mode, rl.model)
}

// ended logs the outcome. Failures are logged at LevelError and above,
// successes at LevelInfo and above. Fragment counts are only reported for streams.
func (rl *relayLog) ended(status int, fragments, malformed int, err error) {
	if err != nil && rl.lvl < LevelError {
		return
	}
	if err == nil && rl.lvl < LevelInfo {
		return
	}
	dur := time.Since(rl.start)
	if zlog != nil {
		z := zlog.Info()
		if err != nil {
			z = zlog.Error().Err(err)
		}
		z = z.Int("status", status).Str("mode", rl.mode).Str("model", rl.model).Dur("dur", dur)
		if rl.mode == "stream" {
			z = z.Int("fragments", fragments).Int("malformed", malformed)
		}
		if rid := middleware.GetReqID(rl.r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("relay end")
		return
	}
	if err != nil {
		log.Printf("relay end status=%d mode=%s dur=%s err=%v", status, rl.mode, dur, err)
		return
	}
	log.Printf("relay end status=%d mode=%s dur=%s fragments=%d malformed=%d", status, rl.mode, dur, fragments, malformed)
}
