package relay

import (
	"context"
	"io"
	"time"
)

// Pinger checks upstream liveness.
type Pinger interface {
	Version(ctx context.Context) (string, error)
}

// Service bundles the relay, the model directory and readiness for the HTTP layer.
type Service struct {
	relay        *Relay
	dir          *Directory
	pinger       Pinger
	readyTimeout time.Duration
}

// NewService composes a Service. pinger may be nil, in which case Ready is always true.
func NewService(r *Relay, d *Directory, pinger Pinger, readyTimeout time.Duration) *Service {
	return &Service{relay: r, dir: d, pinger: pinger, readyTimeout: readyTimeout}
}

func (s *Service) Stream(ctx context.Context, req GenerationRequest, w io.Writer, flush func()) (Stats, error) {
	return s.relay.Stream(ctx, req, w, flush)
}

func (s *Service) Complete(ctx context.Context, req GenerationRequest) (string, error) {
	return s.relay.Complete(ctx, req)
}

func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	return s.dir.List(ctx)
}

// Ready reports whether the upstream answers a version probe.
func (s *Service) Ready(ctx context.Context) bool {
	if s.pinger == nil {
		return true
	}
	if s.readyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.readyTimeout)
		defer cancel()
	}
	start := time.Now()
	_, err := s.pinger.Version(ctx)
	observeUpstream("version", start, err)
	return err == nil
}
