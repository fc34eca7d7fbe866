package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ModelLister is the subset of the upstream client used by Directory.
type ModelLister interface {
	Tags(ctx context.Context) ([]string, error)
}

// Directory lists the models installed on the upstream.
type Directory struct {
	up      ModelLister
	timeout time.Duration
	log     zerolog.Logger
}

// NewDirectory constructs a Directory. timeout of zero disables the per-call deadline.
func NewDirectory(up ModelLister, timeout time.Duration, log zerolog.Logger) *Directory {
	return &Directory{up: up, timeout: timeout, log: log}
}

// List returns model names in upstream order with duplicates kept. The
// returned slice is never nil: on failure it is empty and err is set, so
// callers can degrade to a manually entered model name.
func (d *Directory) List(ctx context.Context) ([]string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	start := time.Now()
	models, err := d.up.Tags(ctx)
	observeUpstream("tags", start, err)
	if err != nil {
		err = classify(ctx, "tags", err)
		d.log.Warn().Err(err).Msg("model listing failed")
		return []string{}, err
	}
	if models == nil {
		models = []string{}
	}
	return models, nil
}
