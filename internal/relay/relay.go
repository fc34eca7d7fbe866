package relay

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"relayd/internal/upstream"
)

// Generator is the subset of the upstream client used by Relay.
type Generator interface {
	GenerateStream(ctx context.Context, req upstream.GenerateRequest, requestID string) (io.ReadCloser, error)
	Generate(ctx context.Context, req upstream.GenerateRequest, requestID string) (string, error)
}

// Options configures a Relay. Zero values select defaults.
type Options struct {
	DefaultModel string
	// Timeout bounds one upstream exchange including the whole stream. Zero disables it.
	Timeout         time.Duration
	LineMode        LineMode
	ReadBufferBytes int
	MaxLineBytes    int
	Logger          zerolog.Logger
}

// Stats describes one finished stream. Only used for logs and metrics.
type Stats struct {
	RelayID   string
	Model     string
	Fragments int
	Bytes     int
	Malformed int
	Done      bool
}

// Relay forwards generation requests upstream. It is safe for concurrent use.
type Relay struct {
	up           Generator
	defaultModel string
	timeout      time.Duration
	lineMode     LineMode
	readBuf      int
	maxLine      int
	log          zerolog.Logger
}

// New constructs a Relay around up.
func New(up Generator, opts Options) *Relay {
	if opts.ReadBufferBytes <= 0 {
		opts.ReadBufferBytes = 32 << 10
	}
	return &Relay{
		up:           up,
		defaultModel: opts.DefaultModel,
		timeout:      opts.Timeout,
		lineMode:     opts.LineMode,
		readBuf:      opts.ReadBufferBytes,
		maxLine:      opts.MaxLineBytes,
		log:          opts.Logger,
	}
}

func (r *Relay) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Stream relays a streamed generation, writing each non-empty response
// fragment to w as soon as its line is decoded and calling flush after each
// write. Malformed lines are logged and skipped. It returns when the upstream
// body ends or on the first failure; the upstream body is closed on every path.
func (r *Relay) Stream(ctx context.Context, req GenerationRequest, w io.Writer, flush func()) (Stats, error) {
	st := Stats{RelayID: uuid.NewString()}
	if err := req.Validate(); err != nil {
		return st, err
	}
	ureq := req.upstreamRequest(r.defaultModel)
	ureq.Stream = true
	st.Model = ureq.Model
	log := r.log.With().Str("relay_id", st.RelayID).Str("model", ureq.Model).Logger()

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	body, err := r.up.GenerateStream(ctx, ureq, st.RelayID)
	observeUpstream("generate_stream", start, err)
	if err != nil {
		err = classify(ctx, "generate", err)
		streamsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return st, err
	}
	defer func() { _ = body.Close() }()

	split := newLineSplitter(r.lineMode, r.maxLine)
	onLine := func(line []byte) error {
		res := decodeLine(line)
		if res.err != nil {
			st.Malformed++
			malformedLinesTotal.Inc()
			log.Warn().Err(res.err).Int("len", len(line)).Msg("skipping malformed upstream line")
			return nil
		}
		c := res.chunk
		if c.Error != "" {
			return &Error{Kind: KindUpstream, Op: "stream", Err: errors.New("upstream reported: " + c.Error)}
		}
		if c.Done {
			st.Done = true
		}
		if c.Response == "" {
			return nil
		}
		n, werr := io.WriteString(w, c.Response)
		st.Bytes += n
		if werr != nil {
			return &Error{Kind: KindDownstream, Op: "write", Err: werr}
		}
		st.Fragments++
		fragmentsTotal.Inc()
		if flush != nil {
			flush()
		}
		return nil
	}

	buf := make([]byte, r.readBuf)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if err := split.feed(buf[:n], onLine); err != nil {
				err = classify(ctx, "stream", err)
				streamsTotal.WithLabelValues(outcomeOf(err)).Inc()
				return st, err
			}
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			if err := split.finish(onLine); err != nil {
				streamsTotal.WithLabelValues(outcomeOf(err)).Inc()
				return st, err
			}
			if !st.Done {
				log.Debug().Msg("upstream stream ended without done marker")
			}
			streamsTotal.WithLabelValues("ok").Inc()
			return st, nil
		}
		err := classify(ctx, "stream read", rerr)
		streamsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return st, err
	}
}

// Complete performs a buffered generation and returns the full response text.
func (r *Relay) Complete(ctx context.Context, req GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	ureq := req.upstreamRequest(r.defaultModel)
	ureq.Stream = false

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	text, err := r.up.Generate(ctx, ureq, uuid.NewString())
	observeUpstream("generate", start, err)
	if err != nil {
		return "", classify(ctx, "generate", err)
	}
	return text, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k >= 0 {
		return k.String()
	}
	return "error"
}
