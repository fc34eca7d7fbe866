package relay

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"relayd/internal/upstream"
)

// chunkReader delivers a scripted sequence of reads, then err (or io.EOF).
type chunkReader struct {
	chunks [][]byte
	i      int
	err    error
	closed atomic.Bool
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if c.i >= len(c.chunks) {
		if c.err != nil {
			return 0, c.err
		}
		return 0, io.EOF
	}
	ch := c.chunks[c.i]
	n := copy(p, ch)
	if n < len(ch) {
		c.chunks[c.i] = ch[n:]
	} else {
		c.i++
	}
	return n, nil
}

func (c *chunkReader) Close() error {
	c.closed.Store(true)
	return nil
}

// ctxReader blocks until the context it was created under is done.
type ctxReader struct {
	ctx    context.Context
	closed atomic.Bool
}

func (c *ctxReader) Read(p []byte) (int, error) {
	<-c.ctx.Done()
	return 0, c.ctx.Err()
}

func (c *ctxReader) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeUpstream struct {
	streamCalls atomic.Int32
	genCalls    atomic.Int32
	tagCalls    atomic.Int32

	chunks    [][]byte
	readErr   error
	streamErr error
	block     bool

	genText string
	genErr  error

	models  []string
	tagsErr error

	lastReq upstream.GenerateRequest
	lastID  string
	body    *chunkReader
	blocked *ctxReader
}

func (f *fakeUpstream) GenerateStream(ctx context.Context, req upstream.GenerateRequest, id string) (io.ReadCloser, error) {
	f.streamCalls.Add(1)
	f.lastReq, f.lastID = req, id
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.block {
		f.blocked = &ctxReader{ctx: ctx}
		return f.blocked, nil
	}
	cp := make([][]byte, len(f.chunks))
	copy(cp, f.chunks)
	f.body = &chunkReader{chunks: cp, err: f.readErr}
	return f.body, nil
}

func (f *fakeUpstream) Generate(ctx context.Context, req upstream.GenerateRequest, id string) (string, error) {
	f.genCalls.Add(1)
	f.lastReq, f.lastID = req, id
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.genText, f.genErr
}

func (f *fakeUpstream) Tags(ctx context.Context) ([]string, error) {
	f.tagCalls.Add(1)
	return f.models, f.tagsErr
}

func newTestRelay(up Generator, mode LineMode) *Relay {
	return New(up, Options{DefaultModel: "llama3.2", LineMode: mode, MaxLineBytes: 1 << 20, Logger: zerolog.Nop()})
}

// ndjson renders one `{"response": frag}` line per fragment followed by a done line.
func ndjson(frags ...string) string {
	var b strings.Builder
	for _, f := range frags {
		line, _ := json.Marshal(upstream.GenerateChunk{Response: f})
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteString(`{"response":"","done":true}` + "\n")
	return b.String()
}

func splitAt(s string, cuts ...int) [][]byte {
	var out [][]byte
	prev := 0
	for _, c := range cuts {
		out = append(out, []byte(s[prev:c]))
		prev = c
	}
	return append(out, []byte(s[prev:]))
}
