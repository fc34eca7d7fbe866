package relay

import (
	"bytes"
	"encoding/json"
	"fmt"

	"relayd/internal/upstream"
)

// LineMode selects how lines split across two upstream reads are handled.
type LineMode int

const (
	// LineCarry buffers a trailing partial line and prepends it to the next read.
	LineCarry LineMode = iota
	// LineChunk treats each read as self-contained lines. A line split across
	// reads decodes as two malformed lines and is dropped.
	LineChunk
)

// ParseLineMode maps a config value to a LineMode. Empty means LineCarry.
func ParseLineMode(s string) (LineMode, error) {
	switch s {
	case "", "carry":
		return LineCarry, nil
	case "chunk":
		return LineChunk, nil
	default:
		return LineCarry, fmt.Errorf("unknown line mode %q", s)
	}
}

func (m LineMode) String() string {
	if m == LineChunk {
		return "chunk"
	}
	return "carry"
}

// lineSplitter cuts a sequence of reads into NDJSON lines.
type lineSplitter struct {
	mode    LineMode
	maxLine int
	carry   []byte
}

func newLineSplitter(mode LineMode, maxLine int) *lineSplitter {
	return &lineSplitter{mode: mode, maxLine: maxLine}
}

// feed splits chunk into lines and calls fn for each non-blank one, in order.
// fn must not retain line.
func (s *lineSplitter) feed(chunk []byte, fn func(line []byte) error) error {
	data := chunk
	if len(s.carry) > 0 {
		data = append(s.carry, chunk...)
		s.carry = nil
	}
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		if err := emitLine(data[:i], fn); err != nil {
			return err
		}
		data = data[i+1:]
	}
	if len(data) == 0 {
		return nil
	}
	if s.mode == LineChunk {
		return emitLine(data, fn)
	}
	if s.maxLine > 0 && len(data) > s.maxLine {
		return &Error{Kind: KindLineTooLong, Op: "stream", Err: fmt.Errorf("line exceeds %d bytes", s.maxLine)}
	}
	s.carry = append([]byte(nil), data...)
	return nil
}

// finish flushes a trailing line left without a newline at end of stream.
func (s *lineSplitter) finish(fn func(line []byte) error) error {
	if len(s.carry) == 0 {
		return nil
	}
	rest := s.carry
	s.carry = nil
	return emitLine(rest, fn)
}

func emitLine(line []byte, fn func([]byte) error) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	return fn(line)
}

// lineResult is the outcome of decoding one line: either a chunk or a
// decode error that the caller skips.
type lineResult struct {
	chunk upstream.GenerateChunk
	err   error
}

func decodeLine(line []byte) lineResult {
	var c upstream.GenerateChunk
	if err := json.Unmarshal(line, &c); err != nil {
		return lineResult{err: err}
	}
	return lineResult{chunk: c}
}
