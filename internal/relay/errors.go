package relay

import (
	"context"
	"errors"
	"net/http"

	"relayd/internal/upstream"
)

// ErrPromptRequired is returned for requests with an empty or whitespace-only prompt.
var ErrPromptRequired = errors.New("message is required")

// Kind classifies relay failures.
type Kind int

const (
	// KindInput is a client error detected before any upstream call.
	KindInput Kind = iota
	// KindUpstream covers transport failures, non-2xx statuses, empty bodies and
	// errors reported in-band by the upstream.
	KindUpstream
	// KindDecode is an unparseable buffered upstream body.
	KindDecode
	// KindTimeout means the relay timeout expired.
	KindTimeout
	// KindCanceled means the caller went away.
	KindCanceled
	// KindDownstream is a failed write to the caller.
	KindDownstream
	// KindLineTooLong means a single NDJSON line exceeded the configured limit.
	KindLineTooLong
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindUpstream:
		return "upstream"
	case KindDecode:
		return "decode"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindDownstream:
		return "downstream"
	case KindLineTooLong:
		return "line_too_long"
	default:
		return "unknown"
	}
}

// Error is the error type returned by Relay and Directory.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the error to the HTTP status returned to the caller.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInput:
		return http.StatusBadRequest
	case KindUpstream, KindDecode, KindLineTooLong:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the Kind of err, or -1 when err is not a relay error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return -1
}

// classify wraps an error returned by the upstream client. ctx is the
// context the call ran under so cancellations and timeouts are attributed
// correctly even when the transport reports them as generic read errors.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: KindCanceled, Op: op, Err: err}
	}
	var de *upstream.DecodeError
	if errors.As(err, &de) {
		return &Error{Kind: KindDecode, Op: op, Err: err}
	}
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}
