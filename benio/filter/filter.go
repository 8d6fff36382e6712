// Package filter implements the streaming filter engine.
//
// A Filter wraps one byte stream (a file that wraps around at EOF, or a
// socket that ends when the peer closes) and serves exact-size reads of the
// bytes selected by its method. The "match" method applies a byte predicate
// over chunks of every raw buffer in parallel and reassembles the results in
// stream order, so callers never observe the parallelism.
//
// Filters are built through the method registry:
//
//	f, err := filter.New("match", filter.FileSource(file), 4096,
//	    []string{"func=lambda v: v % 2 == 0", "mpws=1MB"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	data, raw, err := f.Read(4096)
package filter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("filter: invalid configuration")
	ErrNoMatch       = errors.New("filter: no matching byte in stream")
	ErrStream        = errors.New("filter: stream error")
	ErrClosed        = errors.New("filter: closed")
)

// Filter is a stateful reader bound to a single stream.
//
// Read blocks until n bytes are available and returns exactly n bytes,
// unless a socket stream ended, in which case it returns whatever is left
// (possibly nothing). raw is the number of bytes consumed from the stream
// by this call. The returned slice is owned by the caller.
//
// Filters are not safe for concurrent use. Close is idempotent and may
// follow a failed Read.
type Filter interface {
	Read(n int) (data []byte, raw int, err error)
	Count() int64
	Close() error
}

// ConfigError reports a method configuration problem detected before any
// I/O takes place. It matches ErrConfiguration and its cause with errors.Is.
type ConfigError struct {
	Method string
	Param  string
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("filter: method ")
	fmt.Fprintf(&b, "%q", e.Method)
	if e.Param != "" {
		fmt.Fprintf(&b, " param %q", e.Param)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ConfigError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

func configErr(method, param string, format string, args ...any) error {
	return &ConfigError{Method: method, Param: param, Err: fmt.Errorf(format, args...)}
}
