// Package transfer runs benchmark transfers: a Client receives from one or
// more servers in parallel and a Server streams filtered data to every
// connection it accepts. Both report per-endpoint Results and an
// aggregated Summary.
package transfer

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ljishen/Pyben-nio/benio/size"
)

var (
	ErrStream      = errors.New("transfer: stream error")
	ErrNoEndpoints = errors.New("transfer: no endpoints")
)

// Result is what one endpoint worker did.
type Result struct {
	Endpoint  string
	Start     time.Time
	End       time.Time
	Delivered int64
	Raw       int64
	// Retained holds the most recent bytes received, bounded by the
	// client's cache budget.
	Retained []byte
	Err      error
}

func (r Result) Duration() time.Duration {
	if r.Start.IsZero() || r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

// EndpointError ties a worker failure to its endpoint.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string { return e.Endpoint + ": " + e.Err.Error() }

func (e *EndpointError) Unwrap() error { return e.Err }

// Summary aggregates the Results of one parallel transfer.
type Summary struct {
	Results   []Result
	Failed    []Result
	Delivered int64
	Raw       int64
	// Duration spans from the earliest worker start to the latest end.
	Duration time.Duration
}

// Aggregate sums bytes over all results, including failed ones, and
// measures the wall-clock span of the workers that started.
func Aggregate(results []Result) Summary {
	s := Summary{Results: results}
	var first, last time.Time
	for _, r := range results {
		s.Delivered += r.Delivered
		s.Raw += r.Raw
		if r.Err != nil {
			s.Failed = append(s.Failed, r)
		}
		if r.Start.IsZero() {
			continue
		}
		if first.IsZero() || r.Start.Before(first) {
			first = r.Start
		}
		end := r.End
		if end.Before(r.Start) {
			end = r.Start
		}
		if end.After(last) {
			last = end
		}
	}
	if !first.IsZero() {
		s.Duration = last.Sub(first)
	}
	return s
}

// Bitrate is delivered bits per second.
func (s Summary) Bitrate() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Delivered) * 8 / s.Duration.Seconds()
}

// MatchRatio is delivered bytes over raw bytes, when any raw byte was
// consumed.
func (s Summary) MatchRatio() (float64, bool) {
	if s.Raw == 0 {
		return 0, false
	}
	return float64(s.Delivered) / float64(s.Raw), true
}

// Err joins the failures of all endpoints, or returns nil.
func (s Summary) Err() error {
	errs := make([]error, 0, len(s.Failed))
	for _, r := range s.Failed {
		errs = append(errs, &EndpointError{Endpoint: r.Endpoint, Err: r.Err})
	}
	return errors.Join(errs...)
}

// Fields renders the summary for structured logging.
func (s Summary) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("workers", len(s.Results)),
		zap.Int("failed", len(s.Failed)),
		zap.Int64("delivered", s.Delivered),
		zap.Int64("raw", s.Raw),
		zap.Duration("duration", s.Duration),
		zap.String("bitrate", size.Bitrate(s.Bitrate())),
	}
	if ratio, ok := s.MatchRatio(); ok {
		fields = append(fields, zap.String("match_ratio", fmt.Sprintf("%.3f%%", ratio*100)))
	}
	return fields
}

const summaryLen = 50

// preview renders the first bytes of data for debug logs.
func preview(data []byte) zap.Field {
	s := strconv.Quote(string(data[:min(len(data), summaryLen)]))
	if len(data) > summaryLen {
		s += "..."
	}
	return zap.String("summary", s)
}
