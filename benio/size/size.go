// Package size converts human-readable byte counts such as "4K" or "50MB".
package size

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrFormat reports a malformed size string.
var ErrFormat = errors.New("size: invalid format")

// FormatError carries the rejected input.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("size: %s %q", e.Reason, e.Input)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// units are ordered so that each step is a 1024 multiplier.
var units = []string{"b", "kb", "mb", "gb"}

// Parse converts "<number>[B|K|M|G]" (case-insensitive, optionally with a
// trailing B) to a byte count. Fractions are rejected.
func Parse(s string) (int64, error) {
	in := strings.TrimSpace(s)
	if strings.Contains(in, ".") {
		return 0, &FormatError{Input: s, Reason: "non-integer size"}
	}

	i := 0
	for i < len(in) && in[i] >= '0' && in[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, &FormatError{Input: s, Reason: "missing number in size"}
	}
	num, err := strconv.ParseInt(in[:i], 10, 64)
	if err != nil {
		return 0, &FormatError{Input: s, Reason: "number out of range in size"}
	}

	unit := strings.ToLower(in[i:])
	if !strings.HasSuffix(unit, "b") {
		unit += "b"
	}
	for _, u := range units {
		if u == unit {
			return num, nil
		}
		if num > math.MaxInt64>>10 {
			return 0, &FormatError{Input: s, Reason: "size overflows"}
		}
		num <<= 10
	}
	return 0, &FormatError{Input: s, Reason: "unknown unit in size"}
}

// MustParse is Parse for constants known to be valid.
func MustParse(s string) int64 {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Format renders n with IEC units, e.g. "4.0 KiB".
func Format(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Bitrate renders a bit/s figure with SI prefixes, e.g. "9.4 Gbit/s".
func Bitrate(bps float64) string {
	value, prefix := humanize.ComputeSI(bps)
	return fmt.Sprintf("%.2f %sbit/s", value, prefix)
}
