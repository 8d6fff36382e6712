package filter

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
)

const paramStep = "step"

var linspaceMethod = Method{
	Name: "linspace",
	Help: "Deliver evenly spaced bytes: stream positions 0, step, 2*step, ...",
	Params: []Param{{
		Name:    paramStep,
		Default: "1",
		Help:    "Distance between two delivered bytes in the stream (>= 1).",
		Convert: convertStep,
	}},
	build: func(src Source, bufsize int, vals Values, log *zap.Logger) (Filter, error) {
		return newLinspace(src, bufsize, vals[paramStep].(int64), log), nil
	},
}

func convertStep(s string) (any, error) {
	step, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	if step < 1 {
		return nil, fmt.Errorf("must be >= 1, got %d", step)
	}
	return step, nil
}

// linspace tracks the position of the next raw byte in the whole stream,
// across reads and file wraparounds.
type linspace struct {
	*engine
	step int64
	pos  int64
}

func newLinspace(src Source, bufsize int, step int64, log *zap.Logger) *linspace {
	l := &linspace{engine: newEngine(src, bufsize, log), step: step}
	l.apply = l.pick
	l.need = func(missing int) int {
		if int64(missing) > math.MaxInt/step {
			return math.MaxInt
		}
		return int(int64(missing) * step)
	}
	return l
}

func (l *linspace) pick(dst, raw []byte) []byte {
	first := (l.step - l.pos%l.step) % l.step
	for i := first; i < int64(len(raw)); i += l.step {
		dst = append(dst, raw[i])
	}
	l.pos += int64(len(raw))
	return dst
}
