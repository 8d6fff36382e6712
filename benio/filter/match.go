package filter

import (
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"

	"github.com/ljishen/Pyben-nio/benio/filter/predicate"
	"github.com/ljishen/Pyben-nio/benio/size"
)

const (
	paramFunc = "func"
	paramMPWS = "mpws"
)

var matchMethod = Method{
	Name: "match",
	Help: "Deliver only the bytes that satisfy a predicate, filtering chunks in parallel.",
	Params: []Param{
		{
			Name: paramFunc,
			Help: "Predicate over one byte value, as 'lambda v: <expr>' or an expression over b. " +
				"The result is tested for truthiness. Bit tests use bitand(b, 1), bitor, bitxor and bitshr.",
			Convert: func(s string) (any, error) { return predicate.Compile(s) },
		},
		{
			Name:    paramMPWS,
			Default: "50MB",
			Help:    "Minimum number of bytes each worker filters per raw buffer. Together with the buffer size it decides the pool size.",
			Convert: func(s string) (any, error) {
				n, err := size.Parse(s)
				if err != nil {
					return nil, err
				}
				if n < 1 || n > math.MaxInt32 {
					return nil, fmt.Errorf("must be between 1 and %d bytes, got %d", math.MaxInt32, n)
				}
				return int(n), nil
			},
		},
	},
	build: func(src Source, bufsize int, vals Values, log *zap.Logger) (Filter, error) {
		pred := vals[paramFunc].(predicate.Predicate)
		m := vals[paramMPWS].(int)

		workers, mpws := Workers(bufsize, m, runtime.GOMAXPROCS(0))
		if mpws != m {
			log.Warn("not enough CPUs available, enlarging per-worker size",
				zap.String("param", paramMPWS), zap.Int("requested", m), zap.Int("effective", mpws))
		}
		return newMatch(src, bufsize, pred, mpws, workers, log), nil
	},
}

type match struct {
	*engine
	pred predicate.Predicate
	mpws int
	pool *pool
}

func newMatch(src Source, bufsize int, pred predicate.Predicate, mpws, workers int, log *zap.Logger) *match {
	m := &match{
		engine: newEngine(src, bufsize, log),
		pred:   pred,
		mpws:   mpws,
	}
	m.apply = m.filter
	// every fill reads a whole raw buffer so the pool sees full chunks
	m.need = nil
	m.strict = true
	if workers > 1 {
		m.pool = newPool(&m.pred, workers)
		m.onClose = m.pool.close
	}
	log.Info("filter workers started", zap.Int("workers", workers), zap.Int("mpws", mpws),
		zap.Stringer("predicate", pred), zap.Int("matching_values", pred.Matches()))
	return m
}

func (m *match) filter(dst, raw []byte) []byte {
	if m.pool == nil {
		return m.pred.Filter(dst, raw)
	}
	bounds := Partition(len(raw), m.mpws)
	if len(bounds) == 1 {
		return m.pred.Filter(dst, raw)
	}
	return m.pool.run(dst, raw, bounds)
}
