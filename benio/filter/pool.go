package filter

import (
	"sync"
	"sync/atomic"

	"github.com/ljishen/Pyben-nio/benio/filter/predicate"
)

type job struct {
	src []byte
	out chan []byte
}

// pool filters chunks in parallel. Each job carries its own result
// channel, so results are collected in submission order no matter which
// worker finishes first.
type pool struct {
	pred    *predicate.Predicate
	workers int
	jobs    chan job
	wg      sync.WaitGroup
	closed  atomic.Bool
}

func newPool(pred *predicate.Predicate, workers int) *pool {
	if workers <= 0 {
		workers = 1
	}
	p := &pool{
		pred:    pred,
		workers: workers,
		jobs:    make(chan job, workers*2),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.out <- p.pred.Filter(make([]byte, 0, len(j.src)), j.src)
	}
}

// run filters raw split at bounds and appends the matches to dst in stream
// order. raw must not be modified until run returns.
func (p *pool) run(dst, raw []byte, bounds []int) []byte {
	results := make([]chan []byte, len(bounds))
	start := 0
	for i, end := range bounds {
		results[i] = make(chan []byte, 1)
		p.jobs <- job{src: raw[start:end], out: results[i]}
		start = end
	}
	for _, ch := range results {
		dst = append(dst, <-ch...)
	}
	return dst
}

func (p *pool) close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
}
