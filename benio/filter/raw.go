package filter

import "go.uber.org/zap"

var rawMethod = Method{
	Name: "raw",
	Help: "Deliver the stream unchanged.",
	build: func(src Source, bufsize int, _ Values, log *zap.Logger) (Filter, error) {
		e := newEngine(src, bufsize, log)
		e.apply = func(dst, raw []byte) []byte { return append(dst, raw...) }
		return e, nil
	},
}
