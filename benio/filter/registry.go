package filter

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Method describes a registered filter kind.
type Method struct {
	Name   string
	Help   string
	Params []Param

	build func(src Source, bufsize int, vals Values, log *zap.Logger) (Filter, error)
}

// DefaultMethod is used when no method is configured.
const DefaultMethod = "raw"

var registry = map[string]Method{}

func register(m Method) {
	if _, dup := registry[m.Name]; dup {
		panic("filter: method registered twice: " + m.Name)
	}
	registry[m.Name] = m
}

// Lookup returns the method registered under name.
func Lookup(name string) (Method, bool) {
	m, ok := registry[name]
	return m, ok
}

// Methods lists the registered methods sorted by name.
func Methods() []Method {
	out := make([]Method, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks a method name and its arguments without building a
// filter.
func Validate(method string, args []string) error {
	m, ok := Lookup(method)
	if !ok {
		return unknownMethod(method)
	}
	_, err := bind(method, m.Params, args)
	return err
}

// New builds a filter of the named method over src. Configuration errors
// are reported before src is touched.
func New(method string, src Source, bufsize int, args []string, logger *zap.Logger) (Filter, error) {
	if method == "" {
		method = DefaultMethod
	}
	m, ok := Lookup(method)
	if !ok {
		return nil, unknownMethod(method)
	}
	if bufsize <= 0 {
		return nil, configErr(method, "", "buffer size must be positive, got %d", bufsize)
	}
	if src == nil {
		return nil, configErr(method, "", "nil source")
	}
	vals, err := bind(method, m.Params, args)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("filter").With(zap.String("method", method), zap.Stringer("source", src.Kind()))
	log.Debug("method parameters", zap.Strings("args", args))
	return m.build(src, bufsize, vals, log)
}

func unknownMethod(name string) error {
	names := make([]string, 0, len(registry))
	for _, m := range Methods() {
		names = append(names, m.Name)
	}
	return configErr(name, "", "unknown method, choose one of %v", names)
}

func init() {
	register(rawMethod)
	register(matchMethod)
	register(linspaceMethod)
}

// Describe renders a method and its parameters for help output.
func (m Method) Describe() string {
	s := fmt.Sprintf("%s: %s", m.Name, m.Help)
	for _, p := range m.Params {
		def := "required"
		if p.Default != "" {
			def = "default " + p.Default
		}
		s += fmt.Sprintf("\n  %s (%s): %s", p.Name, def, p.Help)
	}
	return s
}
