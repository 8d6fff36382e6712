package filter

import (
	"errors"
	"strings"
)

// Param declares one named method parameter. A Param with an empty Default
// is required.
type Param struct {
	Name    string
	Default string
	Help    string
	Convert func(string) (any, error)
}

// Values holds converted parameter values keyed by name.
type Values map[string]any

// ParseMethod splits a method spec of the form "name;key=value;key:value"
// into the method name and its raw arguments.
func ParseMethod(spec string) (name string, args []string) {
	parts := strings.Split(spec, ";")
	name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			args = append(args, p)
		}
	}
	return name, args
}

// bind converts raw "key=value" or "key:value" arguments against params.
// The first '=' or ':' separates key from value, so values may contain
// either character.
func bind(method string, params []Param, args []string) (Values, error) {
	raw := make(map[string]string, len(args))
	for _, arg := range args {
		i := strings.IndexAny(arg, "=:")
		if i <= 0 {
			return nil, configErr(method, "", "malformed argument %q, want key=value", arg)
		}
		key := strings.TrimSpace(arg[:i])
		if _, dup := raw[key]; dup {
			return nil, configErr(method, key, "given more than once")
		}
		raw[key] = strings.TrimSpace(arg[i+1:])
	}

	known := make(map[string]bool, len(params))
	vals := make(Values, len(params))
	for _, p := range params {
		known[p.Name] = true
		s, ok := raw[p.Name]
		if !ok {
			if p.Default == "" {
				return nil, configErr(method, p.Name, "missing required parameter")
			}
			s = p.Default
		}
		v, err := p.Convert(s)
		if err != nil {
			return nil, &ConfigError{Method: method, Param: p.Name, Err: err}
		}
		vals[p.Name] = v
	}

	var unknown []error
	for key := range raw {
		if !known[key] {
			unknown = append(unknown, configErr(method, key, "unknown parameter"))
		}
	}
	if len(unknown) > 0 {
		return nil, errors.Join(unknown...)
	}
	return vals, nil
}
