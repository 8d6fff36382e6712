// Package predicate compiles byte predicates from a small, side-effect free
// expression language.
//
// A predicate is written either as a one-parameter lambda,
//
//	lambda v: v % 2 == 0
//
// or as a bare expression over the byte variable b,
//
//	b >= 48 and b <= 57
//
// Bitwise operations are builtin functions rather than infix operators:
//
//	lambda v: bitand(v, 0x80) != 0
//
// Expressions are compiled with expr-lang/expr against an environment that
// holds nothing but the byte value, then evaluated once for every possible
// byte to build a truth table. Filtering never runs user code.
package predicate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
)

var (
	ErrArity   = errors.New("predicate: expression must take exactly one argument")
	ErrCompile = errors.New("predicate: invalid expression")
)

// DefaultParam names the byte in a bare expression.
const DefaultParam = "b"

const maxNodes = 4096

// Predicate is an immutable byte predicate. The zero value matches nothing.
// It is safe to share between goroutines.
type Predicate struct {
	table [256]bool
	src   string
}

// Compile parses src and evaluates it for every byte value.
func Compile(src string) (Predicate, error) {
	param, body, err := splitLambda(src)
	if err != nil {
		return Predicate{}, err
	}

	env := map[string]any{param: 0}
	program, err := expr.Compile(body, expr.Env(env), expr.MaxNodes(maxNodes))
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: %q: %v", ErrCompile, src, err)
	}

	p := Predicate{src: src}
	for v := 0; v < 256; v++ {
		env[param] = v
		out, err := expr.Run(program, env)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w: %q at byte %d: %v", ErrCompile, src, v, err)
		}
		p.table[v] = truthy(out)
	}
	return p, nil
}

// MustCompile is Compile for expressions known to be valid.
func MustCompile(src string) Predicate {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// FromFunc builds a Predicate from a Go function.
func FromFunc(name string, fn func(byte) bool) Predicate {
	p := Predicate{src: name}
	for v := 0; v < 256; v++ {
		p.table[v] = fn(byte(v))
	}
	return p
}

// Match reports whether b satisfies the predicate.
func (p Predicate) Match(b byte) bool { return p.table[b] }

// Filter appends the bytes of src that satisfy the predicate to dst.
func (p *Predicate) Filter(dst, src []byte) []byte {
	for _, b := range src {
		if p.table[b] {
			dst = append(dst, b)
		}
	}
	return dst
}

// Matches returns how many of the 256 byte values satisfy the predicate.
func (p Predicate) Matches() int {
	n := 0
	for _, ok := range p.table {
		if ok {
			n++
		}
	}
	return n
}

func (p Predicate) String() string { return p.src }

func splitLambda(src string) (param, body string, err error) {
	s := strings.TrimSpace(src)
	if s == "" {
		return "", "", fmt.Errorf("%w: empty expression", ErrCompile)
	}

	rest, ok := strings.CutPrefix(s, "lambda")
	if !ok || (rest != "" && !unicode.IsSpace(rune(rest[0])) && rest[0] != ':') {
		return DefaultParam, s, nil
	}

	head, body, found := strings.Cut(rest, ":")
	if !found {
		return "", "", fmt.Errorf("%w: %q: lambda without ':'", ErrCompile, src)
	}

	var params []string
	for _, name := range strings.Split(head, ",") {
		if name = strings.TrimSpace(name); name != "" {
			params = append(params, name)
		}
	}
	if len(params) != 1 {
		return "", "", fmt.Errorf("%w: %q declares %d", ErrArity, src, len(params))
	}
	if !isIdent(params[0]) {
		return "", "", fmt.Errorf("%w: %q: bad parameter name %q", ErrCompile, src, params[0])
	}
	if strings.TrimSpace(body) == "" {
		return "", "", fmt.Errorf("%w: %q: empty lambda body", ErrCompile, src)
	}
	return params[0], body, nil
}

func isIdent(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}

// truthy follows the usual scripting conventions: false, zero numbers,
// empty strings and collections, and nil are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
