package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/ljishen/Pyben-nio/benio/filter"
	"github.com/ljishen/Pyben-nio/benio/size"
	"github.com/ljishen/Pyben-nio/benio/transport"
)

// Validate checks the server section.
func (c ServerConfig) Validate() error {
	var errs []error
	if err := checkPort(c.Port); err != nil {
		errs = append(errs, err)
	}
	n, err := parseSize("size", c.Size, 0)
	errs = append(errs, err)
	if err == nil && n == 0 && c.Filename == "" {
		errs = append(errs, errors.New("server: size is required when no data file is given"))
	}
	_, err = parseSize("bufsize", c.Bufsize, 1)
	errs = append(errs, err)
	if c.Accept < 0 {
		errs = append(errs, fmt.Errorf("server: accept must be >= 0, got %d", c.Accept))
	}
	kind, err := transport.ParseKind(c.Transport)
	errs = append(errs, err)
	if c.Compress {
		_, err = transport.ParseCompressionLevel(c.CompressionLevel)
		errs = append(errs, err)
	}

	name, args := filter.ParseMethod(c.Method)
	errs = append(errs, filter.Validate(methodOrDefault(name), args))
	if c.ZeroCopy {
		if m := methodOrDefault(name); m != filter.DefaultMethod {
			errs = append(errs, fmt.Errorf("%w: zerocopy cannot be combined with method %q", filter.ErrConfiguration, m))
		}
		if c.Compress {
			errs = append(errs, fmt.Errorf("%w: zerocopy cannot be combined with compression", filter.ErrConfiguration))
		}
		if kind == transport.QUIC {
			errs = append(errs, fmt.Errorf("%w: zerocopy requires tcp", filter.ErrConfiguration))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the client section.
func (c ClientConfig) Validate() error {
	var errs []error
	if len(c.Addresses) == 0 {
		errs = append(errs, errors.New("client: at least one server address is required"))
	}
	if err := checkPort(c.Port); err != nil {
		errs = append(errs, err)
	}
	_, err := parseSize("size", c.Size, 1)
	errs = append(errs, err)
	_, err = parseSize("bufsize", c.Bufsize, 1)
	errs = append(errs, err)
	_, err = parseSize("cache", c.Cache, 0)
	errs = append(errs, err)
	kind, err := transport.ParseKind(c.Transport)
	errs = append(errs, err)
	if kind == transport.QUIC && c.Bind != "" {
		errs = append(errs, errors.New("client: bind address is not supported with quic"))
	}
	if c.Compress {
		_, err = transport.ParseCompressionLevel(c.CompressionLevel)
		errs = append(errs, err)
	}
	name, args := filter.ParseMethod(c.Method)
	errs = append(errs, filter.Validate(methodOrDefault(name), args))
	return errors.Join(errs...)
}

// Validate checks the logging section.
func (c LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Level)
	}
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
	return nil
}

// SizeBytes returns a validated size field in bytes.
func SizeBytes(s string) int64 {
	if s == "" {
		return 0
	}
	return size.MustParse(s)
}

func methodOrDefault(name string) string {
	if name == "" {
		return filter.DefaultMethod
	}
	return name
}

func checkPort(p int) error {
	if p < 0 || p > math.MaxUint16 {
		return fmt.Errorf("port %d out of range", p)
	}
	return nil
}

func parseSize(field, s string, minimum int64) (int64, error) {
	if s == "" {
		if minimum > 0 {
			return 0, fmt.Errorf("%s is required", field)
		}
		return 0, nil
	}
	n, err := size.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if n < minimum {
		return 0, fmt.Errorf("%s must be at least %d bytes, got %q", field, minimum, s)
	}
	if field == "bufsize" && n > math.MaxInt32 {
		return 0, fmt.Errorf("%s must not exceed %s", field, size.Format(math.MaxInt32))
	}
	return n, nil
}
