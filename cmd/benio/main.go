// Command benio runs the benchmark server and client.
//
// Usage:
//
//	benio server -s 1G -m "match;func=lambda b: b < 128"
//	benio client -a 10.0.0.1 -a 10.0.0.2:9000 -s 10G
//	benio gen -o digits.txt -n 100M
//	benio methods
//	benio version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/ljishen/Pyben-nio/benio"
	"github.com/ljishen/Pyben-nio/benio/config"
	"github.com/ljishen/Pyben-nio/benio/datafile"
	"github.com/ljishen/Pyben-nio/benio/filter"
	"github.com/ljishen/Pyben-nio/benio/metrics"
	"github.com/ljishen/Pyben-nio/benio/size"
	"github.com/ljishen/Pyben-nio/benio/transfer"
	"github.com/ljishen/Pyben-nio/benio/transport"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "server":
		code = runServer(os.Args[2:])
	case "client":
		code = runClient(os.Args[2:])
	case "gen":
		code = runGen(os.Args[2:])
	case "methods":
		printMethods()
	case "version":
		fmt.Printf("benio %s (%s)\n", benio.Version, runtime.Version())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		code = 2
	}
	os.Exit(code)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `benio %s - data-movement benchmark

Usage:
  benio server  [flags]   stream data to clients
  benio client  [flags]   receive data from one or more servers
  benio gen     [flags]   write a file of random ASCII digits
  benio methods           list filter methods and their parameters
  benio version           print the version

Run "benio <command> -h" for the flags of a command.
`, benio.Version)
}

func printMethods() {
	for _, m := range filter.Methods() {
		fmt.Println(m.Describe())
	}
}

func runServer(args []string) int {
	fl := newFlags("server")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Bind }, "bind address", "b", "bind")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Size }, "bytes to send per connection, e.g. 1G", "s", "size")
	fl.intVar(func(c *config.Config) *int { return &c.Server.Port }, "port to listen on", "p", "port")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Filename }, "data file to send instead of generated data", "f", "filename")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Bufsize }, "buffer size", "l", "bufsize")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Method }, `filter method, "name;key=value;..."`, "m", "method")
	fl.boolVar(func(c *config.Config) *bool { return &c.Server.ZeroCopy }, "send with sendfile, raw method only", "z", "zerocopy")
	fl.intVar(func(c *config.Config) *int { return &c.Server.Accept }, "exit after this many connections, 0 for no limit", "accept")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Transport }, "tcp or quic", "transport")
	fl.boolVar(func(c *config.Config) *bool { return &c.Server.Compress }, "LZ4-compress the stream", "compress")
	fl.strVar(func(c *config.Config) *string { return &c.Server.CompressionLevel }, "fast, default or best", "compression-level")
	fl.strVar(func(c *config.Config) *string { return &c.Server.Seed }, "seed for reproducible generated data", "seed")
	if err := fl.parse(args); err != nil {
		return 2
	}

	cfg, logger, err := fl.load(func(c *config.Config) error { return c.Server.Validate() })
	if err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		return 2
	}
	defer logger.Sync()
	sc := cfg.Server

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var data *datafile.File
	if sc.Filename != "" {
		data, err = datafile.Open(sc.Filename)
	} else {
		data, err = datafile.Temp(config.SizeBytes(sc.Size), sc.Seed)
	}
	if err != nil {
		logger.Error("prepare data file", zap.Error(err))
		return 1
	}
	defer data.Close()
	logger.Info("data file ready", zap.String("name", data.Name()), zap.String("size", size.Format(data.Size())))

	kind, _ := transport.ParseKind(sc.Transport)
	level, _ := transport.ParseCompressionLevel(sc.CompressionLevel)
	method, methodArgs := filter.ParseMethod(sc.Method)
	srv := &transfer.Server{
		Bind:             sc.Bind,
		Port:             sc.Port,
		Size:             config.SizeBytes(sc.Size),
		Data:             data,
		Bufsize:          int(config.SizeBytes(sc.Bufsize)),
		Method:           method,
		Args:             methodArgs,
		ZeroCopy:         sc.ZeroCopy,
		Accept:           sc.Accept,
		Transport:        kind,
		Compress:         sc.Compress,
		CompressionLevel: level,
		Logger:           logger,
		Metrics:          startMetrics(ctx, cfg.Metrics, logger),
	}
	if _, err := srv.Run(ctx); err != nil {
		logger.Error("server finished with errors", zap.Error(err))
		return 1
	}
	return 0
}

func runClient(args []string) int {
	fl := newFlags("client")
	fl.listVar(func(c *config.Config) *[]string { return &c.Client.Addresses }, "server address, host or host:port; repeat or comma-separate", "a", "addresses")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Size }, "total bytes to receive, e.g. 10G", "s", "size")
	fl.intVar(func(c *config.Config) *int { return &c.Client.Port }, "server port for addresses without one", "p", "port")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Bind }, "local address to connect from", "b", "bind")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Bufsize }, "buffer size", "l", "bufsize")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Cache }, "bytes of recent data retained across all servers", "c", "cache")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Method }, `filter method, "name;key=value;..."`, "m", "method")
	fl.strVar(func(c *config.Config) *string { return &c.Client.Transport }, "tcp or quic", "transport")
	fl.boolVar(func(c *config.Config) *bool { return &c.Client.Compress }, "expect an LZ4-compressed stream", "compress")
	fl.strVar(func(c *config.Config) *string { return &c.Client.CompressionLevel }, "fast, default or best", "compression-level")
	if err := fl.parse(args); err != nil {
		return 2
	}

	cfg, logger, err := fl.load(func(c *config.Config) error { return c.Client.Validate() })
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		return 2
	}
	defer logger.Sync()
	cc := cfg.Client

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kind, _ := transport.ParseKind(cc.Transport)
	level, _ := transport.ParseCompressionLevel(cc.CompressionLevel)
	method, methodArgs := filter.ParseMethod(cc.Method)
	c := &transfer.Client{
		Addresses:        cc.Addresses,
		Port:             cc.Port,
		Bind:             cc.Bind,
		Size:             config.SizeBytes(cc.Size),
		Bufsize:          int(config.SizeBytes(cc.Bufsize)),
		Cache:            config.SizeBytes(cc.Cache),
		Method:           method,
		Args:             methodArgs,
		Transport:        kind,
		Compress:         cc.Compress,
		CompressionLevel: level,
		Logger:           logger,
		Metrics:          startMetrics(ctx, cfg.Metrics, logger),
	}
	sum, err := c.Run(ctx)
	fmt.Printf("[SUMMARY] Received %d bytes", sum.Delivered)
	if ratio, ok := sum.MatchRatio(); ok && sum.Raw != sum.Delivered {
		fmt.Printf(" (%.3f%% of %d raw bytes)", ratio*100, sum.Raw)
	}
	fmt.Printf(" in %s, %s\n", sum.Duration, size.Bitrate(sum.Bitrate()))
	if err != nil {
		logger.Error("client finished with errors", zap.Error(err))
		return 1
	}
	return 0
}

func runGen(args []string) int {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	out := fs.String("o", "", "output file")
	count := fs.String("n", "", "number of digits, e.g. 100M")
	workers := fs.Int("workers", runtime.NumCPU(), "parallel writers")
	seed := fs.String("seed", "", "seed for reproducible output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	n, err := size.Parse(*count)
	if err != nil || *out == "" {
		fmt.Fprintln(os.Stderr, "gen: -o and a valid -n are required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := datafile.Digits(ctx, *out, n, *workers, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "gen: %v\n", err)
		return 1
	}
	return 0
}

func startMetrics(ctx context.Context, cfg config.MetricsConfig, logger *zap.Logger) *metrics.Collector {
	if cfg.Addr == "" {
		return nil
	}
	c := metrics.NewCollector(cfg.Namespace, logger)
	go func() {
		if err := metrics.Serve(ctx, cfg.Addr, c); err != nil {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	return c
}

// flags binds command-line flags over a loaded Config. Only flags given
// on the command line override the file and environment.
type flags struct {
	fs         *flag.FlagSet
	configPath string
	apply      map[string]func(*config.Config)
}

func newFlags(name string) *flags {
	f := &flags{
		fs:    flag.NewFlagSet(name, flag.ContinueOnError),
		apply: map[string]func(*config.Config){},
	}
	f.fs.StringVar(&f.configPath, "config", "", "path to YAML config file")
	f.strVar(func(c *config.Config) *string { return &c.Log.Level }, "debug, info, warn or error", "log-level")
	f.strVar(func(c *config.Config) *string { return &c.Log.Format }, "console or json", "log-format")
	f.strVar(func(c *config.Config) *string { return &c.Metrics.Addr }, "serve Prometheus metrics on this address", "metrics-addr")
	return f
}

func (f *flags) strVar(field func(*config.Config) *string, usage string, names ...string) {
	v := new(string)
	for _, name := range names {
		f.fs.StringVar(v, name, "", usage)
		f.apply[name] = func(c *config.Config) { *field(c) = *v }
	}
}

func (f *flags) intVar(field func(*config.Config) *int, usage string, names ...string) {
	v := new(int)
	for _, name := range names {
		f.fs.IntVar(v, name, 0, usage)
		f.apply[name] = func(c *config.Config) { *field(c) = *v }
	}
}

func (f *flags) boolVar(field func(*config.Config) *bool, usage string, names ...string) {
	v := new(bool)
	for _, name := range names {
		f.fs.BoolVar(v, name, false, usage)
		f.apply[name] = func(c *config.Config) { *field(c) = *v }
	}
}

func (f *flags) listVar(field func(*config.Config) *[]string, usage string, names ...string) {
	v := new(listValue)
	for _, name := range names {
		f.fs.Var(v, name, usage)
		f.apply[name] = func(c *config.Config) { *field(c) = *v }
	}
}

func (f *flags) parse(args []string) error {
	err := f.fs.Parse(args)
	if err == nil && f.fs.NArg() > 0 {
		err = fmt.Errorf("unexpected arguments: %v", f.fs.Args())
		fmt.Fprintln(f.fs.Output(), err)
	}
	return err
}

// load resolves the config, applies the flags that were set, validates,
// and builds the logger.
func (f *flags) load(validate func(*config.Config) error) (*config.Config, *zap.Logger, error) {
	loader := config.NewLoader()
	if f.configPath != "" {
		loader = loader.WithConfigPath(f.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}
	f.fs.Visit(func(fl *flag.Flag) {
		if apply, ok := f.apply[fl.Name]; ok {
			apply(cfg)
		}
	})
	if err := errors.Join(cfg.Log.Validate(), validate(cfg)); err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
