package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ljishen/Pyben-nio/benio/allot"
	"github.com/ljishen/Pyben-nio/benio/cache"
	"github.com/ljishen/Pyben-nio/benio/filter"
	"github.com/ljishen/Pyben-nio/benio/metrics"
	"github.com/ljishen/Pyben-nio/benio/protocol"
	"github.com/ljishen/Pyben-nio/benio/transport"
)

// Client receives Size raw bytes split across Addresses, one worker per
// address.
type Client struct {
	Addresses []string
	// Port is used for addresses that do not carry their own.
	Port int
	Bind string
	Size int64

	Bufsize int
	// Cache bounds the retained bytes of all workers together.
	Cache int64

	Method string
	Args   []string

	Transport        transport.Kind
	Compress         bool
	CompressionLevel transport.CompressionLevel

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Run starts every worker and waits for all of them. A failing endpoint
// does not stop the others; its error is part of the returned error and
// its bytes still count in the Summary.
func (c *Client) Run(ctx context.Context) (Summary, error) {
	n := len(c.Addresses)
	if n == 0 {
		return Summary{}, ErrNoEndpoints
	}
	if err := filter.Validate(c.method(), c.Args); err != nil {
		return Summary{}, err
	}
	if c.Bufsize <= 0 {
		return Summary{}, fmt.Errorf("transfer: buffer size must be positive, got %d", c.Bufsize)
	}
	if c.Size <= 0 {
		return Summary{}, fmt.Errorf("transfer: size must be positive, got %d", c.Size)
	}
	sizes, err := allot.Sizes(c.Size, n)
	if err != nil {
		return Summary{}, err
	}

	log := c.logger()
	log.Info("starting transfer",
		zap.Int("workers", n),
		zap.Int64("size", c.Size),
		zap.String("method", c.method()),
		zap.String("transport", string(c.Transport)))

	retain := int(c.Cache / int64(n))
	results := make([]Result, n)
	var g errgroup.Group
	for i, addr := range c.Addresses {
		g.Go(func() error {
			results[i] = c.receive(ctx, i, addr, sizes[i], retain, log)
			return nil
		})
	}
	_ = g.Wait()

	sum := Aggregate(results)
	log.Info("summary", sum.Fields()...)
	return sum, sum.Err()
}

func (c *Client) receive(ctx context.Context, worker int, addr string, size int64, retain int, log *zap.Logger) (res Result) {
	res.Endpoint = transport.Address(addr, c.Port)
	log = log.With(zap.Int("worker", worker), zap.String("server", res.Endpoint))
	if size == 0 {
		// a zero request asks for the server's default size
		return res
	}

	done := c.Metrics.Started(metrics.RoleClient)
	defer func() {
		if res.Err != nil {
			log.Error("transfer failed", zap.Error(res.Err))
		}
		done(res.Err, res.Duration())
	}()

	conn, err := transport.Dial(ctx, c.Transport, addr, c.Port, c.Bind)
	if err != nil {
		res.Err = fmt.Errorf("%w: dial: %w", ErrStream, err)
		return res
	}
	log.Info("connected", zap.Int64("size", size))
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := protocol.WriteRequest(conn, protocol.Request{Size: size}); err != nil {
		_ = conn.Close()
		res.Err = fmt.Errorf("%w: send request: %w", ErrStream, err)
		return res
	}

	stream := conn
	if c.Compress {
		if stream, err = transport.Compress(conn, c.CompressionLevel); err != nil {
			_ = conn.Close()
			res.Err = err
			return res
		}
	}

	f, err := filter.New(c.method(), filter.SocketSource(stream), c.Bufsize, c.Args, log)
	if err != nil {
		_ = stream.Close()
		res.Err = err
		return res
	}
	defer f.Close()

	ring := cache.New(retain)
	res.Start = time.Now()
	left := size
	for left > 0 {
		data, raw, err := f.Read(int(min(int64(c.Bufsize), left)))
		if err != nil {
			res.Err = err
			break
		}
		_, _ = ring.Write(data)
		res.Delivered += int64(len(data))
		c.Metrics.AddBytes(metrics.RoleClient, len(data), raw)
		if len(data) == 0 && raw == 0 {
			break
		}
		left -= int64(raw)
		if ce := log.Check(zap.DebugLevel, "received"); ce != nil {
			ce.Write(zap.Int("bytes", len(data)), zap.Int("raw", raw), preview(data))
		}
	}
	res.End = time.Now()
	res.Raw = f.Count()
	res.Retained = ring.Bytes()
	if res.Err != nil && ctx.Err() != nil {
		res.Err = errors.Join(ctx.Err(), res.Err)
	}

	log.Info("received",
		zap.Int64("bytes", res.Delivered),
		zap.Int64("raw", res.Raw),
		zap.Duration("duration", res.Duration()))
	return res
}

func (c *Client) method() string {
	if c.Method == "" {
		return filter.DefaultMethod
	}
	return c.Method
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop().Named("client")
	}
	return c.Logger.Named("client")
}
