package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ljishen/Pyben-nio/benio/datafile"
	"github.com/ljishen/Pyben-nio/benio/filter"
	"github.com/ljishen/Pyben-nio/benio/metrics"
	"github.com/ljishen/Pyben-nio/benio/protocol"
	"github.com/ljishen/Pyben-nio/benio/transport"
)

var (
	ErrNoData   = errors.New("transfer: server has no data file")
	ErrZeroCopy = errors.New("transfer: zero-copy needs a raw tcp stream")
)

// Server streams Data, filtered by Method, to every accepted connection.
type Server struct {
	Bind string
	Port int
	// Size is sent to clients whose request does not name a size.
	Size int64
	Data *datafile.File

	Bufsize int
	Method  string
	Args    []string
	// ZeroCopy sends Data with sendfile and bypasses the filter.
	ZeroCopy bool

	// Accept stops the server after that many connections; zero means
	// no limit.
	Accept int

	Transport        transport.Kind
	Compress         bool
	CompressionLevel transport.CompressionLevel

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Listen opens the server's listener.
func (s *Server) Listen(ctx context.Context) (transport.Listener, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	ln, err := transport.Listen(ctx, s.Transport, s.Bind, s.Port)
	if err != nil {
		return nil, err
	}
	s.logger().Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("transport", string(s.Transport)),
		zap.String("method", s.method()),
		zap.Bool("zerocopy", s.ZeroCopy))
	return ln, nil
}

// Run listens and serves until Accept connections are done or ctx ends.
func (s *Server) Run(ctx context.Context) (Summary, error) {
	ln, err := s.Listen(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer ln.Close()
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln and serves each on its own goroutine.
// It returns once the accept limit is reached or ctx ends, after every
// running transfer has finished.
func (s *Server) Serve(ctx context.Context, ln transport.Listener) (Summary, error) {
	if err := s.check(); err != nil {
		return Summary{}, err
	}
	log := s.logger()

	var (
		mu        sync.Mutex
		results   []Result
		acceptErr error
		g         errgroup.Group
	)
	for n := 0; s.Accept <= 0 || n < s.Accept; n++ {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				acceptErr = fmt.Errorf("transfer: accept: %w", err)
			}
			break
		}
		g.Go(func() error {
			r := s.serve(ctx, n, conn, log)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sum := Aggregate(results)
	log.Info("summary", sum.Fields()...)
	return sum, errors.Join(acceptErr, sum.Err())
}

func (s *Server) serve(ctx context.Context, worker int, conn transport.Conn, log *zap.Logger) (res Result) {
	res.Endpoint = conn.RemoteAddr().String()
	log = log.With(zap.Int("worker", worker), zap.String("client", res.Endpoint))

	done := s.Metrics.Started(metrics.RoleServer)
	defer func() {
		if res.Err != nil {
			log.Error("transfer failed", zap.Error(res.Err))
		}
		done(res.Err, res.Duration())
	}()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req, err := protocol.ReadRequest(conn)
	if err != nil {
		_ = conn.Close()
		res.Err = err
		return res
	}
	size := req.Size
	if size <= 0 {
		size = s.Size
	}
	log.Info("accepted", zap.Int64("size", size))

	res.Start = time.Now()
	if s.ZeroCopy {
		res.Delivered, res.Err = s.sendZeroCopy(conn, size)
		res.Raw = res.Delivered
		_ = conn.Close()
	} else {
		res.Delivered, res.Raw, res.Err = s.sendFiltered(conn, size, log)
	}
	res.End = time.Now()

	if res.Err != nil && transport.PeerGone(res.Err) {
		log.Warn("client went away", zap.Error(res.Err))
		res.Err = nil
	}
	log.Info("sent",
		zap.Int64("bytes", res.Delivered),
		zap.Int64("raw", res.Raw),
		zap.Duration("duration", res.Duration()))
	return res
}

func (s *Server) sendFiltered(conn transport.Conn, size int64, log *zap.Logger) (sent, raw int64, err error) {
	w := conn
	if s.Compress {
		if w, err = transport.Compress(conn, s.CompressionLevel); err != nil {
			_ = conn.Close()
			return 0, 0, err
		}
	}

	f, err := filter.New(s.method(), filter.FileSource(s.Data.Section()), s.Bufsize, s.Args, log)
	if err != nil {
		_ = w.Close()
		return 0, 0, err
	}
	defer func() {
		raw = f.Count()
		if cerr := w.Close(); err == nil && cerr != nil && !transport.PeerGone(cerr) {
			err = fmt.Errorf("%w: close: %w", ErrStream, cerr)
		}
		_ = f.Close()
	}()

	for left := size; left > 0; {
		data, _, err := f.Read(int(min(int64(s.Bufsize), left)))
		if err != nil {
			return sent, raw, err
		}
		n, err := w.Write(data)
		sent += int64(n)
		s.Metrics.AddBytes(metrics.RoleServer, n, 0)
		if err != nil {
			return sent, raw, fmt.Errorf("%w: %w", ErrStream, err)
		}
		left -= int64(n)
		if ce := log.Check(zap.DebugLevel, "sent"); ce != nil {
			ce.Write(zap.Int("bytes", n), preview(data))
		}
	}
	return sent, raw, nil
}

// sendZeroCopy sends the data file from its start, over and over, until
// size bytes are out.
func (s *Server) sendZeroCopy(conn transport.Conn, size int64) (int64, error) {
	nc, ok := conn.(net.Conn)
	if !ok {
		return 0, ErrZeroCopy
	}
	var sent int64
	for left := size; left > 0; {
		n, err := transport.SendFile(nc, s.Data.OSFile(), 0, min(left, s.Data.Size()))
		sent += n
		s.Metrics.AddBytes(metrics.RoleServer, int(n), int(n))
		if err != nil {
			return sent, fmt.Errorf("%w: %w", ErrStream, err)
		}
		left -= n
	}
	return sent, nil
}

func (s *Server) check() error {
	if s.Data == nil {
		return ErrNoData
	}
	if s.ZeroCopy {
		if s.Compress || (s.Transport != "" && s.Transport != transport.TCP) || s.method() != filter.DefaultMethod {
			return ErrZeroCopy
		}
		return nil
	}
	if s.Bufsize <= 0 {
		return fmt.Errorf("transfer: buffer size must be positive, got %d", s.Bufsize)
	}
	return filter.Validate(s.method(), s.Args)
}

func (s *Server) method() string {
	if s.Method == "" {
		return filter.DefaultMethod
	}
	return s.Method
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop().Named("server")
	}
	return s.Logger.Named("server")
}
