package bserve

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/netutil"
)

const (
	// DefaultMaxHeaderBytes bounds the request line plus headers.
	DefaultMaxHeaderBytes = 64 << 10
	// DefaultMaxBodyBytes bounds the body of POST and PUT requests.
	DefaultMaxBodyBytes = 1 << 20
	// DefaultBodyIdleTimeout ends a POST or PUT body without Content-Length once the client stops sending.
	DefaultBodyIdleTimeout = 250 * time.Millisecond
)

type config struct {
	logs            Logger
	files           FileSource
	docRoot         string
	maxHeaderBytes  int
	maxBodyBytes    int
	maxConns        int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	bodyIdleTimeout time.Duration
	contentLength   bool
	percentDecoding bool
}

// Option configures a [Server].
type Option func(*config)

// WithLogger sets the logger. By default the standard library's default logger is used.
func WithLogger(l Logger) Option {
	return func(c *config) { c.logs = l }
}

// WithDocumentRoot serves static files from dir instead of the working directory.
func WithDocumentRoot(dir string) Option {
	return func(c *config) { c.docRoot = dir }
}

// WithFileSource replaces the document root with another source of static files.
func WithFileSource(fs FileSource) Option {
	return func(c *config) { c.files = fs }
}

// WithMaxHeaderBytes bounds the size of the request line plus headers. Larger requests get a 431.
func WithMaxHeaderBytes(n int) Option {
	return func(c *config) { c.maxHeaderBytes = n }
}

// WithMaxBodyBytes bounds the Content-Length accepted for POST and PUT. Larger requests get a 413.
func WithMaxBodyBytes(n int) Option {
	return func(c *config) { c.maxBodyBytes = n }
}

// WithMaxConns limits the number of connections served at the same time. Zero means no limit, which is the
// default.
func WithMaxConns(n int) Option {
	return func(c *config) { c.maxConns = n }
}

// WithReadTimeout sets a deadline for reading the whole request.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout sets a deadline for writing the response.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) { c.writeTimeout = d }
}

// WithBodyIdleTimeout sets how long a POST or PUT body without Content-Length may stay quiet before it is
// considered complete. The body also ends when the client closes its side. Zero waits for that close only.
func WithBodyIdleTimeout(d time.Duration) Option {
	return func(c *config) { c.bodyIdleTimeout = d }
}

// WithContentLength adds a Content-Length header to every response.
func WithContentLength() Option {
	return func(c *config) { c.contentLength = true }
}

// WithPercentDecoding percent-decodes query and body parameters.
func WithPercentDecoding() Option {
	return func(c *config) { c.percentDecoding = true }
}

// Server accepts connections and serves one request on each of them.
type Server struct {
	addr string
	cfg  config

	mu         sync.Mutex
	listener   net.Listener
	files      FileSource
	ownedFiles io.Closer

	closing   atomic.Bool
	closeOnce sync.Once
	conns     sync.WaitGroup
}

// NewServer creates a server for the TCP address addr, e.g. "127.0.0.1:8080".
func NewServer(addr string, opts ...Option) *Server {
	cfg := config{
		logs:            NewStdLogger(nil),
		maxHeaderBytes:  DefaultMaxHeaderBytes,
		maxBodyBytes:    DefaultMaxBodyBytes,
		bodyIdleTimeout: DefaultBodyIdleTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Server{addr: addr, cfg: cfg, files: cfg.files}
}

// Bind opens the document root and starts listening. Errors are marked with [ErrBind] and are meant to abort
// startup. Calling Bind on a bound server does nothing.
func (s *Server) Bind() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	if s.closing.Load() {
		return errors.Mark(errors.New("server is closed"), ErrBind)
	}

	if s.files == nil {
		root := s.cfg.docRoot
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return errors.Mark(errors.Wrap(err, "determine document root"), ErrBind)
			}
			root = wd
		}

		dir, err := OpenDir(root)
		if err != nil {
			return errors.Mark(err, ErrBind)
		}

		s.files, s.ownedFiles = dir, dir
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		_ = s.closeFiles()
		return errors.Mark(errors.Wrapf(err, "listen on %q", s.addr), ErrBind)
	}

	if s.cfg.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.maxConns)
	}

	s.listener = ln

	return nil
}

// Addr returns the address the server listens on, or nil before [Server.Bind].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Serve accepts connections until the server is closed or ctx is done. Every connection is served on its own
// goroutine against the routes that were registered on router at the moment it was accepted. The server is bound
// first if that did not happen yet.
func (s *Server) Serve(ctx context.Context, router *Router) error {
	if err := s.Bind(); err != nil {
		return err
	}

	s.mu.Lock()
	ln, files := s.listener, s.files
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, s.closeListener)
	defer stop()

	var tempDelay time.Duration
	for {
		rw, err := ln.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.cfg.logs.LogAcceptError(err)

			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay = min(2*tempDelay, time.Second)
			}

			time.Sleep(tempDelay)

			continue
		}

		tempDelay = 0

		if !s.track() {
			_ = rw.Close()
			return nil
		}

		c := &conn{rwc: rw, routes: router.Snapshot(), files: files, cfg: &s.cfg}
		go func() {
			defer s.conns.Done()
			c.serve(ctx)
		}()
	}
}

// Start binds and serves with the routes of router. It blocks until the server is closed.
func (s *Server) Start(router *Router) error {
	if err := s.Bind(); err != nil {
		return err
	}

	return s.Serve(context.Background(), router)
}

// Close stops accepting connections and releases the document root. Connections being served are not waited for.
func (s *Server) Close() error {
	s.closeListener()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeFiles()
}

// Shutdown stops accepting connections and waits for the ones being served to finish, or for ctx to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeListener()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for connections")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeFiles()
}

// track counts a connection as being served unless the server is closing. No connection is counted once
// closeListener returned.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing.Load() {
		return false
	}

	s.conns.Add(1)

	return true
}

func (s *Server) closeListener() {
	s.mu.Lock()
	s.closing.Store(true)
	s.mu.Unlock()

	s.closeOnce.Do(func() {
		s.mu.Lock()
		ln := s.listener
		s.mu.Unlock()

		if ln != nil {
			if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.cfg.logs.LogAcceptError(errors.Wrap(err, "close listener"))
			}
		}
	})
}

// closeFiles must be called with mu held.
func (s *Server) closeFiles() error {
	if s.ownedFiles == nil {
		return nil
	}

	err := s.ownedFiles.Close()
	s.files, s.ownedFiles = s.cfg.files, nil

	return err
}
