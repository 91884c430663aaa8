package bserve

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const readChunkSize = 4096

var headerTerminator = []byte("\r\n\r\n")

// rawRequest is what is read off the wire before any routing takes place.
type rawRequest struct {
	method string
	target string
	body   []byte
}

// hasBody reports whether the method carries its parameters in the body.
func hasBody(method string) bool {
	return method == "POST" || method == "PUT"
}

// readLimits bounds what readRequest accepts and how long it waits for a body without Content-Length.
type readLimits struct {
	maxHeaderBytes int
	maxBodyBytes   int
	bodyIdle       time.Duration
	deadline       time.Time
}

// readDeadliner is implemented by connections that can time out a blocked read.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// readRequest reads the request head until the blank line that ends it, then the body for POST and PUT. Empty
// lines before the request line are skipped. A Content-Length header makes it read exactly that many body bytes,
// without one the body runs until EOF or until the client stays quiet for lim.bodyIdle.
func readRequest(r io.Reader, lim readLimits) (*rawRequest, error) {
	var (
		buf       = make([]byte, 0, readChunkSize)
		headEnd   = -1
		bodyStart int
		scanned   int
		eof       bool
		err       error
	)

	for headEnd < 0 {
		if scanned == 0 {
			buf = bytes.TrimLeft(buf, crlf)
		}

		from := max(0, scanned-len(headerTerminator)+1)
		if i := bytes.Index(buf[from:], headerTerminator); i >= 0 {
			headEnd, bodyStart = from+i, from+i+len(headerTerminator)
			break
		}
		scanned = len(buf)

		if len(buf) > lim.maxHeaderBytes {
			return nil, headTooLarge(lim.maxHeaderBytes)
		}

		if eof {
			if len(buf) == 0 {
				return nil, errors.Mark(errors.Wrap(io.EOF, "read request"), ErrConnectionRead)
			}

			headEnd, bodyStart = len(buf), len(buf)
			break
		}

		if buf, err = fill(r, buf); err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, errors.Mark(errors.Wrap(err, "read request head"), ErrConnectionRead)
			}
			eof = true
		}
	}

	if headEnd > lim.maxHeaderBytes {
		return nil, headTooLarge(lim.maxHeaderBytes)
	}

	head := string(buf[:headEnd])
	line, fields, _ := strings.Cut(head, "\n")

	parts := strings.Fields(line)
	if len(parts) < 2 {
		return nil, NewError(CodeBadRequest, errors.Mark(
			errors.Newf("malformed request line: %q", line), ErrBadRequest))
	}

	req := &rawRequest{method: parts[0], target: parts[1]}
	if !hasBody(req.method) {
		return req, nil
	}

	length, ok, err := contentLength(fields)
	if err != nil {
		return nil, err
	}

	if !ok {
		if buf, err = readUntilQuiet(r, buf, bodyStart, eof, lim); err != nil {
			return nil, err
		}

		req.body = buf[bodyStart:]
		return req, nil
	}

	if length > lim.maxBodyBytes {
		return nil, bodyTooLarge(length, lim.maxBodyBytes)
	}

	for len(buf)-bodyStart < length {
		if eof {
			return nil, errors.Mark(errors.Wrapf(io.ErrUnexpectedEOF,
				"read request body: got %d of %d bytes", len(buf)-bodyStart, length), ErrConnectionRead)
		}

		if buf, err = fill(r, buf); err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, errors.Mark(errors.Wrap(err, "read request body"), ErrConnectionRead)
			}
			eof = true
		}
	}

	req.body = buf[bodyStart : bodyStart+length]

	return req, nil
}

// readUntilQuiet reads a body of unknown length. It ends at EOF or, on connections with read deadlines, once no
// byte arrived for lim.bodyIdle. Hitting lim.deadline instead is a read error.
func readUntilQuiet(r io.Reader, buf []byte, bodyStart int, eof bool, lim readLimits) ([]byte, error) {
	dl, idles := r.(readDeadliner)
	idles = idles && lim.bodyIdle > 0
	if idles {
		defer func() { _ = dl.SetReadDeadline(lim.deadline) }()
	}

	for !eof {
		if len(buf)-bodyStart > lim.maxBodyBytes {
			return nil, bodyTooLarge(len(buf)-bodyStart, lim.maxBodyBytes)
		}

		if idles {
			quiet := time.Now().Add(lim.bodyIdle)
			if !lim.deadline.IsZero() && lim.deadline.Before(quiet) {
				quiet = lim.deadline
			}
			_ = dl.SetReadDeadline(quiet)
		}

		var err error
		if buf, err = fill(r, buf); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				eof = true
			case idles && errors.Is(err, os.ErrDeadlineExceeded) &&
				(lim.deadline.IsZero() || time.Now().Before(lim.deadline)):
				eof = true
			default:
				return nil, errors.Mark(errors.Wrap(err, "read request body"), ErrConnectionRead)
			}
		}
	}

	if len(buf)-bodyStart > lim.maxBodyBytes {
		return nil, bodyTooLarge(len(buf)-bodyStart, lim.maxBodyBytes)
	}

	return buf, nil
}

// fill reads once into the spare capacity of buf, growing it when it is full.
func fill(r io.Reader, buf []byte) ([]byte, error) {
	if len(buf) == cap(buf) {
		buf = slices.Grow(buf, max(cap(buf), readChunkSize))
	}

	n, err := r.Read(buf[len(buf):cap(buf)])

	return buf[:len(buf)+n], err
}

// contentLength finds the Content-Length among the header lines.
func contentLength(fields string) (int, bool, error) {
	for line := range strings.SplitSeq(fields, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}

		value = strings.TrimSpace(value)

		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, false, NewError(CodeBadRequest, errors.Mark(
				errors.Newf("invalid Content-Length: %q", value), ErrBadRequest))
		}

		return n, true, nil
	}

	return 0, false, nil
}

func bodyTooLarge(size, limit int) error {
	return NewError(CodeRequestEntityTooLarge, errors.Mark(
		errors.Newf("request body of %d bytes exceeds %d bytes", size, limit), ErrBadRequest))
}

func headTooLarge(limit int) error {
	return NewError(CodeRequestHeaderFieldsTooLarge, errors.Mark(
		errors.Newf("request head exceeds %d bytes", limit), ErrBadRequest))
}

// conn serves exactly one request on an accepted connection.
type conn struct {
	rwc    net.Conn
	routes *Routes
	files  FileSource
	cfg    *config
}

func (c *conn) serve(ctx context.Context) {
	defer c.rwc.Close()
	defer func() {
		if rec := recover(); rec != nil {
			c.cfg.logs.LogConnectionError(errors.Newf("panic serving %s: %s", c.remoteAddr(), fmt.Sprint(rec)))
		}
	}()

	lim := readLimits{
		maxHeaderBytes: c.cfg.maxHeaderBytes,
		maxBodyBytes:   c.cfg.maxBodyBytes,
		bodyIdle:       c.cfg.bodyIdleTimeout,
	}
	if c.cfg.readTimeout > 0 {
		lim.deadline = time.Now().Add(c.cfg.readTimeout)
		_ = c.rwc.SetReadDeadline(lim.deadline)
	}

	raw, err := readRequest(c.rwc, lim)
	if err != nil {
		if errors.Is(err, ErrConnectionRead) {
			c.cfg.logs.LogConnectionError(errors.Wrapf(err, "from %s", c.remoteAddr()))
			return
		}

		code := CodeOf(err)
		if code == CodeUnknown {
			code = CodeBadRequest
		}

		c.write(errorResponse(code))

		return
	}

	c.write(c.dispatch(ctx, raw))
}

// dispatch runs the routing stages in order: route, static file, not found.
func (c *conn) dispatch(ctx context.Context, raw *rawRequest) Response {
	path, query, _ := strings.Cut(raw.target, "?")

	// the query of POST and PUT targets is ignored, their parameters come from the body only
	src := query
	if hasBody(raw.method) {
		src = string(raw.body)
	}

	req := NewRequest(raw.method, path, c.parseQuery(src))

	if h, ok := c.routes.Resolve(path); ok {
		body, err := invoke(ctx, h, req)
		switch {
		case err == nil:
			return textResponse(CodeOK, body)
		case !errors.Is(err, ErrDeclined):
			return c.handlerError(err)
		}
	}

	if data, err := c.static(ctx, path); err == nil {
		return Response{Code: CodeOK, Body: data}
	}

	return c.notFound(ctx, req)
}

func (c *conn) parseQuery(s string) Params {
	if c.cfg.percentDecoding {
		return ParseQueryUnescaped(s)
	}

	return ParseQuery(s)
}

func (c *conn) static(ctx context.Context, path string) ([]byte, error) {
	name, err := StaticName(path)
	if err != nil {
		return nil, err
	}

	if c.files == nil {
		return nil, errors.Mark(errors.New("no file source configured"), ErrStaticFile)
	}

	return c.files.ReadFile(ctx, name)
}

func (c *conn) notFound(ctx context.Context, req *Request) Response {
	h, ok := c.routes.Resolve(NotFoundPath)
	if !ok {
		return textResponse(CodeNotFound, DefaultNotFoundBody)
	}

	body, err := invoke(ctx, h, req)
	switch {
	case err == nil:
		return textResponse(CodeNotFound, body)
	case errors.Is(err, ErrDeclined):
		return textResponse(CodeNotFound, DefaultNotFoundBody)
	default:
		return c.handlerError(err)
	}
}

// handlerError renders an error returned by a handler. Errors carrying a [Code] pick the status, everything else
// is logged and answered with a 500.
func (c *conn) handlerError(err error) Response {
	code := CodeOf(err)
	if code == CodeUnknown || code >= CodeInternalServerError {
		c.cfg.logs.LogHandlerError(err)
	}

	if code == CodeUnknown {
		code = CodeInternalServerError
	}

	return errorResponse(code)
}

func (c *conn) write(resp Response) {
	if c.cfg.writeTimeout > 0 {
		_ = c.rwc.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout))
	}

	if err := resp.writeTo(c.rwc, c.cfg.contentLength); err != nil {
		c.cfg.logs.LogWriteError(errors.Wrapf(err, "to %s", c.remoteAddr()))
	}
}

func (c *conn) remoteAddr() string {
	if addr := c.rwc.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return "unknown"
}
