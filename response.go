package bserve

import (
	"io"
	"strconv"
)

// DefaultNotFoundBody is rendered when no "404" route answers a request that nothing else handled.
const DefaultNotFoundBody = "<h1>404<h1><h3>Page not found<h3>"

const crlf = "\r\n"

// Response is written once and then the connection is closed.
type Response struct {
	Code Code
	Body []byte
}

func textResponse(c Code, body string) Response {
	return Response{Code: c, Body: []byte(body)}
}

// errorResponse renders the status text as the body.
func errorResponse(c Code) Response {
	return textResponse(c, c.Reason())
}

// Bytes frames the response as "HTTP/1.1 <code> <reason>\r\n\r\n<body>". When contentLength is set a
// Content-Length header is written as well.
func (r Response) Bytes(contentLength bool) []byte {
	buf := make([]byte, 0, 64+len(r.Body))
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(r.Code), 10)
	buf = append(buf, ' ')
	buf = append(buf, r.Code.Reason()...)
	buf = append(buf, crlf...)

	if contentLength {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, int64(len(r.Body)), 10)
		buf = append(buf, crlf...)
	}

	buf = append(buf, crlf...)

	return append(buf, r.Body...)
}

// writeTo writes the framed response to w in a single write.
func (r Response) writeTo(w io.Writer, contentLength bool) error {
	_, err := w.Write(r.Bytes(contentLength))
	return err
}
