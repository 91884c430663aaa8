// Package bserve is a minimal HTTP request-dispatch layer on top of raw TCP connections.
//
// # Overview
//
// A [Server] accepts connections and serves exactly one request on each of them. The request line and the
// body are parsed into a [Request], which is dispatched through a [Router]. When no route answers, a file
// is served from the document root. When that fails too, the "404" route renders the not-found page.
//
// A minimal example:
//
//	router := bserve.NewRouter()
//	router.AddPath("/home", bserve.Static("Hello world"))
//	router.AddPathFunc("/echo", func(ctx context.Context, r *bserve.Request) (string, error) {
//	    return "hello " + r.Get("name"), nil
//	})
//
//	srv := bserve.NewServer("127.0.0.1:8080")
//	if err := srv.Start(router); err != nil {
//	    log.Fatal(err)
//	}
//
// # Wire format
//
// Requests are read until the blank line that ends the head. Empty lines before the request line are skipped.
// For POST and PUT the body is read as well, exactly Content-Length bytes when that header is present. Without
// it the body runs until the client closes its side or stops sending for [DefaultBodyIdleTimeout], see
// [WithBodyIdleTimeout]. Either way a body over the limit gets a 413. Handlers never see headers.
//
// Responses are framed as:
//
//	HTTP/1.1 <code> <reason>\r\n\r\n<body>
//
// No headers are written unless [WithContentLength] is given, in which case a Content-Length header is
// added. The connection is closed after every response.
//
// # Parameters
//
// Parameters are decoded with [ParseQuery]. GET and every other method take them from the query part of the
// target. POST and PUT take them from the body; the query part of their target is dropped. Pairs without a "="
// are skipped and values are not percent-decoded unless [WithPercentDecoding] is given.
//
// # Dispatch
//
// Routes match the request path exactly and case-sensitively. The stages run in order and the first one that
// produces a response wins:
//
//   - Route: the handler's body is answered with 200. A handler may return [ErrDeclined] to give the request
//     back, dispatch then continues as if no route matched. An [*Error] picks its own status code, any other
//     error or a panic is logged and answered with 500.
//   - Static file: the path is looked up in the [FileSource], by default a [DirSource] on the working
//     directory. Paths with ".." segments are rejected before the filesystem is touched.
//   - Not found: the handler registered under [NotFoundPath] renders the body of a 404. Without one, or when
//     it declines, [DefaultNotFoundBody] is used.
//
// # Errors
//
// Errors are marked with one of [ErrBind], [ErrConnectionRead], [ErrBadRequest], [ErrHandlerPanic] or
// [ErrStaticFile] and can be tested with errors.Is. Only [ErrBind] ever leaves the server; everything else is
// contained to the connection it happened on.
//
// # Concurrency
//
// Each accepted connection is served on its own goroutine against a [Routes] snapshot taken when it was
// accepted. The [Router] may be changed while the server runs; the change is visible to connections accepted
// afterwards only.
package bserve
