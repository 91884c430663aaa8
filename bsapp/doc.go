// Package bsapp wires a bserve server into an fx application.
//
// # Overview
//
// bsapp provides:
//   - Environment configuration parsed with caarlos0/env
//   - A zap logger, also used for the errors the server reports
//   - OpenTelemetry tracing with a span per routed request
//   - A request-scoped logger retrievable with [Log]
//   - Static files from the document root or, when a bucket is configured, from S3
//   - Lifecycle hooks that bind on start and drain connections on stop
//
// # Quick Start
//
//	type Env struct {
//	    bsapp.BaseEnvironment
//	    Greeting string `env:"GREETING" envDefault:"hello"`
//	}
//
//	func main() {
//	    bsapp.NewApp[Env](func(r *bserve.Router, env Env) {
//	        r.AddPathFunc("/greet", func(ctx context.Context, req *bserve.Request) (string, error) {
//	            bsapp.Log(ctx).Info("greeting")
//	            return env.Greeting + " " + req.Get("name"), nil
//	        })
//	    }).Run()
//	}
//
// # Environment Variables
//
// [BaseEnvironment] reads:
//
//	BS_ADDR              listen address (default 127.0.0.1:8080)
//	BS_SERVICE_NAME      service name for logs and traces (required)
//	BS_LOG_LEVEL         debug, info, warn or error (default info)
//	BS_OTEL_EXPORTER     none, stdout or xrayudp (default none)
//	BS_DOC_ROOT          static file directory (default: working directory)
//	BS_MAX_HEADER_BYTES  request head limit (default 65536)
//	BS_MAX_BODY_BYTES    request body limit (default 1048576)
//	BS_MAX_CONNS         concurrent connection limit, 0 for none
//	BS_READ_TIMEOUT      per-connection read deadline, 0s for none
//	BS_WRITE_TIMEOUT     per-connection write deadline, 0s for none
//	BS_BODY_IDLE_TIMEOUT quiet period ending a body sent without Content-Length (default 250ms)
//	BS_CONTENT_LENGTH    add a Content-Length header to responses
//	BS_PERCENT_DECODING  percent-decode parameter values
//	BS_STATIC_BUCKET     serve static files from this S3 bucket instead
//	BS_STATIC_PREFIX     key prefix within BS_STATIC_BUCKET
//	AWS_REGION           region of the bucket
//
// # Lifecycle
//
// On start the server binds its address before the app reports itself started, so a bad address or missing
// document root fails startup. Connections are then accepted in the background. On stop the listener is closed
// and the connections being served are waited for until the stop context expires.
//
// # Testing
//
// Use the bsapptest package to build the same graph with fxtest:
//
//	bsapptest.SetBaseEnv(t, "127.0.0.1:18081")
//	app := bsapptest.New[Env](t, routing)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bsapp
