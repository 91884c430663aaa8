package bsapp_test

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/advdv/bserve"
	"github.com/advdv/bserve/bsapp"
	"github.com/advdv/bserve/bsapp/bsapptest"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TestEnv is a test environment with app-specific fields beyond BaseEnvironment.
type TestEnv struct {
	bsapp.BaseEnvironment
	Greeting string `env:"GREETING" envDefault:"hello"`
}

// Handlers demonstrates fx injection into route handlers.
type Handlers struct {
	env TestEnv
}

func NewHandlers(env TestEnv) *Handlers {
	return &Handlers{env: env}
}

func (h *Handlers) Greet(ctx context.Context, r *bserve.Request) (string, error) {
	name, ok := r.Param("name")
	if !ok {
		return "", bserve.NewError(bserve.CodeBadRequest, errors.New("missing name"))
	}

	bsapp.Span(ctx).AddEvent("greeting")
	bsapp.Log(ctx).Info("greeting", zap.String("name", name))

	return h.env.Greeting + " " + name, nil
}

func routing(r *bserve.Router, h *Handlers) {
	r.AddPathFunc("/greet", h.Greet)
	r.AddPath("/maybe", bserve.Optional(func(r *bserve.Request) (string, bool) {
		return "maybe", r.Get("show") == "yes"
	}))
}

// rawGet sends a bare GET for target to addr and returns the raw response.
func rawGet(t *testing.T, addr, target string) string {
	t.Helper()
	return rawRequest(t, addr, "GET "+target+" HTTP/1.1\r\n\r\n")
}

func rawRequest(t *testing.T, addr, request string) string {
	t.Helper()

	c, err := net.DialTimeout("tcp", addr, 5*time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(c, request)
	require.NoError(t, err)

	resp, err := io.ReadAll(c)
	require.NoError(t, err)

	return string(resp)
}

func TestApp(t *testing.T) {
	docRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docRoot, "robots.txt"), []byte("User-agent: *"), 0o600))

	bsapptest.SetBaseEnv(t, "127.0.0.1:18181").ServiceName("greeter").DocRoot(docRoot)
	t.Setenv("GREETING", "hi")

	app := bsapptest.New[TestEnv](t, routing, bsapp.WithFx(fx.Provide(NewHandlers)))
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	const addr = "127.0.0.1:18181"
	baseURL := "http://" + addr
	ctx := context.Background()

	t.Run("query parameters", func(t *testing.T) {
		var body string
		err := requests.URL(baseURL + "/greet").
			Param("name", "Ann").
			ToString(&body).
			Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hi Ann", body)
	})

	t.Run("body parameters", func(t *testing.T) {
		resp := rawRequest(t, addr, "POST /greet HTTP/1.1\r\nContent-Length: 8\r\n\r\nname=Bob")
		assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\nhi Bob", resp)
	})

	t.Run("coded error", func(t *testing.T) {
		var body string
		err := requests.URL(baseURL + "/greet").
			CheckStatus(400).
			ToString(&body).
			Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Bad Request", body)
	})

	t.Run("declined falls through to not found", func(t *testing.T) {
		var body string
		err := requests.URL(baseURL + "/maybe").
			Param("show", "no").
			CheckStatus(404).
			ToString(&body).
			Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, bserve.DefaultNotFoundBody, body)
	})

	t.Run("static file from the document root", func(t *testing.T) {
		var body string
		err := requests.URL(baseURL + "/robots.txt").
			ToString(&body).
			Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "User-agent: *", body)
	})
}

func TestAppContentLength(t *testing.T) {
	bsapptest.SetBaseEnv(t, "127.0.0.1:18182").ContentLength()

	app := bsapptest.New[TestEnv](t, routing, bsapp.WithFx(fx.Provide(NewHandlers)))
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	resp := rawGet(t, "127.0.0.1:18182", "/greet?name=Cy")
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 8\r\n\r\nhello Cy", resp)
}

func TestAppServerOptions(t *testing.T) {
	bsapptest.SetBaseEnv(t, "127.0.0.1:18183")

	app := bsapptest.New[TestEnv](t, func(r *bserve.Router) {
		r.AddPath("/q", bserve.HandlerFunc(func(_ context.Context, r *bserve.Request) (string, error) {
			return r.Get("v"), nil
		}))
	}, bsapp.WithServerOptions(bserve.WithPercentDecoding()))
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\na b", rawGet(t, "127.0.0.1:18183", "/q?v=a%20b"))
}

func TestAppBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	bsapptest.SetBaseEnv(t, ln.Addr().String())

	app := fx.New(bsapp.FxOptions[TestEnv](func(*bserve.Router) {})...)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = app.Start(ctx)
	require.True(t, errors.Is(err, bserve.ErrBind), "unexpected error: %v", err)
}

func TestAppStartStopsWithContext(t *testing.T) {
	bsapptest.SetBaseEnv(t, "127.0.0.1:18184")

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- bsapp.NewApp[TestEnv](func(*bserve.Router) {}).Start(ctx)
	}()

	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", "127.0.0.1:18184")
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}
