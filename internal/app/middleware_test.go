package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/periodclose/internal/shared"
	_ "github.com/odyssey-erp/periodclose/testing"
)

func TestActorMiddlewareCapturesRequestIdentity(t *testing.T) {
	var got shared.Actor
	handler := ActorMiddleware("X-User-ID")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.Header.Set("X-User-ID", " controller@acme.test ")
	req.Header.Set("User-Agent", "periodctl/1.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "controller@acme.test", got.ID)
	require.Equal(t, "10.1.2.3", got.IPAddress)
	require.Equal(t, "periodctl/1.0", got.UserAgent)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthzReportsFailingBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{
		Logger: logger,
		Config: &Config{},
		Health: map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { return errors.New("down") }),
		},
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.Contains(t, rr.Body.String(), "postgres")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("NOTIFY_MAIL_TO", "a@acme.test,b@acme.test")
	t.Setenv("RETRY_ATTEMPTS", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, []string{"a@acme.test", "b@acme.test"}, cfg.NotifyMailTo)
	require.Equal(t, 5, cfg.RetryPolicy().Attempts)

	pool := cfg.PoolOptions("periodclose")
	require.Equal(t, int32(10), pool.MaxConns)
	require.Equal(t, "periodclose", pool.ApplicationName)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisOptions().Addr)
	require.Equal(t, cfg.RedisAddr, cfg.AsynqRedis().Addr)
	require.Equal(t, "http://127.0.0.1:3000", cfg.GotenbergURL)

	t.Setenv("RETRY_ATTEMPTS", "0")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(testModeEnv, "yes-please")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	require.True(t, InTestMode())
}
