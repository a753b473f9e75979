package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/josh-kwaku/ledger-engine/internal/config"
	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/events"
	"github.com/josh-kwaku/ledger-engine/internal/handler"
	"github.com/josh-kwaku/ledger-engine/internal/lock"
	"github.com/josh-kwaku/ledger-engine/internal/service/ledger"
)

func okPing(context.Context) error { return nil }

func TestOpsServer_Routes(t *testing.T) {
	a := &App{
		cfg:     &config.Config{Port: 0},
		logger:  slog.Default(),
		Health:  handler.NewHealthHandler(Version, handler.PingFunc(okPing)),
		Metrics: handler.NewMetricsHandler(sdkmetric.NewManualReader()),
	}
	srv := httptest.NewServer(a.opsServer().Handler)
	defer srv.Close()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
		{http.MethodGet, "/accounts", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}

	t.Run("readiness body", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, map[string]any{"database": "ok"}, body["checks"])
	})
}

func TestBackendSelection(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	t.Run("memory and log", func(t *testing.T) {
		a := &App{cfg: &config.Config{LockBackend: "memory", EventSink: "log"}, logger: slog.Default()}
		assert.IsType(t, &lock.Keyed{}, a.locker())
		assert.IsType(t, &events.LogPublisher{}, a.publisher())
	})

	t.Run("redis", func(t *testing.T) {
		a := &App{
			cfg: &config.Config{
				LockBackend:  "redis",
				LockExpiryS:  5,
				LockTries:    3,
				EventSink:    "redis",
				EventChannel: "ledger.events",
			},
			logger: slog.Default(),
			redis:  client,
		}
		assert.IsType(t, &lock.Redis{}, a.locker())
		_, isLog := a.publisher().(*events.LogPublisher)
		assert.False(t, isLog)
	})
}

func TestNew_MemoryStorage(t *testing.T) {
	cfg := &config.Config{
		StorageBackend:      "memory",
		LockBackend:         "memory",
		EventSink:           "log",
		Currency:            "BRL",
		DefaultCreditLimit:  "0",
		StatementWindowDays: 30,
		ReplayMaxRetries:    5,
		EventBuffer:         16,
	}
	ctx := context.Background()
	a, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	assert.Nil(t, a.db)

	stop := a.StartDispatcher(ctx)
	defer stop()

	acct, err := a.Accounts.OpenAccount(ctx, uuid.New(), nil)
	require.NoError(t, err)
	res, err := a.Ledger.Process(ctx, ledger.Command{
		Kind:        domain.KindCredit,
		AccountID:   acct.ID,
		Amount:      25_00,
		Currency:    "BRL",
		ReferenceID: "memory-credit",
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.ResultSuccess, res.Status)

	got, err := a.Accounts.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(25_00), got.Available)

	srv := httptest.NewServer(a.opsServer().Handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{}, body["checks"])
}
