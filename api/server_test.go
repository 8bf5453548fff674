package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/defistate/lending-console-go/chat"
	"github.com/defistate/lending-console-go/markets"
	"github.com/defistate/lending-console-go/metrics"
	"github.com/defistate/lending-console-go/pkg/networks/stellar"
	"github.com/defistate/lending-console-go/protocols/blend"
	"github.com/defistate/lending-console-go/source"
	"github.com/defistate/lending-console-go/source/mock"
)

type entry struct {
	snap source.Snapshot
	err  error
}

// fakeTracker serves fixed snapshots; pools it does not know are loading.
type fakeTracker map[blend.PoolID]entry

func (f fakeTracker) Latest(id blend.PoolID) (source.Snapshot, error) {
	if e, ok := f[id]; ok {
		return e.snap, e.err
	}
	return source.Snapshot{PoolID: id}, nil
}

func (f fakeTracker) Peek(id blend.PoolID) (source.Snapshot, bool, error) {
	e, ok := f[id]
	return e.snap, ok, e.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadSnapshot(t *testing.T, id blend.PoolID) source.Snapshot {
	t.Helper()
	loader, err := source.NewLoader(source.LoaderConfig{Source: mock.New(), Logger: discardLogger()})
	require.NoError(t, err)
	snap, err := loader.Load(context.Background(), id)
	require.NoError(t, err)
	return snap
}

func newServer(t *testing.T, pools PoolTracker, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := Config{
		Logger:  discardLogger(),
		Markets: markets.NewRegistry(markets.Catalogue()),
		Pools:   pools,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, rd))

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func marketNames(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["markets"].([]any)
	require.True(t, ok)
	names := make([]string, len(raw))
	for i, m := range raw {
		names[i] = m.(map[string]any)["name"].(string)
	}
	return names
}

func TestConfig_Validate(t *testing.T) {
	reg := markets.NewRegistry(nil)

	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"MissingLogger", Config{Markets: reg, Pools: fakeTracker{}}, "Logger is required"},
		{"MissingMarkets", Config{Logger: discardLogger(), Pools: fakeTracker{}}, "Markets is required"},
		{"MissingPools", Config{Logger: discardLogger(), Markets: reg}, "Pools is required"},
		{"RateWithoutBurst", Config{Logger: discardLogger(), Markets: reg, Pools: fakeTracker{}, RateLimit: 1}, "RateBurst"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestHealthz(t *testing.T) {
	rec, body := do(t, newServer(t, fakeTracker{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestMarkets(t *testing.T) {
	s := newServer(t, fakeTracker{})

	t.Run("DefaultSortIsTVL", func(t *testing.T) {
		rec, body := do(t, s, http.MethodGet, "/markets", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tvl", body["sort"])
		assert.Equal(t, []string{"Stable Pool", "Stellar Core Pool", "High Yield Pool", "Beta Pool"}, marketNames(t, body))

		totals := body["totals"].(map[string]any)
		assert.InDelta(t, 50_200_000, totals["tvl"], 1e-3)
	})

	t.Run("SortByAPY", func(t *testing.T) {
		_, body := do(t, s, http.MethodGet, "/markets?sort=apy", "")
		assert.Equal(t, "Beta Pool", marketNames(t, body)[0])
	})

	t.Run("UnknownSort", func(t *testing.T) {
		rec, body := do(t, s, http.MethodGet, "/markets?sort=volume", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "unknown sort key")
	})

	t.Run("LiveFiguresReplaceCatalogue", func(t *testing.T) {
		live := newServer(t, fakeTracker{stellar.CorePoolID: {snap: loadSnapshot(t, stellar.CorePoolID)}})
		_, body := do(t, live, http.MethodGet, "/markets", "")
		for _, m := range body["markets"].([]any) {
			m := m.(map[string]any)
			if m["name"] == "Stellar Core Pool" {
				assert.EqualValues(t, 3, m["assets"], "reserve count from the live pool")
				assert.EqualValues(t, 85, m["riskScore"], "off-chain figures kept")
			}
		}
	})
}

func TestCompare(t *testing.T) {
	s := newServer(t, fakeTracker{})

	_, body := do(t, s, http.MethodGet, "/markets/compare?q=st", "")
	assert.Equal(t, []string{"Stellar Core Pool", "Stable Pool"}, marketNames(t, body))

	_, body = do(t, s, http.MethodGet, "/markets/compare?q=beta", "")
	assert.Empty(t, marketNames(t, body))

	_, body = do(t, s, http.MethodGet, "/markets/compare?q=beta&inactive=true", "")
	assert.Equal(t, []string{"Beta Pool"}, marketNames(t, body))

	rec, _ := do(t, s, http.MethodGet, "/markets/compare?inactive=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPool(t *testing.T) {
	pools := fakeTracker{
		stellar.CorePoolID:      {snap: loadSnapshot(t, stellar.CorePoolID)},
		stellar.BetaPoolID:      {err: source.ErrNotFound},
		stellar.HighYieldPoolID: {err: errors.New("upstream down")},
	}
	s := newServer(t, pools)

	t.Run("Ready", func(t *testing.T) {
		rec, body := do(t, s, http.MethodGet, "/pools/"+stellar.CorePoolID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "Stellar Core Pool", body["pool"].(map[string]any)["name"])
		summary := body["dashboard"].(map[string]any)["summary"].(map[string]any)
		assert.InDelta(t, 12_500_000, summary["totalSupply"], 1)
		assert.Len(t, body["reserves"], 3)
	})

	t.Run("Loading", func(t *testing.T) {
		rec, body := do(t, s, http.MethodGet, "/pools/"+stellar.StablePoolID.String(), "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "loading", body["status"])
		assert.Len(t, body["pending"], 5)
	})

	t.Run("InvalidID", func(t *testing.T) {
		rec, body := do(t, s, http.MethodGet, "/pools/not-a-pool", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["error"], "invalid pool id")
	})

	t.Run("Unknown", func(t *testing.T) {
		rec, _ := do(t, s, http.MethodGet, "/pools/"+stellar.BetaPoolID.String(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Unavailable", func(t *testing.T) {
		rec, _ := do(t, s, http.MethodGet, "/pools/"+stellar.HighYieldPoolID.String(), "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAssistant(t *testing.T) {
	s := newServer(t, fakeTracker{stellar.CorePoolID: {snap: loadSnapshot(t, stellar.CorePoolID)}})
	core := "/pools/" + stellar.CorePoolID.String() + "/assistant"

	t.Run("Keyword", func(t *testing.T) {
		rec, body := do(t, s, http.MethodPost, core, `{"question":"What is liquidation?"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "keyword", body["match"])
		assert.Equal(t, chat.DefaultEntries[5].Answer, body["reply"])
	})

	t.Run("Context", func(t *testing.T) {
		_, body := do(t, s, http.MethodPost, core, `{"question":"How is the current pool?"}`)
		assert.Equal(t, "context", body["match"])
		assert.Contains(t, body["reply"], "Stellar Core Pool pool")
	})

	t.Run("LoadingPoolFallsBack", func(t *testing.T) {
		_, body := do(t, s, http.MethodPost, "/pools/"+stellar.StablePoolID.String()+"/assistant", `{"question":"current pool?"}`)
		assert.Equal(t, "fallback", body["match"])
	})

	t.Run("EmptyQuestion", func(t *testing.T) {
		rec, _ := do(t, s, http.MethodPost, core, `{"question":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("BadBody", func(t *testing.T) {
		rec, _ := do(t, s, http.MethodPost, core, `question=hi`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, fakeTracker{}, func(c *Config) {
		c.RateLimit = rate.Limit(0.001)
		c.RateBurst = 1
	})

	rec, _ := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestMetricsAndRPCMount(t *testing.T) {
	reg := prometheus.NewRegistry()
	rpcHit := false
	s := newServer(t, fakeTracker{}, func(c *Config) {
		c.Metrics = metrics.NewMetrics(reg)
		c.Gatherer = reg
		c.RPC = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rpcHit = true
			w.WriteHeader(http.StatusOK)
		})
	})

	do(t, s, http.MethodGet, "/markets", "")
	rec, _ := do(t, s, http.MethodPost, "/rpc", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, rpcHit)

	rec, _ = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="200",route="/markets"} 1`)
}
