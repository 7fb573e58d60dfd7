package coingecko

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	values map[string]string
	getErr error
	sets   int
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	if c.values == nil {
		c.values = map[string]string{}
	}
	c.values[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) Close() error { return nil }

func testOracle(baseURL string, c *fakeCache) *Oracle {
	cfg := &Config{
		BaseURL:       baseURL,
		Timeout:       2,
		CacheTTL:      90,
		FallbackPrice: "135",
	}
	return &Oracle{
		cfg:        cfg,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		cache:      c,
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGetPriceFromAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "solana", r.URL.Query().Get("ids"))
		require.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		w.Write([]byte(`{"solana":{"eur":142.35}}`))
	}))
	defer srv.Close()

	c := &fakeCache{getErr: errors.New("redis down")}
	oracle := testOracle(srv.URL, c)

	price := oracle.GetPrice(context.Background())
	require.True(t, price.Equal(decimal.RequireFromString("142.35")))
	// цена закэширована для следующих запросов
	require.Equal(t, 1, c.sets)
	require.Equal(t, "142.35", c.values[priceCacheKey])
}

func TestGetPricePrefersCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("API must not be called when cache is warm")
	}))
	defer srv.Close()

	c := &fakeCache{values: map[string]string{priceCacheKey: "140.5"}}
	oracle := testOracle(srv.URL, c)

	price := oracle.GetPrice(context.Background())
	require.True(t, price.Equal(decimal.RequireFromString("140.5")))
}

func TestGetPriceFallsBackToLastKnown(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Write([]byte(`{"solana":{"eur":150}}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &fakeCache{getErr: errors.New("redis down")}
	oracle := testOracle(srv.URL, c)

	first := oracle.GetPrice(context.Background())
	require.True(t, first.Equal(decimal.RequireFromString("150")))

	// кэш недоступен, API отдаёт 503: возвращается последняя известная цена
	c.values = nil
	second := oracle.GetPrice(context.Background())
	require.True(t, second.Equal(decimal.RequireFromString("150")))
}

func TestGetPriceStaticFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	oracle := testOracle(srv.URL, &fakeCache{getErr: errors.New("redis down")})

	price := oracle.GetPrice(context.Background())
	require.True(t, price.Equal(decimal.RequireFromString("135")))
}

func TestGetPriceDegradedIsRecached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &fakeCache{}
	oracle := testOracle(srv.URL, c)

	first := oracle.GetPrice(context.Background())
	require.True(t, first.Equal(decimal.RequireFromString("135")))
	// деградированная цена записана в кэш
	require.Equal(t, 1, c.sets)
	require.Equal(t, "135", c.values[priceCacheKey])

	// следующий запрос идёт из кэша, не долбя лежащий апстрим
	second := oracle.GetPrice(context.Background())
	require.True(t, second.Equal(decimal.RequireFromString("135")))
	require.Equal(t, 1, calls)
}

func TestGetPriceRejectsNonPositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"eur":0}}`))
	}))
	defer srv.Close()

	oracle := testOracle(srv.URL, &fakeCache{getErr: errors.New("redis down")})

	price := oracle.GetPrice(context.Background())
	require.True(t, price.Equal(decimal.RequireFromString("135")))
}

func TestGetPriceIgnoresMalformedCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"solana":{"eur":142}}`))
	}))
	defer srv.Close()

	c := &fakeCache{values: map[string]string{priceCacheKey: "not-a-number"}}
	oracle := testOracle(srv.URL, c)

	price := oracle.GetPrice(context.Background())
	require.True(t, price.Equal(decimal.RequireFromString("142")))
}
