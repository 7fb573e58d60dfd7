package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/admin/tg-bots/shop-bot/internal/ports/cache"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
)

const priceCacheKey = "sol_eur_price"

// TTL деградированной цены короче обычного: пока апстрим лежит, повторные
// GetPrice идут из кэша, но свежий курс подтянется быстро после восстановления
const degradedCacheTTL = 5 * time.Minute

// Oracle курс SOL/EUR через CoinGecko с кэшем в Redis.
// Реализует service.IPriceOracle.
//
// GetPrice никогда не возвращает ошибку: при недоступном API отдаётся последняя
// известная цена, в крайнем случае статический fallback. Создание платежа не
// должно падать из-за курсового API.
type Oracle struct {
	cfg        *Config
	HTTPClient *http.Client
	cache      cache.Cache
	Log        *slog.Logger

	mu        sync.RWMutex
	lastKnown decimal.Decimal
}

// NewOracle создаёт новый оракул цены
func NewOracle(cfg *Config, c cache.Cache, log *slog.Logger) service.IPriceOracle {
	return &Oracle{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		cache: c,
		Log:   log,
	}
}

// GetPrice текущая цена SOL в EUR
func (o *Oracle) GetPrice(ctx context.Context) decimal.Decimal {
	if cached, err := o.cache.Get(ctx, priceCacheKey); err == nil {
		price, err := decimal.NewFromString(cached)
		if err == nil && price.IsPositive() {
			return price
		}
		o.Log.Warn("cached price is malformed", "value", cached)
	}

	price, err := o.fetchPrice(ctx)
	if err != nil {
		o.Log.Error("failed to fetch SOL price", "error", err)
		degraded := o.degradedPrice()
		if cerr := o.cache.Set(ctx, priceCacheKey, degraded.String(), degradedCacheTTL); cerr != nil {
			o.Log.Warn("failed to cache degraded SOL price", "error", cerr)
		}
		return degraded
	}

	ttl := time.Duration(o.cfg.CacheTTL) * time.Minute
	if err := o.cache.Set(ctx, priceCacheKey, price.String(), ttl); err != nil {
		o.Log.Warn("failed to cache SOL price", "error", err)
	}

	o.mu.Lock()
	o.lastKnown = price
	o.mu.Unlock()

	o.Log.Debug("SOL price fetched", "price_eur", price)
	return price
}

type priceResponse struct {
	Solana struct {
		EUR decimal.Decimal `json:"eur"`
	} `json:"solana"`
}

// fetchPrice запрашивает цену у CoinGecko
func (o *Oracle) fetchPrice(ctx context.Context) (decimal.Decimal, error) {
	url := strings.TrimSuffix(o.cfg.BaseURL, "/") + "/simple/price?ids=solana&vs_currencies=eur"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if o.cfg.ApiKey != "" {
		req.Header.Set("x-cg-demo-api-key", o.cfg.ApiKey)
	}

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed priceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse response: %w", err)
	}

	if !parsed.Solana.EUR.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive price in response: %s", string(body))
	}

	return parsed.Solana.EUR, nil
}

// degradedPrice цена при недоступном API: последняя известная либо статический fallback
func (o *Oracle) degradedPrice() decimal.Decimal {
	o.mu.RLock()
	lastKnown := o.lastKnown
	o.mu.RUnlock()

	if lastKnown.IsPositive() {
		o.Log.Warn("using last known SOL price", "price_eur", lastKnown)
		return lastKnown
	}

	fallback, err := decimal.NewFromString(o.cfg.FallbackPrice)
	if err != nil || !fallback.IsPositive() {
		fallback = decimal.New(135, 0)
	}
	o.Log.Warn("using fallback SOL price", "price_eur", fallback)
	return fallback
}
