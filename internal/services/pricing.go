package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/tidwall/gjson"
)

// PriceProvider returns unit prices for a set of type ids. A type with no
// known price maps to nil, never to zero.
type PriceProvider interface {
	GetPrices(ctx context.Context, typeIDs []int) (map[int]*float64, error)
}

// HTTPPriceProvider reads the public market price list. The endpoint returns
// every traded type in one document, so a single call serves any batch.
type HTTPPriceProvider struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewHTTPPriceProvider(cfg *config.PricingConfig) *HTTPPriceProvider {
	return &HTTPPriceProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newRetryClient(cfg.TimeoutSeconds, cfg.RetryMax),
	}
}

func (p *HTTPPriceProvider) GetPrices(ctx context.Context, typeIDs []int) (prices map[int]*float64, err error) {
	prices = make(map[int]*float64, len(typeIDs))
	if len(typeIDs) == 0 {
		return prices, nil
	}

	started := time.Now()
	defer func() { recordUpstreamCall("pricing", err, started) }()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/markets/prices/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := doUpstream(p.client, req, "pricing")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &UpstreamUnavailableError{Service: "pricing", Err: fmt.Errorf("invalid price document")}
	}

	wanted := make(map[int]bool, len(typeIDs))
	for _, id := range typeIDs {
		wanted[id] = true
		prices[id] = nil
	}

	gjson.ParseBytes(body).ForEach(func(_, entry gjson.Result) bool {
		id := int(entry.Get("type_id").Int())
		if !wanted[id] {
			return true
		}
		price := entry.Get("average_price").Float()
		if price <= 0 {
			price = entry.Get("adjusted_price").Float()
		}
		if price > 0 {
			prices[id] = &price
		}
		return true
	})

	return prices, nil
}

const (
	priceCachePrefix = "price:"
	priceCacheNull   = "null"
)

// CachedPriceProvider keeps recent prices in Redis. Unknown prices are cached
// too so a missing type doesn't trigger a refetch every time.
type CachedPriceProvider struct {
	inner PriceProvider
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedPriceProvider(inner PriceProvider, rdb *redis.Client, ttl time.Duration) *CachedPriceProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedPriceProvider{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedPriceProvider) GetPrices(ctx context.Context, typeIDs []int) (map[int]*float64, error) {
	prices := make(map[int]*float64, len(typeIDs))
	if len(typeIDs) == 0 {
		return prices, nil
	}

	keys := make([]string, len(typeIDs))
	for i, id := range typeIDs {
		keys[i] = priceCachePrefix + strconv.Itoa(id)
	}

	var misses []int
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warn().Err(err).Msg("[PriceCache] redis read failed, bypassing cache")
		return c.inner.GetPrices(ctx, typeIDs)
	}

	for i, id := range typeIDs {
		raw, ok := cached[i].(string)
		if !ok {
			misses = append(misses, id)
			continue
		}
		if raw == priceCacheNull {
			prices[id] = nil
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			misses = append(misses, id)
			continue
		}
		prices[id] = &v
	}

	if len(misses) == 0 {
		return prices, nil
	}

	fetched, err := c.inner.GetPrices(ctx, misses)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for _, id := range misses {
		p := fetched[id]
		prices[id] = p
		val := priceCacheNull
		if p != nil {
			val = strconv.FormatFloat(*p, 'f', -1, 64)
		}
		pipe.Set(ctx, priceCachePrefix+strconv.Itoa(id), val, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn().Err(err).Int("count", len(misses)).Msg("[PriceCache] redis write failed")
	}

	return prices, nil
}

// NewPriceProvider wires the HTTP provider, wrapped in the Redis cache when a
// client is given.
func NewPriceProvider(cfg *config.PricingConfig, rdb *redis.Client) PriceProvider {
	var provider PriceProvider = NewHTTPPriceProvider(cfg)
	if rdb != nil {
		provider = NewCachedPriceProvider(provider, rdb, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
	}
	return provider
}
