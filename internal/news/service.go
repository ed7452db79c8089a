package news

import (
	"context"
	"strings"
	"sync"
	"time"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/store"
	"agent-team-trader/internal/types"
)

// Service provides headlines with per-symbol caching
type Service struct {
	scraper *Scraper
	cache   *headlineCache
	limit   int
	enabled bool
}

var _ interfaces.HeadlineSource = (*Service)(nil)

// headlineCache stores scrape results temporarily
type headlineCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	ttl  time.Duration
	now  func() time.Time
}

type cacheEntry struct {
	headlines []types.NewsHeadline
	timestamp time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	return &headlineCache{data: make(map[string]cacheEntry), ttl: ttl, now: time.Now}
}

// get retrieves cached headlines if still fresh
func (c *headlineCache) get(symbol string) ([]types.NewsHeadline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[symbol]
	if !ok || c.now().Sub(entry.timestamp) > c.ttl {
		return nil, false
	}
	return entry.headlines, true
}

// set stores headlines and drops expired entries
func (c *headlineCache) set(symbol string, headlines []types.NewsHeadline) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[symbol] = cacheEntry{headlines: headlines, timestamp: now}
}

func NewService(cfg store.NewsConfig) *Service {
	return &Service{
		scraper: NewScraper(cfg.Sources, time.Duration(cfg.TimeoutSeconds)*time.Second),
		cache:   newHeadlineCache(time.Duration(cfg.CacheMinutes) * time.Minute),
		limit:   cfg.MaxHeadlines,
		enabled: cfg.Enabled && len(cfg.Sources) > 0,
	}
}

// Headlines returns recent headlines for a contract symbol. Scrape failures are
// logged and yield an empty result.
func (s *Service) Headlines(ctx context.Context, symbol string) []types.NewsHeadline {
	if !s.enabled {
		return nil
	}
	if cached, ok := s.cache.get(symbol); ok {
		logger.Debug(ctx, "Using cached headlines", "symbol", symbol, "count", len(cached))
		return cached
	}

	coin := BaseCoin(symbol)
	headlines := s.scraper.Scrape(ctx, coin, s.limit)
	logger.Info(ctx, "News scraping completed", "symbol", symbol, "coin", coin, "headlines", len(headlines))

	// Empty results are not cached so the next cycle retries.
	if len(headlines) > 0 {
		s.cache.set(symbol, headlines)
	}
	return headlines
}

// BaseCoin maps a contract symbol such as "cmt_btcusdt" to its base coin "btc".
func BaseCoin(symbol string) string {
	s := strings.ToLower(symbol)
	s = strings.TrimPrefix(s, "cmt_")
	for _, quote := range []string{"usdt", "usdc", "usd"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
