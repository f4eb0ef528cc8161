package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/utils"
)

const (
	marketCacheKey = "smartsouq:marketDataCache"
	marketCacheTTL = 2 * time.Minute
)

// fallbackTickers keeps the dashboards alive when every upstream source is
// down. The numbers are deliberately static.
var fallbackTickers = []models.Ticker{
	{Symbol: "BTCUSDT", Price: 64000, Source: "fallback"},
	{Symbol: "ETHUSDT", Price: 3400, Source: "fallback"},
	{Symbol: "TRXUSDT", Price: 0.12, Source: "fallback"},
	{Symbol: "BNBUSDT", Price: 580, Source: "fallback"},
}

// TickerBroadcaster pushes refreshed quotes to connected dashboards.
type TickerBroadcaster interface {
	BroadcastTickers(tickers []models.Ticker)
}

// MarketDataService aggregates quotes from Binance with CoinGecko and Alpha
// Vantage as fallbacks, caching results in Redis.
type MarketDataService struct {
	binanceURL      string
	coingeckoURL    string
	alphaVantageURL string
	alphaVantageKey string
	client          *http.Client
	redis           *redis.Client
	symbols         []string
}

// NewMarketDataService wires the market data sources from environment
// configuration; rdb may be nil.
func NewMarketDataService(rdb *redis.Client) *MarketDataService {
	binanceURL := os.Getenv("BINANCE_API_URL")
	if binanceURL == "" {
		binanceURL = "https://api.binance.com"
	}
	coingeckoURL := os.Getenv("COINGECKO_API_URL")
	if coingeckoURL == "" {
		coingeckoURL = "https://api.coingecko.com/api/v3"
	}
	alphaURL := os.Getenv("ALPHAVANTAGE_API_URL")
	if alphaURL == "" {
		alphaURL = "https://www.alphavantage.co"
	}

	return &MarketDataService{
		binanceURL:      strings.TrimRight(binanceURL, "/"),
		coingeckoURL:    strings.TrimRight(coingeckoURL, "/"),
		alphaVantageURL: strings.TrimRight(alphaURL, "/"),
		alphaVantageKey: os.Getenv("ALPHAVANTAGE_API_KEY"),
		client:          &http.Client{Timeout: 10 * time.Second},
		redis:           rdb,
		symbols:         []string{"BTCUSDT", "ETHUSDT", "TRXUSDT", "BNBUSDT"},
	}
}

// GetTickers returns current quotes, preferring the cache, then Binance,
// then CoinGecko, then the static fallback. Market data never hard-fails.
func (s *MarketDataService) GetTickers(ctx context.Context) []models.Ticker {
	if cached := s.cachedTickers(ctx); cached != nil {
		return cached
	}

	tickers, err := s.fetchBinance(ctx)
	if err != nil {
		log.Printf("Binance fetch failed: %v", err)
		tickers, err = s.fetchCoinGecko(ctx)
		if err != nil {
			log.Printf("CoinGecko fetch failed: %v", err)
			now := time.Now()
			tickers = make([]models.Ticker, len(fallbackTickers))
			copy(tickers, fallbackTickers)
			for i := range tickers {
				tickers[i].UpdatedAt = now
			}
			return tickers
		}
	}

	s.cacheTickers(ctx, tickers)
	return tickers
}

func (s *MarketDataService) cachedTickers(ctx context.Context) []models.Ticker {
	if s.redis == nil {
		return nil
	}
	payload, err := s.redis.Get(ctx, marketCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var tickers []models.Ticker
	if json.Unmarshal(payload, &tickers) != nil {
		return nil
	}
	return tickers
}

func (s *MarketDataService) cacheTickers(ctx context.Context, tickers []models.Ticker) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(tickers)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, marketCacheKey, payload, marketCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache market data: %v", err)
	}
}

func (s *MarketDataService) fetchBinance(ctx context.Context) ([]models.Ticker, error) {
	symbolsJSON, _ := json.Marshal(s.symbols)
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbols=%s", s.binanceURL, string(symbolsJSON))

	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var raw []models.BinanceTicker
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse Binance response: %w", err)
	}

	now := time.Now()
	tickers := make([]models.Ticker, 0, len(raw))
	for _, entry := range raw {
		price, err := utils.ParseFloat(entry.LastPrice)
		if err != nil {
			continue
		}
		change, _ := utils.ParseFloat(entry.PriceChangePercent)
		tickers = append(tickers, models.Ticker{
			Symbol:    entry.Symbol,
			Price:     price,
			Change24h: change,
			Source:    "binance",
			UpdatedAt: now,
		})
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("Binance returned no usable tickers")
	}
	return tickers, nil
}

var coingeckoIDs = map[string]string{
	"bitcoin":     "BTCUSDT",
	"ethereum":    "ETHUSDT",
	"tron":        "TRXUSDT",
	"binancecoin": "BNBUSDT",
}

func (s *MarketDataService) fetchCoinGecko(ctx context.Context) ([]models.Ticker, error) {
	ids := make([]string, 0, len(coingeckoIDs))
	for id := range coingeckoIDs {
		ids = append(ids, id)
	}
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		s.coingeckoURL, strings.Join(ids, ","))

	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var priced models.CoinGeckoSimplePrice
	if err := json.Unmarshal(body, &priced); err != nil {
		return nil, fmt.Errorf("failed to parse CoinGecko response: %w", err)
	}

	now := time.Now()
	tickers := make([]models.Ticker, 0, len(priced))
	for id, values := range priced {
		symbol, ok := coingeckoIDs[id]
		if !ok {
			continue
		}
		price, ok := values["usd"]
		if !ok {
			continue
		}
		tickers = append(tickers, models.Ticker{
			Symbol:    symbol,
			Price:     price,
			Change24h: values["usd_24h_change"],
			Source:    "coingecko",
			UpdatedAt: now,
		})
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("CoinGecko returned no usable tickers")
	}
	return tickers, nil
}

// FetchEquityQuote pulls a stock quote from Alpha Vantage. Returns a
// fallback-flagged zero quote when the key is missing or the call fails.
func (s *MarketDataService) FetchEquityQuote(ctx context.Context, symbol string) models.Ticker {
	fallback := models.Ticker{Symbol: symbol, Source: "fallback", UpdatedAt: time.Now()}
	if s.alphaVantageKey == "" {
		return fallback
	}

	url := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		s.alphaVantageURL, symbol, s.alphaVantageKey)
	body, err := s.get(ctx, url)
	if err != nil {
		log.Printf("Alpha Vantage fetch failed for %s: %v", symbol, err)
		return fallback
	}

	var quote struct {
		GlobalQuote struct {
			Price         string `json:"05. price"`
			ChangePercent string `json:"10. change percent"`
		} `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &quote); err != nil {
		return fallback
	}

	price, err := utils.ParseFloat(quote.GlobalQuote.Price)
	if err != nil || price == 0 {
		return fallback
	}
	change, _ := utils.ParseFloat(strings.TrimSuffix(quote.GlobalQuote.ChangePercent, "%"))

	return models.Ticker{
		Symbol:    symbol,
		Price:     price,
		Change24h: change,
		Source:    "alphavantage",
		UpdatedAt: time.Now(),
	}
}

// StartTicker refreshes quotes on an interval and pushes them to the
// broadcaster until the context is cancelled.
func (s *MarketDataService) StartTicker(ctx context.Context, broadcaster TickerBroadcaster, interval time.Duration) {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetchCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
			tickers := s.GetTickers(fetchCtx)
			cancel()
			broadcaster.BroadcastTickers(tickers)
		}
	}
}

func (s *MarketDataService) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return body, nil
}
