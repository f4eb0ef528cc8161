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
)

const (
	exchangeRatesKey = "smartsouq:exchangeRates"
	exchangeRatesTTL = 10 * time.Minute
)

// fallbackUSDRates maps a currency to its USD value. Used whenever the
// upstream rate source and the cache are both unavailable, so conversion
// never hard-fails.
var fallbackUSDRates = map[string]float64{
	"USD":  1,
	"USDT": 1,
	"EUR":  1.09,
	"GBP":  1.27,
	"AED":  0.2723,
	"SAR":  0.2666,
	"QAR":  0.2747,
	"KWD":  3.25,
	"EGP":  0.0207,
	"JOD":  1.41,
	"IQD":  0.00076,
	"LBP":  0.0000112,
	"SYP":  0.000077,
}

// ExchangeRateService resolves fiat→USDT conversion rates from CoinGecko,
// caching them in Redis with a static fallback table underneath.
type ExchangeRateService struct {
	baseURL string
	client  *http.Client
	redis   *redis.Client
}

// NewExchangeRateService builds the service; rdb may be nil, in which case
// only the fallback table is used between fetches.
func NewExchangeRateService(rdb *redis.Client) *ExchangeRateService {
	baseURL := os.Getenv("COINGECKO_API_URL")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &ExchangeRateService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		redis:   rdb,
	}
}

// RefreshRates pulls current tether prices from CoinGecko and stores the
// inverted currency→USD table in Redis.
func (s *ExchangeRateService) RefreshRates(ctx context.Context) error {
	currencies := make([]string, 0, len(fallbackUSDRates))
	for cur := range fallbackUSDRates {
		currencies = append(currencies, strings.ToLower(cur))
	}

	url := fmt.Sprintf("%s/simple/price?ids=tether&vs_currencies=%s", s.baseURL, strings.Join(currencies, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach CoinGecko: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("CoinGecko returned status %d", resp.StatusCode)
	}

	var priced map[string]map[string]float64
	if err := json.Unmarshal(body, &priced); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	tether, ok := priced["tether"]
	if !ok {
		return fmt.Errorf("tether prices missing from response")
	}

	// CoinGecko reports how much of each currency one USDT buys; invert to
	// get the currency's USD value.
	rates := make(map[string]float64, len(tether))
	for cur, perUSDT := range tether {
		if perUSDT <= 0 {
			continue
		}
		rates[strings.ToUpper(cur)] = 1 / perUSDT
	}

	if s.redis != nil {
		payload, err := json.Marshal(rates)
		if err == nil {
			if err := s.redis.Set(ctx, exchangeRatesKey, payload, exchangeRatesTTL).Err(); err != nil {
				log.Printf("Failed to cache exchange rates: %v", err)
			}
		}
	}

	return nil
}

// usdRate returns the USD value of one unit of the given currency.
func (s *ExchangeRateService) usdRate(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToUpper(currency)

	if s.redis != nil {
		payload, err := s.redis.Get(ctx, exchangeRatesKey).Bytes()
		if err == nil {
			var rates map[string]float64
			if json.Unmarshal(payload, &rates) == nil {
				if rate, ok := rates[currency]; ok && rate > 0 {
					return rate, nil
				}
			}
		}
	}

	if rate, ok := fallbackUSDRates[currency]; ok {
		return rate, nil
	}
	return 0, fmt.Errorf("unsupported currency: %s", currency)
}

// ConvertCurrency converts amount from one currency to another through the
// USD cross rate.
func (s *ExchangeRateService) ConvertCurrency(ctx context.Context, amount float64, from, to string) (float64, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}

	fromRate, err := s.usdRate(ctx, from)
	if err != nil {
		return 0, err
	}
	toRate, err := s.usdRate(ctx, to)
	if err != nil {
		return 0, err
	}

	return amount * fromRate / toRate, nil
}

// ConvertToUSDT converts a fiat amount to its USDT equivalent.
func (s *ExchangeRateService) ConvertToUSDT(ctx context.Context, amount float64, currency string) (float64, error) {
	return s.ConvertCurrency(ctx, amount, currency, "USDT")
}

// SupportedCurrencies lists the currencies the fallback table covers.
func (s *ExchangeRateService) SupportedCurrencies() []string {
	currencies := make([]string, 0, len(fallbackUSDRates))
	for cur := range fallbackUSDRates {
		currencies = append(currencies, cur)
	}
	return currencies
}
