package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTickersFromBinance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"65123.40","priceChangePercent":"2.1"},
			{"symbol":"ETHUSDT","lastPrice":"3456.78","priceChangePercent":"-0.4"}
		]`))
	}))
	defer server.Close()

	t.Setenv("BINANCE_API_URL", server.URL)
	svc := NewMarketDataService(nil)

	tickers := svc.GetTickers(context.Background())
	require.Len(t, tickers, 2)

	bySymbol := make(map[string]float64, len(tickers))
	for _, ticker := range tickers {
		assert.Equal(t, "binance", ticker.Source)
		bySymbol[ticker.Symbol] = ticker.Price
	}
	assert.InDelta(t, 65123.40, bySymbol["BTCUSDT"], 1e-6)
	assert.InDelta(t, 3456.78, bySymbol["ETHUSDT"], 1e-6)
}

func TestGetTickersFallsBackToCoinGecko(t *testing.T) {
	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer binance.Close()

	coingecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":65000,"usd_24h_change":1.5},"tron":{"usd":0.13}}`))
	}))
	defer coingecko.Close()

	t.Setenv("BINANCE_API_URL", binance.URL)
	t.Setenv("COINGECKO_API_URL", coingecko.URL)
	svc := NewMarketDataService(nil)

	tickers := svc.GetTickers(context.Background())
	require.Len(t, tickers, 2)
	for _, ticker := range tickers {
		assert.Equal(t, "coingecko", ticker.Source)
	}
}

func TestGetTickersNeverFails(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	t.Setenv("BINANCE_API_URL", down.URL)
	t.Setenv("COINGECKO_API_URL", down.URL)
	svc := NewMarketDataService(nil)

	tickers := svc.GetTickers(context.Background())
	require.NotEmpty(t, tickers)
	for _, ticker := range tickers {
		assert.Equal(t, "fallback", ticker.Source)
		assert.False(t, ticker.UpdatedAt.IsZero())
	}
}

func TestFetchEquityQuoteWithoutKeyReturnsFallback(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "")
	svc := NewMarketDataService(nil)

	quote := svc.FetchEquityQuote(context.Background(), "AAPL")
	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "fallback", quote.Source)
	assert.Zero(t, quote.Price)
}

func TestFetchEquityQuoteParsesGlobalQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Global Quote":{"01. symbol":"AAPL","05. price":"228.8700","10. change percent":"1.2400%"}}`))
	}))
	defer server.Close()

	t.Setenv("ALPHAVANTAGE_API_URL", server.URL)
	t.Setenv("ALPHAVANTAGE_API_KEY", "demo")
	svc := NewMarketDataService(nil)

	quote := svc.FetchEquityQuote(context.Background(), "AAPL")
	assert.Equal(t, "alphavantage", quote.Source)
	assert.InDelta(t, 228.87, quote.Price, 1e-6)
	assert.InDelta(t, 1.24, quote.Change24h, 1e-6)
}
