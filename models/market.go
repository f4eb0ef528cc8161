package models

import "time"

// Ticker is a single market quote pushed to dashboards.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change24h"`
	Source    string    `json:"source"` // "binance", "coingecko", "alphavantage", "fallback"
	UpdatedAt time.Time `json:"updatedAt"`
}

// BinanceTicker is the shape of Binance's /api/v3/ticker/24hr entries.
type BinanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// CoinGeckoSimplePrice maps coin id -> currency -> price, as returned by
// /simple/price?ids=...&vs_currencies=usd&include_24hr_change=true.
type CoinGeckoSimplePrice map[string]map[string]float64

// CurrencyDetection is the response of GET /api/currency/detect.
type CurrencyDetection struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Fallback bool   `json:"fallback"`
}

// ConversionResult is the response of GET /api/currency/convert.
type ConversionResult struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Converted float64 `json:"converted"`
	Rate      float64 `json:"rate"`
}
