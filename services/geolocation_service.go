package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/smartsouq/smartsouq_backend/models"
)

// geoLookupTimeout bounds the IP lookup; past it the detection falls back to
// USD rather than delaying the storefront.
const geoLookupTimeout = 1 * time.Second

// countryCurrencies maps visitor countries to display currencies.
var countryCurrencies = map[string]string{
	"SY": "SYP",
	"EG": "EGP",
	"IQ": "IQD",
	"LB": "LBP",
	"JO": "JOD",
	"SA": "SAR",
	"AE": "AED",
	"QA": "QAR",
	"KW": "KWD",
	"GB": "GBP",
	"DE": "EUR",
	"FR": "EUR",
}

// GeolocationService resolves a visitor's currency from their IP address.
type GeolocationService struct {
	baseURL string
	client  *http.Client
}

func NewGeolocationService() *GeolocationService {
	baseURL := os.Getenv("IPAPI_API_URL")
	if baseURL == "" {
		baseURL = "https://ipapi.co"
	}
	return &GeolocationService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// DetectCurrency looks up the country for an IP and maps it to a currency.
// Any failure inside the lookup budget degrades to USD.
func (s *GeolocationService) DetectCurrency(ctx context.Context, ip string) models.CurrencyDetection {
	fallback := models.CurrencyDetection{Country: "", Currency: "USD", Fallback: true}

	lookupCtx, cancel := context.WithTimeout(ctx, geoLookupTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/json/", s.baseURL, ip)
	req, err := http.NewRequestWithContext(lookupCtx, http.MethodGet, url, nil)
	if err != nil {
		return fallback
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fallback
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallback
	}

	var geo struct {
		CountryCode string `json:"country_code"`
	}
	if json.Unmarshal(body, &geo) != nil || geo.CountryCode == "" {
		return fallback
	}

	currency, ok := countryCurrencies[strings.ToUpper(geo.CountryCode)]
	if !ok {
		return models.CurrencyDetection{Country: geo.CountryCode, Currency: "USD", Fallback: true}
	}
	return models.CurrencyDetection{Country: geo.CountryCode, Currency: currency}
}
