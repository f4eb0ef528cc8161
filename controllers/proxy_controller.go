package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartsouq/smartsouq_backend/models"
	"github.com/smartsouq/smartsouq_backend/security"
)

// upstreamAPI describes one forwardable backend.
type upstreamAPI struct {
	BaseURL      string        `json:"baseUrl"`
	Timeout      time.Duration `json:"timeout"`
	AllowedPaths []string      `json:"allowedPaths"`
	// Header name -> env var holding the key to inject.
	keyHeader string
	keyEnv    string
}

// ProxyController forwards whitelisted requests to external market/geo/chain
// APIs so browser clients never talk to them (or carry API keys) directly.
type ProxyController struct {
	upstreams map[string]upstreamAPI
	client    *http.Client
	startedAt time.Time
}

func NewProxyController() *ProxyController {
	upstreams := map[string]upstreamAPI{
		"coingecko": {
			BaseURL:      "https://api.coingecko.com/api/v3",
			Timeout:      10 * time.Second,
			AllowedPaths: []string{"/simple/price", "/coins/markets", "/search/trending"},
		},
		"binance": {
			BaseURL:      "https://api.binance.com",
			Timeout:      10 * time.Second,
			AllowedPaths: []string{"/api/v3/ticker", "/api/v3/klines", "/api/v3/depth"},
		},
		"coinbase": {
			BaseURL:      "https://api.coinbase.com",
			Timeout:      10 * time.Second,
			AllowedPaths: []string{"/v2/prices", "/v2/exchange-rates"},
		},
		"ipapi": {
			BaseURL:      "https://ipapi.co",
			Timeout:      5 * time.Second,
			AllowedPaths: []string{"/"},
		},
		"trongrid": {
			BaseURL:      "https://api.trongrid.io",
			Timeout:      15 * time.Second,
			AllowedPaths: []string{"/v1/accounts"},
			keyHeader:    "TRON-PRO-API-KEY",
			keyEnv:       "TRONGRID_API_KEY",
		},
	}

	// Allow overriding upstream bases for staging/tests
	overrides := map[string]string{
		"coingecko": "COINGECKO_API_URL",
		"binance":   "BINANCE_API_URL",
		"ipapi":     "IPAPI_API_URL",
		"trongrid":  "TRONGRID_API_URL",
	}
	for name, envVar := range overrides {
		if override := os.Getenv(envVar); override != "" {
			api := upstreams[name]
			api.BaseURL = strings.TrimRight(override, "/")
			upstreams[name] = api
		}
	}

	return &ProxyController{
		upstreams: upstreams,
		client:    &http.Client{},
		startedAt: time.Now(),
	}
}

// Forward handles ANY /proxy/:apiName/* by validating and relaying the
// request to the corresponding upstream.
func (pc *ProxyController) Forward(c echo.Context) error {
	apiName := c.Param("apiName")
	api, ok := pc.upstreams[apiName]
	if !ok {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Unknown API: %s", apiName),
		})
	}

	rest := "/" + c.Param("*")
	if !pathAllowed(api.AllowedPaths, rest) {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: fmt.Sprintf("Path not allowed for %s: %s", apiName, rest),
		})
	}

	targetURL := api.BaseURL + rest
	if rawQuery := c.Request().URL.RawQuery; rawQuery != "" {
		targetURL += "?" + rawQuery
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), api.Timeout)
	defer cancel()

	var body io.Reader
	method := c.Request().Method
	if method == http.MethodPost || method == http.MethodPut {
		body = c.Request().Body
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to build upstream request",
		})
	}

	// Forward the caller's headers minus credentials and hop-by-hop
	// entries; our own API keys are injected below.
	req.Header = security.SanitizeHeaders(c.Request().Header.Clone())
	req.Header.Set("Accept", "application/json")
	if api.keyHeader != "" {
		if key := os.Getenv(api.keyEnv); key != "" {
			req.Header.Set(api.keyHeader, key)
		}
	}

	resp, err := pc.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return c.JSON(http.StatusGatewayTimeout, models.Response{
				Status:  http.StatusGatewayTimeout,
				Message: fmt.Sprintf("%s timed out after %s", apiName, api.Timeout),
			})
		}
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: fmt.Sprintf("%s is unreachable", apiName),
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to read upstream response",
		})
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return c.Blob(resp.StatusCode, contentType, respBody)
}

// Status reports uptime and the forwarding table.
func (pc *ProxyController) Status(c echo.Context) error {
	apis := make(map[string]map[string]interface{}, len(pc.upstreams))
	for name, api := range pc.upstreams {
		apis[name] = map[string]interface{}{
			"baseUrl":      api.BaseURL,
			"timeout":      api.Timeout.String(),
			"allowedPaths": api.AllowedPaths,
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(pc.startedAt).Round(time.Second).String(),
		"apis":   apis,
	})
}

func pathAllowed(allowed []string, path string) bool {
	for _, prefix := range allowed {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
