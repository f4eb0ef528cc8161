// middleware/security_headers.go
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityConfig controls the Content-Security-Policy emitted with every
// response. ConnectDomains lists the upstream APIs storefront pages may call
// directly; everything else has to go through /proxy.
type SecurityConfig struct {
	ConnectDomains []string
	AllowInlineJS  bool
}

// DefaultSecurityConfig opens connect-src to the market/geo/chain upstreams
// the proxy forwards to, plus secure websockets for the ticker stream.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		ConnectDomains: []string{
			"https://api.coingecko.com",
			"https://api.binance.com",
			"https://api.coinbase.com",
			"https://ipapi.co",
			"https://api.trongrid.io",
			"wss:",
		},
	}
}

// SecurityHeadersWithConfig sets the standard hardening headers and a CSP
// built from the given config.
func SecurityHeadersWithConfig(config SecurityConfig) echo.MiddlewareFunc {
	csp := buildCSP(config)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			// Remove potentially sensitive headers
			h.Del("Server")
			h.Del("X-Powered-By")

			return next(c)
		}
	}
}

func buildCSP(config SecurityConfig) string {
	csp := []string{
		"default-src 'self'",
		"img-src 'self' data: https:",
		"style-src 'self' 'unsafe-inline'",
	}

	if config.AllowInlineJS {
		csp = append(csp, "script-src 'self' 'unsafe-inline'")
	} else {
		csp = append(csp, "script-src 'self'")
	}

	if len(config.ConnectDomains) > 0 {
		csp = append(csp, "connect-src 'self' "+strings.Join(config.ConnectDomains, " "))
	}

	return strings.Join(csp, "; ")
}
