package middleware

import (
	"os"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowOrigins     []string
	OriginPatterns   []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	ExposeHeaders    []string
	MaxAge           int

	compiled []*regexp.Regexp
}

// NewCORSConfig creates a new CORS configuration with environment-based origins
func NewCORSConfig() *CORSConfig {
	// Default origins
	origins := []string{
		"http://localhost:3000", // React dev server
		"http://localhost:5173", // Vite dev server
		"https://smartsouq.ai",
		"https://www.smartsouq.ai",
	}

	// Wildcard patterns for MENA storefront domains
	patterns := []string{
		"https://*.sy",
		"https://*.eg",
		"https://*.iq",
		"https://*.lb",
		"https://*.jo",
		"https://*.sa",
		"https://*.ae",
	}

	// Add origins from environment variable if set
	if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
		for _, origin := range strings.Split(envOrigins, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed == "" {
				continue
			}
			if strings.Contains(trimmed, "*") {
				patterns = append(patterns, trimmed)
			} else {
				origins = append(origins, trimmed)
			}
		}
	}

	cfg := &CORSConfig{
		AllowOrigins:     origins,
		OriginPatterns:   patterns,
		AllowMethods:     []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-API-Key"},
		AllowCredentials: true,
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		MaxAge:           86400, // 24 hours
	}
	cfg.compilePatterns()
	return cfg
}

// compilePatterns converts wildcard patterns like "https://*.sy" into anchored
// regular expressions.
func (cfg *CORSConfig) compilePatterns() {
	cfg.compiled = cfg.compiled[:0]
	for _, pattern := range cfg.OriginPatterns {
		escaped := regexp.QuoteMeta(pattern)
		escaped = strings.ReplaceAll(escaped, `\*`, `[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*`)
		re, err := regexp.Compile("^" + escaped + "$")
		if err != nil {
			continue
		}
		cfg.compiled = append(cfg.compiled, re)
	}
}

// OriginAllowed reports whether the given Origin header value passes either
// the exact allow-list or one of the wildcard patterns.
func (cfg *CORSConfig) OriginAllowed(origin string) bool {
	for _, allowed := range cfg.AllowOrigins {
		if origin == allowed {
			return true
		}
	}
	for _, re := range cfg.compiled {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// GlobalCORS creates a global CORS middleware
func GlobalCORS() echo.MiddlewareFunc {
	config := NewCORSConfig()

	return echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return config.OriginAllowed(origin), nil
		},
		AllowMethods:     config.AllowMethods,
		AllowHeaders:     config.AllowHeaders,
		AllowCredentials: config.AllowCredentials,
		ExposeHeaders:    config.ExposeHeaders,
		MaxAge:           config.MaxAge,
	})
}
