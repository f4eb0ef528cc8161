package security

import (
	"net/http"
)

// ValidateContentType ensures the request has the correct content type
func ValidateContentType(contentType string) bool {
	validTypes := map[string]bool{
		"application/json":                  true,
		"application/x-www-form-urlencoded": true,
		"multipart/form-data":               true,
	}
	return validTypes[contentType]
}

// SanitizeHeaders removes credentials and hop-by-hop headers before a
// request is forwarded upstream.
func SanitizeHeaders(headers http.Header) http.Header {
	sensitiveHeaders := []string{
		"Authorization",
		"Cookie",
		"Set-Cookie",
		"X-CSRF-Token",
		"X-API-Key",
		"Connection",
		"Keep-Alive",
		"Proxy-Authorization",
		"Te",
		"Trailer",
		"Transfer-Encoding",
		"Upgrade",
	}

	for _, header := range sensitiveHeaders {
		headers.Del(header)
	}
	return headers
}
