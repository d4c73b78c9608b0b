package middleware

import (
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/apperr"
)

const maxHeaderValueSize = 8192

var (
	// Logged only; free-text search legitimately contains quotes.
	sqlPatterns    = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1)`)
	scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|\bon\w+\s*=)`)
)

// Sanitize rejects requests carrying path traversal, null bytes, header
// injection or script in query parameters with a 400.
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path, rawPath := req.URL.Path, req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return apperr.Invalid("Path traversal detected")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return apperr.Invalid("Null byte injection detected")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return apperr.Invalid("Header value exceeds maximum size: %s", name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return apperr.Invalid("Header injection detected: %s", name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(v) || containsNullByte(key) {
						return apperr.Invalid("Null byte injection detected in query parameter")
					}
					if sqlPatterns.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", path).
							Str("remote_ip", c.RealIP()).
							Msg("suspicious query parameter")
					}
					if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
						return apperr.Invalid("Script injection detected in query parameter")
					}
				}
			}

			return next(c)
		}
	}
}

func containsPathTraversal(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(s, "..") || strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00') || strings.Contains(strings.ToLower(s), "%00")
}
