package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiHeaders go on every response. The API only serves JSON and CSV
// downloads, so nothing may be framed, sniffed or executed.
var apiHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=()"},
	{"Cross-Origin-Resource-Policy", "same-site"},
}

// SecurityHeadersMiddleware sets the API header set. Responses to requests
// carrying a bearer token hold personal loan data and are marked no-store.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range apiHeaders {
			h.Set(kv[0], kv[1])
		}
		if BearerToken(c.GetHeader("Authorization")) != "" {
			h.Set("Cache-Control", "no-store")
		}
		c.Next()
	}
}

// StrictTransportSecurityMiddleware pins browsers to HTTPS once the API has
// been reached over TLS, directly or behind a terminating proxy.
func StrictTransportSecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if servedOverTLS(c) {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func servedOverTLS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}
