package app

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/ptc-frontdesk/internal/metrics"
)

// adminQueryParam carries the admin key: /admin/stats?admin=<key>.
const adminQueryParam = "admin"

// metricsAuthMiddleware enforces Basic Auth on /metrics. A disabled
// middleware passes every request through.
func metricsAuthMiddleware(enabled bool, username, password string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		// evaluate both so timing does not reveal which one differs
		userOK := secretEqual(user, username)
		passOK := secretEqual(pass, password)
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func secretEqual(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// adminAuthMiddleware gates the read-only admin view behind ?admin=<key>.
// With no key configured the view does not exist (404); a wrong or missing
// key is rejected with 403.
func adminAuthMiddleware(key string, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		if !secretEqual(c.Query(adminQueryParam), key) {
			if m != nil {
				m.RecordHTTPError("forbidden", "admin")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
