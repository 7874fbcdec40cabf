package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/pkg/middleware/requestid"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

const (
	cacheHitKey       = "cache_hit"
	processingTimeKey = "processing_time_ms"
	requestIDKey      = "request_id"
)

// WithResponseMeta initialises response metadata storage on the request
// context, seeded with the request id.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[requestIDKey] = id
		}
		c.Set(response.MetaContextKey, meta)
		c.Next()
		if _, exists := meta[processingTimeKey]; !exists {
			meta[processingTimeKey] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records cache hit information for the current response.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := ensureMeta(c)
	meta[cacheHitKey] = hit
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(response.MetaContextKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	newMeta := make(map[string]interface{})
	c.Set(response.MetaContextKey, newMeta)
	return newMeta
}
