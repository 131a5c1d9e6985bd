package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"ecotrack/internal/model"
)

const actorKey = "actor"

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// IdentityMiddleware parses the acting principal from the X-User-ID and
// X-User-Role headers supplied by the upstream auth layer. Credentials are
// trusted here; requests without them simply carry no actor.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		idHeader := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")
		if idHeader != "" && role != "" && role != model.RoleSystem {
			if id, err := strconv.ParseInt(idHeader, 10, 64); err == nil && id > 0 {
				c.Set(actorKey, model.Actor{ID: id, Role: role})
			}
		}
		c.Next()
	}
}

// ActorFrom returns the principal stored by IdentityMiddleware.
func ActorFrom(c *ginext.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}
