package middlewares

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StationContext tags every request with a request id and the calling
// station. Scanners send X-Station-Id; requests without one still get a
// request id for log correlation.
func StationContext(ctx *gin.Context) {
	requestId := uuid.NewString()
	ctx.Set("request_id", requestId)
	ctx.Header("X-Request-Id", requestId)

	station := ctx.GetHeader("X-Station-Id")
	if station != "" {
		ctx.Set("station", station)
	}
	ctx.Next()
}

// RequestLogger writes one line per request in the access log format the
// dashboards parse.
func RequestLogger(ctx *gin.Context) {
	start := time.Now()
	ctx.Next()
	log.Printf("%s %s %d %s rid=%s station=%s\n",
		ctx.Request.Method,
		ctx.Request.URL.Path,
		ctx.Writer.Status(),
		time.Since(start),
		ctx.GetString("request_id"),
		ctx.GetString("station"),
	)
}
