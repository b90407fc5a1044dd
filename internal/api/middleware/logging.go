package middleware

import (
	"fmt"
	"os"
	"time"

	"otaflow/internal/utils"

	"github.com/gin-gonic/gin"
)

// ANSI color codes for terminal output
const (
	green   = "\033[97;42m"
	white   = "\033[90;47m"
	yellow  = "\033[90;43m"
	red     = "\033[97;41m"
	blue    = "\033[97;44m"
	magenta = "\033[97;45m"
	cyan    = "\033[97;46m"
	reset   = "\033[0m"
)

// statusColor returns the appropriate ANSI color for the HTTP status code
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return green
	case code >= 300 && code < 400:
		return white
	case code >= 400 && code < 500:
		return yellow
	default:
		return red
	}
}

// methodColor returns the appropriate ANSI color for the HTTP method
func methodColor(method string) string {
	switch method {
	case "GET":
		return blue
	case "POST":
		return cyan
	case "PUT":
		return yellow
	case "DELETE":
		return red
	case "PATCH":
		return green
	case "HEAD":
		return magenta
	default:
		return reset
	}
}

// RequestLogger is a middleware that logs request information.
// It will only log when the LOG_REQUESTS environment variable is set to "true".
func RequestLogger() gin.HandlerFunc {
	logRequests := os.Getenv("LOG_REQUESTS") == "true"

	if !logRequests {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		clientIP := utils.GetRealIP(c)

		methodColorized := fmt.Sprintf("%s %s %s", methodColor(method), method, reset)
		statusColorized := fmt.Sprintf("%s %3d %s", statusColor(statusCode), statusCode, reset)

		// Check-in replies carry their resolution class in a header; logging
		// it makes cache-hit ratios greppable.
		updateStatus := c.Writer.Header().Get("X-Update-Status")
		if updateStatus != "" {
			updateStatus = " | " + updateStatus
		}

		logMsg := fmt.Sprintf(
			"[OTA-API] %s | %s | %13v | %15s | %-17s %s%s\n",
			time.Now().Format("2006/01/02 - 15:04:05"),
			statusColorized,
			latency,
			clientIP,
			methodColorized,
			path,
			updateStatus,
		)

		// Use fmt.Print instead of gin.DefaultWriter which might be disabled
		fmt.Print(logMsg)
	}
}
