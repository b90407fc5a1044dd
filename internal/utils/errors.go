package utils

import (
	"errors"
	"net/http"

	"otaflow/internal/api/dto/common"
	"otaflow/internal/logging"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HandleAPIError is a utility function for consistent error handling across
// the control-plane API. Sensitive error details are only exposed outside
// release mode.
func HandleAPIError(c *gin.Context, err error, defaultStatus int, defaultCode common.ErrorCode, defaultMessage string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, common.NewErrorResponse(common.ErrCodeNotFound, "Resource not found", nil))
		return
	}

	logger := logging.GetGlobalLogger()
	logger.LogHTTPError(
		c.Request.Method,
		c.Request.URL.Path,
		GetRealIP(c),
		defaultStatus,
		defaultMessage,
		err,
	)

	var errorDetails interface{}
	if gin.Mode() != gin.ReleaseMode {
		errorDetails = err.Error()
	}

	c.JSON(defaultStatus, common.NewErrorResponse(defaultCode, defaultMessage, errorDetails))
}
