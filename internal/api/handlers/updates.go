package handlers

import (
	"net/http"
	"strconv"

	"otaflow/internal/api/dto/common"
	"otaflow/internal/resolver"
	"otaflow/internal/service"
	"otaflow/internal/utils"

	"github.com/gin-gonic/gin"
)

// Response headers carrying the resolution class alongside the body
const (
	headerUpdateStatus      = "X-Update-Status"
	headerUpdateOverwritten = "X-Update-Overwritten"
)

type UpdateHandler struct {
	updates *service.UpdateService
}

func NewUpdateHandler(updates *service.UpdateService) *UpdateHandler {
	return &UpdateHandler{updates: updates}
}

// Check handles POST /updates, the device check-in endpoint. The reply body
// is the raw decision, not the control-plane envelope: it may come straight
// from the cache and clients parse it as-is.
func (h *UpdateHandler) Check(c *gin.Context) {
	var req resolver.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Header(headerUpdateStatus, resolver.StatusFail)
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeBadRequest, "Invalid request body")
		return
	}

	result, err := h.updates.LookupOrResolve(c.Request.Context(), &req)
	if err != nil {
		c.Header(headerUpdateStatus, resolver.StatusFail)
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Cannot resolve update")
		return
	}

	c.Header(headerUpdateStatus, result.Status)
	c.Header(headerUpdateOverwritten, strconv.FormatBool(result.Overwritten))
	c.Data(result.HTTPStatus, "application/json; charset=utf-8", result.Body)
}
