package handlers

import (
	"net/http"

	"otaflow/internal/api/dto/common"
	"otaflow/internal/service"
	"otaflow/internal/utils"

	"github.com/gin-gonic/gin"
)

type TriggerHandler struct {
	triggers *service.TriggerService
}

func NewTriggerHandler(triggers *service.TriggerService) *TriggerHandler {
	return &TriggerHandler{triggers: triggers}
}

type bundleChangeRequest struct {
	AppID string `json:"app_id" binding:"required"`
}

type deviceChangeRequest struct {
	AppID          string   `json:"app_id" binding:"required"`
	DeviceID       string   `json:"device_id" binding:"required"`
	ChangedColumns []string `json:"changed_columns"`
}

// OnBundleChange handles POST /triggers/on_bundle_change, fired by the
// control plane after any bundle or channel-retarget mutation.
func (h *TriggerHandler) OnBundleChange(c *gin.Context) {
	var req bundleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeBadRequest, "Invalid request body")
		return
	}

	if err := h.triggers.OnBundleChange(c.Request.Context(), req.AppID); err != nil {
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Cannot invalidate cached versions")
		return
	}

	c.JSON(http.StatusOK, common.NewMessageResponse("Cached versions invalidated"))
}

// OnDeviceChange handles POST /triggers/on_device_change, fired after
// device or override mutations.
func (h *TriggerHandler) OnDeviceChange(c *gin.Context) {
	var req deviceChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeBadRequest, "Invalid request body")
		return
	}

	if err := h.triggers.OnDeviceChange(c.Request.Context(), req.AppID, req.DeviceID, req.ChangedColumns); err != nil {
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Cannot invalidate cached device state")
		return
	}

	c.JSON(http.StatusOK, common.NewMessageResponse("Cached device state invalidated"))
}
