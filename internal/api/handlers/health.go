package handlers

import (
	"net/http"

	"otaflow/internal/api/dto/common"
	"otaflow/internal/cache"
	"otaflow/internal/db"
	"otaflow/internal/utils"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db    *db.Database
	store cache.Store
}

func NewHealthHandler(database *db.Database, store cache.Store) *HealthHandler {
	return &HealthHandler{db: database, store: store}
}

// Check verifies both backing stores. The cache store is part of the
// serving path, so a down cache is a failed health check even though
// requests would still degrade through it.
func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Database connection error")
		return
	}

	if err := h.store.Ping(c.Request.Context()); err != nil {
		utils.HandleAPIError(c, err, http.StatusInternalServerError, common.ErrCodeInternalServer, "Cache store connection error")
		return
	}

	c.JSON(http.StatusOK, common.NewMessageResponse("Health check OK"))
}
