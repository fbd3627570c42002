package handler

import (
	"context"
	"net/http"

	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/gin-gonic/gin"
)

type Syncer interface {
	SyncOnce(ctx context.Context) (int, error)
}

type SyncHandler struct {
	syncer Syncer
}

func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

// Trigger runs one sync cycle in the request and reports how many agents
// were written.
func (h *SyncHandler) Trigger(c *gin.Context) {
	count, err := h.syncer.SyncOnce(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to sync agents")
		return
	}

	c.JSON(http.StatusOK, dto.SyncResponse{
		Message: "Agents synced successfully",
		Count:   count,
	})
}
