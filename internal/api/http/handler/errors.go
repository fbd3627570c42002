package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/apperr"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
	"github.com/gin-gonic/gin"
)

// respondError writes err using the service error taxonomy. msg is the
// public message for unexpected errors.
func respondError(c *gin.Context, err error, msg string) {
	var verr *apperr.ValidationError
	var authErr *wazuh.AuthError
	var netErr *wazuh.NetworkError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "forbidden"})
	case errors.As(err, &authErr):
		slog.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg, Details: authErr.Error()})
	case errors.As(err, &netErr):
		slog.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg, Details: netErr.Error()})
	default:
		slog.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: msg})
	}
}
