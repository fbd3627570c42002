package handler

import (
	"net/http"
	"strings"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/middleware"
	"github.com/EternisAI/soc-agent-sync/internal/apperr"
	"github.com/gin-gonic/gin"
)

type AgentsHandler struct {
	agentService *agents.Service
}

func NewAgentsHandler(agentService *agents.Service) *AgentsHandler {
	return &AgentsHandler{agentService: agentService}
}

func (h *AgentsHandler) RegisterAgent(c *gin.Context) {
	var req dto.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "Failed to register agent")
		return
	}

	status := req.Status
	if status == "" {
		status = agents.StatusNeverConnected
	}

	agent, err := h.agentService.Upsert(c.Request.Context(), agents.Agent{
		ExternalID: *req.AgentID,
		Name:       strings.TrimSpace(req.AgentName),
		IPAddress:  strings.TrimSpace(req.AgentIP),
		Status:     status,
		Hostname:   strings.TrimSpace(req.Hostname),
		OwnerEmail: strings.ToLower(strings.TrimSpace(req.OwnerEmail)),
	})
	if err != nil {
		respondError(c, err, "Failed to register agent")
		return
	}

	c.JSON(http.StatusCreated, dto.NewAgentResponse(*agent))
}

func (h *AgentsHandler) ListAgents(c *gin.Context) {
	caller, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		return
	}

	list, err := h.agentService.FindAll(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "Failed to list agents")
		return
	}

	c.JSON(http.StatusOK, dto.ListAgentsResponse{
		Agents: dto.NewAgentResponses(list),
		Count:  len(list),
	})
}

func (h *AgentsHandler) GetAgent(c *gin.Context) {
	caller, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := agents.ParseExternalID(c.Param("externalId"))
	if err != nil {
		respondError(c, apperr.Invalid(err.Error()), "Failed to get agent")
		return
	}

	agent, err := h.agentService.FindVisible(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err, "Failed to get agent")
		return
	}

	c.JSON(http.StatusOK, dto.NewAgentResponse(*agent))
}

func (h *AgentsHandler) SetOwner(c *gin.Context) {
	id, err := agents.ParseExternalID(c.Param("externalId"))
	if err != nil {
		respondError(c, apperr.Invalid(err.Error()), "Failed to update agent owner")
		return
	}

	var req dto.SetOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "Failed to update agent owner")
		return
	}

	agent, err := h.agentService.SetOwner(c.Request.Context(), id, strings.ToLower(strings.TrimSpace(req.UserEmail)))
	if err != nil {
		respondError(c, err, "Failed to update agent owner")
		return
	}

	c.JSON(http.StatusOK, dto.NewAgentResponse(*agent))
}

func (h *AgentsHandler) UserAgents(c *gin.Context) {
	email, ok := authorizeUserQuery(c)
	if !ok {
		return
	}

	list, err := h.agentService.FindByOwner(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "Failed to list user agents")
		return
	}

	c.JSON(http.StatusOK, dto.ListAgentsResponse{
		Agents: dto.NewAgentResponses(list),
		Count:  len(list),
	})
}

// authorizeUserQuery reads the userEmail query parameter and checks that
// the caller may read that user's data. It writes the error response and
// returns false when the request must stop.
func authorizeUserQuery(c *gin.Context) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(c.Query("userEmail")))
	if email == "" {
		respondError(c, apperr.Missing("userEmail"), "")
		return "", false
	}

	caller, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		return "", false
	}
	if !caller.CanActFor(email) {
		respondError(c, apperr.ErrForbidden, "")
		return "", false
	}
	return email, true
}
