package handler

import (
	"net/http"

	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
	"github.com/gin-gonic/gin"
)

var outcomeMessages = map[assignments.Outcome]string{
	assignments.OutcomeCreated:   "Agent assigned to user",
	assignments.OutcomeUpdated:   "Agent assignment status updated",
	assignments.OutcomeUnchanged: "Agent already assigned to user",
}

type AssignmentsHandler struct {
	assignmentService *assignments.Service
}

func NewAssignmentsHandler(assignmentService *assignments.Service) *AssignmentsHandler {
	return &AssignmentsHandler{assignmentService: assignmentService}
}

func (h *AssignmentsHandler) AssignAgent(c *gin.Context) {
	var req dto.AssignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err), "Failed to assign agent")
		return
	}

	outcome, assignment, err := h.assignmentService.Assign(c.Request.Context(), assignments.AssignInput{
		UserEmail: req.UserEmail,
		UserName:  req.UserName,
		Agent: assignments.AssignedAgent{
			ExternalID: *req.AgentID,
			Name:       req.AgentName,
			IPAddress:  req.AgentIP,
			Status:     req.Status,
		},
	})
	if err != nil {
		respondError(c, err, "Failed to assign agent")
		return
	}

	c.JSON(http.StatusOK, dto.AssignAgentResponse{
		Message:    outcomeMessages[outcome],
		Result:     outcome,
		Assignment: dto.NewAssignmentResponse(*assignment),
	})
}

func (h *AssignmentsHandler) AssignedAgents(c *gin.Context) {
	email, ok := authorizeUserQuery(c)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.Get(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "Failed to get assigned agents")
		return
	}

	resp := dto.NewAssignmentResponse(*assignment)
	c.JSON(http.StatusOK, dto.AssignedAgentsResponse{
		UserEmail: resp.UserEmail,
		Agents:    resp.Agents,
	})
}

func (h *AssignmentsHandler) AssignedAgentsDetails(c *gin.Context) {
	email, ok := authorizeUserQuery(c)
	if !ok {
		return
	}

	list, err := h.assignmentService.Details(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "Failed to get assigned agent details")
		return
	}

	c.JSON(http.StatusOK, dto.ListAgentsResponse{
		Agents: dto.NewAgentResponses(list),
		Count:  len(list),
	})
}
