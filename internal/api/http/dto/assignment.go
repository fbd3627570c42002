package dto

import (
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
)

type AssignAgentRequest struct {
	UserEmail string             `json:"userEmail" binding:"required,email"`
	UserName  string             `json:"userName" binding:"required"`
	AgentName string             `json:"agentName" binding:"required"`
	AgentID   *agents.ExternalID `json:"agentId" binding:"required"`
	AgentIP   string             `json:"agentIp" binding:"required"`
	Status    agents.Status      `json:"status" binding:"omitempty,oneof=active disconnected pending never_connected"`
}

type AssignedAgentResponse struct {
	AgentID    agents.ExternalID `json:"agentId"`
	AgentName  string            `json:"agentName"`
	AgentIP    string            `json:"agentIp"`
	Status     agents.Status     `json:"status,omitempty"`
	AssignedAt time.Time         `json:"assignedAt"`
}

type AssignmentResponse struct {
	UserEmail string                  `json:"userEmail"`
	UserName  string                  `json:"userName"`
	Agents    []AssignedAgentResponse `json:"agents"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

func NewAssignmentResponse(a assignments.Assignment) AssignmentResponse {
	list := make([]AssignedAgentResponse, len(a.Agents))
	for i, agent := range a.Agents {
		list[i] = AssignedAgentResponse{
			AgentID:    agent.ExternalID,
			AgentName:  agent.Name,
			AgentIP:    agent.IPAddress,
			Status:     agent.Status,
			AssignedAt: agent.AssignedAt,
		}
	}
	return AssignmentResponse{
		UserEmail: a.UserEmail,
		UserName:  a.UserName,
		Agents:    list,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type AssignAgentResponse struct {
	Message    string              `json:"message"`
	Result     assignments.Outcome `json:"result"`
	Assignment AssignmentResponse  `json:"assignment"`
}

type AssignedAgentsResponse struct {
	UserEmail string                  `json:"userEmail"`
	Agents    []AssignedAgentResponse `json:"agents"`
}
