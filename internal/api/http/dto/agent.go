package dto

import (
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
)

type RegisterAgentRequest struct {
	AgentName  string             `json:"agentName" binding:"required"`
	AgentID    *agents.ExternalID `json:"agentId" binding:"required"`
	AgentIP    string             `json:"agentIp" binding:"required"`
	Status     agents.Status      `json:"status" binding:"omitempty,oneof=active disconnected pending never_connected"`
	Hostname   string             `json:"hostname"`
	OwnerEmail string             `json:"ownerEmail" binding:"omitempty,email"`
}

type SetOwnerRequest struct {
	UserEmail string `json:"userEmail" binding:"required,email"`
}

type AgentResponse struct {
	ID         string            `json:"id"`
	AgentID    agents.ExternalID `json:"agentId"`
	AgentName  string            `json:"agentName"`
	AgentIP    string            `json:"agentIp"`
	Status     agents.Status     `json:"status"`
	Hostname   string            `json:"hostname,omitempty"`
	OwnerEmail string            `json:"ownerEmail,omitempty"`
	LastSeenAt *time.Time        `json:"lastSeenAt,omitempty"`
	DateAdded  *time.Time        `json:"dateAdded,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func NewAgentResponse(a agents.Agent) AgentResponse {
	return AgentResponse{
		ID:         a.ID,
		AgentID:    a.ExternalID,
		AgentName:  a.Name,
		AgentIP:    a.IPAddress,
		Status:     a.Status,
		Hostname:   a.Hostname,
		OwnerEmail: a.OwnerEmail,
		LastSeenAt: a.LastSeenAt,
		DateAdded:  a.DateAdded,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func NewAgentResponses(list []agents.Agent) []AgentResponse {
	resp := make([]AgentResponse, len(list))
	for i, a := range list {
		resp[i] = NewAgentResponse(a)
	}
	return resp
}

type ListAgentsResponse struct {
	Agents []AgentResponse `json:"agents"`
	Count  int             `json:"count"`
}
