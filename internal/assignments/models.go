package assignments

import (
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
)

// Outcome tells the caller what an Assign call changed.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// AssignedAgent is the denormalized agent summary kept per user.
type AssignedAgent struct {
	ExternalID agents.ExternalID
	Name       string
	IPAddress  string
	Status     agents.Status
	AssignedAt time.Time
}

type Assignment struct {
	UserEmail string
	UserName  string
	Agents    []AssignedAgent
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AssignInput struct {
	UserEmail string
	UserName  string
	Agent     AssignedAgent
}

// Decide returns the outcome of assigning an agent with the given status
// when existing is the entry already stored for it (nil if absent).
func Decide(existing *AssignedAgent, status agents.Status) Outcome {
	if existing == nil {
		return OutcomeCreated
	}
	if status != "" && status != existing.Status {
		return OutcomeUpdated
	}
	return OutcomeUnchanged
}
