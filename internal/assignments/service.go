package assignments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/apperr"
)

var ErrAssignmentNotFound = fmt.Errorf("assignment %w", apperr.ErrNotFound)

// Store applies assignments atomically per user. Assign must evaluate
// Decide and apply the resulting write in a single transaction.
type Store interface {
	Assign(ctx context.Context, in AssignInput) (Outcome, *Assignment, error)
	Get(ctx context.Context, userEmail string) (*Assignment, error)
}

// AgentLookup resolves assigned agents against the agent store.
type AgentLookup interface {
	FindByExternalIDs(ctx context.Context, ids []agents.ExternalID) ([]agents.Agent, error)
}

type Service struct {
	store  Store
	agents AgentLookup
}

func NewService(store Store, lookup AgentLookup) *Service {
	return &Service{
		store:  store,
		agents: lookup,
	}
}

func (s *Service) Assign(ctx context.Context, in AssignInput) (Outcome, *Assignment, error) {
	in.UserEmail = normalizeEmail(in.UserEmail)
	in.UserName = strings.TrimSpace(in.UserName)

	var missing []string
	if in.UserEmail == "" {
		missing = append(missing, "userEmail")
	}
	if in.UserName == "" {
		missing = append(missing, "userName")
	}
	if strings.TrimSpace(in.Agent.Name) == "" {
		missing = append(missing, "agentName")
	}
	if strings.TrimSpace(in.Agent.IPAddress) == "" {
		missing = append(missing, "agentIp")
	}
	if len(missing) > 0 {
		return "", nil, apperr.Missing(missing...)
	}

	outcome, assignment, err := s.store.Assign(ctx, in)
	if err != nil {
		return "", nil, fmt.Errorf("assign agent %s to %s: %w", in.Agent.ExternalID, in.UserEmail, err)
	}

	slog.Info("Agent assignment processed",
		"user_email", in.UserEmail,
		"external_id", in.Agent.ExternalID,
		"outcome", outcome)

	return outcome, assignment, nil
}

func (s *Service) Get(ctx context.Context, userEmail string) (*Assignment, error) {
	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return nil, apperr.Missing("userEmail")
	}
	return s.store.Get(ctx, userEmail)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Details returns the full agent records for a user's assignment, in
// assignment order.
func (s *Service) Details(ctx context.Context, userEmail string) ([]agents.Agent, error) {
	assignment, err := s.Get(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	ids := make([]agents.ExternalID, len(assignment.Agents))
	for i, a := range assignment.Agents {
		ids[i] = a.ExternalID
	}

	return s.agents.FindByExternalIDs(ctx, ids)
}
