package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/EternisAI/soc-agent-sync/internal/apperr"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
)

var ErrAgentNotFound = fmt.Errorf("agent %w", apperr.ErrNotFound)

// Store persists agents keyed by their external id.
type Store interface {
	Upsert(ctx context.Context, agent Agent) (*Agent, error)
	GetByExternalID(ctx context.Context, id ExternalID) (*Agent, error)
	GetByExternalIDs(ctx context.Context, ids []ExternalID) ([]Agent, error)
	List(ctx context.Context) ([]Agent, error)
	ListByOwner(ctx context.Context, email string) ([]Agent, error)
	SetOwner(ctx context.Context, id ExternalID, email string) (*Agent, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Upsert inserts the agent or overwrites the stored copy with the same
// external id. The owner is only replaced when agent.OwnerEmail is set.
func (s *Service) Upsert(ctx context.Context, agent Agent) (*Agent, error) {
	var missing []string
	if strings.TrimSpace(agent.Name) == "" {
		missing = append(missing, "agentName")
	}
	if strings.TrimSpace(agent.IPAddress) == "" {
		missing = append(missing, "agentIp")
	}
	if len(missing) > 0 {
		return nil, apperr.Missing(missing...)
	}

	stored, err := s.store.Upsert(ctx, agent)
	if err != nil {
		return nil, fmt.Errorf("upsert agent %s: %w", agent.ExternalID, err)
	}
	return stored, nil
}

func (s *Service) FindByExternalID(ctx context.Context, id ExternalID) (*Agent, error) {
	return s.store.GetByExternalID(ctx, id)
}

// FindByExternalIDs returns the stored agents for ids in the order of ids.
// Ids without a stored agent are skipped.
func (s *Service) FindByExternalIDs(ctx context.Context, ids []ExternalID) ([]Agent, error) {
	if len(ids) == 0 {
		return []Agent{}, nil
	}

	found, err := s.store.GetByExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get agents by ids: %w", err)
	}

	byID := make(map[ExternalID]Agent, len(found))
	for _, a := range found {
		byID[a.ExternalID] = a
	}

	result := make([]Agent, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			result = append(result, a)
		}
	}
	return result, nil
}

func (s *Service) FindByOwner(ctx context.Context, email string) ([]Agent, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperr.Missing("userEmail")
	}
	return s.store.ListByOwner(ctx, email)
}

// FindAll lists the agents visible to the caller.
func (s *Service) FindAll(ctx context.Context, caller auth.Principal) ([]Agent, error) {
	if caller.Can(auth.CapViewAllAgents) {
		return s.store.List(ctx)
	}
	if caller.Email == "" {
		return []Agent{}, nil
	}
	return s.store.ListByOwner(ctx, caller.Email)
}

// FindVisible returns one agent if the caller may see it.
func (s *Service) FindVisible(ctx context.Context, caller auth.Principal, id ExternalID) (*Agent, error) {
	agent, err := s.store.GetByExternalID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Can(auth.CapViewAllAgents) && (agent.OwnerEmail == "" || !caller.CanActFor(agent.OwnerEmail)) {
		return nil, apperr.ErrForbidden
	}
	return agent, nil
}

func (s *Service) SetOwner(ctx context.Context, id ExternalID, email string) (*Agent, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperr.Missing("userEmail")
	}

	agent, err := s.store.SetOwner(ctx, id, email)
	if err != nil {
		return nil, err
	}

	slog.Info("Agent owner updated", "external_id", id, "owner_email", email)
	return agent, nil
}
