package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var agentColumns = []string{
	"id", "external_id", "name", "ip_address", "status", "hostname",
	"last_seen_at", "date_added", "owner_email", "created_at", "updated_at",
}

// upsertConflictClause overwrites every manager-sourced field. The owner is
// kept unless the incoming row carries one.
const upsertConflictClause = `ON CONFLICT (external_id) DO UPDATE SET
	name = EXCLUDED.name,
	ip_address = EXCLUDED.ip_address,
	status = EXCLUDED.status,
	hostname = EXCLUDED.hostname,
	last_seen_at = EXCLUDED.last_seen_at,
	date_added = EXCLUDED.date_added,
	owner_email = COALESCE(EXCLUDED.owner_email, agents.owner_email),
	updated_at = now()`

// AgentRepository implements agents.Store on PostgreSQL.
type AgentRepository struct {
	pool *pgxpool.Pool
}

func NewAgentRepository(pool *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{pool: pool}
}

// Upsert is a single INSERT ... ON CONFLICT statement, so concurrent
// upserts of one external id serialize on the row.
func (r *AgentRepository) Upsert(ctx context.Context, agent agents.Agent) (*agents.Agent, error) {
	query, args, err := psql.
		Insert("agents").
		Columns("external_id", "name", "ip_address", "status", "hostname", "last_seen_at", "date_added", "owner_email").
		Values(
			int64(agent.ExternalID),
			agent.Name,
			agent.IPAddress,
			string(agent.Status),
			agent.Hostname,
			agent.LastSeenAt,
			agent.DateAdded,
			nullableText(agent.OwnerEmail),
		).
		Suffix(upsertConflictClause + " RETURNING " + strings.Join(agentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	stored, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert agent: %w", err)
	}
	return stored, nil
}

func (r *AgentRepository) GetByExternalID(ctx context.Context, id agents.ExternalID) (*agents.Agent, error) {
	query, args, err := psql.
		Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"external_id": int64(id)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	agent, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, agents.ErrAgentNotFound
		}
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return agent, nil
}

func (r *AgentRepository) GetByExternalIDs(ctx context.Context, ids []agents.ExternalID) ([]agents.Agent, error) {
	if len(ids) == 0 {
		return []agents.Agent{}, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	return r.list(ctx, psql.
		Select(agentColumns...).
		From("agents").
		Where(sq.Eq{"external_id": raw}).
		OrderBy("external_id"))
}

func (r *AgentRepository) List(ctx context.Context) ([]agents.Agent, error) {
	return r.list(ctx, psql.
		Select(agentColumns...).
		From("agents").
		OrderBy("external_id"))
}

func (r *AgentRepository) ListByOwner(ctx context.Context, email string) ([]agents.Agent, error) {
	return r.list(ctx, psql.
		Select(agentColumns...).
		From("agents").
		Where(sq.Expr("lower(owner_email) = lower(?)", email)).
		OrderBy("external_id"))
}

func (r *AgentRepository) SetOwner(ctx context.Context, id agents.ExternalID, email string) (*agents.Agent, error) {
	query, args, err := psql.
		Update("agents").
		Set("owner_email", nullableText(email)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"external_id": int64(id)}).
		Suffix("RETURNING " + strings.Join(agentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	agent, err := scanAgent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, agents.ErrAgentNotFound
		}
		return nil, fmt.Errorf("set agent owner: %w", err)
	}
	return agent, nil
}

func (r *AgentRepository) list(ctx context.Context, qb sq.SelectBuilder) ([]agents.Agent, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	result := []agents.Agent{}
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		result = append(result, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return result, nil
}

func scanAgent(row pgx.Row) (*agents.Agent, error) {
	var (
		id         pgtype.UUID
		externalID int64
		status     string
		owner      pgtype.Text
		agent      agents.Agent
	)

	err := row.Scan(
		&id,
		&externalID,
		&agent.Name,
		&agent.IPAddress,
		&status,
		&agent.Hostname,
		&agent.LastSeenAt,
		&agent.DateAdded,
		&owner,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	agent.ID = uuid.UUID(id.Bytes).String()
	agent.ExternalID = agents.ExternalID(externalID)
	agent.Status = agents.Status(status)
	agent.OwnerEmail = owner.String
	return &agent, nil
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
