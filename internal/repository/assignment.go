package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentRepository implements assignments.Store on PostgreSQL.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// Assign inserts or updates one agent entry for a user. The user's
// assignment row is locked for the duration of the transaction so
// concurrent assignments for the same user are applied one at a time.
func (r *AssignmentRepository) Assign(ctx context.Context, in assignments.AssignInput) (assignments.Outcome, *assignments.Assignment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("Failed to rollback assignment transaction", "error", err)
		}
	}()

	query, args, err := psql.
		Insert("agent_assignments").
		Columns("user_email", "user_name").
		Values(in.UserEmail, in.UserName).
		Suffix("ON CONFLICT (user_email) DO NOTHING").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return "", nil, fmt.Errorf("ensure assignment: %w", err)
	}

	query, args, err = psql.
		Select("user_email").
		From("agent_assignments").
		Where(sq.Eq{"user_email": in.UserEmail}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}
	var locked string
	if err := tx.QueryRow(ctx, query, args...).Scan(&locked); err != nil {
		return "", nil, fmt.Errorf("lock assignment: %w", err)
	}

	existing, err := findAssignedAgent(ctx, tx, in.UserEmail, in.Agent.ExternalID)
	if err != nil {
		return "", nil, err
	}

	outcome := assignments.Decide(existing, in.Agent.Status)
	switch outcome {
	case assignments.OutcomeCreated:
		query, args, err = psql.
			Insert("assigned_agents").
			Columns("user_email", "agent_external_id", "agent_name", "agent_ip", "status").
			Values(in.UserEmail, int64(in.Agent.ExternalID), in.Agent.Name, in.Agent.IPAddress, string(in.Agent.Status)).
			ToSql()
	case assignments.OutcomeUpdated:
		query, args, err = psql.
			Update("assigned_agents").
			Set("status", string(in.Agent.Status)).
			Where(sq.Eq{"user_email": in.UserEmail, "agent_external_id": int64(in.Agent.ExternalID)}).
			ToSql()
	}
	if err != nil {
		return "", nil, fmt.Errorf("build query: %w", err)
	}

	if outcome != assignments.OutcomeUnchanged {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return "", nil, fmt.Errorf("write assigned agent: %w", err)
		}
		if _, err := tx.Exec(ctx, "UPDATE agent_assignments SET updated_at = now() WHERE user_email = $1", in.UserEmail); err != nil {
			return "", nil, fmt.Errorf("touch assignment: %w", err)
		}
	}

	assignment, err := getAssignment(ctx, tx, in.UserEmail)
	if err != nil {
		return "", nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", nil, fmt.Errorf("commit assignment: %w", err)
	}

	return outcome, assignment, nil
}

func (r *AssignmentRepository) Get(ctx context.Context, userEmail string) (*assignments.Assignment, error) {
	return getAssignment(ctx, r.pool, userEmail)
}

func findAssignedAgent(ctx context.Context, q querier, userEmail string, id agents.ExternalID) (*assignments.AssignedAgent, error) {
	query, args, err := psql.
		Select("agent_external_id", "agent_name", "agent_ip", "status", "assigned_at").
		From("assigned_agents").
		Where(sq.Eq{"user_email": userEmail, "agent_external_id": int64(id)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	agent, err := scanAssignedAgent(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query assigned agent: %w", err)
	}
	return agent, nil
}

func getAssignment(ctx context.Context, q querier, userEmail string) (*assignments.Assignment, error) {
	query, args, err := psql.
		Select("user_email", "user_name", "created_at", "updated_at").
		From("agent_assignments").
		Where(sq.Eq{"user_email": userEmail}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a assignments.Assignment
	err = q.QueryRow(ctx, query, args...).Scan(&a.UserEmail, &a.UserName, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assignments.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("query assignment: %w", err)
	}

	query, args, err = psql.
		Select("agent_external_id", "agent_name", "agent_ip", "status", "assigned_at").
		From("assigned_agents").
		Where(sq.Eq{"user_email": userEmail}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assigned agents: %w", err)
	}
	defer rows.Close()

	a.Agents = []assignments.AssignedAgent{}
	for rows.Next() {
		agent, err := scanAssignedAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assigned agent: %w", err)
		}
		a.Agents = append(a.Agents, *agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned agents: %w", err)
	}

	return &a, nil
}

func scanAssignedAgent(row pgx.Row) (*assignments.AssignedAgent, error) {
	var (
		externalID int64
		status     string
		agent      assignments.AssignedAgent
	)
	if err := row.Scan(&externalID, &agent.Name, &agent.IPAddress, &status, &agent.AssignedAt); err != nil {
		return nil, err
	}
	agent.ExternalID = agents.ExternalID(externalID)
	agent.Status = agents.Status(status)
	return &agent, nil
}
