package tests

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T, env *Env) {
	rr := doJSON(env.Router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[dto.HealthResponse](t, rr).Status)
}

func TestAgentStore(t *testing.T, env *Env) {
	ctx := context.Background()

	t.Run("upsert twice keeps one row", func(t *testing.T) {
		first, err := env.Agents.Upsert(ctx, agents.Agent{
			ExternalID: 101, Name: "web-101", IPAddress: "10.1.0.1", Status: agents.StatusActive,
		})
		require.NoError(t, err)

		second, err := env.Agents.Upsert(ctx, agents.Agent{
			ExternalID: 101, Name: "web-101-renamed", IPAddress: "10.1.0.2", Status: agents.StatusDisconnected,
		})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "web-101-renamed", second.Name)
		assert.Equal(t, agents.StatusDisconnected, second.Status)

		got, err := env.Agents.GetByExternalIDs(ctx, []agents.ExternalID{101})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("concurrent upserts of one id", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.Agents.Upsert(ctx, agents.Agent{
					ExternalID: 102, Name: "db-102", IPAddress: "10.1.0.3", Status: agents.StatusActive,
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := env.Agents.GetByExternalIDs(ctx, []agents.ExternalID{102})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("owner survives upsert without owner", func(t *testing.T) {
		_, err := env.Agents.Upsert(ctx, agents.Agent{ExternalID: 103, Name: "a", IPAddress: "10.1.0.4"})
		require.NoError(t, err)
		_, err = env.Agents.SetOwner(ctx, 103, "owner@soc.io")
		require.NoError(t, err)

		updated, err := env.Agents.Upsert(ctx, agents.Agent{ExternalID: 103, Name: "b", IPAddress: "10.1.0.4"})
		require.NoError(t, err)
		assert.Equal(t, "owner@soc.io", updated.OwnerEmail)
		assert.Equal(t, "b", updated.Name)

		owned, err := env.Agents.ListByOwner(ctx, "OWNER@soc.io")
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Equal(t, agents.ExternalID(103), owned[0].ExternalID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := env.Agents.GetByExternalID(ctx, 99999)
		assert.ErrorIs(t, err, agents.ErrAgentNotFound)

		_, err = env.Agents.SetOwner(ctx, 99999, "x@soc.io")
		assert.ErrorIs(t, err, agents.ErrAgentNotFound)
	})
}

func TestRegisterAgent(t *testing.T, env *Env) {
	admin := env.AdminToken(t)

	t.Run("missing fields", func(t *testing.T) {
		rr := doJSONWithAuth(env.Router, "POST", "/register-agent", map[string]any{"agentName": "x"}, admin)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decode[dto.ErrorResponse](t, rr)
		assert.Contains(t, resp.Error, "agentId")
		assert.Contains(t, resp.Error, "agentIp")
	})

	t.Run("register and list", func(t *testing.T) {
		rr := doJSONWithAuth(env.Router, "POST", "/register-agent", map[string]any{
			"agentName":  "laptop-201",
			"agentId":    "201",
			"agentIp":    "10.2.0.1",
			"status":     "active",
			"ownerEmail": "analyst@soc.io",
		}, admin)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		created := decode[dto.AgentResponse](t, rr)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, agents.ExternalID(201), created.AgentID)

		analyst := env.Token(t, "analyst@soc.io", auth.RoleUser)
		rr = doJSONWithAuth(env.Router, "GET", "/agents", nil, analyst)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decode[dto.ListAgentsResponse](t, rr)
		require.Len(t, list.Agents, 1)
		assert.Equal(t, "laptop-201", list.Agents[0].AgentName)

		rr = doJSONWithAuth(env.Router, "GET", "/user-agents?userEmail=analyst@soc.io", nil, admin)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, decode[dto.ListAgentsResponse](t, rr).Count)
	})

	t.Run("401 without token", func(t *testing.T) {
		rr := doJSON(env.Router, "GET", "/agents", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
