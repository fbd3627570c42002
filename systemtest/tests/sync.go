package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T, env *Env) {
	admin := env.AdminToken(t)
	ctx := context.Background()

	env.Manager.SetAgents(
		wazuh.Agent{ID: "401", Name: "edge-401", IP: "10.4.0.1", Status: "active", LastKeepAlive: "2024-05-01T10:00:00Z"},
		wazuh.Agent{ID: "402", Name: "edge-402", IP: "10.4.0.2", Status: "disconnected"},
		wazuh.Agent{ID: "403", Name: "edge-403", RegisterIP: "10.4.0.3", Status: "pending"},
	)

	t.Run("manual sync stores manager agents", func(t *testing.T) {
		rr := doJSONWithAuth(env.Router, "GET", "/sync-wazuh-agents", nil, admin)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, 3, decode[dto.SyncResponse](t, rr).Count)

		got, err := env.Agents.GetByExternalIDs(ctx, []agents.ExternalID{401, 402, 403})
		require.NoError(t, err)
		require.Len(t, got, 3)

		a, err := env.Agents.GetByExternalID(ctx, 403)
		require.NoError(t, err)
		assert.Equal(t, "10.4.0.3", a.IPAddress)
		assert.Equal(t, agents.StatusPending, a.Status)
	})

	t.Run("second sync is idempotent", func(t *testing.T) {
		env.Manager.SetAgents(
			wazuh.Agent{ID: "401", Name: "edge-401", IP: "10.4.0.1", Status: "disconnected"},
		)
		rr := doJSONWithAuth(env.Router, "GET", "/sync-wazuh-agents", nil, admin)
		require.Equal(t, http.StatusOK, rr.Code)

		got, err := env.Agents.GetByExternalIDs(ctx, []agents.ExternalID{401, 402, 403})
		require.NoError(t, err)
		assert.Len(t, got, 3)

		a, err := env.Agents.GetByExternalID(ctx, 401)
		require.NoError(t, err)
		assert.Equal(t, agents.StatusDisconnected, a.Status)
	})

	t.Run("rejected credentials return 500 with details", func(t *testing.T) {
		env.Manager.Deny(true)
		defer env.Manager.Deny(false)

		rr := doJSONWithAuth(env.Router, "GET", "/sync-wazuh-agents", nil, admin)
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decode[dto.ErrorResponse](t, rr)
		assert.NotEmpty(t, resp.Error)
		assert.NotEmpty(t, resp.Details)
	})
}
