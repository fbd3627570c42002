package tests

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/api/http/dto"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
	"github.com/EternisAI/soc-agent-sync/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignments(t *testing.T, env *Env) {
	admin := env.AdminToken(t)

	t.Run("created then unchanged", func(t *testing.T) {
		body := map[string]any{
			"userEmail": "a@b.com",
			"userName":  "A",
			"agentName": "Agent1",
			"agentId":   5,
			"agentIp":   "10.0.0.1",
			"status":    "active",
		}

		rr := doJSONWithAuth(env.Router, "POST", "/assign-agent-to-user", body, admin)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, assignments.OutcomeCreated, decode[dto.AssignAgentResponse](t, rr).Result)

		rr = doJSONWithAuth(env.Router, "POST", "/assign-agent-to-user", body, admin)
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[dto.AssignAgentResponse](t, rr)
		assert.Equal(t, assignments.OutcomeUnchanged, resp.Result)
		assert.Len(t, resp.Assignment.Agents, 1)

		body["status"] = "disconnected"
		rr = doJSONWithAuth(env.Router, "POST", "/assign-agent-to-user", body, admin)
		require.Equal(t, http.StatusOK, rr.Code)
		resp = decode[dto.AssignAgentResponse](t, rr)
		assert.Equal(t, assignments.OutcomeUpdated, resp.Result)
		assert.Equal(t, agents.StatusDisconnected, resp.Assignment.Agents[0].Status)
	})

	t.Run("append keeps order and details join", func(t *testing.T) {
		_, err := env.Agents.Upsert(context.Background(), agents.Agent{
			ExternalID: 301, Name: "joined", IPAddress: "10.3.0.1", Hostname: "joined.local",
		})
		require.NoError(t, err)

		for _, id := range []int{301, 302} {
			rr := doJSONWithAuth(env.Router, "POST", "/assign-agent-to-user", map[string]any{
				"userEmail": "order@b.com", "userName": "O", "agentName": "n", "agentId": id, "agentIp": "10.3.0.9",
			}, admin)
			require.Equal(t, http.StatusOK, rr.Code)
		}

		user := env.Token(t, "order@b.com", auth.RoleUser)
		rr := doJSONWithAuth(env.Router, "GET", "/assigned-agents?userEmail=order@b.com", nil, user)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decode[dto.AssignedAgentsResponse](t, rr)
		require.Len(t, list.Agents, 2)
		assert.Equal(t, agents.ExternalID(301), list.Agents[0].AgentID)
		assert.Equal(t, agents.ExternalID(302), list.Agents[1].AgentID)

		rr = doJSONWithAuth(env.Router, "GET", "/assigned-agents-details?userEmail=order@b.com", nil, user)
		require.Equal(t, http.StatusOK, rr.Code)
		details := decode[dto.ListAgentsResponse](t, rr)
		require.Len(t, details.Agents, 1)
		assert.Equal(t, "joined.local", details.Agents[0].Hostname)
	})

	t.Run("concurrent assignment of one pair", func(t *testing.T) {
		in := assignments.AssignInput{
			UserEmail: "race@b.com",
			UserName:  "R",
			Agent:     assignments.AssignedAgent{ExternalID: 7, Name: "Agent7", IPAddress: "10.0.0.7", Status: agents.StatusActive},
		}

		var mu sync.Mutex
		outcomes := map[assignments.Outcome]int{}
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, _, err := env.Assignments.Assign(context.Background(), in)
				assert.NoError(t, err)
				mu.Lock()
				outcomes[outcome]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, outcomes[assignments.OutcomeCreated])
		assert.Equal(t, 7, outcomes[assignments.OutcomeUnchanged])

		got, err := env.Assignments.Get(context.Background(), "race@b.com")
		require.NoError(t, err)
		assert.Len(t, got.Agents, 1)
	})

	t.Run("unknown user", func(t *testing.T) {
		rr := doJSONWithAuth(env.Router, "GET", "/assigned-agents?userEmail=ghost@b.com", nil, admin)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
