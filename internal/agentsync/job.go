package agentsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/metrics"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
)

const (
	DefaultInterval = 30 * time.Second

	triggerScheduled = "scheduled"
	triggerManual    = "manual"
)

type Config struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

// Manager is the subset of the Wazuh client used by the job.
type Manager interface {
	Token(ctx context.Context) (string, error)
	ListAgents(ctx context.Context, token string) ([]wazuh.Agent, error)
}

type Store interface {
	Upsert(ctx context.Context, agent agents.Agent) (*agents.Agent, error)
}

// Job copies the manager's agent roster into the agent store on a fixed
// interval. Scheduled and manual runs never overlap.
type Job struct {
	manager Manager
	store   Store
	config  Config
	metrics *metrics.SyncMetrics

	runMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewJob(manager Manager, store Store, config Config, m *metrics.SyncMetrics) *Job {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Job{
		manager: manager,
		store:   store,
		config:  config,
		metrics: m,
	}
}

// SyncOnce runs one sync cycle and returns the number of agents written.
// It waits for any run already in progress.
func (j *Job) SyncOnce(ctx context.Context) (int, error) {
	return j.run(ctx, triggerManual)
}

func (j *Job) run(ctx context.Context, trigger string) (int, error) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	start := time.Now()
	count, skipped, total, err := j.syncAgents(ctx)

	if j.metrics != nil {
		j.metrics.Duration.Observe(time.Since(start).Seconds())
		j.metrics.Upserted.Add(float64(count))
		j.metrics.Skipped.Add(float64(skipped))
		if err != nil {
			j.metrics.Runs.WithLabelValues(trigger, metrics.ResultFailure).Inc()
		} else {
			j.metrics.Runs.WithLabelValues(trigger, metrics.ResultSuccess).Inc()
			j.metrics.AgentsSeen.Set(float64(total))
			j.metrics.LastSuccess.SetToCurrentTime()
		}
	}

	if err != nil {
		return count, err
	}

	slog.Info("Agent sync completed",
		"trigger", trigger,
		"synced", count,
		"skipped", skipped,
		"duration", time.Since(start))
	return count, nil
}

func (j *Job) syncAgents(ctx context.Context) (synced, skipped, total int, err error) {
	token, err := j.manager.Token(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("acquire manager token: %w", err)
	}

	remote, err := j.manager.ListAgents(ctx, token)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch manager agents: %w", err)
	}

	for _, w := range remote {
		agent, err := MapAgent(w)
		if err != nil {
			slog.Warn("Skipping manager agent", "wazuh_id", w.ID, "name", w.Name, "error", err)
			skipped++
			continue
		}

		if _, err := j.store.Upsert(ctx, agent); err != nil {
			return synced, skipped, len(remote), fmt.Errorf("upsert agent %s: %w", agent.ExternalID, err)
		}
		synced++
	}

	return synced, skipped, len(remote), nil
}

// Start launches the periodic loop. It is a no-op if the job is running.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})

	slog.Info("Agent sync job started", "interval", j.config.Interval, "run_on_start", j.config.RunOnStart)
	go j.loop(ctx, j.done)
}

// Stop cancels the loop and waits for an in-flight scheduled run to return.
func (j *Job) Stop() {
	j.mu.Lock()
	cancel, done := j.cancel, j.done
	j.cancel, j.done = nil, nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("Agent sync job stopped")
}

func (j *Job) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if j.config.RunOnStart {
		j.tick(ctx)
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

// tick runs one scheduled sync. Failures are logged and the next tick
// proceeds as usual.
func (j *Job) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Agent sync panicked", "panic", r)
		}
	}()

	if _, err := j.run(ctx, triggerScheduled); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Agent sync failed", "error", err)
	}
}
