package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EternisAI/soc-agent-sync/internal/agents"
	"github.com/EternisAI/soc-agent-sync/internal/agentsync"
	internalhttp "github.com/EternisAI/soc-agent-sync/internal/api/http"
	"github.com/EternisAI/soc-agent-sync/internal/assignments"
	"github.com/EternisAI/soc-agent-sync/internal/db"
	"github.com/EternisAI/soc-agent-sync/internal/metrics"
	"github.com/EternisAI/soc-agent-sync/internal/repository"
	"github.com/EternisAI/soc-agent-sync/internal/wazuh"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("SOC Agent Sync Server", "version", AppVersion)

	if err := db.RunMigrations(config.DB); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.InitDB(ctx, config.DB)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool)
	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	agentRepo := repository.NewAgentRepository(pool)
	agentService := agents.NewService(agentRepo)
	assignmentService := assignments.NewService(repository.NewAssignmentRepository(pool), agentService)

	wazuhClient, err := wazuh.NewClient(config.Wazuh)
	if err != nil {
		slog.Error("Failed to create Wazuh client", "error", err)
		os.Exit(1)
	}
	syncJob := agentsync.NewJob(wazuhClient, agentRepo, config.Sync, syncMetrics)

	services := &internalhttp.Services{
		Agents:      agentService,
		Assignments: assignmentService,
		Syncer:      syncJob,
		JWTSecret:   config.Auth.JWTSecret,
		SyncLimiter: internalhttp.NewSyncLimiter(config.Http),
		Metrics:     promhttp.Handler(),
	}

	allowedOrigins := config.Http.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Http.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if config.Sync.Enabled {
		syncJob.Start(ctx)
	} else {
		slog.Warn("Periodic agent sync disabled")
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	syncJob.Stop()
	slog.Info("Shutdown complete")
}
