package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lblod/entity-linker/internal/agent"
	"github.com/lblod/entity-linker/internal/config"
	"github.com/lblod/entity-linker/internal/knowledge"
	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/server"
	"github.com/lblod/entity-linker/internal/sparql"
	"github.com/lblod/entity-linker/internal/task"
	"github.com/lblod/entity-linker/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// app holds the fully wired linking pipeline.
type app struct {
	metrics  *metrics.Collector
	sparql   *sparql.Client
	kb       knowledge.Base
	mcp      *server.Server
	agent    agent.Agent
	store    *task.SPARQLStore
	executor *task.Executor

	session *mcp.ClientSession
	closeKB func()
}

// newApp wires config into the knowledge base, MCP tools, agent and task
// executor. A failing knowledge base initialization is logged, not fatal.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	m := metrics.NewCollector()
	sparqlClient := newSPARQLClient(cfg, m, logger)

	kb, closeKB, err := openKnowledgeBase(ctx, cfg, m, logger)
	if err != nil {
		return nil, fmt.Errorf("init knowledge base: %w", err)
	}
	if err := kb.Initialize(ctx); err != nil {
		logger.Error("knowledge base initialization failed", "error", err)
	}

	a := &app{metrics: m, sparql: sparqlClient, kb: kb, closeKB: closeKB}

	a.mcp = server.New(&tools.Dependencies{
		Knowledge: kb,
		SPARQL:    sparqlClient,
		Geocoder:  newGeocoder(cfg),
		Logger:    logger,
	}, Version, logger)
	a.mcp.Setup()

	a.session, err = a.mcp.Connect(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect agent to tools: %w", err)
	}

	model, err := agent.NewModel(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init model: %w", err)
	}
	llmAgent := agent.NewLLMAgent(model, a.session, agent.Options{
		MaxSteps:     cfg.AgentMaxSteps,
		Temperature:  cfg.Temperature,
		EnabledTools: cfg.EnabledTools,
		Metrics:      m,
	}, logger)
	if err := llmAgent.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init agent: %w", err)
	}
	a.agent = agent.WithTimeout(llmAgent, cfg.AgentTimeout)
	logger.Info("agent initialized", "provider", cfg.LLMProvider, "max_steps", cfg.AgentMaxSteps)

	a.store = task.NewSPARQLStore(sparqlClient.Sudo(), cfg.ApplicationGraph, logger)
	linking := task.NewEntityLinking(a.store, a.agent, task.RetryPolicy{
		MaxAttempts: cfg.MaxRetries,
		Delay:       cfg.RetryDelay,
	}, logger)
	registry, err := task.NewRegistry(linking.Registration())
	if err != nil {
		a.Close()
		return nil, err
	}
	a.executor = task.NewExecutor(a.store, registry, uuid.NewString(), m, logger)

	return a, nil
}

// Close releases the tool session and the vector database connection.
func (a *app) Close() {
	if a.session != nil {
		_ = a.session.Close()
	}
	if a.closeKB != nil {
		a.closeKB()
	}
}
