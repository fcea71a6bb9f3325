// Package api implements the §6.4 HTTP surface over the Suite Orchestrator,
// Knowledge Store, Impact Analyser and Trigger Dispatcher.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/webqa/autoheal/pkg/config"
	"github.com/webqa/autoheal/pkg/executor"
	"github.com/webqa/autoheal/pkg/impact"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/livestatus"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/orchestrator"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
	"github.com/webqa/autoheal/pkg/trigger"
)

// Store is the persistence surface the API handlers need: suites, plans,
// triggers and run reports. *storage.FSStore (and any Postgres-backed
// equivalent) satisfies this by method set.
type Store interface {
	SaveSuite(s *suite.Suite) error
	LoadSuite(suiteID string) (*suite.Suite, error)
	ListSuites() ([]*suite.Suite, error)
	DeleteSuite(suiteID string) error

	SaveTrigger(t *suite.Trigger) error
	LoadTrigger(triggerID string) (*suite.Trigger, error)
	ListTriggers(typ suite.TriggerType) ([]*suite.Trigger, error)
	DeleteTrigger(triggerID string) error

	SavePlan(p *plan.Plan) error
	LoadPlan(planID string) (*plan.Plan, error)

	SaveRunReport(run *plan.Run) error
	LoadRunReport(runID string) (*plan.Run, error)
}

// Server is the HTTP API server (spec.md §6.4), following the teacher's
// Echo v5 wrapper shape.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg *config.Config

	store       Store
	newExecutor func(suiteID, planID string) *executor.Executor
	orch        *orchestrator.Orchestrator
	tracker     *livestatus.Tracker
	feed        *livestatus.ChangeFeed
	knowledge   knowledge.Store
	embed       llmclient.EmbeddingClient
	impact      *impact.Analyser
	dispatcher  *trigger.Dispatcher
}

// NewServer wires a Server over its collaborators and registers every route.
func NewServer(
	cfg *config.Config,
	store Store,
	newExecutor func(suiteID, planID string) *executor.Executor,
	orch *orchestrator.Orchestrator,
	tracker *livestatus.Tracker,
	feed *livestatus.ChangeFeed,
	knowledgeStore knowledge.Store,
	embed llmclient.EmbeddingClient,
	impactAnalyser *impact.Analyser,
	dispatcher *trigger.Dispatcher,
) *Server {
	e := echo.New()
	s := &Server{
		echo:        e,
		cfg:         cfg,
		store:       store,
		newExecutor: newExecutor,
		orch:        orch,
		tracker:     tracker,
		feed:        feed,
		knowledge:   knowledgeStore,
		embed:       embed,
		impact:      impactAnalyser,
		dispatcher:  dispatcher,
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers every route named in spec.md §6.4.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/ws", s.wsHandler)

	s.echo.POST("/runs", s.createRunHandler)
	s.echo.GET("/runs/:runId", s.getRunHandler)

	s.echo.POST("/suites/:suiteId/run", s.runSuiteHandler)
	s.echo.GET("/suites/:suiteId/status", s.suiteStatusHandler)

	s.echo.POST("/knowledge/store", s.knowledgeStoreHandler)
	s.echo.POST("/knowledge/query", s.knowledgeQueryHandler)
	s.echo.GET("/knowledge/similar/:runId", s.knowledgeSimilarHandler)
	s.echo.POST("/knowledge/impact", s.knowledgeImpactHandler)

	s.echo.POST("/triggers", s.createTriggerHandler)
	s.echo.GET("/triggers", s.listTriggersHandler)
	s.echo.GET("/triggers/:triggerId", s.getTriggerHandler)
	s.echo.PUT("/triggers/:triggerId", s.updateTriggerHandler)
	s.echo.DELETE("/triggers/:triggerId", s.deleteTriggerHandler)
	s.echo.POST("/triggers/:triggerId/fire", s.fireTriggerHandler)

	s.echo.POST("/webhooks/:provider", s.webhookHandler)
}

// Start starts the HTTP server on addr (non-blocking w.r.t. the caller's
// other setup, blocking on ListenAndServe itself).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// letting tests bind to a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requestTimeout bounds handler-internal context budgets that aren't
// otherwise bounded by an Executor/Orchestrator RunTimeout (e.g. knowledge
// queries, impact analysis).
const requestTimeout = 30 * time.Second
