package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/relocation-backend/internal/http/handlers"
	"github.com/yungbote/relocation-backend/internal/http/middleware"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *middleware.AuthMiddleware

	HealthHandler  *handlers.HealthHandler
	ProfileHandler *handlers.ProfileHandler
	TurnHandler    *handlers.TurnHandler
	ContextHandler *handlers.ContextHandler
	EventsHandler  *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.AttachRequestContext())
	r.Use(middleware.RequestTelemetry(cfg.Log, cfg.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	// Context assembly serves anonymous callers with knowledge and articles only.
	api.POST("/context", cfg.AuthMiddleware.OptionalUser(), cfg.ContextHandler.Assemble)
	api.POST("/turns", cfg.AuthMiddleware.OptionalUser(), cfg.TurnHandler.SubmitTurn)

	protected := api.Group("/profile")
	protected.Use(cfg.AuthMiddleware.RequireUser())
	{
		protected.GET("/facts", cfg.ProfileHandler.ListFacts)
		protected.POST("/facts", cfg.ProfileHandler.UpsertFact)
		protected.POST("/facts/:id/verify", cfg.ProfileHandler.VerifyFact)
		protected.DELETE("/facts/:id", cfg.ProfileHandler.DeactivateFact)
		protected.GET("/pending-confirmations", cfg.ProfileHandler.ListPending)
		protected.POST("/confirm-fact", cfg.ProfileHandler.ConfirmFact)
		protected.POST("/sync-graph", cfg.ProfileHandler.SyncGraph)
		if cfg.EventsHandler != nil {
			protected.GET("/events", cfg.EventsHandler.Stream)
		}
	}

	return r
}
