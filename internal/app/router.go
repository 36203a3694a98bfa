package app

import (
	"github.com/yungbote/relocation-backend/internal/http"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: middleware.Auth,
		HealthHandler:  handlers.Health,
		ProfileHandler: handlers.Profile,
		TurnHandler:    handlers.Turn,
		ContextHandler: handlers.Context,
		EventsHandler:  handlers.Events,
	})
}
