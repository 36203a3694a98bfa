package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/http/handlers"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Profile *handlers.ProfileHandler
	Turn    *handlers.TurnHandler
	Context *handlers.ContextHandler
	Events  *handlers.EventsHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	var pinger handlers.Pinger
	if sqlDB, err := db.DB(); err == nil {
		pinger = sqlDB
	}
	return Handlers{
		Health:  handlers.NewHealthHandler(pinger),
		Profile: handlers.NewProfileHandler(services.Facts, services.Queue, services.GraphSync),
		Turn:    handlers.NewTurnHandler(services.Dispatcher),
		Context: handlers.NewContextHandler(services.Context),
		Events:  handlers.NewEventsHandler(services.Facts, services.Hub),
	}
}
