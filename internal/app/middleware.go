package app

import (
	"github.com/yungbote/relocation-backend/internal/http/middleware"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *middleware.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	auth, err := middleware.NewAuthMiddleware(log, cfg.Auth)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{Auth: auth}, nil
}
