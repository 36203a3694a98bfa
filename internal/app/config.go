package app

import (
	"fmt"
	"time"

	"github.com/yungbote/relocation-backend/internal/facts/policy"
	"github.com/yungbote/relocation-backend/internal/http/middleware"
	"github.com/yungbote/relocation-backend/internal/jobs/worker"
	"github.com/yungbote/relocation-backend/internal/platform/envutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/realtime/bus"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	CORSOrigins []string
	MetricsAddr string

	Auth  middleware.AuthConfig
	Redis bus.RedisConfig

	Policy           policy.Config
	ProfileCacheSize int
	LLMCacheSize     int

	Extraction worker.Config
	Sweeper    worker.SweeperConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	pol, err := policy.LoadFile(policy.DefaultConfig(), envutil.String("FACT_POLICY_FILE", ""))
	if err != nil {
		return Config{}, err
	}
	pol, err = policy.ApplyEnv(pol)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "relocation"),
		CORSOrigins: envutil.CSV("CORS_ALLOWED_ORIGINS", nil),
		MetricsAddr: envutil.String("METRICS_ADDR", ""),
		Auth: middleware.AuthConfig{
			Mode:      envutil.String("AUTH_MODE", middleware.AuthModeJWT),
			JWTSecret: envutil.String("JWT_SECRET_KEY", ""),
		},
		Redis: bus.RedisConfig{
			Addr:     envutil.String("REDIS_ADDR", ""),
			Password: envutil.String("REDIS_PASSWORD", ""),
			DB:       envutil.Int("REDIS_DB", 0),
			Channel:  envutil.String("REDIS_CHANNEL", "profile-events"),
		},
		Policy:           pol,
		ProfileCacheSize: envutil.Int("PROFILE_CACHE_SIZE", 1024),
		LLMCacheSize:     envutil.Int("EXTRACTION_LLM_CACHE_SIZE", 256),
		Extraction: worker.Config{
			Workers:     envutil.Int("EXTRACTION_WORKERS", 4),
			QueueSize:   envutil.Int("EXTRACTION_QUEUE_SIZE", 256),
			TurnTimeout: envutil.Duration("EXTRACTION_TIMEOUT", 10*time.Second),
		},
		Sweeper: worker.SweeperConfig{
			TTL:       envutil.Duration("CONFIRMATION_TTL", 0),
			Schedule:  envutil.String("CONFIRMATION_SWEEP_SCHEDULE", ""),
			BatchSize: envutil.Int("CONFIRMATION_SWEEP_BATCH", 500),
		},
	}
	if cfg.Extraction.Workers <= 0 || cfg.Extraction.QueueSize <= 0 {
		return Config{}, fmt.Errorf("config: EXTRACTION_WORKERS and EXTRACTION_QUEUE_SIZE must be positive")
	}
	if log != nil {
		log.Info("Config loaded",
			"port", cfg.Port,
			"auth_mode", cfg.Auth.Mode,
			"pending_dedupe", cfg.Policy.PendingDedupe,
			"extraction_workers", cfg.Extraction.Workers,
			"confirmation_ttl", cfg.Sweeper.TTL.String(),
		)
	}
	return cfg, nil
}
