package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/platform/neo4jdb"
	"github.com/yungbote/relocation-backend/internal/platform/openai"
	"github.com/yungbote/relocation-backend/internal/realtime/bus"
)

// Clients holds the optional external backends. Each is nil when unconfigured.
type Clients struct {
	Bus    bus.Bus
	Neo4j  *neo4jdb.Client
	OpenAI *openai.Client
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var b bus.Bus
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rb, err := bus.NewRedisBus(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		b = rb
	} else {
		log.Warn("REDIS_ADDR not set; profile events reach streams on this instance only")
		b = bus.NewMemoryBus()
	}

	// Neo4j
	graph, err := neo4jdb.New(log, neo4jdb.ConfigFromEnv())
	if err != nil {
		_ = b.Close()
		return Clients{}, fmt.Errorf("init neo4j: %w", err)
	}

	// OpenAI
	llm, err := openai.New(log, openai.ConfigFromEnv())
	if err != nil {
		_ = b.Close()
		closeNeo4j(graph)
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	llm.WithMetrics(metrics)

	return Clients{Bus: b, Neo4j: graph, OpenAI: llm}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	closeNeo4j(c.Neo4j)
}

func closeNeo4j(c *neo4jdb.Client) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Close(ctx)
}
