package app

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/match"
	"github.com/yungbote/relocation-backend/internal/facts/policy"
	"github.com/yungbote/relocation-backend/internal/jobs/worker"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/realtime"
	"github.com/yungbote/relocation-backend/internal/services"
)

type Services struct {
	Hub        *realtime.Hub
	Notifier   services.ProfileNotifier
	GraphSync  services.GraphSyncService
	Facts      services.FactStore
	Queue      services.ConfirmationQueue
	Extraction services.ExtractionService
	Context    services.ContextAssembler
	Dispatcher *worker.Dispatcher
	Sweeper    *worker.ConfirmationSweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	notifier := services.NewProfileNotifier(clients.Bus, log)
	graph := services.NewGraphSyncService(log, clients.Neo4j, repos.Fact)
	observers := services.FactObservers{notifier, graph}

	facts := services.NewFactStore(db, log, repos.Profile, repos.Fact, observers, cfg.ProfileCacheSize)
	queue := services.NewConfirmationQueue(db, log, repos.Confirmation, facts, cfg.Policy.PendingDedupe, notifier, observers, metrics)

	registry, err := buildRegistry(log, cfg, clients)
	if err != nil {
		return Services{}, err
	}
	engine := policy.NewEngine(cfg.Policy)
	extraction := services.NewExtractionService(log, registry, engine, facts, queue, metrics)

	// Knowledge and memory sources are not wired in this deployment.
	assembler := services.NewContextAssembler(log, facts, repos.Article, nil, nil)

	dispatcher := worker.NewDispatcher(log, extraction, metrics, cfg.Extraction)
	sweeper, err := worker.NewConfirmationSweeper(log, queue, cfg.Sweeper)
	if err != nil {
		return Services{}, fmt.Errorf("init confirmation sweeper: %w", err)
	}

	return Services{
		Hub:        realtime.NewHub(log),
		Notifier:   notifier,
		GraphSync:  graph,
		Facts:      facts,
		Queue:      queue,
		Extraction: extraction,
		Context:    assembler,
		Dispatcher: dispatcher,
		Sweeper:    sweeper,
	}, nil
}

// buildRegistry installs the regex matchers and, when an OpenAI key is set,
// one LLM matcher per fact type after them.
func buildRegistry(log *logger.Logger, cfg Config, clients Clients) (*match.Registry, error) {
	registry := match.DefaultRegistry()
	if clients.OpenAI == nil {
		return registry, nil
	}
	llm, err := match.NewLLMExtractor(clients.OpenAI, log, types.FactTypes, cfg.LLMCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init llm extractor: %w", err)
	}
	for _, ft := range types.FactTypes {
		registry.Register(ft, llm.Matcher(ft))
	}
	log.Info("LLM matcher enabled")
	return registry, nil
}
