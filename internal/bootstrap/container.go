package bootstrap

import (
	"context"
	"log"
	"time"

	"incentive-agent-be/internal/config"
	"incentive-agent-be/internal/controller"
	"incentive-agent-be/internal/pkg/logger"
	"incentive-agent-be/internal/repository/implementation"
	"incentive-agent-be/internal/service"
	"incentive-agent-be/pkg/dialog/answer"
	"incentive-agent-be/pkg/dialog/continuation"
	"incentive-agent-be/pkg/dialog/grammar"
	"incentive-agent-be/pkg/dialog/intent"
	"incentive-agent-be/pkg/dialog/question"
	"incentive-agent-be/pkg/dialog/resolve"
	"incentive-agent-be/pkg/dialog/route"
	"incentive-agent-be/pkg/docqa"
	"incentive-agent-be/pkg/embedding"
	"incentive-agent-be/pkg/llm/factory"
	"incentive-agent-be/pkg/retry"

	pkgNats "incentive-agent-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
}

// staticWorkloads enrich the DB-derived workload list; the catalog table
// stays the source of truth.
var staticWorkloads = []string{
	"D365 Customer Engagement",
	"D365 Finance & Supply Chain",
	"Business Central",
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.Default()
	policy := retry.DefaultPolicy()

	// 2. AI providers
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	embeddingProvider := embedding.Provider(embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel))
	sysLogger.Info("BOOTSTRAP", "AI providers ready", map[string]interface{}{
		"llm_provider":    cfg.Ai.LLMProvider,
		"llm_model":       cfg.Ai.LLMModel,
		"embedding_model": cfg.Ai.EmbeddingModel,
	})

	// 3. Storage
	catalogRepo := implementation.NewCatalogRepository(db)
	auditRepo := implementation.NewAuditRepository(db)
	docRetriever := implementation.NewDocRepository(db)

	redisOpts, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Fatalf("[FATAL] Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	sessionTTL := time.Duration(cfg.Dialog.SessionTTLMinutes) * time.Minute
	sessionRepo := implementation.NewSessionRepository(redisClient, sessionTTL)

	// 4. Catalog cache + field resolvers
	catalogCache := resolve.NewCatalogCache(catalogRepo, 15*time.Minute)
	catalogCache.StaticWorkloads = staticWorkloads
	if err := catalogCache.Refresh(context.Background()); err != nil {
		log.Printf("[WARN] Catalog cache warmup failed, will lazy-load: %v", err)
	}

	registry := resolve.NewRegistry(stdLogger)
	registry.Register("name", resolve.NewCatalogFuzzyResolver(resolve.NameSource{Cache: catalogCache}, resolve.DefaultThresholds()))
	registry.Register("workload", resolve.NewCatalogFuzzyResolver(resolve.WorkloadSource{Cache: catalogCache}, resolve.DefaultThresholds()))
	registry.Register("incentive_type", resolve.NewIncentiveTypeResolver())
	registry.Register("segment", resolve.NewSegmentResolver())
	registry.Register("country", resolve.NewCountryResolver(
		resolve.NewLLMCountryExtractor(llmProvider, policy),
		resolve.ISOAuthority{},
		stdLogger,
	))
	registry.Register("acv", resolve.NewAmountResolver())
	registry.Register("hours", resolve.NewDurationResolver())

	// 5. Dialogue collaborators
	router := route.NewLLMClassifier(llmProvider, policy, stdLogger)
	followups := continuation.NewTwoStageDetector(llmProvider, policy, continuation.DefaultFamilies(), stdLogger)
	intents := intent.NewLLMDetector(llmProvider, policy, stdLogger)
	questions := question.NewLLMGenerator(llmProvider, policy, stdLogger)
	answers := answer.NewLLMGenerator(llmProvider, policy, stdLogger)
	docAgent := docqa.NewAgent(embeddingProvider, docRetriever, llmProvider, policy, stdLogger)

	// 6. Event bus
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	var publisher service.IEventPublisher
	if natsPub != nil {
		publisher = natsPub
	}

	// 7. Services
	assistantService := service.NewAssistantService(
		sessionRepo,
		catalogRepo,
		router,
		followups,
		intents,
		registry,
		questions,
		answers,
		docAgent,
		publisher,
		grammar.SelectorConfig{DefaultToCategoryPair: cfg.Dialog.DefaultToCategoryPair},
		cfg.Dialog.MaxResolveAttempts,
		stdLogger,
	)
	consumerService := service.NewConsumerService(natsSub, cfg.Dialog.AuditTopic, auditRepo)

	// 8. Controllers
	assistantController := controller.NewAssistantController(assistantService)

	return &Container{
		AssistantController: assistantController,
		ConsumerService:     consumerService,
	}
}
