package bootstrap

import (
	"context"
	"log"

	"ai-learning-assistant-be/internal/config"
	"ai-learning-assistant-be/internal/controller"
	"ai-learning-assistant-be/internal/handler"
	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/internal/repository/memory"
	"ai-learning-assistant-be/internal/service"
	"ai-learning-assistant-be/internal/websocket"
	"ai-learning-assistant-be/pkg/assistant/query"
	"ai-learning-assistant-be/pkg/events"
	"ai-learning-assistant-be/pkg/llm"
	"ai-learning-assistant-be/pkg/llm/factory"
	pktNats "ai-learning-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	HealthController    controller.IHealthController

	// WebSockets
	SessionEventHandler *handler.SessionEventHandler
	WebSocketHub        *websocket.Hub

	// Background Services (Exposed for main.go to run)
	AssistantService  service.IAssistantService
	EventRelayService service.IEventRelayService

	Logger logger.ILogger

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
}

// NewContainer builds the provider from configuration. A provider that cannot
// be built stops the process.
func NewContainer(cfg *config.Config) *Container {
	baseURL, apiKey := cfg.ProviderEndpoint()
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  baseURL,
		APIKey:   apiKey,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", llmProvider.Name(), cfg.Ai.LLMModel)

	return NewContainerWithProvider(cfg, llmProvider)
}

func NewContainerWithProvider(cfg *config.Config, llmProvider llm.LLMProvider) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)

	// 2. Event Bus
	// Publish waits for the relay's ack so a session's events reach
	// subscribers in the order they were published.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		},
		watermillLogger,
	)

	// NATS is an optional mirror of the bus
	var natsPub *pktNats.Publisher
	var mirror events.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(context.Background(), cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = pub
			mirror = pub
		}
	}

	// 3. Sessions
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval)

	var llmOptions []llm.Option
	if cfg.Ai.MaxOutputTokens > 0 {
		llmOptions = append(llmOptions, llm.WithMaxTokens(cfg.Ai.MaxOutputTokens))
	}
	queryService := query.NewService(llmProvider, sysLogger, llmLogger, llmOptions...)

	publisherService := service.NewPublisherService(cfg.Session.EventTopic, pubSub)
	assistantService := service.NewAssistantService(sessionRepo, queryService, publisherService, sysLogger)

	// 4. WebSocket Hub
	wsHub := websocket.NewHub(sysLogger)
	sessionRepo.OnEvicted(func(sessionID string) {
		sysLogger.Info("Bootstrap", "Session expired", map[string]interface{}{"session_id": sessionID})
		wsHub.CloseSession(sessionID)
	})

	relayService := service.NewEventRelayService(
		pubSub,
		cfg.Session.EventTopic,
		wsHub, // Hub implements SessionEventDelivery
		mirror,
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		AssistantController: controller.NewAssistantController(assistantService),
		HealthController:    controller.NewHealthController(llmProvider.Name(), sessionRepo),
		SessionEventHandler: handler.NewSessionEventHandler(assistantService, wsHub, sysLogger),
		WebSocketHub:        wsHub,
		AssistantService:    assistantService,
		EventRelayService:   relayService,
		Logger:              sysLogger,
		pubSub:              pubSub,
		natsPub:             natsPub,
	}
}

// Start runs the hub and the event relay until ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	return c.EventRelayService.Consume(ctx)
}

// Close waits for background answers, then releases the bus and NATS.
func (c *Container) Close(ctx context.Context) error {
	err := c.AssistantService.Wait(ctx)
	if cerr := c.pubSub.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	c.Logger.Sync()
	return err
}
