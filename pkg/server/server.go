// Package server is the public entry point for initializing the Present OS
// backend. It wires the store, the collaborator services, the orchestrator,
// and the HTTP router into one ready-to-serve unit.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/agents"
	"github.com/presentos/presentos/internal/api"
	"github.com/presentos/presentos/internal/api/handlers"
	"github.com/presentos/presentos/internal/config"
	"github.com/presentos/presentos/internal/intent"
	"github.com/presentos/presentos/internal/interrupt"
	"github.com/presentos/presentos/internal/llm"
	"github.com/presentos/presentos/internal/notify"
	"github.com/presentos/presentos/internal/orchestrator"
	"github.com/presentos/presentos/internal/retention"
	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/internal/telemetry"
	"github.com/presentos/presentos/internal/temporal"
)

// Server holds the initialized Present OS backend.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the data store backing tasks, contacts, XP, and traces.
	Store store.Store

	// Port is the port the server should listen on.
	Port int

	// Janitor prunes old command traces in the background. Nil when
	// retention is disabled; callers start it with Janitor.Start.
	Janitor *retention.Janitor

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all backend components from the environment.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the backend with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	dataStore, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	// Model client, shared by the classifier and the chat collaborator.
	client := llm.NewClient(cfg.Model)
	var completer intent.TextCompleter
	if client.Configured() {
		completer = client
		log.Info().Msg("Model client configured")
	} else {
		log.Warn().Msg("No model provider configured, using rule-based classification only")
	}

	classifier := intent.NewLLMClassifier(completer)

	// Collaborators
	parser := temporal.NewParser(loc)
	tasks := agents.NewTaskService(cfg.Tasks, dataStore)
	calendar := agents.NewCalendarService(cfg.Calendar, parser)
	email := agents.NewEmailService(cfg.Email)
	weather := agents.NewWeatherService(cfg.Weather)
	xp := agents.NewXPService(dataStore)
	contacts := agents.NewContactService(dataStore)
	chat := agents.NewChatService(client)
	reports := agents.NewReportService(tasks, calendar, email, xp)
	focus := interrupt.NewPolicy(cfg.Focus, loc)

	// Notification delivery. A default webhook channel is seeded from the
	// environment when one is configured.
	notifier := notify.NewService()
	if cfg.Notify.WebhookURL != "" {
		if err := notifier.AddChannel(notify.Channel{
			Name:   "default",
			Kind:   notify.ChannelWebhook,
			URL:    cfg.Notify.WebhookURL,
			Secret: cfg.Notify.WebhookSecret,
		}); err != nil {
			return nil, fmt.Errorf("seed notification channel: %w", err)
		}
		log.Info().Str("channel", "default").Msg("Notification webhook channel configured")
	}

	orch := orchestrator.New(orchestrator.Deps{
		Classifier: classifier,
		Tasks:      tasks,
		Calendar:   calendar,
		Email:      email,
		Weather:    weather,
		XP:         xp,
		Contacts:   contacts,
		Chat:       chat,
		Reports:    reports,
		Focus:      focus,
		Traces:     dataStore,
	})

	h := &handlers.Handlers{
		Orchestrator: orch,
		Tasks:        tasks,
		Calendar:     calendar,
		Email:        email,
		Weather:      weather,
		XP:           xp,
		Contacts:     contacts,
		Chat:         chat,
		Reports:      reports,
		Focus:        focus,
		Notify:       notifier,
		Store:        dataStore,
	}

	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Store:        dataStore,
		Port:         cfg.Port,
		Janitor:      retention.NewJanitor(dataStore, cfg.Retention),
		ShutdownFunc: shutdown,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Info().Str("data_dir", cfg.DataDir).Msg("SQLite store initialized")
		return s, nil
	case "memory", "":
		s := store.NewMemoryStore(cfg.DataDir)
		log.Info().Str("data_dir", cfg.DataDir).Msg("In-memory store initialized")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
