package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/presentos/presentos/internal/api/handlers"
	"github.com/presentos/presentos/internal/api/middleware"
	"github.com/presentos/presentos/internal/config"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// The single natural-language entry point
		r.Post("/command", h.ProcessCommand)
		r.Get("/traces", h.ListTraces)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/today", h.TodayTasks)
			r.Get("/overdue", h.OverdueTasks)
			r.Post("/{taskId}/complete", h.CompleteTask)
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Post("/events", h.CreateEvent)
			r.Get("/today", h.TodayEvents)
			r.Get("/summary", h.CalendarSummary)
		})

		r.Route("/email", func(r chi.Router) {
			r.Post("/send", h.SendEmail)
			r.Get("/recent", h.RecentEmails)
		})

		r.Route("/weather", func(r chi.Router) {
			r.Get("/current", h.CurrentWeather)
			r.Get("/forecast", h.WeatherForecast)
			r.Get("/outdoor", h.OutdoorRecommendation)
		})

		r.Route("/xp", func(r chi.Router) {
			r.Get("/avatars", h.ListAvatars)
			r.Get("/leaderboard", h.Leaderboard)
			r.Get("/achievements", h.ListAchievements)
			r.Get("/summary", h.XPSummary)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.ListContacts)
			r.Post("/", h.AddContact)
			r.Get("/search", h.SearchContacts)
			r.Delete("/{name}", h.DeleteContact)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", h.ChatMessage)
			r.Delete("/history", h.ClearChatHistory)
			r.Get("/suggestions", h.ChatSuggestions)
		})

		r.Route("/report", func(r chi.Router) {
			r.Get("/daily", h.DailyReport)
			r.Get("/weekly", h.WeeklyReport)
		})

		r.Route("/focus", func(r chi.Router) {
			r.Post("/start", h.StartFocus)
			r.Post("/end", h.EndFocus)
			r.Get("/status", h.FocusStatus)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateNotification)
			r.Get("/queue", h.NotificationQueue)
			r.Post("/{notificationId}/snooze", h.SnoozeNotification)
			r.Get("/stats", h.InterruptStats)
			r.Post("/rules", h.AddNotificationRule)
			r.Put("/window", h.SetDeepWorkWindow)
			r.Get("/channels", h.ListChannels)
			r.Post("/channels", h.AddChannel)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "presentos-backend",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "presentos-backend",
		})
	}
}
