package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backchannel/auth"
	"backchannel/projection"
	"backchannel/runtime"
	"backchannel/services"
)

// Counter is the count surface the stats endpoint needs from a repository.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	log           *slog.Logger
	channels      *services.ChannelService
	history       *projection.Paginator
	bus           *runtime.Bus
	channelCounts Counter
	messageCounts Counter
	validate      *validator.Validate
	started       time.Time
}

func NewHandler(log *slog.Logger, channels *services.ChannelService,
	history *projection.Paginator, bus *runtime.Bus,
	channelCounts, messageCounts Counter) *Handler {
	return &Handler{
		log:           log,
		channels:      channels,
		history:       history,
		bus:           bus,
		channelCounts: channelCounts,
		messageCounts: messageCounts,
		validate:      validator.New(),
		started:       time.Now(),
	}
}

// NewRouter wires the REST surface and the websocket endpoint.
func NewRouter(log *slog.Logger, h *Handler, socket http.HandlerFunc,
	tokens *auth.TokenManager, corsOrigin string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(withUser(tokens))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Realtime endpoint; the socket does its own token handling because
	// browsers cannot set headers on websocket upgrades.
	r.Get("/ws", socket)

	r.Route("/api/channels", func(r chi.Router) {
		r.Get("/lookup", h.LookupChannel)
		r.Get("/{id}", h.GetChannel)
		r.Get("/{id}/messages", h.History)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.CreateChannel)
			r.Get("/", h.ListChannels)
			r.Patch("/{id}", h.UpdateChannel)
		})
	})

	return r
}
