package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/tournament-hub/handlers"
	"github.com/Dosada05/tournament-hub/middleware"
	"github.com/Dosada05/tournament-hub/models"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Tournaments   *handlers.TournamentHandler
	Matches       *handlers.MatchHandler
	Registrations *handlers.RegistrationHandler
	Broadcasts    *handlers.BroadcastHandler
	Messages      *handlers.MessageHandler
	Admin         *handlers.AdminHandler
	WebSocket     *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, auth *middleware.Authenticator, allowedOrigins []string, h Handlers) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// The websocket route must not sit behind Timeout.
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))

		r.Post("/login", h.Auth.Login)
		r.Get("/tournaments", h.Tournaments.ListHandler)
		r.Get("/tournaments/{tournamentID}", h.Tournaments.GetByIDHandler)
		r.Get("/tournaments/{tournamentID}/standings", h.Tournaments.StandingsHandler)
		r.Get("/tournaments/{tournamentID}/matches", h.Tournaments.MatchesHandler)
		r.Get("/history", h.Tournaments.HistoryHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/registrations", h.Registrations.SubmitHandler)
			r.Get("/me/registrations", h.Registrations.MineHandler)
			r.Get("/me/broadcasts", h.Broadcasts.InboxHandler)
			r.Post("/me/broadcasts/{broadcastID}/read", h.Broadcasts.MarkReadHandler)
			r.Post("/messages", h.Messages.SendHandler)
			r.Get("/me/messages", h.Messages.ThreadHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleAdmin, models.RoleOwner))

			r.Post("/tournaments", h.Tournaments.CreateHandler)
			r.Post("/tournaments/{tournamentID}/start", h.Tournaments.StartHandler)
			r.Post("/tournaments/{tournamentID}/complete", h.Tournaments.CompleteHandler)
			r.Post("/tournaments/{tournamentID}/fixtures", h.Tournaments.FixturesHandler)
			r.Post("/matches", h.Matches.CreateHandler)
			r.Post("/matches/{matchID}/link", h.Matches.LinkHandler)
			r.Post("/matches/{matchID}/result", h.Matches.ResultHandler)
			r.Get("/registrations/pending", h.Registrations.PendingHandler)
			r.Post("/registrations/{registrationID}/decision", h.Registrations.DecisionHandler)
			r.Post("/broadcasts", h.Broadcasts.SendHandler)
			r.Get("/messages", h.Messages.AdminInboxHandler)
			r.Post("/messages", h.Messages.ReplyHandler)
			r.Post("/users/{userID}/ban", h.Admin.BanHandler)
			r.Post("/users/{userID}/role", h.Admin.RoleHandler)
			r.Get("/logs", h.Admin.LogsHandler)
		})
	})
}
