package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/ameentrust/donorgate/internal/api"
	"github.com/ameentrust/donorgate/internal/config"
	"github.com/ameentrust/donorgate/internal/credential"
	"github.com/ameentrust/donorgate/internal/donation"
	"github.com/ameentrust/donorgate/internal/event"
	"github.com/ameentrust/donorgate/internal/gateway"
	"github.com/ameentrust/donorgate/internal/handler"
	"github.com/ameentrust/donorgate/internal/middleware"
	"github.com/ameentrust/donorgate/internal/session"
	"github.com/ameentrust/donorgate/internal/settlement"
	ws "github.com/ameentrust/donorgate/internal/websocket"
)

// Server wires the orchestrator's components behind the local HTTP
// surface the donor UI talks to.
type Server struct {
	sessions      *session.Manager
	bridge        *gateway.Bridge
	hub           *ws.Hub
	bus           *event.Bus
	authH         *handler.AuthHandler
	donateH       *handler.DonateHandler
	confirmationH *handler.ConfirmationHandler
	logger        *slog.Logger
}

// New builds the full component graph over an opened client-state
// database.
func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	creds := credential.NewStore(db)
	markers := settlement.NewMarkerStore(db)
	bus := event.NewBus(logger.With("component", "event"))

	sessions := session.NewManager(
		api.Config{BaseURL: cfg.BackendURL, Timeout: cfg.RequestTimeout},
		creds,
		session.Config{RefreshWindow: cfg.RefreshWindow},
		logger.With("component", "session"),
	)

	bridge := gateway.NewBridge(gateway.Config{
		CheckoutURL: cfg.GatewayCheckoutURL,
		ReturnURL:   cfg.BaseURL + "/pay/return",
	}, logger.With("component", "gateway"))

	settler := settlement.NewService(
		sessions.Backend(),
		markers,
		bus,
		settlement.Config{VerifyDeadline: cfg.VerifyDeadline},
		logger.With("component", "settlement"),
	)

	submitter := donation.NewSubmitter(sessions.Backend(), bridge, settler, logger.With("component", "donation"))

	hub := ws.NewHub(logger.With("component", "websocket"))

	return &Server{
		sessions:      sessions,
		bridge:        bridge,
		hub:           hub,
		bus:           bus,
		authH:         handler.NewAuthHandler(sessions, logger.With("component", "auth")),
		donateH:       handler.NewDonateHandler(submitter, sessions, logger.With("component", "donate")),
		confirmationH: handler.NewConfirmationHandler(markers, cfg.MarkerFreshness, logger.With("component", "confirmation")),
		logger:        logger,
	}
}

// Start resumes any stored session and begins relaying donation events
// to connected dashboard views. Run once before serving.
func (s *Server) Start(ctx context.Context) {
	if err := s.sessions.Resume(ctx); err != nil {
		// A failed resume is not fatal: the donor can log in again, and
		// guest donations never needed a session.
		s.logger.Warn("resume session", "error", err)
	}
	go s.hub.Run(ctx, s.bus)
}

// Sessions exposes the session manager for the command layer.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Router returns the local HTTP surface. The websocket route sits on
// the outer mux so the logging wrapper does not get between the
// upgrader and the underlying connection.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login", s.authH.Login)
	mux.HandleFunc("POST /api/admin/login", s.authH.AdminLogin)
	mux.HandleFunc("POST /api/register", s.authH.Register)
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("PUT /api/profile", s.authH.UpdateProfile)
	mux.HandleFunc("GET /api/remembered-email", s.authH.RememberedEmail)

	mux.HandleFunc("POST /api/donate", s.donateH.Submit)
	mux.HandleFunc("GET /api/donate/state", s.donateH.State)
	mux.HandleFunc("GET /api/donation/latest", s.confirmationH.Latest)

	mux.HandleFunc("GET /pay/return", s.bridge.HandleReturn)
	mux.HandleFunc("GET /donation/confirmation", s.confirmationH.Show)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	outer := http.NewServeMux()
	outer.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
	outer.Handle("/", middleware.RequestLogger(s.logger.With("component", "http"))(mux))
	return outer
}
