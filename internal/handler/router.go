package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/elio-helpdesk/client/internal/handler/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/elio-helpdesk/client/internal/middleware"
	personaModel "github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
)

// RouterConfig groups what the bridge router needs.
type RouterConfig struct {
	Session        widget.Controller
	Personas       personaModel.Store
	Limits         attachment.Limits
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wires the widget bridge routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Heartbeat("/healthz"))

	personaHandler := persona.New(cfg.Personas)
	widgetHandler := widget.New(cfg.Session, cfg.Limits, cfg.AllowedOrigins, cfg.Logger)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		widgetHandler.RegisterRoutes(api)
	})

	return r
}
