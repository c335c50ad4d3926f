package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/doodlewhat-backend/internal/hub"
	"github.com/DoyleJ11/doodlewhat-backend/internal/results"
	"github.com/DoyleJ11/doodlewhat-backend/internal/ws"
)

type Deps struct {
	Hub *hub.Hub
	// Optional; /rooms/{code}/results answers 404 without it.
	Results   *results.Service
	PublicURL string
	WS        ws.Options
	Logger    *zap.SugaredLogger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(d.Hub))
	r.Get("/ws", ws.Handler(d.Hub, d.WS))
	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", CreateRoom(d.Hub, d.PublicURL))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/link", RoomLink(d.PublicURL))
			r.Get("/qr", RoomQR(d.PublicURL))
			r.Get("/results", RoomResults(d.Results))
		})
	})
	return r
}
