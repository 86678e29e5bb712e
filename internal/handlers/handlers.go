package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/good-news-everyone/discount-monitoring/internal/config"
	"github.com/good-news-everyone/discount-monitoring/internal/metrics"
	"github.com/good-news-everyone/discount-monitoring/internal/middleware"
	"github.com/good-news-everyone/discount-monitoring/internal/service"
)

// SiteLister отдаёт список поддерживаемых хостов.
type SiteLister interface {
	Hosts() []string
}

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	lifecycle *service.LifecycleService,
	dispatcher *service.Dispatcher,
	sites SiteLister,
	m metrics.Provider,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	subscriberHandler := NewSubscriberHandler(lifecycle, logger)
	notifyHandler := NewNotifyHandler(dispatcher, logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireOperator)

		// Subscriber routes
		r.Post("/subscribers", subscriberHandler.Register)
		r.Post("/subscribers/{id}/items", subscriberHandler.Track)
		r.Get("/subscribers/{id}/items", subscriberHandler.ListTracked)
		r.Delete("/subscribers/{id}/items", subscriberHandler.UntrackAll)

		// Subscription routes
		r.Delete("/subscriptions/{id}", subscriberHandler.Untrack)
		r.Post("/subscriptions/{id}/variants", subscriberHandler.AddVariant)

		// Notify routes
		r.Post("/notify/{id}", notifyHandler.NotifyOne)
		r.Post("/notify", notifyHandler.Broadcast)

		r.Get("/sites", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, SitesResponse{Hosts: sites.Hosts()})
		})
	})

	return &Handler{Router: r}
}
