package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/api/handler"
	apimw "github.com/kanflow/movedigest/internal/api/middleware"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Queuer     handler.Queuer
	Dispatcher handler.Dispatcher
	Pending    handler.PendingCounter
	Store      handler.Pinger // optional
	Gatherer   prometheus.Gatherer
	CronSecret string
	Logger     *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(d.Logger, "/health", "/metrics"))

	hh := handler.NewHealthHandler(d.Store)
	ch := handler.NewCronHandler(d.Dispatcher, d.Logger)
	mh := handler.NewCardMoveHandler(d.Queuer, handler.NewValidator(), d.Logger)
	ph := handler.NewPendingHandler(d.Pending)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	// 405 takes precedence over 401.
	r.With(
		apimw.RequireMethod(http.MethodPost),
		apimw.BearerAuth(d.CronSecret),
	).HandleFunc("/api/cron/process-card-move-emails", ch.ProcessCardMoveEmails)

	r.Route("/api/internal", func(r chi.Router) {
		r.Use(apimw.BearerAuth(d.CronSecret))
		r.Post("/card-moves", mh.Create)
		r.Get("/pending", ph.Count)
	})

	return r
}
