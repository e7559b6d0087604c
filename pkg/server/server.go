// Package server exposes the recommender on HTTP: prediction, cold-start
// aggregation, feedback, A/B routing, health and metrics.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Sternrassler/recsys-gateway/pkg/coldstart"
	"github.com/Sternrassler/recsys-gateway/pkg/feedback"
	"github.com/Sternrassler/recsys-gateway/pkg/metrics"
	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Upstream is the model the gateway fronts.
type Upstream[Req, Resp any] interface {
	Predict(ctx context.Context, msg recsys.Message[Req]) (recsys.Message[Resp], error)
}

// Cache is the response cache used on the prediction path.
type Cache[Req, Resp any] interface {
	Get(ctx context.Context, correlationID string, req Req) (Resp, bool)
	Set(ctx context.Context, req Req, resp Resp, meta recsys.Meta)
	Ping(ctx context.Context) error
}

// FeedbackQueue accepts feedback for asynchronous handling.
type FeedbackQueue[Req, Resp any] interface {
	Submit(fb feedback.Feedback[Req, Resp]) error
}

// Router picks an A/B branch.
type Router interface {
	Route() int
}

// ExceptionCounter counts failed calls per endpoint.
type ExceptionCounter interface {
	IncException(endpoint string)
}

// Options configures the gateway's behavior.
type Options struct {
	// UnitID tags every served response; feedback is evaluated only for
	// responses carrying it.
	UnitID string

	// IsColdStartChild stashes the request in the upstream meta and resolves
	// empty answers with the aggregator.
	IsColdStartChild bool

	// ServiceName names the otelhttp spans.
	ServiceName string
}

// Deps are the collaborators of a Server. Aggregator and Router are
// optional; their endpoints are not mounted when nil.
type Deps[Req recsys.Request, Resp recsys.Response] struct {
	Upstream   Upstream[Req, Resp]
	Cache      Cache[Req, Resp]
	Aggregator *coldstart.Aggregator[Req, Resp]
	Feedback   FeedbackQueue[Req, Resp]
	Router     Router
	Exceptions ExceptionCounter
	Gatherer   prometheus.Gatherer
}

// Server holds the HTTP handlers of the gateway.
type Server[Req recsys.Request, Resp recsys.Response] struct {
	opts   Options
	deps   Deps[Req, Resp]
	logger zerolog.Logger
}

// New creates a server. Upstream, Cache, Feedback and Exceptions are
// required, and so is Aggregator for a cold-start child.
func New[Req recsys.Request, Resp recsys.Response](opts Options, deps Deps[Req, Resp], logger zerolog.Logger) (*Server[Req, Resp], error) {
	switch {
	case opts.UnitID == "":
		return nil, errors.New("unit id is required")
	case deps.Upstream == nil:
		return nil, errors.New("upstream is required")
	case deps.Cache == nil:
		return nil, errors.New("cache is required")
	case deps.Feedback == nil:
		return nil, errors.New("feedback queue is required")
	case deps.Exceptions == nil:
		return nil, errors.New("exception counter is required")
	case opts.IsColdStartChild && deps.Aggregator == nil:
		return nil, errors.New("cold-start child requires an aggregator")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = metrics.Gatherer
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "recsys-gateway"
	}

	return &Server[Req, Resp]{
		opts:   opts,
		deps:   deps,
		logger: logger.With().Str("component", "server").Logger(),
	}, nil
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server[Req, Resp]) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.HandlerFor(s.deps.Gatherer))

	r.Post("/predict", s.handlePredict)
	r.Post("/send-feedback", s.handleFeedback)
	if s.deps.Aggregator != nil {
		r.Post("/aggregate", s.handleAggregate)
	}
	if s.deps.Router != nil {
		r.Post("/route", s.handleRoute)
	}

	return otelhttp.NewHandler(r, s.opts.ServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
