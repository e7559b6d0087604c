package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/recsys-gateway/pkg/coldstart"
	"github.com/Sternrassler/recsys-gateway/pkg/feedback"
	"github.com/Sternrassler/recsys-gateway/pkg/logging"
	"github.com/Sternrassler/recsys-gateway/pkg/monitoring"
	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/google/uuid"
)

// routeResponse is the body of /route.
type routeResponse struct {
	Branch int `json:"branch"`
}

func (s *Server[Req, Resp]) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server[Req, Resp]) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Cache.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Cache store not reachable")
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "cache": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handlePredict forwards a request to the upstream model, resolves empty
// answers on a cold-start child, and caches what it serves.
func (s *Server[Req, Resp]) handlePredict(w http.ResponseWriter, r *http.Request) {
	var in recsys.Message[Req]
	if err := decodeJSON(w, r, &in); err != nil || !in.HasData() {
		s.deps.Exceptions.IncException(monitoring.EndpointPredict)
		s.writeError(w, http.StatusBadRequest, "request body must be a message with jsonData")
		return
	}
	req := recsys.NormalizeRequest(*in.Data)

	meta := in.Meta.Clone()
	if meta.PUID == "" {
		meta.PUID = uuid.NewString()
	}
	log := logging.WithPUID(s.logger, meta.PUID)

	if s.opts.IsColdStartChild {
		stashed, err := recsys.StashRequest(meta, req)
		if err != nil {
			s.deps.Exceptions.IncException(monitoring.EndpointPredict)
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		meta = stashed
	}

	out, err := s.deps.Upstream.Predict(r.Context(), recsys.Message[Req]{Meta: meta, Data: &req})
	if err != nil {
		s.deps.Exceptions.IncException(monitoring.EndpointPredict)
		log.Error().Err(err).Msg("Upstream prediction failed")
		s.writeError(w, http.StatusBadGateway, "upstream model unavailable")
		return
	}
	// Upstream tags win, but the correlation id and stashed request are ours
	out.Meta = recsys.MergeMeta(meta, out.Meta)

	outcome := coldstart.OutcomeOriginal
	if s.opts.IsColdStartChild {
		out, outcome, err = s.deps.Aggregator.Aggregate(r.Context(), []recsys.Message[Resp]{out})
		if err != nil {
			s.fail(w, monitoring.EndpointPredict, err)
			return
		}
	}

	out.Meta = out.Meta.WithTag(recsys.TagPredictionUnit, s.opts.UnitID)

	// Cached and synthesized answers are already in the cache; rewriting
	// them would extend their TTL.
	if out.HasData() && outcome == coldstart.OutcomeOriginal {
		s.deps.Cache.Set(r.Context(), req, *out.Data, out.Meta)
	}

	log.Debug().Str("outcome", string(outcome)).Msg("Served prediction")
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server[Req, Resp]) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var in []recsys.Message[Resp]
	if err := decodeJSON(w, r, &in); err != nil {
		s.deps.Exceptions.IncException(monitoring.EndpointAggregate)
		s.writeError(w, http.StatusBadRequest, "request body must be a list of messages")
		return
	}

	out, _, err := s.deps.Aggregator.Aggregate(r.Context(), in)
	if err != nil {
		s.fail(w, monitoring.EndpointAggregate, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleFeedback accepts feedback and hands it off; the caller never waits
// for evaluation and never sees its failures.
func (s *Server[Req, Resp]) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb feedback.Feedback[Req, Resp]
	if err := decodeJSON(w, r, &fb); err != nil {
		s.deps.Exceptions.IncException(monitoring.EndpointFeedback)
		s.writeError(w, http.StatusBadRequest, "invalid feedback body")
		return
	}
	if fb.Request.HasData() {
		req := recsys.NormalizeRequest(*fb.Request.Data)
		fb.Request.Data = &req
	}

	if err := s.deps.Feedback.Submit(fb); err != nil {
		s.logger.Warn().Err(err).Msg("Feedback not queued")
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server[Req, Resp]) handleRoute(w http.ResponseWriter, r *http.Request) {
	var in recsys.Message[Req]
	if err := decodeJSON(w, r, &in); err != nil {
		s.deps.Exceptions.IncException(monitoring.EndpointRoute)
		s.writeError(w, http.StatusBadRequest, "invalid routing request")
		return
	}
	s.writeJSON(w, http.StatusOK, routeResponse{Branch: s.deps.Router.Route()})
}

// fail maps aggregation errors to HTTP statuses.
func (s *Server[Req, Resp]) fail(w http.ResponseWriter, endpoint string, err error) {
	s.deps.Exceptions.IncException(endpoint)

	var pe *coldstart.ProtocolError
	var se *coldstart.SynthesisError
	switch {
	case errors.As(err, &pe):
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Cold-start protocol violation")
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &se):
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Cold-start synthesis failed")
		s.writeError(w, http.StatusInternalServerError, "cold-start synthesis failed")
	default:
		s.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Request failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
