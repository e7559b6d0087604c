// Package coldstart resolves upstream rankings that came back empty.
//
// An Aggregator sits above exactly one upstream model. For each response it
// either passes the upstream answer through, returns a fallback cached for
// the same correlation id and request, or synthesizes and caches a new
// fallback with a pluggable Predictor.
package coldstart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/rs/zerolog"
)

// Outcome is the terminal state of one aggregation.
type Outcome string

const (
	OutcomeEmpty       Outcome = "empty"
	OutcomeCached      Outcome = "cached"
	OutcomeOriginal    Outcome = "original"
	OutcomeSynthesized Outcome = "synthesized"
)

// Predictor produces a cold-start ranking for a request.
type Predictor[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Cache is the subset of the response cache the aggregator needs.
type Cache[Req, Resp any] interface {
	Get(ctx context.Context, correlationID string, req Req) (Resp, bool)
	Set(ctx context.Context, req Req, resp Resp, meta recsys.Meta)
}

// Aggregator resolves empty upstream rankings. It is safe for concurrent use
// when its cache and predictor are.
type Aggregator[Req any, Resp recsys.Response] struct {
	cache   Cache[Req, Resp]
	predict Predictor[Req, Resp]
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator. Both cache and predict are required.
func NewAggregator[Req any, Resp recsys.Response](cache Cache[Req, Resp], predict Predictor[Req, Resp], logger zerolog.Logger) (*Aggregator[Req, Resp], error) {
	if cache == nil {
		return nil, errors.New("cold-start aggregator requires a cache")
	}
	if predict == nil {
		return nil, errors.New("cold-start aggregator requires a predictor")
	}
	return &Aggregator[Req, Resp]{
		cache:   cache,
		predict: predict,
		logger:  logger.With().Str("component", "coldstart").Logger(),
	}, nil
}

// Aggregate resolves a batch of upstream responses for one correlation id.
//
// The batch must hold exactly one message. A message without payload yields
// OutcomeEmpty and a result with nil Data. Otherwise the original request is
// recovered from the meta, and a cached answer wins over both the upstream
// answer and synthesis. Only synthesized answers are written to the cache,
// and only after synthesis succeeded.
func (a *Aggregator[Req, Resp]) Aggregate(ctx context.Context, msgs []recsys.Message[Resp]) (recsys.Message[Resp], Outcome, error) {
	if len(msgs) != 1 {
		Outcomes.WithLabelValues("error").Inc()
		return recsys.Message[Resp]{}, "", &ProtocolError{Err: fmt.Errorf("%w (got %d)", ErrBatchSize, len(msgs))}
	}

	upstream := msgs[0]
	puid := upstream.Meta.PUID
	log := a.logger.With().Str("puid", puid).Logger()

	if !upstream.HasData() {
		log.Warn().Msg("Upstream returned no payload")
		return a.finish(recsys.Message[Resp]{Meta: upstream.Meta.Clone()}, OutcomeEmpty)
	}

	req, meta, err := recsys.RecoverRequest[Req](upstream.Meta)
	if err != nil {
		Outcomes.WithLabelValues("error").Inc()
		return recsys.Message[Resp]{}, "", &ProtocolError{PUID: puid, Err: fmt.Errorf("%w: %w", ErrMissingRequest, err)}
	}

	if cached, ok := a.cache.Get(ctx, puid, req); ok {
		log.Debug().Msg("Returning cached cold-start response")
		return a.finish(recsys.Message[Resp]{Meta: meta, Data: &cached}, OutcomeCached)
	}

	if len((*upstream.Data).GetItemIDs()) > 0 {
		log.Debug().Msg("Returning the original response")
		return a.finish(recsys.Message[Resp]{Meta: meta, Data: upstream.Data}, OutcomeOriginal)
	}

	log.Debug().Msg("Returning a cold-start response")
	resp, err := a.predict(ctx, req)
	if err != nil {
		Outcomes.WithLabelValues("error").Inc()
		return recsys.Message[Resp]{}, "", &SynthesisError{PUID: puid, Err: err}
	}

	merged := recsys.MergeMeta(meta, recsys.Meta{})
	a.cache.Set(ctx, req, resp, merged)
	return a.finish(recsys.Message[Resp]{Meta: merged, Data: &resp}, OutcomeSynthesized)
}

func (a *Aggregator[Req, Resp]) finish(msg recsys.Message[Resp], outcome Outcome) (recsys.Message[Resp], Outcome, error) {
	Outcomes.WithLabelValues(string(outcome)).Inc()
	return msg, outcome, nil
}
