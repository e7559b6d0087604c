// Package feedback evaluates served rankings against ground truth that
// arrives later on the feedback channel.
//
// Feedback is best-effort: incomplete or foreign events are skipped, and
// nothing in this package returns an error to the caller.
package feedback

import (
	"context"
	"sort"

	"github.com/Sternrassler/recsys-gateway/pkg/ranking"
	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/rs/zerolog"
)

// Feedback is one event from the feedback channel. Any field may be absent.
type Feedback[Req, Resp any] struct {
	Request  *recsys.Message[Req]  `json:"request,omitempty"`
	Response *recsys.Message[Resp] `json:"response,omitempty"`
	Truth    *recsys.Message[Resp] `json:"truth,omitempty"`
	Reward   *float64              `json:"reward,omitempty"`
	Routing  *int                  `json:"routing,omitempty"`
}

// RoutingOrDefault returns the routing branch, or -1 when absent.
func (f Feedback[Req, Resp]) RoutingOrDefault() int {
	if f.Routing == nil {
		return -1
	}
	return *f.Routing
}

// Reporter receives the ranking metrics of an evaluated event.
type Reporter interface {
	ObservePrecision(value float64, k int)
	ObserveNDCG(value float64, k int)
	ObserveAveragePrecision(value float64)
}

// Handler consumes feedback events.
type Handler[Req, Resp any] interface {
	HandleFeedback(ctx context.Context, fb Feedback[Req, Resp])
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[Req, Resp any] func(ctx context.Context, fb Feedback[Req, Resp])

// HandleFeedback implements Handler.
func (f HandlerFunc[Req, Resp]) HandleFeedback(ctx context.Context, fb Feedback[Req, Resp]) {
	f(ctx, fb)
}

// Lookup returns the response cached for a correlation id and request.
type Lookup[Req, Resp any] interface {
	Get(ctx context.Context, correlationID string, req Req) (Resp, bool)
}

// Evaluation holds the metrics computed for one feedback event.
type Evaluation struct {
	Relevance        []float64
	Cutoffs          []int
	Precision        map[int]float64
	NDCG             map[int]float64
	AveragePrecision float64
}

// Cutoffs returns the sorted cutoff set for a request asking for topK items:
// topK itself, plus 10 and 50 when topK exceeds them.
func Cutoffs(topK int) []int {
	set := map[int]struct{}{topK: {}}
	if topK > 10 {
		set[10] = struct{}{}
	}
	if topK > 50 {
		set[50] = struct{}{}
	}

	ks := make([]int, 0, len(set))
	for k := range set {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	return ks
}

// Evaluate computes the metrics of a served ranking against ground truth.
func Evaluate(topK int, served, truth []string) Evaluation {
	r := ranking.Relevance(served, truth)
	ev := Evaluation{
		Relevance: r,
		Cutoffs:   Cutoffs(topK),
		Precision: make(map[int]float64),
		NDCG:      make(map[int]float64),
	}
	for _, k := range ev.Cutoffs {
		ev.Precision[k] = ranking.PrecisionAtK(r, k)
		ev.NDCG[k] = ranking.NDCGAtK(r, k)
	}
	ev.AveragePrecision = ranking.AveragePrecision(r)
	return ev
}

// Correlator ties feedback events back to the ranking this instance served
// and reports ranking-quality metrics for them.
type Correlator[Req recsys.Request, Resp recsys.Response] struct {
	unitID   string
	reporter Reporter
	base     Handler[Req, Resp]
	lookup   Lookup[Req, Resp]
	outcomes OutcomeRecorder
	logger   zerolog.Logger
}

// Option configures a Correlator.
type Option[Req recsys.Request, Resp recsys.Response] func(*Correlator[Req, Resp])

// WithBase sets the base feedback path every event is forwarded to.
func WithBase[Req recsys.Request, Resp recsys.Response](base Handler[Req, Resp]) Option[Req, Resp] {
	return func(c *Correlator[Req, Resp]) { c.base = base }
}

// WithLookup makes the correlator evaluate the cached response for the
// event's correlation id, when one exists, instead of the echoed payload.
func WithLookup[Req recsys.Request, Resp recsys.Response](lookup Lookup[Req, Resp]) Option[Req, Resp] {
	return func(c *Correlator[Req, Resp]) { c.lookup = lookup }
}

// WithOutcomes counts every event as evaluated or skipped.
func WithOutcomes[Req recsys.Request, Resp recsys.Response](rec OutcomeRecorder) Option[Req, Resp] {
	return func(c *Correlator[Req, Resp]) { c.outcomes = rec }
}

// NewCorrelator creates a correlator for the unit identified by unitID.
func NewCorrelator[Req recsys.Request, Resp recsys.Response](unitID string, reporter Reporter, logger zerolog.Logger, opts ...Option[Req, Resp]) *Correlator[Req, Resp] {
	c := &Correlator[Req, Resp]{
		unitID:   unitID,
		reporter: reporter,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Eligible reports whether a served response belongs to this unit and has
// items to evaluate.
func (c *Correlator[Req, Resp]) Eligible(resp *recsys.Message[Resp]) bool {
	if resp == nil || !resp.HasData() {
		return false
	}
	unit, ok := resp.Meta.Tag(recsys.TagPredictionUnit).(string)
	if !ok || unit != c.unitID {
		return false
	}
	return len((*resp.Data).GetItemIDs()) > 0
}

// HandleFeedback forwards the event to the base path and, when it is
// eligible and complete, reports precision@k, nDCG@k and average precision.
// It never fails; a panic while evaluating is logged and dropped.
func (c *Correlator[Req, Resp]) HandleFeedback(ctx context.Context, fb Feedback[Req, Resp]) {
	evaluated := false
	defer func() {
		if r := recover(); r != nil {
			evaluated = false
			c.logger.Error().Interface("panic", r).Msg("Feedback evaluation panicked")
		}
		if c.outcomes != nil {
			outcome := OutcomeSkipped
			if evaluated {
				outcome = OutcomeEvaluated
			}
			c.outcomes.IncFeedback(fb.RoutingOrDefault(), outcome)
		}
	}()

	if c.base != nil {
		c.base.HandleFeedback(ctx, fb)
	}

	if !c.Eligible(fb.Response) {
		c.logger.Debug().Msg("Feedback not for this unit, skipping evaluation")
		return
	}
	if !fb.Truth.HasData() || !fb.Request.HasData() {
		c.logger.Debug().Str("puid", fb.Response.Meta.PUID).Msg("Incomplete feedback, skipping evaluation")
		return
	}

	req := *fb.Request.Data
	served := (*fb.Response.Data).GetItemIDs()
	if c.lookup != nil {
		if cached, ok := c.lookup.Get(ctx, fb.Response.Meta.PUID, req); ok {
			served = cached.GetItemIDs()
		}
	}

	ev := Evaluate(req.GetTopK(), served, (*fb.Truth.Data).GetItemIDs())
	c.logger.Debug().
		Str("puid", fb.Response.Meta.PUID).
		Interface("relevance", ev.Relevance).
		Ints("cutoffs", ev.Cutoffs).
		Msg("Evaluated feedback")

	for _, k := range ev.Cutoffs {
		c.reporter.ObserveNDCG(ev.NDCG[k], k)
		c.reporter.ObservePrecision(ev.Precision[k], k)
	}
	c.reporter.ObserveAveragePrecision(ev.AveragePrecision)
	evaluated = true
}
