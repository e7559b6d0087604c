package feedback

import (
	"context"
	"testing"

	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	rankReq  = recsys.RankingRequest
	rankResp = recsys.RankingResponse
)

type observation struct {
	metric string
	k      int
	value  float64
}

type recordingReporter struct {
	obs      []observation
	rewards  []float64
	outcomes []string
}

func (r *recordingReporter) ObservePrecision(v float64, k int) {
	r.obs = append(r.obs, observation{"precision", k, v})
}

func (r *recordingReporter) ObserveNDCG(v float64, k int) {
	r.obs = append(r.obs, observation{"ndcg", k, v})
}

func (r *recordingReporter) ObserveAveragePrecision(v float64) {
	r.obs = append(r.obs, observation{"ap", 0, v})
}

func (r *recordingReporter) ObserveReward(v float64, _ int) {
	r.rewards = append(r.rewards, v)
}

func (r *recordingReporter) IncFeedback(_ int, outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingReporter) find(metric string, k int) (float64, bool) {
	for _, o := range r.obs {
		if o.metric == metric && o.k == k {
			return o.value, true
		}
	}
	return 0, false
}

func newCorrelator(rep *recordingReporter, opts ...Option[rankReq, rankResp]) *Correlator[rankReq, rankResp] {
	opts = append([]Option[rankReq, rankResp]{
		WithBase[rankReq, rankResp](NewBaseFeedback[rankReq, rankResp](rep, zerolog.Nop())),
		WithOutcomes[rankReq, rankResp](rep),
	}, opts...)
	return NewCorrelator[rankReq, rankResp]("ranker", rep, zerolog.Nop(), opts...)
}

func feedbackEvent(unit string, topK int, served, truth []string) Feedback[rankReq, rankResp] {
	reward := 1.0
	return Feedback[rankReq, rankResp]{
		Request: &recsys.Message[rankReq]{Data: &rankReq{UserID: "u", TopK: topK}},
		Response: &recsys.Message[rankResp]{
			Meta: recsys.Meta{PUID: "p1", Tags: map[string]any{recsys.TagPredictionUnit: unit}},
			Data: &rankResp{ItemIDs: served},
		},
		Truth:  &recsys.Message[rankResp]{Data: &rankResp{ItemIDs: truth}},
		Reward: &reward,
	}
}

func TestCutoffs(t *testing.T) {
	tests := []struct {
		topK int
		want []int
	}{
		{5, []int{5}},
		{10, []int{10}},
		{11, []int{10, 11}},
		{50, []int{10, 50}},
		{60, []int{10, 50, 60}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cutoffs(tt.topK), "topK=%d", tt.topK)
	}
}

func TestEvaluate(t *testing.T) {
	ev := Evaluate(5, []string{"a", "b", "c", "d", "e"}, []string{"b", "e"})

	assert.Equal(t, []float64{0, 1, 0, 0, 1}, ev.Relevance)
	assert.Equal(t, []int{5}, ev.Cutoffs)
	assert.InDelta(t, 0.4, ev.Precision[5], 1e-9)
	assert.InDelta(t, 0.6240505200038379, ev.NDCG[5], 1e-9)
	assert.InDelta(t, 0.45, ev.AveragePrecision, 1e-9)
}

func TestCorrelator_EvaluatesOwnResponses(t *testing.T) {
	rep := &recordingReporter{}
	c := newCorrelator(rep)

	c.HandleFeedback(context.Background(), feedbackEvent("ranker", 5, []string{"a", "b", "c", "d", "e"}, []string{"b", "e"}))

	p, ok := rep.find("precision", 5)
	require.True(t, ok, "precision@5 not reported")
	assert.InDelta(t, 0.4, p, 1e-9)

	nd, ok := rep.find("ndcg", 5)
	require.True(t, ok, "ndcg@5 not reported")
	assert.InDelta(t, 0.6240505200038379, nd, 1e-9)

	// Only k=5 is reported for top_k=5
	_, ok = rep.find("precision", 10)
	assert.False(t, ok)
	assert.Len(t, rep.obs, 3)

	assert.Equal(t, []float64{1}, rep.rewards)
	assert.Equal(t, []string{OutcomeEvaluated}, rep.outcomes)
}

func TestCorrelator_ReportsEveryCutoff(t *testing.T) {
	rep := &recordingReporter{}
	c := newCorrelator(rep)

	served := make([]string, 60)
	for i := range served {
		served[i] = string(rune('A' + i))
	}
	c.HandleFeedback(context.Background(), feedbackEvent("ranker", 60, served, []string{"A"}))

	for _, k := range []int{10, 50, 60} {
		_, ok := rep.find("precision", k)
		assert.True(t, ok, "precision@%d missing", k)
		_, ok = rep.find("ndcg", k)
		assert.True(t, ok, "ndcg@%d missing", k)
	}
}

func TestCorrelator_SkipsIneligible(t *testing.T) {
	tests := []struct {
		name string
		fb   func() Feedback[rankReq, rankResp]
	}{
		{"other unit", func() Feedback[rankReq, rankResp] {
			return feedbackEvent("someone-else", 5, []string{"a"}, []string{"a"})
		}},
		{"missing unit tag", func() Feedback[rankReq, rankResp] {
			fb := feedbackEvent("ranker", 5, []string{"a"}, []string{"a"})
			fb.Response.Meta.Tags = nil
			return fb
		}},
		{"empty items", func() Feedback[rankReq, rankResp] {
			return feedbackEvent("ranker", 5, []string{}, []string{"a"})
		}},
		{"no response", func() Feedback[rankReq, rankResp] {
			fb := feedbackEvent("ranker", 5, []string{"a"}, []string{"a"})
			fb.Response = nil
			return fb
		}},
		{"no truth", func() Feedback[rankReq, rankResp] {
			fb := feedbackEvent("ranker", 5, []string{"a"}, []string{"a"})
			fb.Truth = nil
			return fb
		}},
		{"no request payload", func() Feedback[rankReq, rankResp] {
			fb := feedbackEvent("ranker", 5, []string{"a"}, []string{"a"})
			fb.Request.Data = nil
			return fb
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &recordingReporter{}
			c := newCorrelator(rep)

			c.HandleFeedback(context.Background(), tt.fb())

			assert.Empty(t, rep.obs, "no ranking metrics expected")
			assert.Equal(t, []float64{1}, rep.rewards, "base path must still run")
			assert.Equal(t, []string{OutcomeSkipped}, rep.outcomes)
		})
	}
}

type staticLookup struct {
	resp rankResp
	ok   bool
}

func (l staticLookup) Get(context.Context, string, rankReq) (rankResp, bool) {
	return l.resp, l.ok
}

func TestCorrelator_PrefersCachedResponse(t *testing.T) {
	rep := &recordingReporter{}
	lookup := staticLookup{resp: rankResp{ItemIDs: []string{"b", "e", "x", "y", "z"}}, ok: true}
	c := newCorrelator(rep, WithLookup[rankReq, rankResp](lookup))

	c.HandleFeedback(context.Background(), feedbackEvent("ranker", 5, []string{"a", "b", "c", "d", "e"}, []string{"b", "e"}))

	nd, ok := rep.find("ndcg", 5)
	require.True(t, ok)
	assert.InDelta(t, 1, nd, 1e-9)
}

type panickingReporter struct{ recordingReporter }

func (p *panickingReporter) ObserveNDCG(float64, int) { panic("boom") }

func TestCorrelator_RecoversPanics(t *testing.T) {
	rep := &panickingReporter{}
	c := NewCorrelator[rankReq, rankResp]("ranker", rep, zerolog.Nop(), WithOutcomes[rankReq, rankResp](rep))

	assert.NotPanics(t, func() {
		c.HandleFeedback(context.Background(), feedbackEvent("ranker", 5, []string{"a"}, []string{"a"}))
	})
	assert.Equal(t, []string{OutcomeSkipped}, rep.outcomes)
}

func TestBaseFeedback_NoReward(t *testing.T) {
	rep := &recordingReporter{}
	base := NewBaseFeedback[rankReq, rankResp](rep, zerolog.Nop())

	base.HandleFeedback(context.Background(), Feedback[rankReq, rankResp]{})
	assert.Empty(t, rep.rewards)
}
