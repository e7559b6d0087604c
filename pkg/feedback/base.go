package feedback

import (
	"context"

	"github.com/rs/zerolog"
)

// Outcome label values for OutcomeRecorder.
const (
	OutcomeEvaluated = "evaluated"
	OutcomeSkipped   = "skipped"
)

// RewardReporter records the reward carried by a feedback event.
type RewardReporter interface {
	ObserveReward(value float64, routing int)
}

// OutcomeRecorder counts feedback events by routing branch and outcome.
type OutcomeRecorder interface {
	IncFeedback(routing int, outcome string)
}

// BaseFeedback is the default feedback path: it records the reward of
// every event, regardless of which unit served it.
type BaseFeedback[Req, Resp any] struct {
	rewards RewardReporter
	logger  zerolog.Logger
}

// NewBaseFeedback creates the default feedback path.
func NewBaseFeedback[Req, Resp any](rewards RewardReporter, logger zerolog.Logger) *BaseFeedback[Req, Resp] {
	return &BaseFeedback[Req, Resp]{rewards: rewards, logger: logger}
}

// HandleFeedback implements Handler.
func (b *BaseFeedback[Req, Resp]) HandleFeedback(_ context.Context, fb Feedback[Req, Resp]) {
	if fb.Reward == nil {
		return
	}
	b.rewards.ObserveReward(*fb.Reward, fb.RoutingOrDefault())
	b.logger.Debug().
		Float64("reward", *fb.Reward).
		Int("routing", fb.RoutingOrDefault()).
		Msg("Recorded feedback reward")
}
