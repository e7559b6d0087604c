package coldstart

import (
	"context"
	"errors"

	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
)

// ErrNoPopularItems is returned by NewPopularItems for an empty list.
var ErrNoPopularItems = errors.New("popular items list is empty")

// NewPopularItems returns a Predictor that answers every request with the
// first top_k entries of items, in order.
func NewPopularItems(items []string) (Predictor[recsys.RankingRequest, recsys.RankingResponse], error) {
	if len(items) == 0 {
		return nil, ErrNoPopularItems
	}
	ranked := append([]string(nil), items...)

	return func(_ context.Context, req recsys.RankingRequest) (recsys.RankingResponse, error) {
		n := req.GetTopK()
		if n > len(ranked) {
			n = len(ranked)
		}
		return recsys.RankingResponse{ItemIDs: append([]string(nil), ranked[:n]...)}, nil
	}, nil
}
