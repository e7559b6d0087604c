// Package recsys defines the ranking request/response payloads and the
// message envelope that carries them between the serving layer, the upstream
// model, the cold-start aggregator and the feedback channel.
package recsys

// DefaultTopK is used when a request does not ask for a specific cutoff.
const DefaultTopK = 10

// Request is the capability set a ranking request must offer to the
// generic cache, aggregator and feedback components.
type Request interface {
	GetTopK() int
}

// Response is the capability set a ranking response must offer.
// Item order is rank order: index 0 is the top recommendation.
type Response interface {
	GetItemIDs() []string
}

// RankingRequest asks for the top K items for a user.
type RankingRequest struct {
	UserID string `json:"user_id"`
	TopK   int    `json:"top_k"`
}

// GetTopK implements Request.
func (r RankingRequest) GetTopK() int {
	if r.TopK < 1 {
		return DefaultTopK
	}
	return r.TopK
}

// Normalize returns a copy with TopK defaulted.
func (r RankingRequest) Normalize() RankingRequest {
	r.TopK = r.GetTopK()
	return r
}

// Normalizer is implemented by requests that have a canonical form, such
// as one with defaults filled in. Two requests with the same canonical form
// are the same request to the cache.
type Normalizer[Req any] interface {
	Normalize() Req
}

// NormalizeRequest returns req's canonical form when it implements
// Normalizer, and req unchanged otherwise.
func NormalizeRequest[Req any](req Req) Req {
	if n, ok := any(req).(Normalizer[Req]); ok {
		return n.Normalize()
	}
	return req
}

// RankingResponse is an ordered list of recommended item ids.
type RankingResponse struct {
	ItemIDs []string `json:"item_ids"`
}

// GetItemIDs implements Response.
func (r RankingResponse) GetItemIDs() []string {
	return r.ItemIDs
}
