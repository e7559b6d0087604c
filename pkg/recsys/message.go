package recsys

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reserved tag keys.
const (
	// TagRequest holds a serialized copy of the original request on
	// deployments running as a cold-start child.
	TagRequest = "request"

	// TagPredictionUnit identifies the unit that produced a response.
	TagPredictionUnit = "predictor_unit"
)

// ErrNoStashedRequest is returned when the request tag is absent.
var ErrNoStashedRequest = errors.New("no stashed request in meta tags")

// Meta carries out-of-band context for a message.
type Meta struct {
	PUID string         `json:"puid,omitempty"`
	Tags map[string]any `json:"tags,omitempty"`
}

// Clone returns a copy with its own tag map.
func (m Meta) Clone() Meta {
	out := Meta{PUID: m.PUID, Tags: make(map[string]any, len(m.Tags))}
	for k, v := range m.Tags {
		out.Tags[k] = v
	}
	return out
}

// Tag returns the tag value for key, or nil.
func (m Meta) Tag(key string) any {
	if m.Tags == nil {
		return nil
	}
	return m.Tags[key]
}

// WithTag returns a copy of m with key set to value.
func (m Meta) WithTag(key string, value any) Meta {
	out := m.Clone()
	out.Tags[key] = value
	return out
}

// MergeMeta unions the tag maps of all metas, later maps winning on key
// collision. The puid is taken from the first meta.
func MergeMeta(metas ...Meta) Meta {
	out := Meta{Tags: map[string]any{}}
	if len(metas) == 0 {
		return out
	}
	out.PUID = metas[0].PUID
	for _, m := range metas {
		for k, v := range m.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// Message is the envelope exchanged with the upstream model and the
// feedback channel. A nil Data means the sender produced no payload.
type Message[T any] struct {
	Meta Meta `json:"meta"`
	Data *T   `json:"jsonData,omitempty"`
}

// HasData reports whether the message carries a payload.
func (m *Message[T]) HasData() bool {
	return m != nil && m.Data != nil
}

// StashRequest stores a serialized copy of req under TagRequest.
func StashRequest[Req any](meta Meta, req Req) (Meta, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return meta, fmt.Errorf("marshal stashed request: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return meta, fmt.Errorf("encode stashed request: %w", err)
	}
	return meta.WithTag(TagRequest, generic), nil
}

// RecoverRequest decodes the request stashed under TagRequest and returns
// it with a copy of meta that no longer carries the tag.
func RecoverRequest[Req any](meta Meta) (Req, Meta, error) {
	var req Req
	raw, ok := meta.Tags[TagRequest]
	if !ok || raw == nil {
		return req, meta, ErrNoStashedRequest
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return req, meta, fmt.Errorf("encode stashed request: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, meta, fmt.Errorf("decode stashed request: %w", err)
	}
	req = NormalizeRequest(req)

	out := meta.Clone()
	delete(out.Tags, TagRequest)
	return req, out, nil
}
