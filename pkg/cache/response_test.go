package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/rs/zerolog"
)

type (
	rankReq  = recsys.RankingRequest
	rankResp = recsys.RankingResponse
)

func newTestResponseCache(t *testing.T, clock *fakeClock, opts ...Option[rankReq, rankResp]) (*ResponseCache[rankReq, rankResp], *MemoryStore) {
	t.Helper()
	manager, store := newTestManager(clock)
	c, err := NewResponseCache[rankReq, rankResp](manager, time.Hour, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewResponseCache failed: %v", err)
	}
	return c, store
}

func TestNewResponseCache_Validation(t *testing.T) {
	manager := NewManager(NewMemoryStore())

	if _, err := NewResponseCache[rankReq, rankResp](nil, time.Hour, zerolog.Nop()); err == nil {
		t.Error("expected error for nil manager")
	}
	if _, err := NewResponseCache[rankReq, rankResp](manager, 0, zerolog.Nop()); err == nil {
		t.Error("expected error for zero ttl")
	}
	c, err := NewResponseCache[rankReq, rankResp](manager, time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.TTL() != time.Minute {
		t.Errorf("TTL() = %v, want 1m", c.TTL())
	}
}

func TestResponseCache_SetThenGet(t *testing.T) {
	c, _ := newTestResponseCache(t, newFakeClock())
	ctx := context.Background()

	req := rankReq{UserID: "u1", TopK: 3}
	resp := rankResp{ItemIDs: []string{"a", "b", "c"}}
	meta := recsys.Meta{PUID: "p1"}

	c.Set(ctx, req, resp, meta)

	got, ok := c.Get(ctx, "p1", req)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(got.ItemIDs) != 3 || got.ItemIDs[0] != "a" || got.ItemIDs[2] != "c" {
		t.Errorf("Get = %v, want %v", got.ItemIDs, resp.ItemIDs)
	}

	// Different correlation id or request is a different key
	if _, ok := c.Get(ctx, "p2", req); ok {
		t.Error("unexpected hit for other correlation id")
	}
	if _, ok := c.Get(ctx, "p1", rankReq{UserID: "u1", TopK: 4}); ok {
		t.Error("unexpected hit for other request")
	}
}

func TestResponseCache_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestResponseCache(t, clock)
	ctx := context.Background()

	req := rankReq{UserID: "u1", TopK: 2}
	c.Set(ctx, req, rankResp{ItemIDs: []string{"a"}}, recsys.Meta{PUID: "p"})

	clock.Advance(59 * time.Minute)
	if _, ok := c.Get(ctx, "p", req); !ok {
		t.Fatal("expected hit before TTL")
	}

	// Reads do not extend the TTL
	clock.Advance(time.Minute)
	if _, ok := c.Get(ctx, "p", req); ok {
		t.Error("expected miss once TTL elapsed")
	}
}

func TestResponseCache_EmptyItemsNeverCached(t *testing.T) {
	c, store := newTestResponseCache(t, newFakeClock())
	ctx := context.Background()

	req := rankReq{UserID: "u1", TopK: 2}
	c.Set(ctx, req, rankResp{}, recsys.Meta{PUID: "p"})
	c.Set(ctx, req, rankResp{ItemIDs: []string{}}, recsys.Meta{PUID: "p"})

	if _, ok := c.Get(ctx, "p", req); ok {
		t.Error("empty response must never be retrievable")
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d keys, want 0", store.Len())
	}
	if c.ShouldCache(req, rankResp{}, recsys.Meta{}) {
		t.Error("ShouldCache accepted an empty response")
	}
}

func TestResponseCache_WithAdmission(t *testing.T) {
	full := func(req rankReq, resp rankResp, _ recsys.Meta) bool {
		return len(resp.ItemIDs) >= req.GetTopK()
	}
	c, _ := newTestResponseCache(t, newFakeClock(), WithAdmission(Admission[rankReq, rankResp](full)))
	ctx := context.Background()

	req := rankReq{UserID: "u", TopK: 2}
	c.Set(ctx, req, rankResp{ItemIDs: []string{"a"}}, recsys.Meta{PUID: "short"})
	if _, ok := c.Get(ctx, "short", req); ok {
		t.Error("stricter predicate should reject short list")
	}

	c.Set(ctx, req, rankResp{ItemIDs: []string{"a", "b"}}, recsys.Meta{PUID: "full"})
	if _, ok := c.Get(ctx, "full", req); !ok {
		t.Error("stricter predicate should accept full list")
	}

	// A permissive override still cannot admit empty lists
	always := func(rankReq, rankResp, recsys.Meta) bool { return true }
	c2, _ := newTestResponseCache(t, newFakeClock(), WithAdmission(Admission[rankReq, rankResp](always)))
	if c2.ShouldCache(req, rankResp{}, recsys.Meta{}) {
		t.Error("override must preserve the empty-items exclusion")
	}
}

func TestResponseCache_Overwrite(t *testing.T) {
	c, _ := newTestResponseCache(t, newFakeClock())
	ctx := context.Background()

	req := rankReq{UserID: "u", TopK: 1}
	c.Set(ctx, req, rankResp{ItemIDs: []string{"old"}}, recsys.Meta{PUID: "p"})
	c.Set(ctx, req, rankResp{ItemIDs: []string{"new"}}, recsys.Meta{PUID: "p"})

	got, ok := c.Get(ctx, "p", req)
	if !ok || got.ItemIDs[0] != "new" {
		t.Errorf("Get = %v, %v; want last write", got, ok)
	}
}

func TestResponseCache_StoreFailuresDegrade(t *testing.T) {
	manager := NewManager(failingStore{err: errors.New("redis down")})
	c, err := NewResponseCache[rankReq, rankResp](manager, time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewResponseCache failed: %v", err)
	}
	ctx := context.Background()
	req := rankReq{UserID: "u", TopK: 1}

	// Neither call may panic or surface the error
	c.Set(ctx, req, rankResp{ItemIDs: []string{"a"}}, recsys.Meta{PUID: "p"})
	if _, ok := c.Get(ctx, "p", req); ok {
		t.Error("failed store read must be a miss")
	}
	if err := c.Ping(ctx); err == nil {
		t.Error("Ping should report the store failure")
	}
}

func TestResponseCache_UndecodableEntryIsMiss(t *testing.T) {
	clock := newFakeClock()
	c, _ := newTestResponseCache(t, clock)
	ctx := context.Background()

	req := rankReq{UserID: "u", TopK: 1}
	key, _ := KeyFor("p", req)
	entry := &CacheEntry{Data: []byte(`{"item_ids": 42}`), Expires: clock.Now().Add(time.Hour)}
	if err := c.manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok := c.Get(ctx, "p", req); ok {
		t.Error("undecodable entry must be a miss")
	}
}

func TestResponseCache_DefaultTopKSharesKey(t *testing.T) {
	c, store := newTestResponseCache(t, newFakeClock())
	ctx := context.Background()

	// top_k omitted and top_k=10 are the same request
	c.Set(ctx, rankReq{UserID: "u"}, rankResp{ItemIDs: []string{"a"}}, recsys.Meta{PUID: "p"})

	got, ok := c.Get(ctx, "p", rankReq{UserID: "u", TopK: recsys.DefaultTopK})
	if !ok {
		t.Fatal("request with explicit default top_k missed the cache")
	}
	if len(got.ItemIDs) != 1 || got.ItemIDs[0] != "a" {
		t.Errorf("Get = %v, want [a]", got.ItemIDs)
	}

	c.Set(ctx, rankReq{UserID: "u", TopK: recsys.DefaultTopK}, rankResp{ItemIDs: []string{"b"}}, recsys.Meta{PUID: "p"})
	if store.Len() != 1 {
		t.Errorf("store holds %d keys, want 1", store.Len())
	}
	if got, ok := c.Get(ctx, "p", rankReq{UserID: "u", TopK: -1}); !ok || got.ItemIDs[0] != "b" {
		t.Errorf("Get = %v, %v; want [b] for negative top_k", got, ok)
	}

	// A different cutoff is still a different request
	if _, ok := c.Get(ctx, "p", rankReq{UserID: "u", TopK: 5}); ok {
		t.Error("unexpected hit for top_k=5")
	}
}
