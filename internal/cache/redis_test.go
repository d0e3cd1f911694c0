package cache

import (
	"context"
	"testing"
	"time"

	"github.com/skill-exchange/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "test"), mr
}

type statsSnapshot struct {
	TotalUsers int64   `json:"total_users"`
	AvgScore   float64 `json:"avg_score"`
}

func TestStoreCreditStatsRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	var got statsSnapshot
	hit, err := store.GetCreditStats(ctx, &got)
	if err != nil || hit {
		t.Fatalf("empty cache want miss, got hit=%v err=%v", hit, err)
	}

	if err := store.SetCreditStats(ctx, statsSnapshot{TotalUsers: 3, AvgScore: 81.5}, time.Minute); err != nil {
		t.Fatalf("set stats failed: %v", err)
	}
	if !mr.Exists("test:credit:stats") {
		t.Fatalf("key should be prefixed, keys=%v", mr.Keys())
	}
	if ttl := mr.TTL("test:credit:stats"); ttl != time.Minute {
		t.Fatalf("ttl want 1m got %s", ttl)
	}

	hit, err = store.GetCreditStats(ctx, &got)
	if err != nil || !hit {
		t.Fatalf("want hit, got hit=%v err=%v", hit, err)
	}
	if got.TotalUsers != 3 || got.AvgScore != 81.5 {
		t.Fatalf("unexpected cached stats: %+v", got)
	}

	if err := store.InvalidateCreditStats(ctx); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if mr.Exists("test:credit:stats") {
		t.Fatalf("stats key should be deleted")
	}
}

func TestStoreSetCreditStatsZeroTTLSkips(t *testing.T) {
	store, mr := newTestStore(t)
	if err := store.SetCreditStats(context.Background(), statsSnapshot{TotalUsers: 1}, 0); err != nil {
		t.Fatalf("set stats failed: %v", err)
	}
	if mr.Exists("test:credit:stats") {
		t.Fatalf("zero ttl should not write cache")
	}
}

func TestStoreDisabledIsNoop(t *testing.T) {
	var store *Store
	ctx := context.Background()
	if store.Enabled() {
		t.Fatalf("nil store should be disabled")
	}
	var got statsSnapshot
	hit, err := store.GetCreditStats(ctx, &got)
	if err != nil || hit {
		t.Fatalf("nil store get want miss, got hit=%v err=%v", hit, err)
	}
	if err := store.SetCreditStats(ctx, got, time.Minute); err != nil {
		t.Fatalf("nil store set failed: %v", err)
	}
	if err := store.InvalidateCreditStats(ctx); err != nil {
		t.Fatalf("nil store del failed: %v", err)
	}
	if NewStore(nil, "").Enabled() {
		t.Fatalf("store without client should be disabled")
	}
}

func TestStoreUserAuthState(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	user := &models.User{ID: 7, Username: "alice", Role: "admin", Status: "active"}

	if err := store.SetUserAuthState(ctx, BuildUserAuthState(user)); err != nil {
		t.Fatalf("set auth state failed: %v", err)
	}
	state, hit, err := store.GetUserAuthState(ctx, 7)
	if err != nil || !hit {
		t.Fatalf("want hit, got hit=%v err=%v", hit, err)
	}
	if state.Username != "alice" || state.Role != "admin" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if err := store.DelUserAuthState(ctx, 7); err != nil {
		t.Fatalf("del auth state failed: %v", err)
	}
	if _, hit, _ := store.GetUserAuthState(ctx, 7); hit {
		t.Fatalf("auth state should be deleted")
	}
}
