package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripflow-core/server/internal/planner/model"
)

type fakeRedis struct {
	store   map[string]string
	lastTTL time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.store[key] = string(value.([]byte))
	f.lastTTL = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	n := int64(0)
	for _, k := range keys {
		if _, ok := f.store[k]; ok {
			delete(f.store, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestSessionRoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	r := NewRedisSessionRepository(rdb, time.Hour)
	ctx := context.Background()

	sess := model.NewSession("u1")
	sess.AppendUser("I want to go to Shanghai")
	sess.SetSlot(model.SlotDestination, "Shanghai")
	sess.Phase = model.PhaseSlotFill

	if err := r.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if rdb.lastTTL != time.Hour {
		t.Errorf("TTL = %v, want 1h", rdb.lastTTL)
	}

	got, err := r.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("Load returned nil for a saved session")
	}
	if got.Slots[model.SlotDestination].Value != "Shanghai" {
		t.Errorf("slots = %+v", got.Slots)
	}
	if len(got.History) != 1 {
		t.Errorf("history length = %d, want 1", len(got.History))
	}
	if got.Attempts == nil {
		t.Error("attempts map not initialized on load")
	}
}

func TestLoadMissReturnsNilNil(t *testing.T) {
	r := NewRedisSessionRepository(newFakeRedis(), time.Hour)
	got, err := r.Load(context.Background(), "absent")
	if err != nil {
		t.Fatalf("miss must not be an error: %v", err)
	}
	if got != nil {
		t.Fatalf("miss returned session %+v", got)
	}
}

func TestLoadDropsCorruptBlob(t *testing.T) {
	rdb := newFakeRedis()
	rdb.store[sessionKey("u1")] = "{not json"
	r := NewRedisSessionRepository(rdb, time.Hour)

	got, err := r.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("corrupt blob must degrade, not error: %v", err)
	}
	if got != nil {
		t.Fatalf("corrupt blob produced session %+v", got)
	}
	if _, ok := rdb.store[sessionKey("u1")]; ok {
		t.Error("corrupt blob not deleted")
	}
}

func TestDelete(t *testing.T) {
	rdb := newFakeRedis()
	r := NewRedisSessionRepository(rdb, time.Hour)
	ctx := context.Background()

	if err := r.Save(ctx, model.NewSession("u1")); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Load(ctx, "u1"); got != nil {
		t.Error("session still loadable after delete")
	}
}

func TestSessionBlobShape(t *testing.T) {
	rdb := newFakeRedis()
	r := NewRedisSessionRepository(rdb, time.Hour)

	sess := model.NewSession("u1")
	sess.Degraded = true
	if err := r.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	var blob map[string]any
	if err := json.Unmarshal([]byte(rdb.store[sessionKey("u1")]), &blob); err != nil {
		t.Fatal(err)
	}
	// The degraded marker is per-turn state and must never persist.
	if _, ok := blob["Degraded"]; ok {
		t.Error("degraded flag serialized")
	}
	if blob["identity"] != "u1" {
		t.Errorf("identity = %v", blob["identity"])
	}
}
