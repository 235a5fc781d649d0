package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bittu292021/chatbox/internal/core"
)

func newTestMirror(t *testing.T) *Mirror {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	m, err := NewMirror(addr, time.Minute)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMirrorOnlineOffline(t *testing.T) {
	m := newTestMirror(t)
	ctx := context.Background()
	user := "mirror-test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { m.client.Del(context.Background(), KeyPrefix+user) })

	if _, ok, err := m.Get(ctx, user); err != nil || ok {
		t.Fatalf("expected no record, got ok=%v err=%v", ok, err)
	}

	at := time.UnixMilli(1_700_000_000_000)
	if err := m.PublishPresence(ctx, user, core.PresenceOnline, at); err != nil {
		t.Fatalf("publish online: %v", err)
	}
	p, ok, err := m.Get(ctx, user)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !p.Online || !p.LastSeen.Equal(at) {
		t.Fatalf("unexpected presence %+v", p)
	}

	later := at.Add(time.Minute)
	if err := m.PublishPresence(ctx, user, core.PresenceOffline, later); err != nil {
		t.Fatalf("publish offline: %v", err)
	}
	p, _, _ = m.Get(ctx, user)
	if p.Online || !p.LastSeen.Equal(later) {
		t.Fatalf("unexpected presence %+v", p)
	}

	ttl, err := m.client.TTL(ctx, KeyPrefix+user).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v (err %v)", ttl, err)
	}
}

func TestNewMirrorDefaultTTL(t *testing.T) {
	if m := newMirror(nil, 0); m.ttl != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", m.ttl, DefaultTTL)
	}
}
