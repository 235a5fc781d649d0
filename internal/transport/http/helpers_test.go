package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/auth"
	"github.com/bittu292021/chatbox/internal/config"
	"github.com/bittu292021/chatbox/internal/core"
	"github.com/bittu292021/chatbox/internal/proto"
	"github.com/bittu292021/chatbox/internal/store"
	"github.com/bittu292021/chatbox/internal/store/migrations"
	"github.com/bittu292021/chatbox/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with the schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", migrations.ApplySQLite)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.TypingTimeout = 200 * time.Millisecond
	return cfg
}

type testServer struct {
	*httptest.Server
	hub   *core.Hub
	store store.Store
}

func startTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	disabledLogger := zerolog.New(nil)
	st := createTestStore(t)

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	}
	verifier := auth.NewVerifier(jwtCfg, nil)

	hub := core.NewHub(core.Options{
		Store:          st,
		Verifier:       verifier,
		TypingTimeout:  cfg.TypingTimeout,
		StoreTimeout:   cfg.Store.Timeout,
		OutboundBuffer: cfg.OutboundBuffer,
		Policy: core.MessagePolicy{
			MaxBytes:     cfg.MaxMessageBytes,
			MaxRunes:     cfg.MaxMessageRunes,
			RejectMarkup: cfg.RejectMarkup,
		},
		Logger: &disabledLogger,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := NewServer(hub, verifier, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, hub: hub, store: st}
}

func (s *testServer) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(s.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// wireOutbound mirrors proto.Outbound with undecoded data.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readEvent reads frames until an event with the given name arrives.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) wireOutbound {
	t.Helper()

	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if out.Type == proto.OutboundTypeEvent && out.Event == event {
			return out
		}
	}
}

// readError reads frames until an error frame arrives.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			return out.Error
		}
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

// bindAs binds conn to user in trusted mode and waits for the confirmation.
func bindAs(t *testing.T, ctx context.Context, conn *websocket.Conn, user string) {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeBind, proto.BindData{User: user})
	out := readEvent(t, ctx, conn, proto.EventBound)
	if got := decode[proto.EventBoundData](t, out.Data); got.UserID != user {
		t.Fatalf("bound as %q, want %q", got.UserID, user)
	}
}
