package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/config"
	"github.com/bittu292021/chatbox/internal/core"
	"github.com/bittu292021/chatbox/internal/proto"
)

const (
	wsReadLimit  = 64 << 10
	writeTimeout = 10 * time.Second
)

// WSHandler upgrades HTTP connections and bridges them to core.Conn.
type WSHandler struct {
	hub       *core.Hub
	heartbeat heartbeat
	ratePerS  float64
	rateBurst int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub: hub,
		heartbeat: heartbeat{
			interval: cfg.HeartbeatInterval,
			timeout:  cfg.HeartbeatTimeout,
		},
		ratePerS:  cfg.RateLimitPerSecond,
		rateBurst: cfg.RateLimitBurst,
		log:       logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(wsReadLimit)

	client := h.hub.Open()
	defer h.hub.Close(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.heartbeat.run(ctx, conn)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	// Presence goes offline as soon as the socket is gone, not after teardown.
	h.hub.Close(client)
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if errors.Is(err, errHeartbeatTimeout) {
		h.log.Info().Str("conn_id", client.ID).Msg("heartbeat timeout, closing connection")
		status = websocket.StatusPolicyViolation
		reason = "heartbeat timeout"
	} else if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	limiter := newRateLimiter(h.ratePerS, h.rateBurst)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			client.Send(&core.Event{
				Kind:  core.EventError,
				Error: &core.CoreError{Code: core.ErrCodeRateLimited, Message: "too many messages"},
			})
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			client.Send(&core.Event{
				Kind:  core.EventError,
				Error: &core.CoreError{Code: protoErr.Code, Message: protoErr.Msg},
			})
			continue
		}

		if err := h.hub.Handle(ctx, client, cmd); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Str("type", inbound.Type).Msg("command rejected")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Conn) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, outboundFromEvent(event))
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
