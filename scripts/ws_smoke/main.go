package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/bittu292021/chatbox/internal/proto"
)

type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run binds two users, sends a message from one to the other and waits for
// the delivery and the sender echo.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	from := flag.String("from", "smoke-alice", "sender user id")
	to := flag.String("to", "smoke-bob", "recipient user id")
	fromToken := flag.String("from-token", "", "sender bind token")
	toToken := flag.String("to-token", "", "recipient bind token")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	recipient, err := dialAndBind(ctx, *addr, *to, *toToken)
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	defer recipient.Close(websocket.StatusNormalClosure, "bye")

	sender, err := dialAndBind(ctx, *addr, *from, *fromToken)
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	payload, err := json.Marshal(proto.SendData{RecipientID: *to, Body: *text})
	if err != nil {
		return fmt.Errorf("marshal send: %w", err)
	}
	if err := wsjson.Write(ctx, sender, proto.Inbound{Type: proto.InboundTypeSend, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	got, err := await(ctx, recipient, proto.EventMessage)
	if err != nil {
		return err
	}
	fmt.Printf("EventMessage: id=%d from=%s body=%q delivered=%t\n", got.ID, got.SenderID, got.Body, got.Delivered)

	echo, err := await(ctx, sender, proto.EventMessageSent)
	if err != nil {
		return err
	}
	fmt.Printf("EventMessageSent: id=%d delivered=%t\n", echo.ID, echo.Delivered)
	return nil
}

func dialAndBind(ctx context.Context, addr, user, token string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	payload, err := json.Marshal(proto.BindData{User: user, Token: token, Protocol: proto.ProtocolVersion})
	if err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("marshal bind: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeBind, Data: payload}); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("bind: %w", err)
	}
	return conn, nil
}

func await(ctx context.Context, conn *websocket.Conn, event string) (proto.EventMessageData, error) {
	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return proto.EventMessageData{}, fmt.Errorf("read: %w", err)
		}
		if out.Error != nil {
			return proto.EventMessageData{}, fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}
		fmt.Printf("Received outbound: type=%s event=%s\n", out.Type, out.Event)
		if out.Event != event {
			continue
		}
		var evt proto.EventMessageData
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			return evt, fmt.Errorf("unmarshal %s: %w", event, err)
		}
		return evt, nil
	}
}
