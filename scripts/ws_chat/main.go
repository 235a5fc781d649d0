package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/bittu292021/chatbox/internal/proto"
)

// wireOutbound mirrors proto.Outbound with raw data for decoding by event.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "user id to bind as")
	token := flag.String("token", "", "bind token (required when the server has a JWT secret)")
	to := flag.String("to", "", "default recipient for lines without an @user prefix")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := write(ctx, conn, proto.InboundTypeBind, proto.BindData{
		User: *user, Token: *token, Protocol: proto.ProtocolVersion,
	}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Type \"@user message\" and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *to)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func write(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		printOutbound(out)
	}
}

func printOutbound(out wireOutbound) {
	if out.Error != nil {
		fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
		return
	}

	switch out.Event {
	case proto.EventBound:
		var evt proto.EventBoundData
		if err := json.Unmarshal(out.Data, &evt); err == nil {
			fmt.Printf("bound as %s (connection %s)\n", evt.UserID, evt.ConnectionID)
		}
	case proto.EventPresenceSnapshot:
		var evt proto.EventPresenceSnapshotData
		if err := json.Unmarshal(out.Data, &evt); err == nil {
			fmt.Printf("online: %s\n", strings.Join(evt.Users, ", "))
		}
	case proto.EventPresence:
		var evt proto.EventPresenceData
		if err := json.Unmarshal(out.Data, &evt); err == nil {
			fmt.Printf("* %s is %s\n", evt.UserID, evt.State)
		}
	case proto.EventMessage, proto.EventMessageSent:
		var evt proto.EventMessageData
		if err := json.Unmarshal(out.Data, &evt); err != nil {
			log.Printf("unmarshal message: %v", err)
			return
		}
		ts := time.UnixMilli(evt.CreatedAt).Format(time.Kitchen)
		if out.Event == proto.EventMessageSent {
			fmt.Printf("[%s] -> %s: %s (delivered: %t)\n", ts, evt.RecipientID, evt.Body, evt.Delivered)
		} else {
			fmt.Printf("[%s] %s: %s\n", ts, evt.SenderID, evt.Body)
		}
	case proto.EventTyping, proto.EventTypingStopped:
		var evt proto.EventTypingData
		if err := json.Unmarshal(out.Data, &evt); err == nil {
			if out.Event == proto.EventTyping {
				fmt.Printf("  %s is typing...\n", evt.SenderID)
			} else {
				fmt.Printf("  %s stopped typing\n", evt.SenderID)
			}
		}
	default:
		fmt.Printf("event=%s data=%s\n", out.Event, string(out.Data))
	}
}

// parseLine splits "@bob hello" into recipient and body.
func parseLine(line, fallback string) (string, string) {
	if strings.HasPrefix(line, "@") {
		recipient, body, _ := strings.Cut(line[1:], " ")
		return recipient, strings.TrimSpace(body)
	}
	return fallback, line
}

func writeLoop(ctx context.Context, conn *websocket.Conn, defaultRecipient string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			recipient, body := parseLine(text, defaultRecipient)
			if recipient == "" {
				fmt.Println("no recipient: prefix the line with @user or pass -to")
				continue
			}
			if err := write(ctx, conn, proto.InboundTypeSend, proto.SendData{RecipientID: recipient, Body: body}); err != nil {
				log.Printf("%v", err)
				return
			}
		}
	}
}
