package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func benchmarkRoute(b *testing.B, recipientConns int) {
	st := newMemStore()
	hub := NewHub(Options{Store: st, StoreTimeout: time.Second, OutboundBuffer: 1024, Logger: testLogger()})

	sender := hub.Open()
	if err := hub.Handle(context.Background(), sender, &Command{Kind: CommandBind, User: "sender"}); err != nil {
		b.Fatalf("bind sender: %v", err)
	}
	go func() {
		for range sender.Events {
		}
	}()

	conns := make([]*Conn, 0, recipientConns)
	for i := 0; i < recipientConns; i++ {
		c := hub.Open()
		if err := hub.Handle(context.Background(), c, &Command{Kind: CommandBind, User: "bob"}); err != nil {
			b.Fatalf("bind recipient: %v", err)
		}
		conns = append(conns, c)
	}

	// Drain events for all but the first connection to avoid backpressure.
	target := conns[0]
	for _, c := range conns[1:] {
		go func(c *Conn) {
			for range c.Events {
			}
		}(c)
	}
	drain(target.Events)

	cmd := &Command{Kind: CommandSendMessage, RecipientID: "bob", Body: "payload"}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := hub.Handle(context.Background(), sender, cmd); err != nil {
			b.Fatalf("route: %v", err)
		}
		<-target.Events
	}
	b.StopTimer()

	for _, c := range append(conns, sender) {
		hub.Close(c)
	}
}

func BenchmarkRoute_1(b *testing.B)   { benchmarkRoute(b, 1) }
func BenchmarkRoute_10(b *testing.B)  { benchmarkRoute(b, 10) }
func BenchmarkRoute_100(b *testing.B) { benchmarkRoute(b, 100) }

func BenchmarkRegistryBindUnbind(b *testing.B) {
	r := NewRegistry(nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := NewConn(fmt.Sprintf("c%d", i), 1)
		if err := r.Bind(c, "alice"); err != nil {
			b.Fatal(err)
		}
		r.Unbind(c.ID)
	}
}
