package test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/omochice/alisa-relay/internal/app"
	"github.com/omochice/alisa-relay/internal/client"
	"github.com/omochice/alisa-relay/internal/config"
	"github.com/omochice/alisa-relay/internal/transport/ws"
	"github.com/omochice/alisa-relay/pkg/protocol"
)

func startRelay(t *testing.T, script config.Script) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.LLM.Provider = config.ProviderScript
	cfg.LLM.Script = script

	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
	})
	return a
}

func connect(t *testing.T, a *app.App, n int) []*client.Client {
	t.Helper()
	clients := make([]*client.Client, n)
	for i := range clients {
		c := client.New("ws://"+a.Addr()+ws.Path, nil)
		if err := c.Connect(context.Background()); err != nil {
			t.Fatalf("client %d failed to connect: %v", i, err)
		}
		t.Cleanup(c.Disconnect)
		clients[i] = c
	}
	waitForCount(t, a, n)
	return clients
}

func waitForCount(t *testing.T, a *app.App, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for a.Relay().Registry().Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", want, a.Relay().Registry().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func collect(t *testing.T, c *client.Client) client.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := c.Collect(ctx, nil)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return reply
}

// expectSilence fails if c receives any frame within d.
func expectSilence(t *testing.T, c *client.Client, d time.Duration) {
	t.Helper()
	select {
	case f := <-c.Frames():
		t.Errorf("unexpected frame %q", f.Encode())
	case <-time.After(d):
	}
}

// Every connected client receives the whole reply, not just the sender.
func TestIntegration_SharedTurn(t *testing.T) {
	a := startRelay(t, config.Script{Replies: []string{"<emotion=happy> Nice to see you!"}})
	clients := connect(t, a, 3)

	if err := clients[0].Send("hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for i, c := range clients {
		reply := collect(t, c)
		if reply.Emotion != "happy" {
			t.Errorf("client %d: emotion = %q, want happy", i, reply.Emotion)
		}
		if got := reply.Text(); got != "<emotion=happy> Nice to see you!" {
			t.Errorf("client %d: text = %q", i, got)
		}
		if len(reply.Tokens) != 5 {
			t.Errorf("client %d: got %d tokens, want 5", i, len(reply.Tokens))
		}
	}
}

func TestIntegration_ConsecutiveTurns(t *testing.T) {
	a := startRelay(t, config.Script{Replies: []string{"<emotion=calm> one", "<emotion=sad> two"}})
	c := connect(t, a, 1)[0]

	for _, want := range []string{"calm", "sad"} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		reply, err := c.Ask(ctx, "next")
		cancel()
		if err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
		if reply.Emotion != want {
			t.Errorf("emotion = %q, want %q", reply.Emotion, want)
		}
	}
}

// A mode change is acknowledged to the issuer only.
func TestIntegration_ModeChange(t *testing.T) {
	a := startRelay(t, config.Script{})
	clients := connect(t, a, 2)

	if err := clients[0].SetMode("teasing"); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	reply := collect(t, clients[0])
	if !reply.ModeChanged {
		t.Errorf("issuer did not receive %s", protocol.ModeChangedMarker)
	}
	expectSilence(t, clients[1], 200*time.Millisecond)

	if err := clients[1].SetMode("grumpy"); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if reply := collect(t, clients[1]); reply.Err == "" {
		t.Error("unknown mode was not rejected")
	}
	expectSilence(t, clients[0], 200*time.Millisecond)
}

// A client leaving mid-stream does not interrupt the reply for the rest.
func TestIntegration_PeerLeavesMidTurn(t *testing.T) {
	reply := "<emotion=teasing>" + strings.Repeat(" word", 20)
	a := startRelay(t, config.Script{Replies: []string{reply}, Delay: 10 * time.Millisecond})
	clients := connect(t, a, 3)

	if err := clients[0].Send("tell me a story"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case <-clients[1].Frames():
	case <-time.After(2 * time.Second):
		t.Fatal("no token reached the leaving client")
	}
	clients[1].Disconnect()

	for _, c := range []*client.Client{clients[0], clients[2]} {
		got := collect(t, c)
		if got.Emotion != "teasing" {
			t.Errorf("emotion = %q, want teasing", got.Emotion)
		}
		if got.Text() != reply {
			t.Errorf("text = %q", got.Text())
		}
	}
	waitForCount(t, a, 2)
}

func TestIntegration_GenerationFailure(t *testing.T) {
	a := startRelay(t, config.Script{Replies: []string{"<emotion=calm> never finished"}, FailAfter: 2})
	clients := connect(t, a, 2)

	if err := clients[1].Send("hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	for i, c := range clients {
		reply := collect(t, c)
		if reply.Err == "" {
			t.Errorf("client %d: no error frame", i)
		}
		if reply.Emotion != "" {
			t.Errorf("client %d: unexpected emotion %q", i, reply.Emotion)
		}
		if len(reply.Tokens) != 2 {
			t.Errorf("client %d: got %d tokens, want 2", i, len(reply.Tokens))
		}
	}

	// The relay keeps serving after a failed turn.
	if err := clients[0].Send(protocol.PresencePrefix + "smiling"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	expectSilence(t, clients[0], 100*time.Millisecond)
	waitForCount(t, a, 2)
}
