package localstream_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/emesal/ratatoskr/pkg/provider/localstream"
	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startDaemon(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeEvent(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Logf("write: %v (may be expected on close)", err)
	}
}

func TestNew_MissingURL(t *testing.T) {
	_, err := localstream.New(localstream.Config{})
	if err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestNew_DefaultsProviderID(t *testing.T) {
	p, err := localstream.New(localstream.Config{URL: "ws://localhost:9999/chat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProviderID() != "localstream" {
		t.Errorf("got %q, want %q", p.ProviderID(), "localstream")
	}
}

func TestChatStream_RelaysContentAndDone(t *testing.T) {
	srv := startDaemon(t, func(conn *websocket.Conn) {
		var req map[string]any
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		writeEvent(t, conn, map[string]string{"kind": "content", "text": "hel"})
		writeEvent(t, conn, map[string]string{"kind": "content", "text": "lo"})
		writeEvent(t, conn, map[string]string{"kind": "done"})
	})

	p, err := localstream.New(localstream.Config{URL: wsURL(srv), DefaultModel: "local-7b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	events, err := p.ChatStream(ctx, []ratatoskr.Message{{Role: ratatoskr.RoleUser, Content: "hi"}}, nil, ratatoskr.ChatOptions{})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var text string
	var sawDone bool
	for evt := range events {
		switch evt.Kind {
		case ratatoskr.ChatEventContent:
			text += evt.Text
		case ratatoskr.ChatEventDone:
			sawDone = true
		}
	}
	if text != "hello" {
		t.Errorf("expected content %q, got %q", "hello", text)
	}
	if !sawDone {
		t.Error("expected a Done event")
	}
}

func TestChat_AggregatesStreamIntoResponse(t *testing.T) {
	srv := startDaemon(t, func(conn *websocket.Conn) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
		writeEvent(t, conn, map[string]string{"kind": "content", "text": "answer"})
		writeEvent(t, conn, map[string]string{"kind": "done"})
	})

	p, err := localstream.New(localstream.Config{URL: wsURL(srv), DefaultModel: "local-7b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := p.Chat(ctx, []ratatoskr.Message{{Role: ratatoskr.RoleUser, Content: "hi"}}, nil, ratatoskr.ChatOptions{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("expected content %q, got %q", "answer", resp.Content)
	}
}
