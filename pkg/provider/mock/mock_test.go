package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func TestProvider_ChatRecordsCallsAndReturnsConfiguredResponse(t *testing.T) {
	p := &Provider{ID: "fixture", ChatResponse: &ratatoskr.ChatResponse{Content: "hi"}}

	resp, err := p.Chat(context.Background(), nil, nil, ratatoskr.ChatOptions{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi" {
		t.Errorf("Content: got %q", resp.Content)
	}
	if len(p.ChatCalls) != 1 {
		t.Fatalf("expected 1 recorded call, got %d", len(p.ChatCalls))
	}
	if p.ChatCalls[0].Opts.Model != "m" {
		t.Errorf("recorded model: got %q", p.ChatCalls[0].Opts.Model)
	}
}

func TestProvider_ChatReturnsConfiguredError(t *testing.T) {
	wantErr := errors.New("boom")
	p := &Provider{ChatErr: wantErr}

	_, err := p.Chat(context.Background(), nil, nil, ratatoskr.ChatOptions{Model: "m"})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestProvider_ChatStreamDeliversConfiguredEvents(t *testing.T) {
	events := []ratatoskr.ChatEvent{{Kind: ratatoskr.ChatEventContent, Text: "a"}, {Kind: ratatoskr.ChatEventDone}}
	p := &Provider{ChatStreamEvents: events}

	ch, err := p.ChatStream(context.Background(), nil, nil, ratatoskr.ChatOptions{Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []ratatoskr.ChatEvent
	for e := range ch {
		got = append(got, e)
	}
	if len(got) != len(events) {
		t.Fatalf("got %d events, want %d", len(got), len(events))
	}
}

func TestProvider_ProviderIDDefaultsToMock(t *testing.T) {
	p := &Provider{}
	if p.ProviderID() != "mock" {
		t.Errorf("got %q, want %q", p.ProviderID(), "mock")
	}
}

func TestProvider_EmbedBatchDefaultsOneEmbeddingPerText(t *testing.T) {
	p := &Provider{}
	out, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"}, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(out))
	}
}
