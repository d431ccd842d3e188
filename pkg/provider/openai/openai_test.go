package openai

import (
	"testing"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

func TestConvertMessage_System(t *testing.T) {
	msg := ratatoskr.Message{Role: ratatoskr.RoleSystem, Content: "You are helpful."}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfSystem == nil {
		t.Fatal("expected OfSystem to be set")
	}
}

func TestConvertMessage_User(t *testing.T) {
	msg := ratatoskr.Message{Role: ratatoskr.RoleUser, Content: "Hello!"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfUser == nil {
		t.Fatal("expected OfUser to be set")
	}
}

func TestConvertMessage_Assistant(t *testing.T) {
	msg := ratatoskr.Message{Role: ratatoskr.RoleAssistant, Content: "Hi there!"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
}

func TestConvertMessage_AssistantWithToolCalls(t *testing.T) {
	msg := ratatoskr.Message{
		Role: ratatoskr.RoleAssistant,
		ToolCalls: []ratatoskr.ToolCall{
			{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Berlin"}`},
		},
	}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfAssistant == nil {
		t.Fatal("expected OfAssistant to be set")
	}
	if len(param.OfAssistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(param.OfAssistant.ToolCalls))
	}
	tc := param.OfAssistant.ToolCalls[0]
	if tc.ID != "call_1" {
		t.Errorf("expected ID call_1, got %s", tc.ID)
	}
	if tc.Function.Name != "get_weather" {
		t.Errorf("expected function name get_weather, got %s", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"city":"Berlin"}` {
		t.Errorf("unexpected arguments: %s", tc.Function.Arguments)
	}
}

func TestConvertMessage_Tool(t *testing.T) {
	msg := ratatoskr.Message{Role: ratatoskr.RoleTool, Content: "sunny", ToolCallID: "call_1"}
	param, err := convertMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if param.OfTool == nil {
		t.Fatal("expected OfTool to be set")
	}
	if param.OfTool.ToolCallID != "call_1" {
		t.Errorf("expected ToolCallID call_1, got %s", param.OfTool.ToolCallID)
	}
}

func TestConvertMessage_UnknownRole(t *testing.T) {
	msg := ratatoskr.Message{Role: "unknown", Content: "test"}
	_, err := convertMessage(msg)
	if err == nil {
		t.Fatal("expected error for unknown role, got nil")
	}
}

func TestBuildParams_AppliesOptionsAndTools(t *testing.T) {
	temp := 0.5
	maxTokens := 256
	messages := []ratatoskr.Message{{Role: ratatoskr.RoleUser, Content: "hi"}}
	tools := []ratatoskr.ToolDefinition{{Name: "get_weather", Description: "looks up weather"}}

	params, err := buildParams(messages, tools, "gpt-4o", ratatoskr.ChatOptions{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(params.Model) != "gpt-4o" {
		t.Errorf("model: got %q", params.Model)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(params.Messages))
	}
	if len(params.Tools) != 1 || params.Tools[0].Function.Name != "get_weather" {
		t.Errorf("expected get_weather tool, got %+v", params.Tools)
	}
	if !params.Temperature.Valid() || params.Temperature.Value != temp {
		t.Errorf("temperature not applied: %+v", params.Temperature)
	}
	if !params.MaxCompletionTokens.Valid() || params.MaxCompletionTokens.Value != int64(maxTokens) {
		t.Errorf("max tokens not applied: %+v", params.MaxCompletionTokens)
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(Config{DefaultModel: "gpt-4o"})
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestNew_DefaultsProviderID(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test", DefaultModel: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProviderID() != "openai" {
		t.Errorf("got %q, want %q", p.ProviderID(), "openai")
	}
}

func TestNew_CustomID(t *testing.T) {
	p, err := New(Config{ID: "openai-eu", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProviderID() != "openai-eu" {
		t.Errorf("got %q, want %q", p.ProviderID(), "openai-eu")
	}
}

func TestToFinishReason(t *testing.T) {
	cases := map[string]ratatoskr.FinishReason{
		"length":         ratatoskr.FinishLength,
		"tool_calls":     ratatoskr.FinishToolCalls,
		"content_filter": ratatoskr.FinishContentFilter,
		"stop":           ratatoskr.FinishStop,
		"":               ratatoskr.FinishStop,
	}
	for in, want := range cases {
		if got := toFinishReason(in); got != want {
			t.Errorf("toFinishReason(%q): got %q, want %q", in, got, want)
		}
	}
}
