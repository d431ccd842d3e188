package openaiembed

import "testing"

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.defaultModel != "text-embedding-3-small" {
		t.Errorf("expected default model text-embedding-3-small, got %s", p.defaultModel)
	}
}

func TestNew_DefaultsProviderID(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProviderID() != "openai-embed" {
		t.Errorf("got %q, want %q", p.ProviderID(), "openai-embed")
	}
}

func TestNew_CustomID(t *testing.T) {
	p, err := New(Config{ID: "openai-embed-eu", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ProviderID() != "openai-embed-eu" {
		t.Errorf("got %q, want %q", p.ProviderID(), "openai-embed-eu")
	}
}

func TestModel_FallsBackToDefault(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test", DefaultModel: "text-embedding-3-large"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.model(""); got != "text-embedding-3-large" {
		t.Errorf("model(\"\"): got %q, want %q", got, "text-embedding-3-large")
	}
	if got := p.model("text-embedding-ada-002"); got != "text-embedding-ada-002" {
		t.Errorf("model(override): got %q, want %q", got, "text-embedding-ada-002")
	}
}

func TestFloat64ToFloat32(t *testing.T) {
	in := []float64{1.0, 2.5, -0.5}
	out := float64ToFloat32(in)
	if len(out) != len(in) {
		t.Fatalf("expected %d elements, got %d", len(in), len(out))
	}
	for i, v := range out {
		if expected := float32(in[i]); v != expected {
			t.Errorf("index %d: expected %v, got %v", i, expected, v)
		}
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := p.EmbedBatch(nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil result for empty input, got %v", out)
	}
}
