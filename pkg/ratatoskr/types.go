// Package ratatoskr is a unified language-model gateway: it multiplexes
// heterogeneous chat, embedding, NLI, and classification providers behind a
// single capability-oriented surface.
//
// Callers build a [Gateway] with [NewBuilder], register providers per
// capability, and issue operations by model id. The gateway selects an
// appropriate provider from the registered chain, retries and validates the
// request, optionally serves a cached deterministic result, and returns a
// normalized response. See [Gateway] for the full operation set.
package ratatoskr

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the speaker of a [Message].
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn in a chat conversation. Messages are caller-owned
// and must not be mutated once passed to a gateway operation.
type Message struct {
	Role Role

	// Content is the text content of the message. The sum type is left open
	// for future typed media; today only text is supported.
	Content string

	// Name is an optional participant name, used to disambiguate multiple
	// tool or agent identities sharing a role.
	Name string

	// ToolCalls is set on assistant messages that requested tool invocations.
	ToolCalls []ToolCall

	// ToolCallID identifies which ToolCall this message answers. Only
	// meaningful when Role is RoleTool.
	ToolCallID string
}

// ToolDefinition describes a tool a model may choose to invoke.
type ToolDefinition struct {
	Name        string
	Description string

	// Parameters is a JSON-Schema-shaped description of the tool's input.
	Parameters map[string]any
}

// ToolCall is a single tool invocation requested by a model. Arguments is
// kept as raw JSON text (rather than a decoded map) so that streaming
// argument deltas can be concatenated without re-encoding.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// NewToolCallID generates an id for a [ToolCall] whose provider did not
// supply one. Adapters call this at response-construction time rather than
// leaving ID empty, so a caller can always correlate a tool call across a
// request/response round trip regardless of provider.
func NewToolCallID() string {
	return uuid.NewString()
}

// ToolChoice constrains how a model may use the tools offered to it.
type ToolChoice struct {
	Mode ToolChoiceMode

	// FunctionName is set only when Mode is ToolChoiceFunction.
	FunctionName string
}

// ToolChoiceMode enumerates the closed set of tool-choice strategies.
type ToolChoiceMode int

const (
	ToolChoiceAuto ToolChoiceMode = iota
	ToolChoiceNone
	ToolChoiceRequired
	ToolChoiceFunction
)

// ResponseFormat constrains the shape of a model's output.
type ResponseFormat struct {
	Kind ResponseFormatKind

	// Schema is a JSON-Schema-shaped value, set only when Kind is
	// ResponseFormatJSONSchema.
	Schema map[string]any
}

// ResponseFormatKind enumerates the closed set of response-format modes.
type ResponseFormatKind int

const (
	ResponseFormatText ResponseFormatKind = iota
	ResponseFormatJSONObject
	ResponseFormatJSONSchema
)

// ReasoningConfig tunes provider-native "thinking"/reasoning behaviour.
type ReasoningConfig struct {
	// Effort is a provider-interpreted hint such as "low", "medium", "high".
	// Empty means unset.
	Effort string

	// MaxTokens caps the reasoning token budget. Zero means provider default.
	MaxTokens int

	// ExcludeFromOutput suppresses reasoning text from the returned response
	// while still allowing the model to use it internally.
	ExcludeFromOutput bool
}

// ChatOptions configures a Chat or ChatStream call. Model is required; the
// dispatcher fails the request with [ErrInvalidInput] when it is empty.
type ChatOptions struct {
	Model string

	Temperature       *float64
	MaxTokens         *int
	TopP              *float64
	TopK              *int
	StopSequences     []string
	FrequencyPenalty  *float64
	PresencePenalty   *float64
	Seed              *int64
	ToolChoice        *ToolChoice
	ResponseFormat    *ResponseFormat
	Reasoning         *ReasoningConfig
	ParallelToolCalls *bool
	CachePrompt       *bool

	// RawProviderOptions is an opaque, provider-specific JSON payload merged
	// into the request by the workarounds layer. The dispatcher never
	// inspects its contents.
	RawProviderOptions map[string]any
}

// GenerateOptions configures a Generate or GenerateStream call over a single
// prompt string rather than a message list.
type GenerateOptions struct {
	Model string

	Temperature        *float64
	MaxTokens          *int
	TopP               *float64
	TopK               *int
	StopSequences      []string
	FrequencyPenalty   *float64
	PresencePenalty    *float64
	Seed               *int64
	ResponseFormat     *ResponseFormat
	Reasoning          *ReasoningConfig
	RawProviderOptions map[string]any
}

// FinishReason enumerates why a completion stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// Usage holds token accounting for a single request/response pair.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ReasoningTokens  int
}

// ChatResponse is returned by a non-streaming Chat call.
type ChatResponse struct {
	Content      string
	Reasoning    string
	ToolCalls    []ToolCall
	Usage        Usage
	Model        string
	FinishReason FinishReason
}

// GenerateResponse is returned by a non-streaming Generate call.
type GenerateResponse struct {
	Content      string
	Reasoning    string
	Usage        Usage
	Model        string
	FinishReason FinishReason
}

// ChatEventKind discriminates the tagged variants of a [ChatEvent].
type ChatEventKind int

const (
	ChatEventContent ChatEventKind = iota
	ChatEventReasoning
	ChatEventToolCallStart
	ChatEventToolCallDelta
	ChatEventUsage
	ChatEventDone
)

// ChatEvent is a single item in a streaming chat. Events for one call form a
// prefix of {Content|Reasoning|ToolCallStart|ToolCallDelta|Usage}* followed
// by exactly one terminal Done (or the stream ends in an error instead).
type ChatEvent struct {
	Kind ChatEventKind

	// Content/Reasoning text, set when Kind is ChatEventContent or
	// ChatEventReasoning respectively.
	Text string

	// ToolCallIndex identifies which tool call a Start/Delta event belongs
	// to; deltas must reference an index seen in an earlier Start event.
	ToolCallIndex int
	ToolCallID    string
	ToolCallName  string

	// ArgumentsDelta is an incremental JSON-argument fragment, set on
	// ChatEventToolCallDelta.
	ArgumentsDelta string

	// Usage is set when Kind is ChatEventUsage.
	Usage Usage
}

// GenerateEvent mirrors ChatEvent for the Generate capability's streaming
// form, which has no tool calls.
type GenerateEvent struct {
	Kind      GenerateEventKind
	Text      string
	Usage     Usage
}

// GenerateEventKind discriminates the tagged variants of a [GenerateEvent].
type GenerateEventKind int

const (
	GenerateEventContent GenerateEventKind = iota
	GenerateEventReasoning
	GenerateEventUsage
	GenerateEventDone
)

// Embedding is a single dense vector result.
type Embedding struct {
	Values     []float32
	Model      string
	Dimensions int
}

// NliResult is the outcome of a natural-language-inference call. Probabilities
// sum to 1 within a small epsilon.
type NliResult struct {
	Entailment    float64
	Contradiction float64
	Neutral       float64
	Label         string
}

// ClassifyResult is the outcome of a zero-shot classification call.
type ClassifyResult struct {
	Labels []LabelScore
}

// LabelScore pairs a candidate label with its classifier score.
type LabelScore struct {
	Label string
	Score float64
}

// StanceResult is the outcome of a stance-classification call.
type StanceResult struct {
	Favor   float64
	Against float64
	Neutral float64
	Label   string
	Target  string
}

// Token is a single tokenizer unit.
type Token struct {
	ID         int
	Text       string
	ByteStart  int
	ByteEnd    int
}

// ModelStatus enumerates the lifecycle states a model can report.
type ModelStatus int

const (
	ModelAvailable ModelStatus = iota
	ModelLoading
	ModelReady
	ModelUnavailable
)

// ModelStatusResult pairs a status with an optional reason, set when Status
// is ModelUnavailable.
type ModelStatusResult struct {
	Status ModelStatus
	Reason string
}

// Capability names an operation family a provider may implement.
type Capability string

const (
	CapabilityChat            Capability = "chat"
	CapabilityChatStream      Capability = "chat_stream"
	CapabilityGenerate        Capability = "generate"
	CapabilityGenerateStream  Capability = "generate_stream"
	CapabilityEmbed           Capability = "embed"
	CapabilityEmbedBatch      Capability = "embed_batch"
	CapabilityNli             Capability = "nli"
	CapabilityNliBatch        Capability = "nli_batch"
	CapabilityZeroShot        Capability = "zero_shot"
	CapabilityStance          Capability = "stance"
	CapabilityTokenize        Capability = "tokenize"
	CapabilityMetadata        Capability = "metadata"
)

// Capabilities reports, for every [Capability] the dispatcher knows about,
// how many providers are registered to serve it. A count of zero means no
// registered provider currently serves that capability.
type Capabilities struct {
	Counts map[Capability]int
}

// Supports reports whether at least one provider is registered for cap.
func (c Capabilities) Supports(cap Capability) bool {
	return c.Counts[cap] > 0
}

// Pricing is per-token pricing, expressed in an arbitrary currency unit
// consistent across a single deployment.
type Pricing struct {
	InputPerToken  float64
	OutputPerToken float64
}

// Total returns the sum of input and output per-token pricing, the ordering
// key used by cost-based chain reordering.
func (p Pricing) Total() float64 {
	return p.InputPerToken + p.OutputPerToken
}

// ModelInfo is a lightweight summary of a registered model, returned by
// [Gateway.ListModels].
type ModelInfo struct {
	ID           string
	ProviderID   string
	Capabilities []Capability
}

// ModelMetadata is the full static description of a model, assembled by the
// three-layer registry merge (seed, cached remote, ephemeral live).
type ModelMetadata struct {
	ID                string
	ProviderID        string
	Capabilities      []Capability
	ContextWindow     int
	OutputDimensions  int
	MaxOutputTokens   int
	Pricing           Pricing
	Parameters        map[ParameterName]ParameterAvailability
}

// ParameterName is a closed set of well-known request parameters, with an
// escape hatch for provider-specific ones.
type ParameterName struct {
	name string
}

// Well-known parameter names.
var (
	ParamTemperature       = ParameterName{"temperature"}
	ParamMaxTokens         = ParameterName{"max_tokens"}
	ParamTopP              = ParameterName{"top_p"}
	ParamTopK              = ParameterName{"top_k"}
	ParamStopSequences     = ParameterName{"stop_sequences"}
	ParamFrequencyPenalty  = ParameterName{"frequency_penalty"}
	ParamPresencePenalty   = ParameterName{"presence_penalty"}
	ParamSeed              = ParameterName{"seed"}
	ParamToolChoice        = ParameterName{"tool_choice"}
	ParamResponseFormat    = ParameterName{"response_format"}
	ParamReasoning         = ParameterName{"reasoning"}
	ParamParallelToolCalls = ParameterName{"parallel_tool_calls"}
	ParamCachePrompt       = ParameterName{"cache_prompt"}
)

// CustomParameter builds a ParameterName for a provider-specific parameter
// not covered by the well-known set.
func CustomParameter(name string) ParameterName {
	return ParameterName{"custom:" + name}
}

// String returns the canonical name, suitable for use as a map key or log
// attribute.
func (p ParameterName) String() string { return p.name }

// MarshalText implements encoding.TextMarshaler so ParameterName can be used
// as a JSON object key (map[ParameterName]V) and in YAML.
func (p ParameterName) MarshalText() ([]byte, error) { return []byte(p.name), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ParameterName) UnmarshalText(text []byte) error {
	p.name = string(text)
	return nil
}

// ParameterAvailabilityKind enumerates how a (provider, model) treats a
// given parameter.
type ParameterAvailabilityKind int

const (
	// ParameterMutable means the parameter is accepted within Range.
	ParameterMutable ParameterAvailabilityKind = iota
	// ParameterReadOnly means the parameter is accepted only when set to
	// exactly Value.
	ParameterReadOnly
	// ParameterOpaque means the provider accepts any value without
	// validation (e.g. a pass-through extra-body field).
	ParameterOpaque
	// ParameterUnsupported means the provider rejects the parameter outright.
	ParameterUnsupported
)

// ParameterAvailability describes how a single (provider, model, parameter)
// triple behaves.
type ParameterAvailability struct {
	Kind ParameterAvailabilityKind

	// Range bounds a mutable numeric parameter. Both zero means unbounded.
	Min, Max float64
	HasRange bool

	// Value is the fixed value accepted by a read-only parameter.
	Value any
}

// DiscoveryRecord is runtime-learned knowledge that a parameter is rejected
// by a specific (provider, model) target.
type DiscoveryRecord struct {
	ProviderID string
	ModelID    string
	Parameter  ParameterName
	Timestamp  time.Time
	Reason     string
}

// ValidationPolicy selects how the parameter validator reacts to
// non-accepted parameters.
type ValidationPolicy int

const (
	ValidationWarn ValidationPolicy = iota
	ValidationError
	ValidationIgnore
)
