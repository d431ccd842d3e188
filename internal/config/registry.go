package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/emesal/ratatoskr/pkg/ratatoskr"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider constructor names to factory functions, one map per
// capability since each capability's factory returns a different interface
// type. It is safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	chat           map[string]func(ProviderEntry) (ratatoskr.ChatProvider, error)
	chatStream     map[string]func(ProviderEntry) (ratatoskr.ChatStreamProvider, error)
	generate       map[string]func(ProviderEntry) (ratatoskr.GenerateProvider, error)
	generateStream map[string]func(ProviderEntry) (ratatoskr.GenerateStreamProvider, error)
	embed          map[string]func(ProviderEntry) (ratatoskr.EmbedProvider, error)
	embedBatch     map[string]func(ProviderEntry) (ratatoskr.EmbedBatchProvider, error)
	nli            map[string]func(ProviderEntry) (ratatoskr.NliProvider, error)
	nliBatch       map[string]func(ProviderEntry) (ratatoskr.NliBatchProvider, error)
	zeroShot       map[string]func(ProviderEntry) (ratatoskr.ZeroShotProvider, error)
	stance         map[string]func(ProviderEntry) (ratatoskr.StanceProvider, error)
	tokenize       map[string]func(ProviderEntry) (ratatoskr.TokenizeProvider, error)
	metadata       map[string]func(ProviderEntry) (ratatoskr.MetadataProvider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		chat:           make(map[string]func(ProviderEntry) (ratatoskr.ChatProvider, error)),
		chatStream:     make(map[string]func(ProviderEntry) (ratatoskr.ChatStreamProvider, error)),
		generate:       make(map[string]func(ProviderEntry) (ratatoskr.GenerateProvider, error)),
		generateStream: make(map[string]func(ProviderEntry) (ratatoskr.GenerateStreamProvider, error)),
		embed:          make(map[string]func(ProviderEntry) (ratatoskr.EmbedProvider, error)),
		embedBatch:     make(map[string]func(ProviderEntry) (ratatoskr.EmbedBatchProvider, error)),
		nli:            make(map[string]func(ProviderEntry) (ratatoskr.NliProvider, error)),
		nliBatch:       make(map[string]func(ProviderEntry) (ratatoskr.NliBatchProvider, error)),
		zeroShot:       make(map[string]func(ProviderEntry) (ratatoskr.ZeroShotProvider, error)),
		stance:         make(map[string]func(ProviderEntry) (ratatoskr.StanceProvider, error)),
		tokenize:       make(map[string]func(ProviderEntry) (ratatoskr.TokenizeProvider, error)),
		metadata:       make(map[string]func(ProviderEntry) (ratatoskr.MetadataProvider, error)),
	}
}

// RegisterChat registers a chat provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterChat(name string, factory func(ProviderEntry) (ratatoskr.ChatProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat[name] = factory
}

// RegisterChatStream registers a streaming chat provider factory under name.
func (r *Registry) RegisterChatStream(name string, factory func(ProviderEntry) (ratatoskr.ChatStreamProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatStream[name] = factory
}

// RegisterGenerate registers a completion provider factory under name.
func (r *Registry) RegisterGenerate(name string, factory func(ProviderEntry) (ratatoskr.GenerateProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generate[name] = factory
}

// RegisterGenerateStream registers a streaming completion provider factory under name.
func (r *Registry) RegisterGenerateStream(name string, factory func(ProviderEntry) (ratatoskr.GenerateStreamProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generateStream[name] = factory
}

// RegisterEmbed registers an embedding provider factory under name.
func (r *Registry) RegisterEmbed(name string, factory func(ProviderEntry) (ratatoskr.EmbedProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embed[name] = factory
}

// RegisterEmbedBatch registers a batch-embedding provider factory under name.
func (r *Registry) RegisterEmbedBatch(name string, factory func(ProviderEntry) (ratatoskr.EmbedBatchProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedBatch[name] = factory
}

// RegisterNli registers an NLI provider factory under name.
func (r *Registry) RegisterNli(name string, factory func(ProviderEntry) (ratatoskr.NliProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nli[name] = factory
}

// RegisterNliBatch registers a batch-NLI provider factory under name.
func (r *Registry) RegisterNliBatch(name string, factory func(ProviderEntry) (ratatoskr.NliBatchProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nliBatch[name] = factory
}

// RegisterZeroShot registers a zero-shot classification provider factory under name.
func (r *Registry) RegisterZeroShot(name string, factory func(ProviderEntry) (ratatoskr.ZeroShotProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zeroShot[name] = factory
}

// RegisterStance registers a stance-detection provider factory under name.
func (r *Registry) RegisterStance(name string, factory func(ProviderEntry) (ratatoskr.StanceProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stance[name] = factory
}

// RegisterTokenize registers a tokenizer provider factory under name.
func (r *Registry) RegisterTokenize(name string, factory func(ProviderEntry) (ratatoskr.TokenizeProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenize[name] = factory
}

// RegisterMetadata registers a model-metadata provider factory under name.
func (r *Registry) RegisterMetadata(name string, factory func(ProviderEntry) (ratatoskr.MetadataProvider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[name] = factory
}

// CreateChat instantiates a chat provider using the factory registered under entry.Name.
func (r *Registry) CreateChat(entry ProviderEntry) (ratatoskr.ChatProvider, error) {
	r.mu.RLock()
	factory, ok := r.chat[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chat/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateChatStream instantiates a streaming chat provider using the factory registered under entry.Name.
func (r *Registry) CreateChatStream(entry ProviderEntry) (ratatoskr.ChatStreamProvider, error) {
	r.mu.RLock()
	factory, ok := r.chatStream[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: chat_stream/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateGenerate instantiates a completion provider using the factory registered under entry.Name.
func (r *Registry) CreateGenerate(entry ProviderEntry) (ratatoskr.GenerateProvider, error) {
	r.mu.RLock()
	factory, ok := r.generate[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: generate/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateGenerateStream instantiates a streaming completion provider using the factory registered under entry.Name.
func (r *Registry) CreateGenerateStream(entry ProviderEntry) (ratatoskr.GenerateStreamProvider, error) {
	r.mu.RLock()
	factory, ok := r.generateStream[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: generate_stream/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbed instantiates an embedding provider using the factory registered under entry.Name.
func (r *Registry) CreateEmbed(entry ProviderEntry) (ratatoskr.EmbedProvider, error) {
	r.mu.RLock()
	factory, ok := r.embed[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embed/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbedBatch instantiates a batch-embedding provider using the factory registered under entry.Name.
func (r *Registry) CreateEmbedBatch(entry ProviderEntry) (ratatoskr.EmbedBatchProvider, error) {
	r.mu.RLock()
	factory, ok := r.embedBatch[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embed_batch/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateNli instantiates an NLI provider using the factory registered under entry.Name.
func (r *Registry) CreateNli(entry ProviderEntry) (ratatoskr.NliProvider, error) {
	r.mu.RLock()
	factory, ok := r.nli[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: nli/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateNliBatch instantiates a batch-NLI provider using the factory registered under entry.Name.
func (r *Registry) CreateNliBatch(entry ProviderEntry) (ratatoskr.NliBatchProvider, error) {
	r.mu.RLock()
	factory, ok := r.nliBatch[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: nli_batch/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateZeroShot instantiates a zero-shot classification provider using the factory registered under entry.Name.
func (r *Registry) CreateZeroShot(entry ProviderEntry) (ratatoskr.ZeroShotProvider, error) {
	r.mu.RLock()
	factory, ok := r.zeroShot[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: zero_shot/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateStance instantiates a stance-detection provider using the factory registered under entry.Name.
func (r *Registry) CreateStance(entry ProviderEntry) (ratatoskr.StanceProvider, error) {
	r.mu.RLock()
	factory, ok := r.stance[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stance/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTokenize instantiates a tokenizer provider using the factory registered under entry.Name.
func (r *Registry) CreateTokenize(entry ProviderEntry) (ratatoskr.TokenizeProvider, error) {
	r.mu.RLock()
	factory, ok := r.tokenize[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tokenize/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateMetadata instantiates a model-metadata provider using the factory registered under entry.Name.
func (r *Registry) CreateMetadata(entry ProviderEntry) (ratatoskr.MetadataProvider, error) {
	r.mu.RLock()
	factory, ok := r.metadata[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: metadata/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
