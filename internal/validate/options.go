package validate

import "github.com/emesal/ratatoskr/pkg/ratatoskr"

// ChatParameters extracts the explicitly-set parameters from opts as a
// (name -> value) map suitable for [Validator.Validate]. A pointer field
// left nil is considered unset and omitted; StopSequences is included only
// when non-empty.
func ChatParameters(opts ratatoskr.ChatOptions) map[ratatoskr.ParameterName]any {
	out := make(map[ratatoskr.ParameterName]any, 8)
	if opts.Temperature != nil {
		out[ratatoskr.ParamTemperature] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		out[ratatoskr.ParamMaxTokens] = *opts.MaxTokens
	}
	if opts.TopP != nil {
		out[ratatoskr.ParamTopP] = *opts.TopP
	}
	if opts.TopK != nil {
		out[ratatoskr.ParamTopK] = *opts.TopK
	}
	if len(opts.StopSequences) > 0 {
		out[ratatoskr.ParamStopSequences] = opts.StopSequences
	}
	if opts.FrequencyPenalty != nil {
		out[ratatoskr.ParamFrequencyPenalty] = *opts.FrequencyPenalty
	}
	if opts.PresencePenalty != nil {
		out[ratatoskr.ParamPresencePenalty] = *opts.PresencePenalty
	}
	if opts.Seed != nil {
		out[ratatoskr.ParamSeed] = *opts.Seed
	}
	if opts.ToolChoice != nil {
		out[ratatoskr.ParamToolChoice] = *opts.ToolChoice
	}
	if opts.ResponseFormat != nil {
		out[ratatoskr.ParamResponseFormat] = *opts.ResponseFormat
	}
	if opts.Reasoning != nil {
		out[ratatoskr.ParamReasoning] = *opts.Reasoning
	}
	if opts.ParallelToolCalls != nil {
		out[ratatoskr.ParamParallelToolCalls] = *opts.ParallelToolCalls
	}
	if opts.CachePrompt != nil {
		out[ratatoskr.ParamCachePrompt] = *opts.CachePrompt
	}
	return out
}

// GenerateParameters extracts the explicitly-set parameters from opts, the
// single-prompt counterpart to [ChatParameters].
func GenerateParameters(opts ratatoskr.GenerateOptions) map[ratatoskr.ParameterName]any {
	out := make(map[ratatoskr.ParameterName]any, 6)
	if opts.Temperature != nil {
		out[ratatoskr.ParamTemperature] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		out[ratatoskr.ParamMaxTokens] = *opts.MaxTokens
	}
	if opts.TopP != nil {
		out[ratatoskr.ParamTopP] = *opts.TopP
	}
	if opts.TopK != nil {
		out[ratatoskr.ParamTopK] = *opts.TopK
	}
	if len(opts.StopSequences) > 0 {
		out[ratatoskr.ParamStopSequences] = opts.StopSequences
	}
	if opts.FrequencyPenalty != nil {
		out[ratatoskr.ParamFrequencyPenalty] = *opts.FrequencyPenalty
	}
	if opts.PresencePenalty != nil {
		out[ratatoskr.ParamPresencePenalty] = *opts.PresencePenalty
	}
	if opts.Seed != nil {
		out[ratatoskr.ParamSeed] = *opts.Seed
	}
	if opts.ResponseFormat != nil {
		out[ratatoskr.ParamResponseFormat] = *opts.ResponseFormat
	}
	if opts.Reasoning != nil {
		out[ratatoskr.ParamReasoning] = *opts.Reasoning
	}
	return out
}
