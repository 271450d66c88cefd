package services

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Per-message overhead covers the role and separator tokens the chat format
// adds around each message.
const tokensPerMessage = 4

var (
	encodingMu    sync.Mutex
	encodingCache = make(map[string]*tiktoken.Tiktoken)
)

func encodingFor(model string) *tiktoken.Tiktoken {
	encodingMu.Lock()
	defer encodingMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encodingCache[model] = nil
			return nil
		}
	}
	encodingCache[model] = enc
	return enc
}

// EstimateTokens predicts the prompt token count for a message list using
// the tokenizer for the given model, falling back to cl100k_base for
// unknown models. When no tokenizer can be loaded at all (offline BPE data)
// it degrades to the 4-characters-per-token approximation so guardrail
// checks still run.
func EstimateTokens(model string, messages []Message) int {
	enc := encodingFor(model)
	total := 0
	for _, m := range messages {
		if enc != nil {
			total += len(enc.Encode(m.Content, nil, nil))
		} else {
			total += len(m.Content) / 4
		}
		total += tokensPerMessage
	}
	return total
}
