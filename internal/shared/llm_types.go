// Package shared holds the small types passed between the AI backends, the
// HTTP server and the metrics store.
package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// CallMeta describes one finished operation, either an outgoing API request
// or a model call made while serving one.
type CallMeta struct {
	Operation  string
	StatusCode int
	Usage      TokenUsage
	Latency    time.Duration
}
