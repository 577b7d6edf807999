// Package llm wraps the model backends used by the reference server: Groq
// for recipe text and Gemini for photo food detection.
package llm

import (
	"context"

	"smart-pantry/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// VisionGenerator generates text from a prompt and a single image. format is
// the image subtype, e.g. "jpeg".
type VisionGenerator interface {
	DescribeImage(ctx context.Context, prompt string, image []byte, format string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
