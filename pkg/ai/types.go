package ai

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Config is the generation parameter surface shared by every backend
type Config struct {
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"topP"`
	TopK             float32 `json:"topK"`
	MaxOutputTokens  int32   `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

// DefaultConfig returns the defaults overrides are merged over
func DefaultConfig() Config {
	return Config{
		Temperature:      1,
		TopP:             0.95,
		TopK:             40,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "text/plain",
	}
}

// Overrides replaces individual defaults; nil/zero fields keep the default
type Overrides struct {
	TopP             *float32
	TopK             *float32
	MaxOutputTokens  int32
	ResponseMIMEType string
}

// Merge applies o over c
func (c Config) Merge(o Overrides) Config {
	if o.TopP != nil {
		c.TopP = *o.TopP
	}
	if o.TopK != nil {
		c.TopK = *o.TopK
	}
	if o.MaxOutputTokens > 0 {
		c.MaxOutputTokens = o.MaxOutputTokens
	}
	if o.ResponseMIMEType != "" {
		c.ResponseMIMEType = o.ResponseMIMEType
	}
	return c
}

// Tool is a single function declaration offered to the model
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// Request is one generation call. Temperature is always explicit.
type Request struct {
	Prompt            string
	SystemInstruction string
	History           []string
	Tool              *Tool
	Temperature       float32
	Overrides         Overrides
}

// FunctionCall is a structured tool invocation returned by the model
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Response holds free text, structured calls, or both
type Response struct {
	Text          string         `json:"text,omitempty"`
	FunctionCalls []FunctionCall `json:"functionCalls,omitempty"`
}

// Backend is a content generation service
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request, cfg Config) (*Response, error)
}

// StatusError carries the HTTP status of a failed backend call
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
