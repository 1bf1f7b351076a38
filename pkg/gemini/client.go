package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
	"google.golang.org/genai"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/log"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// Client is an ai.Backend on top of the Gemini API
type Client struct {
	logger *log.Logger
	client *genai.Client
	model  string
}

// Options configures the Gemini client
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// New creates a new Gemini backend
func New(ctx context.Context, logger *log.Logger, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{
		logger: logger,
		client: client,
		model:  opts.Model,
	}, nil
}

// Name returns the backend name
func (c *Client) Name() string {
	return "gemini/" + c.model
}

// Generate sends one request to generateContent
func (c *Client) Generate(ctx context.Context, req ai.Request, cfg ai.Config) (*ai.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      ptr(cfg.Temperature),
		TopP:             ptr(cfg.TopP),
		TopK:             ptr(cfg.TopK),
		MaxOutputTokens:  cfg.MaxOutputTokens,
		ResponseMIMEType: cfg.ResponseMIMEType,
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if req.Tool != nil {
		config.Tools = []*genai.Tool{{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  convertSchema(req.Tool.Parameters),
			}},
		}}
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, h := range req.History {
		contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: h}}})
	}
	contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}})

	c.logger.Debug("Sending %d content turns to %s", len(contents), c.model)

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}

	out := &ai.Response{Text: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		out.FunctionCalls = append(out.FunctionCalls, ai.FunctionCall{Name: fc.Name, Args: fc.Args})
	}
	return out, nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Code: apiErr.Code, Err: fmt.Errorf("gemini: %w", err)}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &ai.StatusError{Code: apiErrPtr.Code, Err: fmt.Errorf("gemini: %w", err)}
	}
	return fmt.Errorf("gemini: %w", err)
}

var schemaTypes = map[string]genai.Type{
	"string":  genai.TypeString,
	"number":  genai.TypeNumber,
	"integer": genai.TypeInteger,
	"boolean": genai.TypeBoolean,
	"array":   genai.TypeArray,
	"object":  genai.TypeObject,
}

// convertSchema maps a reflected JSON schema onto the Gemini schema subset
func convertSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
	}
	if s.Items != nil {
		out.Items = convertSchema(s.Items)
	}
	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]*genai.Schema, s.Properties.Len())
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = convertSchema(pair.Value)
			out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
