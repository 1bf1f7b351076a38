package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/log"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o"

// Client is an ai.Backend on top of the OpenAI chat completions API
type Client struct {
	logger *log.Logger
	client openai.Client
	model  string
}

// Options configures the OpenAI client
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// New creates a new OpenAI backend
func New(logger *log.Logger, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		// retries are handled by ai.Generator
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Client{
		logger: logger,
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
	}, nil
}

// Name returns the backend name
func (c *Client) Name() string {
	return "openai/" + c.model
}

// Generate sends one chat completion request
func (c *Client) Generate(ctx context.Context, req ai.Request, cfg ai.Config) (*ai.Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	for _, h := range req.History {
		messages = append(messages, openai.UserMessage(h))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	// top_k has no equivalent here
	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		Temperature:         openai.Float(float64(cfg.Temperature)),
		TopP:                openai.Float(float64(cfg.TopP)),
		MaxCompletionTokens: openai.Int(int64(cfg.MaxOutputTokens)),
	}
	if req.Tool != nil {
		tool, err := convertTool(req.Tool)
		if err != nil {
			return nil, err
		}
		params.Tools = []openai.ChatCompletionToolParam{tool}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices in response")
	}

	msg := resp.Choices[0].Message
	out := &ai.Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			c.logger.Warning("Discarding malformed arguments for %s: %v", tc.Function.Name, err)
			continue
		}
		out.FunctionCalls = append(out.FunctionCalls, ai.FunctionCall{Name: tc.Function.Name, Args: args})
	}

	c.logger.Debug("openai finish reason %s, %d completion tokens", resp.Choices[0].FinishReason, resp.Usage.CompletionTokens)
	return out, nil
}

func convertTool(t *ai.Tool) (openai.ChatCompletionToolParam, error) {
	var params shared.FunctionParameters
	if t.Parameters != nil {
		data, err := json.Marshal(t.Parameters)
		if err != nil {
			return openai.ChatCompletionToolParam{}, fmt.Errorf("failed to marshal tool schema: %w", err)
		}
		if err := json.Unmarshal(data, &params); err != nil {
			return openai.ChatCompletionToolParam{}, fmt.Errorf("failed to decode tool schema: %w", err)
		}
	}
	return openai.ChatCompletionToolParam{
		Function: shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		},
	}, nil
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &ai.StatusError{Code: apiErr.StatusCode, Err: fmt.Errorf("openai: %w", err)}
	}
	return fmt.Errorf("openai: %w", err)
}
