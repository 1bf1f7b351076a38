package interpret

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/saint0x/ghscribe/pkg/ai"
)

// Kind tags how a response was understood
type Kind int

const (
	// Empty means the response carried neither text nor a call
	Empty Kind = iota
	// StructuredCall means the backend returned a function call
	StructuredCall
	// EmbeddedJSON means the call arguments were found in the text
	EmbeddedJSON
	// PlainText means the text is not actionable
	PlainText
)

func (k Kind) String() string {
	switch k {
	case StructuredCall:
		return "structured call"
	case EmbeddedJSON:
		return "embedded json"
	case PlainText:
		return "plain text"
	default:
		return "empty"
	}
}

// Result is the normalized form of a generation response
type Result struct {
	Kind Kind
	Args ai.PullRequestArgs
	Text string
}

// Actionable reports whether the result carries a pull request payload
func (r Result) Actionable() bool {
	return r.Kind == StructuredCall || r.Kind == EmbeddedJSON
}

var (
	openingFence = regexp.MustCompile("^```[\\w]*\\s*")
	closingFence = regexp.MustCompile("```$")
	jsonFences   = regexp.MustCompile("```json|```$")
)

// StripFences removes one outer markdown code fence, language tag optional
func StripFences(s string) string {
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Interpret normalizes resp into a Result. A call to toolName wins over
// text; text is parsed as raw JSON, then with fences removed, and is
// otherwise kept as plain text.
func Interpret(resp *ai.Response, toolName string) Result {
	if resp == nil {
		return Result{Kind: Empty}
	}

	for _, call := range resp.FunctionCalls {
		if call.Name != toolName || call.Args == nil {
			continue
		}
		var args ai.PullRequestArgs
		if err := decodeArgs(call.Args, &args); err != nil {
			continue
		}
		args.FileContent = StripFences(args.FileContent)
		return Result{Kind: StructuredCall, Args: args, Text: resp.Text}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{Kind: Empty}
	}

	if args, ok := parseArgs(text); ok {
		return Result{Kind: EmbeddedJSON, Args: args, Text: resp.Text}
	}
	if args, ok := parseArgs(strings.TrimSpace(jsonFences.ReplaceAllString(text, ""))); ok {
		return Result{Kind: EmbeddedJSON, Args: args, Text: resp.Text}
	}
	if args, ok := parseArgs(StripFences(text)); ok {
		return Result{Kind: EmbeddedJSON, Args: args, Text: resp.Text}
	}

	return Result{Kind: PlainText, Text: resp.Text}
}

func parseArgs(text string) (ai.PullRequestArgs, bool) {
	var args ai.PullRequestArgs
	if !strings.HasPrefix(text, "{") {
		return args, false
	}
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return args, false
	}
	args.FileContent = StripFences(args.FileContent)
	return args, true
}

// decodeArgs converts loosely typed call arguments into a payload struct
func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal call arguments: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode call arguments: %w", err)
	}
	return nil
}
