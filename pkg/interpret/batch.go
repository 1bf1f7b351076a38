package interpret

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saint0x/ghscribe/pkg/ai"
)

const (
	noChangeContent = "none"
	noChangePrefix  = "No changes needed."
	noContentPrefix = "No generated content for:"
)

// Batch accumulates per-file review results. A file that fails to parse is
// recorded and never stops the rest of the batch.
type Batch struct {
	Outputs       []ai.FileChange `json:"outputs"`
	FailedOutputs []string        `json:"failedOutputs"`
	Unchanged     []string        `json:"unchanged"`
}

// Add interprets the response generated for path
func (b *Batch) Add(path string, resp *ai.Response) {
	obj, raw, outcome := parseFileObject(resp)
	switch outcome {
	case replyEmpty:
		b.FailedOutputs = append(b.FailedOutputs, noContentPrefix+path)
		return
	case replyNone:
		b.Unchanged = append(b.Unchanged, path)
		return
	case replyUnparsed:
		b.FailedOutputs = append(b.FailedOutputs, path+"\n\n"+raw)
		return
	}

	content := StripFences(obj.FileContent)
	if content == "" || content == noChangeContent || strings.HasPrefix(obj.Explain, noChangePrefix) {
		b.Unchanged = append(b.Unchanged, path)
		return
	}
	b.Outputs = append(b.Outputs, ai.FileChange{
		FilePath:    path,
		FileContent: content,
		Explain:     obj.Explain,
	})
}

type reply int

const (
	replyParsed reply = iota
	replyEmpty
	replyNone
	replyUnparsed
)

// parseFileObject decodes the payload from a function call or from the
// text. When nothing parses the raw text is returned.
func parseFileObject(resp *ai.Response) (ai.FileObject, string, reply) {
	var obj ai.FileObject
	if resp == nil {
		return obj, "", replyEmpty
	}

	for _, call := range resp.FunctionCalls {
		if call.Name == ai.ParseFileObject && call.Args != nil {
			if err := decodeArgs(call.Args, &obj); err == nil {
				return obj, "", replyParsed
			}
		}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return obj, "", replyEmpty
	}
	cleaned := StripFences(text)
	if cleaned == noChangeContent {
		return obj, "", replyNone
	}

	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj, "", replyParsed
	}
	// literal newlines inside JSON strings are invalid
	flat := strings.ReplaceAll(strings.ReplaceAll(cleaned, "\r", ""), "\n", "")
	if err := json.Unmarshal([]byte(flat), &obj); err == nil {
		return obj, "", replyParsed
	}
	return obj, resp.Text, replyUnparsed
}

// Fail records a file whose generation call itself failed
func (b *Batch) Fail(path string, err error) {
	b.FailedOutputs = append(b.FailedOutputs, fmt.Sprintf("Error processing file %s: %v", path, err))
}
