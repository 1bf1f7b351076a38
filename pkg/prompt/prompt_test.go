package prompt

import (
	"strings"
	"testing"
)

func TestAssemble(t *testing.T) {
	files := "src/index.ts\nconst x=1;\n\n"

	tests := []struct {
		name       string
		task       Task
		wantPrefix string
	}{
		{
			name:       "context",
			task:       Context,
			wantPrefix: "These are the contents of the files in the repository\n\n",
		},
		{
			name:       "documentation names the repository",
			task:       Documentation,
			wantPrefix: "Generate documentation for the repository acme/widgets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assemble(tt.task, "acme/widgets", files)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Assemble() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if !strings.HasSuffix(got, files) {
				t.Errorf("Assemble() must end with the file contents, got %q", got)
			}
		})
	}
}

func TestInstructionsMentionTarget(t *testing.T) {
	checks := map[string]string{
		ReadmeInstruction("widgets"):            "widgets",
		ReadmePullRequestInstruction("widgets"): "raw JSON object",
		CommentReviewInstruction("a.go", "B"):   "a.go",
		CheckCommentsInstruction("a.go"):        "comments are accurate",
		WellDocumentedInstruction("a.go"):       "well documented",
	}
	for got, want := range checks {
		if !strings.Contains(got, want) {
			t.Errorf("instruction %q does not contain %q", got, want)
		}
	}
	if !strings.HasSuffix(CommentReviewInstruction("a.go", "BODY"), "BODY") {
		t.Error("comment review instruction must end with the file body")
	}
}
