package ai

import (
	"sync"

	"github.com/invopop/jsonschema"
)

// Tool names the interpreter recognizes
const (
	SubmitPullRequest = "submit_pull_request"
	ParseFileObject   = "parse_file_object"
)

// PullRequestArgs is the action payload of submit_pull_request
type PullRequestArgs struct {
	FilePath         string `json:"filePath" jsonschema:"required" jsonschema_description:"path of the file with file name such as README.md"`
	CommitMessage    string `json:"commitMessage" jsonschema:"required" jsonschema_description:"commit message of the change"`
	BranchName       string `json:"branchName" jsonschema:"required" jsonschema_description:"branch name created for the pull request"`
	PullRequestTitle string `json:"pullRequestTitle" jsonschema:"required" jsonschema_description:"The title of the pull request."`
	PullRequestBody  string `json:"pullRequestBody" jsonschema:"required" jsonschema_description:"The body of the pull request."`
	FileContent      string `json:"fileContent" jsonschema:"required" jsonschema_description:"The content of the file."`
}

// FileObject is the per-file rewrite payload of parse_file_object
type FileObject struct {
	FileContent string `json:"fileContent" jsonschema:"required" jsonschema_description:"The full updated content of the file or none when no change is needed."`
	Explain     string `json:"explain" jsonschema:"required" jsonschema_description:"Short explanation of the changes. Starts with 'No changes needed.' when the file is unchanged."`
}

var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	DoNotReference:             true,
	AllowAdditionalProperties:  false,
}

var (
	toolsOnce        sync.Once
	submitPRTool     *Tool
	parseFileObjTool *Tool
)

func buildTools() {
	submitPRTool = &Tool{
		Name:        SubmitPullRequest,
		Description: "Submit a pull request to the repository.",
		Parameters:  reflector.Reflect(&PullRequestArgs{}),
	}
	parseFileObjTool = &Tool{
		Name:        ParseFileObject,
		Description: "Return the documented version of a file with an explanation of the changes.",
		Parameters:  reflector.Reflect(&FileObject{}),
	}
}

// SubmitPullRequestTool declares submit_pull_request
func SubmitPullRequestTool() *Tool {
	toolsOnce.Do(buildTools)
	return submitPRTool
}

// ParseFileObjectTool declares parse_file_object
func ParseFileObjectTool() *Tool {
	toolsOnce.Do(buildTools)
	return parseFileObjTool
}

// FileChange is one file written by a pull request
type FileChange struct {
	FilePath    string `json:"filePath"`
	FileContent string `json:"fileContent"`
	Explain     string `json:"explain,omitempty"`
}
