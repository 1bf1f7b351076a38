package prompt

import "fmt"

// Task selects the instruction template for a generation use case
type Task int

const (
	// Context is the shared "here are the files" prefix used by tasks that
	// carry their instruction in the system prompt instead.
	Context Task = iota
	Documentation
)

const contextPrefix = "These are the contents of the files in the repository\n\n"

const documentationPrefix = "Generate documentation for the repository %s with the following code. " +
	"For conciseness, you do not need to include the code directly in the documentation, you may chose to include the file path if required. " +
	"Write the documentation in a way that is easy to understand for a beginner. " +
	"The documentation should use markdown styling, do not wrap your entire output in markdown tags. " +
	"The documentation should be split into two sections: how-to guides and reference guides. " +
	"Try to be detailed for the reference guide. " +
	"Also include notes for anything the reader should look out for\n\n"

// Assemble builds the final prompt: the task prefix followed by fileContents
func Assemble(task Task, repository, fileContents string) string {
	switch task {
	case Documentation:
		return fmt.Sprintf(documentationPrefix, repository) + fileContents
	default:
		return contextPrefix + fileContents
	}
}

const apiAgentPreamble = "You are an API agent. Your response will be consumed directly by code and parsed as a JSON object. "

const readmeGuidance = "Write the README in a way that is easy to understand for a beginner.\n" +
	"Include a short description of what the repository contains, an overview of the code, architecture (if applicable) and how to set up and use it.\n" +
	"Also include brief notes that the reader should look out for when using the repository such as not commiting their env file."

// ReadmeInstruction is the system instruction for plain README generation
func ReadmeInstruction(repository string) string {
	return fmt.Sprintf("Generate a README for the code repository %s, only return the contents of the README.\n"+
		"Format the README using standard Markdown syntax for text styling. Avoid using code blocks unless displaying code.\n"+
		"You do not need to include the code directly in the README, you may chose to include the file path if required.\n",
		repository) + readmeGuidance
}

// ReadmePullRequestInstruction asks the model to answer with a
// submit_pull_request payload for a suggested README.
func ReadmePullRequestInstruction(repository string) string {
	return apiAgentPreamble +
		"Do not format your JSON output in markdown fence blocks. Do not include any explanations. " +
		"Do not use code fences like ```json. Just return a raw JSON object.\n" +
		fmt.Sprintf("Submit a pull request for a suggested README file for my code repository %s. ", repository) +
		"You do not need to include the code directly in the README, you may chose to include the file path if required.\n" +
		readmeGuidance
}

// CommentReviewInstruction asks for a documented rewrite of one file as a
// parse_file_object payload, or "none" when nothing needs to change.
func CommentReviewInstruction(path, body string) string {
	return apiAgentPreamble +
		"Just return a raw JSON object with the fields fileContent and explain. " +
		fmt.Sprintf("Help me make sure that the code %s is well documented. ", path) +
		"If no change is needed set fileContent to \"none\" and start explain with \"No changes needed.\"\n\n" +
		body
}

// CheckCommentsInstruction asks the model to verify the comments of one file
func CheckCommentsInstruction(path string) string {
	return fmt.Sprintf("Help me check the comments written for the code %s and make sure they are accurate. "+
		"Give me the full updated file only if comments in the file needs changes. "+
		"Otherwise just let me know that the comments are accurate.", path)
}

// WellDocumentedInstruction asks the model to document one file
func WellDocumentedInstruction(path string) string {
	return fmt.Sprintf("Help me make sure that the code %s is well documented. "+
		"Give me the full updated file only if comments in the file needs changes.", path)
}
