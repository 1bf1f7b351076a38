package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/cache"
	"github.com/saint0x/ghscribe/pkg/github"
	"github.com/saint0x/ghscribe/pkg/interpret"
	"github.com/saint0x/ghscribe/pkg/metrics"
	"github.com/saint0x/ghscribe/pkg/prompt"
	"github.com/saint0x/ghscribe/pkg/pullrequest"
)

const (
	errorGeneratingContent = "Error generating content"
	noOutputGenerated      = "No output generated."
)

// Outcome is what a use case hands back to the caller. Warnings are
// non-fatal and may accompany any output.
type Outcome struct {
	Output      string              `json:"output"`
	Warnings    string              `json:"warnings,omitempty"`
	Cached      bool                `json:"cached"`
	PullRequest *pullrequest.Result `json:"pullRequest,omitempty"`
}

// ReadmeOptions controls GenerateREADME
type ReadmeOptions struct {
	Temperature     float32
	AutoPullRequest bool
}

// CommentOptions controls GenerateCommentsAndSendPullRequest
type CommentOptions struct {
	Temperature     float32
	AutoPullRequest bool
}

// repoContents returns the cached file contents or fetches every result
func (s *Session) repoContents(ctx context.Context, ep *episode) (string, error) {
	if v, ok := ep.cache.Get(cache.RepoFileContents); ok {
		metrics.CacheLookup(cache.RepoFileContents.String(), true)
		s.logger.Cache("Using cached file contents for %s", ep.repository())
		return v, nil
	}
	metrics.CacheLookup(cache.RepoFileContents.String(), false)

	s.logger.Step("Fetching %d files from %s", len(ep.results), ep.repository())
	res := s.fetcher.Fetch(ctx, ep.results)
	metrics.FetchedFiles(len(res.FileContentMap), len(res.Failed))
	if res.Errmsg != "" {
		return "", &FetchError{Paths: res.Failed}
	}

	ep.cache.Set(cache.RepoFileContents, res.FileContents)
	ep.cache.MergeFiles(res.FileContentMap)
	return res.FileContents, nil
}

// finalPrompt returns the cached prompt or assembles one for task
func (s *Session) finalPrompt(ep *episode, task prompt.Task, fileContents string) string {
	if v, ok := ep.cache.Get(cache.FinalPrompt); ok {
		metrics.CacheLookup(cache.FinalPrompt.String(), true)
		return v
	}
	metrics.CacheLookup(cache.FinalPrompt.String(), false)

	p := prompt.Assemble(task, ep.repository(), fileContents)
	ep.cache.Set(cache.FinalPrompt, p)
	return p
}

// cachedOutput returns previously generated content for the episode
func (s *Session) cachedOutput(ep *episode) (*Outcome, bool) {
	v, ok := ep.cache.Get(cache.GeneratedContent)
	metrics.CacheLookup(cache.GeneratedContent.String(), ok)
	if !ok {
		return nil, false
	}
	s.logger.Cache("Using cached generated content for %s", ep.repository())
	s.publish(ep, v, false)
	return &Outcome{Output: v, Warnings: ep.warnings, Cached: true}, true
}

// prepare runs the shared fetch and prompt steps
func (s *Session) prepare(ctx context.Context, ep *episode, task prompt.Task) (string, error) {
	fileContents, err := s.repoContents(ctx, ep)
	if err != nil {
		return "", err
	}
	return s.finalPrompt(ep, task, fileContents), nil
}

// GenerateREADME writes a README for the selected repository. With
// AutoPullRequest the model is asked for a submit_pull_request payload and
// the README is proposed as a pull request.
func (s *Session) GenerateREADME(ctx context.Context, opts ReadmeOptions) (*Outcome, error) {
	return s.run("readme", false, func(ep *episode) (*Outcome, error) {
		finalPrompt, err := s.prepare(ctx, ep, prompt.Context)
		if err != nil {
			return nil, err
		}
		if out, ok := s.cachedOutput(ep); ok {
			return out, nil
		}

		if !opts.AutoPullRequest {
			s.logger.Generate("Generating README for %s", ep.repository())
			resp, err := s.generate(ctx, ai.Request{
				Prompt:            finalPrompt,
				SystemInstruction: prompt.ReadmeInstruction(ep.repository()),
				Temperature:       opts.Temperature,
			})
			if err != nil {
				return nil, err
			}
			s.publish(ep, resp.Text, true)
			return &Outcome{Output: resp.Text, Warnings: ep.warnings}, nil
		}

		s.logger.Generate("Generating README pull request for %s", ep.repository())
		resp, err := s.generate(ctx, ai.Request{
			// a stray fence in the prompt tends to make the model answer in a fence
			Prompt:            strings.Replace(finalPrompt, "```", "", 1),
			SystemInstruction: prompt.ReadmePullRequestInstruction(ep.repository()),
			Tool:              ai.SubmitPullRequestTool(),
			Temperature:       opts.Temperature,
		})
		if err != nil {
			return nil, err
		}

		result := interpret.Interpret(resp, ai.SubmitPullRequest)
		metrics.Generation(result.Kind.String())
		out := &Outcome{Warnings: ep.warnings}

		switch result.Kind {
		case interpret.StructuredCall, interpret.EmbeddedJSON:
			pr := s.submit(ctx, ep, []ai.FileChange{{
				FilePath:    result.Args.FilePath,
				FileContent: result.Args.FileContent,
			}}, pullrequest.Metadata{
				CommitMessage: result.Args.CommitMessage,
				BranchName:    result.Args.BranchName,
				Title:         result.Args.PullRequestTitle,
				Body:          result.Args.PullRequestBody,
			})
			metrics.PullRequest(pr.Result)
			body := result.Text
			if strings.TrimSpace(body) == "" {
				body = result.Args.FileContent
			}
			out.Output = pr.Result + "\n" + body
			out.Warnings += pr.Errmsg
			out.PullRequest = &pr
		case interpret.PlainText:
			s.logger.Warning("Model answered without a pull request payload")
			out.Output = result.Text
		}

		s.publish(ep, out.Output, true)
		return out, nil
	})
}

// GenerateDocumentation writes how-to and reference documentation for the
// selected repository
func (s *Session) GenerateDocumentation(ctx context.Context, temperature float32) (*Outcome, error) {
	return s.run("documentation", false, func(ep *episode) (*Outcome, error) {
		finalPrompt, err := s.prepare(ctx, ep, prompt.Documentation)
		if err != nil {
			return nil, err
		}
		if out, ok := s.cachedOutput(ep); ok {
			return out, nil
		}

		s.logger.Generate("Generating documentation for %s", ep.repository())
		return s.plain(ctx, ep, ai.Request{Prompt: finalPrompt, Temperature: temperature})
	})
}

// CheckComments asks the model to verify the comments of one file
func (s *Session) CheckComments(ctx context.Context, path string, temperature float32) (*Outcome, error) {
	return s.singleFile(ctx, "check_comments", path, prompt.CheckCommentsInstruction(path), temperature)
}

// WellDocumented asks the model to document one file
func (s *Session) WellDocumented(ctx context.Context, path string, temperature float32) (*Outcome, error) {
	return s.singleFile(ctx, "well_documented", path, prompt.WellDocumentedInstruction(path), temperature)
}

func (s *Session) singleFile(ctx context.Context, name, path, instruction string, temperature float32) (*Outcome, error) {
	return s.run(name, false, func(ep *episode) (*Outcome, error) {
		if path == "" {
			return nil, ErrNoSelection
		}
		finalPrompt, err := s.prepare(ctx, ep, prompt.Context)
		if err != nil {
			return nil, err
		}
		if out, ok := s.cachedOutput(ep); ok {
			return out, nil
		}

		s.logger.Generate("Reviewing %s", path)
		return s.plain(ctx, ep, ai.Request{
			Prompt:            finalPrompt,
			SystemInstruction: instruction,
			Temperature:       temperature,
		})
	})
}

// SendCustomPrompt runs the user's own instruction over the repository
func (s *Session) SendCustomPrompt(ctx context.Context, customPrompt string, temperature float32) (*Outcome, error) {
	return s.run("custom", false, func(ep *episode) (*Outcome, error) {
		if strings.TrimSpace(customPrompt) == "" {
			return nil, ErrEmptyPrompt
		}
		finalPrompt, err := s.prepare(ctx, ep, prompt.Context)
		if err != nil {
			return nil, err
		}
		if out, ok := s.cachedOutput(ep); ok {
			return out, nil
		}

		s.logger.Generate("Sending custom prompt for %s", ep.repository())
		return s.plain(ctx, ep, ai.Request{
			Prompt:            finalPrompt,
			SystemInstruction: customPrompt,
			Temperature:       temperature,
		})
	})
}

// plain generates free text. An empty answer is shown as an error message
// and is not cached.
func (s *Session) plain(ctx context.Context, ep *episode, req ai.Request) (*Outcome, error) {
	resp, err := s.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		metrics.Generation(interpret.Empty.String())
		s.publish(ep, errorGeneratingContent, false)
		return &Outcome{Output: errorGeneratingContent, Warnings: ep.warnings}, nil
	}
	metrics.Generation(interpret.PlainText.String())
	s.publish(ep, resp.Text, true)
	return &Outcome{Output: resp.Text, Warnings: ep.warnings}, nil
}

// GenerateCommentsAndSendPullRequest reviews every selected file one at a
// time and, with AutoPullRequest, proposes all rewritten files in a single
// pull request. A file that fails is listed and never stops the batch.
func (s *Session) GenerateCommentsAndSendPullRequest(ctx context.Context, opts CommentOptions) (*Outcome, error) {
	return s.run("comments", true, func(ep *episode) (*Outcome, error) {
		finalPrompt, err := s.prepare(ctx, ep, prompt.Context)
		if err != nil {
			return nil, err
		}

		var batch interpret.Batch
		for _, item := range ep.selection {
			body, err := s.fileBody(ctx, ep, item)
			if err != nil {
				batch.Fail(item.Path, err)
				continue
			}

			s.logger.Generate("Processing %s", item.Path)
			resp, err := s.generate(ctx, ai.Request{
				Prompt:            finalPrompt,
				SystemInstruction: prompt.CommentReviewInstruction(item.Path, body),
				Tool:              ai.ParseFileObjectTool(),
				Temperature:       opts.Temperature,
			})
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				s.logger.Error("Error processing file %s: %v", item.Path, err)
				batch.Fail(item.Path, err)
				continue
			}
			batch.Add(item.Path, resp)
		}

		out := &Outcome{Warnings: ep.warnings}
		if len(batch.Outputs) == 0 {
			if len(batch.FailedOutputs) > 0 {
				out.Warnings += skippedWarning(len(batch.FailedOutputs))
			}
			out.Output = noOutputGenerated
			s.publish(ep, out.Output, false)
			return out, nil
		}

		changes, err := json.MarshalIndent(batch.Outputs, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode generated comments: %w", err)
		}

		if !opts.AutoPullRequest {
			out.Output = string(changes)
			if len(batch.FailedOutputs) > 0 {
				out.Warnings += skippedWarning(len(batch.FailedOutputs))
			}
			s.publish(ep, out.Output, true)
			return out, nil
		}

		pr := s.submit(ctx, ep, batch.Outputs, pullrequest.Metadata{
			CommitMessage: "Generated comments",
			BranchName:    "generated-comments",
			Title:         "Generated comments",
			Body:          commentsBody(batch.Outputs),
		})
		metrics.PullRequest(pr.Result)
		out.PullRequest = &pr

		out.Output = fmt.Sprintf("Pull request result: %s\n\nGenerated comments:\n%s", pr.Result, changes)
		if len(batch.FailedOutputs) > 0 {
			out.Output += "\n\nFailed outputs:\n" + strings.Join(batch.FailedOutputs, "\n\n")
			out.Warnings += skippedWarning(len(batch.FailedOutputs))
		}
		out.Warnings += pr.Errmsg

		s.publish(ep, out.Output, true)
		return out, nil
	})
}

// fileBody returns the cached body of one result, fetching it when the
// cached contents predate it
func (s *Session) fileBody(ctx context.Context, ep *episode, item github.SearchResult) (string, error) {
	if body, ok := ep.cache.File(item.Path); ok {
		return body, nil
	}
	body, err := s.gh.GetFileContent(ctx, item.OwnerLogin, item.Repo(), item.Path)
	if err != nil {
		return "", err
	}
	ep.cache.MergeFiles(map[string]string{item.Path: body})
	return body, nil
}

func skippedWarning(n int) string {
	return fmt.Sprintf("There are %d files that are skipped by the ai. The content will still be listed in the output.", n)
}

func commentsBody(changes []ai.FileChange) string {
	entries := make([]string, 0, len(changes))
	for _, c := range changes {
		entries = append(entries, c.FilePath+"\n"+c.Explain)
	}
	return "These are the generated comments from github search saas. The following files were updated:\n\n" +
		strings.Join(entries, "\n\n")
}

// run wraps a use case with the re-entry gate, precondition checks,
// logging and metrics
func (s *Session) run(name string, needSelection bool, fn func(ep *episode) (*Outcome, error)) (*Outcome, error) {
	ep, release, err := s.begin(needSelection)
	if err != nil {
		metrics.UseCase(name, "rejected")
		s.logger.Warning("%s: %v", name, err)
		return nil, err
	}
	defer release()

	out, err := fn(ep)
	if IsPrecondition(err) {
		metrics.UseCase(name, "rejected")
		s.logger.Warning("%s: %v", name, err)
		return nil, err
	}
	if err != nil {
		metrics.UseCase(name, "error")
		s.logger.Error("%s failed: %v", name, err)
		return nil, err
	}

	outcome := "ok"
	if out.Cached {
		outcome = "cached"
	}
	metrics.UseCase(name, outcome)
	if out.Warnings != "" {
		s.logger.Warning("%s finished with warnings:\n%s", name, out.Warnings)
	}
	return out, nil
}
