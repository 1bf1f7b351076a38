package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/saint0x/ghscribe/pkg/generate"
	"github.com/saint0x/ghscribe/pkg/github"
	"github.com/saint0x/ghscribe/pkg/server"
)

func pidFile() string {
	return filepath.Join(server.ConfigDir(), "ghscribe.pid")
}

func startCommand(ctx context.Context, cmd *cli.Command) error {
	logger, env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	if err := env.Validate(logger); err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}

	if _, err := os.Stat(pidFile()); err == nil {
		return fmt.Errorf("server is already running")
	}
	if err := os.MkdirAll(server.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(pidFile(), []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to save PID: %w", err)
	}
	defer os.Remove(pidFile())

	port := cmd.String("port")
	if port == "" {
		port = env.Port
	}

	srv, err := server.New(logger, port, server.NewSessionFactory(logger, env))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

func stopCommand(ctx context.Context, cmd *cli.Command) error {
	logger, _, err := setup(ctx, cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(pidFile())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no server running")
		}
		return err
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return fmt.Errorf("invalid PID file")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return err
	}

	os.Remove(pidFile())
	logger.Success("Server stopped")
	return nil
}

func checkCommand(ctx context.Context, cmd *cli.Command) error {
	logger, env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}

	port, err := server.ReadPort()
	if err != nil {
		port = env.Port
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + strings.TrimSpace(port) + "/health")
	if err != nil {
		return fmt.Errorf("server is not running: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned non-OK status: %d", resp.StatusCode)
	}

	logger.Success("Server is running on port %s", port)
	return nil
}

// prepareSession selects the repository and runs the search that defines
// the result set for a one-shot command
func prepareSession(ctx context.Context, cmd *cli.Command) (*generate.Session, error) {
	logger, env, err := setup(ctx, cmd)
	if err != nil {
		return nil, err
	}

	owner, repo, err := github.ParseRepo(cmd.String("repo"))
	if err != nil {
		return nil, err
	}

	factory := server.NewSessionFactory(logger, env)
	session, err := factory(ctx, server.Credentials{
		GitHubToken:   cmd.String("token"),
		GenerationKey: cmd.String("api-key"),
	})
	if err != nil {
		return nil, err
	}

	session.SelectRepository(owner, repo)
	results, err := session.Search(ctx, cmd.String("query"), int(cmd.Int("max-results")))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, generate.ErrNoResults
	}
	return session, nil
}

func reposCommand(ctx context.Context, cmd *cli.Command) error {
	logger, env, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	token, err := env.ResolveGitHubToken(cmd.String("token"))
	if err != nil {
		return err
	}
	gh, err := github.New(logger, token, github.WithRateLimit(env.GitHubRateLimit))
	if err != nil {
		return fmt.Errorf("failed to create github client: %w", err)
	}

	names, err := gh.SearchRepositories(ctx, cmd.String("user"))
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func searchCommand(ctx context.Context, cmd *cli.Command) error {
	session, err := prepareSession(ctx, cmd)
	if err != nil {
		return err
	}
	for _, r := range session.Results() {
		fmt.Printf("%s\t%s\n", r.Path, r.HTMLURL)
	}
	return nil
}

func temperature(cmd *cli.Command) float32 {
	return float32(cmd.Float("temperature"))
}

// finish prints the outcome and its warnings
func finish(cmd *cli.Command, out *generate.Outcome) error {
	if out.Warnings != "" {
		fmt.Fprintln(os.Stderr, strings.TrimRight(out.Warnings, "\n"))
	}
	return writeOutput(cmd, out.Output)
}

func runOneShot(run func(ctx context.Context, session *generate.Session) (*generate.Outcome, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		session, err := prepareSession(ctx, cmd)
		if err != nil {
			return err
		}
		out, err := run(ctx, session)
		if err != nil {
			return err
		}
		return finish(cmd, out)
	}
}

func readmeCommand(ctx context.Context, cmd *cli.Command) error {
	return runOneShot(func(ctx context.Context, session *generate.Session) (*generate.Outcome, error) {
		return session.GenerateREADME(ctx, generate.ReadmeOptions{
			Temperature:     temperature(cmd),
			AutoPullRequest: cmd.Bool("pr"),
		})
	})(ctx, cmd)
}

func docsCommand(ctx context.Context, cmd *cli.Command) error {
	return runOneShot(func(ctx context.Context, session *generate.Session) (*generate.Outcome, error) {
		return session.GenerateDocumentation(ctx, temperature(cmd))
	})(ctx, cmd)
}

func commentsCommand(ctx context.Context, cmd *cli.Command) error {
	return runOneShot(func(ctx context.Context, session *generate.Session) (*generate.Outcome, error) {
		paths := make([]string, 0)
		for _, r := range session.Results() {
			paths = append(paths, r.Path)
		}
		if err := session.Select(paths); err != nil {
			return nil, err
		}
		return session.GenerateCommentsAndSendPullRequest(ctx, generate.CommentOptions{
			Temperature:     temperature(cmd),
			AutoPullRequest: cmd.Bool("pr"),
		})
	})(ctx, cmd)
}

func checkCommentsCommand(ctx context.Context, cmd *cli.Command) error {
	return runOneShot(func(ctx context.Context, session *generate.Session) (*generate.Outcome, error) {
		return session.CheckComments(ctx, cmd.String("path"), temperature(cmd))
	})(ctx, cmd)
}

func wellDocumentedCommand(ctx context.Context, cmd *cli.Command) error {
	return runOneShot(func(ctx context.Context, session *generate.Session) (*generate.Outcome, error) {
		return session.WellDocumented(ctx, cmd.String("path"), temperature(cmd))
	})(ctx, cmd)
}

func customCommand(ctx context.Context, cmd *cli.Command) error {
	return runOneShot(func(ctx context.Context, session *generate.Session) (*generate.Outcome, error) {
		return session.SendCustomPrompt(ctx, cmd.String("prompt"), temperature(cmd))
	})(ctx, cmd)
}
