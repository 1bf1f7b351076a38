package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/saint0x/ghscribe/pkg/config"
	"github.com/saint0x/ghscribe/pkg/log"
)

var version = "development"

var (
	repoFlag = &cli.StringFlag{
		Name:     "repo",
		Aliases:  []string{"r"},
		Usage:    "repository as owner/repo or a GitHub URL",
		Required: true,
		Sources:  cli.EnvVars("GHSCRIBE_REPO"),
	}
	queryFlag = &cli.StringFlag{
		Name:     "query",
		Aliases:  []string{"q"},
		Usage:    "code search query selecting the files to send",
		Required: true,
	}
	maxResultsFlag = &cli.IntFlag{
		Name:  "max-results",
		Usage: "stop after this many search results, 0 for all",
		Value: 0,
	}
	temperatureFlag = &cli.FloatFlag{
		Name:  "temperature",
		Usage: "model temperature between 0 and 1",
		Value: 1,
	}
	tokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "GitHub token overriding GITHUB_TOKEN",
	}
	keyFlag = &cli.StringFlag{
		Name:  "api-key",
		Usage: "generation API key overriding the environment",
	}
	outFlag = &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "write the output to a file instead of stdout",
	}
	autoPRFlag = &cli.BoolFlag{
		Name:  "pr",
		Usage: "open a pull request with the result",
	}
	pathFlag = &cli.StringFlag{
		Name:     "path",
		Usage:    "file to review",
		Required: true,
	}
)

func oneShotFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{repoFlag, queryFlag, maxResultsFlag, temperatureFlag, tokenFlag, keyFlag, outFlag}, extra...)
}

func main() {
	cmd := &cli.Command{
		Name:    "ghscribe",
		Version: version,
		Usage:   "Generate READMEs, documentation and code comments for GitHub repositories",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Usage:   "port to listen on",
						Sources: cli.EnvVars("PORT"),
					},
				},
				Action: startCommand,
			},
			{
				Name:   "stop",
				Usage:  "Stop the running server",
				Action: stopCommand,
			},
			{
				Name:   "check",
				Usage:  "Check whether the server is running",
				Action: checkCommand,
			},
			{
				Name:  "repos",
				Usage: "List the repositories owned by a user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "GitHub user or organization",
						Required: true,
					},
					tokenFlag,
				},
				Action: reposCommand,
			},
			{
				Name:   "search",
				Usage:  "List files matching a code search in a repository",
				Flags:  []cli.Flag{repoFlag, queryFlag, maxResultsFlag, tokenFlag, keyFlag},
				Action: searchCommand,
			},
			{
				Name:   "readme",
				Usage:  "Generate a README",
				Flags:  oneShotFlags(autoPRFlag),
				Action: readmeCommand,
			},
			{
				Name:   "docs",
				Usage:  "Generate documentation",
				Flags:  oneShotFlags(),
				Action: docsCommand,
			},
			{
				Name:   "comments",
				Usage:  "Review comments of every matched file",
				Flags:  oneShotFlags(autoPRFlag),
				Action: commentsCommand,
			},
			{
				Name:   "check-comments",
				Usage:  "Check that the comments of one file are accurate",
				Flags:  oneShotFlags(pathFlag),
				Action: checkCommentsCommand,
			},
			{
				Name:   "well-documented",
				Usage:  "Document one file",
				Flags:  oneShotFlags(pathFlag),
				Action: wellDocumentedCommand,
			},
			{
				Name:  "custom",
				Usage: "Run a custom instruction over the matched files",
				Flags: oneShotFlags(&cli.StringFlag{
					Name:     "prompt",
					Aliases:  []string{"p"},
					Usage:    "instruction for the model",
					Required: true,
				}),
				Action: customCommand,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.New(false).Error("%v", err)
		os.Exit(1)
	}
}

// setup builds the logger and loads the environment
func setup(ctx context.Context, cmd *cli.Command) (*log.Logger, *config.Environment, error) {
	env, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	debug := cmd.Bool("debug") || env.Debug
	return log.New(debug), env, nil
}

func writeOutput(cmd *cli.Command, output string) error {
	path := cmd.String("out")
	if path == "" {
		fmt.Println(output)
		return nil
	}
	if err := os.WriteFile(path, []byte(output), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
