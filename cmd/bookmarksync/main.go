package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bookmarksync/internal/clock"
	"bookmarksync/internal/config"
	"bookmarksync/internal/handler"
	"bookmarksync/internal/history"
	"bookmarksync/internal/launchd"
	"bookmarksync/internal/list"
	"bookmarksync/internal/logger"
	"bookmarksync/internal/syncer"
	"bookmarksync/internal/version"
)

func main() {
	// The Lambda runtime starts the binary without arguments.
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" && len(os.Args) == 1 {
		os.Args = append(os.Args, "lambda")
	}

	app := &cli.Command{
		Name:  "bookmarksync",
		Usage: "Sync bookmarks between Hatena Bookmark and Raindrop.io",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file (default ~/.config/bookmarksync/config.yaml)"},
			&cli.StringFlag{Name: "env-file", Usage: ".env file to load (default ./.env if present)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one sync in both directions",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Fetch both sides and log what would be posted"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, zl, err := setup(configLoader(c))
					if err != nil {
						return err
					}
					defer zl.Sync()
					_, err = syncOnce(ctx, cfg, zl.Sugar(), c.Bool("dry-run"))
					return err
				},
			},
			{
				Name:  "lambda",
				Usage: "Serve sync runs as an AWS Lambda function",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, zl, err := setup(configLoader(c))
					if err != nil {
						return err
					}
					sugar := zl.Sugar()
					lambda.Start(handler.New(func(ctx context.Context) error {
						defer zl.Sync()
						_, err := syncOnce(ctx, cfg, sugar, false)
						return err
					}, sugar))
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "List recent sync history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "hours", Usage: "Time window in hours", Value: 48},
					&cli.BoolFlag{Name: "failed", Usage: "Only show failed posts"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := configLoader(c)()
					if err != nil {
						return err
					}
					return list.Run(ctx, os.Stdout, list.Options{
						HistoryPath: cfg.HistoryPath,
						Hours:       c.Int("hours"),
						FailedOnly:  c.Bool("failed"),
					})
				},
			},
			scheduleCommand(),
			{
				Name:  "config",
				Usage: "Manage the config file",
				Commands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write a config template with the current non-secret settings",
						Action: func(ctx context.Context, c *cli.Command) error {
							cfg, err := configLoader(c)()
							if err != nil {
								return err
							}
							path := strings.TrimSpace(c.String("config"))
							if path == "" {
								if path, err = config.DefaultConfigPath(); err != nil {
									return err
								}
							}
							if err := config.WriteTemplate(config.ExpandPath(path), cfg); err != nil {
								return err
							}
							fmt.Printf("Config written to %s\n", path)
							fmt.Println("Secrets are read from the environment or a .env file, never from this file.")
							return nil
						},
					},
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Println(version.GetVersion())
					return nil
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func scheduleCommand() *cli.Command {
	labelFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"}
	}
	plistFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "plist", Usage: "plist path (default ~/Library/LaunchAgents/<label>.plist)"}
	}
	return &cli.Command{
		Name:  "schedule",
		Usage: "Manage the daily launchd agent (macOS)",
		Commands: []*cli.Command{
			{
				Name:  "install",
				Usage: "Install and load the launchd agent",
				Flags: []cli.Flag{
					labelFlag(),
					plistFlag(),
					&cli.IntFlag{Name: "hour", Value: 6, Usage: "hour of day (0-23)"},
					&cli.IntFlag{Name: "minute", Value: 0, Usage: "minute (0-59)"},
					&cli.StringFlag{Name: "log-file", Usage: "log file (default ~/Library/Logs/bookmarksync/run.log)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					exe, _ := os.Executable()
					if strings.TrimSpace(exe) == "" {
						return fmt.Errorf("cannot discover program path")
					}
					var args []string
					if v := c.String("config"); strings.TrimSpace(v) != "" {
						args = append(args, "--config", config.ExpandPath(v))
					}
					if v := c.String("env-file"); strings.TrimSpace(v) != "" {
						args = append(args, "--env-file", config.ExpandPath(v))
					}
					args = append(args, "run")
					wd, _ := os.Getwd()
					path, err := launchd.Install(launchd.InstallOptions{
						Label:            c.String("label"),
						Hour:             c.Int("hour"),
						Minute:           c.Int("minute"),
						ProgramPath:      exe,
						ProgramArgs:      args,
						LogPath:          c.String("log-file"),
						WorkingDirectory: wd,
						PlistPath:        c.String("plist"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("launchd agent installed and loaded: %s\n", path)
					return nil
				},
			},
			{
				Name:  "uninstall",
				Usage: "Unload and remove the launchd agent",
				Flags: []cli.Flag{labelFlag(), plistFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := launchd.Uninstall(c.String("label"), c.String("plist")); err != nil {
						return err
					}
					fmt.Println("launchd agent unloaded and removed")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show whether the agent is loaded and when it runs",
				Flags: []cli.Flag{labelFlag(), plistFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					label := c.String("label")
					loaded, state := launchd.Status(label)
					fmt.Printf("Loaded: %t (%s)\n", loaded, state)
					path := c.String("plist")
					if path == "" {
						var err error
						if path, err = launchd.DefaultAgentPath(label); err != nil {
							return err
						}
					}
					if hour, minute, err := launchd.ExtractSchedule(path); err == nil {
						fmt.Printf("Runs daily at %02d:%02d\n", hour, minute)
					}
					return nil
				},
			},
		},
	}
}

func configLoader(c *cli.Command) config.Loader {
	return config.NewLoader(config.Options{
		ConfigPath: c.String("config"),
		EnvFile:    c.String("env-file"),
	})
}

// setup loads and validates the config and builds the logger for a sync command.
func setup(load config.Loader) (config.AppConfig, *zap.Logger, error) {
	cfg, err := load()
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return cfg, zl, nil
}

func syncOnce(ctx context.Context, cfg config.AppConfig, log *zap.SugaredLogger, dryRun bool) (syncer.Report, error) {
	opts := syncer.Options{DryRun: dryRun}
	if cfg.HistoryPath != "" && !dryRun {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return syncer.Report{}, fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		opts.Recorder = store
	}

	return syncer.NewFromConfig(cfg, clock.System{}, log, opts).Run(ctx)
}
