package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/zephyrtronium/toothy/blocklist"
	"github.com/zephyrtronium/toothy/metrics"
	"github.com/zephyrtronium/toothy/store/sqlstore"
)

var app = cli.Command{
	Name:  "toothy",
	Usage: "Discord chat bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagEnv,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:   "init",
			Usage:  "Initialize the SQLite store schema",
			Action: cliInit,
		},
		{
			Name:      "blacklist",
			Usage:     "Add a user or guild to a block list without connecting",
			ArgsUsage: "user|guild ID",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "remove",
					Usage: "Remove from the block list instead",
				},
			},
			Action: cliBlacklist,
		},
	},
	Action: cliRun,

	Authors: []any{
		"Branden J Brown  @zephyrtronium",
	},
	Copyright: "Copyright 2024 Branden J Brown",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		stop()
	}()
	err := app.Run(ctx, os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig loads the config file named by the command's flags, after
// loading any environment files.
func loadConfig(ctx context.Context, cmd *cli.Command) (*Config, error) {
	if env := cmd.StringSlice("env"); len(env) != 0 {
		if err := godotenv.Load(env...); err != nil {
			return nil, fmt.Errorf("couldn't load env files: %w", err)
		}
	}
	r, err := os.Open(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("couldn't open config file: %w", err)
	}
	defer r.Close()
	cfg, _, err := Load(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("couldn't load config: %w", err)
	}
	return cfg, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	log := loggerFromFlags(cmd)
	slog.SetDefault(log)
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	if err := cfg.Check(); err != nil {
		return err
	}
	if cfg.Selfbot {
		if err := confirmSelfbot(os.Stdin, os.Stdout); err != nil {
			return err
		}
	}
	st, err := loadStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	bot, err := New(cfg, cmd.String("config"), st, log)
	if err != nil {
		st.Close()
		return err
	}
	return bot.Run(ctx)
}

func cliInit(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	if cfg.DB.SQLite == "" {
		return errors.New("no sqlite store in config")
	}
	db, err := openSQLite(cfg.DB.SQLite)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlstore.Init(ctx, db); err != nil {
		return fmt.Errorf("couldn't initialize sqlstore: %w", err)
	}
	slog.InfoContext(ctx, "initialized sqlstore", slog.String("path", cfg.DB.SQLite))
	return nil
}

func cliBlacklist(ctx context.Context, cmd *cli.Command) error {
	slog.SetDefault(loggerFromFlags(cmd))
	if cmd.NArg() != 2 {
		return errors.New("usage: blacklist user|guild ID")
	}
	kind, err := blocklist.ParseKind(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	id := cmd.Args().Get(1)
	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	st, err := loadStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	blocked := !cmd.Bool("remove")
	c := blocklist.Checker{Source: st}
	if err := c.Set(ctx, kind, id, blocked); err != nil {
		return err
	}
	slog.InfoContext(ctx, "updated block list", slog.Any("kind", kind), slog.String("id", id), slog.Bool("blocked", blocked))
	return nil
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "TOML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagEnv = cli.StringSliceFlag{
		Name:       "env",
		Usage:      "Environment files to load before expanding the config",
		Persistent: true,
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

func loggerFromFlags(cmd *cli.Command) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		panic(err)
	}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	case "json":
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	}
	return slog.New(h)
}

// metrics configuration
func newMetrics() *metrics.Metrics {
	return &metrics.Metrics{
		MessagesCount: metrics.NewPromCounter(
			prometheus.NewCounter(
				prometheus.CounterOpts{
					Namespace: "toothy",
					Subsystem: "gateway",
					Name:      "messages",
					Help:      "Number of messages received from the Discord gateway.",
				},
			),
		),
		FilteredCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "toothy",
					Subsystem: "dispatch",
					Name:      "filtered",
					Help:      "Number of messages dropped before command dispatch.",
				},
				[]string{"reason"},
			),
		),
		CommandCount: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "toothy",
					Subsystem: "commands",
					Name:      "invocations",
					Help:      "Number of command invocations.",
				},
				[]string{"command"},
			),
		),
		CommandErrors: metrics.NewPromCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "toothy",
					Subsystem: "commands",
					Name:      "errors",
					Help:      "Number of command errors by kind.",
				},
				[]string{"kind"},
			),
		),
		CommandLatency: metrics.NewPromObserverVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Buckets:   []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1, 5, 10},
					Namespace: "toothy",
					Subsystem: "commands",
					Name:      "latency",
					Help:      "How long commands take to run in seconds.",
				},
				[]string{"command"},
			),
		),
	}
}
