package main

import (
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semindex"
	"github.com/kailas-cloud/semindex/internal/config"
	logpkg "github.com/kailas-cloud/semindex/internal/logger"
)

// session bundles what every command needs: configuration, a logger and a client.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	client *semindex.Client
}

// openSession loads the configuration for --env and builds a client.
// logEnv selects the logger flavour. Terminal commands use "cli", which stays
// at warn level unless --verbose is set.
func openSession(cmd *cli.Command, logEnv string, extra ...semindex.Option) (*session, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logEnv == "cli" {
		level = ""
		if cmd.Bool("verbose") {
			level = "debug"
		}
	}
	logger, err := logpkg.NewLogger(logEnv, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	opts := append(clientOptions(&cfg, logger), extra...)
	client, err := semindex.New(opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &session{cfg: cfg, logger: logger, client: client}, nil
}

func (s *session) close() {
	s.client.Close()
	_ = s.logger.Sync()
}

func clientOptions(cfg *config.Config, logger *zap.Logger) []semindex.Option {
	opts := []semindex.Option{
		semindex.WithBaseURL(cfg.API.BaseURL),
		semindex.WithAPIKey(cfg.API.APIKey),
		semindex.WithTimeout(cfg.API.Timeout()),
		semindex.WithLimit(cfg.Search.Limit),
		semindex.WithMode(semindex.Mode(cfg.Search.Mode)),
		semindex.WithLogger(logger),
	}
	if cfg.API.RequestsPerSecond > 0 {
		opts = append(opts, semindex.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst))
	}
	if cfg.ContentCache.Driver == "redis" {
		opts = append(opts,
			semindex.WithRedis(cfg.ContentCache.Addrs, cfg.ContentCache.Password, cfg.ContentCache.TTL()),
			semindex.WithContentKeyPrefix(cfg.ContentCache.KeyPrefix),
		)
	}
	return opts
}
