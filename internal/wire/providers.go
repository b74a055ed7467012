package wire

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/wire"

	"github.com/sevigo/migration-warden/internal/app"
	"github.com/sevigo/migration-warden/internal/config"
	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/db"
	"github.com/sevigo/migration-warden/internal/jobs"
	"github.com/sevigo/migration-warden/internal/llm"
	"github.com/sevigo/migration-warden/internal/logger"
	"github.com/sevigo/migration-warden/internal/server"
	"github.com/sevigo/migration-warden/internal/storage"
)

// HistorySet opens the check history database.
var HistorySet = wire.NewSet(
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	logger.NewLogger,
	provideDBConfig,
	db.NewDatabase,
	provideStore,
)

// AppSet builds the webhook service on top of HistorySet.
var AppSet = wire.NewSet(
	HistorySet,
	app.NewApp,
	server.NewServer,
	llm.NewPromptManager,
	provideClientFactory,
	jobs.NewGitCheckout,
	jobs.NewPullRequestJob,
	provideDispatcher,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return &cfg.Database
}

// provideLogWriter keeps stdout free for machine-readable output unless
// the config asks for it explicitly.
func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stdout":
		return os.Stdout
	case "file":
		f, err := os.OpenFile("migration-warden.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return os.Stderr
		}
		return f
	default:
		return os.Stderr
	}
}

func provideStore(conn *db.DB) storage.Store {
	return storage.NewStore(conn.DB)
}

func provideDispatcher(job core.Job, cfg *config.Config, logger *slog.Logger) core.JobDispatcher {
	return jobs.NewDispatcher(job, cfg.Server.MaxWorkers, logger)
}

// provideClientFactory refuses to start the webhook service without GitHub
// App credentials or an operator-set extract command.
func provideClientFactory(cfg *config.Config, logger *slog.Logger) (jobs.ClientFactory, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}
	return jobs.InstallationClients(cfg, logger), nil
}
