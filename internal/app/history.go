package app

import (
	"context"
	"log/slog"

	"github.com/deusflow/techposter/internal/config"
	"github.com/deusflow/techposter/internal/storage"
)

// historyBackend is what both storage implementations provide.
type historyBackend interface {
	Contains(text string) bool
	Record(ctx context.Context, text, post string) error
	Records() []storage.Record
	Len() int
	Close() error
}

// openHistory returns the configured backend. When PostgreSQL can't be
// reached the file backend is used instead so the bot keeps running.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (historyBackend, error) {
	if cfg.HistoryBackend == config.BackendPostgres {
		pg, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, cfg.HistoryRetention, logger)
		if err == nil {
			logger.Info("using PostgreSQL history")
			return pg, nil
		}
		logger.Warn("PostgreSQL unavailable, falling back to file history", "error", err, "file", cfg.HistoryFile)
	}

	fh := storage.NewFileHistory(cfg.HistoryFile, cfg.HistoryRetention, logger)
	if err := fh.Load(); err != nil {
		return nil, err
	}
	logger.Info("using file history", "file", cfg.HistoryFile, "entries", fh.Len())
	return fh, nil
}
