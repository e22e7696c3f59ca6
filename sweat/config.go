package sweat

import (
	"context"
	"database/sql"
	"log/slog"
)

// ConfigFunc customizes a Manager while New builds it.
type ConfigFunc func(manager *Manager) error

// WithPostConnectFunc runs callback against the freshly opened database
// handle, for connection tuning like pool sizing.
func WithPostConnectFunc(callback func(db *sql.DB) error) ConfigFunc {
	return func(manager *Manager) error {
		return callback(manager.connection.db)
	}
}

// WithPreRunFunc registers a hook invoked with every prepared statement and
// its arguments before execution. Returning an error aborts the run.
func WithPreRunFunc(preRunFunc RunFunc) ConfigFunc {
	return func(manager *Manager) error {
		manager.connection.preRunFuncs = append(manager.connection.preRunFuncs, preRunFunc)

		return nil
	}
}

// WithPostRunFunc registers a hook invoked after every successful execution.
func WithPostRunFunc(postRunFunc RunFunc) ConfigFunc {
	return func(manager *Manager) error {
		manager.connection.postRunFuncs = append(manager.connection.postRunFuncs, postRunFunc)

		return nil
	}
}

// WithLogger logs every statement and its bind arguments through logger
// before it runs.
func WithLogger(logger *slog.Logger) ConfigFunc {
	return WithPreRunFunc(func(ctx context.Context, query string, args []any) error {
		logger.Log(
			ctx,
			slog.LevelInfo,
			"Database Run",
			slog.String("statement", query),
			slog.Any("args", args),
		)

		return nil
	})
}
