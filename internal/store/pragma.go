package store

import (
	"context"
	"database/sql"
	"fmt"
)

// applyPrimaryPragmas applies the full durability/concurrency policy to the
// primary connection. WAL, synchronous and cache size are file-level
// properties, so they only need to be set once here. Any pragma failing
// aborts initialization; there is no partial-pragma state.
func applyPrimaryPragmas(ctx context.Context, conn *sql.Conn, cfg Config) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", cfg.JournalMode),

		// NORMAL only fsyncs at checkpoints; safe with WAL, much
		// cheaper than FULL on every commit.
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.Synchronous),

		// Negative value = KiB rather than pages
		fmt.Sprintf("PRAGMA cache_size = -%d", cfg.CacheSizeKB),

		fmt.Sprintf("PRAGMA temp_store = %s", cfg.TempStore),

		fmt.Sprintf("PRAGMA foreign_keys = %s", onOff(!cfg.DisableForeignKeys)),

		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS),
	}
	return execPragmas(ctx, conn, pragmas)
}

// applyPooledPragmas applies the per-connection subset. Foreign-key
// enforcement and busy timeout are session state and must be set on every
// connection.
func applyPooledPragmas(ctx context.Context, conn *sql.Conn, cfg Config) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA foreign_keys = %s", onOff(!cfg.DisableForeignKeys)),
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS),
	}
	return execPragmas(ctx, conn, pragmas)
}

func execPragmas(ctx context.Context, conn *sql.Conn, pragmas []string) error {
	for _, pragma := range pragmas {
		// Some pragmas (journal_mode, busy_timeout) return a result
		// row; run them as queries and discard the output.
		rows, err := conn.QueryContext(ctx, pragma)
		if err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
		rows.Close()
	}
	return nil
}

func onOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}
