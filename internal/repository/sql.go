package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	applogger "GlucoPlot/pkg/logger"
)

// queryRows runs q and hands every row to scan, logging failures and timing.
func queryRows(ctx context.Context, db *sql.DB, l *applogger.Logger, op, q string, args []any, scan func(*sql.Rows) error) error {
	start := time.Now()
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		l.Error(op+" query error", applogger.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			l.Error(op+" scan error", applogger.Error(err))
			return fmt.Errorf("%s scan: %w", op, err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		l.Error(op+" rows error", applogger.Error(err))
		return fmt.Errorf("%s rows: %w", op, err)
	}
	l.Debug(op+" ok",
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
