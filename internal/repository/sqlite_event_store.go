package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	applogger "GlucoPlot/pkg/logger"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS glucose (
		time  INTEGER PRIMARY KEY,
		mmol  REAL NOT NULL,
		trend TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS insulin (
		time   INTEGER PRIMARY KEY,
		type   TEXT NOT NULL,
		amount REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS carbs (
		time   INTEGER PRIMARY KEY,
		amount REAL NOT NULL
	)`,
}

// SQLiteEventStore is a single-file EventStore for local use. Times are
// stored as Unix nanoseconds.
type SQLiteEventStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewSQLiteEventStore opens (or creates) the database at path.
func NewSQLiteEventStore(path string, l *applogger.Logger) (*SQLiteEventStore, error) {
	if l == nil {
		l = applogger.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &SQLiteEventStore{db: db, l: l.With(applogger.String("store", "sqlite"))}, nil
}

var _ domrepo.EventStore = (*SQLiteEventStore)(nil)

func (s *SQLiteEventStore) Init(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteEventStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteEventStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteEventStore) ReadGlucose(ctx context.Context, start, end time.Time) ([]models.GlucoseReading, error) {
	var out []models.GlucoseReading
	err := queryRows(ctx, s.db, s.l, "sqlite read_glucose",
		`SELECT time, mmol, trend FROM glucose WHERE time >= ? AND time < ? ORDER BY time`,
		[]any{start.UnixNano(), end.UnixNano()}, func(rows *sql.Rows) error {
			r, err := scanGlucose(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteEventStore) ReadInsulin(ctx context.Context, start, end time.Time) ([]models.InsulinDose, error) {
	var out []models.InsulinDose
	err := queryRows(ctx, s.db, s.l, "sqlite read_insulin",
		`SELECT time, type, amount FROM insulin WHERE time >= ? AND time < ? ORDER BY time`,
		[]any{start.UnixNano(), end.UnixNano()}, func(rows *sql.Rows) error {
			var (
				ns int64
				d  models.InsulinDose
			)
			if err := rows.Scan(&ns, &d.Type, &d.Amount); err != nil {
				return err
			}
			d.Time = time.Unix(0, ns).UTC()
			out = append(out, d)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteEventStore) ReadCarbs(ctx context.Context, start, end time.Time) ([]models.CarbIntake, error) {
	var out []models.CarbIntake
	err := queryRows(ctx, s.db, s.l, "sqlite read_carbs",
		`SELECT time, amount FROM carbs WHERE time >= ? AND time < ? ORDER BY time`,
		[]any{start.UnixNano(), end.UnixNano()}, func(rows *sql.Rows) error {
			var (
				ns int64
				c  models.CarbIntake
			)
			if err := rows.Scan(&ns, &c.Amount); err != nil {
				return err
			}
			c.Time = time.Unix(0, ns).UTC()
			out = append(out, c)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteEventStore) LatestGlucose(ctx context.Context, n int) ([]models.GlucoseReading, error) {
	var out []models.GlucoseReading
	err := queryRows(ctx, s.db, s.l, "sqlite latest_glucose",
		`SELECT time, mmol, trend FROM glucose ORDER BY time DESC LIMIT ?`,
		[]any{n}, func(rows *sql.Rows) error {
			r, err := scanGlucose(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (s *SQLiteEventStore) WriteGlucose(ctx context.Context, r models.GlucoseReading) (bool, error) {
	return s.upsert(ctx, "glucose", r.Time,
		`INSERT INTO glucose (time, mmol, trend) VALUES (?, ?, ?)
		ON CONFLICT(time) DO UPDATE SET mmol = excluded.mmol, trend = excluded.trend`,
		r.Time.UnixNano(), r.Mmol, r.Trend)
}

func (s *SQLiteEventStore) WriteInsulin(ctx context.Context, d models.InsulinDose) (bool, error) {
	return s.upsert(ctx, "insulin", d.Time,
		`INSERT INTO insulin (time, type, amount) VALUES (?, ?, ?)
		ON CONFLICT(time) DO UPDATE SET type = excluded.type, amount = excluded.amount`,
		d.Time.UnixNano(), d.Type, d.Amount)
}

func (s *SQLiteEventStore) WriteCarbs(ctx context.Context, c models.CarbIntake) (bool, error) {
	return s.upsert(ctx, "carbs", c.Time,
		`INSERT INTO carbs (time, amount) VALUES (?, ?)
		ON CONFLICT(time) DO UPDATE SET amount = excluded.amount`,
		c.Time.UnixNano(), c.Amount)
}

func (s *SQLiteEventStore) upsert(ctx context.Context, table string, t time.Time, stmt string, args ...any) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	var existed bool
	q := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE time = ?)`, table)
	if err := tx.QueryRowContext(ctx, q, t.UnixNano()).Scan(&existed); err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		s.l.Error("sqlite upsert", applogger.String("table", table), applogger.Error(err))
		return false, fmt.Errorf("upsert %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit %s: %w", table, err)
	}
	return existed, nil
}

func scanGlucose(rows *sql.Rows) (models.GlucoseReading, error) {
	var (
		ns int64
		r  models.GlucoseReading
	)
	if err := rows.Scan(&ns, &r.Mmol, &r.Trend); err != nil {
		return r, err
	}
	r.Time = time.Unix(0, ns).UTC()
	return r, nil
}
