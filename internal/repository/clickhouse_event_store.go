package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
	pkgch "GlucoPlot/pkg/clickhouse"
	applogger "GlucoPlot/pkg/logger"
)

// ClickHouseSchema is the DDL for the event tables. ReplacingMergeTree keyed
// by time keeps the latest write per instant; reads use FINAL.
func ClickHouseSchema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.glucose (
			time    DateTime64(9, 'UTC'),
			mmol    Float64,
			trend   LowCardinality(String),
			updated DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated)
		ORDER BY time`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.insulin (
			time    DateTime64(9, 'UTC'),
			type    LowCardinality(String),
			amount  Float64,
			updated DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated)
		ORDER BY time`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.carbs (
			time    DateTime64(9, 'UTC'),
			amount  Float64,
			updated DateTime64(3, 'UTC') DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(updated)
		ORDER BY time`, db),
	}
}

// CHEventStore implements EventStore backed by ClickHouse.
type CHEventStore struct {
	client *pkgch.Client
	db     *sql.DB
	schema string
	l      *applogger.Logger
}

func NewCHEventStore(ch *pkgch.Client, l *applogger.Logger) *CHEventStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHEventStore{
		client: ch,
		db:     ch.DB(),
		schema: ch.Database(),
		l:      l.With(applogger.String("store", "clickhouse")),
	}
}

var _ domrepo.EventStore = (*CHEventStore)(nil)

func (s *CHEventStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema(s.schema))
}

func (s *CHEventStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *CHEventStore) Close() error {
	return nil
}

func (s *CHEventStore) ReadGlucose(ctx context.Context, start, end time.Time) ([]models.GlucoseReading, error) {
	q := fmt.Sprintf(`SELECT time, mmol, trend FROM %s.glucose FINAL
		WHERE time >= ? AND time < ? ORDER BY time ASC`, s.schema)
	out := make([]models.GlucoseReading, 0, 256)
	err := queryRows(ctx, s.db, s.l, "clickhouse read_glucose", q, []any{start.UTC(), end.UTC()}, func(rows *sql.Rows) error {
		var r models.GlucoseReading
		if err := rows.Scan(&r.Time, &r.Mmol, &r.Trend); err != nil {
			return err
		}
		r.Time = r.Time.UTC()
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CHEventStore) ReadInsulin(ctx context.Context, start, end time.Time) ([]models.InsulinDose, error) {
	q := fmt.Sprintf(`SELECT time, type, amount FROM %s.insulin FINAL
		WHERE time >= ? AND time < ? ORDER BY time ASC`, s.schema)
	var out []models.InsulinDose
	err := queryRows(ctx, s.db, s.l, "clickhouse read_insulin", q, []any{start.UTC(), end.UTC()}, func(rows *sql.Rows) error {
		var d models.InsulinDose
		if err := rows.Scan(&d.Time, &d.Type, &d.Amount); err != nil {
			return err
		}
		d.Time = d.Time.UTC()
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CHEventStore) ReadCarbs(ctx context.Context, start, end time.Time) ([]models.CarbIntake, error) {
	q := fmt.Sprintf(`SELECT time, amount FROM %s.carbs FINAL
		WHERE time >= ? AND time < ? ORDER BY time ASC`, s.schema)
	var out []models.CarbIntake
	err := queryRows(ctx, s.db, s.l, "clickhouse read_carbs", q, []any{start.UTC(), end.UTC()}, func(rows *sql.Rows) error {
		var c models.CarbIntake
		if err := rows.Scan(&c.Time, &c.Amount); err != nil {
			return err
		}
		c.Time = c.Time.UTC()
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LatestGlucose returns the newest n readings in ascending time order.
func (s *CHEventStore) LatestGlucose(ctx context.Context, n int) ([]models.GlucoseReading, error) {
	q := fmt.Sprintf(`SELECT time, mmol, trend FROM %s.glucose FINAL
		ORDER BY time DESC LIMIT ?`, s.schema)
	out := make([]models.GlucoseReading, 0, n)
	err := queryRows(ctx, s.db, s.l, "clickhouse latest_glucose", q, []any{n}, func(rows *sql.Rows) error {
		var r models.GlucoseReading
		if err := rows.Scan(&r.Time, &r.Mmol, &r.Trend); err != nil {
			return err
		}
		r.Time = r.Time.UTC()
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (s *CHEventStore) WriteGlucose(ctx context.Context, r models.GlucoseReading) (bool, error) {
	return s.upsert(ctx, "glucose", r.Time,
		fmt.Sprintf(`INSERT INTO %s.glucose (time, mmol, trend) VALUES (?, ?, ?)`, s.schema),
		r.Time.UTC(), r.Mmol, r.Trend)
}

func (s *CHEventStore) WriteInsulin(ctx context.Context, d models.InsulinDose) (bool, error) {
	return s.upsert(ctx, "insulin", d.Time,
		fmt.Sprintf(`INSERT INTO %s.insulin (time, type, amount) VALUES (?, ?, ?)`, s.schema),
		d.Time.UTC(), d.Type, d.Amount)
}

func (s *CHEventStore) WriteCarbs(ctx context.Context, c models.CarbIntake) (bool, error) {
	return s.upsert(ctx, "carbs", c.Time,
		fmt.Sprintf(`INSERT INTO %s.carbs (time, amount) VALUES (?, ?)`, s.schema),
		c.Time.UTC(), c.Amount)
}

// upsert reports whether a row at t existed, then inserts. The table engine
// collapses the older row on merge.
func (s *CHEventStore) upsert(ctx context.Context, table string, t time.Time, insert string, args ...any) (bool, error) {
	var n uint64
	q := fmt.Sprintf(`SELECT count() FROM %s.%s FINAL WHERE time = ?`, s.schema, table)
	if err := s.db.QueryRowContext(ctx, q, t.UTC()).Scan(&n); err != nil {
		s.l.Error("clickhouse exists check", applogger.String("table", table), applogger.Error(err))
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, insert, args...); err != nil {
		s.l.Error("clickhouse insert", applogger.String("table", table), applogger.Error(err))
		return false, fmt.Errorf("insert %s: %w", table, err)
	}
	return n > 0, nil
}
