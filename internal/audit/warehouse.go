package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/snowflakedb/gosnowflake" // snowflake driver

	"github.com/ignite/mailguard/internal/pkg/logger"
)

// WarehouseConfig holds Snowflake connection settings.
type WarehouseConfig struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
}

// Warehouse exports daily outcome rollups to Snowflake for deliverability
// reporting.
type Warehouse struct {
	repo Repository
	db   *sql.DB
	log  *logger.Logger
}

// NewWarehouse opens a Snowflake connection for rollup exports.
func NewWarehouse(repo Repository, cfg WarehouseConfig) (*Warehouse, error) {
	// DSN format: user:password@account/database/schema?warehouse=xxx
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s",
		cfg.User,
		cfg.Password,
		cfg.Account,
		cfg.Database,
		cfg.Schema,
	)
	if cfg.Warehouse != "" {
		dsn += "?warehouse=" + cfg.Warehouse
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Warehouse{repo: repo, db: db, log: logger.Component("Warehouse")}, nil
}

// Close closes the warehouse connection.
func (w *Warehouse) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Ping tests the warehouse connection.
func (w *Warehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

// ExportDailyOutcomes replaces the rollup rows for one UTC day. The
// delete-then-insert runs in a transaction so re-exports are safe.
func (w *Warehouse) ExportDailyOutcomes(ctx context.Context, day time.Time) error {
	day = day.UTC().Truncate(24 * time.Hour)
	aggs, err := w.repo.AggregateByDay(ctx, day)
	if err != nil {
		return fmt.Errorf("aggregate decisions: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	dayStr := day.Format("2006-01-02")
	if _, err := tx.ExecContext(ctx, `DELETE FROM SEND_OUTCOME_DAILY WHERE DAY = ?`, dayStr); err != nil {
		return fmt.Errorf("clear day %s: %w", dayStr, err)
	}
	for _, agg := range aggs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO SEND_OUTCOME_DAILY (DAY, TENANT_ID, OUTCOME, REASON_CODE, SEND_COUNT)
			VALUES (?, ?, ?, ?, ?)
		`, dayStr, agg.TenantID, agg.Outcome, agg.ReasonCode, agg.Count); err != nil {
			return fmt.Errorf("insert rollup row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}

	w.log.Info("exported daily outcomes", "day", dayStr, "rows", len(aggs))
	return nil
}
