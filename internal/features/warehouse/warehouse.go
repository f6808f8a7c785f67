// Package warehouse mirrors daily rollups into an external SQL database for
// BI tools. It is a no-op unless WAREHOUSE_DRIVER and WAREHOUSE_DSN are set.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"salescrm/internal/config"
	"salescrm/internal/features/rollup"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Warehouse struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// NewWarehouse opens the configured sink. A missing or unreachable sink
// leaves the warehouse disabled rather than failing startup.
func NewWarehouse(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) *Warehouse {
	w := &Warehouse{logger: logger}
	if cfg.WarehouseDriver == "" || cfg.WarehouseDSN == "" {
		logger.Info("Warehouse export disabled")
		return w
	}

	d, err := dialectFor(cfg.WarehouseDriver)
	if err != nil {
		logger.Warn("Warehouse export disabled", zap.Error(err))
		return w
	}

	db, err := sql.Open(d.driver, cfg.WarehouseDSN)
	if err != nil {
		logger.Warn("Failed to open warehouse connection", zap.Error(err))
		return w
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Warn("Warehouse unreachable, export disabled", zap.Error(err))
		_ = db.Close()
		return w
	}
	w.db = db
	w.dialect = d

	if err := w.EnsureSchema(ctx); err != nil {
		logger.Warn("Failed to create warehouse tables", zap.Error(err))
	}
	logger.Info("Connected to warehouse", zap.String("driver", d.driver))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return w
}

func (w *Warehouse) Enabled() bool {
	return w != nil && w.db != nil
}

func (w *Warehouse) EnsureSchema(ctx context.Context) error {
	if !w.Enabled() {
		return nil
	}
	for _, t := range []table{snapshotTable, summaryTable} {
		if _, err := w.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
	}
	return nil
}

// Export writes one captured day. Snapshot rows of that day are replaced so
// stages that emptied out disappear; summaries are upserted.
func (w *Warehouse) Export(ctx context.Context, snapshots []rollup.PipelineSnapshot, summaries []rollup.ActivitySummary) error {
	if !w.Enabled() {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(snapshots) > 0 {
		if _, err := tx.ExecContext(ctx, w.dialect.deleteDay(snapshotTable), snapshots[0].Date.Time); err != nil {
			return fmt.Errorf("clear pipeline_snapshots: %w", err)
		}
	}

	upsertSnapshot := w.dialect.upsertFor(snapshotTable)
	for _, s := range snapshots {
		if _, err := tx.ExecContext(ctx, upsertSnapshot, snapshotArgs(s)...); err != nil {
			return fmt.Errorf("upsert pipeline_snapshots: %w", err)
		}
	}

	upsertSummary := w.dialect.upsertFor(summaryTable)
	for _, s := range summaries {
		if _, err := tx.ExecContext(ctx, upsertSummary, summaryArgs(s)...); err != nil {
			return fmt.Errorf("upsert activity_summaries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	w.logger.Debug("Exported rollups to warehouse",
		zap.Int("snapshots", len(snapshots)),
		zap.Int("summaries", len(summaries)))
	return nil
}

func snapshotArgs(s rollup.PipelineSnapshot) []interface{} {
	return []interface{}{s.Date.Time, s.Stage, s.Count, s.TotalValue, s.WeightedValue}
}

func summaryArgs(s rollup.ActivitySummary) []interface{} {
	return []interface{}{
		s.Date.Time, s.OwnerID,
		s.CallsMade, s.EmailsSent, s.MeetingsHeld, s.TasksCompleted, s.NotesAdded,
		s.DealsCreated, s.DealsClosedWon, s.DealsClosedLost, s.RevenueClosed,
		s.ContactsCreated, s.CompaniesCreated,
	}
}
