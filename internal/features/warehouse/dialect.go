package warehouse

import (
	"fmt"
	"strings"
)

// dialect holds the SQL differences between the supported sinks
type dialect struct {
	driver      string
	placeholder func(n int) string
	onConflict  func(keys, cols []string) string
}

var postgres = dialect{
	driver:      "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	onConflict: func(keys, cols []string) string {
		sets := make([]string, 0, len(cols))
		for _, c := range cols {
			sets = append(sets, c+" = EXCLUDED."+c)
		}
		return "ON CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
	},
}

var mysql = dialect{
	driver:      "mysql",
	placeholder: func(int) string { return "?" },
	onConflict: func(keys, cols []string) string {
		sets := make([]string, 0, len(cols))
		for _, c := range cols {
			sets = append(sets, c+" = VALUES("+c+")")
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	},
}

// dialectFor maps WAREHOUSE_DRIVER to a dialect
func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "postgres", "postgresql", "pq":
		return postgres, nil
	case "mysql":
		return mysql, nil
	}
	return dialect{}, fmt.Errorf("unsupported warehouse driver %q", driver)
}

// table describes one warehouse table: its natural key and value columns
type table struct {
	name string
	keys []string
	cols []string
	ddl  string
}

var snapshotTable = table{
	name: "pipeline_snapshots",
	keys: []string{"snapshot_date", "stage"},
	cols: []string{"deal_count", "total_value", "weighted_value"},
	ddl: `CREATE TABLE IF NOT EXISTS pipeline_snapshots (
	snapshot_date  DATE NOT NULL,
	stage          VARCHAR(50) NOT NULL,
	deal_count     BIGINT NOT NULL,
	total_value    NUMERIC(15,2) NOT NULL,
	weighted_value NUMERIC(15,2) NOT NULL,
	PRIMARY KEY (snapshot_date, stage)
)`,
}

var summaryTable = table{
	name: "activity_summaries",
	keys: []string{"summary_date", "owner_id"},
	cols: []string{
		"calls_made", "emails_sent", "meetings_held", "tasks_completed", "notes_added",
		"deals_created", "deals_closed_won", "deals_closed_lost", "revenue_closed",
		"contacts_created", "companies_created",
	},
	ddl: `CREATE TABLE IF NOT EXISTS activity_summaries (
	summary_date      DATE NOT NULL,
	owner_id          VARCHAR(64) NOT NULL,
	calls_made        INTEGER NOT NULL,
	emails_sent       INTEGER NOT NULL,
	meetings_held     INTEGER NOT NULL,
	tasks_completed   INTEGER NOT NULL,
	notes_added       INTEGER NOT NULL,
	deals_created     INTEGER NOT NULL,
	deals_closed_won  INTEGER NOT NULL,
	deals_closed_lost INTEGER NOT NULL,
	revenue_closed    NUMERIC(15,2) NOT NULL,
	contacts_created  INTEGER NOT NULL,
	companies_created INTEGER NOT NULL,
	PRIMARY KEY (summary_date, owner_id)
)`,
}

func (d dialect) upsertFor(t table) string {
	all := append(append([]string{}, t.keys...), t.cols...)
	marks := make([]string, len(all))
	for i := range all {
		marks[i] = d.placeholder(i + 1)
	}
	return "INSERT INTO " + t.name + " (" + strings.Join(all, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ") " +
		d.onConflict(t.keys, t.cols)
}

func (d dialect) deleteDay(t table) string {
	return "DELETE FROM " + t.name + " WHERE " + t.keys[0] + " = " + d.placeholder(1)
}
