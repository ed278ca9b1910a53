package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type compositeIndex struct {
	table   string
	name    string
	columns string
}

// Composite indexes backing the listing queries.
var compositeIndexes = []compositeIndex{
	{"tasks", "idx_tasks_assigned_status", "assigned_to_id, status"},
	{"tasks", "idx_tasks_created_by_status", "created_by_id, status"},
	{"tasks", "idx_tasks_status_due_date", "status, due_date"},
	{"refresh_sessions", "idx_refresh_sessions_user_issued", "user_id, issued_at"},
}

// AddIndexes adds composite indexes that gorm tags cannot express.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	m := db.Migrator()
	for _, idx := range compositeIndexes {
		if m.HasIndex(idx.table, idx.name) {
			log.Debug("index already exists", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}
	return nil
}
