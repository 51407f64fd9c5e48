package database

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

type indexDef struct {
	table   string
	name    string
	columns []string
	unique  bool
}

// indexes are the composite indexes AutoMigrate cannot express from struct tags
// alone. The (organization_id, procore_id) pairs make Procore imports idempotent.
var indexes = []indexDef{
	{"projects", "idx_projects_org_status", []string{"organization_id", "status"}, false},
	{"tasks", "idx_tasks_project_status", []string{"project_id", "status"}, false},
	{"tasks", "idx_tasks_org_planned_end", []string{"organization_id", "planned_end"}, false},
	{"safety", "idx_safety_org_resolved", []string{"organization_id", "resolved"}, false},
	{"videos", "idx_videos_org_status", []string{"organization_id", "status"}, false},

	{"users", "idx_users_org_procore", []string{"organization_id", "procore_id"}, true},
	{"projects", "idx_projects_org_procore", []string{"organization_id", "procore_id"}, true},
	{"tasks", "idx_tasks_org_procore", []string{"organization_id", "procore_id"}, true},
	{"safety", "idx_safety_org_procore", []string{"organization_id", "procore_id"}, true},
}

// AddIndexes creates the composite indexes that do not exist yet.
func AddIndexes(db *gorm.DB, log *slog.Logger) error {
	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		kind := "INDEX"
		if idx.unique {
			kind = "UNIQUE INDEX"
		}
		sql := fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("Created index",
			slog.String("index", idx.name),
			slog.String("table", idx.table),
			slog.String("columns", strings.Join(idx.columns, ",")))
	}
	return nil
}
