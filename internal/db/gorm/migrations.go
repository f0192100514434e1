// Package gorm provides GORM-based database operations for tasklearn.
package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: users and tasks with the tasks.owner -> users.id foreign key
		{
			ID: "001_users_tasks",
			Migrate: func(tx *gorm.DB) error {
				// users first so the has-many constraint has a target
				if err := tx.AutoMigrate(&User{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Task{}); err != nil {
					return err
				}
				// fk_users_tasks, plain REFERENCES with no ON DELETE action
				if !tx.Migrator().HasConstraint(&User{}, "Tasks") {
					return tx.Migrator().CreateConstraint(&User{}, "Tasks")
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("tasks", "users")
			},
		},

		// Migration 002: owner lookups for user task collections and cascades
		{
			ID: "002_tasks_owner_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks (owner)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_tasks_owner`).Error
			},
		},
	})

	return m.Migrate()
}
