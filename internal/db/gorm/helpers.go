// Package gorm provides GORM-based database operations for tasklearn.
package gorm

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlNullString creates a sql.NullString from a string.
func sqlNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// advanceSequence moves the id sequence of table past every stored id, so rows
// inserted with a caller-assigned id do not collide with generated ones. The
// sequence never moves backwards.
func advanceSequence(db *gorm.DB, table string) error {
	err := db.Exec(fmt.Sprintf(`SELECT setval(seq, GREATEST(
		(SELECT COALESCE(MAX(id), 0) FROM %[1]s),
		COALESCE(pg_sequence_last_value(seq), 0)))
	FROM (SELECT pg_get_serial_sequence('%[1]s', 'id')::regclass AS seq) s`, table)).Error
	if err != nil {
		return fmt.Errorf("advance %s id sequence: %w", table, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// ParseLogLevel maps a textual level ("silent", "error", "warn", "info") to a
// GORM log level. Unknown values fall back to Warn. "debug" and "trace" enable
// SQL logging.
func ParseLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent", "disabled", "off":
		return logger.Silent
	case "error", "fatal", "panic":
		return logger.Error
	case "info", "debug", "trace":
		return logger.Info
	default:
		return logger.Warn
	}
}
