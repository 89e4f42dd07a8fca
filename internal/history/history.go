// Package history keeps an audit log of answered questions per upload.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"recallai/internal/models"
)

// Open connects the history database. sqlite3 is the default backend; mysql
// is selectable with a DSN.
func Open(driver, dsn string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		if dsn == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
	case "mysql":
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the ask_history table is present.
func Migrate(db *sql.DB, driver string) error {
	var stmt string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmt = `CREATE TABLE IF NOT EXISTS ask_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			upload_no TEXT NOT NULL,
			question TEXT NOT NULL,
			clarified_question TEXT NOT NULL,
			answer TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`
	case "mysql":
		stmt = `CREATE TABLE IF NOT EXISTS ask_history (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			upload_no VARCHAR(64) NOT NULL,
			question MEDIUMTEXT NOT NULL,
			clarified_question MEDIUMTEXT NOT NULL,
			answer MEDIUMTEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (id),
			INDEX idx_ask_history_upload (upload_no)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("migrate (%s): %w", driver, err)
	}
	if strings.HasPrefix(strings.ToLower(driver), "sqlite") {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_ask_history_upload ON ask_history(upload_no)`); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}

// Log records and lists answered questions.
type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Record appends one answered question.
func (l *Log) Record(ctx context.Context, rec *models.AskRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO ask_history (upload_no, question, clarified_question, answer, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.UploadNo, rec.Question, rec.ClarifiedQuestion, rec.Answer, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("record ask: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// List returns all answered questions for an upload, oldest first.
func (l *Log) List(ctx context.Context, uploadNo string) ([]*models.AskRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, upload_no, question, clarified_question, answer, created_at
		FROM ask_history WHERE upload_no = ? ORDER BY id`, uploadNo)
	if err != nil {
		return nil, fmt.Errorf("list ask history: %w", err)
	}
	defer rows.Close()

	var records []*models.AskRecord
	for rows.Next() {
		rec := &models.AskRecord{}
		if err := rows.Scan(&rec.ID, &rec.UploadNo, &rec.Question, &rec.ClarifiedQuestion, &rec.Answer, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ask history: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
