// Package usage persists per-request accounting and conversation history
// in SQLite.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/studyhall-ai/studyhall/pkg/models"
)

// Recorder records and queries usage and conversation history.
type Recorder interface {
	// Record stores one usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// SaveConversation persists a completed question and answer exchange.
	SaveConversation(ctx context.Context, conv models.Conversation) error
	// History returns a student's most recent conversations, newest first.
	History(ctx context.Context, studentID string, limit int) ([]models.Conversation, error)
	// Summary returns aggregated usage, optionally filtered by student.
	Summary(ctx context.Context, studentID string) ([]models.UsageSummary, error)
	// TotalCost returns the total spend for a student since a given time.
	TotalCost(ctx context.Context, studentID string, since time.Time) (float64, error)
	// Close releases resources.
	Close() error
}

// SQLiteRecorder implements Recorder with a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
}

const createUsageTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	student_id TEXT NOT NULL,
	model TEXT NOT NULL,
	tokens_used INTEGER NOT NULL,
	cost REAL NOT NULL,
	success INTEGER NOT NULL,
	request_id TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_student_time ON usage_records(student_id, created_at);
`

const createConversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	student_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	model TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversations_student ON conversations(student_id, created_at);
`

// New creates a SQLiteRecorder and runs auto-migration.
func New(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}

	if _, err := db.Exec(createUsageTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage table: %w", err)
	}
	if _, err := db.Exec(createConversationsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate conversations table: %w", err)
	}

	return &SQLiteRecorder{db: db}, nil
}

// Record stores one usage record.
func (r *SQLiteRecorder) Record(ctx context.Context, rec models.UsageRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO usage_records (student_id, model, tokens_used, cost, success, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.StudentID, rec.Model, rec.TokensUsed, rec.Cost, rec.Success, rec.RequestID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// SaveConversation persists a completed exchange.
func (r *SQLiteRecorder) SaveConversation(ctx context.Context, conv models.Conversation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (student_id, subject, question, answer, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conv.StudentID, conv.Subject, conv.Question, conv.Answer, conv.Model, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// History returns a student's most recent conversations, newest first.
func (r *SQLiteRecorder) History(ctx context.Context, studentID string, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, student_id, subject, question, answer, model, created_at
		 FROM conversations WHERE student_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		studentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Subject, &c.Question, &c.Answer, &c.Model, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Summary returns aggregated usage grouped by student and model.
func (r *SQLiteRecorder) Summary(ctx context.Context, studentID string) ([]models.UsageSummary, error) {
	query := `SELECT student_id, model, COUNT(*), COALESCE(SUM(tokens_used), 0), COALESCE(SUM(cost), 0)
		 FROM usage_records`
	var args []any
	if studentID != "" {
		query += ` WHERE student_id = ?`
		args = append(args, studentID)
	}
	query += ` GROUP BY student_id, model ORDER BY student_id, model`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.StudentID, &s.Model, &s.RequestCount, &s.TotalTokens, &s.TotalCost); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// TotalCost returns the total spend for a student since a given time.
func (r *SQLiteRecorder) TotalCost(ctx context.Context, studentID string, since time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0) FROM usage_records WHERE student_id = ? AND created_at >= ?`,
		studentID, since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total cost: %w", err)
	}
	return total, nil
}

// Close releases the database connection.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
