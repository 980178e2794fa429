package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"seedpull/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrNotFound = errors.New("not found")

var sortColumns = map[string]string{
	"name":         "name",
	"enqueued_at":  "enqueued_at",
	"completed_at": "completed_at",
	"status":       "status",
}

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000&_cache_size=2000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db}

	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := r.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// RecordEnqueued stores a transfer handed to lftp. Recording a name again
// resets it to queued.
func (r *Repository) RecordEnqueued(transfer *models.Transfer) error {
	if transfer.EnqueuedAt.IsZero() {
		transfer.EnqueuedAt = time.Now().UTC()
	}
	transfer.Status = models.TransferStatusQueued
	transfer.CompletedAt = nil

	query := `
		INSERT INTO transfers (name, kind, remote_path, local_path, status, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			remote_path = excluded.remote_path,
			local_path = excluded.local_path,
			status = excluded.status,
			enqueued_at = excluded.enqueued_at,
			completed_at = NULL
	`

	_, err := r.db.Exec(query, transfer.Name, transfer.Type, transfer.RemotePath,
		transfer.LocalPath, transfer.Status, transfer.EnqueuedAt)
	if err != nil {
		return fmt.Errorf("failed to record transfer: %w", err)
	}

	var id int64
	if err := r.db.QueryRow("SELECT id FROM transfers WHERE name = ?", transfer.Name).Scan(&id); err != nil {
		return fmt.Errorf("failed to get transfer ID: %w", err)
	}
	transfer.ID = id

	return nil
}

func (r *Repository) HasTransfer(name string) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transfers WHERE name = ?", name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check transfer: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) GetTransfer(name string) (*models.Transfer, error) {
	query := `
		SELECT id, name, kind, remote_path, local_path, status, enqueued_at, completed_at
		FROM transfers WHERE name = ?
	`

	transfer, err := scanTransfer(r.db.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transfer %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return transfer, nil
}

// MarkCompleted flags a queued transfer as finished. It reports whether a
// queued row was changed.
func (r *Repository) MarkCompleted(name string) (bool, error) {
	result, err := r.db.Exec(
		"UPDATE transfers SET status = ?, completed_at = ? WHERE name = ? AND status = ?",
		models.TransferStatusCompleted, time.Now().UTC(), name, models.TransferStatusQueued)
	if err != nil {
		return false, fmt.Errorf("failed to mark transfer completed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *Repository) DeleteTransfer(name string) error {
	result, err := r.db.Exec("DELETE FROM transfers WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("transfer %s: %w", name, ErrNotFound)
	}
	return nil
}

func (r *Repository) ListTransfers(filter models.TransferFilter) ([]*models.Transfer, error) {
	query := `
		SELECT id, name, kind, remote_path, local_path, status, enqueued_at, completed_at
		FROM transfers
	`

	var args []interface{}
	if len(filter.Status) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Status)), ",")
		query += fmt.Sprintf(" WHERE status IN (%s)", placeholders)
		for _, status := range filter.Status {
			args = append(args, status)
		}
	}

	sortBy, ok := sortColumns[filter.SortBy]
	if !ok {
		sortBy = "enqueued_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", sortBy, sortOrder, sortOrder)

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}

	return transfers, nil
}

func (r *Repository) GetTransferSummary() (*models.TransferSummary, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0) as queued,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) as completed
		FROM transfers
	`

	var summary models.TransferSummary
	err := r.db.QueryRow(query).Scan(
		&summary.TotalTransfers, &summary.QueuedTransfers, &summary.CompletedTransfers)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer summary: %w", err)
	}

	return &summary, nil
}

// CleanupCompleted removes completed transfers finished before the cutoff
func (r *Repository) CleanupCompleted(completedBefore time.Time) (int, error) {
	result, err := r.db.Exec(
		"DELETE FROM transfers WHERE status = 'completed' AND completed_at < ?",
		completedBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old transfers: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	slog.Info("cleaned up old transfers", "count", rowsAffected)
	return int(rowsAffected), nil
}

// System configuration operations
func (r *Repository) GetConfig(key string) (string, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM system_config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("config key %s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get config: %w", err)
	}
	return value, nil
}

func (r *Repository) SetConfig(key, value string) error {
	query := `
		INSERT INTO system_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Exec(query, key, value, value); err != nil {
		return fmt.Errorf("failed to set config: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	var transfer models.Transfer
	var completedAt sql.NullTime

	err := row.Scan(&transfer.ID, &transfer.Name, &transfer.Type, &transfer.RemotePath,
		&transfer.LocalPath, &transfer.Status, &transfer.EnqueuedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		transfer.CompletedAt = &completedAt.Time
	}
	return &transfer, nil
}
