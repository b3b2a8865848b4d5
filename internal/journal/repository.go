package journal

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequests(ctx context.Context, limit int) ([]*Request, error)
	CountRequests(ctx context.Context) (int, error)
	UpdateRequestStatus(ctx context.Context, id, status, errorMsg string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRequest(ctx context.Context, req *Request) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO requests (id, chat_id, source_url, start_seconds, end_seconds, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.ChatID, req.SourceURL, req.StartSeconds, req.EndSeconds,
		req.Status, nullString(req.Error),
		req.CreatedAt.Format(time.RFC3339), req.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRequest(ctx context.Context, id string) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, chat_id, source_url, start_seconds, end_seconds, status, error, created_at, updated_at
		FROM requests WHERE id = ?
	`, id)
	return r.scanRequest(row)
}

func (r *SQLiteRepository) scanRequest(row *sql.Row) (*Request, error) {
	var req Request
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&req.ID, &req.ChatID, &req.SourceURL, &req.StartSeconds, &req.EndSeconds,
		&req.Status, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req.Error = errMsg.String
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &req, nil
}

func (r *SQLiteRepository) ListRequests(ctx context.Context, limit int) ([]*Request, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, source_url, start_seconds, end_seconds, status, error, created_at, updated_at
		FROM requests ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		var req Request
		var errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&req.ID, &req.ChatID, &req.SourceURL, &req.StartSeconds, &req.EndSeconds,
			&req.Status, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		req.Error = errMsg.String
		req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}

func (r *SQLiteRepository) CountRequests(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) UpdateRequestStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE requests SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
