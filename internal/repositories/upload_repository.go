package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yofam/upload-service/internal/models"
)

// uploadRepository implements upload metadata persistence
type uploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new upload repository
func NewUploadRepository(db *sql.DB) *uploadRepository {
	return &uploadRepository{
		db: db,
	}
}

// Create inserts a new upload record into the database
func (r *uploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	query := `
		INSERT INTO uploads (id, content_type, size, url, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		upload.ID,
		upload.ContentType,
		upload.Size,
		upload.URL,
		upload.Category,
		upload.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload record: %w", err)
	}

	return nil
}

// GetByID retrieves an upload record by ID
func (r *uploadRepository) GetByID(ctx context.Context, id string) (*models.Upload, error) {
	query := `
		SELECT content_type, size, url, category, created_at
		FROM uploads
		WHERE id = ?
		LIMIT 1
	`

	upload := &models.Upload{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&upload.ContentType,
		&upload.Size,
		&upload.URL,
		&upload.Category,
		&upload.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upload by id: %w", err)
	}

	upload.ID = id
	return upload, nil
}

// DeleteByID deletes an upload record by ID
func (r *uploadRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM uploads WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete upload record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("upload not found")
	}

	return nil
}
