package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"onthesis/ports"

	"github.com/jmoiron/sqlx"
)

// blobRow maps a row of dataset_blobs.
type blobRow struct {
	Key         string `db:"key"`
	Content     []byte `db:"content"`
	ContentType string `db:"content_type"`
}

// datasetBlobStore implements ports.BlobStore on the dataset_blobs table.
type datasetBlobStore struct {
	db *sqlx.DB
}

// NewDatasetBlobStore creates the durable dataset tier backed by Postgres.
func NewDatasetBlobStore(db *sqlx.DB) ports.BlobStore {
	return &datasetBlobStore{db: db}
}

// Connect opens and pings the database.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (r *datasetBlobStore) Provider() string { return "postgres" }

// Put upserts the blob under key.
func (r *datasetBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	query := `INSERT INTO dataset_blobs (key, content, content_type, updated_at)
		VALUES (:key, :content, :content_type, NOW())
		ON CONFLICT (key) DO UPDATE SET
			content = EXCLUDED.content,
			content_type = EXCLUDED.content_type,
			updated_at = NOW()`

	_, err := r.db.NamedExecContext(ctx, query, blobRow{Key: key, Content: data, ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	return nil
}

// Get retrieves a blob; an absent key yields ports.ErrBlobNotFound.
func (r *datasetBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var row blobRow
	err := r.db.GetContext(ctx, &row, `SELECT key, content, content_type FROM dataset_blobs WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return row.Content, nil
}

// Exists reports whether key is stored.
func (r *datasetBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM dataset_blobs WHERE key = $1)`, key)
	if err != nil {
		return false, fmt.Errorf("failed to check blob %s: %w", key, err)
	}
	return exists, nil
}

// Delete removes key; deleting an absent key is not an error.
func (r *datasetBlobStore) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dataset_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
