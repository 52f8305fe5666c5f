package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"solar-pricing/adapters/storage/migrations"
	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is the SQLite storage backend
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path, creating its
// directory when needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.Config("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, apperrors.Storage("failed to create storage directory", err).WithContext("path", cleanPath)
	}

	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Storage("open sqlite db", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperrors.Storage("ping sqlite db", err).WithContext("path", cleanPath)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, apperrors.Storage("run migrations", err).WithContext("path", cleanPath)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveMatrix stores the upload and points the admin settings at it in one transaction.
func (s *SQLiteStore) SaveMatrix(ctx context.Context, upload *MatrixUpload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := upload.prepare(); err != nil {
		return err
	}
	findings, err := json.Marshal(nonNil(upload.Findings))
	if err != nil {
		return apperrors.Internal("encode findings", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO matrix_uploads (id, file_name, source, hash, data, row_count, column_count, valid, findings, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.ID, upload.FileName, string(upload.Source), upload.Hash, upload.Data,
		upload.Rows, upload.Columns, boolToInt(upload.Valid), string(findings),
		upload.CreatedAt.UTC().Format(timeFormat),
	); err != nil {
		return apperrors.Storage("insert matrix upload", err)
	}

	for key, value := range upload.settings() {
		if err := putSetting(ctx, tx, key, value, upload.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage("commit matrix upload", err)
	}
	return nil
}

// GetMatrix retrieves an upload by ID including its data.
func (s *SQLiteStore) GetMatrix(ctx context.Context, id string) (*MatrixUpload, error) {
	rows, err := s.queryUploads(ctx, true, 1, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound("matrix upload", id).WithContext("upload_id", id)
	}
	return rows[0], nil
}

// LatestMatrix returns the most recent upload including its data.
func (s *SQLiteStore) LatestMatrix(ctx context.Context) (*MatrixUpload, error) {
	rows, err := s.queryUploads(ctx, true, 1, "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound("matrix upload", "latest")
	}
	return rows[0], nil
}

// ListMatrices returns upload metadata newest first, without file data.
func (s *SQLiteStore) ListMatrices(ctx context.Context, limit int) ([]*MatrixUpload, error) {
	return s.queryUploads(ctx, false, limit, "")
}

func (s *SQLiteStore) queryUploads(ctx context.Context, withData bool, limit int, where string, args ...any) ([]*MatrixUpload, error) {
	dataCol := "NULL"
	if withData {
		dataCol = "data"
	}
	query := `SELECT id, file_name, source, hash, ` + dataCol + `, row_count, column_count, valid, findings, created_at
FROM matrix_uploads`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Storage("query matrix uploads", err)
	}
	defer rows.Close()

	var out []*MatrixUpload
	for rows.Next() {
		var (
			u         MatrixUpload
			source    string
			valid     int
			findings  string
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.FileName, &source, &u.Hash, &u.Data,
			&u.Rows, &u.Columns, &valid, &findings, &createdAt); err != nil {
			return nil, apperrors.Storage("scan matrix upload", err)
		}
		u.Source = types.SourceKind(source)
		u.Valid = valid != 0
		if err := json.Unmarshal([]byte(findings), &u.Findings); err != nil {
			return nil, apperrors.Storage("decode findings", err)
		}
		if u.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
			return nil, apperrors.Storage("parse upload timestamp", err)
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate matrix uploads", err)
	}
	return out, nil
}

// GetSetting reads an admin setting.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM admin_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("setting", key).WithContext("key", key)
	}
	if err != nil {
		return nil, apperrors.Storage("read setting", err)
	}
	return value, nil
}

// PutSetting writes an admin setting.
func (s *SQLiteStore) PutSetting(ctx context.Context, key string, value []byte) error {
	return putSetting(ctx, s.db, key, value, time.Now().UTC())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putSetting(ctx context.Context, db execer, key string, value []byte, at time.Time) error {
	if strings.TrimSpace(key) == "" {
		return apperrors.Input("setting key is required")
	}
	if _, err := db.ExecContext(ctx,
		"INSERT OR REPLACE INTO admin_settings (key, value, last_modified) VALUES (?, ?, ?)",
		key, value, at.UTC().Format(timeFormat),
	); err != nil {
		return apperrors.Storage("write setting "+key, err)
	}
	return nil
}

// PutProduct inserts or replaces a catalog product.
func (s *SQLiteStore) PutProduct(ctx context.Context, product *types.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	attrs := product.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return apperrors.Input("product attributes must be JSON encodable")
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO products (id, model_name, attributes) VALUES (?, ?, ?)",
		product.ID, product.ModelName, string(encoded),
	); err != nil {
		return apperrors.Storage("write product", err)
	}
	return nil
}

// GetProduct retrieves a catalog product by id.
func (s *SQLiteStore) GetProduct(ctx context.Context, id int) (*types.Product, error) {
	var (
		p     = types.Product{ID: id}
		attrs string
	)
	err := s.db.QueryRowContext(ctx, "SELECT model_name, attributes FROM products WHERE id = ?", id).
		Scan(&p.ModelName, &attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("product", strconv.Itoa(id)).WithContext("product_id", id)
	}
	if err != nil {
		return nil, apperrors.Storage("read product", err)
	}
	if err := json.Unmarshal([]byte(attrs), &p.Attributes); err != nil {
		return nil, apperrors.Storage("decode product attributes", err)
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
