// Package storage persists uploaded price matrices and the storage product
// catalog. Backends: SQLite for the admin tool, memory for tests.
package storage

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Admin setting keys written on every matrix upload.
const (
	SettingMatrixSource = "price_matrix_source"
	SettingExcelBytes   = "price_matrix_excel_bytes"
	SettingExcelHash    = "price_matrix_excel_hash"
	SettingCSVText      = "price_matrix_csv_data"
	SettingCSVHash      = "price_matrix_csv_hash"
)

// Store is the storage interface
type Store interface {
	// SaveMatrix records an upload and makes it the active matrix
	SaveMatrix(ctx context.Context, upload *MatrixUpload) error

	// GetMatrix retrieves an upload by ID, including its data
	GetMatrix(ctx context.Context, id string) (*MatrixUpload, error)

	// LatestMatrix returns the most recent upload
	LatestMatrix(ctx context.Context) (*MatrixUpload, error)

	// ListMatrices returns uploads newest first; limit <= 0 means all
	ListMatrices(ctx context.Context, limit int) ([]*MatrixUpload, error)

	// GetSetting reads an admin setting
	GetSetting(ctx context.Context, key string) ([]byte, error)

	// PutSetting writes an admin setting
	PutSetting(ctx context.Context, key string, value []byte) error

	// PutProduct inserts or replaces a catalog product
	PutProduct(ctx context.Context, product *types.Product) error

	// GetProduct retrieves a catalog product by id
	GetProduct(ctx context.Context, id int) (*types.Product, error)

	// Close closes the store
	Close() error
}

// MatrixUpload is one stored matrix file
type MatrixUpload struct {
	// ID is unique identifier
	ID string `json:"id"`

	// FileName is the uploaded file's base name
	FileName string `json:"file_name"`

	// Source is Excel or CSV
	Source types.SourceKind `json:"source"`

	// Hash is the SHA-256 of Data
	Hash string `json:"hash"`

	// Data is the raw file content
	Data []byte `json:"-"`

	// Rows and Columns are the parsed shape
	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	// Valid is the upload validation verdict
	Valid bool `json:"valid"`

	// Findings from validation
	Findings []string `json:"findings,omitempty"`

	// CreatedAt timestamp
	CreatedAt time.Time `json:"created_at"`
}

// prepare fills the id and timestamp of a new upload.
func (u *MatrixUpload) prepare() error {
	if u == nil {
		return apperrors.Input("matrix upload is required")
	}
	if len(u.Data) == 0 {
		return apperrors.Input("matrix upload has no data")
	}
	if u.Source != types.SourceExcel && u.Source != types.SourceCSV {
		return apperrors.Newf(apperrors.TypeInput, "unsupported matrix source %q", u.Source)
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	return nil
}

// settings returns the admin settings that point at this upload.
func (u *MatrixUpload) settings() map[string][]byte {
	out := map[string][]byte{SettingMatrixSource: []byte(u.Source)}
	if u.Source == types.SourceExcel {
		out[SettingExcelBytes] = u.Data
		out[SettingExcelHash] = []byte(u.Hash)
	} else {
		out[SettingCSVText] = u.Data
		out[SettingCSVHash] = []byte(u.Hash)
	}
	return out
}

func validateProduct(product *types.Product) error {
	if product == nil {
		return apperrors.Input("product is required")
	}
	if product.ID <= 0 {
		return apperrors.Newf(apperrors.TypeInput, "product id must be positive, got %d", product.ID)
	}
	return nil
}

// ProductLookup adapts a store to the resolver's lookup callback.
// A missing product is reported as (nil, nil).
func ProductLookup(ctx context.Context, s Store) types.ProductLookup {
	return func(id int) (*types.Product, error) {
		p, err := s.GetProduct(ctx, id)
		if apperrors.IsType(err, apperrors.TypeNotFound) {
			return nil, nil
		}
		return p, err
	}
}

// MemoryStore is an in-memory storage backend (for testing)
type MemoryStore struct {
	uploads  map[string]*MatrixUpload
	settings map[string][]byte
	products map[int]*types.Product
	mu       sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:  make(map[string]*MatrixUpload),
		settings: make(map[string][]byte),
		products: make(map[int]*types.Product),
	}
}

func (s *MemoryStore) SaveMatrix(ctx context.Context, upload *MatrixUpload) error {
	if err := upload.prepare(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *upload
	stored.Data = append([]byte(nil), upload.Data...)
	stored.Findings = append([]string(nil), upload.Findings...)
	s.uploads[upload.ID] = &stored
	for k, v := range upload.settings() {
		s.settings[k] = append([]byte(nil), v...)
	}
	return nil
}

func (s *MemoryStore) GetMatrix(ctx context.Context, id string) (*MatrixUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.uploads[id]
	if !ok {
		return nil, apperrors.NotFound("matrix upload", id).WithContext("upload_id", id)
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) LatestMatrix(ctx context.Context) (*MatrixUpload, error) {
	list, err := s.ListMatrices(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperrors.NotFound("matrix upload", "latest")
	}
	return list[0], nil
}

func (s *MemoryStore) ListMatrices(ctx context.Context, limit int) ([]*MatrixUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*MatrixUpload, 0, len(s.uploads))
	for _, u := range s.uploads {
		c := *u
		results = append(results, &c)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *MemoryStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[key]
	if !ok {
		return nil, apperrors.NotFound("setting", key).WithContext("key", key)
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) PutSetting(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) PutProduct(ctx context.Context, product *types.Product) error {
	if err := validateProduct(product); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *product
	s.products[product.ID] = &c
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id int) (*types.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", strconv.Itoa(id)).WithContext("product_id", id)
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates stores by backend type
func StoreFactory(backend Backend, config map[string]string) (Store, error) {
	switch backend {
	case BackendSQLite:
		s, err := OpenSQLite(config["path"])
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, apperrors.Newf(apperrors.TypeConfig, "unsupported backend: %s", backend)
	}
}

// Ensure interfaces are implemented
var _ io.Closer = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
