// Package resolver maps storage product ids to the column names used by
// the price matrix. Any failure resolves to "Ohne Speicher".
package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"solar-pricing/core/types"
	"solar-pricing/internal/logging"
)

var noStorageSynonyms = map[string]bool{
	"ohne speicher": true,
	"kein speicher": true,
	"no storage":    true,
	"ohne":          true,
	"none":          true,
	"null":          true,
	"":              true,
}

// StorageModelResolver resolves storage ids through a product lookup and
// remembers every successful resolution for its lifetime.
type StorageModelResolver struct {
	cache  map[string]string
	logger *zap.Logger

	mu sync.RWMutex
}

// Option configures a StorageModelResolver
type Option func(*StorageModelResolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *StorageModelResolver) {
		r.logger = logger
	}
}

// CacheStats describes the resolver cache
type CacheStats struct {
	Size  int      `json:"cache_size"`
	Items []string `json:"cached_items"`
}

// New creates a resolver with an empty cache
func New(opts ...Option) *StorageModelResolver {
	r := &StorageModelResolver{
		cache:  make(map[string]string),
		logger: logging.Named(logging.ComponentResolver),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(id int) string {
	return fmt.Sprintf("storage_%d", id)
}

// ResolveStorageName returns the model name for storageID, or "Ohne Speicher"
// when storage is excluded, the id is empty or malformed, the lookup fails or
// the product has no model name.
func (r *StorageModelResolver) ResolveStorageName(storageID string, includeStorage bool, lookup types.ProductLookup) string {
	if !includeStorage {
		r.logger.Debug("storage not included")
		return types.NoStorage
	}
	trimmed := strings.TrimSpace(storageID)
	if trimmed == "" {
		r.logger.Debug("no storage id provided")
		return types.NoStorage
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		r.logger.Warn("invalid storage id format", zap.String("storage_id", storageID))
		return types.NoStorage
	}

	key := cacheKey(id)
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		r.logger.Debug("storage name cache hit", zap.Int("storage_id", id), zap.String("model", cached))
		return cached
	}

	product := r.lookup(id, lookup)
	if product == nil {
		r.logger.Warn("storage product not found", zap.Int("storage_id", id))
		return types.NoStorage
	}
	name := strings.TrimSpace(product.ModelName)
	if name == "" {
		r.logger.Warn("storage product has no model name", zap.Int("storage_id", id))
		return types.NoStorage
	}

	r.mu.Lock()
	r.cache[key] = name
	r.mu.Unlock()

	r.logger.Debug("resolved storage id", zap.Int("storage_id", id), zap.String("model", name))
	return name
}

// lookup calls fn, treating an error or a panic as "not found".
func (r *StorageModelResolver) lookup(id int, fn types.ProductLookup) (product *types.Product) {
	if fn == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("product lookup panicked", zap.Int("storage_id", id), zap.Any("panic", rec))
			product = nil
		}
	}()

	p, err := fn(id)
	if err != nil {
		r.logger.Error("product lookup failed", zap.Int("storage_id", id), zap.Error(err))
		return nil
	}
	return p
}

// NormalizeStorageName trims name and maps "no storage" synonyms to "Ohne Speicher".
func NormalizeStorageName(name string) string {
	trimmed := strings.TrimSpace(name)
	if noStorageSynonyms[strings.ToLower(trimmed)] {
		return types.NoStorage
	}
	return trimmed
}

// NormalizeStorageName is the method form of the package function.
func (r *StorageModelResolver) NormalizeStorageName(name string) string {
	return NormalizeStorageName(name)
}

// ValidateStorageNameInMatrix picks the matrix column for name. An exact
// case-insensitive match reports true; a substring match in either direction
// returns that model with false; otherwise "Ohne Speicher" with false.
func (r *StorageModelResolver) ValidateStorageNameInMatrix(name string, availableModels []string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" || len(availableModels) == 0 {
		return types.NoStorage, false
	}

	for _, model := range availableModels {
		if strings.ToLower(strings.TrimSpace(model)) == want {
			return model, true
		}
	}
	for _, model := range availableModels {
		m := strings.ToLower(strings.TrimSpace(model))
		if m == "" {
			continue
		}
		if strings.Contains(m, want) || strings.Contains(want, m) {
			r.logger.Info("partial storage match", zap.String("storage", name), zap.String("model", model))
			return model, false
		}
	}

	r.logger.Warn("storage model not in matrix, using no-storage column",
		zap.String("storage", name), zap.Strings("available", availableModels))
	return types.NoStorage, false
}

// ClearCache forgets every resolved id.
func (r *StorageModelResolver) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]string)
}

// CacheStats returns the cache size and its keys in sorted order.
func (r *StorageModelResolver) CacheStats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]string, 0, len(r.cache))
	for k := range r.cache {
		items = append(items, k)
	}
	sort.Strings(items)
	return CacheStats{Size: len(r.cache), Items: items}
}

// ResolveStorageModelName resolves a single id with a throwaway resolver.
func ResolveStorageModelName(storageID string, includeStorage bool, lookup types.ProductLookup) string {
	return New().ResolveStorageName(storageID, includeStorage, lookup)
}
