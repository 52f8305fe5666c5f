package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"solar-pricing/core/types"
	apperrors "solar-pricing/internal/errors"
)

func openTestSQLite(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "admin.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store, path
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, _ := openTestSQLite(t)
		fn(t, s)
	})
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpenSQLiteRunsMigrations(t *testing.T) {
	_, path := openTestSQLite(t)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, table := range []string{"admin_settings", "matrix_uploads", "products", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Reopening must not reapply migrations.
	again, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;"
	if got := extractUpMigration(content); got != "\nCREATE TABLE a (id INTEGER);\n" {
		t.Errorf("got %q", got)
	}
	if got := extractUpMigration("SELECT 1;"); got != "SELECT 1;" {
		t.Errorf("content without markers should pass through, got %q", got)
	}
}

func TestSaveAndListMatrices(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

		first := &MatrixUpload{
			FileName: "matrix.xlsx", Source: types.SourceExcel, Hash: "aaa",
			Data: []byte("xlsx-bytes"), Rows: 4, Columns: 3, Valid: true, CreatedAt: base,
		}
		second := &MatrixUpload{
			FileName: "matrix.csv", Source: types.SourceCSV, Hash: "bbb",
			Data: []byte("Anzahl Module;Ohne Speicher\n10;1"), Rows: 1, Columns: 1,
			Findings: []string{"CSV validation: something"}, CreatedAt: base.Add(time.Minute),
		}
		for _, u := range []*MatrixUpload{first, second} {
			if err := s.SaveMatrix(ctx, u); err != nil {
				t.Fatalf("SaveMatrix: %v", err)
			}
			if u.ID == "" {
				t.Fatal("SaveMatrix should assign an id")
			}
		}

		list, err := s.ListMatrices(ctx, 0)
		if err != nil {
			t.Fatalf("ListMatrices: %v", err)
		}
		if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
			t.Fatalf("list order wrong: %+v", list)
		}
		if list[0].Valid || len(list[0].Findings) != 1 || !list[1].Valid {
			t.Errorf("metadata not preserved: %+v %+v", list[0], list[1])
		}

		limited, _ := s.ListMatrices(ctx, 1)
		if len(limited) != 1 {
			t.Errorf("limit ignored: %d", len(limited))
		}

		latest, err := s.LatestMatrix(ctx)
		if err != nil {
			t.Fatalf("LatestMatrix: %v", err)
		}
		if latest.ID != second.ID || string(latest.Data) != string(second.Data) || !latest.CreatedAt.Equal(second.CreatedAt) {
			t.Errorf("latest = %+v", latest)
		}

		byID, err := s.GetMatrix(ctx, first.ID)
		if err != nil || string(byID.Data) != "xlsx-bytes" || byID.Source != types.SourceExcel {
			t.Errorf("GetMatrix = %+v, %v", byID, err)
		}
		_, err = s.GetMatrix(ctx, "nope")
		if !apperrors.IsType(err, apperrors.TypeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Context["upload_id"] != "nope" {
			t.Errorf("not found error should carry the upload id, got %+v", appErr)
		}

		source, err := s.GetSetting(ctx, SettingMatrixSource)
		if err != nil || string(source) != "CSV" {
			t.Errorf("source setting = %q, %v", source, err)
		}
		excel, err := s.GetSetting(ctx, SettingExcelBytes)
		if err != nil || string(excel) != "xlsx-bytes" {
			t.Errorf("excel setting = %q, %v", excel, err)
		}
	})
}

func TestSaveMatrixRejectsBadInput(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		tests := []struct {
			name   string
			upload *MatrixUpload
		}{
			{"nil", nil},
			{"no data", &MatrixUpload{Source: types.SourceCSV}},
			{"no source", &MatrixUpload{Data: []byte("x"), Source: types.SourceNone}},
		}
		for _, tt := range tests {
			if err := s.SaveMatrix(ctx, tt.upload); !apperrors.IsType(err, apperrors.TypeInput) {
				t.Errorf("%s: expected input error, got %v", tt.name, err)
			}
		}
	})
}

func TestLatestMatrixEmpty(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.LatestMatrix(context.Background())
		if !apperrors.IsType(err, apperrors.TypeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestSettings(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, err := s.GetSetting(ctx, "missing"); !apperrors.IsType(err, apperrors.TypeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if err := s.PutSetting(ctx, "vat", []byte("19")); err != nil {
			t.Fatalf("PutSetting: %v", err)
		}
		if err := s.PutSetting(ctx, "vat", []byte("7")); err != nil {
			t.Fatalf("PutSetting: %v", err)
		}
		if v, err := s.GetSetting(ctx, "vat"); err != nil || string(v) != "7" {
			t.Errorf("GetSetting = %q, %v", v, err)
		}
	})
}

func TestProductsAndLookup(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		product := &types.Product{
			ID: 101, ModelName: "Tesla Powerwall 2",
			Attributes: map[string]any{"capacity_kwh": 13.5},
		}
		if err := s.PutProduct(ctx, product); err != nil {
			t.Fatalf("PutProduct: %v", err)
		}
		if err := s.PutProduct(ctx, &types.Product{ID: 0}); err == nil {
			t.Error("non-positive id should be rejected")
		}

		got, err := s.GetProduct(ctx, 101)
		if err != nil {
			t.Fatalf("GetProduct: %v", err)
		}
		if got.ModelName != "Tesla Powerwall 2" || got.Attributes["capacity_kwh"] != 13.5 {
			t.Errorf("product = %+v", got)
		}

		lookup := ProductLookup(ctx, s)
		if p, err := lookup(101); err != nil || p == nil || p.ModelName != "Tesla Powerwall 2" {
			t.Errorf("lookup(101) = %+v, %v", p, err)
		}
		if p, err := lookup(5); err != nil || p != nil {
			t.Errorf("missing product should be (nil, nil), got %+v, %v", p, err)
		}

		_, err = s.GetProduct(ctx, 5)
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Context["product_id"] != 5 {
			t.Errorf("not found error should carry the product id, got %v", err)
		}
	})
}

func TestStoreFactory(t *testing.T) {
	s, err := StoreFactory(BackendMemory, nil)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	_ = s.Close()

	s, err = StoreFactory(BackendSQLite, map[string]string{"path": filepath.Join(t.TempDir(), "f.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	_ = s.Close()

	if _, err := StoreFactory("s3", nil); err == nil {
		t.Error("unknown backend should fail")
	}
}
