package ps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		path string
		want urlScheme
	}{
		{"s3://bucket/key", schemeS3},
		{"S3://bucket/key", schemeS3},
		{"https://example.com/x", schemeHTTPS},
		{"http://example.com/x", schemeHTTP},
		{"file:///tmp/x", schemeFile},
		{"/tmp/x", schemeLocal},
		{"relative/x", schemeLocal},
	}
	for _, tt := range tests {
		if got := detectScheme(tt.path); got != tt.want {
			t.Errorf("detectScheme(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://my-bucket/indexes/users.name")
	if err != nil {
		t.Fatalf("parseS3URL failed: %v", err)
	}
	if bucket != "my-bucket" || key != "indexes/users.name" {
		t.Errorf("Got bucket %s key %s", bucket, key)
	}

	for _, bad := range []string{"s3://bucket", "s3:///key", "s3://bucket/"} {
		if _, _, err := parseS3URL(bad); !errors.Is(err, ErrUnsupportedURL) {
			t.Errorf("parseS3URL(%q): expected ErrUnsupportedURL, got %v", bad, err)
		}
	}
}

func TestExportImportFile(t *testing.T) {
	ctx := context.Background()
	im := newTestManager(t)
	idx, err := im.CreateIndex("idx_name", "testdb", "users", "name", false)
	if err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	dir := t.TempDir()
	for _, url := range []string{filepath.Join(dir, "plain.idx"), "file://" + filepath.Join(dir, "url.idx")} {
		if err := im.ExportIndex(ctx, idx, url); err != nil {
			t.Fatalf("ExportIndex(%s) failed: %v", url, err)
		}

		other := newTestManager(t)
		got, err := other.ImportIndex(ctx, url)
		if err != nil {
			t.Fatalf("ImportIndex(%s) failed: %v", url, err)
		}
		if !slices.Equal(got.Entries(), idx.Entries()) {
			t.Errorf("Entries differ after import: %v", got.Entries())
		}
		if registered, ok := other.GetIndex("testdb", "users", "name"); !ok || registered != got {
			t.Error("Imported index should be registered")
		}
	}
}

func TestImportReplacesLoadedIndex(t *testing.T) {
	ctx := context.Background()
	im := newTestManager(t)
	idx, _ := im.CreateIndex("idx_name", "testdb", "users", "name", false)

	path := filepath.Join(t.TempDir(), "snap.idx")
	if err := im.ExportIndex(ctx, idx, path); err != nil {
		t.Fatalf("ExportIndex failed: %v", err)
	}
	idx.Insert("Zed", "9")

	got, err := im.ImportIndex(ctx, path)
	if err != nil {
		t.Fatalf("ImportIndex failed: %v", err)
	}
	if got.Lookup("Zed") != nil {
		t.Error("Imported snapshot should not contain later inserts")
	}
	if current, _ := im.GetIndex("testdb", "users", "name"); current != got {
		t.Error("Imported index should replace the loaded one")
	}
}

func TestImportHTTP(t *testing.T) {
	ctx := context.Background()
	im := newTestManager(t)
	idx, _ := im.CreateIndex("idx_age", "testdb", "users", "age", false)

	path := filepath.Join(t.TempDir(), "age.idx")
	if err := im.ExportIndex(ctx, idx, path); err != nil {
		t.Fatalf("ExportIndex failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/age.idx" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer server.Close()

	other := newTestManager(t)
	got, err := other.ImportIndex(ctx, server.URL+"/age.idx")
	if err != nil {
		t.Fatalf("ImportIndex over HTTP failed: %v", err)
	}
	if got.Len() != idx.Len() {
		t.Errorf("Expected %d entries, got %d", idx.Len(), got.Len())
	}

	if _, err := other.ImportIndex(ctx, server.URL+"/missing"); err == nil {
		t.Error("Expected error for a 404")
	}
	if err := other.ExportIndex(ctx, got, server.URL+"/age.idx"); !errors.Is(err, ErrUnsupportedURL) {
		t.Errorf("Expected ErrUnsupportedURL exporting over HTTP, got %v", err)
	}
}

func TestImportCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.idx")
	if err := os.WriteFile(path, []byte("junk"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	im := newTestManager(t)
	if _, err := im.ImportIndex(context.Background(), path); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Expected ErrCorruptSnapshot, got %v", err)
	}
}
