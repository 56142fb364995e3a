package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subtraction-builder/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.DataDir == "" {
		t.Fatal("expected non-empty data dir")
	}
	if cfg.WorkDir == "" {
		t.Fatal("expected non-empty work dir")
	}
	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") {
		t.Fatalf("mongo uri = %q, want mongodb scheme", cfg.MongoURI)
	}
	if cfg.MongoDatabase == "" {
		t.Fatal("expected non-empty database name")
	}
	if cfg.Processes < 1 || cfg.Processes > maxDefaultProcs {
		t.Fatalf("processes = %d, want between 1 and %d", cfg.Processes, maxDefaultProcs)
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	store := NewJSONStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.DataDir == "" {
		t.Fatal("expected defaulted data dir")
	}
}

// TestJSONStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestJSONStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path)
	want := domain.Settings{
		DataDir:       "/srv/subtraction/data",
		WorkDir:       "/srv/subtraction/work",
		MongoURI:      "mongodb://db:27017",
		MongoDatabase: "subtractions",
		Processes:     4,
		Bowtie2Path:   "/opt/bowtie2/bowtie2-build",
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadFillsMissingFields checks older settings files normalize.
func TestJSONStoreLoadFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"dataDir":"/srv/data"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NewJSONStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.DataDir != "/srv/data" {
		t.Fatalf("data dir = %q, want /srv/data", got.DataDir)
	}
	if got.WorkDir == "" {
		t.Fatal("expected defaulted work dir")
	}
	if got.Processes < 1 {
		t.Fatalf("processes = %d, want at least 1", got.Processes)
	}
}

// TestJSONStoreLoadInvalidJSON checks parse error handling.
func TestJSONStoreLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected json parse error")
	}
}

// TestNormalizeKeepsEmptyMongoURI verifies the in-memory store selection survives.
func TestNormalizeKeepsEmptyMongoURI(t *testing.T) {
	got := Normalize(domain.Settings{DataDir: "/d", WorkDir: "/w", Processes: 2})
	if got.MongoURI != "" {
		t.Fatalf("mongo uri = %q, want empty", got.MongoURI)
	}
}
