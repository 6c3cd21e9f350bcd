package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLocalStoreWriteDay(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "intraday/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	ref := DayRef{
		Symbol: "AAPL",
		Date:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	data := []byte("fake parquet data for testing")
	if err := store.WriteDay(ctx, ref, data); err != nil {
		t.Fatalf("WriteDay failed: %v", err)
	}

	finalPath := filepath.Join(tmpDir, ref.Path("intraday/"))
	got, err := os.ReadFile(finalPath)
	if err != nil {
		t.Fatalf("failed to read day file: %v", err)
	}
	if string(got) != string(data) {
		t.Error("day file data mismatch")
	}

	// No temp file left behind.
	if _, err := os.Stat(finalPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be removed after write")
	}
}

func TestLocalStoreWriteManifest(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "intraday/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	ref := DayRef{
		Symbol: "MSFT",
		Date:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	manifest := &Manifest{
		Symbol:        "MSFT",
		Date:          "2024-03-20",
		BarCount:      390,
		Checksum:      "sha256:abc123",
		ByteSize:      1024,
		SchemaVersion: "1.0.0",
		RunID:         "run-1",
		CreatedAt:     time.Now(),
	}
	if err := store.WriteManifest(ctx, ref, manifest); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	manifestPath := filepath.Join(tmpDir, ref.ManifestPath("intraday/"))
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		t.Error("manifest file should exist")
	}
}

func TestLocalStoreExists(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "intraday/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	ref := DayRef{
		Symbol: "SPY",
		Date:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	exists, err := store.Exists(ctx, ref)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists should be false before any write")
	}

	if err := store.WriteDay(ctx, ref, []byte("data")); err != nil {
		t.Fatalf("WriteDay failed: %v", err)
	}

	exists, err = store.Exists(ctx, ref)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists should be true after WriteDay")
	}
}

func TestDayRefPaths(t *testing.T) {
	ref := DayRef{
		Symbol: "AAPL",
		Date:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	if got, want := ref.Path("intraday/"), "intraday/AAPL/raw/2024-03-20.parquet"; got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
	if got, want := ref.ManifestPath("intraday/"), "intraday/AAPL/raw/2024-03-20.manifest.json"; got != want {
		t.Errorf("ManifestPath() = %s, want %s", got, want)
	}
}

func TestLocalStoreURI(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewLocalStore(tmpDir, "")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer store.Close()

	uri := store.URI("AAPL/raw/2024-03-20.parquet")
	want := "file://" + filepath.Join(tmpDir, "AAPL/raw/2024-03-20.parquet")
	if uri != want {
		t.Errorf("URI() = %s, want %s", uri, want)
	}
}
