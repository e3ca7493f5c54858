package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, false, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var changes atomic.Int32
	changed := make(chan struct{}, 4)
	w.OnChange = func() {
		changes.Add(1)
		changed <- struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Unrelated files in the same directory are ignored.
	os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644)
	for i := 0; i < 3; i++ {
		os.WriteFile(path, []byte("v2"), 0644)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange was not called")
	}
	time.Sleep(150 * time.Millisecond)
	if n := changes.Load(); n != 1 {
		t.Errorf("Expected one debounced change, got %d", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestNewMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope", "doc.pdf"), false, 0); err == nil {
		t.Error("Expected error for missing directory")
	}
}
