package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/pdfview/internal/config"
	"github.com/ivlev/pdfview/internal/source"
)

func TestOpenSourceDemo(t *testing.T) {
	cfg := config.Default()
	cfg.DemoPages = 2
	src, err := openSource(cfg)
	if err != nil {
		t.Fatalf("openSource failed: %v", err)
	}
	if _, ok := src.(*source.QRSource); !ok || src.PageCount() != 2 {
		t.Errorf("Expected 2-page QR source, got %T", src)
	}
}

func TestOpenSourceEmptyInputDir(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := openSource(config.Default()); err == nil {
		t.Fatal("Expected error for empty input/pdf")
	}
	if fi, err := os.Stat(filepath.Join("input", "pdf")); err != nil || !fi.IsDir() {
		t.Errorf("Expected input/pdf to be created, got %v", err)
	}
}

func TestOpenSourceInputDirNotCreatable(t *testing.T) {
	t.Chdir(t.TempDir())
	// A file named "input" makes the directory impossible to create.
	if err := os.WriteFile("input", nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := openSource(config.Default()); err == nil {
		t.Fatal("Expected MkdirAll error")
	}
}
