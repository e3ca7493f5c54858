package viewer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/pdfview/internal/config"
	"github.com/ivlev/pdfview/internal/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	cfg.Scale = 0.5
	cfg.ViewportHeight = 200
	cfg.PageGap = 8
	return cfg
}

func startSession(t *testing.T, cfg *config.Config, src source.Source) *Session {
	t.Helper()
	s := NewSession(cfg, src, quietLogger())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
}

func TestSessionRendersVisiblePages(t *testing.T) {
	s := startSession(t, testConfig(t), source.NewQRSource("demo", 3))

	// 128px pages with an 8px gap: pages 1 and 2 intersect a 200px view.
	if n := s.Scroll(0); n != 2 {
		t.Fatalf("Expected 2 pages queued, got %d", n)
	}
	waitIdle(t, s)

	doc := s.Document()
	if !doc.Page(0).Rendered() || !doc.Page(1).Rendered() {
		t.Error("Visible pages should be rendered")
	}
	if doc.Page(2).Rendered() {
		t.Error("Page outside the view should not be rendered")
	}

	paths, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected 2 exported pages, got %d", len(paths))
	}
	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 128 || cfg.Height != 128 {
		t.Errorf("Exported page is %dx%d, expected 128x128", cfg.Width, cfg.Height)
	}
}

func TestSessionPrefetchAndReport(t *testing.T) {
	s := startSession(t, testConfig(t), source.NewQRSource("demo", 3))

	if n := s.Prefetch(); n != 3 {
		t.Fatalf("Expected 3 pages queued, got %d", n)
	}
	waitIdle(t, s)

	if st := s.Scheduler().Stats(); st.Rendered != 3 || st.Failed != 0 {
		t.Errorf("Unexpected stats %+v", st)
	}
	report := s.Report()
	for _, want := range []string{"PERFORMANCE REPORT", "Rendered: 3", "Presented: 3"} {
		if !strings.Contains(report, want) {
			t.Errorf("Report missing %q:\n%s", want, report)
		}
	}
}

func TestSessionZoomRerenders(t *testing.T) {
	s := startSession(t, testConfig(t), source.NewQRSource("demo", 3))
	s.Scroll(0)
	waitIdle(t, s)

	if err := s.Zoom(1.0); err != nil {
		t.Fatalf("Zoom failed: %v", err)
	}
	waitIdle(t, s)

	img, ok, err := s.Sink().Snapshot(context.Background(), 0)
	if err != nil || !ok {
		t.Fatalf("Snapshot: ok=%v err=%v", ok, err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 256 {
		t.Errorf("Expected 256x256 after zoom, got %v", b)
	}
	if err := s.Zoom(0); err == nil {
		t.Error("Expected error for zero scale")
	}
}

func writeSolidPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestSessionReload(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page1.png")
	writeSolidPNG(t, page, 40, 30)

	src, err := source.NewImageSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.InputPath = dir
	cfg.Scale = 1
	s := startSession(t, cfg, src)
	s.Scroll(0)
	waitIdle(t, s)

	writeSolidPNG(t, page, 60, 50)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	waitIdle(t, s)

	img, ok, err := s.Sink().Snapshot(context.Background(), 0)
	if err != nil || !ok {
		t.Fatalf("Snapshot: ok=%v err=%v", ok, err)
	}
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 50 {
		t.Errorf("Expected 60x50 after reload, got %v", b)
	}
	if got := img.RGBAAt(0, 0); got.R != 255 || got.G != 0 {
		t.Errorf("Unexpected corner pixel %v", got)
	}
}

func TestSessionReloadReopensOnPageCountChange(t *testing.T) {
	dir := t.TempDir()
	writeSolidPNG(t, filepath.Join(dir, "page1.png"), 40, 30)

	src, err := source.NewImageSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.InputPath = dir
	cfg.Scale = 1
	s := startSession(t, cfg, src)
	s.Scroll(0)
	waitIdle(t, s)
	old := s.Document()

	writeSolidPNG(t, filepath.Join(dir, "page2.png"), 20, 10)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	waitIdle(t, s)

	doc := s.Document()
	if doc == old {
		t.Fatal("Expected a new document after the page count changed")
	}
	if doc.PageCount() != 2 {
		t.Fatalf("Expected 2 pages, got %d", doc.PageCount())
	}
	img, ok, err := s.Sink().Snapshot(context.Background(), 1)
	if err != nil || !ok {
		t.Fatalf("Snapshot of the new page: ok=%v err=%v", ok, err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("Expected 20x10 for the new page, got %v", b)
	}

	// Zoom and RenderAll now act on the reopened document.
	if err := s.Zoom(2); err != nil {
		t.Fatalf("Zoom failed: %v", err)
	}
	waitIdle(t, s)
	img, ok, err = s.Sink().Snapshot(context.Background(), 0)
	if err != nil || !ok {
		t.Fatalf("Snapshot after zoom: ok=%v err=%v", ok, err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("Expected 80x60 after zoom, got %v", b)
	}
}

func TestSessionNotStarted(t *testing.T) {
	s := NewSession(config.Default(), source.NewQRSource("demo", 1), nil)
	if err := s.WaitIdle(context.Background()); err != ErrNotStarted {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if _, err := s.Export(context.Background()); err != ErrNotStarted {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
	if err := s.Zoom(2); err != ErrNotStarted {
		t.Errorf("Zoom: expected ErrNotStarted, got %v", err)
	}
	if err := s.Reload(context.Background()); err != ErrNotStarted {
		t.Errorf("Reload: expected ErrNotStarted, got %v", err)
	}
	if n := s.Prefetch(); n != 0 {
		t.Errorf("Prefetch: expected 0, got %d", n)
	}
	if n := s.Scroll(100); n != 0 {
		t.Errorf("Scroll: expected 0, got %d", n)
	}
	if r := s.Report(); r != "" {
		t.Errorf("Report: expected empty report, got %q", r)
	}
	s.RenderAll()
	if err := s.Close(); err != nil {
		t.Errorf("Close on unstarted session: %v", err)
	}
}

func TestSessionRunExports(t *testing.T) {
	cfg := testConfig(t)
	cfg.RenderAll = true
	s := NewSession(cfg, source.NewQRSource("demo", 2), quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected 2 exported files, got %d", len(entries))
	}
}
