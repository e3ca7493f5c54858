package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/pdfview/internal/config"
	"github.com/ivlev/pdfview/internal/display"
	"github.com/ivlev/pdfview/internal/document"
	"github.com/ivlev/pdfview/internal/layout"
	"github.com/ivlev/pdfview/internal/render"
	"github.com/ivlev/pdfview/internal/source"
	"github.com/ivlev/pdfview/internal/system"
	"github.com/ivlev/pdfview/internal/watch"
)

var ErrNotStarted = errors.New("viewer: session not started")

// Session - корневой объект приложения: владеет открытым документом и всеми
// компонентами, которые его рендерят и показывают. Один документ за раз.
// Методы вызываются из одной (основной) горутины.
type Session struct {
	Config *config.Config
	Source source.Source
	Log    *slog.Logger

	doc       *document.Document
	loop      *display.Loop
	sink      *display.Sink
	scheduler *render.Scheduler
	viewport  *layout.Viewport

	cancel context.CancelFunc
	group  *errgroup.Group

	startTime time.Time
	exports   int
}

func NewSession(cfg *config.Config, src source.Source, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{Config: cfg, Source: src, Log: log}
}

func (s *Session) documentName() string {
	if s.Config.InputPath == "" {
		return "demo"
	}
	return filepath.Base(s.Config.InputPath)
}

// Start измеряет документ, запускает цикл отображения и воркер рендеринга.
// При ошибке все уже запущенное останавливается.
func (s *Session) Start(ctx context.Context) error {
	s.startTime = time.Now()

	doc, err := document.Open(s.documentName(), s.Source, s.Config.Scale)
	if err != nil {
		return err
	}
	s.doc = doc

	ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	s.loop = display.NewLoop(64)
	g.Go(func() error { return s.loop.Run(gctx) })
	s.sink = display.NewSink(s.loop)

	opts := []render.Option{render.WithDocument(doc)}
	if s.Config.MinFreeMB > 0 {
		reserve := s.Config.MinFreeMB << 20
		opts = append(opts, render.WithMemoryCheck(func(need uint64) error {
			return system.CheckMemory(need, reserve)
		}))
	}
	sched, err := render.Init(gctx, source.NewPixels(s.Source), s.sink, opts...)
	if err != nil {
		s.cancel()
		g.Wait()
		return fmt.Errorf("render init: %w", err)
	}
	s.scheduler = sched

	s.viewport = layout.NewViewport(sched, s.Config.ViewportHeight, s.Config.PageGap)
	s.viewport.SetDocument(doc)
	sched.SetRefresher(s.viewport)
	return nil
}

func (s *Session) Document() *document.Document { return s.doc }

func (s *Session) Scheduler() *render.Scheduler { return s.scheduler }

func (s *Session) Sink() *display.Sink { return s.sink }

// Scroll сдвигает окно просмотра и возвращает число страниц, поставленных в очередь.
func (s *Session) Scroll(offset int) int {
	if s.viewport == nil {
		return 0
	}
	return s.viewport.ScrollTo(offset)
}

// RenderAll сбрасывает все страницы и заново рендерит видимые.
func (s *Session) RenderAll() {
	if s.scheduler == nil {
		return
	}
	s.scheduler.RenderAll()
}

// Prefetch ставит в очередь все страницы документа, в том числе невидимые.
func (s *Session) Prefetch() int {
	if s.scheduler == nil {
		return 0
	}
	n := 0
	for _, p := range s.doc.Pages() {
		if s.scheduler.RenderPage(p) {
			n++
		}
	}
	return n
}

// Zoom меняет масштаб документа. Размеры страниц меняются под их
// собственными блокировками, затем видимое рендерится заново.
func (s *Session) Zoom(scale float64) error {
	if s.scheduler == nil {
		return ErrNotStarted
	}
	if scale <= 0 {
		return fmt.Errorf("invalid scale %v", scale)
	}
	s.doc.SetScale(scale)
	s.scheduler.RenderAll()
	return nil
}

// Reload перечитывает источник после изменения файла и перерисовывает.
// Если изменилось число страниц, документ открывается заново.
func (s *Session) Reload(ctx context.Context) error {
	if s.scheduler == nil {
		return ErrNotStarted
	}
	if r, ok := s.Source.(source.Reloader); ok {
		if err := r.Reload(); err != nil {
			return fmt.Errorf("reload: %w", err)
		}
	}
	if n := s.Source.PageCount(); n != s.doc.PageCount() {
		s.Log.Info("page count changed, reopening document", "was", s.doc.PageCount(), "now", n)
		return s.reopen(ctx)
	}
	if err := s.doc.Remeasure(s.Source); err != nil {
		return err
	}
	s.scheduler.RenderAll()
	return nil
}

// reopen заменяет документ новым. Страницы старого документа, еще стоящие
// в очереди, дорендериваются до сброса контейнеров, чтобы их поверхности
// не попали в новый документ.
func (s *Session) reopen(ctx context.Context) error {
	doc, err := document.Open(s.documentName(), s.Source, s.doc.Scale())
	if err != nil {
		return err
	}
	if err := s.WaitIdle(ctx); err != nil {
		return err
	}
	if err := s.sink.Reset(ctx); err != nil {
		return err
	}
	s.doc = doc
	s.scheduler.SetDocument(doc)
	s.viewport.SetDocument(doc)
	s.scheduler.RenderAll()
	return nil
}

// WaitIdle ждет, пока в планировщике не останется ни очереди, ни текущего рендеринга.
func (s *Session) WaitIdle(ctx context.Context) error {
	if s.scheduler == nil {
		return ErrNotStarted
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !s.scheduler.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Export сохраняет показанные страницы в выходную папку.
func (s *Session) Export(ctx context.Context) ([]string, error) {
	if s.sink == nil {
		return nil, ErrNotStarted
	}
	paths, err := s.sink.Export(ctx, s.Config.OutputDir)
	if err == nil {
		s.exports++
	}
	return paths, err
}

// Watch перерисовывает документ при каждом изменении файла, пока ctx не отменен.
func (s *Session) Watch(ctx context.Context) error {
	path := s.Config.InputPath
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	debounce := watch.DefaultDebounce
	if s.Config.WatchDebounce != "" {
		if debounce, err = time.ParseDuration(s.Config.WatchDebounce); err != nil {
			return fmt.Errorf("watch_debounce: %w", err)
		}
	}
	w, err := watch.New(path, fi.IsDir(), debounce)
	if err != nil {
		return err
	}
	w.OnChange = func() {
		s.Log.Info("document changed, reloading", "path", path)
		if err := s.Reload(ctx); err != nil {
			s.Log.Warn("reload failed", "err", err)
			return
		}
		if err := s.WaitIdle(ctx); err != nil {
			return
		}
		if _, err := s.Export(ctx); err != nil {
			s.Log.Warn("export failed", "err", err)
		}
	}
	w.OnError = func(err error) {
		s.Log.Warn("watch error", "err", err)
	}
	fmt.Printf("[*] Отслеживание изменений: %s (Ctrl+C для выхода)\n", path)
	return w.Run(ctx)
}

// Run - основной сценарий без окна: показать заданную область, дождаться
// рендеринга, сохранить страницы и при необходимости следить за файлом.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Close()

	fmt.Println("--- [PDFVIEW: RENDER SCHEDULER] ---")
	fmt.Printf("[*] Документ: %s | Страниц: %d | Масштаб: %.2f\n", s.doc.Name, s.doc.PageCount(), s.doc.Scale())
	fmt.Printf("[*] Окно просмотра: %dpx, смещение %dpx\n", s.Config.ViewportHeight, s.Config.ScrollOffset)
	fmt.Println("-----------------------------------")

	queued := s.Scroll(s.Config.ScrollOffset)
	if s.Config.RenderAll {
		queued += s.Prefetch()
	}
	fmt.Printf("[*] В очереди на рендеринг: %d\n", queued)

	if err := s.WaitIdle(ctx); err != nil {
		return err
	}
	paths, err := s.Export(ctx)
	if err != nil {
		return fmt.Errorf("ошибка экспорта: %w", err)
	}
	fmt.Printf("[>] Готово страниц: %d -> %s\n", len(paths), s.Config.OutputDir)

	if s.Config.ShowStats {
		fmt.Print(s.Report())
	}

	if s.Config.Watch {
		return s.Watch(ctx)
	}
	return nil
}

// Report формирует отчет о производительности.
func (s *Session) Report() string {
	if s.scheduler == nil {
		return ""
	}
	st := s.scheduler.Stats()
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendered: %d\n"+
			"Failed: %d\n"+
			"Queued: %d (worker %s)\n"+
			"Presented: %d\n"+
			"Exports: %d\n"+
			"%s\n"+
			"----------------------------\n",
		s.Config.BuildVersion, time.Since(s.startTime).Seconds(),
		st.Rendered, st.Failed, st.Queued, st.State, s.sink.Presented(), s.exports,
		system.MemoryReport(),
	)
}

// Close сначала останавливает воркер (он может ждать цикл отображения),
// затем сам цикл.
func (s *Session) Close() error {
	var err error
	if s.scheduler != nil {
		err = s.scheduler.Shutdown()
	}
	if s.cancel != nil {
		s.cancel()
		if werr := s.group.Wait(); err == nil {
			err = werr
		}
	}
	return err
}
