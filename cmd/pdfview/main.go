package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/pdfview/internal/config"
	"github.com/ivlev/pdfview/internal/logging"
	"github.com/ivlev/pdfview/internal/render"
	"github.com/ivlev/pdfview/internal/source"
	"github.com/ivlev/pdfview/internal/system"
	"github.com/ivlev/pdfview/internal/viewer"
)

// version задается при сборке: -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	flags      = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "pdfview",
	Short: "Фоновый рендеринг страниц PDF в окно просмотра",
	Long: `pdfview открывает PDF (или папку с изображениями), рендерит видимые
страницы в фоновом потоке и сохраняет готовые страницы в PNG.

Без --input берется самый свежий файл из input/pdf/.
--demo N генерирует документ из N страниц с QR-кодами.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML файл настроек")
	f.StringVarP(&flags.InputPath, "input", "i", "", "Путь к PDF или папке с изображениями")
	f.StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Папка для готовых страниц")
	f.Float64Var(&flags.Scale, "scale", flags.Scale, "Масштаб (1.0 = 72 DPI)")
	f.IntVar(&flags.ViewportHeight, "viewport", flags.ViewportHeight, "Высота окна просмотра, px")
	f.IntVar(&flags.ScrollOffset, "offset", 0, "Смещение прокрутки, px")
	f.BoolVar(&flags.RenderAll, "all", false, "Рендерить все страницы, а не только видимые")
	f.BoolVarP(&flags.Watch, "watch", "w", false, "Перерисовывать при изменении файла")
	f.IntVar(&flags.DemoPages, "demo", 0, "Демо-документ из N страниц с QR-кодами")
	f.BoolVar(&flags.ShowStats, "stats", false, "Показать отчет о производительности")
	f.StringVar(&flags.LogFile, "log-file", "", "Писать лог в файл (с ротацией)")
	f.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Уровень лога: debug, info, warn, error")
}

// loadConfig читает файл настроек, затем применяет явно заданные флаги.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	set := cmd.Flags().Changed
	if set("input") {
		cfg.InputPath = flags.InputPath
	}
	if set("output") {
		cfg.OutputDir = flags.OutputDir
	}
	if set("scale") {
		cfg.Scale = flags.Scale
	}
	if set("viewport") {
		cfg.ViewportHeight = flags.ViewportHeight
	}
	if set("offset") {
		cfg.ScrollOffset = flags.ScrollOffset
	}
	if set("all") {
		cfg.RenderAll = flags.RenderAll
	}
	if set("watch") {
		cfg.Watch = flags.Watch
	}
	if set("demo") {
		cfg.DemoPages = flags.DemoPages
	}
	if set("stats") {
		cfg.ShowStats = flags.ShowStats
	}
	if set("log-file") {
		cfg.LogFile = flags.LogFile
	}
	if set("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	cfg.BuildVersion = version
	return cfg, cfg.Validate()
}

func openSource(cfg *config.Config) (source.Source, error) {
	if cfg.DemoPages > 0 {
		fmt.Printf("[*] Демо-документ: %d страниц\n", cfg.DemoPages)
		return source.NewQRSource("pdfview demo", cfg.DemoPages), nil
	}
	if cfg.InputPath == "" {
		if err := os.MkdirAll("input/pdf", 0755); err != nil {
			return nil, err
		}
		latest, err := system.FindLatestDocument("input/pdf")
		if err != nil {
			return nil, fmt.Errorf("%w. Положите PDF в input/pdf/", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
	}
	return source.Open(cfg.InputPath)
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("настройки: %w", err)
	}
	if cfg.Watch && cfg.DemoPages > 0 {
		return errors.New("--watch не работает с --demo")
	}

	logger, closer := logging.New(cfg.LogFile, cfg.LogLevel)
	defer closer.Close()
	render.SetLogger(logger)

	src, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации источника: %w", err)
	}
	defer src.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := viewer.NewSession(cfg, src, logger)
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("[+++] Успех! Страницы сохранены в %s\n", cfg.OutputDir)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка: %v\n", err)
		os.Exit(1)
	}
}
