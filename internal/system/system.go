package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// ErrLowMemory возвращается, когда выделение поверхности опустило бы
// свободную память ниже заданного порога.
var ErrLowMemory = errors.New("недостаточно свободной памяти")

var documentExtensions = []string{".pdf", ".png", ".jpg", ".jpeg"}

// FindLatestDocument возвращает самый свежий PDF или изображение в папке dir.
func FindLatestDocument(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !isDocument(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено документов", dir)
	}

	return latestFile, nil
}

func isDocument(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// virtualMemory подменяется в тестах.
var virtualMemory = mem.VirtualMemory

// CheckMemory проверяет, что после выделения need байт останется не менее
// minFree байт доступной памяти. minFree == 0 отключает проверку.
func CheckMemory(need, minFree uint64) error {
	if minFree == 0 {
		return nil
	}
	vm, err := virtualMemory()
	if err != nil {
		// Без статистики не блокируем рендеринг
		return nil
	}
	if vm.Available < need || vm.Available-need < minFree {
		return fmt.Errorf("%w: нужно %d байт, доступно %d, резерв %d", ErrLowMemory, need, vm.Available, minFree)
	}
	return nil
}

// MemoryReport возвращает строку для отчета о производительности.
func MemoryReport() string {
	vm, err := virtualMemory()
	if err != nil {
		return fmt.Sprintf("Memory: unavailable (%v)", err)
	}
	return fmt.Sprintf("Memory: %.1f%% used, %d MiB available of %d MiB",
		vm.UsedPercent, vm.Available>>20, vm.Total>>20)
}
