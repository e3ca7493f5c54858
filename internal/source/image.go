package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ImageSource treats a directory of images (or a single image) as a
// document, one page per file in name order. Pixel size equals point size.
type ImageSource struct {
	root  string
	mu    sync.RWMutex
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	s := &ImageSource{root: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rescans the directory.
func (s *ImageSource) Reload() error {
	paths, err := scanImages(s.root)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()
	return nil
}

func scanImages(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *ImageSource) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

func (s *ImageSource) path(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.paths) {
		return "", fmt.Errorf("%w: %d", ErrPageRange, index)
	}
	return s.paths[index], nil
}

func (s *ImageSource) PageSize(index int) (float64, float64, error) {
	path, err := s.path(index)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage decodes the image at its native size; Pixels scales it.
func (s *ImageSource) RenderPage(index int, _ float64) (image.Image, error) {
	path, err := s.path(index)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *ImageSource) Close() error {
	return nil
}
