// Package uploads хранит файлы, приложенные к заказам, в локальном каталоге.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/linemk/print-orders/internal/domain/models"
)

const DefaultMaxSize int64 = 8 << 20 // 8 MiB

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrFileNotFound = errors.New("file not found")
)

// допустимые типы: документы и изображения для печати
var allowedExtensions = map[string]bool{
	"pdf": true, "jpeg": true, "jpg": true, "png": true,
	"gif": true, "svg": true, "tif": true, "tiff": true,
}

var allowedMIME = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
	"image/tiff",
}

type Store struct {
	log     *slog.Logger
	dir     string
	maxSize int64
}

// NewStore создаёт каталог для файлов, если его ещё нет
func NewStore(log *slog.Logger, dir string, maxSize int64) (*Store, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads.NewStore: failed to create %s: %w", dir, err)
	}
	return &Store{log: log, dir: dir, maxSize: maxSize}, nil
}

func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Save копирует файл в каталог под случайным именем.
// Файлы неподходящего типа молча отбрасываются: возвращается nil без ошибки.
func (s *Store) Save(fh *multipart.FileHeader) (*models.OrderFile, error) {
	const op = "uploads.Store.Save"
	logger := s.log.With(slog.String("op", op), slog.String("original", fh.Filename))

	if fh.Size > s.maxSize {
		return nil, ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open upload: %w", op, err)
	}
	defer src.Close()

	ok, err := allowed(fh.Filename, src)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to detect type: %w", op, err)
	}
	if !ok {
		logger.Info("file type not allowed, dropping")
		return nil, nil
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%s: failed to rewind upload: %w", op, err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	path := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create file: %w", op, err)
	}

	// размер из заголовка сообщает клиент, поэтому считаем байты сами
	n, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > s.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Error("failed to remove partial file", slog.Any("error", rmErr))
		}
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: failed to write file: %w", op, err)
	}

	logger.Debug("file stored", slog.String("filename", name), slog.Int64("size", n))
	return &models.OrderFile{Filename: name, OriginalName: fh.Filename}, nil
}

// Open открывает сохранённый файл. Имена с путями не принимаются.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("uploads.Store.Open: %w", err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, ErrFileNotFound
	}
	return f, nil
}

// Remove удаляет файл; отсутствие файла ошибкой не считается
func (s *Store) Remove(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("uploads.Store.Remove: %w", err)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", ErrFileNotFound
	}
	return filepath.Join(s.dir, name), nil
}

// allowed пропускает файл, если подходит расширение или определённый по содержимому MIME-тип
func allowed(filename string, r io.Reader) (bool, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if allowedExtensions[ext] {
		return true, nil
	}

	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return false, err
	}
	for _, m := range allowedMIME {
		if mt.Is(m) {
			return true, nil
		}
	}
	return false, nil
}
