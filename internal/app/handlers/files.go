package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/linemk/print-orders/internal/uploads"
)

// FileOpener открывает сохранённые вложения по имени
type FileOpener interface {
	Open(name string) (*os.File, error)
}

// UploadHandler отдаёт вложение заказа. Тип определяется по содержимому, файлы хранятся без расширения.
func UploadHandler(log *slog.Logger, files FileOpener) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UploadHandler"
		logger := log.With(slog.String("op", op))

		name := chi.URLParam(r, "filename")
		f, err := files.Open(name)
		if err != nil {
			if errors.Is(err, uploads.ErrFileNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to open upload", slog.String("filename", name), slog.Any("error", err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			logger.Error("failed to stat upload", slog.Any("error", err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		mt, err := mimetype.DetectReader(f)
		if err != nil {
			logger.Error("failed to detect type", slog.Any("error", err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			logger.Error("failed to rewind upload", slog.Any("error", err))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", mt.String())
		// svg может содержать скрипты
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}

// PageHandler отдаёт одну HTML страницу из каталога статики
func PageHandler(log *slog.Logger, staticDir, page string) http.HandlerFunc {
	path := filepath.Join(staticDir, page)
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(path); err != nil {
			log.Error("page not available", slog.String("op", "handlers.PageHandler"), slog.String("page", page), slog.Any("error", err))
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, path)
	}
}

// StaticHandler отдаёт остальные файлы из каталога статики
func StaticHandler(staticDir string) http.Handler {
	return http.FileServer(http.Dir(staticDir))
}
