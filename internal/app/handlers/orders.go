package handlers

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/print-orders/internal/lib/csvexport"
	"github.com/linemk/print-orders/internal/service"
)

// multipartOverhead запас на поля формы и границы сверх лимита файла
const multipartOverhead = 1 << 20

// SubmitOrderResponse ответ на POST /orders
type SubmitOrderResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	URL     string `json:"url"`
}

// SubmitOrderHandler принимает multipart форму (name, email, phone, details, file).
// Поле file необязательно, форма без файла может прийти и как urlencoded.
func SubmitOrderHandler(log *slog.Logger, orders service.OrderService, maxFileSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SubmitOrderHandler"
		logger := log.With(slog.String("op", op))

		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+multipartOverhead)
		if err := parseForm(r); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				logger.Info("request body too large", slog.Int64("limit", tooLarge.Limit))
				writeFailure(w, logger, http.StatusRequestEntityTooLarge, service.ErrFileTooLarge.Error())
				return
			}
			logger.Info("invalid form", slog.Any("error", err))
			writeFailure(w, logger, http.StatusBadRequest, "invalid form")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		in := service.SubmitInput{
			Name:    r.FormValue("name"),
			Email:   r.FormValue("email"),
			Phone:   r.FormValue("phone"),
			Details: r.FormValue("details"),
		}

		var file *multipart.FileHeader
		if r.MultipartForm != nil {
			if fhs := r.MultipartForm.File["file"]; len(fhs) > 0 {
				file = fhs[0]
			}
		}

		res, err := orders.Submit(r.Context(), in, file)
		if err != nil {
			var verr *service.ValidationError
			switch {
			case errors.Is(err, service.ErrFileTooLarge):
				writeFailure(w, logger, http.StatusRequestEntityTooLarge, err.Error())
			case errors.As(err, &verr):
				writeFailure(w, logger, http.StatusBadRequest, verr.Error())
			case errors.Is(err, service.ErrCodeAllocationExhausted):
				logger.Error("code allocation exhausted", slog.Any("error", err))
				writeFailure(w, logger, http.StatusInternalServerError, "Could not allocate order code")
			default:
				logger.Error("failed to submit order", slog.Any("error", err))
				writeFailure(w, logger, http.StatusInternalServerError, "DB insert error")
			}
			return
		}

		writeJSON(w, logger, http.StatusOK, SubmitOrderResponse{Success: true, Code: res.Code, URL: res.URL})
	}
}

func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// ListOrdersHandler отдаёт все заказы, новые первыми
func ListOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		list, err := orders.List(r.Context())
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "DB error")
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

func ExportOrdersCSVHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ExportOrdersCSVHandler"
		logger := log.With(slog.String("op", op))

		list, err := orders.List(r.Context())
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "DB error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
		if err := csvexport.WriteOrders(w, list); err != nil {
			logger.Error("failed to write csv", slog.Any("error", err))
			return
		}
		logger.Debug("orders exported", slog.Int("count", len(list)))
	}
}

// GetOrderHandler отдаёт заказ по коду, сессия не требуется
func GetOrderHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		code := chi.URLParam(r, "code")
		order, err := orders.GetByCode(r.Context(), code)
		if err != nil {
			if errors.Is(err, service.ErrOrderNotFound) {
				writeError(w, logger, http.StatusNotFound, "Order not found")
				return
			}
			logger.Error("failed to get order", slog.String("code", code), slog.Any("error", err))
			writeError(w, logger, http.StatusInternalServerError, "DB error")
			return
		}
		writeJSON(w, logger, http.StatusOK, order)
	}
}
