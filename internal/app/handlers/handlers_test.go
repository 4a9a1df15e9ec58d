package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/print-orders/internal/app/handlers"
	"github.com/linemk/print-orders/internal/domain/models"
	"github.com/linemk/print-orders/internal/service"
	"github.com/linemk/print-orders/internal/uploads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderService - фиктивная реализация OrderService
type fakeOrderService struct {
	submitRes  *service.SubmitResult
	submitErr  error
	gotInput   service.SubmitInput
	gotFile    *multipart.FileHeader
	orders     []*models.Order
	listErr    error
	byCode     map[string]*models.Order
	getErr     error
}

func (f *fakeOrderService) Submit(ctx context.Context, in service.SubmitInput, file *multipart.FileHeader) (*service.SubmitResult, error) {
	f.gotInput = in
	f.gotFile = file
	return f.submitRes, f.submitErr
}

func (f *fakeOrderService) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.byCode[code]
	if !ok {
		return nil, service.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderService) List(ctx context.Context) ([]*models.Order, error) {
	return f.orders, f.listErr
}

func (f *fakeOrderService) Wait() {}

type fakeAdmin struct{ err error }

func (f fakeAdmin) Login(ctx context.Context, user, pass string) error {
	if user == "admin" && pass == "secret" {
		return nil
	}
	if f.err != nil {
		return f.err
	}
	return service.ErrInvalidCredentials
}

type fakeSessions struct {
	loginErr  error
	loggedIn  bool
	loggedOut bool
}

func (f *fakeSessions) Login(ctx context.Context, w http.ResponseWriter) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	http.SetCookie(w, &http.Cookie{Name: "sid", Value: "token"})
	return nil
}

func (f *fakeSessions) Logout(w http.ResponseWriter, r *http.Request) error {
	f.loggedOut = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/orders", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var orderFields = map[string]string{
	"name":    "Jane",
	"email":   "jane@example.com",
	"phone":   "555",
	"details": "20 copies A4",
}

func TestSubmitOrderHandler_Success(t *testing.T) {
	svc := &fakeOrderService{submitRes: &service.SubmitResult{Code: "ABC234", URL: "/o/ABC234"}}
	handler := handlers.SubmitOrderHandler(testLogger(), svc, 1<<20)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, multipartRequest(t, orderFields, "brief.pdf", []byte("%PDF-1.4")))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"code":"ABC234","url":"/o/ABC234"}`, rr.Body.String())
	assert.Equal(t, "Jane", svc.gotInput.Name)
	assert.Equal(t, "20 copies A4", svc.gotInput.Details)
	require.NotNil(t, svc.gotFile)
	assert.Equal(t, "brief.pdf", svc.gotFile.Filename)
}

func TestSubmitOrderHandler_NoFile(t *testing.T) {
	svc := &fakeOrderService{submitRes: &service.SubmitResult{Code: "ABC234", URL: "/o/ABC234"}}
	handler := handlers.SubmitOrderHandler(testLogger(), svc, 1<<20)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, multipartRequest(t, orderFields, "", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, svc.gotFile)
}

func TestSubmitOrderHandler_URLEncoded(t *testing.T) {
	svc := &fakeOrderService{submitRes: &service.SubmitResult{Code: "ABC234", URL: "/o/ABC234"}}
	handler := handlers.SubmitOrderHandler(testLogger(), svc, 1<<20)

	form := url.Values{"name": {"Jane"}, "email": {"jane@example.com"}, "details": {"hello"}}
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", svc.gotInput.Details)
	assert.Nil(t, svc.gotFile)
}

func TestSubmitOrderHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"missing field", &service.ValidationError{Field: "name", Err: service.ErrMissingField}, http.StatusBadRequest, "name, email and details are required"},
		{"invalid email", &service.ValidationError{Field: "email", Err: service.ErrInvalidEmail}, http.StatusBadRequest, "invalid email"},
		{"short details", &service.ValidationError{Field: "details", Err: service.ErrDetailsTooShort}, http.StatusBadRequest, "details too short"},
		{"file too large", &service.ValidationError{Field: "file", Err: service.ErrFileTooLarge}, http.StatusRequestEntityTooLarge, "file too large"},
		{"exhausted", fmt.Errorf("op: %w", service.ErrCodeAllocationExhausted), http.StatusInternalServerError, "Could not allocate order code"},
		{"storage", errors.New("db down"), http.StatusInternalServerError, "DB insert error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeOrderService{submitErr: tt.err}
			handler := handlers.SubmitOrderHandler(testLogger(), svc, 1<<20)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, multipartRequest(t, orderFields, "", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp handlers.ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestSubmitOrderHandler_BodyTooLarge(t *testing.T) {
	svc := &fakeOrderService{submitRes: &service.SubmitResult{Code: "ABC234", URL: "/o/ABC234"}}
	handler := handlers.SubmitOrderHandler(testLogger(), svc, 1024)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, multipartRequest(t, orderFields, "big.pdf", bytes.Repeat([]byte("x"), 3<<20)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "file too large")
}

func TestListOrdersHandler(t *testing.T) {
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	svc := &fakeOrderService{orders: []*models.Order{
		{ID: 2, Code: "BBB234", Name: "B", Email: "b@example.com", Details: "hello", CreatedAt: created,
			File: &models.OrderFile{Filename: "f", OriginalName: "a.pdf"}},
		{ID: 1, Code: "AAA234", Name: "A", Email: "a@example.com", Details: "hello", CreatedAt: created},
	}}
	handler := handlers.ListOrdersHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "BBB234", got[0]["code"])
	assert.Equal(t, map[string]any{"filename": "f", "originalname": "a.pdf"}, got[0]["file"])
	assert.Nil(t, got[1]["file"])
}

func TestListOrdersHandler_Error(t *testing.T) {
	handler := handlers.ListOrdersHandler(testLogger(), &fakeOrderService{listErr: errors.New("boom")})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"DB error"}`, rr.Body.String())
}

func TestExportOrdersCSVHandler(t *testing.T) {
	svc := &fakeOrderService{orders: []*models.Order{
		{ID: 1, Code: "AAA234", Name: "A", Email: "a@example.com", Details: `He said "hi"`,
			CreatedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)},
	}}
	handler := handlers.ExportOrdersCSVHandler(testLogger(), svc)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders.csv", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="orders.csv"`, rr.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSuffix(rr.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,code,name,email,phone,details,file_filename,file_originalname,createdAt", lines[0])
	assert.Contains(t, lines[1], `"He said ""hi"""`)
}

func getOrder(handler http.HandlerFunc, code string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/orders/{code}", handler)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/"+code, nil))
	return rr
}

func TestGetOrderHandler(t *testing.T) {
	svc := &fakeOrderService{byCode: map[string]*models.Order{
		"ABC234": {ID: 1, Code: "ABC234", Name: "Jane", Email: "jane@example.com", Details: "hello",
			File: &models.OrderFile{Filename: "f1", OriginalName: "brief.pdf"}},
	}}
	handler := handlers.GetOrderHandler(testLogger(), svc)

	rr := getOrder(handler, "ABC234")
	assert.Equal(t, http.StatusOK, rr.Code)
	var got models.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "ABC234", got.Code)
	require.NotNil(t, got.File)
	assert.Equal(t, "brief.pdf", got.File.OriginalName)

	rr = getOrder(handler, "ZZZZZZ")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Order not found"}`, rr.Body.String())
}

func TestGetOrderHandler_Error(t *testing.T) {
	handler := handlers.GetOrderHandler(testLogger(), &fakeOrderService{getErr: errors.New("boom")})

	rr := getOrder(handler, "ABC234")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantBody    string
	}{
		{"json ok", "application/json", `{"user":"admin","pass":"secret"}`, http.StatusOK, `{"success":true}`},
		{"form ok", "application/x-www-form-urlencoded", "user=admin&pass=secret", http.StatusOK, `{"success":true}`},
		{"wrong pass", "application/json", `{"user":"admin","pass":"nope"}`, http.StatusForbidden, `{"success":false,"error":"Invalid credentials"}`},
		{"bad json", "application/json", `{"user":`, http.StatusBadRequest, `{"success":false,"error":"invalid request"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			handler := handlers.LoginHandler(testLogger(), fakeAdmin{}, sessions)

			req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
			assert.Equal(t, tt.wantStatus == http.StatusOK, sessions.loggedIn)
		})
	}
}

func TestLoginHandler_SessionError(t *testing.T) {
	handler := handlers.LoginHandler(testLogger(), fakeAdmin{}, &fakeSessions{loginErr: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(`{"user":"admin","pass":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestLogoutHandler(t *testing.T) {
	sessions := &fakeSessions{}
	handler := handlers.LogoutHandler(testLogger(), sessions)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	assert.True(t, sessions.loggedOut)
}

func TestUploadHandler(t *testing.T) {
	dir := t.TempDir()
	store, err := uploads.NewStore(testLogger(), dir, 0)
	require.NoError(t, err)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123"), png, 0o644))

	r := chi.NewRouter()
	r.Get("/uploads/{filename}", handlers.UploadHandler(testLogger(), store))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/abc123", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, png, rr.Body.Bytes())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not found\n", rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/..%2Fetc", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPageHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order.html"), []byte("<html>order</html>"), 0o644))

	rr := httptest.NewRecorder()
	handlers.PageHandler(testLogger(), dir, "order.html").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/o/ABC234", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "order")

	rr = httptest.NewRecorder()
	handlers.PageHandler(testLogger(), dir, "missing.html").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin-login", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSecurityHeaders(t *testing.T) {
	h := handlers.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rr.Header().Get("X-Frame-Options"))
}
