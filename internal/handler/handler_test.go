package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/handler"
	"github.com/sakif/health-wallet/internal/metrics"
	"github.com/sakif/health-wallet/internal/service"
	"github.com/sakif/health-wallet/internal/storage"

	sqliterepo "github.com/sakif/health-wallet/internal/repository/sqlite"
)

// testApp wires the real services over an in-memory database and an
// in-memory filesystem, routed the same way the server routes them. Handler
// tests exercise the full stack below the HTTP layer — only the listener is
// missing.
type testApp struct {
	router http.Handler
	files  afero.Fs
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqliterepo.New(":memory:")
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-signing-secret", time.Hour)
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	passwords := auth.NewPasswordService(4)

	fs := afero.NewMemMapFs()
	store, err := storage.New(fs, "uploads")
	if err != nil {
		t.Fatalf("creating file store: %v", err)
	}

	m := metrics.New(prometheus.NewRegistry())

	authSvc := service.NewAuthService(db.Users(), tokens, passwords, logger)
	reportSvc := service.NewReportService(db.Reports(), db.Shares(), db.Users(), store, m, logger)
	vitalsSvc := service.NewVitalsService(db.Vitals(), logger)

	authHandler := handler.NewAuthHandler(authSvc, logger)
	reportHandler := handler.NewReportHandler(reportSvc, 10<<20, logger)
	vitalsHandler := handler.NewVitalsHandler(vitalsSvc, logger)

	r := chi.NewRouter()
	r.Post("/auth/register", authHandler.HandleRegister)
	r.Post("/auth/login", authHandler.HandleLogin)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(tokens))
		pr.Post("/reports/upload", reportHandler.HandleUpload)
		pr.Get("/reports", reportHandler.HandleList)
		pr.Get("/reports/shared", reportHandler.HandleListShared)
		pr.Post("/reports/share", reportHandler.HandleShare)
		pr.Delete("/reports/{id}", reportHandler.HandleDelete)
		pr.Delete("/reports/shared/{id}", reportHandler.HandleRemoveShared)
		pr.Post("/vitals", vitalsHandler.HandleAdd)
		pr.Get("/vitals", vitalsHandler.HandleList)
	})

	return &testApp{router: r, files: fs}
}

// do runs one request through the router.
func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// doJSON builds and runs a JSON request, with optional bearer token.
func (a *testApp) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.do(req)
}

// register creates an account and returns a login token for it.
func (a *testApp) register(t *testing.T, username, password string) string {
	t.Helper()

	rec := a.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %q: status %d, body %s", username, rec.Code, rec.Body)
	}

	rec = a.doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %q: status %d, body %s", username, rec.Code, rec.Body)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.Token
}

// upload posts a multipart report upload and returns the response.
func (a *testApp) upload(t *testing.T, token, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("report", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("writing form field %q: %v", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/reports/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return a.do(req)
}

// uploadReport uploads a small valid PDF and returns the new report's ID.
func (a *testApp) uploadReport(t *testing.T, token, reportType, date string) string {
	t.Helper()

	rec := a.upload(t, token, "report.pdf", []byte("%PDF-1.4\nfixture"), map[string]string{
		"type": reportType,
		"date": date,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d, body %s", rec.Code, rec.Body)
	}

	var resp struct {
		ReportID string `json:"reportId"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	return resp.ReportID
}
