package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/repository"
	"github.com/sakif/health-wallet/internal/service"
)

// ReportHandler serves report upload, listing, sharing, and deletion.
// Every route it handles sits behind auth.RequireAuth, so the identity is
// always present in the request context.
type ReportHandler struct {
	reports   *service.ReportService
	maxUpload int64 // request body limit for uploads, in bytes
	logger    *slog.Logger
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reports *service.ReportService, maxUpload int64, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, maxUpload: maxUpload, logger: logger}
}

// HandleUpload stores an uploaded report file with its metadata.
//
// HTTP: POST /reports/upload
// Body: multipart form — "report" (file), "type", "date", "vitals" (optional)
// Responses: 200 {reportId} | 400 no file / wrong type / missing fields
func (h *ReportHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	// MaxBytesReader makes oversized uploads fail mid-read instead of
	// buffering an unbounded body.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	// Files up to 8MB stay in memory; larger spill to temp files.
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "uploaded file is too large",
			})
			return
		}
		h.logger.Warn("invalid multipart upload", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid multipart form",
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("report")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "no file uploaded",
		})
		return
	}
	defer file.Close()

	report, err := h.reports.Upload(r.Context(), identity, service.UploadInput{
		OriginalName: header.Filename,
		File:         file,
		Type:         r.FormValue("type"),
		Date:         r.FormValue("date"),
		Vitals:       r.FormValue("vitals"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"reportId": report.ID,
		"message":  "Report uploaded",
	})
}

// HandleList returns the caller's own reports, newest date first.
//
// HTTP: GET /reports?type=&date=
// Both query parameters are optional exact-match filters.
func (h *ReportHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	filter := repository.ReportFilter{
		Type: r.URL.Query().Get("type"),
		Date: r.URL.Query().Get("date"),
	}

	reports, err := h.reports.ListOwn(r.Context(), identity, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// HandleListShared returns reports other users have shared with the caller,
// each carrying the owner's username.
//
// HTTP: GET /reports/shared
func (h *ReportHandler) HandleListShared(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	shared, err := h.reports.ListShared(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shared)
}

type shareRequest struct {
	ReportID       string `json:"reportId"`
	ViewerUsername string `json:"viewerUsername"`
}

// HandleShare grants another user read access to one of the caller's
// reports.
//
// HTTP: POST /reports/share
// Responses: 200 | 400 unknown viewer | 403 not owner | 404 no such report |
// 409 already shared with that viewer
func (h *ReportHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid share JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	if _, err := h.reports.Share(r.Context(), identity, req.ReportID, req.ViewerUsername); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Report shared with " + req.ViewerUsername,
	})
}

// HandleDelete removes one of the caller's reports along with its shares and
// stored file.
//
// HTTP: DELETE /reports/{id}
// Responses: 200 | 403 not owner | 404 no such report
func (h *ReportHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.reports.Delete(r.Context(), identity, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Report deleted"})
}

// HandleRemoveShared revokes the caller's own viewer access to a report.
//
// HTTP: DELETE /reports/shared/{id}  (id is the report ID)
// Responses: 200 | 404 nothing shared with the caller under that id
func (h *ReportHandler) HandleRemoveShared(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	if err := h.reports.RemoveShared(r.Context(), identity, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Removed from shared reports"})
}

// writeUnauthorized handles the should-never-happen case of a protected
// route with no identity in context.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "valid authentication required",
	})
}
