package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/service"
)

// VitalsHandler serves the vital-sign trend series.
type VitalsHandler struct {
	vitals *service.VitalsService
	logger *slog.Logger
}

// NewVitalsHandler creates a VitalsHandler.
func NewVitalsHandler(vitals *service.VitalsService, logger *slog.Logger) *VitalsHandler {
	return &VitalsHandler{vitals: vitals, logger: logger}
}

type vitalsRequest struct {
	Date      string `json:"date"`
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	HeartRate int    `json:"heart_rate"`
}

// HandleAdd appends one sample to the caller's series.
//
// HTTP: POST /vitals
// Body: {"date", "systolic", "diastolic", "heart_rate"}
// Responses: 201 | 400 missing date or non-numeric values
func (h *VitalsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req vitalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid vitals JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	sample, err := h.vitals.Add(r.Context(), identity, req.Date, req.Systolic, req.Diastolic, req.HeartRate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      sample.ID,
		"message": "Vitals added",
	})
}

// HandleList returns the caller's samples in ascending date order.
//
// HTTP: GET /vitals
func (h *VitalsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	samples, err := h.vitals.List(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, samples)
}
