package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/health-wallet/internal/apperror"
	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// VitalsService handles the append-only vital-sign trend series. Samples are
// strictly per-user: there is no sharing path for vitals, only for reports.
type VitalsService struct {
	vitals repository.VitalsRepository
	logger *slog.Logger
}

// NewVitalsService creates a VitalsService.
func NewVitalsService(vitals repository.VitalsRepository, logger *slog.Logger) *VitalsService {
	return &VitalsService{vitals: vitals, logger: logger}
}

// Add appends one sample to the acting user's series.
//
// The numeric fields arrive as typed ints (the JSON decoder already rejected
// malformed numbers); only plausibility is checked here.
func (s *VitalsService) Add(ctx context.Context, user auth.Identity, date string, systolic, diastolic, heartRate int) (*model.VitalsSample, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, apperror.ValidationFailed("date", "date is required")
	}
	if systolic <= 0 || diastolic <= 0 || heartRate <= 0 {
		return nil, apperror.ValidationFailed("vitals", "systolic, diastolic, and heart_rate must be positive")
	}

	sample := &model.VitalsSample{
		UserID:    user.UserID,
		Date:      date,
		Systolic:  systolic,
		Diastolic: diastolic,
		HeartRate: heartRate,
	}

	if err := s.vitals.Create(ctx, sample); err != nil {
		s.logger.Error("failed to add vitals sample",
			slog.String("userID", user.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding vitals: %w", err)
	}

	s.logger.Info("vitals sample added",
		slog.String("sampleID", sample.ID),
		slog.String("userID", user.UserID),
	)

	return sample, nil
}

// List returns the acting user's samples oldest-first for the trend chart.
func (s *VitalsService) List(ctx context.Context, user auth.Identity) ([]model.VitalsSample, error) {
	samples, err := s.vitals.ListByUser(ctx, user.UserID)
	if err != nil {
		s.logger.Error("failed to list vitals",
			slog.String("userID", user.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing vitals: %w", err)
	}
	return samples, nil
}
