package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sakif/health-wallet/internal/apperror"
	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/metrics"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// FileStore is the slice of the storage layer the report service needs.
// internal/storage.Store implements it; tests substitute a fake.
type FileStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Remove(name string) error
}

// allowedUploads maps accepted file extensions to the content type the file's
// leading bytes must sniff as. Extension and content must agree — a .png that
// sniffs as a PDF is rejected.
var allowedUploads = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// sniffLen is how many leading bytes http.DetectContentType examines.
const sniffLen = 512

// ReportService is the access-control core: every report-touching operation
// goes through here, and this is the only place that composes the report
// store with the share registry to authorize cross-user visibility.
//
// The authorization rule, applied uniformly: a user may always read and
// write their own reports; a user may read another owner's report only while
// a share names them as viewer; a user may never write (delete, re-share) a
// report they do not own, even one shared with them.
type ReportService struct {
	reports repository.ReportRepository
	shares  repository.ShareRepository
	users   repository.UserRepository
	files   FileStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReportService creates a ReportService with all dependencies injected.
func NewReportService(
	reports repository.ReportRepository,
	shares repository.ShareRepository,
	users repository.UserRepository,
	files FileStore,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports: reports,
		shares:  shares,
		users:   users,
		files:   files,
		metrics: m,
		logger:  logger,
	}
}

// UploadInput carries a report upload: the file stream plus its metadata
// form fields.
type UploadInput struct {
	OriginalName string
	File         io.Reader
	Type         string
	Date         string
	Vitals       string // optional free-text annotation
}

// Upload validates the file, stores it, and inserts the report row owned by
// the acting user.
//
// Validation is extension AND content: the extension picks the expected
// content type, then the first 512 bytes must sniff as that type.
func (s *ReportService) Upload(ctx context.Context, owner auth.Identity, in UploadInput) (*model.Report, error) {
	if in.File == nil {
		return nil, apperror.ValidationFailed("report", "no file uploaded")
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, apperror.ValidationFailed("type", "report type is required")
	}
	if strings.TrimSpace(in.Date) == "" {
		return nil, apperror.ValidationFailed("date", "report date is required")
	}

	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	wantType, ok := allowedUploads[ext]
	if !ok {
		return nil, apperror.ValidationFailed("report", "only PDF, JPEG, and PNG files are accepted")
	}

	// Sniff the leading bytes, then stitch them back in front of the rest of
	// the stream so the stored file is complete.
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.File, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]

	if got := http.DetectContentType(head); got != wantType {
		return nil, apperror.ValidationFailed("report",
			fmt.Sprintf("file content does not match its %s extension", ext))
	}

	stored, err := s.files.Save(in.OriginalName, io.MultiReader(bytes.NewReader(head), in.File))
	if err != nil {
		s.logger.Error("failed to store uploaded report",
			slog.String("userID", owner.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	report := &model.Report{
		Filename: stored,
		Type:     strings.TrimSpace(in.Type),
		Date:     strings.TrimSpace(in.Date),
		Vitals:   strings.TrimSpace(in.Vitals),
		OwnerID:  owner.UserID,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		// The row never existed; don't leave the file behind.
		if rmErr := s.files.Remove(stored); rmErr != nil {
			s.logger.Error("failed to remove orphaned upload",
				slog.String("filename", stored),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, fmt.Errorf("creating report: %w", err)
	}

	s.metrics.ReportsUploaded.Inc()
	s.logger.Info("report uploaded",
		slog.String("reportID", report.ID),
		slog.String("userID", owner.UserID),
		slog.String("type", report.Type),
	)

	return report, nil
}

// ListOwn returns the acting user's reports, optionally narrowed by exact
// type and/or date, newest date first.
func (s *ReportService) ListOwn(ctx context.Context, user auth.Identity, filter repository.ReportFilter) ([]model.Report, error) {
	reports, err := s.reports.ListByOwner(ctx, user.UserID, filter)
	if err != nil {
		s.logger.Error("failed to list reports",
			slog.String("userID", user.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// ListShared returns the reports other owners have shared with the acting
// user, each augmented with the owner's username. A user never sees their
// own reports through this path.
func (s *ReportService) ListShared(ctx context.Context, user auth.Identity) ([]model.SharedReport, error) {
	shared, err := s.reports.ListSharedWith(ctx, user.Username)
	if err != nil {
		s.logger.Error("failed to list shared reports",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing shared reports: %w", err)
	}
	return shared, nil
}

// Share grants viewerUsername read access to one of the acting user's
// reports.
//
// Failure order matches the report-write rule: a missing report is NotFound;
// an existing report owned by someone else is Forbidden; only then is the
// viewer validated (must exist, must not be the owner).
func (s *ReportService) Share(ctx context.Context, actor auth.Identity, reportID, viewerUsername string) (*model.Share, error) {
	reportID = strings.TrimSpace(reportID)
	viewerUsername = strings.TrimSpace(viewerUsername)

	if reportID == "" {
		return nil, apperror.ValidationFailed("reportId", "report ID is required")
	}
	if viewerUsername == "" {
		return nil, apperror.ValidationFailed("viewerUsername", "viewer username is required")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.OwnerID != actor.UserID {
		return nil, apperror.Forbidden("only the report's owner can share it")
	}

	if viewerUsername == actor.Username {
		return nil, apperror.ValidationFailed("viewerUsername", "cannot share a report with yourself")
	}

	// The share registry is keyed by username, so a typo here would
	// otherwise create a grant nobody can ever use.
	if _, err := s.users.GetByUsername(ctx, viewerUsername); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("viewerUsername",
				fmt.Sprintf("no user named %q exists", viewerUsername))
		}
		return nil, fmt.Errorf("looking up viewer %q: %w", viewerUsername, err)
	}

	share := &model.Share{
		ReportID:       report.ID,
		OwnerID:        actor.UserID,
		ViewerUsername: viewerUsername,
		Role:           model.RoleViewer,
	}

	if err := s.shares.Create(ctx, share); err != nil {
		// Duplicate grants propagate as conflict.
		return nil, err
	}

	s.metrics.SharesCreated.Inc()
	s.logger.Info("report shared",
		slog.String("reportID", report.ID),
		slog.String("ownerID", actor.UserID),
		slog.String("viewer", viewerUsername),
	)

	return share, nil
}

// Delete removes one of the acting user's reports, its dependent shares, and
// its stored file.
//
// The row and its shares go in one transaction; the file removal is
// best-effort afterwards. A leaked file wastes disk but breaks nothing,
// whereas failing the whole delete over it would strand the report.
func (s *ReportService) Delete(ctx context.Context, actor auth.Identity, reportID string) error {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return apperror.ValidationFailed("id", "report ID is required")
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if report.OwnerID != actor.UserID {
		return apperror.Forbidden("only the report's owner can delete it")
	}

	if err := s.reports.DeleteCascade(ctx, report.ID); err != nil {
		return err
	}

	if err := s.files.Remove(report.Filename); err != nil {
		s.logger.Warn("failed to remove stored report file",
			slog.String("reportID", report.ID),
			slog.String("filename", report.Filename),
			slog.String("error", err.Error()),
		)
	}

	s.metrics.ReportsDeleted.Inc()
	s.logger.Info("report deleted",
		slog.String("reportID", report.ID),
		slog.String("ownerID", actor.UserID),
	)

	return nil
}

// RemoveShared lets a viewer revoke their own access to a shared report.
// Only shares naming the acting user as viewer are touched, so a viewer can
// never revoke anyone else's grant. Revoking a share that doesn't exist
// (including a repeat revoke) is NotFound.
func (s *ReportService) RemoveShared(ctx context.Context, actor auth.Identity, reportID string) error {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return apperror.ValidationFailed("id", "report ID is required")
	}

	if err := s.shares.DeleteByReportAndViewer(ctx, reportID, actor.Username); err != nil {
		return err
	}

	s.metrics.SharesRevoked.Inc()
	s.logger.Info("shared report removed",
		slog.String("reportID", reportID),
		slog.String("viewer", actor.Username),
	)

	return nil
}
