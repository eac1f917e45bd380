package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/health-wallet/internal/apperror"
	"github.com/sakif/health-wallet/internal/auth"
	"github.com/sakif/health-wallet/internal/metrics"
	"github.com/sakif/health-wallet/internal/model"
	"github.com/sakif/health-wallet/internal/repository"
)

// =========================================================================
// SHARED TEST HELPERS
// =========================================================================
//
// The mocks below are hand-written in-memory implementations of the
// repository interfaces. The services don't know or care which
// implementation they get — that's the point of the interfaces.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testMetrics creates metrics on a fresh registry so tests never collide on
// duplicate registration.
func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// =========================================================================
// MOCK USER REPOSITORY
// =========================================================================

type mockUserRepo struct {
	users  map[string]*model.User // keyed by ID
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", "username already exists")
		}
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

// =========================================================================
// MOCK REPORT REPOSITORY
// =========================================================================

type mockReportRepo struct {
	reports map[string]*model.Report
	shares  *mockShareRepo // for ListSharedWith and DeleteCascade
	users   *mockUserRepo  // for the owner-name join
	nextID  int

	createErr error // when set, Create fails with this error
}

func newMockReportRepo(shares *mockShareRepo, users *mockUserRepo) *mockReportRepo {
	return &mockReportRepo{
		reports: make(map[string]*model.Report),
		shares:  shares,
		users:   users,
	}
}

func (m *mockReportRepo) Create(_ context.Context, report *model.Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	report.ID = fmt.Sprintf("report-%d", m.nextID)
	stored := *report
	m.reports[report.ID] = &stored
	return nil
}

func (m *mockReportRepo) GetByID(_ context.Context, id string) (*model.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, apperror.NotFound("report", id)
	}
	result := *r
	return &result, nil
}

func (m *mockReportRepo) ListByOwner(_ context.Context, ownerID string, filter repository.ReportFilter) ([]model.Report, error) {
	result := make([]model.Report, 0)
	for _, r := range m.reports {
		if r.OwnerID != ownerID {
			continue
		}
		if filter.Type != "" && r.Type != filter.Type {
			continue
		}
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date > result[j].Date
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *mockReportRepo) ListSharedWith(_ context.Context, viewerUsername string) ([]model.SharedReport, error) {
	result := make([]model.SharedReport, 0)
	for _, s := range m.shares.shares {
		if s.ViewerUsername != viewerUsername {
			continue
		}
		r, ok := m.reports[s.ReportID]
		if !ok {
			continue // dangling share: the join produces no row
		}
		sr := model.SharedReport{Report: *r}
		if owner, err := m.users.GetByID(context.Background(), r.OwnerID); err == nil {
			sr.OwnerName = owner.Username
		}
		result = append(result, sr)
	}
	return result, nil
}

func (m *mockReportRepo) DeleteCascade(_ context.Context, id string) error {
	if _, ok := m.reports[id]; !ok {
		return apperror.NotFound("report", id)
	}
	delete(m.reports, id)
	for key, s := range m.shares.shares {
		if s.ReportID == id {
			delete(m.shares.shares, key)
		}
	}
	return nil
}

// =========================================================================
// MOCK SHARE REPOSITORY
// =========================================================================

type mockShareRepo struct {
	shares map[string]*model.Share
	nextID int
}

func newMockShareRepo() *mockShareRepo {
	return &mockShareRepo{shares: make(map[string]*model.Share)}
}

func (m *mockShareRepo) Create(_ context.Context, share *model.Share) error {
	for _, s := range m.shares {
		if s.ReportID == share.ReportID && s.ViewerUsername == share.ViewerUsername {
			return apperror.Conflict("share", "already shared with this viewer")
		}
	}
	m.nextID++
	share.ID = fmt.Sprintf("share-%d", m.nextID)
	if share.Role == "" {
		share.Role = model.RoleViewer
	}
	stored := *share
	m.shares[share.ID] = &stored
	return nil
}

func (m *mockShareRepo) DeleteByReportAndViewer(_ context.Context, reportID, viewerUsername string) error {
	deleted := false
	for key, s := range m.shares {
		if s.ReportID == reportID && s.ViewerUsername == viewerUsername {
			delete(m.shares, key)
			deleted = true
		}
	}
	if !deleted {
		return apperror.NotFound("shared report", reportID)
	}
	return nil
}

// =========================================================================
// MOCK VITALS REPOSITORY
// =========================================================================

type mockVitalsRepo struct {
	samples []*model.VitalsSample
	nextID  int
}

func newMockVitalsRepo() *mockVitalsRepo {
	return &mockVitalsRepo{}
}

func (m *mockVitalsRepo) Create(_ context.Context, sample *model.VitalsSample) error {
	m.nextID++
	sample.ID = fmt.Sprintf("vitals-%d", m.nextID)
	stored := *sample
	m.samples = append(m.samples, &stored)
	return nil
}

func (m *mockVitalsRepo) ListByUser(_ context.Context, userID string) ([]model.VitalsSample, error) {
	result := make([]model.VitalsSample, 0)
	for _, s := range m.samples {
		if s.UserID == userID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =========================================================================
// FAKE FILE STORE
// =========================================================================

type fakeFileStore struct {
	saved   map[string]string // stored name -> content
	removed []string
	nextID  int

	saveErr error // when set, Save fails with this error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{saved: make(map[string]string)}
}

func (f *fakeFileStore) Save(originalName string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.nextID++
	name := fmt.Sprintf("stored-%d", f.nextID)
	f.saved[name] = string(data)
	return name, nil
}

func (f *fakeFileStore) Remove(name string) error {
	if _, ok := f.saved[name]; !ok {
		return fmt.Errorf("fake store: no file %q", name)
	}
	delete(f.saved, name)
	f.removed = append(f.removed, name)
	return nil
}

// =========================================================================
// FIXTURE: wired-together services + two registered users
// =========================================================================

type testEnv struct {
	users   *mockUserRepo
	reports *mockReportRepo
	shares  *mockShareRepo
	files   *fakeFileStore

	reportSvc *ReportService

	alice auth.Identity
	bob   auth.Identity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := newMockUserRepo()
	shares := newMockShareRepo()
	reports := newMockReportRepo(shares, users)
	files := newFakeFileStore()

	env := &testEnv{
		users:   users,
		reports: reports,
		shares:  shares,
		files:   files,
		reportSvc: NewReportService(
			reports, shares, users, files, testMetrics(), testLogger(),
		),
	}

	env.alice = env.registerUser(t, "alice")
	env.bob = env.registerUser(t, "bob")
	return env
}

func (e *testEnv) registerUser(t *testing.T, username string) auth.Identity {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "hash"}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to register test user %q: %v", username, err)
	}
	return auth.Identity{UserID: user.ID, Username: username}
}

// createReport inserts a report owned by the given identity, bypassing the
// upload path.
func (e *testEnv) createReport(t *testing.T, owner auth.Identity, date string) *model.Report {
	t.Helper()
	report := &model.Report{
		Filename: "stored-fixture.pdf",
		Type:     model.ReportTypeLab,
		Date:     date,
		OwnerID:  owner.UserID,
	}
	if err := e.reports.Create(context.Background(), report); err != nil {
		t.Fatalf("failed to create test report: %v", err)
	}
	return report
}
