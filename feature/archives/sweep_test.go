package archives

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"org-janitor/core/platform"
	"org-janitor/core/ratelimit"
	"org-janitor/core/reconcile"
	"org-janitor/core/safelist"
	"org-janitor/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeArchiveAPI serves canned archives and records deletions.
type fakeArchiveAPI struct {
	mu sync.Mutex

	archives    []platform.Archive
	events      []platform.AuditEvent
	deleted     []string
	downloads   []string
	downloadErr error
	deleteErr   error
}

func (f *fakeArchiveAPI) ListArchives(ctx context.Context) ([]platform.Archive, error) {
	return f.archives, nil
}

func (f *fakeArchiveAPI) DeleteArchive(ctx context.Context, exportID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, exportID)
	return nil
}

func (f *fakeArchiveAPI) DownloadArchive(ctx context.Context, exportID string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return nil, 0, f.downloadErr
	}
	f.downloads = append(f.downloads, exportID)
	return io.NopCloser(strings.NewReader("media")), 5, nil
}

func (f *fakeArchiveAPI) AuditEvents(ctx context.Context, from, to time.Time) ([]platform.AuditEvent, error) {
	return f.events, nil
}

func newSweepEngine(t *testing.T, keep []string) *reconcile.Engine {
	t.Helper()

	limiter, err := ratelimit.New(ratelimit.Config{RateLimit: 100, MaxBurst: 1000, WindowMillis: 100})
	require.NoError(t, err)

	eng, err := reconcile.NewEngine(safelist.Build(keep), limiter,
		reconcile.Config{MaxRetries: 3, RetryDelayMillis: 1, BackoffIncrementMillis: 1}, nil)
	require.NoError(t, err)
	return eng
}

func archiveAgedDays(days int, loc *time.Location, now time.Time) platform.Archive {
	return platform.Archive{
		ExportID:   fmt.Sprintf("exp-%dd", days),
		ExportedAt: now.In(loc).AddDate(0, 0, -days),
	}
}

func TestShouldDelete_AgePolicy(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, loc)
	safe := safelist.Build([]string{"exp-keep"})

	tests := []struct {
		name         string
		archive      platform.Archive
		ageLimitDays int
		want         bool
	}{
		{
			name:         "older than limit",
			archive:      archiveAgedDays(20, loc, now),
			ageLimitDays: 14,
			want:         true,
		},
		{
			name:         "zero limit overrides age check",
			archive:      archiveAgedDays(20, loc, now),
			ageLimitDays: 0,
			want:         true,
		},
		{
			name:         "younger than limit",
			archive:      archiveAgedDays(5, loc, now),
			ageLimitDays: 14,
			want:         false,
		},
		{
			name:         "fresh archive with zero limit still queued",
			archive:      archiveAgedDays(0, loc, now),
			ageLimitDays: 0,
			want:         true,
		},
		{
			name: "persistent archive never queued",
			archive: platform.Archive{
				ExportID:   "exp-keep",
				ExportedAt: now.AddDate(0, 0, -20),
			},
			ageLimitDays: 14,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldDelete(tt.archive, safe, tt.ageLimitDays, now, loc)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestCalendarAgeDays pins the local-calendar-day semantics: an export from
// just before midnight is already a day old a few minutes later.
func TestCalendarAgeDays(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	exported := time.Date(2026, 8, 22, 23, 30, 0, 0, loc)
	now := time.Date(2026, 8, 23, 0, 10, 0, 0, loc)

	assert.Equal(t, 1, calendarAgeDays(exported, now, loc))
	assert.Equal(t, 0, calendarAgeDays(now, now, loc))

	// The same instants compared in UTC fall on the same UTC day.
	assert.Equal(t, 0, calendarAgeDays(exported.In(time.UTC), now.In(time.UTC), time.UTC))
}

func TestSweep_AgeFilterAndSafelist(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, loc)

	api := &fakeArchiveAPI{
		archives: []platform.Archive{
			{ExportID: "exp-old", ExportedAt: now.AddDate(0, 0, -20)},
			{ExportID: "exp-young", ExportedAt: now.AddDate(0, 0, -5)},
			{ExportID: "exp-keep", ExportedAt: now.AddDate(0, 0, -30)},
		},
	}

	sweeper, err := NewSweeper(api, nil, newSweepEngine(t, []string{"exp-keep"}),
		Options{AgeLimitDays: 14, Location: loc}, nil)
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	// exp-young retained, exp-keep skipped by the engine, exp-old deleted.
	assert.Equal(t, 1, report.Retained)
	assert.Equal(t, []string{"exp-old"}, api.deleted)

	require.Len(t, report.Outcomes, 2)
	byID := map[string]reconcile.Status{}
	for _, o := range report.Outcomes {
		byID[o.EntityID] = o.Status
	}
	assert.Equal(t, reconcile.StatusDeleted, byID["exp-old"])
	assert.Equal(t, reconcile.StatusSkippedPersistent, byID["exp-keep"])
	assert.Equal(t, reconcile.Summary{Deleted: 1, Skipped: 1}, report.Summary)
}

func TestSweep_ZeroAgeLimitQueuesEverything(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	api := &fakeArchiveAPI{
		archives: []platform.Archive{
			{ExportID: "exp-1", ExportedAt: now.AddDate(0, 0, -1)},
			{ExportID: "exp-2", ExportedAt: now},
		},
	}

	sweeper, err := NewSweeper(api, nil, newSweepEngine(t, nil),
		Options{AgeLimitDays: 0, Location: time.UTC}, nil)
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Retained)
	assert.Equal(t, 2, report.Summary.Deleted)
}

func TestSweep_Attribution(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	api := &fakeArchiveAPI{
		archives: []platform.Archive{
			{ExportID: "exp-a", ExportedAt: now.AddDate(0, 0, -20)},
			{ExportID: "exp-b", ExportedAt: now.AddDate(0, 0, -20)},
		},
		events: []platform.AuditEvent{
			{
				EventName: platform.EventDevicesUninstalled,
				Timestamp: now,
				DeviceIDs: []string{"exp-a"},
				UserEmail: "admin@example.com",
			},
			{
				// Unrelated event never matches.
				EventName: "User Login",
				Timestamp: now,
				DeviceIDs: []string{"exp-b"},
				UserEmail: "other@example.com",
			},
		},
	}

	sweeper, err := NewSweeper(api, nil, newSweepEngine(t, nil),
		Options{AgeLimitDays: 14, AttributionWindow: 15 * time.Minute, Location: time.UTC}, nil)
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	// A miss is not an error: exp-b stays unattributed.
	assert.Equal(t, map[string]string{"exp-a": "admin@example.com"}, report.Attribution)
	assert.Equal(t, 2, report.Summary.Deleted)
}

func TestSweep_OffloadBeforeDelete(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	api := &fakeArchiveAPI{
		archives: []platform.Archive{
			{ExportID: "exp-a", ExportedAt: now.AddDate(0, 0, -20)},
		},
	}

	store := new(mocks.Client)
	store.On("BucketExists", mock.Anything, "archive-offload").Return(true, nil)
	store.On("PutObject", mock.Anything, "archive-offload", "exp-a.mp4",
		mock.Anything, int64(5), mock.Anything).Return(minio.UploadInfo{}, nil)

	sweeper, err := NewSweeper(api, store, newSweepEngine(t, nil),
		Options{AgeLimitDays: 14, OffloadEnabled: true, OffloadBucket: "archive-offload", Location: time.UTC}, nil)
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"exp-a"}, api.downloads)
	assert.Equal(t, []string{"exp-a"}, api.deleted)
	assert.Equal(t, 1, report.Summary.Deleted)
	store.AssertExpectations(t)
}

// TestSweep_OffloadFailureKeepsArchive: an export that could not be saved
// must not be deleted.
func TestSweep_OffloadFailureKeepsArchive(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	api := &fakeArchiveAPI{
		archives: []platform.Archive{
			{ExportID: "exp-a", ExportedAt: now.AddDate(0, 0, -20)},
		},
		downloadErr: fmt.Errorf("api returned status 500: export unavailable"),
	}

	store := new(mocks.Client)
	store.On("BucketExists", mock.Anything, "archive-offload").Return(true, nil)

	sweeper, err := NewSweeper(api, store, newSweepEngine(t, nil),
		Options{AgeLimitDays: 14, OffloadEnabled: true, OffloadBucket: "archive-offload", Location: time.UTC}, nil)
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }

	report, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, api.deleted)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, reconcile.StatusFailed, report.Outcomes[0].Status)
	assert.Contains(t, report.Outcomes[0].Detail, "keeping archive")
}

func TestNewSweeper_OffloadNeedsStore(t *testing.T) {
	_, err := NewSweeper(&fakeArchiveAPI{}, nil, newSweepEngine(t, nil),
		Options{OffloadEnabled: true}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage client")
}
