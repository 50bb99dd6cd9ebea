package archives

import (
	"context"
	"fmt"
	"io"
	"time"

	"org-janitor/core/platform"
	"org-janitor/core/reconcile"
	"org-janitor/core/safelist"
	"org-janitor/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// API is the slice of the platform client the sweep needs.
type API interface {
	ListArchives(ctx context.Context) ([]platform.Archive, error)
	DeleteArchive(ctx context.Context, exportID string) error
	DownloadArchive(ctx context.Context, exportID string) (io.ReadCloser, int64, error)
	AuditEvents(ctx context.Context, from, to time.Time) ([]platform.AuditEvent, error)
}

// Options holds the plain-value tuning of one sweep.
type Options struct {
	// AgeLimitDays is the retention threshold in local calendar days.
	// Zero bypasses the age check entirely.
	AgeLimitDays int
	// AttributionWindow bounds the audit-log scan around the run.
	AttributionWindow time.Duration
	// OffloadEnabled saves each export to the offload bucket before
	// deleting it.
	OffloadEnabled bool
	// OffloadBucket is the destination bucket when offloading.
	OffloadBucket string
	// Location is the timezone the retention policy is stated in.
	// Defaults to the local timezone.
	Location *time.Location
}

// Report is the result of one retention sweep.
type Report struct {
	// Outcomes holds one entry per queued archive.
	Outcomes []reconcile.Outcome `json:"outcomes"`
	// Summary aggregates outcome counts.
	Summary reconcile.Summary `json:"summary"`
	// Retained counts archives younger than the age limit, never queued.
	Retained int `json:"retained"`
	// Attribution maps deleted export IDs to the email of the user the
	// vendor audit trail credits with the removal.
	Attribution map[string]string `json:"attribution,omitempty"`
}

// Sweeper runs the archive retention sweep.
type Sweeper struct {
	api    API
	store  storage.Client
	engine *reconcile.Engine
	opts   Options
	log    *zap.Logger

	// now is swapped out by tests.
	now func() time.Time
}

// NewSweeper wires the sweep. store may be nil when offload is disabled.
func NewSweeper(api API, store storage.Client, engine *reconcile.Engine, opts Options, log *zap.Logger) (*Sweeper, error) {
	if opts.OffloadEnabled && store == nil {
		return nil, fmt.Errorf("offload enabled but no storage client configured")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		api:    api,
		store:  store,
		engine: engine,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}, nil
}

// ShouldDelete is the sweep predicate: an archive is queued when it is not
// on the allow-list and either the age limit is zero (explicit override)
// or it is older than the limit in loc's calendar days.
func ShouldDelete(rec platform.Archive, safe *safelist.Set, ageLimitDays int, now time.Time, loc *time.Location) bool {
	if safe.Contains(rec.ExportID) {
		return false
	}
	if ageLimitDays == 0 {
		return true
	}
	return calendarAgeDays(rec.ExportedAt, now, loc) > ageLimitDays
}

// calendarAgeDays converts both timestamps into loc and counts whole
// calendar days between them. The retention policy is stated in local
// days, so a remote epoch just before local midnight can already be a
// day old minutes later.
func calendarAgeDays(exportedAt, now time.Time, loc *time.Location) int {
	e := exportedAt.In(loc)
	n := now.In(loc)

	eMidnight := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	nMidnight := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)

	return int(nMidnight.Sub(eMidnight) / (24 * time.Hour))
}

// Run lists the remote archives, queues the ones the retention policy
// condemns, deletes them through the engine (which applies the allow-list),
// and attributes the removals.
func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	started := s.now()

	records, err := s.api.ListArchives(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive sweep aborted: %w", err)
	}

	if s.opts.OffloadEnabled {
		if err := s.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}

	report := &Report{Attribution: map[string]string{}}

	// Age filtering happens here; the engine applies the allow-list so
	// persistent archives still show up as skipped in the outcomes.
	inventory := make([]reconcile.Entity, 0, len(records))
	for _, rec := range records {
		if s.opts.AgeLimitDays != 0 && calendarAgeDays(rec.ExportedAt, started, s.opts.Location) <= s.opts.AgeLimitDays {
			report.Retained++
			continue
		}
		extra := map[string]string{}
		if rec.Label != "" {
			extra["label"] = rec.Label
		}
		inventory = append(inventory, reconcile.Entity{
			ID:    rec.ExportID,
			Type:  platform.TypeArchive,
			Extra: extra,
		})
	}

	s.log.Info("archive sweep planned",
		zap.Int("archives", len(records)),
		zap.Int("queued", len(inventory)),
		zap.Int("retained", report.Retained),
	)

	report.Outcomes = s.engine.Run(ctx, inventory, s.deleteArchive)
	report.Summary = reconcile.Summarize(report.Outcomes)

	s.attribute(ctx, report, started)

	return report, nil
}

// deleteArchive offloads (when enabled) and deletes one export.
// Offload failure aborts this archive's deletion: never delete an export
// that could not be saved.
func (s *Sweeper) deleteArchive(ctx context.Context, ent reconcile.Entity) error {
	if s.opts.OffloadEnabled {
		if err := s.offload(ctx, ent.ID); err != nil {
			return fmt.Errorf("offload failed, keeping archive: %w", err)
		}
	}
	return s.api.DeleteArchive(ctx, ent.ID)
}

func (s *Sweeper) offload(ctx context.Context, exportID string) error {
	body, size, err := s.api.DownloadArchive(ctx, exportID)
	if err != nil {
		return err
	}
	defer body.Close()

	objectName := exportID + ".mp4"
	_, err = s.store.PutObject(ctx, s.opts.OffloadBucket, objectName, body, size,
		minio.PutObjectOptions{ContentType: "video/mp4"})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", objectName, err)
	}

	s.log.Debug("archive offloaded",
		zap.String("export_id", exportID),
		zap.String("object", objectName),
	)
	return nil
}

func (s *Sweeper) ensureBucket(ctx context.Context) error {
	exists, err := s.store.BucketExists(ctx, s.opts.OffloadBucket)
	if err != nil {
		return fmt.Errorf("failed to check offload bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.store.MakeBucket(ctx, s.opts.OffloadBucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create offload bucket: %w", err)
	}
	return nil
}
