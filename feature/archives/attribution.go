package archives

import (
	"context"
	"time"

	"org-janitor/core/platform"
	"org-janitor/core/reconcile"

	"go.uber.org/zap"
)

// attribute scans the audit log around the run for "Devices Uninstalled"
// events and records the acting user against each deleted archive.
// Best-effort throughout: a fetch failure or a miss never fails the sweep.
func (s *Sweeper) attribute(ctx context.Context, report *Report, started time.Time) {
	window := s.opts.AttributionWindow
	if window <= 0 {
		return
	}

	deleted := make([]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.Status == reconcile.StatusDeleted {
			deleted = append(deleted, o.EntityID)
		}
	}
	if len(deleted) == 0 {
		return
	}

	events, err := s.api.AuditEvents(ctx, started.Add(-window), s.now().Add(window))
	if err != nil {
		s.log.Info("audit log unavailable, skipping attribution", zap.Error(err))
		return
	}

	for _, id := range deleted {
		user := matchUninstallEvent(events, id)
		if user == "" {
			s.log.Info("no audit match for deletion", zap.String("export_id", id))
			continue
		}
		report.Attribution[id] = user
	}
}

// matchUninstallEvent finds the user behind an uninstall event that names
// the given device or export identifier.
func matchUninstallEvent(events []platform.AuditEvent, id string) string {
	for _, ev := range events {
		if ev.EventName != platform.EventDevicesUninstalled {
			continue
		}
		for _, deviceID := range ev.DeviceIDs {
			if deviceID == id {
				return ev.UserEmail
			}
		}
	}
	return ""
}
