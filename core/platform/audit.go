package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// EventDevicesUninstalled is the audit event name recorded when a user
// removes devices through the vendor console.
const EventDevicesUninstalled = "Devices Uninstalled"

// AuditEvent is one entry of the vendor audit trail, consumed read-only to
// attribute deletions after the fact.
type AuditEvent struct {
	// EventName identifies the action, e.g. "Devices Uninstalled".
	EventName string
	// Timestamp is when the action happened.
	Timestamp time.Time
	// DeviceIDs are the devices the event touched.
	DeviceIDs []string
	// UserEmail is the acting user.
	UserEmail string
}

type auditWire struct {
	EventName string `json:"eventName"`
	Timestamp int64  `json:"timestamp"`
	Devices   []struct {
		DeviceID string `json:"deviceId"`
	} `json:"devices"`
	UserEmail string `json:"userEmail"`
}

// AuditEvents fetches the audit trail between from and to, inclusive.
func (c *Client) AuditEvents(ctx context.Context, from, to time.Time) ([]AuditEvent, error) {
	var resp struct {
		Events []auditWire `json:"auditEvents"`
	}

	query := url.Values{
		"organizationId": {c.cfg.OrgID},
		"startTime":      {strconv.FormatInt(from.Unix(), 10)},
		"endTime":        {strconv.FormatInt(to.Unix(), 10)},
	}
	if err := c.do(ctx, http.MethodGet, "/core/audit_log", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch audit log: %w", err)
	}

	events := make([]AuditEvent, 0, len(resp.Events))
	for _, w := range resp.Events {
		ev := AuditEvent{
			EventName: w.EventName,
			Timestamp: time.Unix(w.Timestamp, 0),
			UserEmail: w.UserEmail,
		}
		for _, d := range w.Devices {
			ev.DeviceIDs = append(ev.DeviceIDs, d.DeviceID)
		}
		events = append(events, ev)
	}
	return events, nil
}
