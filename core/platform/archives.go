package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Archive is one remote video export. Records are fetched fresh each run
// and held only for the duration of one sweep.
type Archive struct {
	// ExportID identifies the export.
	ExportID string
	// ExportedAt is when the export was created.
	ExportedAt time.Time
	// Label is the operator-assigned name, possibly empty.
	Label string
	// Tags are free-form labels attached at export time.
	Tags []string
}

type archiveWire struct {
	ExportID  string   `json:"exportId"`
	Timestamp int64    `json:"timestamp"`
	Label     string   `json:"label"`
	Tags      []string `json:"tags"`
}

// ListArchives fetches the org's archive listing.
func (c *Client) ListArchives(ctx context.Context) ([]Archive, error) {
	var resp struct {
		Archives []archiveWire `json:"archives"`
	}

	query := url.Values{"organizationId": {c.cfg.OrgID}}
	if err := c.do(ctx, http.MethodGet, "/archives", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	archives := make([]Archive, 0, len(resp.Archives))
	for _, w := range resp.Archives {
		archives = append(archives, Archive{
			ExportID:   w.ExportID,
			ExportedAt: time.Unix(w.Timestamp, 0),
			Label:      w.Label,
			Tags:       w.Tags,
		})
	}
	return archives, nil
}

// DeleteArchive removes one export.
func (c *Client) DeleteArchive(ctx context.Context, exportID string) error {
	body := map[string]string{
		"organizationId": c.cfg.OrgID,
		"exportId":       exportID,
	}
	return c.do(ctx, http.MethodPost, "/archives/delete", nil, body, nil)
}

// DownloadArchive streams the export media for offload. The caller owns
// the ReadCloser.
func (c *Client) DownloadArchive(ctx context.Context, exportID string) (io.ReadCloser, int64, error) {
	query := url.Values{"organizationId": {c.cfg.OrgID}}
	return c.get(ctx, "/archives/"+url.PathEscape(exportID)+"/download", query)
}
