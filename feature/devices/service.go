package devices

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"org-janitor/core/platform"
	"org-janitor/core/reconcile"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the slice of the platform client the service needs.
type API interface {
	ListSites(ctx context.Context) ([]platform.Site, error)
	ListEntities(ctx context.Context, ep platform.Endpoint, siteID string) ([]reconcile.Entity, error)
	DeleteEntity(ctx context.Context, ent reconcile.Entity) error
}

// GatherReport carries per-type warnings and errors out of a gather pass.
// Warnings are expected conditions (type absent in this org); errors are
// real failures that left the inventory partial.
type GatherReport struct {
	// Warnings lists device types the org simply does not have.
	Warnings []string `json:"warnings,omitempty"`
	// Errors maps device type to the failure that kept it out of the
	// inventory.
	Errors map[string]string `json:"errors,omitempty"`
}

// Partial reports whether any gather task failed.
func (r GatherReport) Partial() bool {
	return len(r.Errors) > 0
}

// Service gathers inventory and dispatches deletes for device entities.
type Service struct {
	api API
	log *zap.Logger
}

// NewService creates the device service.
func NewService(api API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log}
}

// Gather lists every device type in the catalogue concurrently and returns
// the flat inventory plus a report of what went wrong. The inventory is
// sorted by type then ID so repeated runs see the same order.
func (s *Service) Gather(ctx context.Context) ([]reconcile.Entity, GatherReport) {
	endpoints := platform.Endpoints()
	report := GatherReport{Errors: map[string]string{}}

	// Guest endpoints need the site list before they can run at all.
	var sites []platform.Site
	needSites := false
	for _, ep := range endpoints {
		if ep.PerSite {
			needSites = true
			break
		}
	}
	if needSites {
		var err error
		sites, err = s.api.ListSites(ctx)
		if err != nil {
			// Guest types become errors; everything else still gathers.
			for _, ep := range endpoints {
				if ep.PerSite {
					report.Errors[ep.Type] = fmt.Sprintf("site list unavailable: %v", err)
				}
			}
			s.log.Warn("failed to list sites, skipping guest hardware", zap.Error(err))
		}
	}

	var (
		mu        sync.Mutex
		inventory []reconcile.Entity
	)

	// One task per device type. The group carries no cancellation: a
	// failing type must not stop its siblings, so tasks report through
	// the shared report and always return nil.
	var g errgroup.Group
	for _, ep := range endpoints {
		if ep.PerSite && len(sites) == 0 {
			continue
		}

		g.Go(func() error {
			siteIDs := []string{""}
			if ep.PerSite {
				siteIDs = siteIDs[:0]
				for _, site := range sites {
					siteIDs = append(siteIDs, site.ID)
				}
			}

			var found []reconcile.Entity
			absent := false
			for _, siteID := range siteIDs {
				ents, err := s.api.ListEntities(ctx, ep, siteID)
				if err != nil {
					mu.Lock()
					report.Errors[ep.Type] = err.Error()
					mu.Unlock()
					s.log.Warn("gather failed",
						zap.String("type", ep.Type),
						zap.Error(err),
					)
					return nil
				}
				// A nil slice with no error means the org has none of
				// this device type (a configured "absent" status).
				if ents == nil {
					absent = true
					continue
				}
				found = append(found, ents...)
			}

			mu.Lock()
			defer mu.Unlock()
			if absent && len(found) == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%s: not present in this org", ep.Type))
				return nil
			}
			inventory = append(inventory, found...)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(inventory, func(i, j int) bool {
		if inventory[i].Type != inventory[j].Type {
			return inventory[i].Type < inventory[j].Type
		}
		return inventory[i].ID < inventory[j].ID
	})
	sort.Strings(report.Warnings)

	s.log.Info("inventory gathered",
		zap.Int("entities", len(inventory)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("errors", len(report.Errors)),
	)

	return inventory, report
}

// Deleter returns the DeleteFunc the purge engine dispatches through.
func (s *Service) Deleter() reconcile.DeleteFunc {
	return s.api.DeleteEntity
}
