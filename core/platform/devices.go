package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"org-janitor/core/reconcile"
)

// Device type names, as used for Entity.Type and the endpoint catalogue.
const (
	TypeCamera         = "camera"
	TypeDoorController = "door_controller"
	TypeAlarmDoor      = "alarm_sensor_door"
	TypeAlarmMotion    = "alarm_sensor_motion"
	TypeAlarmWater     = "alarm_sensor_water"
	TypeAlarmPanic     = "alarm_sensor_panic"
	TypeViewingStation = "viewing_station"
	TypeGateway        = "gateway"
	TypeEnvSensor      = "environmental_sensor"
	TypeHornSpeaker    = "horn_speaker"
	TypeDeskStation    = "desk_station"
	TypeGuestIPad      = "guest_ipad"
	TypeGuestPrinter   = "guest_printer"
	TypeUser           = "user"
	TypeArchive        = "archive"
)

// Endpoint is one row of the static catalogue: how to list a device type
// and how to delete one of its entities. The vendor is inconsistent about
// what a 4xx means, so each row names the statuses that mean "org has none
// of this device type" explicitly.
type Endpoint struct {
	// Type is the entity type this endpoint lists.
	Type string
	// Method is GET or POST, per the vendor's convention for the endpoint.
	Method string
	// Path is the listing path.
	Path string
	// ListKey is the dot path to the entity array in the response JSON.
	ListKey string
	// IDKey is the identifier field inside each array element.
	IDKey string
	// NameKey is the display-name field, empty when the type has none.
	NameKey string
	// AbsentStatuses are 4xx codes meaning "no such device type in this
	// org": an empty result with a warning, not an error.
	AbsentStatuses []int
	// PerSite marks guest-hardware endpoints that must be called once per
	// site; the site list is fetched before these run.
	PerSite bool
	// DeleteMethod and DeletePath issue the delete; "{id}" in the path is
	// replaced with the entity ID. POST paths send {"deviceId": id} plus
	// the org scope instead.
	DeleteMethod string
	DeletePath   string
}

// Endpoints returns the full device-type catalogue. The slice is rebuilt
// per call so callers can trim it without affecting each other.
func Endpoints() []Endpoint {
	return []Endpoint{
		{
			Type: TypeCamera, Method: http.MethodGet, Path: "/devices/cameras",
			ListKey: "cameras", IDKey: "cameraId", NameKey: "name",
			DeleteMethod: http.MethodPost, DeletePath: "/devices/cameras/decommission",
		},
		{
			Type: TypeDoorController, Method: http.MethodGet, Path: "/access/controllers",
			ListKey: "accessControllers", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusForbidden},
			DeleteMethod:   http.MethodDelete, DeletePath: "/access/controllers/{id}",
		},
		{
			Type: TypeAlarmDoor, Method: http.MethodGet, Path: "/alarms/devices/door",
			ListKey: "doorSensors", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusBadRequest, http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/alarms/devices/door/{id}",
		},
		{
			Type: TypeAlarmMotion, Method: http.MethodGet, Path: "/alarms/devices/motion",
			ListKey: "motionSensors", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusBadRequest, http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/alarms/devices/motion/{id}",
		},
		{
			Type: TypeAlarmWater, Method: http.MethodGet, Path: "/alarms/devices/water",
			ListKey: "waterSensors", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusBadRequest, http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/alarms/devices/water/{id}",
		},
		{
			Type: TypeAlarmPanic, Method: http.MethodGet, Path: "/alarms/devices/panic",
			ListKey: "panicButtons", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusBadRequest, http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/alarms/devices/panic/{id}",
		},
		{
			Type: TypeViewingStation, Method: http.MethodGet, Path: "/cameras/viewing_stations",
			ListKey: "viewingStations", IDKey: "viewingStationId", NameKey: "name",
			AbsentStatuses: []int{http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/cameras/viewing_stations/{id}",
		},
		{
			Type: TypeGateway, Method: http.MethodGet, Path: "/cellular/gateways",
			ListKey: "gateways", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusForbidden, http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/cellular/gateways/{id}",
		},
		{
			Type: TypeEnvSensor, Method: http.MethodGet, Path: "/environment/sensors",
			ListKey: "sensors", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/environment/sensors/{id}",
		},
		{
			Type: TypeHornSpeaker, Method: http.MethodGet, Path: "/devices/horns",
			ListKey: "hornSpeakers", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusNotFound},
			DeleteMethod:   http.MethodDelete, DeletePath: "/devices/horns/{id}",
		},
		{
			Type: TypeDeskStation, Method: http.MethodGet, Path: "/access/desk_stations",
			ListKey: "deskStations", IDKey: "deviceId", NameKey: "name",
			AbsentStatuses: []int{http.StatusForbidden},
			DeleteMethod:   http.MethodDelete, DeletePath: "/access/desk_stations/{id}",
		},
		{
			Type: TypeGuestIPad, Method: http.MethodPost, Path: "/guest/sites/ipads",
			ListKey: "ipads", IDKey: "deviceId", NameKey: "name", PerSite: true,
			AbsentStatuses: []int{http.StatusBadRequest},
			DeleteMethod:   http.MethodPost, DeletePath: "/guest/sites/ipads/delete",
		},
		{
			Type: TypeGuestPrinter, Method: http.MethodPost, Path: "/guest/sites/printers",
			ListKey: "printers", IDKey: "deviceId", NameKey: "name", PerSite: true,
			AbsentStatuses: []int{http.StatusBadRequest},
			DeleteMethod:   http.MethodPost, DeletePath: "/guest/sites/printers/delete",
		},
		{
			Type: TypeUser, Method: http.MethodGet, Path: "/core/users",
			ListKey: "users", IDKey: "userId", NameKey: "email",
			DeleteMethod: http.MethodDelete, DeletePath: "/core/users/{id}",
		},
	}
}

// Site is one physical location; guest-hardware listings are per site.
type Site struct {
	ID   string `json:"siteId"`
	Name string `json:"name"`
}

// ListSites fetches the org's sites. Required before per-site endpoints.
func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	var resp struct {
		Sites []Site `json:"sites"`
	}

	query := url.Values{"organizationId": {c.cfg.OrgID}}
	if err := c.do(ctx, http.MethodGet, "/guest/sites", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return resp.Sites, nil
}

// ListEntities performs the single listing call for one endpoint (scoped to
// siteID for per-site endpoints) and returns the parsed entities.
//
// A status named in ep.AbsentStatuses yields (nil, nil): the org simply has
// none of this device type. Every other non-2xx is an error wrapping the
// status and body.
func (c *Client) ListEntities(ctx context.Context, ep Endpoint, siteID string) ([]reconcile.Entity, error) {
	var raw map[string]any
	var err error

	if ep.Method == http.MethodPost {
		body := map[string]string{"organizationId": c.cfg.OrgID}
		if siteID != "" {
			body["siteId"] = siteID
		}
		err = c.do(ctx, http.MethodPost, ep.Path, nil, body, &raw)
	} else {
		query := url.Values{"organizationId": {c.cfg.OrgID}}
		if siteID != "" {
			query.Set("siteId", siteID)
		}
		err = c.do(ctx, http.MethodGet, ep.Path, query, nil, &raw)
	}

	if err != nil {
		if code, ok := statusOf(err); ok && containsStatus(ep.AbsentStatuses, code) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", ep.Type, err)
	}

	items, err := jsonPathArray(raw, ep.ListKey)
	if err != nil {
		return nil, fmt.Errorf("unexpected %s response shape: %w", ep.Type, err)
	}

	entities := make([]reconcile.Entity, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := fields[ep.IDKey].(string)
		if id == "" {
			continue
		}

		extra := map[string]string{}
		if ep.NameKey != "" {
			if name, ok := fields[ep.NameKey].(string); ok && name != "" {
				extra["name"] = name
			}
		}
		if siteID != "" {
			extra["site_id"] = siteID
		}

		entities = append(entities, reconcile.Entity{ID: id, Type: ep.Type, Extra: extra})
	}
	return entities, nil
}

// DeleteEntity issues the delete or decommission call for one entity,
// using the catalogue row for its type.
func (c *Client) DeleteEntity(ctx context.Context, ent reconcile.Entity) error {
	ep, ok := endpointFor(ent.Type)
	if !ok {
		return fmt.Errorf("no endpoint for entity type %q", ent.Type)
	}

	if ep.DeleteMethod == http.MethodPost {
		body := map[string]string{
			"organizationId": c.cfg.OrgID,
			"deviceId":       ent.ID,
		}
		if siteID := ent.Extra["site_id"]; siteID != "" {
			body["siteId"] = siteID
		}
		return c.do(ctx, http.MethodPost, ep.DeletePath, nil, body, nil)
	}

	path := strings.ReplaceAll(ep.DeletePath, "{id}", url.PathEscape(ent.ID))
	query := url.Values{"organizationId": {c.cfg.OrgID}}
	return c.do(ctx, ep.DeleteMethod, path, query, nil, nil)
}

func endpointFor(entityType string) (Endpoint, bool) {
	for _, ep := range Endpoints() {
		if ep.Type == entityType {
			return ep, true
		}
	}
	return Endpoint{}, false
}

func containsStatus(statuses []int, code int) bool {
	for _, s := range statuses {
		if s == code {
			return true
		}
	}
	return false
}

// jsonPathArray walks a dot path into decoded JSON and returns the array
// at its end.
func jsonPathArray(raw map[string]any, path string) ([]any, error) {
	var cur any = raw
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q is not an object", part)
		}
		cur, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q missing", part)
		}
	}

	arr, ok := cur.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is not an array", path)
	}
	return arr, nil
}
