package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"org-janitor/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Email:          "ops@example.com",
		Password:       "hunter2",
		OrgID:          "org-1",
		TimeoutSeconds: 2,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(testConfig(srv.URL), nil)
	require.NoError(t, err)
	return c, srv
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		expectErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.BaseURL = "" }, expectErr: "base_url"},
		{name: "missing email", mutate: func(c *Config) { c.Email = "" }, expectErr: "credentials"},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, expectErr: "credentials"},
		{name: "missing org", mutate: func(c *Config) { c.OrgID = "" }, expectErr: "org_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://api.example.com")
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectErr)
		})
	}
}

func TestClient_LoginSetsToken(t *testing.T) {
	var sawAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@example.com", body["email"])
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})
	mux.HandleFunc("/devices/cameras", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("X-Auth-Token")
		_ = json.NewEncoder(w).Encode(map[string]any{"cameras": []any{}})
	})

	c, _ := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx))

	_, err := c.ListEntities(ctx, Endpoints()[0], "")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", sawAuth)
}

func TestClient_LoginRejectsEmptyToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": ""})
	})

	c, _ := newTestClient(t, mux)
	err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestListEntities_ParsesCatalogueShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/devices/cameras", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "org-1", r.URL.Query().Get("organizationId"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cameras": []map[string]any{
				{"cameraId": "cam-1", "name": "lobby"},
				{"cameraId": "cam-2", "name": "dock"},
				{"name": "no-id-row"},
			},
		})
	})

	c, _ := newTestClient(t, mux)

	ents, err := c.ListEntities(context.Background(), Endpoints()[0], "")
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, "cam-1", ents[0].ID)
	assert.Equal(t, TypeCamera, ents[0].Type)
	assert.Equal(t, "lobby", ents[0].Name())
}

func TestListEntities_AbsentStatusMeansEmpty(t *testing.T) {
	ep := Endpoint{
		Type: TypeAlarmDoor, Method: http.MethodGet, Path: "/alarms/devices/door",
		ListKey: "doorSensors", IDKey: "deviceId",
		AbsentStatuses: []int{http.StatusBadRequest, http.StatusNotFound},
	}

	for _, code := range ep.AbsentStatuses {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "alarms not enabled", code)
		}))

		ents, err := c.ListEntities(context.Background(), ep, "")
		assert.NoError(t, err)
		assert.Empty(t, ents)
	}
}

func TestListEntities_OtherStatusIsError(t *testing.T) {
	ep := Endpoint{
		Type: TypeCamera, Method: http.MethodGet, Path: "/devices/cameras",
		ListKey: "cameras", IDKey: "cameraId",
		AbsentStatuses: []int{http.StatusForbidden},
	}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))

	_, err := c.ListEntities(context.Background(), ep, "")
	require.Error(t, err)

	code, ok := statusOf(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, err.Error(), "backend exploded")
}

func TestListEntities_PerSiteScoping(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/guest/sites/ipads", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ipads": []map[string]any{{"deviceId": "ipad-1", "name": "front desk"}},
		})
	})

	c, _ := newTestClient(t, mux)

	var ep Endpoint
	for _, e := range Endpoints() {
		if e.Type == TypeGuestIPad {
			ep = e
		}
	}
	require.True(t, ep.PerSite)

	ents, err := c.ListEntities(context.Background(), ep, "site-7")
	require.NoError(t, err)
	require.Len(t, ents, 1)

	assert.Equal(t, "site-7", gotBody["siteId"])
	assert.Equal(t, "org-1", gotBody["organizationId"])
	assert.Equal(t, "site-7", ents[0].Extra["site_id"])
}

func TestDeleteEntity_UsesCatalogueRoute(t *testing.T) {
	var gotMethod, gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	err := c.DeleteEntity(context.Background(), reconcile.Entity{ID: "vs-1", Type: TypeViewingStation})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/cameras/viewing_stations/vs-1", gotPath)

	err = c.DeleteEntity(context.Background(), reconcile.Entity{ID: "x", Type: "unknown_type"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no endpoint")
}

func TestListArchives_ConvertsEpoch(t *testing.T) {
	exported := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/archives", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"archives": []map[string]any{
				{"exportId": "exp-1", "timestamp": exported.Unix(), "label": "incident", "tags": []string{"keep"}},
			},
		})
	})

	c, _ := newTestClient(t, mux)

	archives, err := c.ListArchives(context.Background())
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "exp-1", archives[0].ExportID)
	assert.True(t, archives[0].ExportedAt.Equal(exported))
	assert.Equal(t, []string{"keep"}, archives[0].Tags)
}

func TestAuditEvents_ParsesDevices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/core/audit_log", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("startTime"))
		assert.NotEmpty(t, r.URL.Query().Get("endTime"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"auditEvents": []map[string]any{
				{
					"eventName": EventDevicesUninstalled,
					"timestamp": time.Now().Unix(),
					"devices":   []map[string]string{{"deviceId": "exp-1"}, {"deviceId": "exp-2"}},
					"userEmail": "admin@example.com",
				},
			},
		})
	})

	c, _ := newTestClient(t, mux)

	events, err := c.AuditEvents(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"exp-1", "exp-2"}, events[0].DeviceIDs)
	assert.Equal(t, "admin@example.com", events[0].UserEmail)
}
