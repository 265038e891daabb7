package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/geo"
	"fishing-borders/internal/guard"
	"fishing-borders/internal/location"
	"fishing-borders/internal/report"
	"fishing-borders/internal/store"
	"fishing-borders/internal/zones"
)

type fakeDispatcher struct {
	got []alerts.Emergency
	err error
}

func (f *fakeDispatcher) DispatchEmergency(ctx context.Context, em alerts.Emergency) error {
	f.got = append(f.got, em)
	return f.err
}

type fakeArchive struct {
	checks  []compliance.CheckLog
	reports map[string]report.Report
	limit   int
}

func (f *fakeArchive) RecentChecks(ctx context.Context, limit int) ([]compliance.CheckLog, error) {
	f.limit = limit
	return f.checks, nil
}

func (f *fakeArchive) LoadReport(ctx context.Context, day time.Time) (*report.Report, error) {
	r, ok := f.reports[day.Format("2006-01-02")]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

type server struct {
	deps Deps
	srv  *httptest.Server
}

func newServer(t *testing.T) *server {
	t.Helper()
	ring := []geo.Point{{Lat: 9.5, Lng: 75.5}, {Lat: 9.5, Lng: 76.5}, {Lat: 10.5, Lng: 76.5}, {Lat: 10.5, Lng: 75.5}}
	zs := zones.NewStore([]zones.Zone{{
		Name: "Zone A", AllowedFishing: false, RestrictionLevel: zones.RestrictionHigh,
		SeasonalRestrictions: zones.NoSeasonalRestriction, Penalty: "₹5000 fine",
		Polygon: ring, BBox: geo.RingBBox(ring),
	}})
	push := location.NewPushProvider(8)
	feed := location.NewFeed(push, location.DefaultOptions())
	mgr := alerts.NewManager(alerts.Options{Location: feed})
	g := guard.New(feed, zs, compliance.NewEvaluator(), mgr, guard.Options{})
	g.Start()
	d := Deps{Feed: feed, Push: push, Zones: zs, Manager: mgr, Guard: g, Dispatcher: &fakeDispatcher{}, HistoryLimit: 50}
	s := &server{deps: d, srv: httptest.NewServer(BuildRoutes(d))}
	t.Cleanup(func() {
		s.srv.Close()
		feed.StopTracking()
		g.Stop()
		mgr.Close()
	})
	return s
}

func (s *server) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("content-type"), "application/json") {
		var raw any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		if m, ok := raw.(map[string]any); ok {
			out = m
		} else {
			out = map[string]any{"items": raw}
		}
	}
	return resp, out
}

func TestEmergencyBeforeFixIsConflict(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, http.MethodPost, "/emergency", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body["error"], "not available")

	resp, _ = s.do(t, http.MethodGet, "/location", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIngestValidation(t *testing.T) {
	s := newServer(t)
	resp, _ := s.do(t, http.MethodPost, "/location", `{"lat": 10}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/location", `{"lat": 120, "lng": 10}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/location", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/proximity?lat=abc&lng=1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/report?window_h=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrackingFlow(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, http.MethodPost, "/location", `{"lat": 10.0, "lng": 76.0, "accuracy_m": 6}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, false, body["tracking"])

	resp, body = s.do(t, http.MethodPost, "/tracking/start", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["tracking"])

	require.Eventually(t, func() bool { return len(s.deps.Manager.LiveAlerts()) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, body = s.do(t, http.MethodGet, "/compliance", "")
	assert.Equal(t, false, body["is_compliant"])

	_, body = s.do(t, http.MethodGet, "/alerts", "")
	items := body["items"].([]any)
	require.Len(t, items, 1)
	id := items[0].(map[string]any)["id"].(string)

	_, body = s.do(t, http.MethodGet, "/report", "")
	summary := body["summary"].(map[string]any)
	assert.Equal(t, 80.0, summary["compliance_score"])
	assert.Equal(t, "24 hours", body["period"])

	resp, body = s.do(t, http.MethodPost, "/emergency", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["dispatched"])
	assert.Equal(t, "SOS", body["emergency"].(map[string]any)["emergency_type"])

	resp, _ = s.do(t, http.MethodPost, "/alerts/"+id+"/resolve", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, "/alerts/"+id+"/resolve", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = s.do(t, http.MethodGet, "/history?limit=5", "")
	hist := body["items"].([]any)
	require.Len(t, hist, 1)
	assert.Equal(t, true, hist[0].(map[string]any)["resolved"])

	_, body = s.do(t, http.MethodGet, "/proximity", "")
	assert.Len(t, body["zones"], 0)

	resp, body = s.do(t, http.MethodPost, "/tracking/stop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["tracking"])

	_, body = s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 1.0, body["zones"])
}

func TestEmergencyDispatchFailureStillReturnsBundle(t *testing.T) {
	s := newServer(t)
	s.deps.Dispatcher.(*fakeDispatcher).err = errors.New("broker down")
	s.deps.Guard.Process(location.Sample{Lat: 10, Lng: 76, CapturedAt: time.Now()})
	require.NoError(t, s.deps.Push.Push(location.Sample{Lat: 10, Lng: 76}))
	require.NoError(t, s.deps.Feed.StartTracking())
	require.Eventually(t, func() bool { _, ok := s.deps.Feed.Current(); return ok }, 2*time.Second, 10*time.Millisecond)

	resp, body := s.do(t, http.MethodPost, "/emergency", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["dispatched"])
	assert.Equal(t, "broker down", body["dispatch_error"])
}

func TestPermissionAndZones(t *testing.T) {
	s := newServer(t)
	_, body := s.do(t, http.MethodGet, "/permission", "")
	assert.Equal(t, "prompt", body["permission"])

	_, body = s.do(t, http.MethodGet, "/zones", "")
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Zone A", items[0].(map[string]any)["name"])

	_, body = s.do(t, http.MethodGet, "/proximity?lat=9.495&lng=75.5", "")
	near := body["zones"].([]any)
	require.Len(t, near, 1)
	assert.Equal(t, "Zone A", near[0].(map[string]any)["zone"])
}

func TestPushDisabled(t *testing.T) {
	s := newServer(t)
	d := s.deps
	d.Push = nil
	srv := httptest.NewServer(BuildRoutes(d))
	defer srv.Close()
	resp, err := http.Post(srv.URL+"/location", "application/json", strings.NewReader(`{"lat":1,"lng":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeviceReportedPermission(t *testing.T) {
	s := newServer(t)
	resp, body := s.do(t, http.MethodPost, "/permission", `{"permission":"denied"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "denied", body["permission"])

	resp, _ = s.do(t, http.MethodPost, "/permission", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/location?fresh=true", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/permission", `{"permission":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodPost, "/permission", `{"permission":"granted"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "granted", body["permission"])
}

func TestEmergencyLocation(t *testing.T) {
	s := newServer(t)
	resp, _ := s.do(t, http.MethodPost, "/emergency/location", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.NoError(t, s.deps.Push.Push(location.Sample{Lat: 10, Lng: 76, AccuracyM: 8}))
	require.NoError(t, s.deps.Feed.StartTracking())
	require.Eventually(t, func() bool { _, ok := s.deps.Feed.Current(); return ok }, 2*time.Second, 10*time.Millisecond)

	resp, body := s.do(t, http.MethodPost, "/emergency/location", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "emergency", body["type"])
	assert.Equal(t, 8.0, body["accuracy_m"])
}

func TestArchiveRoutes(t *testing.T) {
	s := newServer(t)
	resp, _ := s.do(t, http.MethodGet, "/checks", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	arc := &fakeArchive{
		checks:  []compliance.CheckLog{{Zone: "Zone A", ViolationCount: 1}},
		reports: map[string]report.Report{"2026-03-01": {Period: "24 hours"}},
	}
	d := s.deps
	d.Archive = arc
	srv := httptest.NewServer(BuildRoutes(d))
	defer srv.Close()
	s2 := &server{deps: d, srv: srv}

	resp, body := s2.do(t, http.MethodGet, "/checks?limit=7", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Zone A", items[0].(map[string]any)["zone"])
	assert.Equal(t, 7, arc.limit)

	resp, body = s2.do(t, http.MethodGet, "/reports/2026-03-01", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "24 hours", body["period"])

	resp, _ = s2.do(t, http.MethodGet, "/reports/2026-03-02", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s2.do(t, http.MethodGet, "/reports/yesterday", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
