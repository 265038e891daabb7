// 包 api：集中注册 HTTP API 路由以解耦主入口；仅做 JSON 适配，不承载判定逻辑
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fishing-borders/internal/alerts"
	"fishing-borders/internal/compliance"
	"fishing-borders/internal/geo"
	"fishing-borders/internal/guard"
	"fishing-borders/internal/location"
	"fishing-borders/internal/logger"
	"fishing-borders/internal/middleware"
	"fishing-borders/internal/report"
	"fishing-borders/internal/store"
	"fishing-borders/internal/zones"
)

// EmergencyDispatcher：求救数据包外部投递（notify.KafkaDispatcher 满足该接口）
type EmergencyDispatcher interface {
	DispatchEmergency(ctx context.Context, em alerts.Emergency) error
}

// Archive：检查记录与日报归档查询（store.Store 满足该接口）
type Archive interface {
	RecentChecks(ctx context.Context, limit int) ([]compliance.CheckLog, error)
	LoadReport(ctx context.Context, day time.Time) (*report.Report, error)
}

// Deps：路由依赖；Push/Dispatcher/Archive/Limiter/Allowlist 可为空
type Deps struct {
	Feed         *location.Feed
	Push         *location.PushProvider
	Zones        *zones.Store
	Manager      *alerts.Manager
	Guard        *guard.Guard
	Dispatcher   EmergencyDispatcher
	Archive      Archive
	Limiter      *middleware.TokenBucket
	Allowlist    *middleware.Allowlist
	HistoryLimit int
}

// permissionRequest：设备声明的授权状态
type permissionRequest struct {
	Permission location.Permission `json:"permission"`
}

var errArchiveDisabled = errors.New("compliance check log is disabled")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}

// locationStatus：定位错误到 HTTP 状态码
func locationStatus(err error) int {
	switch {
	case errors.Is(err, location.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, location.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, location.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, location.ErrInvalidSample):
		return http.StatusBadRequest
	case errors.Is(err, location.ErrLocationUnavailable):
		return http.StatusConflict
	}
	return http.StatusServiceUnavailable
}

// sampleRequest：设备上报体
type sampleRequest struct {
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
	AccuracyM  float64    `json:"accuracy_m"`
	SpeedMps   *float64   `json:"speed_mps"`
	HeadingDeg *float64   `json:"heading_deg"`
	CapturedAt *time.Time `json:"captured_at"`
}

func (d Deps) historyLimit(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return d.HistoryLimit
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	l := logger.Component("api")

	ingest := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.Push == nil {
			writeError(w, http.StatusConflict, errors.New("location provider does not accept device reports"))
			return
		}
		var req sampleRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Lat == nil || req.Lng == nil {
			writeError(w, http.StatusBadRequest, errors.New("lat and lng are required"))
			return
		}
		s := location.Sample{Lat: *req.Lat, Lng: *req.Lng, AccuracyM: req.AccuracyM, SpeedMps: req.SpeedMps, HeadingDeg: req.HeadingDeg}
		if req.CapturedAt != nil {
			s.CapturedAt = *req.CapturedAt
		}
		if err := d.Push.Push(s); err != nil {
			writeError(w, locationStatus(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "tracking": d.Feed.IsTracking()})
	}))
	ingest = middleware.RateLimit(d.Limiter, ingest)
	if d.Allowlist != nil {
		ingest = d.Allowlist.Wrap(ingest)
	}
	mux.Handle("POST /location", ingest)

	mux.HandleFunc("GET /location", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fresh") == "true" {
			s, err := d.Feed.GetCurrentLocation(r.Context())
			if err != nil {
				writeError(w, locationStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, s)
			return
		}
		s, ok := d.Feed.Current()
		if !ok {
			writeError(w, http.StatusConflict, location.ErrLocationUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	mux.HandleFunc("GET /location/status", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":     d.Feed.TrackingStatus(),
			"permission": d.Feed.GetPermissionStatus(r.Context()),
		}
		if d.Guard != nil {
			if err := d.Guard.LastError(); err != nil {
				body["last_error"] = err.Error()
			}
			if c, ok := d.Guard.LastCheck(); ok {
				body["last_check"] = c
			}
		}
		writeJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("POST /tracking/start", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Feed.StartTracking(); err != nil {
			writeError(w, locationStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, d.Feed.TrackingStatus())
	})

	mux.HandleFunc("POST /tracking/stop", func(w http.ResponseWriter, r *http.Request) {
		d.Feed.StopTracking()
		writeJSON(w, http.StatusOK, d.Feed.TrackingStatus())
	})

	mux.HandleFunc("GET /permission", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"permission": d.Feed.GetPermissionStatus(r.Context())})
	})

	// 带请求体时为设备上报授权状态（仅设备上报模式）；无请求体时请求授权
	mux.HandleFunc("POST /permission", func(w http.ResponseWriter, r *http.Request) {
		var req permissionRequest
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req)
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			writeError(w, http.StatusBadRequest, err)
			return
		default:
			switch req.Permission {
			case location.PermissionGranted, location.PermissionDenied, location.PermissionPrompt:
			default:
				writeError(w, http.StatusBadRequest, errors.New("permission must be granted, denied or prompt"))
				return
			}
			if d.Push == nil {
				writeError(w, http.StatusConflict, errors.New("location provider does not accept device reports"))
				return
			}
			d.Push.SetPermission(req.Permission)
			l.Info("device_permission_reported", "permission", req.Permission)
			writeJSON(w, http.StatusOK, map[string]any{"permission": d.Feed.GetPermissionStatus(r.Context())})
			return
		}
		if err := d.Feed.RequestPermission(r.Context()); err != nil {
			writeError(w, locationStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"permission": d.Feed.GetPermissionStatus(r.Context())})
	})

	mux.HandleFunc("GET /zones", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Zones.Zones())
	})

	mux.HandleFunc("GET /compliance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Manager.ComplianceStatus())
	})

	mux.HandleFunc("GET /alerts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Manager.LiveAlerts())
	})

	mux.HandleFunc("POST /alerts/{id}/resolve", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !d.Manager.Resolve(id) {
			writeError(w, http.StatusNotFound, alerts.ErrNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Manager.History(d.historyLimit(r)))
	})

	mux.HandleFunc("GET /report", func(w http.ResponseWriter, r *http.Request) {
		window := report.DefaultWindow
		if s := r.URL.Query().Get("window_h"); s != "" {
			h, err := strconv.Atoi(s)
			if err != nil || h <= 0 {
				writeError(w, http.StatusBadRequest, errors.New("window_h must be a positive integer"))
				return
			}
			window = time.Duration(h) * time.Hour
		}
		rep := report.Generate(d.Manager.AllHistory(), d.Manager.ComplianceStatus(), d.Manager.CurrentZone(), time.Now(), window)
		writeJSON(w, http.StatusOK, rep)
	})

	mux.HandleFunc("POST /emergency", func(w http.ResponseWriter, r *http.Request) {
		em, err := d.Manager.EmergencyBroadcast()
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		body := map[string]any{"emergency": em, "dispatched": false}
		if d.Dispatcher != nil {
			if err := d.Dispatcher.DispatchEmergency(r.Context(), em); err != nil {
				l.Error("emergency_dispatch_error", "err", err)
				body["dispatch_error"] = err.Error()
			} else {
				body["dispatched"] = true
			}
		}
		writeJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("POST /emergency/location", func(w http.ResponseWriter, r *http.Request) {
		em, err := d.Feed.EmergencyLocation()
		if err != nil {
			writeError(w, http.StatusConflict, err)
			return
		}
		l.Warn("emergency_location", "lat", em.Location.Lat, "lng", em.Location.Lng, "accuracy_m", em.AccuracyM)
		writeJSON(w, http.StatusOK, em)
	})

	mux.HandleFunc("GET /checks", func(w http.ResponseWriter, r *http.Request) {
		if d.Archive == nil {
			writeError(w, http.StatusNotImplemented, errArchiveDisabled)
			return
		}
		checks, err := d.Archive.RecentChecks(r.Context(), d.historyLimit(r))
		if err != nil {
			l.Error("checks_query_error", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if checks == nil {
			checks = []compliance.CheckLog{}
		}
		writeJSON(w, http.StatusOK, checks)
	})

	mux.HandleFunc("GET /reports/{day}", func(w http.ResponseWriter, r *http.Request) {
		if d.Archive == nil {
			writeError(w, http.StatusNotImplemented, errArchiveDisabled)
			return
		}
		day, err := time.Parse("2006-01-02", r.PathValue("day"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("day must be YYYY-MM-DD"))
			return
		}
		rep, err := d.Archive.LoadReport(r.Context(), day)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			l.Error("report_load_error", "day", r.PathValue("day"), "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	mux.HandleFunc("GET /proximity", func(w http.ResponseWriter, r *http.Request) {
		if d.Guard == nil {
			writeError(w, http.StatusNotImplemented, errors.New("proximity check unavailable"))
			return
		}
		q := r.URL.Query()
		var pt geo.Point
		if q.Get("lat") != "" || q.Get("lng") != "" {
			lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
			lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
			if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
				writeError(w, http.StatusBadRequest, errors.New("lat/lng must be valid coordinates"))
				return
			}
			pt = geo.Point{Lat: lat, Lng: lng}
		} else {
			s, ok := d.Feed.Current()
			if !ok {
				writeError(w, http.StatusConflict, location.ErrLocationUnavailable)
				return
			}
			pt = s.Point()
		}
		near := d.Guard.Proximity(pt)
		if near == nil {
			near = []guard.ZoneProximity{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"point": pt, "zones": near})
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"zones":       d.Zones.Len(),
			"tracking":    d.Feed.IsTracking(),
			"live_alerts": len(d.Manager.LiveAlerts()),
		})
	})

	return mux
}
