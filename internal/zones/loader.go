package zones

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"fishing-borders/internal/geo"
	"fishing-borders/internal/logger"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// 文档注释：加载海域数据（GeoJSON FeatureCollection）
// 背景：启动时一次性读取海域边界文件；source 可为本地路径或 http(s) URL。
// 约束：获取失败返回 *ResourceError；无法解析为 FeatureCollection 返回 *FormatError；
// 每个要素必须为单环 Polygon 且具有唯一的 name。
func Load(ctx context.Context, source string) ([]Zone, error) {
	t0 := time.Now()
	b, err := fetch(ctx, source)
	if err != nil {
		return nil, &ResourceError{Source: source, Err: err}
	}
	zs, err := Parse(source, b)
	if err != nil {
		return nil, err
	}
	logger.L().Info("zone_load_ok", "source", source, "zones", len(zs), "ms", time.Since(t0).Milliseconds())
	return zs, nil
}

func fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(source)
}

// Parse：解析 GeoJSON 字节为海域列表（顺序与文件中要素顺序一致）
func Parse(source string, b []byte) ([]Zone, error) {
	var gj map[string]any
	if err := json.Unmarshal(b, &gj); err != nil {
		return nil, &FormatError{Source: source, Reason: "invalid json", Err: err}
	}
	if !strings.EqualFold(getStr(gj, "type"), "featurecollection") {
		return nil, &FormatError{Source: source, Reason: "not a FeatureCollection"}
	}
	arr, ok := gj["features"].([]any)
	if !ok {
		return nil, &FormatError{Source: source, Reason: "features is not an array"}
	}
	out := make([]Zone, 0, len(arr))
	seen := make(map[string]struct{}, len(arr))
	for i, it := range arr {
		f, ok := it.(map[string]any)
		if !ok {
			return nil, &FormatError{Source: source, Reason: fmt.Sprintf("feature %d is not an object", i)}
		}
		z, reason := parseFeature(f)
		if reason != "" {
			return nil, &FormatError{Source: source, Reason: fmt.Sprintf("feature %d: %s", i, reason)}
		}
		if _, dup := seen[z.Name]; dup {
			return nil, &FormatError{Source: source, Reason: fmt.Sprintf("duplicate zone name %q", z.Name)}
		}
		seen[z.Name] = struct{}{}
		out = append(out, z)
	}
	return out, nil
}

func parseFeature(f map[string]any) (Zone, string) {
	var z Zone
	p, ok := f["properties"].(map[string]any)
	if !ok {
		return z, "missing properties"
	}
	z.Name = strings.TrimSpace(getStr(p, "name"))
	if z.Name == "" {
		return z, "missing name"
	}
	z.ZoneType = getStr(p, "zone_type")
	z.AllowedFishing = getBool(p, "allowed_fishing")
	z.RestrictionLevel = parseRestriction(getStr(p, "restriction_level"))
	z.SeasonalRestrictions = getStr(p, "seasonal_restrictions")
	z.MaxBoatSize = getStr(p, "max_boat_size")
	if !z.AllowedFishing {
		z.Penalty = getStr(p, "penalty")
	}
	z.ContactAuthority = getStr(p, "contact_authority")

	g, ok := f["geometry"].(map[string]any)
	if !ok {
		return z, "missing geometry"
	}
	if !strings.EqualFold(getStr(g, "type"), "polygon") {
		return z, "geometry is not a Polygon"
	}
	coords, ok := g["coordinates"].([]any)
	if !ok || len(coords) == 0 {
		return z, "polygon has no rings"
	}
	ring, ok := coords[0].([]any)
	if !ok {
		return z, "polygon ring is not an array"
	}
	for _, c := range ring {
		vv, ok := c.([]any)
		if !ok || len(vv) < 2 {
			return z, "bad coordinate"
		}
		lng, ok1 := vv[0].(float64)
		lat, ok2 := vv[1].(float64)
		if !ok1 || !ok2 {
			return z, "coordinate is not numeric"
		}
		z.Polygon = append(z.Polygon, geo.Point{Lat: lat, Lng: lng})
	}
	z.BBox = geo.RingBBox(z.Polygon)
	return z, ""
}

func getStr(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}

// allowed_fishing 兼容布尔与 "true"/"false" 字符串
func getBool(m map[string]any, k string) bool {
	switch v := m[k].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}
