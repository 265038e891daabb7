package zones

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishing-borders/internal/geo"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[75.5, 9.5], [76.5, 9.5], [76.5, 10.5], [75.5, 10.5], [75.5, 9.5]]]},
      "properties": {
        "name": "Zone A", "zone_type": "protected_area", "allowed_fishing": false,
        "restriction_level": "high", "seasonal_restrictions": "None", "max_boat_size": "12m",
        "penalty": "₹5000 fine", "contact_authority": "Kerala Fisheries Dept"
      }
    },
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[70, 5], [80, 5], [80, 15], [70, 15]]]},
      "properties": {
        "name": "Open Sea", "zone_type": "open_water", "allowed_fishing": true,
        "restriction_level": "LOW", "seasonal_restrictions": "June-July monsoon ban",
        "max_boat_size": "Any", "penalty": "ignored", "contact_authority": "Coast Guard 1554"
      }
    }
  ]
}`

func TestParse(t *testing.T) {
	zs, err := Parse("test", []byte(sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, zs, 2)

	a := zs[0]
	assert.Equal(t, "Zone A", a.Name)
	assert.Equal(t, "protected_area", a.ZoneType)
	assert.False(t, a.AllowedFishing)
	assert.Equal(t, RestrictionHigh, a.RestrictionLevel)
	assert.Equal(t, "₹5000 fine", a.Penalty)
	assert.False(t, a.HasSeasonalRule())
	assert.Len(t, a.Polygon, 5)
	assert.Equal(t, geo.Point{Lat: 9.5, Lng: 75.5}, a.Polygon[0])
	assert.Equal(t, geo.BBox{75.5, 9.5, 76.5, 10.5}, a.BBox)

	open := zs[1]
	assert.True(t, open.AllowedFishing)
	assert.Equal(t, RestrictionLow, open.RestrictionLevel)
	assert.Empty(t, open.Penalty, "penalty only kept for prohibited zones")
	assert.True(t, open.HasSeasonalRule())
}

func TestParseFormatErrors(t *testing.T) {
	cases := map[string]string{
		"bad json":        `{`,
		"not collection":  `{"type":"Feature"}`,
		"features":        `{"type":"FeatureCollection","features":{}}`,
		"no name":         `{"type":"FeatureCollection","features":[{"properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1]]]}}]}`,
		"multipolygon":    `{"type":"FeatureCollection","features":[{"properties":{"name":"x"},"geometry":{"type":"MultiPolygon","coordinates":[]}}]}`,
		"bad coordinate":  `{"type":"FeatureCollection","features":[{"properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,"a"],[1,0],[1,1]]]}}]}`,
		"duplicate names": `{"type":"FeatureCollection","features":[{"properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1]]]}},{"properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1]]]}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("test", []byte(body))
			require.Error(t, err)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe))
			assert.ErrorIs(t, err, ErrFormat)
			assert.NotErrorIs(t, err, ErrResource)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fishing_zones.geojson")
	require.NoError(t, os.WriteFile(p, []byte(sampleGeoJSON), 0o644))
	zs, err := Load(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, zs, 2)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.geojson"))
	require.Error(t, err)
	var re *ResourceError
	assert.True(t, errors.As(err, &re))
	assert.ErrorIs(t, err, ErrResource)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/borders/fishing_zones.geojson" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(sampleGeoJSON))
	}))
	defer srv.Close()

	zs, err := Load(context.Background(), srv.URL+"/borders/fishing_zones.geojson")
	require.NoError(t, err)
	assert.Len(t, zs, 2)

	_, err = Load(context.Background(), srv.URL+"/nope")
	assert.ErrorIs(t, err, ErrResource)
}

func TestStoreLookup(t *testing.T) {
	zs, err := Parse("test", []byte(sampleGeoJSON))
	require.NoError(t, err)
	s := NewStore(zs)
	assert.Equal(t, 2, s.Len())

	hits := s.Lookup(geo.Point{Lat: 10.0, Lng: 76.0})
	require.Len(t, hits, 2, "overlapping zones are all returned")
	assert.Equal(t, "Zone A", hits[0].Name)
	assert.Equal(t, "Open Sea", hits[1].Name)

	hits = s.Lookup(geo.Point{Lat: 12.0, Lng: 78.0})
	require.Len(t, hits, 1)
	assert.Equal(t, "Open Sea", hits[0].Name)

	assert.Empty(t, s.Lookup(geo.Point{Lat: 30.0, Lng: 30.0}))

	// second lookup in the same cell is served from the candidate cache
	assert.Len(t, s.Lookup(geo.Point{Lat: 10.0001, Lng: 76.0001}), 2)
	assert.GreaterOrEqual(t, s.cells.len(), 3)

	z, ok := s.ByName("Zone A")
	assert.True(t, ok)
	assert.Equal(t, "Zone A", z.Name)
	_, ok = s.ByName("Zone Z")
	assert.False(t, ok)
}

func TestStoreZonesIsCopy(t *testing.T) {
	zs, _ := Parse("test", []byte(sampleGeoJSON))
	s := NewStore(zs)
	got := s.Zones()
	got[0].Name = "mutated"
	assert.Equal(t, "Zone A", s.Zones()[0].Name)
}

func TestLRUExpiry(t *testing.T) {
	c := newLRU(2, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.set("a", []int{1})
	c.set("b", []int{2})
	c.set("c", []int{3})
	_, ok := c.get("a")
	assert.False(t, ok, "evicted by capacity")
	v, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, []int{3}, v)
	now = now.Add(2 * time.Minute)
	_, ok = c.get("c")
	assert.False(t, ok, "expired by ttl")
}

func TestNilStore(t *testing.T) {
	var s *Store
	assert.Nil(t, s.Lookup(geo.Point{}))
	assert.Equal(t, 0, s.Len())
}

func TestLoadBundledZones(t *testing.T) {
	zs, err := Load(context.Background(), filepath.Join("..", "..", "data", "borders", "fishing_zones.geojson"))
	require.NoError(t, err)
	require.Len(t, zs, 4)

	s := NewStore(zs)
	hits := s.Lookup(geo.Point{Lat: 9.9, Lng: 76.2})
	require.Len(t, hits, 2)
	assert.Equal(t, "Vembanad Marine Sanctuary", hits[0].Name)
	assert.False(t, hits[0].AllowedFishing)
	assert.NotEmpty(t, hits[0].Penalty)
	assert.Equal(t, "Kochi Inshore Zone", hits[1].Name)
	assert.Empty(t, s.Lookup(geo.Point{Lat: 12, Lng: 80}))
}
