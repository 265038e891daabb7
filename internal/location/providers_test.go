package location

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushProviderCurrentAndWatch(t *testing.T) {
	p := NewPushProvider(2)
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }
	assert.Equal(t, PermissionPrompt, p.Permission(context.Background()))

	assert.ErrorIs(t, p.Push(Sample{Lat: 95}), ErrInvalidSample)

	require.NoError(t, p.Push(Sample{Lat: 10, Lng: 76}))
	assert.Equal(t, PermissionGranted, p.Permission(context.Background()))
	s, err := p.Current(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "push", s.Source)
	assert.Equal(t, now, s.CapturedAt)

	// 队列满时丢弃最旧样本
	require.NoError(t, p.Push(Sample{Lat: 11, Lng: 76}))
	require.NoError(t, p.Push(Sample{Lat: 12, Lng: 76, CapturedAt: now.Add(-time.Hour)}))

	ctx, cancel := context.WithCancel(context.Background())
	var got []float64
	done := make(chan struct{})
	go func() {
		_ = p.Watch(ctx, DefaultOptions(), func(s Sample, err error) { got = append(got, s.Lat) })
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []float64{11}, got)
}

func TestPushProviderTimeoutAndDenied(t *testing.T) {
	p := NewPushProvider(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Current(ctx, DefaultOptions())
	assert.ErrorIs(t, err, ErrTimeout)

	p.SetPermission(PermissionDenied)
	_, err = p.Current(context.Background(), DefaultOptions())
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPushProviderWaitsForNextSample(t *testing.T) {
	p := NewPushProvider(4)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = p.Push(Sample{Lat: 9.9, Lng: 76.2})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := p.Current(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 9.9, s.Lat)
}

type fakeCity struct {
	rec *geoip2.City
	err error
}

func (f fakeCity) City(ip net.IP) (*geoip2.City, error) { return f.rec, f.err }

func TestGeoIPProvider(t *testing.T) {
	rec := &geoip2.City{}
	rec.Location.Latitude = 9.93
	rec.Location.Longitude = 76.26
	rec.Location.AccuracyRadius = 20
	p := newGeoIP(fakeCity{rec: rec}, "203.0.113.7", 0)
	assert.True(t, p.Available())
	s, err := p.Current(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 20000.0, s.AccuracyM)
	assert.Equal(t, "geoip", s.Source)
	assert.NoError(t, p.Close())

	p = newGeoIP(fakeCity{rec: &geoip2.City{}}, "203.0.113.7", 0)
	_, err = p.Current(context.Background(), DefaultOptions())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	p = newGeoIP(fakeCity{err: errors.New("db closed")}, "203.0.113.7", 0)
	_, err = p.Current(context.Background(), DefaultOptions())
	assert.ErrorIs(t, err, ErrPositionUnavailable)

	assert.False(t, newGeoIP(fakeCity{}, "not-an-ip", 0).Available())
}

func TestOpenGeoIPRejectsBadAddr(t *testing.T) {
	for _, ip := range []string{"", "not-an-ip"} {
		_, err := OpenGeoIP("missing.mmdb", ip, 0)
		assert.ErrorIs(t, err, ErrGeoIPAddr, "ip %q", ip)
	}
	_, err := OpenGeoIP(filepath.Join(t.TempDir(), "missing.mmdb"), "203.0.113.7", 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGeoIPAddr)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(10, 76, 10*time.Millisecond)
	s, err := p.Current(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "static", s.Source)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()
	n := 0
	require.NoError(t, p.Watch(ctx, DefaultOptions(), func(Sample, error) { n++ }))
	assert.GreaterOrEqual(t, n, 1)
}
