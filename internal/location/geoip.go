package location

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
)

// cityReader：geoip2.Reader 的最小子集，便于测试替换
type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// 文档注释：GeoIP 粗定位提供方
// 背景：在设备无 GPS 或尚未上报时，基于船载网关公网 IP 查询 GeoLite2-City 获取城市级坐标兜底。
// 约束：精度取数据库的 accuracy_radius（千米）换算为米；坐标为 0,0 视为无结果；持续模式按固定间隔轮询。
type GeoIPProvider struct {
	db     cityReader
	closer func() error
	ip     net.IP
	poll   time.Duration
	now    func() time.Time
}

// ErrGeoIPAddr：未配置或无法解析的查询 IP
var ErrGeoIPAddr = errors.New("geoip lookup ip is empty or invalid")

// OpenGeoIP：校验查询 IP 后打开 mmdb 文件
func OpenGeoIP(path, ip string, poll time.Duration) (*GeoIPProvider, error) {
	if net.ParseIP(ip) == nil {
		return nil, fmt.Errorf("%w: %q", ErrGeoIPAddr, ip)
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db: %w", err)
	}
	p := newGeoIP(r, ip, poll)
	p.closer = r.Close
	return p, nil
}

func newGeoIP(db cityReader, ip string, poll time.Duration) *GeoIPProvider {
	if poll <= 0 {
		poll = time.Minute
	}
	return &GeoIPProvider{db: db, ip: net.ParseIP(ip), poll: poll, now: time.Now}
}

func (p *GeoIPProvider) Name() string    { return "geoip" }
func (p *GeoIPProvider) Available() bool { return p != nil && p.db != nil && p.ip != nil }

func (p *GeoIPProvider) Permission(ctx context.Context) Permission { return PermissionGranted }

func (p *GeoIPProvider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func (p *GeoIPProvider) Current(ctx context.Context, opts Options) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	rec, err := p.db.City(p.ip)
	if err != nil {
		return Sample{}, &PositionError{Code: CodePositionUnavailable, Message: err.Error()}
	}
	if rec == nil || (rec.Location.Latitude == 0 && rec.Location.Longitude == 0) {
		return Sample{}, &PositionError{Code: CodePositionUnavailable, Message: "no location for " + p.ip.String()}
	}
	return Sample{
		Lat:        rec.Location.Latitude,
		Lng:        rec.Location.Longitude,
		AccuracyM:  float64(rec.Location.AccuracyRadius) * 1000,
		CapturedAt: p.now(),
		Source:     p.Name(),
	}, nil
}

func (p *GeoIPProvider) Watch(ctx context.Context, opts Options, emit func(Sample, error)) error {
	t := time.NewTicker(p.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			emit(p.Current(ctx, opts))
		}
	}
}
