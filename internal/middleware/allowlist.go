package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// 文档注释：设备来源白名单（IP/CIDR）
// 背景：仅允许船载网关等已登记地址上报定位，其他来源统一返回 403。
// 约束：支持 IPv4/IPv6 CIDR；来源 IP 以 RemoteAddr 为准，仅当 RemoteAddr 属于受信代理时才取 realIPHeader 首个有效 IP；
// 未配置任何规则时放行全部请求。
type Allowlist struct {
	l            *slog.Logger
	allowIPs     map[string]struct{}
	allowCIDRs   []*net.IPNet
	realIPHeader string
	proxies      []*net.IPNet
}

func NewAllowlist(l *slog.Logger, ips, cidrs []string, realIPHeader string, trustedProxies []string) *Allowlist {
	a := &Allowlist{l: l, allowIPs: map[string]struct{}{}, realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, p := range ips {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			a.allowIPs[ip.String()] = struct{}{}
		} else {
			l.Warn("allowlist_bad_ip", "value", p)
		}
	}
	for _, c := range cidrs {
		if n := parseNet(c); n != nil {
			a.allowCIDRs = append(a.allowCIDRs, n)
		} else {
			l.Warn("allowlist_bad_cidr", "value", c)
		}
	}
	for _, c := range trustedProxies {
		if n := parseNet(c); n != nil {
			a.proxies = append(a.proxies, n)
		} else {
			l.Warn("allowlist_bad_proxy", "value", c)
		}
	}
	if a.realIPHeader != "" && len(a.proxies) == 0 {
		l.Warn("allowlist_real_ip_header_ignored", "header", a.realIPHeader)
	}
	return a
}

// parseNet：CIDR 或单个 IP（视为 /32 或 /128）
func parseNet(s string) *net.IPNet {
	s = strings.TrimSpace(s)
	if _, n, err := net.ParseCIDR(s); err == nil {
		return n
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}
}

func containsIP(nets []*net.IPNet, ip net.IP) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Enabled：是否配置了任何规则
func (a *Allowlist) Enabled() bool { return a != nil && (len(a.allowIPs) > 0 || len(a.allowCIDRs) > 0) }

func (a *Allowlist) clientIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil || a.realIPHeader == "" || !containsIP(a.proxies, peer) {
		return peer
	}
	for _, p := range strings.Split(r.Header.Get(a.realIPHeader), ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return peer
}

// Allowed：来源是否命中白名单
func (a *Allowlist) Allowed(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}
	ip := a.clientIP(r)
	if ip == nil {
		return false
	}
	if _, ok := a.allowIPs[ip.String()]; ok {
		return true
	}
	return containsIP(a.allowCIDRs, ip)
}

func (a *Allowlist) Wrap(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Allowed(r) {
			a.l.Warn("device_source_denied", "remote", r.RemoteAddr, "path", r.URL.Path)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
