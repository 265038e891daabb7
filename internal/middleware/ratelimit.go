// 包 middleware：设备上报入口的限流与来源白名单
package middleware

import (
	"net/http"
	"sync"
	"time"

	"fishing-borders/internal/logger"
)

// 文档注释：令牌桶限流（每秒）
// 背景：船载终端异常时可能高频重发定位，限制上报入口速率，避免判定与外发通道被压垮。
// 约束：简化实现，不做队列排队，仅丢弃并返回 429；每个自然秒重置令牌。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 20
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit：tb 为 nil 时直接放行
func RateLimit(tb *TokenBucket, next http.Handler) http.Handler {
	if tb == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
