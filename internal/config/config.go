// 包 config：集中读取环境变量（支持 .env），为主入口与 CLI 提供类型化配置
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config：服务全部可调参数
type Config struct {
	Addr      string
	APIBase   string
	LogLevel  string
	LogFormat string

	ZonesSource    string
	ZoneCacheTTL   time.Duration
	ProximityWarnM float64

	AlertDedupWindow time.Duration
	AlertExpireAfter time.Duration
	AlertMaxLive     int
	HistoryLimit     int

	LocationProvider string // push | geoip | static
	LocationTimeout  time.Duration
	LocationMaxAge   time.Duration
	GeoIPDBPath      string
	GeoIPAddr        string
	GeoIPPoll        time.Duration
	StaticLat        float64
	StaticLng        float64
	AutoTrack        bool

	CheckLogEnabled bool
	ReportHour      int
	ReportTZ        string

	RedisEnabled bool
	RedisChannel string

	KafkaBrokers        []string
	KafkaTopicEmergency string

	RateLimitEnabled bool
	RateLimitQPS     int

	DeviceAllowIPs       []string
	DeviceAllowCIDRs     []string
	DeviceRealIPHeader   string
	DeviceTrustedProxies []string

	TLSEnabled  bool
	TLSCertPath string
	TLSKeyPath  string

	CheckLogRetentionDays int
}

// LoadDotEnv：按顺序加载 .env 与 data/env/.env；文件缺失时静默跳过
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// Load：从环境变量构建配置（调用方需先执行 LoadDotEnv）
func Load() Config {
	return Config{
		Addr:      getEnv("ADDR", ":8080"),
		APIBase:   getEnv("API_BASE", "/api"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ZonesSource:    getEnv("ZONES_SOURCE", filepath.Join("data", "borders", "fishing_zones.geojson")),
		ZoneCacheTTL:   getEnvSeconds("ZONE_CACHE_TTL_S", 3600),
		ProximityWarnM: getEnvFloat("PROXIMITY_WARN_M", 1000),

		AlertDedupWindow: getEnvSeconds("ALERT_DEDUP_WINDOW_S", 60),
		AlertExpireAfter: getEnvSeconds("ALERT_EXPIRE_S", 30),
		AlertMaxLive:     getEnvInt("ALERT_MAX_LIVE", 100),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 50),

		LocationProvider: strings.ToLower(getEnv("LOCATION_PROVIDER", "push")),
		LocationTimeout:  getEnvSeconds("LOCATION_TIMEOUT_S", 10),
		LocationMaxAge:   getEnvSeconds("LOCATION_MAX_AGE_S", 30),
		GeoIPDBPath:      getEnv("GEOIP_DB_PATH", filepath.Join("data", "geoip", "GeoLite2-City.mmdb")),
		GeoIPAddr:        getEnv("GEOIP_IP", ""),
		GeoIPPoll:        getEnvSeconds("GEOIP_POLL_S", 60),
		StaticLat:        getEnvFloat("STATIC_LAT", 0),
		StaticLng:        getEnvFloat("STATIC_LNG", 0),
		AutoTrack:        getEnvBool("AUTO_TRACK", true),

		CheckLogEnabled: getEnvBool("CHECKLOG_ENABLED", false),
		ReportHour:      getEnvInt("REPORT_HOUR", 0),
		ReportTZ:        getEnv("REPORT_TZ", "Asia/Kolkata"),

		RedisEnabled: getEnvBool("REDIS_ENABLED", false),
		RedisChannel: getEnv("REDIS_ALERT_CHANNEL", "fishguard:alerts"),

		KafkaBrokers:        getEnvList("KAFKA_BROKERS"),
		KafkaTopicEmergency: getEnv("KAFKA_TOPIC_EMERGENCY", "fishguard.emergency"),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:     getEnvInt("RATE_LIMIT_QPS", 20),

		DeviceAllowIPs:       getEnvList("DEVICE_ALLOW_IPS"),
		DeviceAllowCIDRs:     getEnvList("DEVICE_ALLOW_CIDRS"),
		DeviceRealIPHeader:   getEnv("DEVICE_REAL_IP_HEADER", ""),
		DeviceTrustedProxies: getEnvList("DEVICE_TRUSTED_PROXIES"),

		TLSEnabled:  getEnvBool("TLS_ENABLE", false),
		TLSCertPath: getEnv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:  getEnv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),

		CheckLogRetentionDays: getEnvInt("CHECKLOG_RETENTION_DAYS", 30),
	}
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// 秒数配置；非正数回退默认值
func getEnvSeconds(key string, fallback int) time.Duration {
	n := getEnvInt(key, fallback)
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func getEnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
