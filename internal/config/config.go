package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string
	DBPath     string

	PhotoBackend   string
	PhotoLocalPath string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3PathStyle    bool

	// Static S3 credentials; empty uses the default AWS credential chain.
	S3AccessKeyID     string
	S3SecretAccessKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	VisionBackend string
	ClaudeAPIKey  string
	ClaudeModel   string
	OllamaHost    string
	OllamaModel   string

	ReportPageWidth  float64
	ReportPageHeight float64
	ReportMargin     float64
	ReportLineHeight float64
	ReportTimezone   string

	LogLevel string
	LogFile  string
}

// Load reads the configuration from the environment. Malformed numeric
// values are reported rather than silently replaced by defaults.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/vistoria.db"),

		PhotoBackend:   getEnv("PHOTO_BACKEND", "local"),
		PhotoLocalPath: getEnv("PHOTO_LOCAL_PATH", "/data/photos"),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3PathStyle:    p.bool("S3_PATH_STYLE", false),

		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),
		StatsCacheTTL: p.duration("STATS_CACHE_TTL", 5*time.Minute),

		VisionBackend: getEnv("VISION_BACKEND", "none"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llava"),

		ReportPageWidth:  p.float("REPORT_PAGE_WIDTH", 210),
		ReportPageHeight: p.float("REPORT_PAGE_HEIGHT", 297),
		ReportMargin:     p.float("REPORT_MARGIN", 20),
		ReportLineHeight: p.float("REPORT_LINE_HEIGHT", 6),
		ReportTimezone:   getEnv("REPORT_TIMEZONE", "America/Sao_Paulo"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
	p.errs = append(p.errs, cfg.pageErrors()...)
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}
	return cfg, nil
}

// pageErrors reports report geometries that leave no room for text: the
// margins must leave some width and at least one line of height.
func (c *Config) pageErrors() []string {
	var errs []string
	if 2*c.ReportMargin >= c.ReportPageWidth {
		errs = append(errs, fmt.Sprintf("REPORT_MARGIN=%g leaves no width on a %g wide page",
			c.ReportMargin, c.ReportPageWidth))
	}
	if 2*c.ReportMargin+c.ReportLineHeight >= c.ReportPageHeight {
		errs = append(errs, fmt.Sprintf("REPORT_LINE_HEIGHT=%g does not fit between %g margins on a %g high page",
			c.ReportLineHeight, c.ReportMargin, c.ReportPageHeight))
	}
	return errs
}

// Location resolves ReportTimezone, falling back to UTC when the zone
// database does not know it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC, fmt.Errorf("failed to load timezone %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []string
}

func (p *parser) fail(key, val string) {
	p.errs = append(p.errs, fmt.Sprintf("%s=%q", key, val))
}

func (p *parser) bool(key string, defaultVal bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		p.fail(key, val)
		return defaultVal
	}
	return b
}

func (p *parser) int(key string, defaultVal int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val)
		return defaultVal
	}
	return n
}

func (p *parser) float(key string, defaultVal float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		p.fail(key, val)
		return defaultVal
	}
	return f
}

func (p *parser) duration(key string, defaultVal time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.fail(key, val)
		return defaultVal
	}
	return d
}
