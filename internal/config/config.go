package config

import (
	"errors"
	"flag"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/gookit/validate"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN string `env:"DATABASE_URI" validate:"required"`
	AuthSecret  string `env:"AUTH_SECRET" validate:"required"`

	// Перепроверка товаров
	RecheckInterval time.Duration `env:"RECHECK_INTERVAL" validate:"required|min:1"`
	Workers         int           `env:"WORKERS" validate:"required|min:1"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" validate:"required|min:1"`
	FetchRPS        float64       `env:"FETCH_RPS"`
	Sites           string        `env:"SITES" validate:"required"` // tag=host|host,tag=host
	GoneSites       string        `env:"GONE_SITES"`                // теги сайтов, отвечающих 410
	Proxies         []string      `env:"PROXIES" envSeparator:","`

	// Очистка снятых товаров
	ReclaimAt       string        `env:"RECLAIM_AT" validate:"required"`
	ReclaimInterval time.Duration `env:"RECLAIM_INTERVAL" validate:"required|min:1"`
	GoneQueueSize   int           `env:"GONE_QUEUE_SIZE" validate:"required|min:1"`
	GoneDedupTTL    time.Duration `env:"GONE_DEDUP_TTL" validate:"required|min:1"`

	// Доставка сообщений; без токена сообщения только пишутся в лог
	BotToken  string `env:"BOT_TOKEN"`
	BotAPIURL string `env:"BOT_API_URL" validate:"required|fullUrl"`

	LogLevel       string `env:"LOG_LEVEL" validate:"required|in:debug,info,warn,error"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	APIToken  string `env:"API_TOKEN"`
	Version   bool   `env:"-"`

	// ошибка разбора env, отдаётся из Validate
	parseErr error
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.parseErr = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres:// или путь к SQLite)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.DurationVar(&cfg.RecheckInterval, "interval", cfg.RecheckInterval, "интервал перепроверки товаров")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "размер пула перепроверки")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "таймаут загрузки одной карточки")
	flag.StringVar(&cfg.ReclaimAt, "reclaim-at", cfg.ReclaimAt, "время ежедневной очистки, HH:MM")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "уровень логирования")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "клиент: использовать https")
	flag.StringVar(&cfg.APIToken, "token", cfg.APIToken, "клиент: bearer-токен API")
	flag.BoolVar(&cfg.Version, "version", false, "показать версию и выйти")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = "discount-monitoring.db"
	}
	if c.AuthSecret == "" {
		c.AuthSecret = "dev-secret-key"
	}
	if c.RecheckInterval == 0 {
		c.RecheckInterval = 2 * time.Minute
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 20 * time.Second
	}
	if c.Sites == "" {
		c.Sites = "hm=www2.hm.com,zara=www.zara.com"
	}
	if c.GoneSites == "" {
		c.GoneSites = "zara"
	}
	if c.ReclaimAt == "" {
		c.ReclaimAt = "23:00"
	}
	if c.ReclaimInterval == 0 {
		c.ReclaimInterval = 24 * time.Hour
	}
	if c.GoneQueueSize == 0 {
		c.GoneQueueSize = 256
	}
	if c.GoneDedupTTL == 0 {
		c.GoneDedupTTL = 24 * time.Hour
	}
	if c.BotAPIURL == "" {
		c.BotAPIURL = "https://api.telegram.org"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(c.BaseURL) {
		c.BaseURL = "localhost:8081"
	}
	if c.EnableHTTPS {
		c.ServerURL = "https://" + c.BaseURL
	} else {
		c.ServerURL = "http://" + c.BaseURL
	}
}

// Validate проверяет конфигурацию; ошибка здесь фатальна для процесса.
func (c *Config) Validate() error {
	if c.parseErr != nil {
		return fmt.Errorf("invalid config: %w", c.parseErr)
	}
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	if _, err := time.Parse("15:04", c.ReclaimAt); err != nil {
		return fmt.Errorf("invalid config: RECLAIM_AT must be HH:MM, got %q", c.ReclaimAt)
	}
	if _, err := c.SiteHosts(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

var errBadSites = errors.New("SITES must look like tag=host|host,tag=host")

// SiteHosts разбирает SITES в карту тег -> хосты.
func (c *Config) SiteHosts() (map[string][]string, error) {
	out := make(map[string][]string)
	for _, part := range strings.Split(c.Sites, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, hosts, ok := strings.Cut(part, "=")
		tag = strings.TrimSpace(tag)
		if !ok || tag == "" {
			return nil, errBadSites
		}
		for _, h := range strings.Split(hosts, "|") {
			if h = strings.TrimSpace(h); h != "" {
				out[tag] = append(out[tag], strings.ToLower(h))
			}
		}
		if len(out[tag]) == 0 {
			return nil, errBadSites
		}
	}
	if len(out) == 0 {
		return nil, errBadSites
	}
	return out, nil
}

// GoneSiteTags: теги сайтов, которым доверяем сигнал «снят с продажи».
func (c *Config) GoneSiteTags() map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.Split(c.GoneSites, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[t] = true
		}
	}
	return out
}
