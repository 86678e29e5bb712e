package config

import (
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlagSet создаёт новый FlagSet перед каждым вызовом NewConfig,
// чтобы избежать повторной регистрации одних и тех же флагов между тестами.
func resetFlagSet(t *testing.T) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(os.Stderr)
	os.Args = os.Args[:1]
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URI", "AUTH_SECRET", "RECHECK_INTERVAL", "WORKERS", "FETCH_TIMEOUT", "FETCH_RPS",
		"SITES", "GONE_SITES", "PROXIES", "RECLAIM_AT", "RECLAIM_INTERVAL", "GONE_QUEUE_SIZE",
		"GONE_DEDUP_TTL", "BOT_TOKEN", "BOT_API_URL", "LOG_LEVEL",
		"BASE_URL", "ENABLE_HTTPS", "API_TOKEN",
	} {
		t.Setenv(k, "")
	}
	// у METRICS_ENABLED есть envDefault: переменная должна отсутствовать, а не быть пустой
	if v, ok := os.LookupEnv("METRICS_ENABLED"); ok {
		_ = os.Unsetenv("METRICS_ENABLED")
		t.Cleanup(func() { _ = os.Setenv("METRICS_ENABLED", v) })
	}
}

func TestNewConfig_DefaultsWhenEnvEmpty(t *testing.T) {
	clearEnv(t)
	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "dev-secret-key", cfg.AuthSecret)
	assert.Equal(t, 2*time.Minute, cfg.RecheckInterval)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "23:00", cfg.ReclaimAt)
	assert.Equal(t, 24*time.Hour, cfg.ReclaimInterval)
	assert.Equal(t, "https://api.telegram.org", cfg.BotAPIURL)
	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8081", cfg.ServerURL)
	assert.True(t, cfg.MetricsEnabled)
	require.NoError(t, cfg.Validate())

	hosts, err := cfg.SiteHosts()
	require.NoError(t, err)
	assert.Equal(t, []string{"www.zara.com"}, hosts["zara"])
	assert.Equal(t, []string{"www2.hm.com"}, hosts["hm"])
	assert.Equal(t, map[string]bool{"zara": true}, cfg.GoneSiteTags())
}

func TestNewConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URI", "postgres://u:p@db:5432/dm")
	t.Setenv("RECHECK_INTERVAL", "5m")
	t.Setenv("WORKERS", "16")
	t.Setenv("SITES", "zara=www.zara.com|m.zara.com, mango=shop.mango.com")
	t.Setenv("PROXIES", "10.0.0.1:3128,10.0.0.2:3128")
	t.Setenv("BASE_URL", "example.com:443")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("METRICS_ENABLED", "false")

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "postgres://u:p@db:5432/dm", cfg.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, cfg.RecheckInterval)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, []string{"10.0.0.1:3128", "10.0.0.2:3128"}, cfg.Proxies)
	assert.Equal(t, "https://example.com:443", cfg.ServerURL)
	assert.False(t, cfg.MetricsEnabled)

	hosts, err := cfg.SiteHosts()
	require.NoError(t, err)
	assert.Equal(t, []string{"www.zara.com", "m.zara.com"}, hosts["zara"])
	assert.Equal(t, []string{"shop.mango.com"}, hosts["mango"])
}

func TestNewConfig_InvalidBaseURLFallback(t *testing.T) {
	clearEnv(t)
	// Невалидный BASE_URL (со схемой) должен откатиться на localhost:8081
	t.Setenv("BASE_URL", "http://bad:8080")

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.True(t, strings.HasPrefix(cfg.ServerURL, "http://localhost:8081"))
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.applyDefaults()
		return c
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *Config){
		"bad reclaim time": func(c *Config) { c.ReclaimAt = "25:99" },
		"bad log level":    func(c *Config) { c.LogLevel = "verbose" },
		"negative workers": func(c *Config) { c.Workers = -1 },
		"bad sites":        func(c *Config) { c.Sites = "zara" },
		"empty site hosts": func(c *Config) { c.Sites = "zara=" },
		"bad bot url":      func(c *Config) { c.BotAPIURL = "not a url" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewConfig_MalformedEnvIsFatal(t *testing.T) {
	for name, kv := range map[string][2]string{
		"workers":       {"WORKERS", "abc"},
		"fetch timeout": {"FETCH_TIMEOUT", "soon"},
		"https":         {"ENABLE_HTTPS", "maybe"},
	} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("SITES", "shop=shop.example")
			t.Setenv(kv[0], kv[1])

			resetFlagSet(t)
			cfg := NewConfig()

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse error")
		})
	}
}
