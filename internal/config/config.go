package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// Every field has a default, so running without a config file is the normal case.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	API         APIConfig         `yaml:"api"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Output      OutputConfig      `yaml:"output"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Watch       WatchConfig       `yaml:"watch"`
	Log         LogConfig         `yaml:"log"`
}

type CredentialsConfig struct {
	// Web client bearer token. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken"`
	// Session cookies for the GraphQL API. If empty, read X_AUTH_TOKEN / X_CSRF_TOKEN
	AuthToken string `yaml:"authToken"`
	CSRFToken string `yaml:"csrfToken"`
	// OAuth1.0a credentials for the v1.1 fallback
	ConsumerKey    string `yaml:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret"`
	AccessToken    string `yaml:"accessToken"`
	AccessSecret   string `yaml:"accessSecret"`
}

// HasSession reports whether GraphQL session tokens are present.
func (c CredentialsConfig) HasSession() bool {
	return c.AuthToken != "" && c.CSRFToken != ""
}

// HasOAuth1 reports whether all four OAuth1 values are present.
func (c CredentialsConfig) HasOAuth1() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

type APIConfig struct {
	GraphQLBaseURL string `yaml:"graphqlBaseURL"`
	V1BaseURL      string `yaml:"v1BaseURL"`
	// GraphQL operation ids rotate upstream; override here when they do.
	SearchQueryID string        `yaml:"searchQueryID"`
	HomeQueryID   string        `yaml:"homeQueryID"`
	Timeout       time.Duration `yaml:"timeout"`
}

type FetchConfig struct {
	AccountsPath         string `yaml:"accountsPath"`
	PerAccountCount      int    `yaml:"perAccountCount"`
	PerAccountCutoffDays int    `yaml:"perAccountCutoffDays"`
	HomeCount            int    `yaml:"homeCount"`
	HomeCutoffDays       int    `yaml:"homeCutoffDays"`
	Product              string `yaml:"product"` // Latest or Top
}

type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Host string `yaml:"host"` // host used in tweetUrl
}

type StorageConfig struct {
	// Empty disables the archive.
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
	Addr     string `yaml:"addr"`
}

type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Quiet hours (local time) during which watch mode does not fetch
	QuietHours []int `yaml:"quietHours"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		API: APIConfig{
			GraphQLBaseURL: "https://x.com/i/api/graphql",
			V1BaseURL:      "https://api.twitter.com/1.1",
			SearchQueryID:  "nK1dw4oV3k4w5TdtcAdSww",
			HomeQueryID:    "HyuV8ml52TYmyUjyrDq1CQ",
			Timeout:        15 * time.Second,
		},
		Fetch: FetchConfig{
			AccountsPath:         "./dev-accounts.json",
			PerAccountCount:      5,
			PerAccountCutoffDays: 7,
			HomeCount:            100,
			HomeCutoffDays:       1,
			Product:              "Latest",
		},
		Output:  OutputConfig{Dir: "./tweets", Host: "x.com"},
		Storage: StorageConfig{DBPath: "./xharvest.db"},
		Watch:   WatchConfig{Interval: 30 * time.Minute},
		Log:     LogConfig{Level: "info"},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	envDefault(&c.Credentials.BearerToken, "X_BEARER_TOKEN")
	envDefault(&c.Credentials.AuthToken, "X_AUTH_TOKEN")
	envDefault(&c.Credentials.CSRFToken, "X_CSRF_TOKEN")
	envDefault(&c.Credentials.ConsumerKey, "X_CONSUMER_KEY")
	envDefault(&c.Credentials.ConsumerSecret, "X_CONSUMER_SECRET")
	envDefault(&c.Credentials.AccessToken, "X_ACCESS_TOKEN")
	envDefault(&c.Credentials.AccessSecret, "X_ACCESS_SECRET")
	envDefault(&c.Metrics.Textfile, "METRICS_TEXTFILE")
	envDefault(&c.Metrics.Addr, "METRICS_ADDR")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func envDefault(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// Load reads YAML config from path on top of Default(). A missing file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, errors.Wrapf(err, "read config %s", path)
	default:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
