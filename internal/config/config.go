// config - источник загрузки конфигурации locations-gateway.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Tree     TreeConfig     `yaml:"tree"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig — таймауты входящих запросов и вызовов апстрима.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service"  env:"TIMEOUT_SERVICE"  env-default:"15s"`
	Upstream time.Duration `yaml:"upstream" env:"TIMEOUT_UPSTREAM" env-default:"10s"`
}

// HTTPConfig — публичный REST-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50090"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// UpstreamConfig — marketplace API.
type UpstreamConfig struct {
	BaseURL   string       `yaml:"base_url"   env:"UPSTREAM_BASE_URL"   env-default:"http://localhost:8080"`
	UserAgent string       `yaml:"user_agent" env:"UPSTREAM_USER_AGENT" env-default:"locations-gateway"`
	Device    DeviceConfig `yaml:"device"`
}

// DeviceConfig — значения заголовков X-Device-*, которые апстрим ждёт от админки.
type DeviceConfig struct {
	ID    string `yaml:"id"    env:"DEVICE_ID"`
	Type  string `yaml:"type"  env:"DEVICE_TYPE"  env-default:"Desktop"`
	Model string `yaml:"model" env:"DEVICE_MODEL" env-default:"Server"`
}

// TreeConfig — ленивое дерево и сессии администраторов.
type TreeConfig struct {
	PageSize      int           `yaml:"page_size"      env:"TREE_PAGE_SIZE"      env-default:"10"`
	SessionTTL    time.Duration `yaml:"session_ttl"    env:"TREE_SESSION_TTL"    env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"TREE_SWEEP_INTERVAL" env-default:"1m"`
}

// PostgresConfig — журнал операций. Пустой URL — журнал отключён.
type PostgresConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// S3Config — архив файлов пакетного импорта. Пустой Endpoint — архив отключён.
type S3Config struct {
	Endpoint     string `yaml:"endpoint"      env:"S3_ENDPOINT"`
	RootUser     string `yaml:"root_user"     env:"S3_ROOT_USER"`
	RootPassword string `yaml:"root_password" env:"S3_ROOT_PASSWORD"`
	Bucket       string `yaml:"bucket"        env:"S3_BUCKET" env-default:"location-imports"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		return validate(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return validate(&cfg)
}

func validate(cfg *Config) (*Config, error) {
	if cfg.Upstream.BaseURL == "" {
		return nil, fmt.Errorf("upstream.base_url is required")
	}
	if cfg.Tree.PageSize <= 0 {
		return nil, fmt.Errorf("tree.page_size must be positive, got %d", cfg.Tree.PageSize)
	}
	if cfg.S3.Endpoint != "" && cfg.S3.Bucket == "" {
		return nil, fmt.Errorf("s3.bucket is required when s3.endpoint is set")
	}

	return cfg, nil
}
