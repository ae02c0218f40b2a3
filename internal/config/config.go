package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации isoview.
type Config struct {
	Map       MapConfig       `yaml:"map"`
	Render    RenderConfig    `yaml:"render"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	DebugAPI  DebugAPIConfig  `yaml:"debug_api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type MapConfig struct {
	Name       string `yaml:"name"`
	Seed       int64  `yaml:"seed"`
	MemoryArea int    `yaml:"memory_area"` // радиус в чанках
	WorldSpin  int    `yaml:"world_spin"`
}

type RenderConfig struct {
	MaxSprites int     `yaml:"max_sprites"` // <= 0 — без ограничения
	Sorter     string  `yaml:"sorter"`      // none | depth | topological
	ZLimit     float64 `yaml:"z_limit"`     // 0 — без ограничения
	Cameras    int     `yaml:"cameras"`
}

type StorageConfig struct {
	Backend     string      `yaml:"backend"` // memory | file | badger | redis
	Path        string      `yaml:"path"`
	Compression bool        `yaml:"compression"`
	Redis       RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"` // 0 — без срока жизни
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Port      int    `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type DebugAPIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Files bool   `yaml:"files"`
}

// Допустимые значения
var (
	SorterKinds     = []string{"none", "depth", "topological"}
	StorageBackends = []string{"memory", "file", "badger", "redis"}
)

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Map: MapConfig{
			Name:       "default",
			Seed:       12345,
			MemoryArea: 2,
		},
		Render: RenderConfig{
			MaxSprites: 0,
			Sorter:     "topological",
			Cameras:    1,
		},
		Storage: StorageConfig{
			Backend:     "memory",
			Path:        "data",
			Compression: true,
		},
		Metrics: MetricsConfig{
			Namespace: "isomap",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "isoview",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	var errs []error
	if c.Map.MemoryArea < 1 {
		errs = append(errs, fmt.Errorf("map.memory_area must be >= 1, got %d", c.Map.MemoryArea))
	}
	if !contains(SorterKinds, c.Render.Sorter) {
		errs = append(errs, fmt.Errorf("render.sorter: unknown sorter %q", c.Render.Sorter))
	}
	if c.Render.Cameras < 1 || c.Render.Cameras > 8 {
		errs = append(errs, fmt.Errorf("render.cameras must be in 1..8, got %d", c.Render.Cameras))
	}
	if c.Render.ZLimit < 0 {
		errs = append(errs, fmt.Errorf("render.z_limit must not be negative"))
	}
	if !contains(StorageBackends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	if (c.Storage.Backend == "badger" || c.Storage.Backend == "file") && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required for file and badger backends"))
	}
	if c.Storage.Redis.TTLSeconds < 0 {
		errs = append(errs, errors.New("storage.redis.ttl_seconds must not be negative"))
	}
	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// GetPort возвращает порт метрик с поддержкой fallback значений
func (m *MetricsConfig) GetPort() int {
	return getPortWithEnvFallback(m.Port, "ISOMAP_METRICS_PORT", 2112)
}

// GetPort возвращает порт отладочного API с поддержкой fallback значений
func (d *DebugAPIConfig) GetPort() int {
	return getPortWithEnvFallback(d.Port, "ISOMAP_DEBUG_PORT", 8088)
}

// GetAddr возвращает адрес Redis с поддержкой fallback значений
func (r *RedisConfig) GetAddr() string {
	if r.Addr != "" {
		return r.Addr
	}
	if env := os.Getenv("ISOMAP_REDIS_ADDR"); env != "" {
		return env
	}
	return "localhost:6379"
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV ISOMAP_CONFIG,
// а без него возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ISOMAP_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
