package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	AllowedOrigin   string
	ShopAPIURL      string
	ShopAPITimeout  time.Duration
	AuthSecret      string
	ManagerPIN      string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ProductCacheTTL time.Duration
	SessionIdle     time.Duration
	SearchDebounce  time.Duration
	LogLevel        string
	LogFormat       string
	MetricsEnabled  bool
}

// LoadDotEnv reads KEY=VALUE files into the process environment. Variables
// already set in the environment win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		ShopAPIURL:      strings.TrimRight(strings.TrimSpace(os.Getenv("SHOP_API_URL")), "/"),
		ShopAPITimeout:  time.Duration(positiveInt("SHOP_API_TIMEOUT_SECONDS", 10)) * time.Second,
		AuthSecret:      strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		ManagerPIN:      strings.TrimSpace(os.Getenv("MANAGER_PIN")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		ProductCacheTTL: time.Duration(positiveInt("PRODUCT_CACHE_TTL_SECONDS", 20)) * time.Second,
		SessionIdle:     time.Duration(positiveInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,
		SearchDebounce:  time.Duration(positiveInt("SEARCH_DEBOUNCE_MS", 3000)) * time.Millisecond,
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		MetricsEnabled:  getBool("METRICS_ENABLED", true),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}
