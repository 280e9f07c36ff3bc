package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"web3-rpc-router-go/internal/router"
)

type Config struct {
	Providers      []router.ProviderConfig
	DatabaseURL    string // optional: load/merge provider rows from Postgres
	ListenAddr     string
	LogLevel       string
	LogFormat      string
	MaxQueueSize   int
	MaxConcurrency int
	BackoffSeconds time.Duration
	StatusInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load() // .env文件是可选的

	providers, err := parseProviders()
	if err != nil {
		return nil, err
	}

	return &Config{
		Providers:      providers,
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		MaxQueueSize:   int(getEnvAsInt64("MAX_QUEUE_SIZE", 0)),
		MaxConcurrency: int(getEnvAsInt64("MAX_CONCURRENCY", 0)),
		BackoffSeconds: time.Duration(getEnvAsInt64("PROVIDER_BACKOFF_SECONDS", 0)) * time.Second,
		StatusInterval: time.Duration(getEnvAsInt64("STATUS_INTERVAL_SECONDS", 30)) * time.Second,
	}, nil
}

// parseProviders 支持两种来源：
//   - RPC_PROVIDERS：完整 JSON 数组（name/url/calls_per_second/...）
//   - RPC_URLS：逗号分隔的 URL 列表，按顺序生成降序优先级的默认配置
func parseProviders() ([]router.ProviderConfig, error) {
	if raw := os.Getenv("RPC_PROVIDERS"); raw != "" {
		var providers []router.ProviderConfig
		if err := json.Unmarshal([]byte(raw), &providers); err != nil {
			return nil, fmt.Errorf("config: invalid RPC_PROVIDERS json: %w", err)
		}
		return providers, nil
	}

	urlsStr := getEnv("RPC_URLS", "https://eth.llamarpc.com")
	urls := strings.Split(urlsStr, ",")
	defaultRPS := getEnvAsFloat("RPC_CALLS_PER_SECOND", 10)

	providers := make([]router.ProviderConfig, 0, len(urls))
	for i, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		providers = append(providers, router.ProviderConfig{
			Name:           fmt.Sprintf("provider-%d", i+1),
			URL:            url,
			CallsPerSecond: defaultRPS,
			Priority:       len(urls) - i, // 靠前的 URL 优先
			Active:         true,
		})
	}
	return providers, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %g", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
