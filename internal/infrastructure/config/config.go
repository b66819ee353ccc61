package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	RecipeAPI   RecipeAPIConfig  `mapstructure:"recipe_api"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Store       StoreConfig      `mapstructure:"store"`
	Matching    MatchingConfig   `mapstructure:"matching"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
	LogFile     string           `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// OpenRouterConfig OpenRouter 配置（AI 食譜生成）
type OpenRouterConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRecipes  int           `mapstructure:"max_recipes"`
}

// RecipeAPIConfig 外部食譜 API 設定
type RecipeAPIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryCount   int           `mapstructure:"retry_count"`
	RequestsPerS float64       `mapstructure:"requests_per_second"`
	Burst        int           `mapstructure:"burst"`
	MaxRecipes   int           `mapstructure:"max_recipes"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Type            string        `mapstructure:"type"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
}

// StoreConfig 資料庫設定
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// MatchingConfig 比對與探索設定
type MatchingConfig struct {
	GoodMatchThreshold  float64 `mapstructure:"good_match_threshold"`
	FuzzyThreshold      float64 `mapstructure:"fuzzy_threshold"`
	FuzzyCandidateLimit int     `mapstructure:"fuzzy_candidate_limit"`
	DefaultMaxResults   int     `mapstructure:"default_max_results"`
	MaxResultsLimit     int     `mapstructure:"max_results_limit"`
	ResolveWorkers      int     `mapstructure:"resolve_workers"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定；.env 不存在時只使用環境變數與預設值
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Load(viper.New())
}

// Load 從指定的 viper 實例解析設定
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	_ = v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("openrouter.enabled", "OPENROUTER_ENABLED")
	_ = v.BindEnv("recipe_api.api_key", "RECIPE_API_KEY")
	_ = v.BindEnv("recipe_api.base_url", "RECIPE_API_URL")
	_ = v.BindEnv("recipe_api.enabled", "RECIPE_API_ENABLED")
	_ = v.BindEnv("cache.enabled", "CACHE_ENABLED")
	_ = v.BindEnv("cache.type", "CACHE_TYPE")
	_ = v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	_ = v.BindEnv("cache.redis_password", "REDIS_PASSWORD")
	_ = v.BindEnv("store.path", "DATABASE_PATH")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_file", "LOG_FILE")
	_ = v.BindEnv("server.port", "PORT")

	// 設定設定檔名稱和路徑
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	if v.GetBool("openrouter.enabled") {
		fmt.Println("Loading configuration", "openrouter_api_key:", maskAPIKey(v.GetString("openrouter.api_key")), "openrouter_model:", v.GetString("openrouter.model"))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-discovery")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.request_timeout", "90s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// OpenRouter 設定
	v.SetDefault("openrouter.enabled", false)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "qwen/qwen2.5-vl-72b-instruct:free")
	v.SetDefault("openrouter.max_tokens", 2000)
	v.SetDefault("openrouter.temperature", 0.7)
	v.SetDefault("openrouter.timeout", "60s")
	v.SetDefault("openrouter.max_recipes", 3)

	// 外部食譜 API 設定
	v.SetDefault("recipe_api.enabled", false)
	v.SetDefault("recipe_api.base_url", "https://api.spoonacular.com")
	v.SetDefault("recipe_api.timeout", "10s")
	v.SetDefault("recipe_api.retry_count", 2)
	v.SetDefault("recipe_api.requests_per_second", 5)
	v.SetDefault("recipe_api.burst", 5)
	v.SetDefault("recipe_api.max_recipes", 10)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)

	// 資料庫設定
	v.SetDefault("store.path", "data/recipes.db")

	// 比對設定
	v.SetDefault("matching.good_match_threshold", 0.7)
	v.SetDefault("matching.fuzzy_threshold", 0.7)
	v.SetDefault("matching.fuzzy_candidate_limit", 10)
	v.SetDefault("matching.default_max_results", 10)
	v.SetDefault("matching.max_results_limit", 50)
	v.SetDefault("matching.resolve_workers", 4)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Type {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required")
			}
		default:
			return fmt.Errorf("unknown cache type %q", config.Cache.Type)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}

	// 驗證比對設定
	m := config.Matching
	if m.GoodMatchThreshold <= 0 || m.GoodMatchThreshold > 1 {
		return fmt.Errorf("good match threshold must be in (0, 1]")
	}
	if m.FuzzyThreshold <= 0 || m.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy threshold must be in (0, 1]")
	}
	if m.FuzzyCandidateLimit <= 0 {
		return fmt.Errorf("invalid fuzzy candidate limit")
	}
	if m.MaxResultsLimit <= 0 || m.DefaultMaxResults <= 0 || m.DefaultMaxResults > m.MaxResultsLimit {
		return fmt.Errorf("invalid max results settings")
	}
	if m.ResolveWorkers <= 0 {
		return fmt.Errorf("invalid resolve workers")
	}

	// 驗證外部來源
	if config.RecipeAPI.Enabled {
		if config.RecipeAPI.BaseURL == "" {
			return fmt.Errorf("recipe api base url is required")
		}
		if config.RecipeAPI.RequestsPerS <= 0 {
			return fmt.Errorf("invalid recipe api rate")
		}
	}
	if config.OpenRouter.Enabled && config.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter api key is required when enabled")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit settings")
	}

	return nil
}
