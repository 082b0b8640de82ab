package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LimitsConfig struct {
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	MaxPages       int   `yaml:"maxPages"`
	MaxTextBytes   int   `yaml:"maxTextBytes"`
}

type SessionConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type UploadConfig struct {
	Dir           string        `yaml:"dir"`
	MaxAge        time.Duration `yaml:"maxAge"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	File     string `yaml:"file"`
}

type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	OpenAIAPIKey   string        `yaml:"openaiApiKey"`
	OpenAIBaseURL  string        `yaml:"openaiBaseUrl"`
	OpenAIModel    string        `yaml:"openaiModel"`
	OllamaEndpoint string        `yaml:"ollamaEndpoint"`
	OllamaModel    string        `yaml:"ollamaModel"`
	MaxTokens      int           `yaml:"maxTokens"`
	Temperature    float64       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"perMinute"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// Config is read once at startup and never changes afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Limits    LimitsConfig    `yaml:"limits"`
	Session   SessionConfig   `yaml:"session"`
	Upload    UploadConfig    `yaml:"upload"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Redis     RedisConfig     `yaml:"redis"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Limits: LimitsConfig{
			MaxUploadBytes: 10 * 1024 * 1024,
			MaxPages:       100,
			MaxTextBytes:   2 * 1024 * 1024,
		},
		Session: SessionConfig{Timeout: 30 * time.Minute},
		Upload: UploadConfig{
			Dir:           filepath.Join(os.TempDir(), "policy-decoder-uploads"),
			MaxAge:        10 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			File:     "logs/app.log",
		},
		LLM: LLMConfig{
			OpenAIModel:    "gpt-4o-mini",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "llama3",
			MaxTokens:      500,
			Temperature:    0.7,
			Timeout:        60 * time.Second,
		},
		RateLimit: RateLimitConfig{PerMinute: 30},
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// GetConfig loads .env (if present) and the environment once.
func GetConfig() (*Config, error) {
	once.Do(func() {
		loadDotEnv()
		instance, loadErr = Load(os.LookupEnv)
	})
	return instance, loadErr
}

func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	// 获取当前文件的目录, 回退到项目根目录的 .env
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filepath.Dir(filename)), ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: .env file not found, falling back to environment variables")
	}
}

// Load builds a Config from defaults, then the YAML file named by
// CONFIG_FILE, then individual environment variables.
func Load(lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	e := &envReader{lookup: lookup}
	e.stringVar("SERVER_ADDR", &cfg.Server.Addr)
	e.int64Var("MAX_UPLOAD_BYTES", &cfg.Limits.MaxUploadBytes)
	e.intVar("MAX_PAGES", &cfg.Limits.MaxPages)
	e.intVar("MAX_TEXT_BYTES", &cfg.Limits.MaxTextBytes)
	e.durationVar("SESSION_TIMEOUT", &cfg.Session.Timeout)
	e.stringVar("UPLOAD_DIR", &cfg.Upload.Dir)
	e.durationVar("UPLOAD_MAX_AGE", &cfg.Upload.MaxAge)
	e.durationVar("UPLOAD_SWEEP_INTERVAL", &cfg.Upload.SweepInterval)
	e.listVar("CORS_ALLOWED_ORIGINS", &cfg.CORS.AllowedOrigins)
	e.stringVar("LOG_LEVEL", &cfg.Log.Level)
	e.stringVar("LOG_ENCODING", &cfg.Log.Encoding)
	e.stringVar("LOG_FILE", &cfg.Log.File)
	e.stringVar("LLM_PROVIDER", &cfg.LLM.Provider)
	e.stringVar("OPENAI_API_KEY", &cfg.LLM.OpenAIAPIKey)
	e.stringVar("OPENAI_BASE_URL", &cfg.LLM.OpenAIBaseURL)
	e.stringVar("OPENAI_MODEL", &cfg.LLM.OpenAIModel)
	e.stringVar("OLLAMA_ENDPOINT", &cfg.LLM.OllamaEndpoint)
	e.stringVar("OLLAMA_MODEL", &cfg.LLM.OllamaModel)
	e.intVar("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	e.floatVar("LLM_TEMPERATURE", &cfg.LLM.Temperature)
	e.durationVar("LLM_TIMEOUT", &cfg.LLM.Timeout)
	e.intVar("RATE_LIMIT_PER_MINUTE", &cfg.RateLimit.PerMinute)
	e.stringVar("REDIS_ADDR", &cfg.Redis.Addr)
	e.intVar("REDIS_DB", &cfg.Redis.DB)
	e.stringVar("REDIS_PASSWORD", &cfg.Redis.Password)
	if err := e.err(); err != nil {
		return nil, err
	}

	if cfg.LLM.Provider == "" && cfg.LLM.OpenAIAPIKey != "" {
		cfg.LLM.Provider = "openai"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Limits.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Limits.MaxPages <= 0 {
		errs = append(errs, errors.New("MAX_PAGES must be positive"))
	}
	if c.Limits.MaxTextBytes <= 0 {
		errs = append(errs, errors.New("MAX_TEXT_BYTES must be positive"))
	}
	if c.Session.Timeout <= 0 {
		errs = append(errs, errors.New("SESSION_TIMEOUT must be positive"))
	}
	if c.Upload.MaxAge <= 0 || c.Upload.SweepInterval <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_AGE and UPLOAD_SWEEP_INTERVAL must be positive"))
	}
	if c.RateLimit.PerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	switch strings.ToLower(c.LLM.Provider) {
	case "", "none", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if strings.EqualFold(c.LLM.Provider, "openai") && c.LLM.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// envReader applies environment overrides and collects every parse failure.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment: %w", errors.Join(e.errs...))
}

func (e *envReader) stringVar(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) intVar(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) int64Var(key string, dst *int64) {
	if v, ok := e.get(key); ok {
		n, err := cast.ToInt64E(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) floatVar(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) listVar(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*dst = out
	}
}

// durationVar accepts Go duration syntax or a bare integer of milliseconds.
func (e *envReader) durationVar(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}

// ParseDuration parses "30m"-style durations; a bare integer is milliseconds.
func ParseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return cast.ToDurationE(s)
}
