// Package config loads server settings from an optional YAML file, a .env file and
// the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Audio       AudioConfig       `yaml:"audio"`
	STT         STTConfig         `yaml:"stt"`
	LLM         LLMConfig         `yaml:"llm"`
	Translation TranslationConfig `yaml:"translation"`
	Summary     SummaryConfig     `yaml:"summary"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AudioConfig selects the capture backend
type AudioConfig struct {
	Backend        string        `yaml:"backend"` // "portaudio", "malgo" or "wav"
	BufferCapacity int           `yaml:"buffer_capacity"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	WAV            WAVConfig     `yaml:"wav"`
}

type WAVConfig struct {
	Path  string  `yaml:"path"`
	Loop  bool    `yaml:"loop"`
	Speed float64 `yaml:"speed"`
}

// STTConfig selects the speech-to-text provider
type STTConfig struct {
	Provider string         `yaml:"provider"` // "openai", "google" or "mock"
	Timeout  time.Duration  `yaml:"timeout"`
	OpenAI   EndpointConfig `yaml:"openai"`
}

// LLMConfig selects the provider used for translation and the model catalog
type LLMConfig struct {
	Provider string         `yaml:"provider"` // "ollama", "gemini", "openai" or "mock"
	Timeout  time.Duration  `yaml:"timeout"`
	Ollama   EndpointConfig `yaml:"ollama"`
	Gemini   EndpointConfig `yaml:"gemini"`
	OpenAI   EndpointConfig `yaml:"openai"`
}

// EndpointConfig is shared by every remote model provider
type EndpointConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type TranslationConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SummaryConfig tunes the post-session summary workflow
type SummaryConfig struct {
	Provider       string        `yaml:"provider"` // defaults to llm.provider
	ReasoningModel string        `yaml:"reasoning_model"`
	ResponseModel  string        `yaml:"response_model"`
	Temperature    float32       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
	ModelTimeout   time.Duration `yaml:"model_timeout"`
}

type StorageConfig struct {
	MongoDBURI      string      `yaml:"mongodb_uri"`
	MongoDBDatabase string      `yaml:"mongodb_database"`
	ExportDir       string      `yaml:"export_dir"`
	Cache           CacheConfig `yaml:"cache"`
}

// CacheConfig controls the translation memory
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// AuthConfig enables bearer-token auth when both fields are set
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	APIKey    string        `yaml:"api_key"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Enabled reports whether the API is protected
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" && a.APIKey != ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "5001"},
		Logging: LoggingConfig{Level: "info"},
		Audio: AudioConfig{
			Backend:        "portaudio",
			BufferCapacity: 20,
			PollInterval:   50 * time.Millisecond,
			WAV:            WAVConfig{Loop: true, Speed: 1},
		},
		STT: STTConfig{
			Provider: "openai",
			Timeout:  60 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Timeout:  60 * time.Second,
			Ollama:   EndpointConfig{BaseURL: "http://localhost:11434"},
		},
		Translation: TranslationConfig{Timeout: 60 * time.Second},
		Summary: SummaryConfig{
			ReasoningModel: "deepseek-r1:7b",
			ResponseModel:  "exaone3.5:latest",
			Temperature:    0.7,
			Timeout:        10 * time.Minute,
			ModelTimeout:   300 * time.Second,
		},
		Storage: StorageConfig{
			MongoDBDatabase: "voxlate",
			Cache:           CacheConfig{TTL: 7 * 24 * time.Hour},
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
	}
}

// Load builds the configuration. A missing file at path is not an error; an empty
// path skips the file entirely. A .env file in the working directory is loaded into
// the environment first without overriding variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"PORT":             &c.Server.Port,
		"LOG_LEVEL":        &c.Logging.Level,
		"AUDIO_BACKEND":    &c.Audio.Backend,
		"WAV_PATH":         &c.Audio.WAV.Path,
		"STT_PROVIDER":     &c.STT.Provider,
		"LLM_PROVIDER":     &c.LLM.Provider,
		"SUMMARY_PROVIDER": &c.Summary.Provider,
		"OLLAMA_BASE_URL":  &c.LLM.Ollama.BaseURL,
		"GEMINI_API_KEY":   &c.LLM.Gemini.APIKey,
		"GEMINI_MODEL":     &c.LLM.Gemini.Model,
		"OPENAI_API_KEY":   &c.LLM.OpenAI.APIKey,
		"OPENAI_BASE_URL":  &c.LLM.OpenAI.BaseURL,
		"OPENAI_MODEL":     &c.LLM.OpenAI.Model,
		"STT_API_KEY":      &c.STT.OpenAI.APIKey,
		"STT_BASE_URL":     &c.STT.OpenAI.BaseURL,
		"STT_MODEL":        &c.STT.OpenAI.Model,
		"MONGODB_URI":      &c.Storage.MongoDBURI,
		"MONGODB_DATABASE": &c.Storage.MongoDBDatabase,
		"EXPORT_DIR":       &c.Storage.ExportDir,
		"CACHE_DIR":        &c.Storage.Cache.Dir,
		"JWT_SECRET":       &c.Auth.JWTSecret,
		"API_KEY":          &c.Auth.APIKey,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("CACHE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CACHE_ENABLED must be a boolean, got %q", v)
		}
		c.Storage.Cache.Enabled = enabled
	}

	// The transcription endpoint shares the OpenAI key unless given its own
	if c.STT.OpenAI.APIKey == "" {
		c.STT.OpenAI.APIKey = c.LLM.OpenAI.APIKey
	}
	return nil
}

// Validate checks the config for invalid values and fills derived defaults.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port must be numeric, got %q", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	switch c.Audio.Backend {
	case "portaudio", "malgo":
	case "wav":
		if c.Audio.WAV.Path == "" {
			return fmt.Errorf("audio.wav.path is required for the wav backend")
		}
		if c.Audio.WAV.Speed <= 0 {
			return fmt.Errorf("audio.wav.speed must be > 0")
		}
	default:
		return fmt.Errorf("audio.backend must be portaudio, malgo, or wav, got %q", c.Audio.Backend)
	}

	if c.Audio.PollInterval <= 0 {
		return fmt.Errorf("audio.poll_interval must be > 0")
	}

	switch c.STT.Provider {
	case "openai", "google", "mock":
	default:
		return fmt.Errorf("stt.provider must be openai, google, or mock, got %q", c.STT.Provider)
	}

	if err := validateLLMProvider("llm.provider", c.LLM.Provider); err != nil {
		return err
	}

	if c.Summary.Provider == "" {
		c.Summary.Provider = c.LLM.Provider
	}
	if err := validateLLMProvider("summary.provider", c.Summary.Provider); err != nil {
		return err
	}

	if c.Summary.Temperature < 0 || c.Summary.Temperature > 2 {
		return fmt.Errorf("summary.temperature must be between 0 and 2, got %v", c.Summary.Temperature)
	}

	for name, d := range map[string]time.Duration{
		"stt.timeout":           c.STT.Timeout,
		"llm.timeout":           c.LLM.Timeout,
		"translation.timeout":   c.Translation.Timeout,
		"summary.timeout":       c.Summary.Timeout,
		"summary.model_timeout": c.Summary.ModelTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}

	if (c.Auth.JWTSecret == "") != (c.Auth.APIKey == "") {
		return fmt.Errorf("auth.jwt_secret and auth.api_key must be set together")
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}

	return nil
}

func validateLLMProvider(field, provider string) error {
	switch provider {
	case "ollama", "gemini", "openai", "mock":
		return nil
	}
	return fmt.Errorf("%s must be ollama, gemini, openai, or mock, got %q", field, provider)
}
