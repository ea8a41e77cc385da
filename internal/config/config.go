package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"inspection-service/internal/domain/inspection"
)

const (
	ProviderPlateRecognizer = "platerecognizer"
	ProviderRekognition     = "rekognition"
	ProviderNone            = "none"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Session     SessionConfig     `mapstructure:"session"`
	Capture     CaptureConfig     `mapstructure:"capture"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Export      ExportConfig      `mapstructure:"export"`
	Sites       []SiteConfig      `mapstructure:"sites"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type SessionConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type CaptureConfig struct {
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	CameraTimeout  time.Duration `mapstructure:"camera_timeout"`
}

type RecognitionConfig struct {
	Provider        string                `mapstructure:"provider"`
	PlateRecognizer PlateRecognizerConfig `mapstructure:"platerecognizer"`
	Rekognition     RekognitionConfig     `mapstructure:"rekognition"`
}

type PlateRecognizerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Regions []string      `mapstructure:"regions"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RekognitionConfig struct {
	Region        string  `mapstructure:"region"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

type ExportConfig struct {
	CompanyName string `mapstructure:"company_name"`
}

type SiteConfig struct {
	ID      string            `mapstructure:"id"`
	Name    string            `mapstructure:"name"`
	Cameras map[string]string `mapstructure:"cameras"`
}

// Load reads an optional .env file, an optional config file and INSPECTION_*
// environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INSPECTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("session.idle_ttl", 12*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)
	v.SetDefault("capture.max_upload_bytes", 15<<20)
	v.SetDefault("capture.camera_timeout", 10*time.Second)
	v.SetDefault("recognition.provider", ProviderPlateRecognizer)
	v.SetDefault("recognition.platerecognizer.url", "https://api.platerecognizer.com/v1/plate-reader/")
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("recognition.platerecognizer.token", "")
	v.SetDefault("recognition.platerecognizer.regions", []string{"us"})
	v.SetDefault("recognition.platerecognizer.timeout", 30*time.Second)
	v.SetDefault("recognition.rekognition.region", "eu-west-1")
	v.SetDefault("recognition.rekognition.min_confidence", 80.0)
	v.SetDefault("export.company_name", "goldbecksolar")
	v.SetDefault("sites", []map[string]any{
		{"id": "london", "name": "London"},
		{"id": "helsinki", "name": "Helsinki"},
	})
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return errors.New("config: at least one site is required")
	}
	seen := make(map[string]bool, len(c.Sites))
	for _, s := range c.Sites {
		if s.ID == "" {
			return errors.New("config: site id is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("config: duplicate site id %q", s.ID)
		}
		seen[s.ID] = true
	}
	switch c.Recognition.Provider {
	case ProviderPlateRecognizer, ProviderRekognition, ProviderNone:
	default:
		return fmt.Errorf("config: unknown recognition provider %q", c.Recognition.Provider)
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("config: session.idle_ttl must be positive")
	}
	if c.Session.CleanupInterval <= 0 {
		return errors.New("config: session.cleanup_interval must be positive")
	}
	return nil
}

// SiteList converts the configured sites into domain sites, preserving order.
func (c *Config) SiteList() []inspection.Site {
	sites := make([]inspection.Site, 0, len(c.Sites))
	for _, s := range c.Sites {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		cameras := make(map[inspection.Facing]string, len(s.Cameras))
		for facing, url := range s.Cameras {
			cameras[inspection.ParseFacing(facing)] = url
		}
		sites = append(sites, inspection.Site{
			ID:      inspection.SiteID(s.ID),
			Name:    name,
			Cameras: cameras,
		})
	}
	return sites
}

// IsDevelopment is true when running locally.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
