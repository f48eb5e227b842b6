package config

import "time"

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Auth        AuthConfig        `koanf:"auth"`
	AI          AIConfig          `koanf:"ai"`
	Storage     StorageConfig     `koanf:"storage"`
	Email       EmailConfig       `koanf:"email"`
	RateLimit   RateLimitConfig   `koanf:"rate_limit"`
	Websites    WebsitesConfig    `koanf:"websites"`
	LinkPreview LinkPreviewConfig `koanf:"link_preview"`
	Log         LogConfig         `koanf:"log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

type ServerConfig struct {
	Host           string    `koanf:"host"`
	Port           int       `koanf:"port"`
	PublicURL      string    `koanf:"public_url"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	TLS            TLSConfig `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"` // off, auto, manual
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     AutoTLSConfig `koanf:"auto"`
}

type AutoTLSConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
}

type DatabaseConfig struct {
	Path         string `koanf:"path"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	BusyTimeout  int    `koanf:"busy_timeout"`
	CacheSize    int    `koanf:"cache_size"`
	MmapSize     int64  `koanf:"mmap_size"`
}

type AuthConfig struct {
	AccessTokenSecret  string        `koanf:"access_token_secret"`
	RefreshTokenSecret string        `koanf:"refresh_token_secret"`
	AccessTokenTTL     time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `koanf:"refresh_token_ttl"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
	GoogleClientID     string        `koanf:"google_client_id"`
}

type AIConfig struct {
	APIKey            string        `koanf:"api_key"`
	Model             string        `koanf:"model"`
	SuggestionCount   int           `koanf:"suggestion_count"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	Cache             AICacheConfig `koanf:"cache"`
}

type AICacheConfig struct {
	Backend         string        `koanf:"backend"` // sqlite, mongo
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	Mongo           MongoConfig   `koanf:"mongo"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type StorageConfig struct {
	Backend       string      `koanf:"backend"` // local, minio
	LocalPath     string      `koanf:"local_path"`
	MaxAvatarSize int64       `koanf:"max_avatar_size"`
	Minio         MinioConfig `koanf:"minio"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
	PublicURL string `koanf:"public_url"`
}

type EmailConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	Username       string `koanf:"username"`
	Password       string `koanf:"password"`
	From           string `koanf:"from"`
	SupportAddress string `koanf:"support_address"`
}

type RateLimitConfig struct {
	Enabled    bool              `koanf:"enabled"`
	Login      RateLimitEndpoint `koanf:"login"`
	Register   RateLimitEndpoint `koanf:"register"`
	AISearch   RateLimitEndpoint `koanf:"ai_search"`
	AddWebsite RateLimitEndpoint `koanf:"add_website"`
	Contact    RateLimitEndpoint `koanf:"contact"`
}

type RateLimitEndpoint struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type WebsitesConfig struct {
	RequireApproval bool `koanf:"require_approval"`
}

type LinkPreviewConfig struct {
	Enabled bool `koanf:"enabled"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			PublicURL:      "http://localhost:8080",
			AllowedOrigins: []string{"http://localhost:5173"},
			TLS: TLSConfig{
				Mode: "off",
				Auto: AutoTLSConfig{
					CacheDir: "./data/certs",
				},
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/stacksift.db",
			BusyTimeout: 5000,
		},
		Auth: AuthConfig{
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:      12,
		},
		AI: AIConfig{
			Model:             "gemini-2.5-flash",
			SuggestionCount:   9,
			RequestsPerMinute: 15,
			Cache: AICacheConfig{
				Backend:         "sqlite",
				TTL:             7 * 24 * time.Hour,
				CleanupInterval: time.Hour,
				Mongo: MongoConfig{
					Database: "stacksift",
				},
			},
		},
		Storage: StorageConfig{
			Backend:       "local",
			LocalPath:     "./data/uploads",
			MaxAvatarSize: 5 * 1024 * 1024, // 5MB
		},
		Email: EmailConfig{
			Enabled: false,
			Port:    587,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Login:      RateLimitEndpoint{Limit: 10, Window: time.Minute},
			Register:   RateLimitEndpoint{Limit: 5, Window: time.Hour},
			AISearch:   RateLimitEndpoint{Limit: 20, Window: time.Minute},
			AddWebsite: RateLimitEndpoint{Limit: 10, Window: time.Minute},
			Contact:    RateLimitEndpoint{Limit: 3, Window: 15 * time.Minute},
		},
		LinkPreview: LinkPreviewConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4318",
			Insecure:    true,
			ServiceName: "stacksift-api",
		},
	}
}
