package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "STACKSIFT_"

func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	defaults := Defaults()
	if err := k.Load(defaultsProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load from config file if it exists
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
		}
	} else {
		for _, path := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("loading config file: %w", err)
				}
				break
			}
		}
	}

	// 3. Load from environment variables (STACKSIFT_ prefix).
	// Keys are resolved against the known key set so that underscores inside
	// leaf names (max_open_conns) and section names (rate_limit) both work.
	envKeys := envKeyMap(k.Keys())
	listKeys := make(map[string]bool)
	for _, key := range k.Keys() {
		switch k.Get(key).(type) {
		case []string, []interface{}:
			listKeys[key] = true
		}
	}
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(name, value string) (string, interface{}) {
		key := envKeys[strings.TrimPrefix(name, envPrefix)]
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// 4. Load from CLI flags
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// 6. Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envKeyMap maps RATE_LIMIT_LOGIN_LIMIT style names to rate_limit.login.limit.
func envKeyMap(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	return m
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type defaultsProviderStruct struct {
	defaults *Config
}

func defaultsProvider(defaults *Config) *defaultsProviderStruct {
	return &defaultsProviderStruct{defaults: defaults}
}

func (d *defaultsProviderStruct) ReadBytes() ([]byte, error) {
	return nil, nil
}

func (d *defaultsProviderStruct) Read() (map[string]interface{}, error) {
	c := d.defaults
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":            c.Server.Host,
			"port":            c.Server.Port,
			"public_url":      c.Server.PublicURL,
			"allowed_origins": c.Server.AllowedOrigins,
			"tls": map[string]interface{}{
				"mode":      c.Server.TLS.Mode,
				"cert_file": c.Server.TLS.CertFile,
				"key_file":  c.Server.TLS.KeyFile,
				"auto": map[string]interface{}{
					"domain":    c.Server.TLS.Auto.Domain,
					"email":     c.Server.TLS.Auto.Email,
					"cache_dir": c.Server.TLS.Auto.CacheDir,
				},
			},
		},
		"database": map[string]interface{}{
			"path":           c.Database.Path,
			"max_open_conns": c.Database.MaxOpenConns,
			"busy_timeout":   c.Database.BusyTimeout,
			"cache_size":     c.Database.CacheSize,
			"mmap_size":      c.Database.MmapSize,
		},
		"auth": map[string]interface{}{
			"access_token_secret":  c.Auth.AccessTokenSecret,
			"refresh_token_secret": c.Auth.RefreshTokenSecret,
			"access_token_ttl":     c.Auth.AccessTokenTTL.String(),
			"refresh_token_ttl":    c.Auth.RefreshTokenTTL.String(),
			"bcrypt_cost":          c.Auth.BcryptCost,
			"google_client_id":     c.Auth.GoogleClientID,
		},
		"ai": map[string]interface{}{
			"api_key":             c.AI.APIKey,
			"model":               c.AI.Model,
			"suggestion_count":    c.AI.SuggestionCount,
			"requests_per_minute": c.AI.RequestsPerMinute,
			"cache": map[string]interface{}{
				"backend":          c.AI.Cache.Backend,
				"ttl":              c.AI.Cache.TTL.String(),
				"cleanup_interval": c.AI.Cache.CleanupInterval.String(),
				"mongo": map[string]interface{}{
					"uri":      c.AI.Cache.Mongo.URI,
					"database": c.AI.Cache.Mongo.Database,
				},
			},
		},
		"storage": map[string]interface{}{
			"backend":         c.Storage.Backend,
			"local_path":      c.Storage.LocalPath,
			"max_avatar_size": c.Storage.MaxAvatarSize,
			"minio": map[string]interface{}{
				"endpoint":   c.Storage.Minio.Endpoint,
				"access_key": c.Storage.Minio.AccessKey,
				"secret_key": c.Storage.Minio.SecretKey,
				"bucket":     c.Storage.Minio.Bucket,
				"use_ssl":    c.Storage.Minio.UseSSL,
				"public_url": c.Storage.Minio.PublicURL,
			},
		},
		"email": map[string]interface{}{
			"enabled":         c.Email.Enabled,
			"host":            c.Email.Host,
			"port":            c.Email.Port,
			"username":        c.Email.Username,
			"password":        c.Email.Password,
			"from":            c.Email.From,
			"support_address": c.Email.SupportAddress,
		},
		"rate_limit": map[string]interface{}{
			"enabled":     c.RateLimit.Enabled,
			"login":       endpointDefaults(c.RateLimit.Login),
			"register":    endpointDefaults(c.RateLimit.Register),
			"ai_search":   endpointDefaults(c.RateLimit.AISearch),
			"add_website": endpointDefaults(c.RateLimit.AddWebsite),
			"contact":     endpointDefaults(c.RateLimit.Contact),
		},
		"websites": map[string]interface{}{
			"require_approval": c.Websites.RequireApproval,
		},
		"link_preview": map[string]interface{}{
			"enabled": c.LinkPreview.Enabled,
		},
		"log": map[string]interface{}{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
		"telemetry": map[string]interface{}{
			"enabled":      c.Telemetry.Enabled,
			"endpoint":     c.Telemetry.Endpoint,
			"insecure":     c.Telemetry.Insecure,
			"service_name": c.Telemetry.ServiceName,
		},
	}, nil
}

func endpointDefaults(ep RateLimitEndpoint) map[string]interface{} {
	return map[string]interface{}{
		"limit":  ep.Limit,
		"window": ep.Window.String(),
	}
}

func SetupFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("stacksift", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("server.host", "", "Server host")
	flags.Int("server.port", 0, "Server port")
	flags.String("server.public_url", "", "Public URL")
	flags.StringSlice("server.allowed_origins", nil, "Allowed CORS origins")
	flags.String("server.tls.mode", "", "TLS mode: off, auto, or manual")
	flags.String("server.tls.cert_file", "", "TLS certificate file (manual mode)")
	flags.String("server.tls.key_file", "", "TLS key file (manual mode)")
	flags.String("server.tls.auto.domain", "", "Domain for automatic TLS (auto mode)")
	flags.String("server.tls.auto.email", "", "Contact email for Let's Encrypt (auto mode)")
	flags.String("server.tls.auto.cache_dir", "", "Certificate cache directory (auto mode)")
	flags.String("database.path", "", "Database path")
	flags.Int("database.max_open_conns", 0, "Maximum open database connections")
	flags.String("ai.api_key", "", "Gemini API key (AI features are disabled when empty)")
	flags.String("ai.model", "", "Gemini model name")
	flags.String("ai.cache.backend", "", "AI suggestion cache backend: sqlite or mongo")
	flags.String("storage.backend", "", "Avatar storage backend: local or minio")
	flags.String("storage.local_path", "", "Local upload directory")
	flags.Bool("email.enabled", false, "Enable email sending")
	flags.Bool("websites.require_approval", false, "Only list approved websites")
	flags.String("log.level", "", "Log level: debug, info, warn, error")
	flags.String("log.format", "", "Log format: text or json")
	flags.Bool("telemetry.enabled", false, "Export OpenTelemetry traces, metrics and logs")
	return flags
}
