package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Validate reports every invalid setting at once, joined into one error.
func Validate(cfg *Config) error {
	var errs []error
	for _, check := range []func(*Config) []error{
		validateServer,
		validateDatabase,
		validateAuth,
		validateAI,
		validateStorage,
		validateEmail,
		validateRateLimit,
		validateObservability,
	} {
		errs = append(errs, check(cfg)...)
	}
	return errors.Join(errs...)
}

func validateServer(cfg *Config) []error {
	var errs []error
	s := cfg.Server

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, errors.New("server.port must be between 1 and 65535"))
	}
	if s.PublicURL != "" {
		if _, err := url.Parse(s.PublicURL); err != nil {
			errs = append(errs, fmt.Errorf("server.public_url is not a valid URL: %w", err))
		}
	}
	for i, origin := range s.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
		}
	}

	switch s.TLS.Mode {
	case "", "off":
	case "auto":
		errs = appendRequired(errs, s.TLS.Auto.Domain, "server.tls.auto.domain is required when tls mode is auto")
		errs = appendRequired(errs, s.TLS.Auto.CacheDir, "server.tls.auto.cache_dir is required when tls mode is auto")
	case "manual":
		errs = appendRequired(errs, s.TLS.CertFile, "server.tls.cert_file is required when tls mode is manual")
		errs = appendRequired(errs, s.TLS.KeyFile, "server.tls.key_file is required when tls mode is manual")
	default:
		errs = append(errs, errors.New("server.tls.mode must be off, auto, or manual"))
	}
	return errs
}

func validateDatabase(cfg *Config) []error {
	var errs []error
	errs = appendRequired(errs, cfg.Database.Path, "database.path is required")
	if cfg.Database.MaxOpenConns < 0 {
		errs = append(errs, errors.New("database.max_open_conns must not be negative"))
	}
	return errs
}

func validateAuth(cfg *Config) []error {
	var errs []error
	a := cfg.Auth
	if a.AccessTokenTTL < time.Minute {
		errs = append(errs, errors.New("auth.access_token_ttl must be at least 1 minute"))
	}
	if a.RefreshTokenTTL < a.AccessTokenTTL {
		errs = append(errs, errors.New("auth.refresh_token_ttl must not be shorter than auth.access_token_ttl"))
	}
	if a.BcryptCost < 10 || a.BcryptCost > 31 {
		errs = append(errs, errors.New("auth.bcrypt_cost must be between 10 and 31"))
	}
	return errs
}

func validateAI(cfg *Config) []error {
	var errs []error
	ai := cfg.AI

	errs = appendRequired(errs, ai.Model, "ai.model is required")
	if ai.SuggestionCount < 1 || ai.SuggestionCount > 25 {
		errs = append(errs, errors.New("ai.suggestion_count must be between 1 and 25"))
	}
	if ai.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("ai.requests_per_minute must not be negative"))
	}
	if ai.Cache.TTL < time.Minute {
		errs = append(errs, errors.New("ai.cache.ttl must be at least 1 minute"))
	}

	switch ai.Cache.Backend {
	case "sqlite":
		if ai.Cache.CleanupInterval < time.Minute {
			errs = append(errs, errors.New("ai.cache.cleanup_interval must be at least 1 minute"))
		}
	case "mongo":
		errs = appendRequired(errs, ai.Cache.Mongo.URI, "ai.cache.mongo.uri is required when ai cache backend is mongo")
		errs = appendRequired(errs, ai.Cache.Mongo.Database, "ai.cache.mongo.database is required when ai cache backend is mongo")
	default:
		errs = append(errs, errors.New("ai.cache.backend must be sqlite or mongo"))
	}
	return errs
}

func validateStorage(cfg *Config) []error {
	var errs []error
	s := cfg.Storage

	switch s.Backend {
	case "local":
		errs = appendRequired(errs, s.LocalPath, "storage.local_path is required when storage backend is local")
	case "minio":
		errs = appendRequired(errs, s.Minio.Endpoint, "storage.minio.endpoint is required when storage backend is minio")
		errs = appendRequired(errs, s.Minio.Bucket, "storage.minio.bucket is required when storage backend is minio")
	default:
		errs = append(errs, errors.New("storage.backend must be local or minio"))
	}
	if s.MaxAvatarSize < 1024 {
		errs = append(errs, errors.New("storage.max_avatar_size must be at least 1KB"))
	}
	return errs
}

func validateEmail(cfg *Config) []error {
	e := cfg.Email
	if !e.Enabled {
		return nil
	}

	var errs []error
	errs = appendRequired(errs, e.Host, "email.host is required when email is enabled")
	errs = appendRequired(errs, e.From, "email.from is required when email is enabled")
	errs = appendRequired(errs, e.SupportAddress, "email.support_address is required when email is enabled")
	if e.Port < 1 || e.Port > 65535 {
		errs = append(errs, errors.New("email.port must be between 1 and 65535"))
	}
	return errs
}

func validateRateLimit(cfg *Config) []error {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil
	}

	var errs []error
	endpoints := []struct {
		name string
		ep   RateLimitEndpoint
	}{
		{"rate_limit.login", rl.Login},
		{"rate_limit.register", rl.Register},
		{"rate_limit.ai_search", rl.AISearch},
		{"rate_limit.add_website", rl.AddWebsite},
		{"rate_limit.contact", rl.Contact},
	}
	for _, e := range endpoints {
		if e.ep.Limit < 1 {
			errs = append(errs, fmt.Errorf("%s.limit must be at least 1", e.name))
		}
		if e.ep.Window < time.Second {
			errs = append(errs, fmt.Errorf("%s.window must be at least 1s", e.name))
		}
	}
	return errs
}

func validateObservability(cfg *Config) []error {
	var errs []error

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.New("log.level must be debug, info, warn, or error"))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, errors.New("log.format must be text or json"))
	}

	if cfg.Telemetry.Enabled {
		errs = appendRequired(errs, cfg.Telemetry.Endpoint, "telemetry.endpoint is required when telemetry is enabled")
	}
	return errs
}

func appendRequired(errs []error, value, msg string) []error {
	if value == "" {
		return append(errs, errors.New(msg))
	}
	return errs
}
