package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stacksift/api/internal/ai"
	"github.com/stacksift/api/internal/aicache"
	"github.com/stacksift/api/internal/auth"
	"github.com/stacksift/api/internal/collection"
	"github.com/stacksift/api/internal/config"
	"github.com/stacksift/api/internal/database"
	"github.com/stacksift/api/internal/email"
	"github.com/stacksift/api/internal/enrich"
	"github.com/stacksift/api/internal/handler"
	"github.com/stacksift/api/internal/linkpreview"
	"github.com/stacksift/api/internal/logging"
	"github.com/stacksift/api/internal/ratelimit"
	"github.com/stacksift/api/internal/server"
	"github.com/stacksift/api/internal/storage"
	"github.com/stacksift/api/internal/suggest"
	"github.com/stacksift/api/internal/telemetry"
	"github.com/stacksift/api/internal/user"
	"github.com/stacksift/api/internal/website"
)

const avatarURLPrefix = "/api/v1/avatars"

type App struct {
	Config       *config.Config
	DB           *database.DB
	Server       *server.Server
	Telemetry    *telemetry.Telemetry
	EmailService *email.Service
	RateLimiter  *ratelimit.Limiter
	AICache      aicache.Store
	PreviewRepo  *linkpreview.Repository
	aiEnabled    bool
}

func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.closeResources(context.Background())
		}
	}()

	// Telemetry first so every later log record reaches the OTLP pipeline
	a.Telemetry, err = telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	if a.Telemetry.Enabled() {
		logging.Setup(cfg.Log, a.Telemetry.LogHandler())
	}
	logger := slog.Default()

	// Open database
	a.DB, err = database.Open(cfg.Database.Path, database.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
		CacheSize:    cfg.Database.CacheSize,
		MmapSize:     cfg.Database.MmapSize,
	})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := a.DB.Migrate(); err != nil {
		return nil, err
	}

	// Token secrets persist next to the database unless configured
	dataDir := filepath.Dir(cfg.Database.Path)
	if cfg.Auth.AccessTokenSecret == "" {
		if cfg.Auth.AccessTokenSecret, err = loadOrCreateSecret(dataDir, ".access_token_secret"); err != nil {
			return nil, err
		}
	}
	if cfg.Auth.RefreshTokenSecret == "" {
		if cfg.Auth.RefreshTokenSecret, err = loadOrCreateSecret(dataDir, ".refresh_token_secret"); err != nil {
			return nil, err
		}
	}

	// Initialize repositories
	userRepo := user.NewRepository(a.DB.DB)
	websiteRepo := website.NewRepository(a.DB.DB)
	collectionRepo := collection.NewRepository(a.DB.DB)

	// Initialize auth
	tokens := auth.NewTokenService(cfg.Auth.AccessTokenSecret, cfg.Auth.RefreshTokenSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	var google auth.GoogleVerifier
	if cfg.Auth.GoogleClientID != "" {
		google = auth.NewIDTokenVerifier(cfg.Auth.GoogleClientID)
	}
	authService := auth.NewService(userRepo, tokens, google, cfg.Auth.BcryptCost)

	// Initialize AI gateway
	var gen ai.Generator = ai.Disabled{}
	if cfg.AI.APIKey != "" {
		gemini, err := ai.NewGeminiGenerator(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.RequestsPerMinute)
		if err != nil {
			return nil, err
		}
		gen = gemini
		a.aiEnabled = true
	} else {
		slog.Warn("ai.api_key not set, AI search and enrichment are disabled")
	}
	gateway := ai.NewGateway(gen, cfg.AI.SuggestionCount)

	// Initialize suggestion cache
	switch cfg.AI.Cache.Backend {
	case "mongo":
		a.AICache, err = aicache.NewMongoStore(ctx, cfg.AI.Cache.Mongo.URI, cfg.AI.Cache.Mongo.Database, cfg.AI.Cache.TTL)
		if err != nil {
			return nil, err
		}
	default:
		a.AICache = aicache.NewSQLiteStore(a.DB.DB, cfg.AI.Cache.TTL)
	}
	suggestService := suggest.NewService(a.AICache, gateway, logger)

	// Initialize link previews and enrichment
	var (
		enrichPages  enrich.PageFetcher
		websitePages website.PageFetcher
	)
	if cfg.LinkPreview.Enabled {
		a.PreviewRepo = linkpreview.NewRepository(a.DB.DB)
		fetcher := linkpreview.NewFetcher(a.PreviewRepo)
		enrichPages, websitePages = fetcher, fetcher
	}
	var enricher website.Enricher
	if a.aiEnabled {
		enricher = enrich.NewService(gateway, enrichPages, logger)
	}
	websiteService := website.NewService(websiteRepo, enricher, websitePages, logger)

	// Initialize avatar storage
	var avatars storage.Store
	switch cfg.Storage.Backend {
	case "minio":
		avatars, err = storage.NewMinioStore(ctx, cfg.Storage.Minio)
	default:
		avatars, err = storage.NewLocalStore(cfg.Storage.LocalPath, avatarURLPrefix)
	}
	if err != nil {
		return nil, err
	}

	// Initialize email service
	a.EmailService = email.NewService(cfg.Email)

	h := handler.New(handler.Dependencies{
		AuthService:     authService,
		UserRepo:        userRepo,
		WebsiteRepo:     websiteRepo,
		WebsiteService:  websiteService,
		CollectionRepo:  collectionRepo,
		Suggester:       suggestService,
		EmailService:    a.EmailService,
		Avatars:         avatars,
		MaxAvatarSize:   cfg.Storage.MaxAvatarSize,
		RequireApproval: cfg.Websites.RequireApproval,
		Logger:          logger,
	})

	// Build rate limiter (nil if disabled)
	if cfg.RateLimit.Enabled {
		a.RateLimiter = ratelimit.NewLimiter(server.RateLimitRules(cfg.RateLimit))
	}

	router := server.NewRouter(h, tokens, a.RateLimiter, cfg.Server.AllowedOrigins)

	// Build TLS options
	tlsOpts := server.TLSOptions{
		Mode:     cfg.Server.TLS.Mode,
		CertFile: cfg.Server.TLS.CertFile,
		KeyFile:  cfg.Server.TLS.KeyFile,
		Domain:   cfg.Server.TLS.Auto.Domain,
		Email:    cfg.Server.TLS.Auto.Email,
		CacheDir: cfg.Server.TLS.Auto.CacheDir,
	}
	if tlsOpts.Mode == server.TLSAuto {
		if err := os.MkdirAll(tlsOpts.CacheDir, 0700); err != nil {
			return nil, fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	a.Server = server.New(cfg.Server.Host, cfg.Server.Port, router, tlsOpts)
	return a, nil
}

// loadOrCreateSecret reads a secret from dir/name, generating and writing a
// random one on first start.
func loadOrCreateSecret(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if data, err := os.ReadFile(path); err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return strings.TrimSpace(string(data)), nil
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(b)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0600); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	slog.Info("generated secret", "path", path)
	return secret, nil
}

func (a *App) Start(ctx context.Context) error {
	// Start rate limiter cleanup
	if a.RateLimiter != nil {
		go a.RateLimiter.RunCleanup(ctx, 10*time.Minute)
	}

	// Start expired suggestion cleanup
	go runEvery(ctx, a.Config.AI.Cache.CleanupInterval, func() {
		n, err := a.AICache.DeleteExpired(ctx)
		if err != nil {
			slog.Error("ai cache cleanup failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("removed expired ai suggestions", "count", n)
		}
	})

	// Start link preview cache cleanup
	if a.PreviewRepo != nil {
		go runEvery(ctx, time.Hour, func() {
			if _, err := a.PreviewRepo.DeleteExpired(ctx); err != nil {
				slog.Error("link preview cleanup failed", "error", err)
			}
		})
	}

	slog.Info("starting stacksift backend",
		"addr", a.Server.Addr(),
		"database", a.Config.Database.Path,
		"storage", a.Config.Storage.Backend,
		"ai", a.aiEnabled,
		"ai_cache", a.Config.AI.Cache.Backend,
		"tls", a.Server.TLSMode(),
		"email", a.EmailService.IsEnabled(),
		"telemetry", a.Telemetry.Enabled(),
	)

	return a.Server.Start()
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(ctx); err != nil {
		return err
	}
	a.closeResources(ctx)
	return nil
}

func (a *App) closeResources(ctx context.Context) {
	if a.AICache != nil {
		if err := a.AICache.Close(); err != nil {
			slog.Error("closing ai cache", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Error("closing database", "error", err)
		}
	}
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
}
