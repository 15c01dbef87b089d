package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OJT-CyberCrime/ciphers-sub000/internal/auth"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/background"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/cache"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/captcha"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/config"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/database"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/handlers"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/metrics"
	middlewareCustom "github.com/OJT-CyberCrime/ciphers-sub000/internal/middleware"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/models"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/repositories"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/routes"
	"github.com/OJT-CyberCrime/ciphers-sub000/internal/services"
	pkgauth "github.com/OJT-CyberCrime/ciphers-sub000/pkg/auth"
	pkghttp "github.com/OJT-CyberCrime/ciphers-sub000/pkg/http"
	pkglogger "github.com/OJT-CyberCrime/ciphers-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

// captchaProofTTL is how long the widget's proof is accepted after it reaches the server
const captchaProofTTL = 2 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	ctx := context.Background()

	// Initialize database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)

	// Session persistence: Redis when configured, otherwise process memory
	var (
		sessionStore auth.SessionStore
		lockoutStore auth.LockoutStore
		memSessions  *cache.MemorySessionStore
	)
	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			logger.Warn("redis unavailable, using in-memory session stores", slog.Any("error", err))
		} else {
			defer client.Close()
			sessionStore = cache.NewRedisSessionStore(client)
			lockoutStore = cache.NewRedisLockoutStore(client)
		}
	}
	if sessionStore == nil {
		memSessions = cache.NewMemorySessionStore()
		sessionStore = memSessions
		lockoutStore = cache.NewMemoryLockoutStore()
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	// Token and TOTP managers
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)
	totpManager, err := auth.NewTOTPManager(cfg.TwoFactor.EncryptionKey, cfg.TwoFactor.Issuer)
	if err != nil {
		logger.Error("failed to initialize totp manager", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Rate limiting service
	rateLimitService := services.NewRateLimitService(loginAttemptRepo, services.RateLimitConfig{
		MaxFailedAttemptsPerEmail:    cfg.Auth.MaxFailedAttemptsPerEmail,
		EmailLockoutDuration:         cfg.Auth.EmailLockoutDuration,
		MaxAttemptsPerIP:             cfg.Auth.MaxAttemptsPerIP,
		MaxAttemptsPerDevice:         cfg.Auth.MaxAttemptsPerDevice,
		LookbackWindow:               cfg.Auth.RateLimitLookbackWindow,
		ProgressiveLockoutMultiplier: 1.5,
		MaxLockoutDuration:           1 * time.Hour,
	}, logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: cfg.Auth.TimingDelayOnSuccess,
	})

	var captchaVerifier services.CaptchaVerifier
	if cfg.Captcha.Secret != "" {
		captchaVerifier = captcha.NewVerifier(cfg.Captcha.Secret, cfg.Captcha.Endpoint, cfg.Captcha.Timeout)
	} else {
		logger.Warn("CAPTCHA_SECRET not set, captcha verification disabled")
	}

	var mailer services.Mailer
	if cfg.Email.Enabled {
		ses, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = ses
	} else {
		mailer = services.NewLogMailer(logger)
	}

	verifier := services.NewPasswordVerifier(
		userRepo,
		captchaVerifier,
		rateLimitService,
		tokenManager,
		mailer,
		timingDelay,
		logger,
		auditLogger,
		services.PasswordVerifierConfig{},
	)

	// Client session registry
	sessionCfg := auth.DefaultSessionConfig()
	sessionCfg.MaxFailedAttempts = cfg.Auth.MaxFailedAttempts
	sessionCfg.LockoutDuration = cfg.Auth.LockoutDuration
	sessionCfg.CallTimeout = cfg.Auth.CallTimeout
	sessionCfg.SessionTTL = cfg.Auth.SessionTokenExpiry
	sessionCfg.ResetTokenTTL = cfg.TwoFactor.ResetTokenTTL
	sessionCfg.ResetLinkBase = cfg.TwoFactor.ResetLinkBase
	sessionCfg.CodeRate = rate.Every(cfg.TwoFactor.CodeInterval)
	sessionCfg.CodeBurst = cfg.TwoFactor.CodeBurst

	registry := auth.NewRegistry(sessionCfg, auth.SessionDeps{
		Verifier:  verifier,
		Directory: userRepo,
		Sessions:  sessionStore,
		Lockouts:  lockoutStore,
		TOTP:      totpManager,
		Logger:    logger,
		Audit:     auditLogger,
		Metrics:   m,
	})
	defer registry.Close()

	// Initialize cleanup manager
	var purgers []background.Purger
	if memSessions != nil {
		purgers = append(purgers, memSessions)
	}
	cleanupManager := background.NewCleanupManager(
		loginAttemptRepo,
		userRepo,
		registry,
		m,
		logger,
		background.CleanupConfig{
			Interval:    cfg.Auth.CleanupInterval,
			SessionIdle: cfg.Auth.SessionIdleTimeout,
		},
		purgers...,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(func(ctx context.Context, sid string) handlers.LoginSession {
		return registry.Get(ctx, sid)
	}, captchaProofTTL, logger)

	// Bootstrap first admin user if configured
	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ensureAdminUser(bootstrapCtx, userRepo, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, auditLogger, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(pkghttp.ClientInfoMiddleware(&pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, tokenManager, sessionStore, routes.Options{
		RateLimit: middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.RequestsPerMin},
		Cookie: auth.CookieConfig{
			Domain:   cfg.Cookie.Domain,
			Secure:   cfg.Cookie.Secure,
			SameSite: cfg.Cookie.SameSite,
		},
		CSRF: middlewareCustom.CSRFConfig{Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure},
	}, logger)
	routes.RegisterOps(router, db, promRegistry)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set. The admin enrols two-factor on first login like
// everyone else.
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, email, password string, audit *pkglogger.AuditLogger, logger *slog.Logger) error {
	if email == "" || password == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.FindByEmail(ctx, email)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin, err := userRepo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	audit.LogAccountAction("admin_bootstrap", admin.ID, map[string]string{"role": admin.Role})
	logger.Info("admin user created successfully")
	return nil
}
