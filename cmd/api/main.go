package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lulusspp/lulus-api/internal/auth"
	"github.com/lulusspp/lulus-api/internal/config"
	"github.com/lulusspp/lulus-api/internal/database"
	"github.com/lulusspp/lulus-api/internal/handlers"
	"github.com/lulusspp/lulus-api/internal/metrics"
	middlewareCustom "github.com/lulusspp/lulus-api/internal/middleware"
	"github.com/lulusspp/lulus-api/internal/ratelimit"
	"github.com/lulusspp/lulus-api/internal/repositories"
	"github.com/lulusspp/lulus-api/internal/routes"
	"github.com/lulusspp/lulus-api/internal/services"
	pkghttp "github.com/lulusspp/lulus-api/pkg/http"
	pkglogger "github.com/lulusspp/lulus-api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("version", cfg.Server.Version))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to migrate database", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	adminRepo := repositories.NewAdminRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)

	// Session codec and brute-force ledger
	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionLifetime, nil)
	ledger := services.NewLoginLedger(loginAttemptRepo, services.LedgerConfig{
		Window:        cfg.Auth.LoginWindow,
		MaxFailures:   cfg.Auth.LoginMaxFailures,
		BlockDuration: cfg.Auth.LoginBlockDuration,
		StaleAfter:    cfg.Auth.LoginStaleAfter,
	}, nil, logger)
	recovery := services.RecoveryPolicy{
		Enabled:  cfg.Admin.RecoveryEnabled,
		Username: cfg.Admin.RecoveryUsername,
		Password: cfg.Admin.RecoveryPassword,
	}
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger, cfg.Server.Env)
	authService := services.NewAuthService(adminRepo, ledger, sessions, recovery, timingDelay, logger, auditLogger)
	adminService := services.NewAdminService(adminRepo, logger, auditLogger)

	// Bootstrap the admin credential if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ensureAdmin(ctx, adminService, cfg.Admin, logger)
	cancel()

	// Admission gate
	limiter := ratelimit.New(ratelimit.Config{
		Limits: map[ratelimit.Bucket]int{
			ratelimit.BucketAuth:   cfg.Gate.AuthPerWindow,
			ratelimit.BucketSearch: cfg.Gate.SearchPerWindow,
			ratelimit.BucketRead:   cfg.Gate.ReadPerWindow,
			ratelimit.BucketWrite:  cfg.Gate.WritePerWindow,
		},
		Window:        cfg.Gate.Window,
		BlockDuration: cfg.Gate.BlockDuration,
		SweepInterval: cfg.Gate.SweepInterval,
	}, nil)
	if err := metrics.RegisterLimiterSize(limiter.Len); err != nil {
		logger.Warn("failed to register limiter gauge", slog.Any("error", err))
	}

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	gateConfig := middlewareCustom.DefaultAdmissionConfig()
	gateConfig.MaxURLLength = cfg.Gate.MaxURLLength
	gateConfig.MaxQueryLength = cfg.Gate.MaxQueryLength
	gateConfig.MaxBodyBytes = cfg.Gate.MaxBodyBytes
	gateConfig.IPConfig = ipConfig
	gate := middlewareCustom.NewAdmissionGate(gateConfig, limiter, logger)

	// Initialize handlers
	cookieConfig := auth.NewCookieConfig(cfg.Server.IsProduction())
	authHandler := handlers.NewAuthHandler(authService, ipConfig, cookieConfig, sessions.Lifetime(), logger)
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Version, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.DefaultSecurityHeadersConfig(cfg.Server.Env)))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(metrics.Middleware)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	healthLimit := middlewareCustom.DefaultHealthRateLimit()
	healthLimit.IPConfig = ipConfig
	if cfg.Gate.HealthPerMinute > 0 {
		healthLimit.RequestsPerMinute = cfg.Gate.HealthPerMinute
	}
	routes.RegisterRoutes(router, authHandler, healthHandler, gate, sessions, healthLimit)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdmin seeds the admin credential when ADMIN_USERNAME and ADMIN_PASSWORD are set.
// Failure is logged and startup continues; the recovery pair still works.
func ensureAdmin(ctx context.Context, adminService *services.AdminService, cfg config.AdminConfig, logger *slog.Logger) {
	if cfg.Username == "" || cfg.Password == "" {
		logger.Info("no ADMIN_USERNAME or ADMIN_PASSWORD set, skipping admin seed")
		return
	}

	created, err := adminService.Seed(ctx, cfg.Username, cfg.Password)
	if err != nil {
		logger.Error("failed to seed admin credential", slog.Any("error", err))
		return
	}
	if created {
		logger.Info("admin credential created")
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
