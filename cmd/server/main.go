package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/backoffice"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/cache"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/catalog"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/config"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/httpapi"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/logging"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/metrics"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/service"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/session"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/store"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/store/memory"
	pgstore "github.com/luizaugustom/montshop-desktop-sub000/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal("invalid security configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres schema", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("audit store: postgres")
	} else {
		repo = memory.New()
		logger.Info("audit store: in-memory")
	}

	productCache := cache.ProductCache(cache.NoopProductCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisProductCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", zap.Error(err))
		} else {
			productCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("product cache: redis")
		}
	} else {
		logger.Info("product cache: noop")
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New()
	}

	shop := backoffice.New(cfg.ShopAPIURL, cfg.ShopAPITimeout, logger)
	sessions := session.NewRegistry(shop, cfg.SessionIdle, logger)
	products := catalog.New(shop, productCache, cfg.ProductCacheTTL, logger)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.ManagerPIN)
	svc := service.New(shop, sessions, products, repo, service.Options{
		SearchDebounce: cfg.SearchDebounce,
		Logger:         logger,
		Metrics:        recorder,
		Approval:       auth,
	})
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, recorder, logger)

	runCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(runCtx, time.Minute)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ShopAPITimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("montshop reconciliation api listening", zap.String("addr", cfg.Address()), zap.String("shop_api", cfg.ShopAPIURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	stopSweep()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.ShopAPIURL == "" {
		return fmt.Errorf("SHOP_API_URL must be set")
	}
	if u, err := url.Parse(cfg.ShopAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SHOP_API_URL must be an absolute http(s) URL")
	}
	if cfg.ManagerPIN == "" {
		return nil
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be at least 6 digits")
	}
	for _, r := range cfg.ManagerPIN {
		if r < '0' || r > '9' {
			return fmt.Errorf("MANAGER_PIN must contain digits only")
		}
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"222222": true, "333333": true, "444444": true, "555555": true,
		"666666": true, "777777": true, "888888": true, "999999": true,
		"121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
