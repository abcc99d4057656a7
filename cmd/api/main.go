package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	httpapi "github.com/denisok6893-rgb/stay-pricing/internal/http"
	"github.com/denisok6893-rgb/stay-pricing/internal/logging"
	"github.com/denisok6893-rgb/stay-pricing/internal/market"
	"github.com/denisok6893-rgb/stay-pricing/internal/pricing"
	"github.com/denisok6893-rgb/stay-pricing/internal/storage"
	"github.com/denisok6893-rgb/stay-pricing/internal/valuation"
)

type Config struct {
	Env                 string
	Address             string
	SQLitePath          string
	DatabaseURL         string
	RedisURL            string
	BaselineCacheTTL    time.Duration
	PropertiesPath      string
	ValuationConfigPath string
	CORSOrigins         []string
	ShutdownTimeout     time.Duration
}

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
	cfg := loadConfig()
	log := logging.New(cfg.Env == "development")
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Error("ensure schema: %v", err)
		os.Exit(1)
	}
	seedProperties(ctx, st, cfg.PropertiesPath, log)

	var cache market.Cache
	if cfg.RedisURL != "" {
		rc, err := storage.NewRedisBaselineCache(cfg.RedisURL, cfg.BaselineCacheTTL)
		if err == nil {
			err = rc.Ping(ctx)
		}
		if err != nil {
			log.Warn("redis unavailable, baselines served uncached (reason: %v)", err)
		} else {
			defer rc.Close()
			cache = rc
			log.Info("baseline cache: redis (ttl %s)", cfg.BaselineCacheTTL)
		}
	}

	vc, err := valuation.LoadConfigFromFile(cfg.ValuationConfigPath)
	if err != nil {
		log.Warn("use default valuation config (reason: %v)", err)
	}

	srv := httpapi.NewServer(
		st,
		pricing.NewCalculator(),
		valuation.NewEstimator(vc, time.Now),
		market.NewService(st, cache, log, time.Now),
		log,
	)
	srv.CORSOrigins = cfg.CORSOrigins

	httpSrv := &http.Server{
		Addr:              cfg.Address,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API listening on %s", cfg.Address)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown: %v", err)
	}
}

func openStore(ctx context.Context, cfg Config, log *logging.Logger) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		log.Info("storage: postgres")
		pg, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	log.Info("storage: sqlite (%s)", cfg.SQLitePath)
	sq, err := storage.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return sq, nil
}

// seedProperties loads the seed file into an empty store.
func seedProperties(ctx context.Context, st storage.Store, path string, log *logging.Logger) {
	if path == "" {
		return
	}
	n, err := st.CountProperties(ctx)
	if err != nil {
		log.Warn("count properties: %v", err)
		return
	}
	if n > 0 {
		return
	}

	props, err := storage.LoadPropertiesFromFile(path)
	if err != nil {
		log.Warn("skip seeding (reason: %v)", err)
		return
	}
	if err := st.UpsertMany(ctx, props); err != nil {
		log.Error("seed properties: %v", err)
		return
	}
	log.Info("seeded %d properties from %s", len(props), path)
}

func loadConfig() Config {
	return Config{
		Env:                 getEnv("APP_ENV", "development"),
		Address:             getEnv("API_ADDRESS", ":8080"),
		SQLitePath:          getEnv("SQLITE_PATH", "data/stay.db"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		BaselineCacheTTL:    getEnvDuration("BASELINE_CACHE_TTL", 10*time.Minute),
		PropertiesPath:      getEnv("PROPERTIES_PATH", "data/properties.json"),
		ValuationConfigPath: getEnv("VALUATION_CONFIG_PATH", "configs/valuation.json"),
		CORSOrigins:         splitList(os.Getenv("CORS_ORIGINS")),
		ShutdownTimeout:     time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
