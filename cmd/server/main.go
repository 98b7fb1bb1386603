package main

import (
	handlers "VoiceBoard/internal/handler"
	"VoiceBoard/internal/listeners"
	"VoiceBoard/internal/models"
	"VoiceBoard/internal/moderation"
	"VoiceBoard/internal/pipeline"
	"VoiceBoard/pkg/cache"
	"VoiceBoard/pkg/config"
	"VoiceBoard/pkg/i18n"
	"VoiceBoard/pkg/logger"
	"VoiceBoard/pkg/metrics"
	"VoiceBoard/pkg/middleware"
	"VoiceBoard/pkg/scheduler"
	"VoiceBoard/pkg/search"
	"VoiceBoard/pkg/speech"
	"VoiceBoard/pkg/sse"
	"VoiceBoard/pkg/storage"
	"VoiceBoard/pkg/util"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := util.InitDatabase(cfg.DBDriver, cfg.DSN, util.DBPoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, cfg.Mode == gin.DebugMode)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(&middleware.OperationLog{}); err != nil {
		return err
	}

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeIfCloser("storage", store)

	speechLog := logrus.New()
	speechLog.SetLevel(logrus.InfoLevel)
	transcriber, err := speech.NewFromConfig(ctx, cfg, speechLog)
	if err != nil {
		return err
	}
	defer closeIfCloser("transcriber", transcriber)

	filter, err := moderation.FromConfig(cfg.BannedWords, cfg.BannedWordsFile, cfg.ModerationMaxLen)
	if err != nil {
		return err
	}
	logger.Info("moderation ready", zap.Int("words", filter.Words()))

	m := metrics.NewMetrics()
	executor := scheduler.NewExecutor(cfg.PipelineWorkers, cfg.PipelineQueueSize, cfg.PipelineTaskTimeout)
	p := pipeline.New(db, store, transcriber, filter, executor, m)

	c, err := cache.NewCache(cache.ConfigFrom(cfg))
	if err != nil {
		return err
	}
	defer c.Close()

	tr, err := i18n.NewI18nSupport(cfg.DefaultLang)
	if err != nil {
		return err
	}

	var engine search.Engine
	if cfg.SearchEnabled {
		engine, err = search.New(search.Config{IndexPath: cfg.SearchPath})
		if err != nil {
			return err
		}
		defer engine.Close()
		listeners.InitSearchListeners(db, engine)
		n, err := listeners.Reindex(ctx, db, engine)
		if err != nil {
			logger.Warn("reindex voice messages", zap.Error(err))
		} else {
			logger.Info("search index ready", zap.Int("documents", n))
		}
	}

	hub := sse.NewHub(0)
	listeners.InitDisplayListeners(c, hub, handlers.ActiveDisplayCacheKey)

	opts := handlers.Options{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		DisplayCacheTTL: cfg.DisplayCacheTTL,
		UploadRate:      cfg.RateLimitUpload,
		AdminSecret:     cfg.AdminAPISecret,
		DebugRoutes:     cfg.DebugEnabled,
	}
	if strings.EqualFold(cfg.CacheType, "redis") {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if opts.LimiterStore, err = middleware.NewRedisLimiterStore(rdb); err != nil {
			return err
		}
		opts.IdemStore = middleware.NewRedisIdemStore(rdb)
	}
	geo, err := middleware.OpenGeoIP(cfg.GeoIPDB)
	if err != nil {
		logger.Warn("open geoip database", zap.String("path", cfg.GeoIPDB), zap.Error(err))
	}
	if geo != nil {
		defer geo.Close()
		opts.Geo = geo
	}

	cr := scheduler.NewCron(time.Local)
	if _, err := cr.AddWithCtx(cfg.PipelineSweepSchedule, func(ctx context.Context) {
		if _, err := p.Sweep(ctx, cfg.PipelineStaleAfter); err != nil {
			logger.Warn("sweep stale voice messages", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	cr.Start()
	defer cr.Stop()

	jobs := scheduler.New()
	defer jobs.Stop()
	jobs.Every("voice-status-gauges", 30*time.Second, scheduler.FuncJob(func(ctx context.Context) {
		counts, err := models.VoiceStatusCounts(db.WithContext(ctx))
		if err != nil {
			logger.Warn("count voice messages", zap.Error(err))
			return
		}
		m.SetVoiceMessages(counts)
	}))
	jobs.Every("system-stats", time.Minute, scheduler.FuncJob(func(ctx context.Context) {
		m.UpdateSystem(metrics.CollectSystemStats(ctx, "/"))
	}))

	gin.SetMode(cfg.Mode)
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(metrics.GinMiddleware(m))
	if strings.EqualFold(cfg.StorageDriver, "local") {
		r.Static(cfg.LocalStorageBaseURL, cfg.LocalStoragePath)
	}
	handlers.NewHandlers(db, p, c, tr, hub, engine, m, opts).Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("storage", store.Name()), zap.String("speech", transcriber.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := executor.Stop(shutdownCtx); err != nil {
		logger.Warn("pipeline executor stop", zap.Error(err))
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept-Language", "Signature", "Idempotency-Key"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cc
}

func closeIfCloser(name string, v any) {
	if cl, ok := v.(io.Closer); ok {
		if err := cl.Close(); err != nil {
			logger.Warn("close "+name, zap.Error(err))
		}
	}
}
