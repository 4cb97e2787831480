package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/config"
	"github.com/iliyamo/sales-pos/internal/database"
	"github.com/iliyamo/sales-pos/internal/handler"
	"github.com/iliyamo/sales-pos/internal/middleware"
	"github.com/iliyamo/sales-pos/internal/queue"
	"github.com/iliyamo/sales-pos/internal/repository"
	"github.com/iliyamo/sales-pos/internal/repository/memory"
	"github.com/iliyamo/sales-pos/internal/router"
	"github.com/iliyamo/sales-pos/internal/service"
)

type stores struct {
	users    repository.UserStore
	tokens   repository.TokenStore
	products repository.ProductStore
	sales    repository.SaleStore
	reports  repository.ReportStore
	db       *sql.DB
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		m := memory.New()
		return stores{users: m.Users(), tokens: m.Tokens(), products: m.Products(), sales: m.Sales(), reports: m.Reports()}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
	}
	return stores{
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
		products: repository.NewProductRepo(db),
		sales:    repository.NewSaleRepo(db),
		reports:  repository.NewReportRepo(db),
		db:       db,
	}, nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := config.NewLogger(config.LoggerConfig{Level: cfg.LogLevel, Env: cfg.Env})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	if st.db != nil {
		defer st.db.Close()
	}

	// Sale events are optional; without a broker sales are still recorded.
	var publisher service.SalePublisher
	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		publisher = queue.NewPublisher(qcfg, logger)
		go func() {
			if err := queue.StartSalesConsumer(ctx, qcfg, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("sales consumer stopped", zap.Error(err))
			}
		}()
	}

	users := service.NewUserService(st.users, st.products, cfg.BcryptCost, logger)
	products := service.NewProductService(st.products, logger)
	sales := service.NewSaleService(st.sales, publisher, logger)
	reports := service.NewReportingService(st.reports, logger)

	if cfg.AdminEmail != "" {
		admin, err := users.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Fatal("bootstrap admin", zap.Error(err))
		}
		logger.Info("admin account ready", zap.Uint64("user_id", admin.ID), zap.String("email", admin.Email))
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger(logger))

	opts := router.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:       middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	if st.db != nil {
		opts.DB = st.db
	}
	router.RegisterAll(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, st.tokens, logger),
		Users:     handler.NewUserHandler(users),
		Products:  handler.NewProductHandler(products),
		Sales:     handler.NewSaleHandler(sales),
		Dashboard: handler.NewDashboardHandler(reports),
	}, opts)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
