package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gamelo-backend/internal/audit"
	"gamelo-backend/internal/auth"
	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/codecrypt"
	"gamelo-backend/internal/codes"
	"gamelo-backend/internal/config"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/dispute"
	"gamelo-backend/internal/httpapi"
	"gamelo-backend/internal/notify"
	"gamelo-backend/internal/order"
	"gamelo-backend/internal/reporting"
	"gamelo-backend/internal/storage"
	"gamelo-backend/internal/wallet"
	"gamelo-backend/pkg/logger"
	"gamelo-backend/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	cipher, err := codecrypt.New(cfg.Crypto.CodeKey)
	if err != nil {
		log.Error("code cipher init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := storage.RunMigrations(rootCtx, db); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services, bottom up.
	auditor := audit.NewService(audit.NewPostgresRepo(db))
	wallets := wallet.NewService(wallet.NewPostgresRepo(db))
	pool := codes.NewService(codes.NewPostgresRepo(db), cipher, log)
	products := catalog.NewService(catalog.NewPostgresRepo(db), pool, rdb, log)
	discounts := discount.NewService(discount.NewPostgresRepo(db))
	notifications := notify.NewService(notify.NewPostgresRepo(db), log)
	telegram := notify.NewTelegram(cfg.Telegram, log)
	hub := notify.NewHub(notifications, telegram, log)
	orders := order.NewService(order.NewPostgresRepo(db), wallets, pool, products, discounts, auditor, hub, log)
	disputes := dispute.NewService(dispute.NewPostgresRepo(db), orders, auditor, hub, log)
	reports := reporting.NewService(reporting.NewPostgresRepo(db))

	h := &httpapi.Handler{
		Wallets:       wallets,
		Pool:          pool,
		Products:      products,
		Discounts:     discounts,
		Orders:        orders,
		Disputes:      disputes,
		Notifications: notifications,
		Reports:       reports,
		Auditor:       auditor,
		RDB:           rdb,
		CheckoutCap:   2,
		Log:           log,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, db, authManager)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
