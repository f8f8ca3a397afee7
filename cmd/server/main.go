package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/subosito/gotenv"

	"github.com/Spok95/labstock/internal/config"
	"github.com/Spok95/labstock/internal/domain/alerts"
	"github.com/Spok95/labstock/internal/domain/execution"
	"github.com/Spok95/labstock/internal/domain/forecast"
	"github.com/Spok95/labstock/internal/domain/lots"
	"github.com/Spok95/labstock/internal/domain/materials"
	"github.com/Spok95/labstock/internal/domain/recipes"
	"github.com/Spok95/labstock/internal/domain/reservations"
	"github.com/Spok95/labstock/internal/infra/db"
	httpx "github.com/Spok95/labstock/internal/infra/http"
	"github.com/Spok95/labstock/internal/infra/logger"
	"github.com/Spok95/labstock/internal/notify"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	_ = gotenv.Load()

	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	materialsRepo := materials.NewRepo(pool)
	lotsRepo := lots.NewRepo(pool)
	reservationsRepo := reservations.NewRepo(pool)
	recipesRepo := recipes.NewRepo(pool)
	engine := execution.NewEngine(pool, log)
	forecastSvc := forecast.NewService(pool)
	alertsSvc := alerts.NewService(materialsRepo, lotsRepo, forecastSvc)

	api := httpx.NewAPI(materialsRepo, lotsRepo, reservationsRepo, recipesRepo, engine, forecastSvc, alertsSvc, log)
	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, api)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	if cfg.Alerts.Enabled {
		var telegram *notify.Telegram
		if cfg.Telegram.Token != "" {
			bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
			if err != nil {
				log.Error("telegram init failed", "err", err)
			} else {
				telegram = notify.NewTelegram(bot, cfg.Telegram.AdminChatID, log)
			}
		}
		var mailer *notify.Mailer
		if cfg.SMTP.Host != "" {
			mailer = notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Password, log)
		}

		sweeper := notify.NewSweeper(alertsSvc, mailer, telegram, log)
		go sweeper.Run(ctx, cfg.Alerts.Interval)
		log.Info("alert sweeper started", "interval", cfg.Alerts.Interval.String())
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
