package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v9"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/SergeVo/WB-price-tracker/internal/bot"
	"github.com/SergeVo/WB-price-tracker/internal/checker"
	"github.com/SergeVo/WB-price-tracker/internal/client"
	"github.com/SergeVo/WB-price-tracker/internal/configuration"
	"github.com/SergeVo/WB-price-tracker/internal/database"
	"github.com/SergeVo/WB-price-tracker/internal/logger"
	"github.com/SergeVo/WB-price-tracker/internal/server"
)

func main() {
	if err := runApp(); err != nil {
		os.Exit(1)
	}
}

func runApp() error {
	appContext, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(false, false, true, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("wb_price_tracker.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogDebug, config.LogInfo, config.LogError, logOutput)

	appLogger.Info("Connecting to DB at", config.DatabaseURI)
	dbConn, err := database.ConnectDB(appContext, config.DatabaseURI)
	if err != nil {
		appLogger.Error("Error connecting to DB:", err)
		return err
	}
	defer func() {
		if err := dbConn.Disconnect(context.Background()); err != nil {
			appLogger.Error("Error disconnecting from DB:", err)
		}
	}()
	db := database.Database{
		Database:             dbConn.Database(database.Name),
		DefaultCheckInterval: config.DefaultCheckInterval,
	}

	redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddress})
	defer func() {
		if err := redisClient.Close(); err != nil {
			appLogger.Error("Error closing Redis client:", err)
		}
	}()

	wbClient := client.Client{
		Client: &http.Client{Timeout: 15 * time.Second},
		Redis:  redisClient,
		Logger: appLogger,
	}

	botAPI, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		appLogger.Error("Error creating Telegram bot API:", err)
		return err
	}
	appBot := bot.Bot{
		API:    botAPI,
		DB:     db,
		Client: wbClient,
		Logger: appLogger,
	}

	priceChecker := &checker.Checker{
		DB:              db,
		Lookup:          wbClient,
		Notifier:        appBot,
		Logger:          appLogger,
		DefaultInterval: config.DefaultCheckInterval,
		Limiter:         rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
	}
	appLogger.Info("Starting price checker with tick interval:", config.CheckTickInterval)
	go priceChecker.Run(appContext, time.NewTicker(config.CheckTickInterval))

	srv := server.Server{DB: db, Logger: appLogger}
	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		appLogger.Info("Serving status API on", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Status API server stopped:", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Error shutting down status API server:", err)
		}
	}()

	appBot.Run(appContext)
	return nil
}
