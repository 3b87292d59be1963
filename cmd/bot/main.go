package main

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yusufpr/akrab_bot/config"
	"github.com/yusufpr/akrab_bot/db"
	"github.com/yusufpr/akrab_bot/internal/bot"
	"github.com/yusufpr/akrab_bot/internal/jobs"
	"github.com/yusufpr/akrab_bot/internal/provider"
	"github.com/yusufpr/akrab_bot/internal/repository"
	"github.com/yusufpr/akrab_bot/internal/service"
	"github.com/yusufpr/akrab_bot/internal/webhook"
	"github.com/yusufpr/akrab_bot/utils"
)

func main() {
	logger := utils.InitLogger()
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}

	database, err := db.ConnectDb(cfg.DB_URL, logger)
	if err != nil {
		logger.Fatal(err)
	}

	if err := db.Migrate(database, true, logger); err != nil {
		logger.Fatal(err)
	}

	repo := repository.NewRepository(database, logger)
	fulfillment := provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, logger)
	qris := provider.NewQRISClient(cfg.QRISAPIURL, cfg.QRISStaticPayload, logger)

	catalog := service.NewCatalogCache(
		fulfillment.FetchStock,
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		logger,
	)

	svc := service.NewService(repo, fulfillment, qris, catalog, cfg.AdminIDList(), logger)

	telegramBot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("Failed to create bot API: ", err)
	}
	logger.Infof("Authorized as @%s", telegramBot.Self.UserName)

	tgBot := bot.NewBot(telegramBot, svc, logger, &cfg)
	svc.SetNotifier(tgBot.Notify)

	server := webhook.NewServer(cfg.WebhookPort, svc, logger)
	go func() {
		logger.Infof("Webhook server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil {
			logger.Fatal("Webhook server stopped: ", err)
		}
	}()

	scheduler := jobs.NewScheduler(svc, time.Duration(cfg.SweepAfterMinutes)*time.Minute, logger)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	tgBot.Start()
}
