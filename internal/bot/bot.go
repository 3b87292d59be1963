package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yusufpr/akrab_bot/config"
	"github.com/yusufpr/akrab_bot/internal/service"
	"github.com/yusufpr/akrab_bot/utils"
)

type Bot struct {
	API            *tgbotapi.BotAPI
	service        *service.Service
	logger         *utils.Logger
	userStates     map[int64]string
	userActionData map[int64]string
	stateMutex     *sync.Mutex
	config         *config.Config
}

func NewBot(
	api *tgbotapi.BotAPI,
	svc *service.Service,
	logger *utils.Logger,
	config *config.Config,
) *Bot {
	return &Bot{
		API:            api,
		service:        svc,
		logger:         logger,
		userStates:     make(map[int64]string),
		userActionData: make(map[int64]string),
		stateMutex:     &sync.Mutex{},
		config:         config,
	}
}

func (b *Bot) Start() {
	b.logger.Info("Starting bot...")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.API.GetUpdatesChan(u)
	for update := range updates {
		b.logger.Debugf("Received update: %+v", update.UpdateID)
		if update.CallbackQuery != nil {
			b.handleCallbackQuery(update.CallbackQuery)
			continue
		}
		if update.Message != nil {
			b.HandleUpdate(update)
		}
	}
}

// Notify lets the service push settlement messages to users.
func (b *Bot) Notify(userID int64, text string) {
	b.sendMessage(userID, text, nil)
}
