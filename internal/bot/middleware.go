package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yusufpr/akrab_bot/internal/models"
)

func (b *Bot) withUserCheck(handler func(context.Context, tgbotapi.Update, *models.User)) func(tgbotapi.Update) {
	return func(update tgbotapi.Update) {
		ctx := context.Background()
		from := update.Message.From

		fullName := from.FirstName
		if from.LastName != "" {
			fullName += " " + from.LastName
		}

		if err := b.service.RegisterUser(ctx, from.ID, from.UserName, fullName); err != nil {
			b.logger.Errorf("Failed to register user %d: %v", from.ID, err)
			b.sendMessage(update.Message.Chat.ID, "Terjadi kesalahan. Silakan coba lagi nanti.", nil)
			return
		}

		user, err := b.service.GetUser(ctx, from.ID)
		if err != nil || user == nil {
			b.logger.Errorf("Failed to get user %d after registration: %v", from.ID, err)
			b.sendMessage(update.Message.Chat.ID, "Terjadi kesalahan. Silakan coba lagi nanti.", nil)
			return
		}

		handler(ctx, update, user)
	}
}
