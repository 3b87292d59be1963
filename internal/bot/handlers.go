package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
)

func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	b.withUserCheck(func(ctx context.Context, update tgbotapi.Update, user *models.User) {
		chatID := update.Message.Chat.ID
		userID := user.TelegramID
		text := update.Message.Text

		b.logger.Infof("Processing message from user %d: %s", userID, text)

		// Photo uploads are only meaningful as topup proof.
		if len(update.Message.Photo) > 0 {
			if b.getUserState(userID) == stateAwaitingTopupProof {
				b.handleTopupProofUpload(ctx, update, user)
			} else {
				b.sendMessage(chatID, "Foto diterima, tetapi tidak ada top up yang menunggu bukti transfer.", nil)
			}
			return
		}

		switch b.getUserState(userID) {
		case stateAwaitingDestination:
			b.handleDestinationInput(ctx, chatID, user, text)
			return
		case stateAwaitingTopupAmount:
			b.handleTopupAmountInput(ctx, chatID, user, text)
			return
		case stateAwaitingRedeemCode:
			b.handleRedeemCodeInput(ctx, chatID, user, text)
			return
		case stateAwaitingEditPrice:
			b.handleEditPriceInput(ctx, chatID, userID, text)
			return
		case stateAwaitingEditDesc:
			b.handleEditDescInput(ctx, chatID, userID, text)
			return
		case stateAwaitingCodeAmount:
			b.handleCodeAmountInput(ctx, chatID, userID, text)
			return
		case stateAwaitingBroadcastText:
			b.handleBroadcastInput(ctx, chatID, userID, text)
			return
		}

		switch text {
		case "/start", "/menu":
			b.showDashboard(ctx, chatID, user)
		case "/batal", "/cancel":
			b.setState(userID, stateDefault)
			b.clearUserActionData(userID)
			b.sendMessage(chatID, "Aksi dibatalkan.", mainMenuKeyboard(b.service.IsAdmin(userID)))
		default:
			b.sendMessage(chatID, "Perintah tidak dikenali. Gunakan menu di bawah.", mainMenuKeyboard(b.service.IsAdmin(userID)))
		}
	})(update)
}

func (b *Bot) showDashboard(ctx context.Context, chatID int64, user *models.User) {
	balance, err := b.service.GetBalance(ctx, user.TelegramID)
	if err != nil {
		b.logger.Errorf("Failed to get balance for %d: %v", user.TelegramID, err)
	}
	trxCount, err := b.service.CountTransactions(ctx, user.TelegramID)
	if err != nil {
		b.logger.Errorf("Failed to count transactions for %d: %v", user.TelegramID, err)
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}
	text := fmt.Sprintf(
		"👋 Halo, <b>%s</b>!\n\n"+
			"🆔 ID: <code>%d</code>\n"+
			"💰 Saldo: <b>%s</b>\n"+
			"📊 Total transaksi: %d\n\n"+
			"Silakan pilih menu:",
		name, user.TelegramID, utils.FormatRupiah(balance), trxCount)
	b.sendMessage(chatID, text, mainMenuKeyboard(b.service.IsAdmin(user.TelegramID)))
}

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.logger.Debugf("Callback from user %d: %s", userID, data)

	fullName := callback.From.FirstName
	if callback.From.LastName != "" {
		fullName += " " + callback.From.LastName
	}
	if err := b.service.RegisterUser(ctx, userID, callback.From.UserName, fullName); err != nil {
		b.logger.Errorf("Failed to register user %d: %v", userID, err)
		b.answerCallback(callback.ID, "Terjadi kesalahan.")
		return
	}
	user, err := b.service.GetUser(ctx, userID)
	if err != nil || user == nil {
		b.answerCallback(callback.ID, "Terjadi kesalahan.")
		return
	}

	switch {
	case data == "menu:main":
		b.answerCallback(callback.ID, "")
		b.showDashboard(ctx, chatID, user)
	case data == "menu:products":
		b.answerCallback(callback.ID, "")
		b.showProductList(ctx, chatID)
	case strings.HasPrefix(data, "product:"):
		b.answerCallback(callback.ID, "")
		b.showProductDetail(ctx, chatID, strings.TrimPrefix(data, "product:"))
	case strings.HasPrefix(data, "buy:"):
		b.answerCallback(callback.ID, "")
		b.askDestination(chatID, user, strings.TrimPrefix(data, "buy:"))
	case data == "confirm_buy":
		b.answerCallback(callback.ID, "")
		b.executePurchase(ctx, chatID, user)
	case data == "cancel_buy":
		b.answerCallback(callback.ID, "Dibatalkan")
		b.setState(userID, stateDefault)
		b.clearUserActionData(userID)
		b.sendMessage(chatID, "Pembelian dibatalkan.", mainMenuKeyboard(b.service.IsAdmin(userID)))
	case data == "menu:topup":
		b.answerCallback(callback.ID, "")
		b.showTopupMenu(chatID)
	case data == "topup:qris":
		b.answerCallback(callback.ID, "")
		b.askTopupAmount(chatID, user)
	case data == "topup:redeem":
		b.answerCallback(callback.ID, "")
		b.setState(userID, stateAwaitingRedeemCode)
		b.sendMessage(chatID, "Masukkan kode redeem Anda:", nil)
	case data == "topup:history":
		b.answerCallback(callback.ID, "")
		b.showTopupHistory(ctx, chatID, user)
	case data == "menu:history":
		b.answerCallback(callback.ID, "")
		b.showTransactionHistory(ctx, chatID, user)
	case strings.HasPrefix(data, "admin:"), strings.HasPrefix(data, "tp_ok:"), strings.HasPrefix(data, "tp_no:"):
		b.handleAdminCallback(ctx, callback, user)
	default:
		b.answerCallback(callback.ID, "")
	}
}
