package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/internal/service"
	"github.com/yusufpr/akrab_bot/utils"
)

func (b *Bot) showTopupMenu(chatID int64) {
	text := fmt.Sprintf(
		"💳 <b>TOP UP SALDO</b>\n\n"+
			"Minimal: %s\nMaksimal: %s\nKelipatan: %s\n\n"+
			"Pilih metode top up:",
		utils.FormatRupiah(service.TopupMinAmount),
		utils.FormatRupiah(service.TopupMaxAmount),
		utils.FormatRupiah(service.TopupStep))
	b.sendMessage(chatID, text, topupMenuKeyboard())
}

func (b *Bot) askTopupAmount(chatID int64, user *models.User) {
	b.setState(user.TelegramID, stateAwaitingTopupAmount)
	b.sendMessage(chatID,
		"Masukkan nominal top up (contoh: <code>50000</code>).\nKetik /batal untuk membatalkan.", nil)
}

func (b *Bot) handleTopupAmountInput(ctx context.Context, chatID int64, user *models.User, text string) {
	userID := user.TelegramID

	amount, err := utils.ParseAmount(text)
	if err != nil {
		b.sendMessage(chatID, "❌ Nominal tidak valid. Masukkan angka saja, contoh: <code>50000</code>.", nil)
		return
	}

	topup, err := b.service.StartQRISTopup(ctx, user, amount)
	if err != nil {
		b.setState(userID, stateDefault)
		if errors.Is(err, service.ErrInvalidAmount) {
			b.sendMessage(chatID, fmt.Sprintf(
				"❌ Nominal harus antara %s dan %s, kelipatan %s.",
				utils.FormatRupiah(service.TopupMinAmount),
				utils.FormatRupiah(service.TopupMaxAmount),
				utils.FormatRupiah(service.TopupStep)), nil)
			return
		}
		b.logger.Errorf("Failed to start topup for %d: %v", userID, err)
		b.sendMessage(chatID, "❌ Gagal membuat QRIS. Silakan coba lagi nanti.", nil)
		return
	}

	b.setState(userID, stateAwaitingTopupProof)
	b.setUserActionData(userID, topup.Request.ID)

	caption := fmt.Sprintf(
		"📱 <b>QRIS TOP UP</b>\n\n"+
			"🧾 ID: <code>%s</code>\n"+
			"💵 Transfer tepat: <b>%s</b>\n"+
			"(sudah termasuk kode unik %d)\n\n"+
			"Scan QR di atas, lalu kirim foto bukti transfer ke chat ini.",
		topup.Request.ID, utils.FormatRupiah(topup.Request.Amount), topup.Surcharge)
	b.sendPhoto(chatID, topup.Image, caption)
}

func (b *Bot) handleTopupProofUpload(ctx context.Context, update tgbotapi.Update, user *models.User) {
	chatID := update.Message.Chat.ID
	userID := user.TelegramID
	topupID := b.getUserActionData(userID)

	b.setState(userID, stateDefault)
	b.clearUserActionData(userID)
	if topupID == "" {
		b.sendMessage(chatID, "Tidak ada top up yang menunggu bukti transfer.", nil)
		return
	}

	// Largest photo size is last.
	photos := update.Message.Photo
	fileID := photos[len(photos)-1].FileID

	if err := b.service.AttachTopupProof(ctx, topupID, fileID, update.Message.Caption); err != nil {
		b.logger.Errorf("Failed to attach proof to topup %s: %v", topupID, err)
		b.sendMessage(chatID, "❌ Gagal menyimpan bukti transfer. Silakan coba lagi.", nil)
		return
	}

	b.sendMessage(chatID,
		"✅ Bukti transfer diterima. Top up akan diproses setelah diverifikasi admin.",
		mainMenuKeyboard(b.service.IsAdmin(userID)))
	b.notifyAdminsOfTopup(ctx, topupID, fileID, user)
}

func (b *Bot) notifyAdminsOfTopup(ctx context.Context, topupID, fileID string, user *models.User) {
	topup, err := b.service.GetTopup(ctx, topupID)
	if err != nil || topup == nil {
		b.logger.Errorf("Failed to load topup %s for admin review: %v", topupID, err)
		return
	}

	caption := fmt.Sprintf(
		"💳 <b>TOP UP BARU</b>\n\n"+
			"🧾 ID: <code>%s</code>\n"+
			"👤 %s (@%s, <code>%d</code>)\n"+
			"💵 Nominal: <b>%s</b>",
		topup.ID, topup.FullName, topup.Username, topup.UserID,
		utils.FormatRupiah(topup.Amount))

	for _, adminID := range b.config.AdminIDList() {
		photo := tgbotapi.NewPhoto(adminID, tgbotapi.FileID(fileID))
		photo.Caption = caption
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = topupReviewKeyboard(topup.ID)
		if _, err := b.API.Send(photo); err != nil {
			b.logger.Errorf("Failed to notify admin %d of topup %s: %v", adminID, topup.ID, err)
		}
	}
}

func (b *Bot) handleRedeemCodeInput(ctx context.Context, chatID int64, user *models.User, text string) {
	userID := user.TelegramID
	b.setState(userID, stateDefault)
	code := strings.TrimSpace(text)

	amount, err := b.service.RedeemCode(ctx, userID, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeInvalid):
			b.sendMessage(chatID, "❌ Kode tidak ditemukan. Periksa kembali kode Anda.", nil)
		case errors.Is(err, service.ErrCodeUsed):
			b.sendMessage(chatID, "❌ Kode ini sudah pernah digunakan.", nil)
		default:
			b.logger.Errorf("Failed to redeem code for %d: %v", userID, err)
			b.sendMessage(chatID, "❌ Terjadi kesalahan. Silakan coba lagi nanti.", nil)
		}
		return
	}

	balance, _ := b.service.GetBalance(ctx, userID)
	b.sendMessage(chatID, fmt.Sprintf(
		"✅ <b>KODE BERHASIL DIGUNAKAN</b>\n\nSaldo bertambah %s.\nSaldo Anda sekarang: <b>%s</b>",
		utils.FormatRupiah(amount), utils.FormatRupiah(balance)),
		mainMenuKeyboard(b.service.IsAdmin(userID)))
}

func (b *Bot) showTopupHistory(ctx context.Context, chatID int64, user *models.User) {
	topups, err := b.service.ListTopups(ctx, user.TelegramID, 10)
	if err != nil {
		b.logger.Errorf("Failed to list topups for %d: %v", user.TelegramID, err)
		b.sendMessage(chatID, "❌ Gagal memuat riwayat top up.", nil)
		return
	}
	if len(topups) == 0 {
		b.sendMessage(chatID, "Belum ada riwayat top up.", topupMenuKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>RIWAYAT TOP UP</b>\n")
	for _, t := range topups {
		sb.WriteString(fmt.Sprintf(
			"\n%s %s • %s • %s\n",
			topupEmoji(t.Status), utils.FormatRupiah(t.Amount), t.Status,
			t.CreatedAt.Format("02/01 15:04")))
	}
	b.sendMessage(chatID, sb.String(), topupMenuKeyboard())
}

func topupEmoji(status string) string {
	switch status {
	case models.TopupApproved:
		return "✅"
	case models.TopupRejected:
		return "❌"
	default:
		return "⏳"
	}
}
