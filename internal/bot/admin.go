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

func (b *Bot) handleAdminCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, user *models.User) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	data := callback.Data

	if !b.service.IsAdmin(userID) {
		b.answerCallback(callback.ID, "Aksi ini hanya untuk admin.")
		return
	}

	switch {
	case data == "admin:panel":
		b.answerCallback(callback.ID, "")
		b.sendMessage(chatID, "🛠 <b>PANEL ADMIN</b>\n\nPilih aksi:", adminPanelKeyboard())
	case data == "admin:topups":
		b.answerCallback(callback.ID, "")
		b.showPendingTopups(ctx, chatID)
	case data == "admin:users":
		b.answerCallback(callback.ID, "")
		b.showUserList(ctx, chatID)
	case data == "admin:transactions":
		b.answerCallback(callback.ID, "")
		b.showAllTransactions(ctx, chatID)
	case data == "admin:editprice":
		b.answerCallback(callback.ID, "")
		b.setState(userID, stateAwaitingEditPrice)
		b.sendMessage(chatID, "Kirim dalam format: <code>KODE HARGA</code>\nContoh: <code>XLA39 115000</code>", nil)
	case data == "admin:editdesc":
		b.answerCallback(callback.ID, "")
		b.setState(userID, stateAwaitingEditDesc)
		b.sendMessage(chatID, "Kirim dalam format: <code>KODE | deskripsi baru</code>", nil)
	case data == "admin:gencode":
		b.answerCallback(callback.ID, "")
		b.setState(userID, stateAwaitingCodeAmount)
		b.sendMessage(chatID, "Masukkan nominal kode redeem (contoh: <code>50000</code>):", nil)
	case data == "admin:mycodes":
		b.answerCallback(callback.ID, "")
		b.showIssuedCodes(ctx, chatID, userID)
	case data == "admin:broadcast":
		b.answerCallback(callback.ID, "")
		b.setState(userID, stateAwaitingBroadcastText)
		b.sendMessage(chatID, "Kirim pesan broadcast untuk semua user.\nKetik /batal untuk membatalkan.", nil)
	case strings.HasPrefix(data, "tp_ok:"):
		b.decideTopup(ctx, callback, strings.TrimPrefix(data, "tp_ok:"), true)
	case strings.HasPrefix(data, "tp_no:"):
		b.decideTopup(ctx, callback, strings.TrimPrefix(data, "tp_no:"), false)
	default:
		b.answerCallback(callback.ID, "")
	}
}

func (b *Bot) decideTopup(ctx context.Context, callback *tgbotapi.CallbackQuery, topupID string, approve bool) {
	var (
		topup *models.TopupRequest
		err   error
	)
	if approve {
		topup, err = b.service.ApproveTopup(ctx, topupID)
	} else {
		topup, err = b.service.RejectTopup(ctx, topupID)
	}

	switch {
	case errors.Is(err, service.ErrTopupAlreadySettled):
		b.answerCallback(callback.ID, fmt.Sprintf("Sudah diputuskan: %s", topup.Status))
		return
	case errors.Is(err, service.ErrTopupNotFound):
		b.answerCallback(callback.ID, "Top up tidak ditemukan.")
		return
	case err != nil:
		b.logger.Errorf("Failed to settle topup %s: %v", topupID, err)
		b.answerCallback(callback.ID, "Gagal memproses. Coba lagi.")
		return
	}

	decision := "DISETUJUI ✅"
	if !approve {
		decision = "DITOLAK ❌"
	}
	b.answerCallback(callback.ID, "Top up "+decision)

	// Drop the buttons so the decision is not offered twice.
	edit := tgbotapi.NewEditMessageReplyMarkup(callback.Message.Chat.ID, callback.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.API.Request(edit); err != nil {
		b.logger.Debugf("Failed to clear review keyboard: %v", err)
	}

	b.sendMessage(callback.Message.Chat.ID, fmt.Sprintf(
		"Top up <code>%s</code> sebesar %s %s.",
		topup.ID, utils.FormatRupiah(topup.Amount), decision), nil)
}

func (b *Bot) showPendingTopups(ctx context.Context, chatID int64) {
	topups, err := b.service.ListPendingTopups(ctx, 10)
	if err != nil {
		b.logger.Errorf("Failed to list pending topups: %v", err)
		b.sendMessage(chatID, "❌ Gagal memuat daftar top up.", nil)
		return
	}
	if len(topups) == 0 {
		b.sendMessage(chatID, "Tidak ada top up yang menunggu verifikasi.", adminPanelKeyboard())
		return
	}

	for _, t := range topups {
		text := fmt.Sprintf(
			"💳 <b>TOP UP PENDING</b>\n\n"+
				"🧾 ID: <code>%s</code>\n"+
				"👤 %s (@%s, <code>%d</code>)\n"+
				"💵 Nominal: <b>%s</b>\n"+
				"🕐 %s",
			t.ID, t.FullName, t.Username, t.UserID,
			utils.FormatRupiah(t.Amount), t.CreatedAt.Format("02/01/2006 15:04"))
		if t.ProofFileID != "" {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(t.ProofFileID))
			photo.Caption = text
			photo.ParseMode = tgbotapi.ModeHTML
			photo.ReplyMarkup = topupReviewKeyboard(t.ID)
			if _, err := b.API.Send(photo); err != nil {
				b.logger.Errorf("Failed to send topup proof %s: %v", t.ID, err)
			}
		} else {
			b.sendMessage(chatID, text+"\n\n(belum ada bukti transfer)", topupReviewKeyboard(t.ID))
		}
	}
}

func (b *Bot) showUserList(ctx context.Context, chatID int64) {
	users, err := b.service.GetAllUsers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to list users: %v", err)
		b.sendMessage(chatID, "❌ Gagal memuat daftar user.", nil)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👥 <b>DAFTAR USER</b> (%d)\n", len(users)))
	for i, u := range users {
		if i >= 30 {
			sb.WriteString(fmt.Sprintf("\n... dan %d user lainnya", len(users)-i))
			break
		}
		sb.WriteString(fmt.Sprintf(
			"\n<code>%d</code> • %s (@%s) • %s",
			u.TelegramID, u.FullName, u.Username, utils.FormatRupiah(u.Balance)))
	}
	b.sendMessage(chatID, sb.String(), adminPanelKeyboard())
}

func (b *Bot) showAllTransactions(ctx context.Context, chatID int64) {
	transactions, err := b.service.ListAllTransactions(ctx, 15)
	if err != nil {
		b.logger.Errorf("Failed to list transactions: %v", err)
		b.sendMessage(chatID, "❌ Gagal memuat transaksi.", nil)
		return
	}
	if len(transactions) == 0 {
		b.sendMessage(chatID, "Belum ada transaksi.", adminPanelKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>TRANSAKSI TERAKHIR</b>\n")
	for _, trx := range transactions {
		sb.WriteString(fmt.Sprintf(
			"\n%s <code>%d</code> • %s ➜ %s\n%s • %s • %s\n",
			outcomeEmoji(trx.Outcome), trx.UserID, trx.ProductCode, trx.Destination,
			utils.FormatRupiah(trx.Price), trx.StatusText,
			trx.CreatedAt.Format("02/01 15:04")))
	}
	b.sendMessage(chatID, sb.String(), adminPanelKeyboard())
}

func (b *Bot) showIssuedCodes(ctx context.Context, chatID, adminID int64) {
	codes, err := b.service.ListRedeemCodes(ctx, adminID, 15)
	if err != nil {
		b.logger.Errorf("Failed to list redeem codes: %v", err)
		b.sendMessage(chatID, "❌ Gagal memuat daftar kode.", nil)
		return
	}
	if len(codes) == 0 {
		b.sendMessage(chatID, "Anda belum membuat kode redeem.", adminPanelKeyboard())
		return
	}

	var sb strings.Builder
	sb.WriteString("🎫 <b>KODE REDEEM SAYA</b>\n")
	for _, rc := range codes {
		status := "belum dipakai"
		if rc.Used {
			status = "sudah dipakai"
			if rc.UsedBy != nil {
				status = fmt.Sprintf("dipakai oleh %d", *rc.UsedBy)
			}
		}
		sb.WriteString(fmt.Sprintf(
			"\n<code>%s</code> • %s • %s\n",
			rc.Code, utils.FormatRupiah(rc.Amount), status))
	}
	b.sendMessage(chatID, sb.String(), adminPanelKeyboard())
}

func (b *Bot) handleEditPriceInput(ctx context.Context, chatID, userID int64, text string) {
	b.setState(userID, stateDefault)
	if !b.service.IsAdmin(userID) {
		return
	}

	fields := strings.Fields(text)
	if len(fields) != 2 {
		b.sendMessage(chatID, "❌ Format salah. Gunakan: <code>KODE HARGA</code>", nil)
		return
	}
	code := strings.ToUpper(fields[0])
	price, err := utils.ParseAmount(fields[1])
	if err != nil {
		b.sendMessage(chatID, "❌ Harga tidak valid.", nil)
		return
	}

	if err := b.service.SetOverridePrice(ctx, code, price); err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			b.sendMessage(chatID, "❌ Harga harus lebih dari nol.", nil)
			return
		}
		b.logger.Errorf("Failed to set price override: %v", err)
		b.sendMessage(chatID, "❌ Gagal menyimpan harga.", nil)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(
		"✅ Harga <b>%s</b> diubah menjadi %s.", code, utils.FormatRupiah(price)), adminPanelKeyboard())
}

func (b *Bot) handleEditDescInput(ctx context.Context, chatID, userID int64, text string) {
	b.setState(userID, stateDefault)
	if !b.service.IsAdmin(userID) {
		return
	}

	parts := strings.SplitN(text, "|", 2)
	if len(parts) != 2 {
		b.sendMessage(chatID, "❌ Format salah. Gunakan: <code>KODE | deskripsi baru</code>", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(parts[0]))
	description := strings.TrimSpace(parts[1])

	if err := b.service.SetOverrideDescription(ctx, code, description); err != nil {
		b.logger.Errorf("Failed to set description override: %v", err)
		b.sendMessage(chatID, "❌ Gagal menyimpan deskripsi.", nil)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Deskripsi <b>%s</b> diperbarui.", code), adminPanelKeyboard())
}

func (b *Bot) handleCodeAmountInput(ctx context.Context, chatID, userID int64, text string) {
	b.setState(userID, stateDefault)
	if !b.service.IsAdmin(userID) {
		return
	}

	amount, err := utils.ParseAmount(text)
	if err != nil {
		b.sendMessage(chatID, "❌ Nominal tidak valid.", nil)
		return
	}

	rc, err := b.service.IssueRedeemCode(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			b.sendMessage(chatID, fmt.Sprintf(
				"❌ Nominal minimal %s.", utils.FormatRupiah(service.TopupMinAmount)), nil)
			return
		}
		b.logger.Errorf("Failed to issue redeem code: %v", err)
		b.sendMessage(chatID, "❌ Gagal membuat kode.", nil)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"🎟 <b>KODE REDEEM BARU</b>\n\nKode: <code>%s</code>\nNominal: <b>%s</b>\n\nKode hanya bisa dipakai satu kali.",
		rc.Code, utils.FormatRupiah(rc.Amount)), adminPanelKeyboard())
}

func (b *Bot) handleBroadcastInput(ctx context.Context, chatID, userID int64, text string) {
	b.setState(userID, stateDefault)
	if !b.service.IsAdmin(userID) {
		return
	}
	if strings.TrimSpace(text) == "" || text == "/batal" || text == "/cancel" {
		b.sendMessage(chatID, "Broadcast dibatalkan.", adminPanelKeyboard())
		return
	}

	users, err := b.service.GetAllUsers(ctx)
	if err != nil {
		b.logger.Errorf("Failed to list users for broadcast: %v", err)
		b.sendMessage(chatID, "❌ Gagal memuat daftar user.", nil)
		return
	}

	sent := 0
	for _, u := range users {
		msg := tgbotapi.NewMessage(u.TelegramID, "📣 <b>PENGUMUMAN</b>\n\n"+text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := b.API.Send(msg); err != nil {
			b.logger.Debugf("Broadcast to %d failed: %v", u.TelegramID, err)
			continue
		}
		sent++
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Broadcast terkirim ke %d dari %d user.", sent, len(users)), adminPanelKeyboard())
}
