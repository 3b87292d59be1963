package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/internal/service"
	"github.com/yusufpr/akrab_bot/utils"
)

func (b *Bot) showProductList(ctx context.Context, chatID int64) {
	products, err := b.service.Catalog().Products(ctx)
	if err != nil {
		b.logger.Errorf("Failed to load catalog: %v", err)
		b.sendMessage(chatID, "❌ Gagal memuat daftar produk. Silakan coba lagi nanti.", nil)
		return
	}
	if len(products) == 0 {
		b.sendMessage(chatID, "Belum ada produk tersedia saat ini.", nil)
		return
	}

	overrideList, err := b.service.ListOverrides(ctx)
	if err != nil {
		b.logger.Errorf("Failed to load overrides: %v", err)
	}
	overrides := make(map[string]models.ProductOverride, len(overrideList))
	for _, ov := range overrideList {
		overrides[ov.Code] = ov
	}

	b.sendMessage(chatID, "🛒 <b>DAFTAR PAKET</b>\n\nPilih paket yang ingin dibeli:",
		productListKeyboard(products, overrides))
}

func (b *Bot) showProductDetail(ctx context.Context, chatID int64, code string) {
	product, err := b.service.Catalog().Find(ctx, code)
	if err != nil || product == nil {
		b.sendMessage(chatID, "❌ Produk tidak ditemukan. Coba muat ulang daftar produk.", nil)
		return
	}

	price, err := b.service.ResolvePrice(ctx, code)
	if err != nil {
		b.sendMessage(chatID, "❌ Harga produk ini belum tersedia. Hubungi admin.", nil)
		return
	}

	description := product.Name
	if ov, _ := b.service.GetOverride(ctx, code); ov != nil && ov.Description != "" {
		description = ov.Description
	}

	text := fmt.Sprintf(
		"📦 <b>%s</b>\n\n%s\n\n💵 Harga: <b>%s</b>\n📊 Stok: %d",
		product.Name, description, utils.FormatRupiah(price), product.Stock)
	b.sendMessage(chatID, text, productDetailKeyboard(code))
}

func (b *Bot) askDestination(chatID int64, user *models.User, code string) {
	b.setUserActionData(user.TelegramID, code)
	b.setState(user.TelegramID, stateAwaitingDestination)
	b.sendMessage(chatID,
		"Masukkan nomor tujuan (contoh: <code>081234567890</code>).\nKetik /batal untuk membatalkan.", nil)
}

func (b *Bot) handleDestinationInput(ctx context.Context, chatID int64, user *models.User, destination string) {
	userID := user.TelegramID
	code := b.getUserActionData(userID)
	destination = strings.TrimSpace(destination)

	price, err := b.service.ResolvePrice(ctx, code)
	if err != nil {
		b.setState(userID, stateDefault)
		b.clearUserActionData(userID)
		b.sendMessage(chatID, "❌ Harga produk ini belum tersedia. Hubungi admin.", nil)
		return
	}

	b.setUserActionData(userID, code+"|"+destination)
	b.setState(userID, stateAwaitingConfirmation)

	balance, _ := b.service.GetBalance(ctx, userID)
	text := fmt.Sprintf(
		"🧾 <b>KONFIRMASI PEMBELIAN</b>\n\n"+
			"📦 Produk: <b>%s</b>\n"+
			"📱 Tujuan: <code>%s</code>\n"+
			"💵 Harga: <b>%s</b>\n"+
			"💰 Saldo Anda: %s\n\n"+
			"Lanjutkan pembelian?",
		code, destination, utils.FormatRupiah(price), utils.FormatRupiah(balance))
	b.sendMessage(chatID, text, confirmPurchaseKeyboard())
}

func (b *Bot) executePurchase(ctx context.Context, chatID int64, user *models.User) {
	userID := user.TelegramID
	if b.getUserState(userID) != stateAwaitingConfirmation {
		b.sendMessage(chatID, "Tidak ada pembelian yang menunggu konfirmasi.", nil)
		return
	}

	parts := strings.SplitN(b.getUserActionData(userID), "|", 2)
	b.setState(userID, stateDefault)
	b.clearUserActionData(userID)
	if len(parts) != 2 {
		b.sendMessage(chatID, "Data pembelian tidak lengkap. Silakan ulangi dari menu.", nil)
		return
	}
	code, destination := parts[0], parts[1]

	trx, err := b.service.Purchase(ctx, userID, code, destination)
	if err != nil {
		b.sendMessage(chatID, purchaseErrorMessage(err), mainMenuKeyboard(b.service.IsAdmin(userID)))
		return
	}

	balance, _ := b.service.GetBalance(ctx, userID)
	text := fmt.Sprintf(
		"⏳ <b>TRANSAKSI DIPROSES</b>\n\n"+
			"🧾 Ref: <code>%s</code>\n"+
			"📦 Produk: %s\n"+
			"📱 Tujuan: <code>%s</code>\n"+
			"💵 Harga: %s\n"+
			"💰 Sisa saldo: %s\n\n"+
			"Status akhir akan dikirim setelah ada konfirmasi dari provider.",
		trx.ReffID, trx.ProductCode, trx.Destination,
		utils.FormatRupiah(trx.Price), utils.FormatRupiah(balance))
	b.sendMessage(chatID, text, mainMenuKeyboard(b.service.IsAdmin(userID)))
}

func purchaseErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidDestination):
		return "❌ Nomor tujuan tidak valid. Gunakan 8-16 digit angka."
	case errors.Is(err, service.ErrInsufficientBalance):
		return "❌ Saldo Anda tidak mencukupi. Silakan top up terlebih dahulu."
	case errors.Is(err, service.ErrPriceUnavailable):
		return "❌ Harga produk ini belum tersedia. Hubungi admin."
	case errors.Is(err, service.ErrDispatchFailed):
		return "❌ Gagal menghubungi provider. Saldo Anda tidak terpotong, silakan coba lagi."
	}
	return "❌ Terjadi kesalahan saat memproses transaksi. Silakan coba lagi nanti."
}

func (b *Bot) showTransactionHistory(ctx context.Context, chatID int64, user *models.User) {
	transactions, err := b.service.ListTransactions(ctx, user.TelegramID, 10)
	if err != nil {
		b.logger.Errorf("Failed to list transactions for %d: %v", user.TelegramID, err)
		b.sendMessage(chatID, "❌ Gagal memuat riwayat transaksi.", nil)
		return
	}
	if len(transactions) == 0 {
		b.sendMessage(chatID, "Belum ada transaksi.", mainMenuKeyboard(b.service.IsAdmin(user.TelegramID)))
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>RIWAYAT TRANSAKSI</b>\n")
	for _, trx := range transactions {
		sb.WriteString(fmt.Sprintf(
			"\n%s %s ➜ <code>%s</code>\n%s • %s • %s\n",
			outcomeEmoji(trx.Outcome), trx.ProductCode, trx.Destination,
			utils.FormatRupiah(trx.Price), trx.StatusText,
			trx.CreatedAt.Format("02/01 15:04")))
	}
	b.sendMessage(chatID, sb.String(), mainMenuKeyboard(b.service.IsAdmin(user.TelegramID)))
}

func outcomeEmoji(outcome string) string {
	switch models.TxStatus(outcome) {
	case models.StatusSuccess:
		return "✅"
	case models.StatusFailed, models.StatusCancelled:
		return "❌"
	default:
		return "⏳"
	}
}
