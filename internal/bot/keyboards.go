package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
)

func mainMenuKeyboard(isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("🛒 Beli Paket", "menu:products"),
			tgbotapi.NewInlineKeyboardButtonData("💳 Top Up Saldo", "menu:topup"),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("📋 Riwayat Transaksi", "menu:history"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "menu:main"),
		},
	}
	if isAdmin {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🛠 Panel Admin", "admin:panel"),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productListKeyboard(products []models.Product, overrides map[string]models.ProductOverride) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(products)+1)
	for _, p := range products {
		price := p.Price
		if ov, ok := overrides[p.Code]; ok && ov.Price > 0 {
			price = ov.Price
		}
		label := fmt.Sprintf("%s • %s • stok %d", p.Name, utils.FormatRupiah(price), p.Stock)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, "product:"+p.Code),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Kembali", "menu:main"),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func productDetailKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Beli Sekarang", "buy:"+code),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Kembali", "menu:products"),
		),
	)
}

func confirmPurchaseKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Konfirmasi", "confirm_buy"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Batal", "cancel_buy"),
		),
	)
}

func topupMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 QRIS", "topup:qris"),
			tgbotapi.NewInlineKeyboardButtonData("🎟 Kode Redeem", "topup:redeem"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Riwayat Top Up", "topup:history"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Kembali", "menu:main"),
		),
	)
}

func adminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 Top Up Pending", "admin:topups"),
			tgbotapi.NewInlineKeyboardButtonData("👥 Daftar User", "admin:users"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💲 Ubah Harga", "admin:editprice"),
			tgbotapi.NewInlineKeyboardButtonData("📝 Ubah Deskripsi", "admin:editdesc"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Buat Kode Redeem", "admin:gencode"),
			tgbotapi.NewInlineKeyboardButtonData("🎫 Kode Saya", "admin:mycodes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📣 Broadcast", "admin:broadcast"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Semua Transaksi", "admin:transactions"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Kembali", "menu:main"),
		),
	)
}

func topupReviewKeyboard(topupID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Setujui", "tp_ok:"+topupID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Tolak", "tp_no:"+topupID),
		),
	)
}
