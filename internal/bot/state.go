package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Per-user conversation states.
const (
	stateDefault               = ""
	stateAwaitingDestination   = "awaiting_destination"
	stateAwaitingConfirmation  = "awaiting_confirmation"
	stateAwaitingTopupAmount   = "awaiting_topup_amount"
	stateAwaitingTopupProof    = "awaiting_topup_proof"
	stateAwaitingRedeemCode    = "awaiting_redeem_code"
	stateAwaitingEditPrice     = "awaiting_edit_price"
	stateAwaitingEditDesc      = "awaiting_edit_desc"
	stateAwaitingCodeAmount    = "awaiting_code_amount"
	stateAwaitingBroadcastText = "awaiting_broadcast_text"
)

// sendMessage is the single outbound path; every user-facing message is
// HTML formatted.
func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) sendPhoto(chatID int64, image []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qris.png", Bytes: image})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := b.API.Send(photo); err != nil {
		b.logger.Errorf("Failed to send photo to %d: %v", chatID, err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}

// --- Per-user state ---

func (b *Bot) setState(userID int64, state string) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	if state == stateDefault {
		delete(b.userStates, userID)
	} else {
		b.userStates[userID] = state
	}
	b.logger.Debugf("Set state for user %d: %s", userID, state)
}

func (b *Bot) getUserState(userID int64) string {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	return b.userStates[userID]
}

// --- Per-user scratch data ---

func (b *Bot) setUserActionData(userID int64, data string) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	b.userActionData[userID] = data
}

func (b *Bot) getUserActionData(userID int64) string {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	return b.userActionData[userID]
}

func (b *Bot) clearUserActionData(userID int64) {
	b.stateMutex.Lock()
	defer b.stateMutex.Unlock()
	delete(b.userActionData, userID)
}
