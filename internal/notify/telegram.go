package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSink delivers notifications as Telegram messages to a fixed chat.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSink(api *tgbotapi.BotAPI, chatID int64) *TelegramSink {
	return &TelegramSink{api: api, chatID: chatID}
}

func (s *TelegramSink) Ready() error {
	if s.api == nil {
		return fmt.Errorf("telegram sink: api not configured")
	}
	if s.chatID == 0 {
		return fmt.Errorf("telegram sink: chat id not configured")
	}
	return nil
}

func (s *TelegramSink) Send(content Content) error {
	text := fmt.Sprintf("🔔 <b>%s</b>\n%s", content.Title, content.LargeBody)
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
