package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/Tipster/models"
)

// TelegramDigest sends windowed-stats summaries to a Telegram chat.
type TelegramDigest struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramDigest initializes the bot API with the given token.
func NewTelegramDigest(token string, chatID int64) (*TelegramDigest, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}

	return &TelegramDigest{bot: bot, chatID: chatID}, nil
}

// SendStats formats and sends a stats digest message.
func (t *TelegramDigest) SendStats(ws *models.WindowedStats) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatStats(ws))
	msg.ParseMode = "Markdown"

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}

	return nil
}

// FormatStats renders a WindowedStats into a Markdown digest.
func FormatStats(ws *models.WindowedStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 *Prediction results — %s*\n\n", ws.Period)

	if ws.Total == 0 {
		b.WriteString("No settled predictions in this window yet.")
		return b.String()
	}

	fmt.Fprintf(&b, "Settled: %d (%d won / %d lost)\n", ws.Total, ws.Wins, ws.Losses)
	fmt.Fprintf(&b, "Win rate: %.1f%%\n", ws.WinRate)
	fmt.Fprintf(&b, "P/L: %+.2f (ROI %.1f%%)\n\n", ws.TotalProfit, ws.ROI)

	fmt.Fprintf(&b, "High confidence: %s\n", formatTier(ws.TierHigh))
	fmt.Fprintf(&b, "Mid confidence: %s\n", formatTier(ws.TierMid))
	fmt.Fprintf(&b, "Low confidence: %s\n", formatTier(ws.TierLow))

	switch ws.Streak.Type {
	case models.StreakWin:
		fmt.Fprintf(&b, "\n🔥 Current streak: %d wins", ws.Streak.Count)
	case models.StreakLoss:
		fmt.Fprintf(&b, "\n❄️ Current streak: %d losses", ws.Streak.Count)
	}

	return b.String()
}

func formatTier(t models.TierStats) string {
	if t.Total == 0 {
		return "—"
	}
	return fmt.Sprintf("%d/%d (%.1f%%)", t.Wins, t.Total, t.WinRate)
}
