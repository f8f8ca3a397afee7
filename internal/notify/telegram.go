package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/labstock/internal/domain/alerts"
)

// Telegram шлёт алерты в админ-чат.
type Telegram struct {
	api  *tgbotapi.BotAPI
	chat int64
	log  *slog.Logger
}

func NewTelegram(api *tgbotapi.BotAPI, adminChatID int64, log *slog.Logger) *Telegram {
	return &Telegram{api: api, chat: adminChatID, log: log}
}

func (t *Telegram) Send(a alerts.Alert) {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Низкий остаток: %s\n", a.Material.Name)
	fmt.Fprintf(&b, "Сейчас: %.1f %s, прогноз: %.1f %s, минимум: %.1f %s\n",
		a.Current, a.Material.Unit, a.Predicted, a.Material.Unit, a.Material.MinWeight, a.Material.Unit)
	for _, p := range a.Periods {
		if p.End != nil {
			fmt.Fprintf(&b, "Провал %s — %s, минимум %.1f (дефицит %.1f)\n",
				p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), p.MinStock, p.Shortage)
		} else {
			fmt.Fprintf(&b, "Провал с %s, не закрывается запланированным (дефицит %.1f)\n",
				p.Start.Format("2006-01-02"), p.Shortage)
		}
	}

	msg := tgbotapi.NewMessage(t.chat, b.String())
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("telegram alert failed", "material_id", a.Material.ID, "err", err)
	}
}
