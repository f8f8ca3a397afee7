package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/labstock/internal/domain/alerts"
	"github.com/Spok95/labstock/internal/domain/materials"
)

// Sweeper периодически сканирует алерты и раздаёт уведомления по
// shortage-действию материала: email — письмо закупщику, excel —
// телеграм-напоминание открыть лист заказа, none — молчим.
type Sweeper struct {
	alerts   *alerts.Service
	mailer   *Mailer   // может быть nil, если SMTP не настроен
	telegram *Telegram // может быть nil, если бот не настроен
	log      *slog.Logger

	// чтобы не спамить: материал уведомляется один раз, пока алерт
	// не исчезнет и не появится снова
	notified map[int64]bool
}

func NewSweeper(a *alerts.Service, mailer *Mailer, telegram *Telegram, log *slog.Logger) *Sweeper {
	return &Sweeper{alerts: a, mailer: mailer, telegram: telegram, log: log, notified: make(map[int64]bool)}
}

func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	found, err := s.alerts.Scan(ctx)
	if err != nil {
		s.log.Error("alert scan failed", "err", err)
		return
	}

	active := make(map[int64]bool, len(found))
	for _, a := range found {
		active[a.Material.ID] = true
		if s.notified[a.Material.ID] {
			continue
		}
		s.dispatch(a)
		s.notified[a.Material.ID] = true
	}
	for id := range s.notified {
		if !active[id] {
			delete(s.notified, id)
		}
	}
}

func (s *Sweeper) dispatch(a alerts.Alert) {
	if s.telegram != nil {
		s.telegram.Send(a)
	}
	switch a.Material.Action {
	case materials.ActionEmail:
		if s.mailer != nil {
			s.mailer.Send(a)
		}
	case materials.ActionExcel:
		s.log.Info("order sheet needed",
			"material_id", a.Material.ID, "excel_path", a.Material.ExcelPath)
	}
}
