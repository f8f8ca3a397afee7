package notify

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/Spok95/labstock/internal/domain/alerts"
)

// Mailer шлёт письмо закупщику материала. Доставка по обычному SMTP:
// почтовых библиотек не требуется, письмо — plain text.
type Mailer struct {
	host     string
	port     int
	from     string
	password string
	log      *slog.Logger
}

func NewMailer(host string, port int, from, password string, log *slog.Logger) *Mailer {
	return &Mailer{host: host, port: port, from: from, password: password, log: log}
}

func buildMail(from, to string, a alerts.Alert) []byte {
	subject := fmt.Sprintf("[stock alert] %s needs replenishment", a.Material.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Material: %s\n", a.Material.Name)
	fmt.Fprintf(&b, "Current stock: %.2f %s\n", a.Current, a.Material.Unit)
	fmt.Fprintf(&b, "Minimum: %.2f %s\n", a.Material.MinWeight, a.Material.Unit)
	fmt.Fprintf(&b, "Predicted stock: %.2f %s\n\n", a.Predicted, a.Material.Unit)
	b.WriteString("Predicted stock falls below the minimum. Please arrange replenishment.\n\n")
	b.WriteString("This message was sent automatically by the stock tracking service.\n")
	return []byte(b.String())
}

func (m *Mailer) Send(a alerts.Alert) {
	to := a.Material.Email
	if to == "" {
		m.log.Warn("email alert skipped: no purchase contact", "material_id", a.Material.ID)
		return
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.from, m.password, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, buildMail(m.from, to, a)); err != nil {
		m.log.Error("email alert failed", "material_id", a.Material.ID, "to", to, "err", err)
		return
	}
	m.log.Info("email alert sent", "material_id", a.Material.ID, "to", to)
}
