package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notification carries the alerts of one run for external fan-out.
type Notification struct {
	ContratanteID  int64
	PlanejamentoID int64
	RunTimestamp   time.Time
	Alerts         []Alert
}

// Notifier delivers a notification to an external channel. The snapshot
// is the canonical alert carrier; notifiers are an optional side channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes alert digests through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram-backed notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify renders the notification and calls the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram respondeu status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram retornou ok=false")
		}
	}

	n.logger.Info().Time("run", note.RunTimestamp).
		Int("alerts", len(note.Alerts)).
		Msg("alerta enviado (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Monitor de Estoque]\n")
	builder.WriteString(fmt.Sprintf("Contratante: %d | Planejamento: %d\n", note.ContratanteID, note.PlanejamentoID))
	builder.WriteString(fmt.Sprintf("Execução: %s UTC\n", note.RunTimestamp.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Alertas: %d\n", len(note.Alerts)))
	for _, alert := range note.Alerts {
		builder.WriteString(fmt.Sprintf("- [%s] %s: %s\n", alert.Severity, alert.Issue, alert.Detail))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
