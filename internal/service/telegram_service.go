package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/osa911/datacap/internal/notification"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService sends block/unblock alerts to a Telegram chat
type TelegramService struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client

	mu      sync.Mutex
	blocked *bool
}

// NewTelegramService creates a new Telegram service
func NewTelegramService(botToken, chatID string) *TelegramService {
	return &TelegramService{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether both token and chat are configured
func (s *TelegramService) Enabled() bool {
	return s.botToken != "" && s.chatID != ""
}

// telegramMessage represents a Telegram API message
type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (s *TelegramService) Name() string { return "telegram" }

// Send forwards the notification when the blocked state changes.
// The first status only records the state unless it is already blocked.
func (s *TelegramService) Send(ctx context.Context, content notification.Content) error {
	if !content.Ready {
		return nil
	}

	s.mu.Lock()
	changed := (s.blocked == nil && content.IsBlocked) || (s.blocked != nil && *s.blocked != content.IsBlocked)
	blocked := content.IsBlocked
	s.blocked = &blocked
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.SendMessage(ctx, formatAlert(content))
}

// SendMessage posts an HTML message to the configured chat
func (s *TelegramService) SendMessage(ctx context.Context, text string) error {
	if !s.Enabled() {
		return fmt.Errorf("telegram bot token or chat ID not configured")
	}

	payload := telegramMessage{
		ChatID:    s.chatID,
		Text:      text,
		ParseMode: "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

func formatAlert(content notification.Content) string {
	heading := "🟢 <b>Internet access restored</b>"
	if content.IsBlocked {
		heading = "🔴 <b>Data quota reached, internet blocked</b>"
	}

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	b.WriteString(escapeHTML(content.Text))
	for _, line := range content.Lines {
		b.WriteString("\n")
		b.WriteString(escapeHTML(line))
	}
	return b.String()
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// escapeHTML escapes HTML special characters for Telegram
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
