// Package telegram provides a client for sending notifications via Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
)

// AlertHistory supplies recent alerts for the /status command.
type AlertHistory interface {
	RecentAlerts(k int) ([]models.Alert, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	history        AlertHistory
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and handles bot commands.
// It returns immediately; the goroutine stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

// SetAlertHistory enables the /status command replies.
func (c *Client) SetAlertHistory(h AlertHistory) {
	c.history = h
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	case "status":
		reply := tgbotapi.NewMessage(msg.Chat.ID, c.statusText())
		c.bot.Send(reply) //nolint:errcheck
	}
}

func (c *Client) statusText() string {
	if c.history == nil {
		return "Monitoring is running. No alert history available."
	}
	alerts, err := c.history.RecentAlerts(5)
	if err != nil {
		return fmt.Sprintf("Monitoring is running. Failed to read alert history: %v", err)
	}
	if len(alerts) == 0 {
		return "Monitoring is running. No alerts recorded yet."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Monitoring is running. Last %d alert(s):\n", len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(&b, "%s [%s] %s\n", a.Time.Format("01-02 15:04"), a.Kind, firstLine(a.Message))
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// Notify sends a detector alert.
func (c *Client) Notify(_ context.Context, alert models.Alert) error {
	return c.sendMarkdownV2(FormatAlert(alert))
}

// SendStartup announces that monitoring has started.
func (c *Client) SendStartup(version string) error {
	text := fmt.Sprintf("🚀 *Crude Master Bot LIVE* \\(%s\\)", escapeMarkdownV2(version))
	return c.sendMarkdownV2(text)
}

// SendError sends a monitoring error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendFatal sends the final notification before the process terminates.
func (c *Client) SendFatal(cycleErr error, failureCount int) error {
	text := fmt.Sprintf("❌ *Crude Master Bot STOPPING* after %d consecutive failures\n`%s`",
		failureCount, escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// FormatAlert renders an alert as a Telegram MarkdownV2 message.
func FormatAlert(alert models.Alert) string {
	header := ""
	switch alert.Severity {
	case models.SeverityWarning:
		header = "⚠️ "
	case models.SeverityCritical:
		header = "🚨 "
	}

	timeStr := escapeMarkdownV2(alert.Time.Format("2006-01-02 15:04"))
	return fmt.Sprintf("%s%s\n\n🕒 %s", header, escapeMarkdownV2(alert.Message), timeStr)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
