// Package telegram delivers run notifications via the Telegram Bot API.
// It formats forecast run summaries and failure notices into MarkdownV2
// messages and handles delivery with retry logic for reliability.
package telegram

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ticketline/revcast/internal/models"
)

// Client handles Telegram notifications
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
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

// NotifyRun sends the summary of a completed forecast run.
func (c *Client) NotifyRun(summary *models.RunSummary) error {
	return c.send(formatRunMessage(summary))
}

// NotifyFailure sends a notice that a forecast run aborted with an error.
func (c *Client) NotifyFailure(runErr error) error {
	return c.send(formatFailureMessage(runErr))
}

// send delivers a message with retry
func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2" // Use MarkdownV2 for better escaping support

	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatRunMessage formats a run summary into a Telegram message
func formatRunMessage(summary *models.RunSummary) string {
	message := "📊 *Forecast uploaded*\n\n"

	message += fmt.Sprintf("🎟 Events seen: %d\n", summary.EventsSeen)
	message += fmt.Sprintf("📈 Forecasted: %d\n", summary.Forecasted)
	message += fmt.Sprintf("⏭ Skipped: %d\n", summary.Skipped)
	message += fmt.Sprintf("🗂 Rows written: %d\n", summary.Rows)
	message += fmt.Sprintf("⏱ Took: %s\n", escapeMarkdownV2(formatDuration(summary.Duration)))

	return message
}

// formatFailureMessage formats a run error into a Telegram message
func formatFailureMessage(runErr error) string {
	message := "🚨 *Forecast run failed*\n\n"
	message += escapeMarkdownV2(runErr.Error())
	return message
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	// Note: We escape all of them with \ prefix

	result := ""
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			result += "\\" + string(char)
		default:
			result += string(char)
		}
	}
	return result
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if hours := int(d.Hours()); hours >= 1 {
		return fmt.Sprintf("%dh", hours)
	}
	if mins := int(d.Minutes()); mins >= 1 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
