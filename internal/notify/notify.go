// Package notify delivers short user-facing messages such as "Monthly data
// for March 2024 saved".
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"fintrack/internal/log"
)

type Level string

const (
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

type Notifier interface {
	Notify(ctx context.Context, level Level, message string) error
}

// Log writes notifications to the structured log.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Discard()
	}
	return &Log{logger: logger.WithComponent(log.ComponentNotify)}
}

func (l *Log) Notify(ctx context.Context, level Level, message string) error {
	switch level {
	case Error:
		l.logger.ErrorContext(ctx, message)
	case Warning:
		l.logger.WarnContext(ctx, message)
	default:
		l.logger.InfoContext(ctx, message)
	}
	return nil
}

// channelSender is the part of a discordgo session used here.
type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notifications to one channel through a bot account.
type Discord struct {
	sender    channelSender
	channelID string
	close     func() error
}

func NewDiscord(token, channelID string) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("discord token and channel are required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Discord{sender: session, channelID: channelID, close: session.Close}, nil
}

func (d *Discord) Notify(ctx context.Context, level Level, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := d.sender.ChannelMessageSend(d.channelID, prefix(level)+message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

func prefix(level Level) string {
	switch level {
	case Error:
		return "❌ "
	case Warning:
		return "⚠️ "
	default:
		return "✅ "
	}
}

// Multi fans a notification out to every notifier. Individual failures are
// logged and never returned.
type Multi struct {
	notifiers []Notifier
	logger    *log.Logger
}

func NewMulti(logger *log.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = log.Discard()
	}
	return &Multi{notifiers: notifiers, logger: logger.WithComponent(log.ComponentNotify)}
}

func (m *Multi) Notify(ctx context.Context, level Level, message string) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, level, message); err != nil {
			m.logger.WarnContext(ctx, "Notification delivery failed", log.FieldError, err.Error())
		}
	}
	return nil
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []string
}

func (r *Recorder) Notify(_ context.Context, _ Level, message string) error {
	r.mu.Lock()
	r.Messages = append(r.Messages, message)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Messages...)
}
