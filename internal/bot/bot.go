package bot

import (
	"context"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/SergeVo/WB-price-tracker/internal/checker"
	"github.com/SergeVo/WB-price-tracker/internal/client"
	"github.com/SergeVo/WB-price-tracker/internal/database"
)

// Bot is the chat-command surface: it owns the Telegram update loop and
// doubles as the notification sink for the price checker.
type Bot struct {
	API    *tgbotapi.BotAPI
	DB     database.Database
	Client client.Client
	Logger logger
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// Run receives Telegram updates until ctx is cancelled.
func (b Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.API.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.API.StopReceivingUpdates()
	}()

	b.Logger.Infof("Run: Receiving updates as @%s", b.API.Self.UserName)
	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	b.Logger.Info("Run: Update channel closed, bot stopped")
}

func (b Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.Logger.Errorf("handleUpdate: Handler crashed, recovered: %v, stack trace:\n%s", r, debug.Stack())
		}
	}()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	userID := msg.Chat.ID

	if !msg.IsCommand() {
		b.handleURL(ctx, userID, msg.Text)
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(userID)
	case "help":
		b.handleHelp(userID)
	case "list":
		b.handleList(ctx, userID)
	case "remove":
		b.handleRemove(ctx, userID, msg.CommandArguments())
	case "remove_url":
		b.handleRemoveURL(ctx, userID, msg.CommandArguments())
	case "set_interval":
		b.handleSetInterval(ctx, userID, msg.CommandArguments())
	default:
		b.reply(userID, "Unknown command. Use /help for the list of commands.")
	}
}

// NotifyPriceChange implements checker.Notifier.
func (b Bot) NotifyPriceChange(_ context.Context, userID int64, change checker.PriceChange) error {
	_, err := b.API.Send(tgbotapi.NewMessage(userID, change.Message()))
	return err
}

func (b Bot) reply(userID int64, text string) {
	if _, err := b.API.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		b.Logger.Errorf("reply: Error sending message to UserID: %d, err: %v", userID, err)
	}
}
