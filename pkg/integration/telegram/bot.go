package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mklimuk/orbit/pkg/digest"
)

// Sender is the part of the Telegram API the bot replies through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers task commands over Telegram and posts digests to ChatID.
type Bot struct {
	API      *tgbotapi.BotAPI
	sender   Sender
	Commands *digest.Commands
	// ChatID receives scheduled digests; zero disables Notify.
	ChatID int64
	stopCh chan struct{}
}

// NewBot creates a new Telegram bot
func NewBot(token string, chatID int64, commands *digest.Commands) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}

	return &Bot{
		API:      api,
		sender:   api,
		Commands: commands,
		ChatID:   chatID,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins polling for updates in a goroutine
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.API.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-b.stopCh:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil {
					b.handleMessage(context.Background(), update.Message.Chat.ID, update.Message.Text)
				}
			}
		}
	}()

	return nil
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	close(b.stopCh)
	b.API.StopReceivingUpdates()
}

// Notify posts text to the configured chat.
func (b *Bot) Notify(ctx context.Context, text string) error {
	if b.ChatID == 0 {
		return fmt.Errorf("no telegram chat configured")
	}
	if _, err := b.sender.Send(tgbotapi.NewMessage(b.ChatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, chatID int64, text string) {
	cmd, args := digest.ParseCommand("/", text)
	if cmd == "start" {
		cmd = digest.CmdHelp
	}
	reply, ok := b.Commands.Handle(ctx, cmd, args)
	if !ok {
		return
	}
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		log.Printf("Failed to send Telegram reply: %v", err)
	}
}
