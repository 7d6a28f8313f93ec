package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/mklimuk/orbit/pkg/digest"
)

// commandPrefix marks bot commands in channel messages.
const commandPrefix = "!"

// Bot answers task commands in Discord channels and posts digests to
// ChannelID.
type Bot struct {
	Session  *discordgo.Session
	Commands *digest.Commands
	// ChannelID receives scheduled digests; empty disables Notify.
	ChannelID string
	send      func(channelID, content string) error
}

// NewBot creates a new Discord bot
func NewBot(token, channelID string, commands *digest.Commands) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	bot := &Bot{
		Session:   dg,
		Commands:  commands,
		ChannelID: channelID,
	}
	bot.send = func(channelID, content string) error {
		_, err := dg.ChannelMessageSend(channelID, content)
		return err
	}

	dg.AddHandler(bot.messageCreate)

	return bot, nil
}

// Start opens the websocket connection
func (b *Bot) Start() error {
	return b.Session.Open()
}

// Stop closes the websocket connection
func (b *Bot) Stop() error {
	return b.Session.Close()
}

// Notify posts text to the configured channel.
func (b *Bot) Notify(ctx context.Context, text string) error {
	if b.ChannelID == "" {
		return fmt.Errorf("no discord channel configured")
	}
	if err := b.send(b.ChannelID, text); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from self
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	b.handleMessage(context.Background(), m.ChannelID, m.Content)
}

func (b *Bot) handleMessage(ctx context.Context, channelID, content string) {
	cmd, args := digest.ParseCommand(commandPrefix, content)
	reply, ok := b.Commands.Handle(ctx, cmd, args)
	if !ok {
		return
	}
	if err := b.send(channelID, reply); err != nil {
		log.Printf("Failed to send Discord reply: %v", err)
	}
}
