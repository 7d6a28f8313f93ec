package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mklimuk/orbit/pkg/digest"
	"github.com/mklimuk/orbit/pkg/snapshot"
	"github.com/mklimuk/orbit/pkg/task"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, f.err
}

type staticSnapshots struct{ snap *snapshot.Snapshot }

func (s staticSnapshots) Current() *snapshot.Snapshot       { return s.snap }
func (s staticSnapshots) Refresh(ctx context.Context) error { return nil }

func newTestBot(sender *fakeSender) *Bot {
	snap := &snapshot.Snapshot{
		Tasks:   []task.Task{{ID: "1", Name: "Write report", Status: task.StatusDone}},
		TakenAt: time.Now(),
	}
	return &Bot{
		sender:   sender,
		Commands: digest.NewCommands(staticSnapshots{snap}, nil),
		ChatID:   42,
		stopCh:   make(chan struct{}),
	}
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantReply bool
	}{
		{"stats", "/stats", true},
		{"start shows help", "/start", true},
		{"group mention", "/projects@orbit_bot", true},
		{"unknown command ignored", "/inbox foo", false},
		{"plain text ignored", "hello world", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			bot := newTestBot(sender)
			bot.handleMessage(context.Background(), 7, tt.text)

			if got := len(sender.sent) == 1; got != tt.wantReply {
				t.Fatalf("replied = %v, want %v", got, tt.wantReply)
			}
			if tt.wantReply && sender.sent[0].ChatID != 7 {
				t.Errorf("reply went to chat %d, want 7", sender.sent[0].ChatID)
			}
		})
	}
}

func TestNotify(t *testing.T) {
	sender := &fakeSender{}
	bot := newTestBot(sender)

	if err := bot.Notify(context.Background(), "digest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].ChatID != 42 || sender.sent[0].Text != "digest" {
		t.Errorf("unexpected messages: %+v", sender.sent)
	}

	sender.err = errors.New("blocked")
	if err := bot.Notify(context.Background(), "digest"); err == nil {
		t.Error("expected send error")
	}

	bot.ChatID = 0
	if err := bot.Notify(context.Background(), "digest"); err == nil {
		t.Error("expected error without chat id")
	}
}
