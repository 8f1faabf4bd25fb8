package notify

import (
	"context"
	"fmt"

	"scoring_engine/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// RankingSource returns the current leaderboard for the /top command.
type RankingSource func(ctx context.Context) ([]models.Ranking, error)

// Telegram sends signals to one chat and answers /top from that chat.
type Telegram struct {
	bot      *tgbot.BotAPI
	chatID   int64
	log      *zap.Logger
	rankings RankingSource
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newTelegram(b, chatID, log), nil
}

func newTelegram(b *tgbot.BotAPI, chatID int64, log *zap.Logger) *Telegram {
	return &Telegram{bot: b, chatID: chatID, log: log.With(zap.String("sink", "telegram"))}
}

func (t *Telegram) Name() string { return "telegram" }

// SetRankings enables the /top command.
func (t *Telegram) SetRankings(src RankingSource) { t.rankings = src }

func (t *Telegram) Send(msg string) error {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return nil
	}
	_, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg))
	return err
}

func (t *Telegram) Sendf(format string, args ...any) error { return t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) Publish(_ context.Context, s models.Signal) error {
	return t.Send(Format(s))
}

// Start long-polls for commands until ctx is done.
func (t *Telegram) Start(ctx context.Context) {
	if t == nil || t.bot == nil {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				t.handle(ctx, upd)
			}
		}
	}()
}

func (t *Telegram) handle(ctx context.Context, upd tgbot.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
		return
	}
	switch msg.Command() {
	case "top":
		if t.rankings == nil {
			return
		}
		ranks, err := t.rankings(ctx)
		if err != nil {
			_ = t.Sendf("rankings unavailable: %v", err)
			return
		}
		if err := t.Send(FormatRankings(ranks, 10)); err != nil {
			t.log.Warn("send failed", zap.Error(err))
		}
	}
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}
