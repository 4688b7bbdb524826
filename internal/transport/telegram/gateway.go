package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/oops"
)

// BotAPI is the subset of the Telegram client used by the gateway
type BotAPI interface {
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Gateway resolves channel names to chat IDs and sends messages to them
type Gateway struct {
	mu      sync.RWMutex
	bot     BotAPI
	aliases map[string]int64
}

// NewGateway creates a gateway. aliases maps "#name" style channel names to chat IDs.
func NewGateway(aliases map[string]int64) *Gateway {
	normalized := make(map[string]int64, len(aliases))
	for name, id := range aliases {
		normalized[aliasKey(name)] = id
	}
	return &Gateway{aliases: normalized}
}

// SetBot sets the Telegram bot instance
func (g *Gateway) SetBot(b BotAPI) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bot = b
}

// Resolve accepts a numeric chat ID, a configured "#alias" or a public "@username"
func (g *Gateway) Resolve(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, oops.With("channel", name).Wrap(errors.ErrChannelNotResolvable)
	}

	if id, err := strconv.ParseInt(name, 10, 64); err == nil {
		return id, nil
	}

	if id, ok := g.aliases[aliasKey(name)]; ok {
		return id, nil
	}

	if strings.HasPrefix(name, "@") {
		b, err := g.client()
		if err != nil {
			return 0, err
		}
		chat, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: name})
		if err != nil {
			return 0, oops.With("channel", name).Wrap(errors.ErrChannelNotResolvable)
		}
		return chat.ID, nil
	}

	return 0, oops.With("channel", name).Wrap(errors.ErrChannelNotResolvable)
}

// Send delivers text to chatID
func (g *Gateway) Send(ctx context.Context, chatID int64, text string) error {
	b, err := g.client()
	if err != nil {
		return err
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		return oops.With("chat_id", chatID, "context", "failed to send message").Wrap(err)
	}
	return nil
}

func (g *Gateway) client() (BotAPI, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bot == nil {
		return nil, oops.Errorf("bot not initialized")
	}
	return g.bot, nil
}

func aliasKey(name string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "#")
}
