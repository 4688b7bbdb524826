package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	factDomain "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/plugin"
	factRepo "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/repository"
	userService "github.com/reshetovitsme/catfacts-bot/internal/modules/user/service"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/config"
	apperrors "github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const helpText = `🐱 Cat Facts Bot

Available commands:
/help - Show this help message
/catfact [n] - Get n cat facts (default 1)
/catfact_trigger - Post a cat fact to the fact channel (admin)
/catfact_config [key value] - Show or change plugin settings (admin)

Settings: max_facts, fact_period_seconds, fact_channel
Use "/catfact_config reset" to restore the defaults.`

// Handler handles Telegram bot interactions
type Handler struct {
	cfg         *config.Config
	plugin      *plugin.Plugin
	userService *userService.Service
	configRepo  factRepo.Repository
}

// New creates a new Telegram handler
func New(cfg *config.Config, p *plugin.Plugin, userService *userService.Service, configRepo factRepo.Repository) *Handler {
	return &Handler{
		cfg:         cfg,
		plugin:      p,
		userService: userService,
		configRepo:  configRepo,
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandlerMatchFunc(matchCommand("start"), h.handleStart)
	b.RegisterHandlerMatchFunc(matchCommand("help"), h.handleHelp)
	b.RegisterHandlerMatchFunc(matchCommand("catfact"), h.handleCatfact)
	b.RegisterHandlerMatchFunc(matchCommand("catfact_trigger"), h.handleCatfactTrigger)
	b.RegisterHandlerMatchFunc(matchCommand("catfact_config"), h.handleCatfactConfig)
}

// HandleUpdate is the fallback for updates no command matched
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	slog.Debug("Ignoring update", "chat_id", update.Message.Chat.ID, "text", lo.Ellipsis(update.Message.Text, 40))
}

// StartupOverrides returns the configured overrides with the persisted ones on top
func (h *Handler) StartupOverrides() (*factDomain.Overrides, error) {
	stored, err := h.configRepo.GetOverrides(plugin.Name)
	if err != nil {
		if errors.Is(err, apperrors.ErrConfigNotFound) {
			return h.cfg.Catfacts, nil
		}
		return nil, err
	}
	return h.cfg.Catfacts.Merge(stored), nil
}

func (h *Handler) isAdmin(update *models.Update) bool {
	return update.Message.From != nil && h.userService.IsAdmin(update.Message.From.ID, h.cfg.AdminUsers)
}

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message.From != nil {
		if _, err := h.userService.ClaimAdmin(update.Message.From.ID, update.Message.From.Username, h.cfg.AdminUsers); err != nil {
			slog.Error("Failed to register admin", "error", err, "user_id", update.Message.From.ID)
		}
	}

	h.reply(ctx, b, update, "👋 Welcome!\n\n"+helpText)
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.reply(ctx, b, update, helpText)
}

func (h *Handler) handleCatfact(ctx context.Context, b *bot.Bot, update *models.Update) {
	_, args := splitCommand(update.Message.Text)
	for fact := range h.plugin.Catfact(ctx, args, senderName(update.Message)) {
		h.reply(ctx, b, update, fact)
	}
}

func (h *Handler) handleCatfactTrigger(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.isAdmin(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}
	h.plugin.Trigger(ctx, senderName(update.Message))
}

func (h *Handler) handleCatfactConfig(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.isAdmin(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	_, args := splitCommand(update.Message.Text)
	fields := strings.Fields(args)

	switch {
	case len(fields) == 0:
		h.reply(ctx, b, update, formatConfig(h.plugin.Config()))
		return
	case len(fields) == 1 && fields[0] == "reset":
		if err := h.configRepo.DeleteOverrides(plugin.Name); err != nil {
			slog.Error("Failed to delete plugin overrides", "error", err)
			h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to reset config: %v", err))
			return
		}
		cfg, err := h.plugin.Reconfigure(ctx, h.cfg.Catfacts)
		if err != nil {
			h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to apply config: %v", err))
			return
		}
		h.reply(ctx, b, update, "✅ Config reset\n\n"+formatConfig(cfg))
		return
	case len(fields) != 2:
		h.reply(ctx, b, update, "Usage: /catfact_config [max_facts|fact_period_seconds|fact_channel <value>] | reset")
		return
	}

	stored, err := h.configRepo.GetOverrides(plugin.Name)
	if err != nil && !errors.Is(err, apperrors.ErrConfigNotFound) {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to load config: %v", err))
		return
	}

	change, err := parseSetting(fields[0], fields[1])
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ %v", err))
		return
	}
	stored = stored.Merge(change)

	cfg, err := h.plugin.Reconfigure(ctx, h.cfg.Catfacts.Merge(stored))
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to apply config: %v", err))
		return
	}

	if err := h.configRepo.SaveOverrides(plugin.Name, stored); err != nil {
		slog.Error("Failed to persist plugin overrides", "error", err)
		h.reply(ctx, b, update, fmt.Sprintf("⚠️ Config applied but not saved: %v", err))
		return
	}

	slog.Info("Plugin config changed", "plugin", plugin.Name, "key", fields[0], "by", senderName(update.Message))
	h.reply(ctx, b, update, "✅ Config updated\n\n"+formatConfig(cfg))
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		slog.Error("Failed to send reply", "error", err, "chat_id", update.Message.Chat.ID)
	}
}

func parseSetting(key, value string) (*factDomain.Overrides, error) {
	switch key {
	case "max_facts", "fact_period_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, oops.With("key", key, "value", value).Errorf("%s must be an integer", key)
		}
		if key == "max_facts" {
			return &factDomain.Overrides{MaxFacts: lo.ToPtr(n)}, nil
		}
		return &factDomain.Overrides{FactPeriodSeconds: lo.ToPtr(n)}, nil
	case "fact_channel":
		return &factDomain.Overrides{FactChannel: lo.ToPtr(value)}, nil
	default:
		return nil, oops.With("key", key).Errorf("unknown setting %q", key)
	}
}

func formatConfig(cfg factDomain.Config) string {
	period := "disabled"
	if cfg.PollingEnabled() {
		period = fmt.Sprintf("%d seconds", cfg.FactPeriodSeconds)
	}
	return fmt.Sprintf(`⚙️ Catfacts config:

max_facts: %d
fact_period_seconds: %s
fact_channel: %s`, cfg.MaxFacts, period, cfg.FactChannel)
}

// matchCommand matches "/name" and "/name@botname", optionally followed by arguments
func matchCommand(name string) bot.MatchFunc {
	return func(update *models.Update) bool {
		if update.Message == nil {
			return false
		}
		cmd, _ := splitCommand(update.Message.Text)
		return cmd == name
	}
}

func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text, " ")
	cmd, _, _ := strings.Cut(strings.TrimPrefix(head, "/"), "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

func senderName(msg *models.Message) string {
	if msg.From != nil {
		if msg.From.Username != "" {
			return "@" + msg.From.Username
		}
		if msg.From.FirstName != "" {
			return msg.From.FirstName
		}
		return strconv.FormatInt(msg.From.ID, 10)
	}
	return "Unknown"
}
