package plugin

import (
	"context"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const (
	Name = "catfacts"

	FallbackMessage = "🐱 Cat fact service is temporarily unavailable!"
)

// Facts is the fact source used by the plugin
type Facts interface {
	FetchFacts(ctx context.Context, count int) ([]string, error)
	Stream(ctx context.Context, count int) iter.Seq2[string, error]
}

// Plugin delivers cat facts on request, on admin trigger and periodically
type Plugin struct {
	host  Host
	facts Facts

	mu      sync.RWMutex
	cfg     domain.Config
	active  bool
	polling bool
	runCtx  context.Context
	cancel  context.CancelFunc

	// poll is bound once so the scheduler always holds the same callback
	poll func()
}

// New creates a new plugin configured with the default template
func New(host Host, facts Facts) *Plugin {
	p := &Plugin{
		host:   host,
		facts:  facts,
		cfg:    domain.DefaultConfig(),
		runCtx: context.Background(),
	}
	p.poll = p.pollerCallback
	return p
}

// ConfigurationTemplate returns the configuration shape with its defaults
func (p *Plugin) ConfigurationTemplate() domain.Config {
	return domain.DefaultConfig()
}

// Config returns the effective configuration
func (p *Plugin) Config() domain.Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Configure overlays overrides onto the template and hands the result to the host
func (p *Plugin) Configure(overrides *domain.Overrides) domain.Config {
	cfg := domain.Configure(overrides)

	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()

	slog.Info("Catfacts plugin configured",
		"max_facts", cfg.MaxFacts,
		"fact_period_seconds", cfg.FactPeriodSeconds,
		"fact_channel", cfg.FactChannel)

	p.host.Configure(Name, cfg)
	return cfg
}

// Activate enables the plugin and starts the poller when the period is positive
func (p *Plugin) Activate(ctx context.Context) error {
	if err := p.host.Activate(ctx, Name); err != nil {
		return oops.With("plugin", Name).Wrap(err)
	}

	cfg := p.Config()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	p.mu.Lock()
	p.active = true
	p.runCtx = runCtx
	p.cancel = cancel
	p.mu.Unlock()

	if !cfg.PollingEnabled() {
		slog.Info("Poller disabled", "fact_period_seconds", cfg.FactPeriodSeconds)
		return nil
	}

	period := time.Duration(cfg.FactPeriodSeconds) * time.Second
	if err := p.host.StartPoller(Name, period, p.poll); err != nil {
		return oops.With("plugin", Name, "period", period).Wrap(err)
	}

	p.mu.Lock()
	p.polling = true
	p.mu.Unlock()

	slog.Info("Poller started", "period", period, "fact_channel", cfg.FactChannel)
	return nil
}

// Deactivate stops the poller and disables the plugin
func (p *Plugin) Deactivate(ctx context.Context) error {
	p.mu.Lock()
	wasPolling := p.polling
	cancel := p.cancel
	p.active = false
	p.polling = false
	p.cancel = nil
	p.mu.Unlock()

	if wasPolling {
		p.host.StopPoller(Name)
	}
	if cancel != nil {
		cancel()
	}

	if err := p.host.Deactivate(ctx, Name); err != nil {
		return oops.With("plugin", Name).Wrap(err)
	}
	return nil
}

// Active reports whether the plugin is activated
func (p *Plugin) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Reconfigure validates overrides and applies them, restarting an active plugin
func (p *Plugin) Reconfigure(ctx context.Context, overrides *domain.Overrides) (domain.Config, error) {
	if err := domain.Configure(overrides).Validate(); err != nil {
		return p.Config(), err
	}

	wasActive := p.Active()
	if wasActive {
		if err := p.Deactivate(ctx); err != nil {
			return p.Config(), err
		}
	}

	cfg := p.Configure(overrides)

	if wasActive {
		if err := p.Activate(ctx); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Catfact returns the facts requested by sender. args holds the wanted
// count; it defaults to 1 and is clamped to [1, max_facts]. Any failure ends
// the sequence silently. The sequence can be consumed once.
func (p *Plugin) Catfact(ctx context.Context, args string, sender string) iter.Seq[string] {
	var consumed atomic.Bool

	return func(yield func(string) bool) {
		if consumed.Swap(true) {
			return
		}

		cfg := p.Config()
		count, err := parseCount(args, cfg.MaxFacts)
		if err != nil {
			slog.Error("Invalid catfact argument", "args", args, "sender", sender, "error", err)
			return
		}

		slog.Info("Catfact requested", "sender", sender, "count", count, "max_facts", cfg.MaxFacts)

		yielded := 0
		for fact, err := range p.facts.Stream(ctx, count) {
			if err != nil {
				slog.Error("Catfact command failed", "sender", sender, "yielded", yielded, "error", err)
				return
			}
			yielded++
			if !yield(fact) {
				return
			}
		}
	}
}

// Trigger broadcasts a fact when the configured channel can be resolved
func (p *Plugin) Trigger(ctx context.Context, sender string) {
	channel := p.Config().FactChannel
	if channel == "" {
		slog.Warn("Catfact trigger ignored, fact channel not configured", "sender", sender)
		return
	}
	if _, err := p.host.BuildIdentifier(ctx, channel); err != nil {
		slog.Warn("Catfact trigger ignored, fact channel not resolvable", "sender", sender, "fact_channel", channel, "error", err)
		return
	}

	slog.Info("Triggering fact broadcast", "sender", sender, "fact_channel", channel)
	if err := p.Broadcast(ctx); err != nil {
		slog.Error("Fact broadcast failed", "fact_channel", channel, "error", err)
	}
}

// Broadcast sends one fact, or the fallback message, to the fact channel
func (p *Plugin) Broadcast(ctx context.Context) error {
	channel := p.Config().FactChannel

	text := FallbackMessage
	facts, err := p.facts.FetchFacts(ctx, 1)
	switch {
	case err != nil:
		slog.Error("Broadcast fetch failed", "fact_channel", channel, "error", err)
	case len(facts) == 0:
		slog.Error("Broadcast fetch returned no facts", "fact_channel", channel)
	default:
		text = facts[0]
	}

	to, err := p.host.BuildIdentifier(ctx, channel)
	if err != nil {
		return oops.With("fact_channel", channel).Wrap(err)
	}

	if err := p.host.Send(ctx, to, text); err != nil {
		return oops.With("fact_channel", channel, "chat_id", to.ChatID).Wrap(err)
	}

	slog.Info("Fact broadcast sent", "fact_channel", channel, "fact", lo.Ellipsis(text, 60))
	return nil
}

func (p *Plugin) pollerCallback() {
	p.mu.RLock()
	ctx := p.runCtx
	p.mu.RUnlock()

	if err := p.Broadcast(ctx); err != nil {
		slog.Error("Periodic fact broadcast failed", "error", err)
	}
}

func parseCount(args string, maxFacts int) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil {
		return 0, oops.With("args", args).Wrap(err)
	}
	return max(1, min(maxFacts, n)), nil
}
