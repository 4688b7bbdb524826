package host

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/plugin"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Gateway resolves channel names and delivers messages
type Gateway interface {
	Resolve(ctx context.Context, name string) (int64, error)
	Send(ctx context.Context, chatID int64, text string) error
}

// Scheduler runs named periodic jobs
type Scheduler interface {
	Every(name string, period time.Duration, fn func()) error
	Remove(name string)
}

// Host is the plugin runtime backed by a chat gateway and a scheduler
type Host struct {
	gateway   Gateway
	scheduler Scheduler

	mu      sync.RWMutex
	active  map[string]time.Time
	configs map[string]domain.Config
}

var _ plugin.Host = (*Host)(nil)

// New creates a new host
func New(gateway Gateway, scheduler Scheduler) *Host {
	return &Host{
		gateway:   gateway,
		scheduler: scheduler,
		active:    map[string]time.Time{},
		configs:   map[string]domain.Config{},
	}
}

func (h *Host) Activate(_ context.Context, pluginName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.active[pluginName]; ok {
		return oops.With("plugin", pluginName).Wrap(errors.ErrPluginActive)
	}
	h.active[pluginName] = time.Now()
	slog.Info("Plugin activated", "plugin", pluginName)
	return nil
}

func (h *Host) Deactivate(_ context.Context, pluginName string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.active, pluginName)
	slog.Info("Plugin deactivated", "plugin", pluginName)
	return nil
}

func (h *Host) Configure(pluginName string, cfg domain.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.configs[pluginName] = cfg
}

func (h *Host) BuildIdentifier(ctx context.Context, name string) (plugin.Identifier, error) {
	chatID, err := h.gateway.Resolve(ctx, name)
	if err != nil {
		return plugin.Identifier{}, err
	}
	return plugin.Identifier{ChatID: chatID, Name: name}, nil
}

func (h *Host) Send(ctx context.Context, to plugin.Identifier, text string) error {
	return h.gateway.Send(ctx, to.ChatID, text)
}

func (h *Host) StartPoller(pluginName string, period time.Duration, fn func()) error {
	return h.scheduler.Every(pollerName(pluginName), period, fn)
}

func (h *Host) StopPoller(pluginName string) {
	h.scheduler.Remove(pollerName(pluginName))
}

// Active returns the names of active plugins
func (h *Host) Active() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := lo.Keys(h.active)
	sort.Strings(names)
	return names
}

// PluginConfig returns the effective configuration handed over by a plugin
func (h *Host) PluginConfig(pluginName string) (domain.Config, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cfg, ok := h.configs[pluginName]
	return cfg, ok
}

func pollerName(pluginName string) string {
	return pluginName + ":poller"
}
