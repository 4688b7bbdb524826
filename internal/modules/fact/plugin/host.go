package plugin

import (
	"context"
	"time"

	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
)

// Identifier is a resolved message destination
type Identifier struct {
	ChatID int64
	Name   string
}

// Host is the bot runtime the plugin runs inside
type Host interface {
	// Activate performs the host side of plugin activation
	Activate(ctx context.Context, pluginName string) error
	Deactivate(ctx context.Context, pluginName string) error
	// Configure receives the effective configuration of a plugin
	Configure(pluginName string, cfg domain.Config)
	BuildIdentifier(ctx context.Context, name string) (Identifier, error)
	Send(ctx context.Context, to Identifier, text string) error
	StartPoller(pluginName string, period time.Duration, fn func()) error
	StopPoller(pluginName string)
}
