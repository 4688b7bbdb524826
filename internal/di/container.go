package di

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/catfacts-bot/internal/host"
	factClient "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/client"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/plugin"
	factRepo "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/repository"
	factService "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/service"
	userRepo "github.com/reshetovitsme/catfacts-bot/internal/modules/user/repository"
	userService "github.com/reshetovitsme/catfacts-bot/internal/modules/user/service"
	"github.com/reshetovitsme/catfacts-bot/internal/scheduler"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/config"
	httpServer "github.com/reshetovitsme/catfacts-bot/internal/transport/http"
	telegramHandler "github.com/reshetovitsme/catfacts-bot/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container
func Setup() (do.Injector, error) {
	injector := do.New()

	// Register Config
	do.Provide(injector, func(i do.Injector) (*config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, oops.With("context", "failed to load config").Wrap(err)
		}
		return cfg, nil
	})

	// Register Plugin Config Repository
	do.Provide(injector, func(i do.Injector) (factRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := factRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize plugin config repository").Wrap(err)
		}
		return repo, nil
	})

	// Register User Repository
	do.Provide(injector, func(i do.Injector) (userRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := userRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize user repository").Wrap(err)
		}
		return repo, nil
	})

	// Register User Service
	do.Provide(injector, func(i do.Injector) (*userService.Service, error) {
		repo := do.MustInvoke[userRepo.Repository](i)
		return userService.New(repo), nil
	})

	// Register Fact Service
	do.Provide(injector, func(i do.Injector) (*factService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client := factClient.New(cfg.Facts.Endpoint, cfg.Facts.Timeout())
		return factService.New(client, cfg.Facts.RequestDelay()), nil
	})

	// Register Scheduler
	do.Provide(injector, func(i do.Injector) (*scheduler.Service, error) {
		return scheduler.New(), nil
	})

	// Register Gateway
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Gateway, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return telegramHandler.NewGateway(cfg.ChannelAliases), nil
	})

	// Register Host
	do.Provide(injector, func(i do.Injector) (*host.Host, error) {
		gateway := do.MustInvoke[*telegramHandler.Gateway](i)
		sched := do.MustInvoke[*scheduler.Service](i)
		return host.New(gateway, sched), nil
	})

	// Register Catfacts Plugin
	do.Provide(injector, func(i do.Injector) (*plugin.Plugin, error) {
		h := do.MustInvoke[*host.Host](i)
		facts := do.MustInvoke[*factService.Service](i)
		return plugin.New(h, facts), nil
	})

	// Register Telegram Handler
	do.Provide(injector, func(i do.Injector) (*telegramHandler.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p := do.MustInvoke[*plugin.Plugin](i)
		users := do.MustInvoke[*userService.Service](i)
		repo := do.MustInvoke[factRepo.Repository](i)
		return telegramHandler.New(cfg, p, users, repo), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		h := do.MustInvoke[*host.Host](i)
		sched := do.MustInvoke[*scheduler.Service](i)
		server := httpServer.New(cfg, h, sched)
		server.SetLogger(slog.Default())
		return server, nil
	})

	// Register Bot (needs to be initialized after handlers are ready)
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		handler := do.MustInvoke[*telegramHandler.Handler](i)

		opts := []bot.Option{
			bot.WithDefaultHandler(handler.HandleUpdate),
			bot.WithServerURL(cfg.TelegramAPIURL),
		}

		b, err := bot.New(cfg.TelegramBotToken, opts...)
		if err != nil {
			return nil, oops.With("context", "failed to create telegram bot").Wrap(err)
		}

		// Register bot commands
		handler.RegisterCommands(b)

		// Set bot in gateway
		gateway := do.MustInvoke[*telegramHandler.Gateway](i)
		gateway.SetBot(b)

		return b, nil
	})

	return injector, nil
}

// Activate configures the catfacts plugin from config and stored overrides, then activates it
func Activate(ctx context.Context, injector do.Injector) error {
	handler := do.MustInvoke[*telegramHandler.Handler](injector)
	p := do.MustInvoke[*plugin.Plugin](injector)

	overrides, err := handler.StartupOverrides()
	if err != nil {
		return oops.With("context", "failed to load plugin overrides").Wrap(err)
	}

	cfg := p.Configure(overrides)
	if err := cfg.Validate(); err != nil {
		return oops.With("plugin", plugin.Name).Wrap(err)
	}
	return p.Activate(ctx)
}

// Shutdown gracefully shuts down all services
func Shutdown(injector do.Injector) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Deactivate plugin if it exists
	if p, err := do.Invoke[*plugin.Plugin](injector); err == nil && p != nil && p.Active() {
		if err := p.Deactivate(ctx); err != nil {
			slog.Error("Failed to deactivate plugin", "plugin", plugin.Name, "error", err)
		}
	}

	// Stop scheduler if it exists
	if sched, err := do.Invoke[*scheduler.Service](injector); err == nil && sched != nil {
		sched.Stop(ctx)
	}

	// Stop HTTP server if it exists
	if server, err := do.Invoke[*httpServer.Server](injector); err == nil && server != nil {
		if err := server.Stop(); err != nil {
			slog.Error("Failed to stop HTTP server", "error", err)
		}
	}

	return nil
}
