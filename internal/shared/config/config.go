package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	factDomain "github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
	"github.com/reshetovitsme/catfacts-bot/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const DefaultFactsEndpoint = "https://catfact.ninja/fact"

type Config struct {
	TelegramBotToken string           `koanf:"telegram_bot_token"`
	TelegramAPIURL   string           `koanf:"telegram_api_url"`
	StoragePath      string           `koanf:"storage_path"`
	HTTPPort         string           `koanf:"http_port"`
	AdminUsers       []int64          `koanf:"-"`
	ChannelAliases   map[string]int64 `koanf:"-"`
	AppEnv           AppEnv           `koanf:"-"`
	Facts            FactsConfig      `koanf:"facts"`

	// Catfacts holds plugin overrides given in the config file or environment
	Catfacts *factDomain.Overrides `koanf:"-"`
}

type FactsConfig struct {
	Endpoint       string `koanf:"endpoint"`
	RequestDelayMS int    `koanf:"request_delay_ms"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

func (f FactsConfig) RequestDelay() time.Duration {
	return time.Duration(f.RequestDelayMS) * time.Millisecond
}

func (f FactsConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

var configFiles = []string{
	"config.yaml",
	"config.yml",
	"config.json",
	"config.toml",
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Use lo.Find to find the first existing config file
	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Environment variables override file values.
	// FACTS__ENDPOINT -> facts.endpoint
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("storage_path") {
		k.Set("storage_path", "./data")
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("facts.endpoint") {
		k.Set("facts.endpoint", DefaultFactsEndpoint)
	}
	if !k.Exists("facts.request_delay_ms") {
		k.Set("facts.request_delay_ms", 100)
	}
	if !k.Exists("facts.timeout_seconds") {
		k.Set("facts.timeout_seconds", 10)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	cfg.AdminUsers = parseAdminUsersValue(k.Get("admin_users"))
	cfg.ChannelAliases = parseChannelAliasesValue(k.Get("channel_aliases"))
	cfg.Catfacts = pluginOverrides(k, "catfacts")

	cfg.AppEnv = AppEnvProduction
	if appEnvStr := k.String("app_env"); appEnvStr != "" {
		if env, err := ParseAppEnv(appEnvStr); err == nil {
			cfg.AppEnv = env
		}
	}

	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}

	return &cfg, nil
}

func pluginOverrides(k *koanf.Koanf, prefix string) *factDomain.Overrides {
	o := &factDomain.Overrides{}
	if key := prefix + ".max_facts"; k.Exists(key) {
		o.MaxFacts = lo.ToPtr(k.Int(key))
	}
	if key := prefix + ".fact_period_seconds"; k.Exists(key) {
		o.FactPeriodSeconds = lo.ToPtr(k.Int(key))
	}
	if key := prefix + ".fact_channel"; k.Exists(key) {
		o.FactChannel = lo.ToPtr(k.String(key))
	}
	if o.IsEmpty() {
		return nil
	}
	return o
}

func parseAdminUsersValue(v interface{}) []int64 {
	switch val := v.(type) {
	case string:
		return ParseAdminUsers(val)
	case []interface{}:
		return lo.FilterMap(val, func(item interface{}, _ int) (int64, bool) {
			return toInt64(item)
		})
	default:
		return []int64{}
	}
}

func parseChannelAliasesValue(v interface{}) map[string]int64 {
	switch val := v.(type) {
	case string:
		return ParseChannelAliases(val)
	case map[string]interface{}:
		aliases := make(map[string]int64, len(val))
		for name, raw := range val {
			if id, ok := toInt64(raw); ok {
				aliases[normalizeAlias(name)] = id
			}
		}
		return aliases
	default:
		return map[string]int64{}
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		var id int64
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%d", &id); err == nil {
			return id, true
		}
	}
	return 0, false
}

// ParseAdminUsers parses comma-separated user IDs string into []int64
func ParseAdminUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		return toInt64(part)
	})
}

// ParseChannelAliases parses "random=-1001,cats=-1002" into an alias map
func ParseChannelAliases(s string) map[string]int64 {
	aliases := map[string]int64{}
	for _, part := range strings.Split(s, ",") {
		name, rawID, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		if id, ok := toInt64(rawID); ok {
			aliases[normalizeAlias(name)] = id
		}
	}
	return aliases
}

func normalizeAlias(name string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "#")
}
