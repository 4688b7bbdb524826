package errors

import "errors"

var (
	ErrMissingBotToken      = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrUnauthorized         = errors.New("unauthorized user")
	ErrUserNotFound         = errors.New("user not found")
	ErrConfigNotFound       = errors.New("plugin config not found")
	ErrInvalidConfig        = errors.New("invalid plugin config")
	ErrUnexpectedStatus     = errors.New("unexpected status from facts API")
	ErrMissingFact          = errors.New("facts API response has no fact field")
	ErrChannelNotResolvable = errors.New("channel cannot be resolved")
	ErrPluginActive         = errors.New("plugin already active")
	ErrInvalidPeriod        = errors.New("poller period must be positive")
)
