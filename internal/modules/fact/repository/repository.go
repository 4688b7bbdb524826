package repository

import (
	"github.com/reshetovitsme/catfacts-bot/internal/modules/fact/domain"
)

// Repository persists plugin configuration overrides across restarts
type Repository interface {
	SaveOverrides(pluginName string, overrides *domain.Overrides) error
	GetOverrides(pluginName string) (*domain.Overrides, error)
	DeleteOverrides(pluginName string) error
}
