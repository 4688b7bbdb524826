package service

import (
	"log/slog"
	"time"

	"github.com/reshetovitsme/catfacts-bot/internal/modules/user/domain"
	"github.com/reshetovitsme/catfacts-bot/internal/modules/user/repository"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service handles user business logic
type Service struct {
	repo repository.Repository
}

// New creates a new user service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// SaveUser saves a user
func (s *Service) SaveUser(user *domain.User) error {
	return s.repo.SaveUser(user)
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(userID int64) (*domain.User, error) {
	return s.repo.GetUser(userID)
}

// IsAdmin checks whether a user may run admin commands
func (s *Service) IsAdmin(userID int64, configuredAdmins []int64) bool {
	if lo.Contains(configuredAdmins, userID) {
		return true
	}
	user, err := s.repo.GetUser(userID)
	return err == nil && user.IsAdmin
}

// ClaimAdmin stores the user as admin when no admin is configured or persisted yet
func (s *Service) ClaimAdmin(userID int64, username string, configuredAdmins []int64) (bool, error) {
	if len(configuredAdmins) > 0 {
		return false, nil
	}

	users, err := s.repo.GetAllUsers()
	if err != nil {
		return false, oops.With("user_id", userID, "context", "failed to list users").Wrap(err)
	}
	if lo.ContainsBy(users, func(u *domain.User) bool { return u.IsAdmin }) {
		return false, nil
	}

	user := &domain.User{
		ID:       userID,
		Username: username,
		AddedAt:  time.Now(),
		IsAdmin:  true,
	}
	if err := s.repo.SaveUser(user); err != nil {
		return false, oops.With("user_id", userID, "context", "failed to save admin").Wrap(err)
	}

	slog.Info("First user registered as admin", "user_id", userID, "username", username)
	return true, nil
}
