package service

import (
	"testing"

	"github.com/reshetovitsme/catfacts-bot/internal/modules/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return New(repo)
}

func TestIsAdminConfigured(t *testing.T) {
	s := newService(t)
	assert.True(t, s.IsAdmin(42, []int64{1, 42}))
	assert.False(t, s.IsAdmin(7, []int64{1, 42}))
}

func TestClaimAdmin(t *testing.T) {
	s := newService(t)

	claimed, err := s.ClaimAdmin(42, "first", nil)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, s.IsAdmin(42, nil))

	claimed, err = s.ClaimAdmin(43, "second", nil)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.False(t, s.IsAdmin(43, nil))

	user, err := s.GetUser(42)
	require.NoError(t, err)
	assert.Equal(t, "first", user.Username)
}

func TestClaimAdminWithConfiguredAdmins(t *testing.T) {
	s := newService(t)

	claimed, err := s.ClaimAdmin(42, "first", []int64{1})
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.False(t, s.IsAdmin(42, []int64{1}))
}
