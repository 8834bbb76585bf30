package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentbridge/talentbridge/shared/models"
)

func setupRedis(t *testing.T) {
	t.Helper()

	mr := miniredis.RunT(t)
	RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		RedisClient.Close()
		RedisClient = nil
	})
}

func profile(userID string) models.UserProfile {
	return models.UserProfile{
		UserID: userID,
		Email:  userID + "@example.com",
		Memberships: []models.TenantUser{{
			UserID:          userID,
			TenantID:        uuid.New(),
			Role:            models.RoleClientUser,
			IsActive:        true,
			PermissionScope: models.ScopeOwn,
		}},
	}
}

func TestTokenSessionRoundTrip(t *testing.T) {
	setupRedis(t)

	created, err := CreateTokenSession("bearer-token-1", profile("user-1"), time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, created.SessionID)

	loaded, err := GetTokenSession("bearer-token-1")
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, loaded.SessionID)
	assert.Equal(t, "user-1", loaded.UserProfile.UserID)
	require.Len(t, loaded.UserProfile.Memberships, 1)
}

func TestGetTokenSessionUnknownToken(t *testing.T) {
	setupRedis(t)

	_, err := GetTokenSession("never-issued")
	assert.Error(t, err)
}

func TestRevokeTokenSession(t *testing.T) {
	setupRedis(t)

	_, err := CreateTokenSession("bearer-token-2", profile("user-2"), time.Hour)
	require.NoError(t, err)

	require.NoError(t, RevokeTokenSession("bearer-token-2"))

	_, err = GetTokenSession("bearer-token-2")
	assert.Error(t, err)
}

func TestRevokeAllUserSessions(t *testing.T) {
	setupRedis(t)

	_, err := CreateTokenSession("token-a", profile("user-3"), time.Hour)
	require.NoError(t, err)
	_, err = CreateTokenSession("token-b", profile("user-3"), time.Hour)
	require.NoError(t, err)
	_, err = CreateTokenSession("token-c", profile("other"), time.Hour)
	require.NoError(t, err)

	require.NoError(t, RevokeAllUserSessions("user-3"))

	_, err = GetTokenSession("token-a")
	assert.Error(t, err)
	_, err = GetTokenSession("token-b")
	assert.Error(t, err)

	_, err = GetTokenSession("token-c")
	assert.NoError(t, err, "other users' sessions survive")
}

func TestTouchTokenSessionUpdatesLastUsed(t *testing.T) {
	setupRedis(t)

	created, err := CreateTokenSession("token-touch", profile("user-4"), time.Hour)
	require.NoError(t, err)

	require.NoError(t, TouchTokenSession("token-touch"))

	loaded, err := GetTokenSession("token-touch")
	require.NoError(t, err)
	assert.False(t, loaded.LastUsedAt.Before(created.LastUsedAt))
}
