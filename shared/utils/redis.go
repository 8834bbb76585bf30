package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge/shared/models"
)

var (
	// RedisClient is the shared connection used for bearer-token sessions
	RedisClient *redis.Client
	ctx         = context.Background()
)

// InitRedis initializes the Redis client from environment configuration
func InitRedis() error {
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		redisHost = "localhost"
	}

	redisPort := os.Getenv("REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}

	addr := fmt.Sprintf("%s:%s", redisHost, redisPort)

	RedisClient = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// CloseRedis closes the Redis connection
func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}

// tokenHash keys sessions by a SHA256 of the bearer token so the token
// itself is never stored
func tokenHash(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func sessionKey(accessToken string) string {
	return fmt.Sprintf("token:session:%s", tokenHash(accessToken))
}

// CreateTokenSession stores a new bearer-token session
func CreateTokenSession(accessToken string, profile models.UserProfile, ttl time.Duration) (*models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	now := time.Now()
	session := &models.TokenSession{
		UserProfile: profile,
		CreatedAt:   now,
		LastUsedAt:  now,
		ExpiresAt:   now.Add(ttl),
		SessionID:   uuid.New().String(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := RedisClient.Set(ctx, sessionKey(accessToken), data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return session, nil
}

// GetTokenSession loads the session for a bearer token, cleaning up expired
// entries on read
func GetTokenSession(accessToken string) (*models.TokenSession, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := sessionKey(accessToken)
	data, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session models.TokenSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.IsExpired() {
		RedisClient.Del(ctx, key)
		return nil, fmt.Errorf("session expired")
	}
	return &session, nil
}

// TouchTokenSession refreshes the session's last-used timestamp, keeping
// the remaining TTL intact
func TouchTokenSession(accessToken string) error {
	session, err := GetTokenSession(accessToken)
	if err != nil {
		return err
	}

	session.UpdateLastUsed()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal updated session: %w", err)
	}

	remaining := time.Until(session.ExpiresAt)
	if remaining <= 0 {
		return fmt.Errorf("session expired")
	}
	return RedisClient.Set(ctx, sessionKey(accessToken), data, remaining).Err()
}

// RevokeTokenSession removes the session for a bearer token
func RevokeTokenSession(accessToken string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := RedisClient.Del(ctx, sessionKey(accessToken)).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// RevokeAllUserSessions removes every session belonging to the user
func RevokeAllUserSessions(userID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	keys, err := RedisClient.Keys(ctx, "token:session:*").Result()
	if err != nil {
		return fmt.Errorf("failed to scan session keys: %w", err)
	}

	for _, key := range keys {
		data, err := RedisClient.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var session models.TokenSession
		if json.Unmarshal([]byte(data), &session) == nil && session.UserProfile.UserID == userID {
			RedisClient.Del(ctx, key)
		}
	}
	return nil
}
