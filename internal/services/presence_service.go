package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"skillswap-service/internal/database"
)

const onlineUsersKey = "online_users"

// PresenceService mirrors the hub's in-memory presence into Redis so the
// REST layer (and future fan-out processes) can answer liveness queries.
// The hub's registry stays authoritative for invite decisions.
type PresenceService struct {
	client *database.RedisClient
}

func NewPresenceService(client *database.RedisClient) *PresenceService {
	return &PresenceService{client: client}
}

func (p *PresenceService) SetUserOnline(ctx context.Context, userID string) error {
	pipe := p.client.GetClient().Pipeline()

	pipe.SAdd(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user online", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (p *PresenceService) SetUserOffline(ctx context.Context, userID string) error {
	pipe := p.client.GetClient().Pipeline()

	pipe.SRem(ctx, onlineUsersKey, userID)
	pipe.HSet(ctx, fmt.Sprintf("user:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("user:%s:status", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to set user offline", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (p *PresenceService) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	return p.client.GetClient().SIsMember(ctx, onlineUsersKey, userID).Result()
}

func (p *PresenceService) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return p.client.GetClient().SMembers(ctx, onlineUsersKey).Result()
}
