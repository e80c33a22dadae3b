package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/skillsvault/backend/internal/models"
)

const channelPrefix = "skillsvault:notifications:"

// Event is the JSON document published for each stored message.
type Event struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

// Channel is the per-user pub/sub channel name.
func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// RedisPublisher publishes events on per-user Redis channels.
type RedisPublisher struct {
	client goredis.UniversalClient
}

func NewRedisPublisher(client goredis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(userID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}
