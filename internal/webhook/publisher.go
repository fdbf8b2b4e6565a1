package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_relay_system/internal/service"
)

const eventQueueKey = "incident_events"

// RedisEventPublisher - реализация service.EventPublisher, складывающая
// события жизненного цикла в очередь Redis для доставки вебхуком
type RedisEventPublisher struct {
	redisClient *redis.Client
}

// NewRedisEventPublisher создает новый RedisEventPublisher
func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{
		redisClient: client,
	}
}

// Publish публикует событие жизненного цикла в очередь Redis
func (p *RedisEventPublisher) Publish(ctx context.Context, event service.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	// Используем LPUSH для добавления события в левую часть списка (очереди)
	if err := p.redisClient.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish lifecycle event to Redis: %w", err)
	}
	return nil
}
