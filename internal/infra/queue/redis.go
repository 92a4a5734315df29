package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Serrao06/news-aggregator/internal/domain"
)

// RedisFetchQueue реализует очередь задач загрузки на базе Redis lists.
// Используется как запасной вариант, когда RabbitMQ не настроен.
type RedisFetchQueue struct {
	client *redis.Client
	key    string
}

// NewRedisFetchQueue создаёт очередь по указанному ключу.
func NewRedisFetchQueue(client *redis.Client, key string) *RedisFetchQueue {
	return &RedisFetchQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisFetchQueue) Enqueue(ctx context.Context, job domain.FetchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. Подтверждение с success=false
// возвращает задачу в очередь; надёжность на уровне AMQP здесь не гарантируется.
func (q *RedisFetchQueue) Receive(ctx context.Context) (domain.FetchJob, domain.FetchAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FetchJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.FetchJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.FetchJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.FetchJob{}, nil, errors.New("redis queue: unexpected response")
		}
		payload := []byte(res[1])
		var job domain.FetchJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return domain.FetchJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.client.LPush(context.Background(), q.key, payload).Err()
		}
		return job, ack, nil
	}
}
