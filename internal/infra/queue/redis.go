package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
)

// RedisAnnounceQueue реализует очередь анонсов на базе Redis lists.
type RedisAnnounceQueue struct {
	client *redis.Client
	key    string
}

// NewRedisAnnounceQueue создаёт очередь по указанному ключу.
func NewRedisAnnounceQueue(client *redis.Client, key string) *RedisAnnounceQueue {
	return &RedisAnnounceQueue{client: client, key: key}
}

var _ domain.AnnounceQueue = (*RedisAnnounceQueue)(nil)

// Enqueue публикует задачу в очередь.
func (q *RedisAnnounceQueue) Enqueue(ctx context.Context, job domain.AnnounceJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. Подтверждение с success ==
// false возвращает задачу в очередь.
func (q *RedisAnnounceQueue) Receive(ctx context.Context) (domain.AnnounceJob, domain.AnnounceAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.AnnounceJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.AnnounceJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.AnnounceJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.AnnounceJob{}, nil, errors.New("redis queue: unexpected response")
		}
		var job domain.AnnounceJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.AnnounceJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.Enqueue(context.Background(), job)
		}
		return job, ack, nil
	}
}

// RedisPollQueue реализует очередь публикации опросов на базе Redis lists.
type RedisPollQueue struct {
	client *redis.Client
	key    string
}

// NewRedisPollQueue создаёт очередь опросов по указанному ключу.
func NewRedisPollQueue(client *redis.Client, key string) *RedisPollQueue {
	return &RedisPollQueue{client: client, key: key}
}

var _ domain.PollQueue = (*RedisPollQueue)(nil)

// Enqueue публикует задачу в очередь.
func (q *RedisPollQueue) Enqueue(ctx context.Context, job domain.PollJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RedisPollQueue) Receive(ctx context.Context) (domain.PollJob, domain.AnnounceAckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.PollJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.PollJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.PollJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.PollJob{}, nil, errors.New("redis queue: unexpected response")
		}
		var job domain.PollJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.PollJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			return q.Enqueue(context.Background(), job)
		}
		return job, ack, nil
	}
}
