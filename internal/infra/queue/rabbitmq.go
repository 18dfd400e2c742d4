package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tg-roster-bot/internal/domain"
	"tg-roster-bot/internal/infra/metrics"
)

// RabbitAnnounceQueue реализует очередь анонсов через AMQP.
type RabbitAnnounceQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewRabbitAnnounceQueue подключается к RabbitMQ и объявляет долговечную
// очередь.
func NewRabbitAnnounceQueue(amqpURL, queue string) (*RabbitAnnounceQueue, error) {
	conn, ch, err := dialRabbit(amqpURL, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitAnnounceQueue{conn: conn, ch: ch, queue: queue}, nil
}

func dialRabbit(amqpURL, queue string) (*amqp.Connection, *amqp.Channel, error) {
	if amqpURL == "" {
		return nil, nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	return conn, ch, nil
}

var _ domain.AnnounceQueue = (*RabbitAnnounceQueue)(nil)

// Enqueue публикует задачу в очередь.
func (q *RabbitAnnounceQueue) Enqueue(ctx context.Context, job domain.AnnounceJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. Подтверждение транслируется
// в ack либо nack с возвратом в очередь.
func (q *RabbitAnnounceQueue) Receive(ctx context.Context) (domain.AnnounceJob, domain.AnnounceAckFunc, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.AnnounceJob{}, nil, fmt.Errorf("consume: %w", err)
		}
		q.deliveries = deliveries
	}
	for {
		select {
		case <-ctx.Done():
			return domain.AnnounceJob{}, nil, ctx.Err()
		case d, ok := <-q.deliveries:
			if !ok {
				return domain.AnnounceJob{}, nil, errors.New("rabbitmq: канал доставки закрыт")
			}
			var job domain.AnnounceJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				// Нечитаемое сообщение: отбрасываем без возврата в очередь.
				_ = d.Nack(false, false)
				continue
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, true)
			}
			return job, ack, nil
		}
	}
}

// Close освобождает соединение.
func (q *RabbitAnnounceQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

// RabbitPollQueue реализует очередь публикации опросов через AMQP.
type RabbitPollQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewRabbitPollQueue подключается к RabbitMQ и объявляет долговечную
// очередь опросов.
func NewRabbitPollQueue(amqpURL, queue string) (*RabbitPollQueue, error) {
	conn, ch, err := dialRabbit(amqpURL, queue)
	if err != nil {
		return nil, err
	}
	return &RabbitPollQueue{conn: conn, ch: ch, queue: queue}, nil
}

var _ domain.PollQueue = (*RabbitPollQueue)(nil)

// Enqueue публикует задачу в очередь.
func (q *RabbitPollQueue) Enqueue(ctx context.Context, job domain.PollJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди.
func (q *RabbitPollQueue) Receive(ctx context.Context) (domain.PollJob, domain.AnnounceAckFunc, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.PollJob{}, nil, fmt.Errorf("consume: %w", err)
		}
		q.deliveries = deliveries
	}
	for {
		select {
		case <-ctx.Done():
			return domain.PollJob{}, nil, ctx.Err()
		case d, ok := <-q.deliveries:
			if !ok {
				return domain.PollJob{}, nil, errors.New("rabbitmq: канал доставки закрыт")
			}
			var job domain.PollJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				// Нечитаемое сообщение: отбрасываем без возврата в очередь.
				_ = d.Nack(false, false)
				continue
			}
			ack := func(success bool) error {
				if success {
					return d.Ack(false)
				}
				return d.Nack(false, true)
			}
			return job, ack, nil
		}
	}
}

// Close освобождает соединение.
func (q *RabbitPollQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
