package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// retryHeader carries the number of failed deliveries of an AMQP message
const retryHeader = "x-retry-count"

// ErrQueueFull is returned by the in-memory queue when its buffer cannot take another job
var ErrQueueFull = errors.New("sync queue is full")

// SyncJobHandler processes one queued sync job. A returned error schedules a retry.
type SyncJobHandler func(ctx context.Context, jobID uint) error

// SyncQueue hands sync job IDs from the API to the background worker
type SyncQueue interface {
	Publish(ctx context.Context, jobID uint) error
	// Consume blocks, feeding jobs to handler, until ctx is done
	Consume(ctx context.Context, handler SyncJobHandler) error
	Close() error
}

type syncMessage struct {
	SyncJobID uint `json:"sync_job_id"`
}

// retryBackoff grows linearly with the attempt number
func retryBackoff(attempt int) time.Duration {
	return time.Duration(attempt*500) * time.Millisecond
}

// waitBackoff sleeps for d and reports false when ctx ends first
func waitBackoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// InMemorySyncQueue is a buffered channel with per-job retries, for single-process deployments
type InMemorySyncQueue struct {
	jobs       chan uint
	maxRetries int
	workers    int
	logger     *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewInMemorySyncQueue creates a queue holding up to size pending jobs
func NewInMemorySyncQueue(size, workers, maxRetries int, logger *zap.Logger) *InMemorySyncQueue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemorySyncQueue{
		jobs:       make(chan uint, size),
		maxRetries: maxRetries,
		workers:    workers,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (q *InMemorySyncQueue) Publish(ctx context.Context, jobID uint) error {
	select {
	case <-q.done:
		return fmt.Errorf("publish sync job %d: queue closed", jobID)
	default:
	}

	select {
	case q.jobs <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *InMemorySyncQueue) Consume(ctx context.Context, handler SyncJobHandler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case jobID := <-q.jobs:
					q.process(ctx, handler, jobID)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (q *InMemorySyncQueue) process(ctx context.Context, handler SyncJobHandler, jobID uint) {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, jobID)
		if err == nil {
			return
		}
		if attempt >= q.maxRetries {
			q.logger.Error("Sync job permanently failed in queue",
				zap.Uint("sync_job_id", jobID), zap.Int("attempts", attempt+1), zap.Error(err))
			return
		}
		q.logger.Warn("Sync job failed, retrying",
			zap.Uint("sync_job_id", jobID), zap.Int("attempt", attempt+1), zap.Error(err))

		if !waitBackoff(ctx, retryBackoff(attempt+1)) {
			return
		}
	}
}

// Close stops consumers; jobs still buffered are dropped and picked up again by the pending-job poller
func (q *InMemorySyncQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

// AMQPSyncQueue stores job IDs in a durable RabbitMQ queue with manual acknowledgement
type AMQPSyncQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	maxRetries int
	logger     *zap.Logger

	pubMu sync.Mutex
}

// NewAMQPSyncQueue dials the broker and declares the durable queue
func NewAMQPSyncQueue(url, queue string, prefetch, maxRetries int, logger *zap.Logger) (*AMQPSyncQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	return &AMQPSyncQueue{
		conn:       conn,
		ch:         ch,
		queue:      queue,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (q *AMQPSyncQueue) Publish(ctx context.Context, jobID uint) error {
	return q.publish(ctx, jobID, 0)
}

func (q *AMQPSyncQueue) publish(ctx context.Context, jobID uint, retries int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(syncMessage{SyncJobID: jobID})
	if err != nil {
		return err
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	return q.ch.Publish("", q.queue, false, false, amqp.Publishing{
		Headers:      amqp.Table{retryHeader: int32(retries)},
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (q *AMQPSyncQueue) Consume(ctx context.Context, handler SyncJobHandler) error {
	const consumerTag = "dash-sync-worker"

	msgs, err := q.ch.Consume(
		q.queue,
		consumerTag,
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	defer func() { _ = q.ch.Cancel(consumerTag, false) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("AMQP delivery channel closed")
			}
			q.handle(ctx, handler, d)
		}
	}
}

func (q *AMQPSyncQueue) handle(ctx context.Context, handler SyncJobHandler, d amqp.Delivery) {
	var msg syncMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.SyncJobID == 0 {
		q.logger.Warn("Discarding invalid sync message", zap.ByteString("body", d.Body))
		_ = d.Ack(false)
		return
	}

	err := handler(ctx, msg.SyncJobID)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	if retries >= q.maxRetries {
		q.logger.Error("Sync job permanently failed in queue",
			zap.Uint("sync_job_id", msg.SyncJobID), zap.Int("retries", retries), zap.Error(err))
		_ = d.Ack(false)
		return
	}

	// requeueing with Nack would keep the header unchanged, so publish a copy with the count bumped
	if !waitBackoff(ctx, retryBackoff(retries+1)) {
		// shutting down; the broker redelivers it to the next consumer
		_ = d.Nack(false, true)
		return
	}
	if perr := q.publish(ctx, msg.SyncJobID, retries+1); perr != nil {
		q.logger.Error("Failed to requeue sync job", zap.Uint("sync_job_id", msg.SyncJobID), zap.Error(perr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (q *AMQPSyncQueue) Close() error {
	var errs []error
	if q.ch != nil {
		errs = append(errs, q.ch.Close())
	}
	if q.conn != nil {
		errs = append(errs, q.conn.Close())
	}
	return errors.Join(errs...)
}

func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
