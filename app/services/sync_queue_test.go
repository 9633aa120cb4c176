package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestInMemorySyncQueueDeliversJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewInMemorySyncQueue(8, 2, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	got := map[uint]bool{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Consume(ctx, func(_ context.Context, jobID uint) error {
			mu.Lock()
			got[jobID] = true
			mu.Unlock()
			return nil
		})
	}()

	for id := uint(1); id <= 5; id++ {
		require.NoError(t, q.Publish(ctx, id))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	require.NoError(t, q.Close())
}

func TestInMemorySyncQueueRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewInMemorySyncQueue(4, 1, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	succeeded := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Consume(ctx, func(_ context.Context, _ uint) error {
			if calls.Add(1) < 2 {
				return errors.New("transient")
			}
			close(succeeded)
			return nil
		})
	}()

	require.NoError(t, q.Publish(ctx, 42))

	select {
	case <-succeeded:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(2), calls.Load())

	cancel()
	<-done
}

func TestInMemorySyncQueueGivesUp(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewInMemorySyncQueue(4, 1, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Consume(ctx, func(_ context.Context, _ uint) error {
			calls.Add(1)
			return errors.New("permanent")
		})
	}()

	require.NoError(t, q.Publish(ctx, 1))
	require.NoError(t, q.Publish(ctx, 2))

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	// no retries with maxRetries 0
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())

	cancel()
	<-done
}

func TestInMemorySyncQueueFullAndClosed(t *testing.T) {
	q := NewInMemorySyncQueue(1, 1, 0, nil)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, 1))
	assert.ErrorIs(t, q.Publish(ctx, 2), ErrQueueFull)

	require.NoError(t, q.Close())
	assert.Error(t, q.Publish(ctx, 3))
	// Consume returns immediately once closed
	assert.NoError(t, q.Consume(ctx, func(context.Context, uint) error { return nil }))
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "x"}))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryHeader: int64(3)}))
	assert.Equal(t, 1500*time.Millisecond, retryBackoff(3))
}

type recordingAck struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (a *recordingAck) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked++
	return nil
}

func (a *recordingAck) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *recordingAck) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func TestAMQPHandleStopsBackoffOnShutdown(t *testing.T) {
	q := &AMQPSyncQueue{queue: "sync_jobs", maxRetries: 3, logger: zap.NewNop()}
	ack := &recordingAck{}
	d := amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Headers:      amqp.Table{retryHeader: int32(2)},
		Body:         []byte(`{"sync_job_id":42}`),
	}

	ctx, cancel := context.WithCancel(context.Background())
	handler := func(ctx context.Context, jobID uint) error {
		assert.Equal(t, uint(42), jobID)
		cancel()
		return errors.New("database unavailable")
	}

	start := time.Now()
	q.handle(ctx, handler, d)

	// the third retry would wait 1.5s
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
	assert.Zero(t, ack.acked)
}

func TestWaitBackoff(t *testing.T) {
	assert.True(t, waitBackoff(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, waitBackoff(ctx, time.Hour))
}
