package services

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newNotification(workspaceID uint, userID *uint) *models.Notification {
	return &models.Notification{
		UUID:        uuid.New(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Title:       "Sync finished",
		Message:     "Metrics are up to date",
	}
}

func receive(t *testing.T, ch <-chan *models.Notification) *models.Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
		return nil
	}
}

func assertEmpty(t *testing.T, ch <-chan *models.Notification) {
	t.Helper()
	select {
	case n := <-ch:
		t.Fatalf("unexpected notification %v", n.UUID)
	default:
	}
}

func TestNotificationServiceFanOut(t *testing.T) {
	hub := NewNotificationService(nil, nil)
	ctx := context.Background()

	alice, unsubAlice := hub.Subscribe(1, 10)
	defer unsubAlice()
	bob, unsubBob := hub.Subscribe(1, 11)
	defer unsubBob()
	other, unsubOther := hub.Subscribe(2, 12)
	defer unsubOther()

	t.Run("broadcast reaches every member of the workspace", func(t *testing.T) {
		n := newNotification(1, nil)
		require.NoError(t, hub.Publish(ctx, n))
		assert.Equal(t, n.UUID, receive(t, alice).UUID)
		assert.Equal(t, n.UUID, receive(t, bob).UUID)
		assertEmpty(t, other)
	})

	t.Run("addressed notification reaches only its user", func(t *testing.T) {
		n := newNotification(1, utils.ToPtr(uint(11)))
		require.NoError(t, hub.Publish(ctx, n))
		assert.Equal(t, n.UUID, receive(t, bob).UUID)
		assertEmpty(t, alice)
	})

	assert.NoError(t, hub.Publish(ctx, nil))
}

func TestNotificationServiceSlowSubscriberDrops(t *testing.T) {
	hub := NewNotificationService(nil, nil)
	ch, unsub := hub.Subscribe(1, 1)
	defer unsub()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, hub.Publish(context.Background(), newNotification(1, nil)))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestNotificationServiceUnsubscribe(t *testing.T) {
	hub := NewNotificationService(nil, nil)

	ch, unsub := hub.Subscribe(3, 1)
	assert.Equal(t, 1, hub.SubscriberCount(3))

	unsub()
	unsub()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount(3))
}

func TestNotificationServiceClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewNotificationService(nil, nil)
	ch, unsub := hub.Subscribe(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- hub.Run(ctx) }()

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	unsub()

	assert.ErrorIs(t, hub.Publish(context.Background(), newNotification(1, nil)), ErrHubClosed)

	late, _ := hub.Subscribe(1, 1)
	_, open = <-late
	assert.False(t, open)

	cancel()
	assert.NoError(t, <-runDone)
}

func TestWorkspaceFromChannel(t *testing.T) {
	ws, ok := workspaceFromChannel(channelName(42))
	assert.True(t, ok)
	assert.Equal(t, uint(42), ws)

	_, ok = workspaceFromChannel("other:42")
	assert.False(t, ok)
	_, ok = workspaceFromChannel(utils.NotificationChannelPrefix + "abc")
	assert.False(t, ok)
}
