package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// subscriberBuffer is how many undelivered notifications a slow subscriber may hold before drops start
const subscriberBuffer = 16

// ErrHubClosed is returned when publishing to a hub that was shut down
var ErrHubClosed = errors.New("notification hub closed")

// NotificationService fans freshly stored notifications out to live subscribers of a workspace
type NotificationService interface {
	Publish(ctx context.Context, n *models.Notification) error
	Subscribe(workspaceID, userID uint) (<-chan *models.Notification, func())
	Run(ctx context.Context) error
	Close()
}

type subscriber struct {
	userID uint
	ch     chan *models.Notification
}

// NotificationServiceImpl keeps subscribers in process memory.
// With a Redis client every publish goes through a pub/sub channel so that all replicas deliver it.
type NotificationServiceImpl struct {
	rc     *redis.Client
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[uint]map[*subscriber]struct{}
	closed bool
}

// NewNotificationService creates a notification hub; rc may be nil for a single-process deployment
func NewNotificationService(rc *redis.Client, logger *zap.Logger) *NotificationServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationServiceImpl{
		rc:     rc,
		logger: logger,
		subs:   make(map[uint]map[*subscriber]struct{}),
	}
}

// Subscribe registers a listener for the workspace. The returned func unsubscribes and closes the channel.
func (s *NotificationServiceImpl) Subscribe(workspaceID, userID uint) (<-chan *models.Notification, func()) {
	sub := &subscriber{userID: userID, ch: make(chan *models.Notification, subscriberBuffer)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if s.subs[workspaceID] == nil {
		s.subs[workspaceID] = make(map[*subscriber]struct{})
	}
	s.subs[workspaceID][sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			set, ok := s.subs[workspaceID]
			if !ok {
				return
			}
			if _, ok := set[sub]; !ok {
				return
			}
			delete(set, sub)
			if len(set) == 0 {
				delete(s.subs, workspaceID)
			}
			close(sub.ch)
		})
	}
}

// Publish delivers n to every subscriber of its workspace that may see it
func (s *NotificationServiceImpl) Publish(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return nil
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	if s.rc == nil {
		s.dispatch(n)
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.rc.Publish(ctx, channelName(n.WorkspaceID), payload).Err()
}

// Run bridges the Redis channels into local subscribers until ctx is done. Without Redis it just waits.
func (s *NotificationServiceImpl) Run(ctx context.Context) error {
	if s.rc == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := s.rc.PSubscribe(ctx, utils.NotificationChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				s.logger.Warn("Dropping malformed notification payload",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if ws, ok := workspaceFromChannel(msg.Channel); ok && ws != n.WorkspaceID {
				continue
			}
			s.dispatch(&n)
		}
	}
}

// Close closes every subscriber channel; later publishes fail with ErrHubClosed
func (s *NotificationServiceImpl) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ws, set := range s.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(s.subs, ws)
	}
}

// SubscriberCount returns the number of live subscribers of a workspace
func (s *NotificationServiceImpl) SubscriberCount(workspaceID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[workspaceID])
}

func (s *NotificationServiceImpl) dispatch(n *models.Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs[n.WorkspaceID] {
		if !n.VisibleTo(sub.userID) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			s.logger.Warn("Notification subscriber is full, dropping message",
				zap.Uint("workspace_id", n.WorkspaceID),
				zap.Uint("user_id", sub.userID),
				zap.String("notification_uuid", n.UUID.String()))
		}
	}
}

func channelName(workspaceID uint) string {
	return utils.NotificationChannelPrefix + strconv.FormatUint(uint64(workspaceID), 10)
}

func workspaceFromChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, utils.NotificationChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
