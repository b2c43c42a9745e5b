package notify_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/notify"
)

type capturePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	topics   []string
	keys     []string
}

func (p *capturePublisher) Publish(topic string, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, value)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestNotifyDeliversToPublisher(t *testing.T) {
	publisher := &capturePublisher{}
	dispatcher := notify.NewDispatcher(publisher, "booking.notifications", 8, logger.NewNop())

	dispatcher.Notify("user-1", models.NotificationOrderCreated, map[string]string{"order_id": "order-1"})
	dispatcher.Close()

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, "booking.notifications", publisher.topics[0])
	assert.Equal(t, "user-1", publisher.keys[0])

	var n models.Notification
	require.NoError(t, json.Unmarshal(publisher.messages[0], &n))
	assert.Equal(t, models.NotificationOrderCreated, n.Type)
	assert.Equal(t, "order-1", n.Metadata["order_id"])
}

func TestNotifyNeverBlocks(t *testing.T) {
	publisher := &capturePublisher{}
	dispatcher := notify.NewDispatcher(publisher, "booking.notifications", 1, logger.NewNop())

	// Far more than the buffer holds; Notify must still return immediately.
	for i := 0; i < 100; i++ {
		dispatcher.Notify("user-1", models.NotificationTicketUsed, nil)
	}
	dispatcher.Close()

	publisher.mu.Lock()
	delivered := len(publisher.messages)
	publisher.mu.Unlock()
	assert.Greater(t, delivered, 0)
	assert.LessOrEqual(t, delivered, 100)
}

func TestCloseDrainsQueue(t *testing.T) {
	publisher := &capturePublisher{}
	dispatcher := notify.NewDispatcher(publisher, "booking.notifications", 16, logger.NewNop())

	for i := 0; i < 5; i++ {
		dispatcher.Notify("user-1", models.NotificationOrderCompleted, nil)
	}
	dispatcher.Close()

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Len(t, publisher.messages, 5)
}
