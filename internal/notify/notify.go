package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/monitoring"
)

type Publisher interface {
	Publish(topic string, key string, value []byte) error
	Close() error
}

// Dispatcher fans notifications out to Kafka off the booking path. Notify
// never blocks and never returns an error: delivery is decoupled from the
// transaction that triggered it.
type Dispatcher struct {
	publisher Publisher
	topic     string
	logger    *logger.Logger

	queue chan models.Notification
	wg    sync.WaitGroup
	once  sync.Once
}

func NewDispatcher(publisher Publisher, topic string, buffer int, log *logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		publisher: publisher,
		topic:     topic,
		logger:    log,
		queue:     make(chan models.Notification, buffer),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify enqueues a notification for asynchronous delivery. A full buffer
// drops the notification rather than applying backpressure to booking.
func (d *Dispatcher) Notify(userID, notificationType string, metadata map[string]string) {
	n := models.Notification{
		UserID:    userID,
		Type:      notificationType,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	select {
	case d.queue <- n:
	default:
		monitoring.NotificationDropped()
		d.logger.Warn("NOTIFY", fmt.Sprintf("Dispatch buffer full, dropping %s for user %s", notificationType, userID))
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		payload, err := json.Marshal(n)
		if err != nil {
			d.logger.Error("NOTIFY", fmt.Sprintf("Failed to marshal notification: %v", err))
			continue
		}
		if err := d.publisher.Publish(d.topic, n.UserID, payload); err != nil {
			d.logger.Error("NOTIFY", fmt.Sprintf("Failed to publish %s for user %s: %v", n.Type, n.UserID, err))
		}
	}
}

// Close drains queued notifications and stops the worker.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
