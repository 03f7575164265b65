package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/recicar/marketplace-backend/pkg/enums"
	"github.com/recicar/marketplace-backend/pkg/logger"
)

// Message is one notification to deliver. Fields carries template data.
type Message struct {
	Kind      enums.NotificationKind
	Recipient string
	Subject   string
	Fields    map[string]string
}

// Sender delivers one message. Implementations must be safe for concurrent
// use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher fans messages out to the sender from a bounded queue. Enqueue
// never blocks request handling: when the queue is full the message is
// dropped and logged.
type Dispatcher struct {
	queue  chan Message
	sender Sender
	logg   *logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher builds a dispatcher with the given queue capacity.
func NewDispatcher(sender Sender, logg *logger.Logger, queueSize int) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		queue:  make(chan Message, queueSize),
		sender: sender,
		logg:   logg,
	}, nil
}

// Start launches the delivery worker. Call Stop to drain and shut down.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for msg := range d.queue {
			ctx := d.logg.WithFields(context.Background(), map[string]any{
				"kind":      msg.Kind.String(),
				"recipient": msg.Recipient,
			})
			if err := d.sender.Send(ctx, msg); err != nil {
				d.logg.Error(ctx, "notification delivery failed", err)
			}
		}
	}()
}

// Enqueue hands a message to the worker without blocking. Returns false when
// the queue was full and the message was dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		ctx = d.logg.WithFields(ctx, map[string]any{
			"kind":      msg.Kind.String(),
			"recipient": msg.Recipient,
		})
		d.logg.Warn(ctx, "notification queue full, dropping message")
		return false
	}
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
