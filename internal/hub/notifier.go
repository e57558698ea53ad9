package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storefront-labs/hubsync/internal/obs"
)

// Poster is the outbound call the Notifier drains into. *Client satisfies it.
type Poster interface {
	PostStock(ctx context.Context, n Notification) error
}

// Notifier is the fire-and-forget delivery pipeline: Dispatch enqueues
// without blocking and background senders drain the buffer. A send
// failure is logged and discarded; nothing is retried and no outcome is
// visible to the request that triggered the notification.
type Notifier struct {
	poster  Poster
	nodeID  string
	ch      chan Notification
	senders int

	enqueued atomic.Uint64
	sent     atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64

	closing atomic.Bool
	wg      sync.WaitGroup
}

// NewNotifier builds a Notifier with the given buffer size and sender count.
func NewNotifier(poster Poster, nodeID string, buffer, senders int) *Notifier {
	if buffer <= 0 {
		buffer = 128
	}
	if senders <= 0 {
		senders = 2
	}
	return &Notifier{
		poster:  poster,
		nodeID:  nodeID,
		ch:      make(chan Notification, buffer),
		senders: senders,
	}
}

// Start launches the background senders.
func (n *Notifier) Start(ctx context.Context) {
	for i := 0; i < n.senders; i++ {
		n.wg.Add(1)
		go n.sender(ctx)
	}
}

func (n *Notifier) sender(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notif, open := <-n.ch:
			if !open {
				return
			}
			n.deliver(ctx, notif)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, notif Notification) {
	if err := n.poster.PostStock(ctx, notif); err != nil {
		n.failed.Add(1)
		obs.RecordNotification(n.nodeID, obs.NotifyFailed)
		log.Warn().
			Err(err).
			Str("remote_id", notif.RemoteID).
			Int64("new_stock", notif.NewStock).
			Msg("stock notification failed")
		return
	}
	n.sent.Add(1)
	obs.RecordNotification(n.nodeID, obs.NotifySent)
	log.Info().
		Str("remote_id", notif.RemoteID).
		Int64("new_stock", notif.NewStock).
		Msg("stock notification sent")
}

// Dispatch enqueues a notification without blocking. It reports false when
// intake is closed or the buffer is saturated; the notification is then
// dropped, which is acceptable loss at this layer.
func (n *Notifier) Dispatch(notif Notification) bool {
	if n.closing.Load() {
		return false
	}
	select {
	case n.ch <- notif:
		n.enqueued.Add(1)
		return true
	default:
		n.dropped.Add(1)
		return false
	}
}

// CloseIntake disallows future dispatches.
func (n *Notifier) CloseIntake() {
	n.closing.Store(true)
}

// DrainUntil blocks until every enqueued notification has been attempted
// or the context is done.
func (n *Notifier) DrainUntil(ctx context.Context) bool {
	for {
		if n.Pending() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Pending returns notifications enqueued but not yet attempted.
func (n *Notifier) Pending() int {
	return len(n.ch)
}

// Metrics returns delivery counters for observability surfaces.
func (n *Notifier) Metrics() (enqueued, sent, failed, dropped uint64) {
	return n.enqueued.Load(), n.sent.Load(), n.failed.Load(), n.dropped.Load()
}
