package propagate

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/storefront-labs/hubsync/internal/catalog"
	"github.com/storefront-labs/hubsync/internal/config"
	"github.com/storefront-labs/hubsync/internal/hub"
	"github.com/storefront-labs/hubsync/internal/model"
	"github.com/storefront-labs/hubsync/internal/obs"
)

// ObserverID is the identity this propagator subscribes under.
const ObserverID = "hub-propagator"

// Sender hands a notification off for asynchronous delivery. It must not
// block; the triggering request never waits on the Hub.
type Sender interface {
	Dispatch(n hub.Notification) bool
}

// Propagator forwards locally observed stock mutations to the Hub,
// consulting the debounce cache to suppress unchanged values.
type Propagator struct {
	nodeID        string
	hubConfigured bool
	staging       bool
	cache         *DebounceCache
	sender        Sender
}

// New builds a Propagator from the agent configuration.
func New(cfg config.Config, cache *DebounceCache, sender Sender) *Propagator {
	return &Propagator{
		nodeID:        cfg.NodeID,
		hubConfigured: cfg.HubConfigured(),
		staging:       cfg.Staging,
		cache:         cache,
		sender:        sender,
	}
}

// Attach subscribes the propagator to the store's stock mutation events.
func (p *Propagator) Attach(st *catalog.Store) {
	st.Subscribe(ObserverID, p.OnStockChange)
}

// Detach removes the propagator's subscription.
func (p *Propagator) Detach(st *catalog.Store) {
	st.Unsubscribe(ObserverID)
}

// OnStockChange is invoked synchronously for every stock mutation event,
// regardless of origin. A dropped or failed notification is not retried:
// stock events are frequent and superseded by the next natural change,
// and the catalog store remains the source of truth.
func (p *Propagator) OnStockChange(ev model.StockEvent) {
	if !p.hubConfigured || p.staging {
		obs.RecordNotification(p.nodeID, obs.NotifySkipped)
		return
	}
	key := StockKey(ev.ProductID)
	if !p.cache.ShouldSend(key, ev.NewStock) {
		obs.RecordNotification(p.nodeID, obs.NotifySuppressed)
		log.Debug().
			Int64("product_id", ev.ProductID).
			Int64("stock", ev.NewStock).
			Msg("stock notification suppressed")
		return
	}
	n := hub.Notification{
		TenantID: p.nodeID,
		RemoteID: strconv.FormatInt(ev.ProductID, 10),
		NewStock: ev.NewStock,
	}
	if !p.sender.Dispatch(n) {
		obs.RecordNotification(p.nodeID, obs.NotifyDropped)
		log.Warn().
			Int64("product_id", ev.ProductID).
			Msg("stock notification dropped")
	}
}
