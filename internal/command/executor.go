package command

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storefront-labs/hubsync/internal/catalog"
	"github.com/storefront-labs/hubsync/internal/obs"
)

// Command kinds handled by this node.
const (
	KindStockUpdate = "stock_update"
	KindProductSync = "product_sync"
	KindPriceSync   = "price_sync"
)

// productSyncFields is the closed set of fields product_sync may touch,
// in the order they are reported back.
var productSyncFields = []string{
	"regular_price",
	"sale_price",
	"description",
	"short_description",
	"weight",
}

// Handler applies one command payload and returns its structured result.
type Handler func(payload map[string]any) Result

// Executor dispatches inbound Hub commands to registered handlers.
// Each kind maps to at most one handler; unregistered kinds fall through
// to the pass-through result.
type Executor struct {
	store    *catalog.Store
	nodeID   string
	handlers map[string]Handler
}

// NewExecutor builds an Executor with the built-in catalog handlers
// registered.
func NewExecutor(store *catalog.Store, nodeID string) *Executor {
	e := &Executor{
		store:    store,
		nodeID:   nodeID,
		handlers: make(map[string]Handler),
	}
	e.Register(KindStockUpdate, e.stockUpdate)
	e.Register(KindProductSync, e.productSync)
	e.Register(KindPriceSync, e.priceSync)
	return e
}

// Register maps a command kind to a handler, replacing any previous one.
func (e *Executor) Register(kind string, h Handler) {
	e.handlers[kind] = h
}

// Execute runs the handler for kind, if any. Unknown kinds return the
// pass-through result rather than an error.
func (e *Executor) Execute(kind string, payload map[string]any) Result {
	h, known := e.handlers[kind]
	if !known {
		obs.RecordCommand(e.nodeID, kind, "ignored")
		return passThrough()
	}
	res := h(payload)
	switch res.Disposition {
	case Failed:
		obs.RecordCommand(e.nodeID, kind, "failed")
	default:
		obs.RecordCommand(e.nodeID, kind, "ok")
	}
	return res
}

// stockUpdate applies a Hub-issued stock quantity, forcing manage-stock on.
// The mutation runs under the store's mute scope so the resulting stock
// event is not echoed back to the Hub.
func (e *Executor) stockUpdate(payload map[string]any) Result {
	pid, okID := payloadInt64(payload, "product_id")
	if !okID || pid <= 0 {
		return fail(CodeValidation, "product id required")
	}
	p, found := e.store.Get(pid)
	if !found {
		return fail(CodeNotFound, fmt.Sprintf("product %d not found", pid))
	}
	newStock, _ := payloadInt64(payload, "new_stock")
	source, _ := payloadString(payload, "source_node_id")
	oldStock := p.Stock

	release := e.store.Mute(pid)
	defer release()
	if err := e.store.SetStock(pid, newStock); err != nil {
		return fail(CodeNotFound, err.Error())
	}
	if err := e.store.SetManageStock(pid, true); err != nil {
		return fail(CodeNotFound, err.Error())
	}
	if err := e.store.Save(pid); err != nil {
		return fail(CodeNotFound, err.Error())
	}

	log.Info().
		Int64("product_id", pid).
		Int64("old_stock", oldStock).
		Int64("new_stock", newStock).
		Str("source_node_id", source).
		Msg("stock updated by hub")

	return ok(map[string]any{
		"product_id": pid,
		"old_stock":  oldStock,
		"new_stock":  newStock,
		"name":       p.Name,
	})
}

// productSync applies the subset of whitelisted fields present in the
// payload. Absent fields are left untouched, never cleared.
func (e *Executor) productSync(payload map[string]any) Result {
	pid, okID := payloadInt64(payload, "product_id")
	if !okID || pid <= 0 {
		return fail(CodeValidation, "product id required")
	}
	fields, _ := payload["fields"].(map[string]any)
	if len(fields) == 0 {
		return fail(CodeValidation, "no fields to update")
	}
	if _, found := e.store.Get(pid); !found {
		return fail(CodeNotFound, fmt.Sprintf("product %d not found", pid))
	}

	updated := make([]string, 0, len(fields))
	for _, name := range productSyncFields {
		v, present := fields[name]
		if !present || v == nil {
			continue
		}
		if err := e.store.SetField(pid, name, coerceString(v)); err != nil {
			return fail(CodeNotFound, err.Error())
		}
		updated = append(updated, name)
	}
	if err := e.store.Save(pid); err != nil {
		return fail(CodeNotFound, err.Error())
	}

	log.Info().
		Int64("product_id", pid).
		Strs("updated", updated).
		Msg("product fields synced")

	return ok(map[string]any{
		"product_id": pid,
		"updated":    updated,
	})
}

// priceSync captures the prior value and applies the new one for each
// price field present in the payload; an absent field is skipped entirely.
func (e *Executor) priceSync(payload map[string]any) Result {
	pid, okID := payloadInt64(payload, "product_id")
	if !okID || pid <= 0 {
		return fail(CodeValidation, "product id required")
	}
	if _, found := e.store.Get(pid); !found {
		return fail(CodeNotFound, fmt.Sprintf("product %d not found", pid))
	}

	changes := make(map[string]any)
	for name, kind := range map[string]catalog.PriceKind{
		"regular_price": catalog.RegularPrice,
		"sale_price":    catalog.SalePrice,
	} {
		v, present := payload[name]
		if !present || v == nil {
			continue
		}
		from, err := e.store.GetPrice(pid, kind)
		if err != nil {
			return fail(CodeNotFound, err.Error())
		}
		to := coerceString(v)
		if err := e.store.SetPrice(pid, kind, to); err != nil {
			return fail(CodeNotFound, err.Error())
		}
		changes[name] = map[string]any{"from": from, "to": to}
	}
	if err := e.store.Save(pid); err != nil {
		return fail(CodeNotFound, err.Error())
	}

	log.Info().
		Int64("product_id", pid).
		Int("changed", len(changes)).
		Msg("prices synced")

	return ok(map[string]any{
		"product_id": pid,
		"changes":    changes,
	})
}
