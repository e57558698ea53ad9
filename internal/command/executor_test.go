package command

import (
	"testing"

	"github.com/storefront-labs/hubsync/internal/catalog"
	"github.com/storefront-labs/hubsync/internal/model"
)

func newFixture(t *testing.T) (*Executor, *catalog.Store) {
	t.Helper()
	st := catalog.New()
	st.Put(model.Product{ID: 42, Name: "anvil", Stock: 5, RegularPrice: "10.00", SalePrice: "8.00"})
	return NewExecutor(st, "N0"), st
}

func TestStockUpdate(t *testing.T) {
	ex, st := newFixture(t)
	res := ex.Execute(KindStockUpdate, map[string]any{
		"product_id":     float64(42),
		"new_stock":      float64(12),
		"source_node_id": "N1",
	})
	if res.Disposition != Handled {
		t.Fatalf("expected handled, got %+v", res)
	}
	if res.Fields["old_stock"] != int64(5) || res.Fields["new_stock"] != int64(12) {
		t.Fatalf("unexpected fields: %+v", res.Fields)
	}
	if res.Fields["name"] != "anvil" {
		t.Fatalf("expected product name in result")
	}
	p, _ := st.Get(42)
	if p.Stock != 12 || !p.ManageStock {
		t.Fatalf("expected stock 12 with manage stock forced on, got %+v", p)
	}
}

func TestStockUpdateIdempotentReapply(t *testing.T) {
	ex, _ := newFixture(t)
	first := ex.Execute(KindStockUpdate, map[string]any{"product_id": float64(42), "new_stock": float64(7)})
	if first.Disposition != Handled {
		t.Fatalf("first apply failed: %+v", first)
	}
	second := ex.Execute(KindStockUpdate, map[string]any{"product_id": float64(42), "new_stock": float64(7)})
	if second.Disposition != Handled {
		t.Fatalf("second apply failed: %+v", second)
	}
	if second.Fields["old_stock"] != int64(7) || second.Fields["new_stock"] != int64(7) {
		t.Fatalf("expected old == new == 7, got %+v", second.Fields)
	}
}

func TestStockUpdateEmitsNoEvents(t *testing.T) {
	ex, st := newFixture(t)
	events := 0
	st.Subscribe("watcher", func(model.StockEvent) { events++ })

	res := ex.Execute(KindStockUpdate, map[string]any{"product_id": float64(42), "new_stock": float64(7)})
	if res.Disposition != Handled {
		t.Fatalf("apply failed: %+v", res)
	}
	if events != 0 {
		t.Fatalf("hub-applied mutation must not echo, got %d events", events)
	}

	// The guard releases afterwards: a later local change propagates.
	_ = st.SetStock(42, 8)
	_ = st.Save(42)
	if events != 1 {
		t.Fatalf("expected later local change to propagate, got %d", events)
	}
}

func TestStockUpdateValidation(t *testing.T) {
	ex, st := newFixture(t)
	for _, payload := range []map[string]any{
		{},
		{"product_id": float64(0)},
		{"product_id": float64(-3)},
	} {
		res := ex.Execute(KindStockUpdate, payload)
		if res.Disposition != Failed || res.Code != CodeValidation {
			t.Fatalf("expected validation failure for %v, got %+v", payload, res)
		}
		if res.Err != "product id required" {
			t.Fatalf("unexpected message: %q", res.Err)
		}
	}
	p, _ := st.Get(42)
	if p.Stock != 5 {
		t.Fatalf("store mutated on validation failure: %+v", p)
	}
}

func TestStockUpdateNotFound(t *testing.T) {
	ex, _ := newFixture(t)
	res := ex.Execute(KindStockUpdate, map[string]any{"product_id": float64(9999), "new_stock": float64(1)})
	if res.Disposition != Failed || res.Code != CodeNotFound {
		t.Fatalf("expected not found, got %+v", res)
	}
}

func TestProductSyncSubset(t *testing.T) {
	ex, st := newFixture(t)
	res := ex.Execute(KindProductSync, map[string]any{
		"product_id": float64(42),
		"fields":     map[string]any{"regular_price": "19.99"},
	})
	if res.Disposition != Handled {
		t.Fatalf("sync failed: %+v", res)
	}
	updated, _ := res.Fields["updated"].([]string)
	if len(updated) != 1 || updated[0] != "regular_price" {
		t.Fatalf("expected exactly [regular_price], got %v", updated)
	}
	p, _ := st.Get(42)
	if p.RegularPrice != "19.99" {
		t.Fatalf("regular price not applied: %+v", p)
	}
	if p.SalePrice != "8.00" || p.Description != "" {
		t.Fatalf("absent fields must stay untouched: %+v", p)
	}
}

func TestProductSyncIgnoresUnknownFields(t *testing.T) {
	ex, _ := newFixture(t)
	res := ex.Execute(KindProductSync, map[string]any{
		"product_id": float64(42),
		"fields":     map[string]any{"weight": "2kg", "sku": "nope"},
	})
	if res.Disposition != Handled {
		t.Fatalf("sync failed: %+v", res)
	}
	updated, _ := res.Fields["updated"].([]string)
	if len(updated) != 1 || updated[0] != "weight" {
		t.Fatalf("expected only whitelisted fields, got %v", updated)
	}
}

func TestProductSyncValidation(t *testing.T) {
	ex, _ := newFixture(t)
	res := ex.Execute(KindProductSync, map[string]any{"product_id": float64(42)})
	if res.Disposition != Failed || res.Code != CodeValidation {
		t.Fatalf("expected validation failure for empty fields, got %+v", res)
	}
	res = ex.Execute(KindProductSync, map[string]any{"fields": map[string]any{"weight": "1"}})
	if res.Disposition != Failed || res.Code != CodeValidation {
		t.Fatalf("expected validation failure for missing id, got %+v", res)
	}
}

func TestPriceSyncPartial(t *testing.T) {
	ex, st := newFixture(t)
	res := ex.Execute(KindPriceSync, map[string]any{
		"product_id": float64(42),
		"sale_price": "9.99",
	})
	if res.Disposition != Handled {
		t.Fatalf("price sync failed: %+v", res)
	}
	changes, _ := res.Fields["changes"].(map[string]any)
	if len(changes) != 1 {
		t.Fatalf("expected only sale_price changed, got %v", changes)
	}
	ch, _ := changes["sale_price"].(map[string]any)
	if ch["from"] != "8.00" || ch["to"] != "9.99" {
		t.Fatalf("unexpected change record: %v", ch)
	}
	p, _ := st.Get(42)
	if p.RegularPrice != "10.00" {
		t.Fatalf("regular price must stay untouched: %+v", p)
	}
	if p.SalePrice != "9.99" {
		t.Fatalf("sale price not applied: %+v", p)
	}
}

func TestPriceSyncNumericPayload(t *testing.T) {
	ex, st := newFixture(t)
	res := ex.Execute(KindPriceSync, map[string]any{
		"product_id":    float64(42),
		"regular_price": 19.99,
	})
	if res.Disposition != Handled {
		t.Fatalf("price sync failed: %+v", res)
	}
	p, _ := st.Get(42)
	if p.RegularPrice != "19.99" {
		t.Fatalf("expected numeric payload coerced to 19.99, got %q", p.RegularPrice)
	}
}

func TestPriceSyncValidation(t *testing.T) {
	ex, _ := newFixture(t)
	res := ex.Execute(KindPriceSync, map[string]any{"sale_price": "1.00"})
	if res.Disposition != Failed || res.Code != CodeValidation {
		t.Fatalf("expected validation failure, got %+v", res)
	}
}

func TestUnknownKindPassesThrough(t *testing.T) {
	ex, _ := newFixture(t)
	res := ex.Execute("form_submission_export", map[string]any{"anything": true})
	if res.Disposition != PassThrough {
		t.Fatalf("expected pass-through, got %+v", res)
	}
	if res.Code != "" || res.Err != "" || len(res.Fields) != 0 {
		t.Fatalf("pass-through must be distinct from success and error: %+v", res)
	}
}

func TestRegisterCustomHandler(t *testing.T) {
	ex, _ := newFixture(t)
	ex.Register("ping", func(map[string]any) Result {
		return ok(map[string]any{"pong": true})
	})
	res := ex.Execute("ping", nil)
	if res.Disposition != Handled || res.Fields["pong"] != true {
		t.Fatalf("custom handler not dispatched: %+v", res)
	}
}

func TestPayloadCoercion(t *testing.T) {
	if v, ok := payloadInt64(map[string]any{"id": "42"}, "id"); !ok || v != 42 {
		t.Fatalf("string id not coerced: %d %v", v, ok)
	}
	if _, ok := payloadInt64(map[string]any{"id": nil}, "id"); ok {
		t.Fatalf("nil must read as absent")
	}
	if s := coerceString(7.5); s != "7.5" {
		t.Fatalf("unexpected float formatting: %q", s)
	}
}
