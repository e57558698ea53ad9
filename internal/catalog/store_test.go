package catalog

import (
	"sync"
	"testing"

	"github.com/storefront-labs/hubsync/internal/model"
)

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.Put(model.Product{ID: 1, Name: "widget", Stock: 10, RegularPrice: "5.00"})
	return s
}

func TestPartialFieldUpdates(t *testing.T) {
	s := seed(t)
	if err := s.SetField(1, "description", "long"); err != nil {
		t.Fatalf("set description: %v", err)
	}
	if err := s.SetPrice(1, SalePrice, "4.20"); err != nil {
		t.Fatalf("set sale price: %v", err)
	}
	p, ok := s.Get(1)
	if !ok {
		t.Fatalf("not found")
	}
	if p.Description != "long" || p.SalePrice != "4.20" {
		t.Fatalf("unexpected: %+v", p)
	}
	if p.RegularPrice != "5.00" || p.Stock != 10 {
		t.Fatalf("untouched fields changed: %+v", p)
	}
}

func TestSetFieldUnknownName(t *testing.T) {
	s := seed(t)
	if err := s.SetField(1, "sku", "x"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestMissingProduct(t *testing.T) {
	s := New()
	if err := s.SetStock(9, 1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetStock(9); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(9); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveEmitsOnlyForStockMutations(t *testing.T) {
	s := seed(t)
	var events []model.StockEvent
	s.Subscribe("t", func(ev model.StockEvent) { events = append(events, ev) })

	if err := s.SetField(1, "description", "x"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if err := s.Save(1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("price/description save must not emit, got %d events", len(events))
	}

	if err := s.SetStock(1, 7); err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if err := s.Save(1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(events) != 1 || events[0].ProductID != 1 || events[0].NewStock != 7 {
		t.Fatalf("unexpected events: %+v", events)
	}

	// Saving again without touching stock must not replay the event.
	if err := s.Save(1); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("dirty flag not cleared, got %d events", len(events))
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := seed(t)
	n := 0
	s.Subscribe("t", func(model.StockEvent) { n++ })
	s.Unsubscribe("t")
	_ = s.SetStock(1, 3)
	_ = s.Save(1)
	if n != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", n)
	}
}

func TestMuteScopesPerProduct(t *testing.T) {
	s := seed(t)
	s.Put(model.Product{ID: 2, Name: "gadget", Stock: 1})
	var got []int64
	s.Subscribe("t", func(ev model.StockEvent) { got = append(got, ev.ProductID) })

	release := s.Mute(1)
	_ = s.SetStock(1, 99)
	_ = s.Save(1)
	// A different product keeps propagating while 1 is muted.
	_ = s.SetStock(2, 5)
	_ = s.Save(2)
	release()

	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only product 2 event, got %v", got)
	}

	// After release, product 1 propagates again.
	_ = s.SetStock(1, 100)
	_ = s.Save(1)
	if len(got) != 2 || got[1] != 1 {
		t.Fatalf("expected product 1 event after release, got %v", got)
	}
}

func TestMuteRefcounts(t *testing.T) {
	s := seed(t)
	n := 0
	s.Subscribe("t", func(model.StockEvent) { n++ })

	r1 := s.Mute(1)
	r2 := s.Mute(1)
	r1()
	_ = s.SetStock(1, 2)
	_ = s.Save(1)
	if n != 0 {
		t.Fatalf("still one holder, expected muted")
	}
	r2()
	_ = s.SetStock(1, 3)
	_ = s.Save(1)
	if n != 1 {
		t.Fatalf("expected delivery after both released, got %d", n)
	}
}

func TestMuteClearsDirtyFlag(t *testing.T) {
	s := seed(t)
	n := 0
	s.Subscribe("t", func(model.StockEvent) { n++ })

	release := s.Mute(1)
	_ = s.SetStock(1, 42)
	_ = s.Save(1)
	release()

	// The muted save consumed the dirty flag; an unrelated save later must
	// not replay the suppressed change.
	_ = s.SetField(1, "weight", "1kg")
	_ = s.Save(1)
	if n != 0 {
		t.Fatalf("muted change replayed, got %d events", n)
	}
}

func TestConcurrentSetStock(t *testing.T) {
	s := seed(t)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(v int64) {
			defer wg.Done()
			_ = s.SetStock(1, v)
			_ = s.Save(1)
		}(int64(i))
	}
	wg.Wait()
	if _, err := s.GetStock(1); err != nil {
		t.Fatalf("get stock: %v", err)
	}
}
