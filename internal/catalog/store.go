// Package catalog adapts the local catalog store for the sync agent.
//
// The store owns product records, exposes field-level mutators, and emits
// a stock mutation event on Save to every subscribed observer. Observers
// can be muted per product for the span of one command application so a
// Hub-applied mutation is never echoed back as a local change.
package catalog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/storefront-labs/hubsync/internal/model"
)

// ErrNotFound is returned when a referenced product is absent.
var ErrNotFound = errors.New("product not found")

// PriceKind selects which price field a price mutation targets.
type PriceKind string

const (
	RegularPrice PriceKind = "regular_price"
	SalePrice    PriceKind = "sale_price"
)

// Observer receives stock mutation events emitted by Save.
type Observer func(model.StockEvent)

type productState struct {
	p          model.Product
	stockDirty bool
}

// Store is an in-memory catalog store with mutation observation.
type Store struct {
	mu sync.RWMutex
	m  map[int64]productState

	obsMu     sync.RWMutex
	observers map[string]Observer
	muted     map[int64]int
}

func New() *Store {
	return &Store{
		m:         make(map[int64]productState),
		observers: make(map[string]Observer),
		muted:     make(map[int64]int),
	}
}

// Get returns the product with the given id.
func (s *Store) Get(id int64) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[id]
	if !ok {
		return model.Product{}, false
	}
	return st.p, true
}

// Put creates or replaces a product record. Put does not emit events;
// it is the seeding path, not a synchronized mutation.
func (s *Store) Put(p model.Product) {
	if p.ID <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = productState{p: p}
}

// SetStock updates the stock quantity and marks the product's stock as
// touched so the next Save emits a stock event.
func (s *Store) SetStock(id, qty int64) error {
	return s.mutate(id, func(st *productState) {
		st.p.Stock = qty
		st.stockDirty = true
	})
}

// SetManageStock updates the manage-stock flag.
func (s *Store) SetManageStock(id int64, manage bool) error {
	return s.mutate(id, func(st *productState) {
		st.p.ManageStock = manage
	})
}

// SetPrice updates one of the two price fields.
func (s *Store) SetPrice(id int64, kind PriceKind, value string) error {
	return s.mutate(id, func(st *productState) {
		switch kind {
		case SalePrice:
			st.p.SalePrice = value
		default:
			st.p.RegularPrice = value
		}
	})
}

// SetField updates a named text field. Unknown names are rejected so a
// malformed sync payload cannot silently vanish.
func (s *Store) SetField(id int64, name, value string) error {
	var bad bool
	err := s.mutate(id, func(st *productState) {
		switch name {
		case "name":
			st.p.Name = value
		case "description":
			st.p.Description = value
		case "short_description":
			st.p.ShortDescription = value
		case "weight":
			st.p.Weight = value
		case "regular_price":
			st.p.RegularPrice = value
		case "sale_price":
			st.p.SalePrice = value
		default:
			bad = true
		}
	})
	if err != nil {
		return err
	}
	if bad {
		return fmt.Errorf("unknown product field %q", name)
	}
	return nil
}

// GetStock returns the current stock quantity.
func (s *Store) GetStock(id int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[id]
	if !ok {
		return 0, ErrNotFound
	}
	return st.p.Stock, nil
}

// GetPrice returns the current value of the selected price field.
func (s *Store) GetPrice(id int64, kind PriceKind) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[id]
	if !ok {
		return "", ErrNotFound
	}
	if kind == SalePrice {
		return st.p.SalePrice, nil
	}
	return st.p.RegularPrice, nil
}

// Save finalizes pending mutations for the product. If the stock quantity
// was touched since the previous Save, a stock event is delivered
// synchronously to every observer not muted for this product. The dirty
// flag is cleared even when delivery is muted, so a later unrelated Save
// does not replay a Hub-applied change.
func (s *Store) Save(id int64) error {
	s.mu.Lock()
	st, ok := s.m[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	emit := st.stockDirty
	st.stockDirty = false
	s.m[id] = st
	stock := st.p.Stock
	s.mu.Unlock()

	if !emit {
		return nil
	}
	ev := model.StockEvent{ProductID: id, NewStock: stock, At: time.Now()}
	for _, fn := range s.snapshotObservers(id) {
		fn(ev)
	}
	return nil
}

func (s *Store) mutate(id int64, fn func(*productState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	if !ok {
		return ErrNotFound
	}
	fn(&st)
	s.m[id] = st
	return nil
}

func (s *Store) snapshotObservers(id int64) []Observer {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	if s.muted[id] > 0 {
		return nil
	}
	out := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

// Subscribe registers an observer under a stable identity. Registering the
// same identity twice replaces the previous observer.
func (s *Store) Subscribe(observerID string, fn Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers[observerID] = fn
}

// Unsubscribe removes the observer registered under the given identity.
func (s *Store) Unsubscribe(observerID string) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	delete(s.observers, observerID)
}
