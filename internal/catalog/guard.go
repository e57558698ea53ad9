package catalog

// Mute suppresses stock event delivery for one product and returns the
// release function. The scope is refcounted per product, so concurrent
// command applications for other products keep propagating, and two
// overlapping scopes on the same product stay muted until both release.
//
// Callers must release on every exit path:
//
//	release := store.Mute(id)
//	defer release()
func (s *Store) Mute(id int64) (release func()) {
	s.obsMu.Lock()
	s.muted[id]++
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		s.muted[id]--
		if s.muted[id] <= 0 {
			delete(s.muted, id)
		}
	}
}
