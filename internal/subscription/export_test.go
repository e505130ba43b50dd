package subscription

// Lookup returns the mapped subscription for key.
func (r *Registry) Lookup(key Key) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	return sub, ok
}
