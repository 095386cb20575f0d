package httpclient

import "sync/atomic"

// Identity holds the current user identifier injected into outgoing requests.
// One Identity is created per session and shared by everything acting for that session.
type Identity struct {
	id atomic.Pointer[string]
}

// NewIdentity returns an empty identity.
func NewIdentity() *Identity {
	return &Identity{}
}

// Set replaces the identifier. An empty id clears it.
func (i *Identity) Set(id string) {
	if id == "" {
		i.Clear()
		return
	}
	i.id.Store(&id)
}

// Clear removes the identifier; later requests carry no identity header.
func (i *Identity) Clear() {
	i.id.Store(nil)
}

// Get returns the identifier and whether one is set.
func (i *Identity) Get() (string, bool) {
	if i == nil {
		return "", false
	}
	p := i.id.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}
