package domainlock

import (
	"sync"

	"doc-domains-be/internal/apperrors"
)

// Registry hands out per-domain locks so concurrent ingestion stays safe.
// Indexing and single-file deletion share the domain; reindexing needs it
// exclusively. Acquisition never blocks: a held domain answers Busy and the
// caller reports that to the client.
type Registry struct {
	mu      sync.Mutex
	domains map[string]*state
}

type state struct {
	shared    int
	exclusive bool
}

func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]*state)}
}

// AcquireShared takes a shared slot on the domain. The returned release
// function must be called exactly once.
func (r *Registry) AcquireShared(domain string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.domains[domain]
	if st == nil {
		st = &state{}
		r.domains[domain] = st
	}
	if st.exclusive {
		return nil, apperrors.Busy("domain %q is being reindexed", domain)
	}
	st.shared++
	return r.releaseFunc(domain, false), nil
}

// AcquireExclusive takes the domain exclusively. It fails fast when any
// shared or exclusive holder is active.
func (r *Registry) AcquireExclusive(domain string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.domains[domain]
	if st == nil {
		st = &state{}
		r.domains[domain] = st
	}
	if st.exclusive || st.shared > 0 {
		return nil, apperrors.Busy("domain %q has an operation in progress", domain)
	}
	st.exclusive = true
	return r.releaseFunc(domain, true), nil
}

func (r *Registry) releaseFunc(domain string, exclusive bool) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			st := r.domains[domain]
			if st == nil {
				return
			}
			if exclusive {
				st.exclusive = false
			} else if st.shared > 0 {
				st.shared--
			}
			if !st.exclusive && st.shared == 0 {
				delete(r.domains, domain)
			}
		})
	}
}
