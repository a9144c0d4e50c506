package kvstore

import "sync"

// Faulty wraps a Store and fails reads or writes on demand.
// Used by tests to exercise transient I/O handling.
type Faulty struct {
	Store

	mu      sync.Mutex
	getErr error
	setErr error
}

// NewFaulty wraps inner.
func NewFaulty(inner Store) *Faulty {
	return &Faulty{Store: inner}
}

// FailGets makes subsequent Get calls return err; nil restores normal reads.
func (f *Faulty) FailGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// FailSets makes subsequent Set calls return err; nil restores normal writes.
func (f *Faulty) FailSets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

func (f *Faulty) Get(key string) (string, bool, error) {
	f.mu.Lock()
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.Store.Get(key)
}

func (f *Faulty) Set(key, value string) error {
	f.mu.Lock()
	err := f.setErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Set(key, value)
}
