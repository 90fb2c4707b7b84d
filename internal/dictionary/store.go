package dictionary

import "sync/atomic"

// Store publishes the currently installed dictionary to concurrent readers.
// A table is either installed whole or not at all.
type Store struct {
	current atomic.Pointer[Dictionary]
}

// NewStore returns a store holding d, or an empty dictionary when d is nil.
func NewStore(d *Dictionary) *Store {
	s := &Store{}
	s.Install(d)
	return s
}

// Current returns the installed dictionary. It is never nil.
func (s *Store) Current() *Dictionary {
	if d := s.current.Load(); d != nil {
		return d
	}
	return empty()
}

// Install replaces the installed dictionary.
func (s *Store) Install(d *Dictionary) {
	if d == nil {
		d = empty()
	}
	s.current.Store(d)
}

// Reload runs load and installs its result. When load fails the previously
// installed dictionary stays in place and the error is returned.
func (s *Store) Reload(load func() (*Dictionary, error)) error {
	d, err := load()
	if err != nil {
		return err
	}
	s.Install(d)
	return nil
}
