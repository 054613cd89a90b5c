package filestore

// Derivations reports how many times the store ran the key derivation.
func (s *Store) Derivations() int {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()
	return s.derivations
}
