// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geofix

import "sync"

// State tracks the last significant geographic fix.
type State struct {
	mu       sync.RWMutex
	last     Coordinate
	haveLast bool
}

// Update stores c if it is the first fix or differs significantly from the stored one. It
// reports whether the stored fix changed.
func (s *State) Update(c Coordinate) bool {
	if !c.Valid() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.haveLast && !c.PosHasSignificantChange(s.last) {
		return false
	}
	s.last = c
	s.haveLast = true
	return true
}

// Last returns the stored fix.
func (s *State) Last() (Coordinate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.haveLast
}
