package state

import "strings"

func (st *State) rebuildHiddenSet() {
	st.hiddenSet = make(map[string]struct{}, len(st.hidden))
	for _, d := range st.hidden {
		st.hiddenSet[d] = struct{}{}
	}
}

// ensureSeedLocked guarantees the seed entry is present. Callers hold mu
// or run before State escapes the constructor.
func (st *State) ensureSeedLocked() {
	if _, ok := st.hiddenSet[st.seed]; !ok {
		st.hidden = append(st.hidden, st.seed)
		st.hiddenSet[st.seed] = struct{}{}
	}
}

// Hidden returns the hidden-domain list in insertion order.
func (st *State) Hidden() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, len(st.hidden))
	copy(out, st.hidden)
	return out
}

// HiddenMatch reports whether dom contains any hidden entry as a
// substring. Substring (not suffix) match is deliberate: it is how the
// original list behaved and lets one entry cover typo'd subdomain forms.
func (st *State) HiddenMatch(dom string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, h := range st.hidden {
		if strings.Contains(dom, h) {
			return true
		}
	}
	return false
}

// HideDomain adds dom to the hidden set and persists the ordered list.
// Adding an already-present entry is a no-op that still succeeds.
func (st *State) HideDomain(dom string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.hiddenSet[dom]; !ok {
		st.hidden = append(st.hidden, dom)
		st.hiddenSet[dom] = struct{}{}
	}
	return st.store.Set(map[string]any{KeyHiddenDomains: st.hidden})
}

// ImportHidden merges a list of domains into the hidden set and persists.
func (st *State) ImportHidden(doms []string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, d := range doms {
		if d == "" {
			continue
		}
		if _, ok := st.hiddenSet[d]; !ok {
			st.hidden = append(st.hidden, d)
			st.hiddenSet[d] = struct{}{}
		}
	}
	return st.store.Set(map[string]any{KeyHiddenDomains: st.hidden})
}

// ClearHidden resets the hidden set to just the seed entry and persists.
func (st *State) ClearHidden() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.hidden = []string{st.seed}
	st.rebuildHiddenSet()
	return st.store.Set(map[string]any{KeyHiddenDomains: st.hidden})
}
