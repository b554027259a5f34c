package state

// Filter keys accepted by Toggle.
const (
	FilterHideList            = "hideList"
	FilterHideBlocked         = "hideBlocked"
	FilterShowOnlyBlocked     = "showOnlyBlocked"
	FilterShowOnlyWhitelisted = "showOnlyWhitelisted"
	FilterAutoRefresh         = "autoRefresh"
)

// Filters holds the five visibility flags.
//
// Invariants maintained by Toggle:
//   - at most one of hideBlocked, showOnlyBlocked, showOnlyWhitelisted is set
//   - hideList and showOnlyBlocked are never both set
//
// The two rules are deliberately asymmetric (a pairwise rule plus a 3-way
// group sharing one member); do not collapse them into a single uniform
// exclusion scheme.
type Filters struct {
	HideList            bool `json:"hideList"`
	HideBlocked         bool `json:"hideBlocked"`
	ShowOnlyBlocked     bool `json:"showOnlyBlocked"`
	ShowOnlyWhitelisted bool `json:"showOnlyWhitelisted"`
	AutoRefresh         bool `json:"autoRefresh"`
}

// DefaultFilters returns the startup defaults: everything off.
func DefaultFilters() Filters {
	return Filters{}
}

// AnyActive reports whether any flag is on.
func (f Filters) AnyActive() bool {
	return f.HideList || f.HideBlocked || f.ShowOnlyBlocked || f.ShowOnlyWhitelisted || f.AutoRefresh
}

// get returns the flag named by key, false for unknown keys.
func (f Filters) get(key string) bool {
	switch key {
	case FilterHideList:
		return f.HideList
	case FilterHideBlocked:
		return f.HideBlocked
	case FilterShowOnlyBlocked:
		return f.ShowOnlyBlocked
	case FilterShowOnlyWhitelisted:
		return f.ShowOnlyWhitelisted
	case FilterAutoRefresh:
		return f.AutoRefresh
	}
	return false
}

func (f *Filters) set(key string, v bool) {
	switch key {
	case FilterHideList:
		f.HideList = v
	case FilterHideBlocked:
		f.HideBlocked = v
	case FilterShowOnlyBlocked:
		f.ShowOnlyBlocked = v
	case FilterShowOnlyWhitelisted:
		f.ShowOnlyWhitelisted = v
	case FilterAutoRefresh:
		f.AutoRefresh = v
	}
}

// exclusiveGroup is the 3-way group of mutually exclusive flags.
var exclusiveGroup = []string{FilterHideBlocked, FilterShowOnlyBlocked, FilterShowOnlyWhitelisted}

// toggle flips key and enforces the exclusion invariants.
func (f *Filters) toggle(key string) {
	turningOn := !f.get(key)

	if turningOn {
		if key == FilterShowOnlyBlocked {
			f.HideList = false
		}
		if key == FilterHideList {
			f.ShowOnlyBlocked = false
		}
	}

	inGroup := false
	for _, k := range exclusiveGroup {
		if k == key {
			inGroup = true
			break
		}
	}
	if inGroup {
		if turningOn {
			for _, k := range exclusiveGroup {
				f.set(k, false)
			}
			f.set(key, true)
		} else {
			f.set(key, false)
		}
		return
	}
	f.set(key, turningOn)
}

// Filters returns a copy of the current filter flags.
func (st *State) Filters() Filters {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.filters
}

// ToggleFilter flips the named flag, enforces exclusivity, and persists
// the whole filter object. It returns the resulting flags.
func (st *State) ToggleFilter(key string) (Filters, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.filters.toggle(key)
	return st.filters, st.store.Set(map[string]any{KeyFilterState: st.filters})
}

// SetFilters replaces the filter flags wholesale without persisting.
// Used by the preload controller to neutralize filters for the duration
// of a session; the persisted snapshot stays untouched so a crash
// mid-session cannot lose the user's configuration.
func (st *State) SetFilters(f Filters) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.filters = f
}

// RestoreFilters replaces the filter flags and persists them, the final
// step of a preload session.
func (st *State) RestoreFilters(f Filters) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.filters = f
	return st.store.Set(map[string]any{KeyFilterState: st.filters})
}
