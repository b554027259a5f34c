package state

// List-page option keys accepted by ToggleListOption.
const (
	OptBoldRoot         = "boldRoot"
	OptLightenSubdomain = "lightenSubdomain"
	OptSortAZ           = "sortAZ"
	OptSortTLD          = "sortTLD"
	OptSortRoot         = "sortRoot"
)

// ListOptions drives allow/deny list page rendering and ordering. The
// three sort flags are mutually exclusive; the styling flags are not.
type ListOptions struct {
	BoldRoot         bool `json:"boldRoot"`
	LightenSubdomain bool `json:"lightenSubdomain"`
	SortAZ           bool `json:"sortAZ"`
	SortTLD          bool `json:"sortTLD"`
	SortRoot         bool `json:"sortRoot"`
}

// DefaultListOptions returns the startup defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{BoldRoot: true, LightenSubdomain: true}
}

// ListOptions returns a copy of the current list-page options.
func (st *State) ListOptions() ListOptions {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.listOpts
}

// ToggleListOption flips the named option. Turning on a sort flag turns
// the other sort flags off. The whole object is persisted.
func (st *State) ToggleListOption(key string) (ListOptions, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch key {
	case OptBoldRoot:
		st.listOpts.BoldRoot = !st.listOpts.BoldRoot
	case OptLightenSubdomain:
		st.listOpts.LightenSubdomain = !st.listOpts.LightenSubdomain
	case OptSortAZ, OptSortTLD, OptSortRoot:
		on := !st.listOpts.sortFlag(key)
		st.listOpts.SortAZ = false
		st.listOpts.SortTLD = false
		st.listOpts.SortRoot = false
		if on {
			st.listOpts.setSortFlag(key)
		}
	}
	return st.listOpts, st.store.Set(map[string]any{KeyListOptions: st.listOpts})
}

func (o ListOptions) sortFlag(key string) bool {
	switch key {
	case OptSortAZ:
		return o.SortAZ
	case OptSortTLD:
		return o.SortTLD
	case OptSortRoot:
		return o.SortRoot
	}
	return false
}

func (o *ListOptions) setSortFlag(key string) {
	switch key {
	case OptSortAZ:
		o.SortAZ = true
	case OptSortTLD:
		o.SortTLD = true
	case OptSortRoot:
		o.SortRoot = true
	}
}

// Prefs holds panel chrome preferences. The daemon only stores and
// serves these; rendering happens in the browser shim.
type Prefs struct {
	Theme   string `json:"theme"`
	Width   int    `json:"width"`
	Compact bool   `json:"compact"`
	Locked  bool   `json:"locked"`
	Side    string `json:"side"`
	Top     string `json:"top"`
}

// DefaultPrefs returns the startup defaults.
func DefaultPrefs() Prefs {
	return Prefs{Theme: "dark", Width: 200, Locked: true, Side: "left", Top: "10px"}
}

// Prefs returns a copy of the panel preferences.
func (st *State) Prefs() Prefs {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.prefs
}

// SetPrefs replaces the panel preferences and persists each slot under
// its own key so older snapshots stay readable.
func (st *State) SetPrefs(p Prefs) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.prefs = p
	return st.store.Set(map[string]any{
		KeyTheme:        p.Theme,
		KeyWidth:        p.Width,
		KeyCompactMode:  p.Compact,
		KeyLockState:    p.Locked,
		KeyPositionSide: p.Side,
		KeyPositionTop:  p.Top,
	})
}
