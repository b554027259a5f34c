// Package state owns the panel's mutable application state: the domain
// action ledger, filter flags, hidden-domain set, list-page options, and
// panel preferences.
//
// All shared variables of the original overlay live behind one State
// object with controlled mutation entry points. State is loaded once at
// startup merged over fixed defaults and a whole snapshot of the touched
// slice is persisted after every mutation.
package state

import (
	"fmt"
	"sync"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/store"
)

// Storage keys. Versioned suffixes survive from earlier releases so
// existing stores keep loading.
const (
	KeyFilterState   = "ndns_filter_state_v2"
	KeyHiddenDomains = "ndns_hidden_domains_v2"
	KeyListOptions   = "ndns_allowdeny_options_v2"
	KeyLockState     = "ndns_lock_state_v1"
	KeyTheme         = "ndns_theme_v1"
	KeyWidth         = "ndns_panel_width_v1"
	KeyCredential    = "ndns_api_key"
	KeyProfileID     = "ndns_profile_id_v1"
	KeyCompactMode   = "ndns_compact_mode_v1"
	KeyDomainActions = "ndns_domain_actions_v1"
	KeyPositionTop   = "ndns_panel_position_top_v2"
	KeyPositionSide  = "ndns_panel_position_side_v2"
)

// DefaultHiddenSeed is the entry the hidden set always contains, even
// after a clear: the host's own domain.
const DefaultHiddenSeed = "nextdns.io"

// State is the owned application state. All access goes through methods;
// the zero value is not usable, construct with Load.
type State struct {
	mu    sync.RWMutex
	store store.Store
	seed  string

	filters    Filters
	actions    map[string]ActionRecord
	hidden     []string
	hiddenSet  map[string]struct{}
	listOpts   ListOptions
	prefs      Prefs
	credential string
	profileID  string
}

// Load reads persisted state from s merged over defaults. seed is the
// hidden-set entry that is always present; empty means DefaultHiddenSeed.
func Load(s store.Store, seed string) (*State, error) {
	if seed == "" {
		seed = DefaultHiddenSeed
	}
	st := &State{
		store:   s,
		seed:    seed,
		filters: DefaultFilters(),
		actions: make(map[string]ActionRecord),
		hidden:  []string{seed},
		listOpts: DefaultListOptions(),
		prefs:    DefaultPrefs(),
	}
	err := s.Get(map[string]any{
		KeyFilterState:   &st.filters,
		KeyHiddenDomains: &st.hidden,
		KeyListOptions:   &st.listOpts,
		KeyLockState:     &st.prefs.Locked,
		KeyTheme:         &st.prefs.Theme,
		KeyWidth:         &st.prefs.Width,
		KeyCredential:    &st.credential,
		KeyProfileID:     &st.profileID,
		KeyCompactMode:   &st.prefs.Compact,
		KeyDomainActions: &st.actions,
		KeyPositionTop:   &st.prefs.Top,
		KeyPositionSide:  &st.prefs.Side,
	})
	if err != nil {
		return nil, fmt.Errorf("state: load: %w", err)
	}
	if st.actions == nil {
		st.actions = make(map[string]ActionRecord)
	}
	st.rebuildHiddenSet()
	st.ensureSeedLocked()
	return st, nil
}

// Credential returns the committed API credential, empty when unset.
func (st *State) Credential() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.credential
}

// SetCredential commits the long-lived credential slot.
func (st *State) SetCredential(key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.credential = key
	return st.store.Set(map[string]any{KeyCredential: key})
}

// ProfileID returns the persisted profile identifier, empty when unset.
func (st *State) ProfileID() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.profileID
}

// SetProfileID persists the profile identifier discovered from the page
// path so account-page loads (which carry no profile in the URL) still
// know where to return.
func (st *State) SetProfileID(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.profileID = id
	return st.store.Set(map[string]any{KeyProfileID: id})
}
