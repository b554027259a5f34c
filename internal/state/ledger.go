package state

// ActionType is the kind of explicit action taken through the panel.
type ActionType string

// ActionLevel records whether the action targeted the registrable root
// or the full hostname.
type ActionLevel string

const (
	ActionAllow ActionType = "allow"
	ActionDeny  ActionType = "deny"

	LevelRoot ActionLevel = "root"
	LevelFull ActionLevel = "full"
)

// ActionRecord is one ledger entry: the last explicit allow/deny action
// taken for a domain. The ledger outlives whatever the host page
// currently renders.
type ActionRecord struct {
	Type  ActionType  `json:"type"`
	Level ActionLevel `json:"level"`
}

// RecordAction upserts the ledger entry for domain and persists the full
// mapping.
func (st *State) RecordAction(dom string, typ ActionType, level ActionLevel) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.actions[dom] = ActionRecord{Type: typ, Level: level}
	return st.store.Set(map[string]any{KeyDomainActions: st.actions})
}

// ClearAction deletes the ledger entry for domain and persists.
func (st *State) ClearAction(dom string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.actions, dom)
	return st.store.Set(map[string]any{KeyDomainActions: st.actions})
}

// Lookup returns the record for the exact domain, falling back to the
// record for rootDom when no exact record exists. rootDom is passed in
// (rather than computed here) so the caller controls the heuristic.
func (st *State) Lookup(dom, rootDom string) (ActionRecord, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if rec, ok := st.actions[dom]; ok {
		return rec, true
	}
	rec, ok := st.actions[rootDom]
	return rec, ok
}

// Actions returns a copy of the whole ledger mapping.
func (st *State) Actions() map[string]ActionRecord {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[string]ActionRecord, len(st.actions))
	for k, v := range st.actions {
		out[k] = v
	}
	return out
}
