package state_test

import (
	"math/rand"
	"testing"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/testutil"
)

func TestFilterToggleExclusion(t *testing.T) {
	st := testutil.TestState(t)

	// showOnlyBlocked forces hideList off.
	mustToggle(t, st, state.FilterHideList)
	f := mustToggle(t, st, state.FilterShowOnlyBlocked)
	if f.HideList {
		t.Error("hideList should be off after enabling showOnlyBlocked")
	}
	if !f.ShowOnlyBlocked {
		t.Error("showOnlyBlocked should be on")
	}

	// hideList forces showOnlyBlocked off.
	f = mustToggle(t, st, state.FilterHideList)
	if f.ShowOnlyBlocked {
		t.Error("showOnlyBlocked should be off after enabling hideList")
	}

	// The 3-way group admits one member at a time.
	f = mustToggle(t, st, state.FilterHideBlocked)
	if !f.HideBlocked {
		t.Error("hideBlocked should be on")
	}
	f = mustToggle(t, st, state.FilterShowOnlyWhitelisted)
	if f.HideBlocked || f.ShowOnlyBlocked {
		t.Error("group members should be off after enabling showOnlyWhitelisted")
	}
	if !f.ShowOnlyWhitelisted {
		t.Error("showOnlyWhitelisted should be on")
	}

	// Toggling the active member off leaves the group empty.
	f = mustToggle(t, st, state.FilterShowOnlyWhitelisted)
	if f.HideBlocked || f.ShowOnlyBlocked || f.ShowOnlyWhitelisted {
		t.Errorf("group should be empty, got %+v", f)
	}
}

// TestFilterInvariantsHold drives random toggles and checks the two
// exclusion invariants after each step.
func TestFilterInvariantsHold(t *testing.T) {
	st := testutil.TestState(t)
	rng := rand.New(rand.NewSource(1))
	keys := []string{
		state.FilterHideList, state.FilterHideBlocked,
		state.FilterShowOnlyBlocked, state.FilterShowOnlyWhitelisted,
		state.FilterAutoRefresh,
	}

	for i := 0; i < 500; i++ {
		key := keys[rng.Intn(len(keys))]
		f := mustToggle(t, st, key)

		group := 0
		for _, on := range []bool{f.HideBlocked, f.ShowOnlyBlocked, f.ShowOnlyWhitelisted} {
			if on {
				group++
			}
		}
		if group > 1 {
			t.Fatalf("step %d (%s): more than one group member set: %+v", i, key, f)
		}
		if f.HideList && f.ShowOnlyBlocked {
			t.Fatalf("step %d (%s): hideList and showOnlyBlocked both set", i, key)
		}
	}
}

func TestFilterUnknownKeyNoop(t *testing.T) {
	st := testutil.TestState(t)
	before := st.Filters()
	after := mustToggle(t, st, "noSuchFilter")
	if before != after {
		t.Errorf("unknown key changed filters: %+v -> %+v", before, after)
	}
}

func TestLedgerLookup(t *testing.T) {
	st := testutil.TestState(t)

	if err := st.RecordAction("example.com", state.ActionAllow, state.LevelRoot); err != nil {
		t.Fatal(err)
	}
	if err := st.RecordAction("bad.tracker.net", state.ActionDeny, state.LevelFull); err != nil {
		t.Fatal(err)
	}

	// Exact record wins.
	rec, ok := st.Lookup("bad.tracker.net", "tracker.net")
	if !ok || rec.Type != state.ActionDeny || rec.Level != state.LevelFull {
		t.Errorf("exact lookup = %+v, %v", rec, ok)
	}

	// Subdomain falls back to the root record.
	rec, ok = st.Lookup("cdn.example.com", "example.com")
	if !ok || rec.Type != state.ActionAllow || rec.Level != state.LevelRoot {
		t.Errorf("root fallback = %+v, %v", rec, ok)
	}

	if _, ok := st.Lookup("unseen.org", "unseen.org"); ok {
		t.Error("expected no record for unseen.org")
	}

	if err := st.ClearAction("example.com"); err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Lookup("cdn.example.com", "example.com"); ok {
		t.Error("expected fallback gone after ClearAction")
	}
}

func TestHiddenSeedAndMatch(t *testing.T) {
	st := testutil.TestState(t)

	hidden := st.Hidden()
	if len(hidden) != 1 || hidden[0] != state.DefaultHiddenSeed {
		t.Fatalf("initial hidden = %v", hidden)
	}

	if err := st.HideDomain("example.com"); err != nil {
		t.Fatal(err)
	}
	// Duplicate add is a no-op.
	if err := st.HideDomain("example.com"); err != nil {
		t.Fatal(err)
	}
	if got := st.Hidden(); len(got) != 2 {
		t.Fatalf("hidden after duplicate add = %v", got)
	}

	// Substring match covers subdomains.
	if !st.HiddenMatch("cdn.example.com") {
		t.Error("expected substring match for cdn.example.com")
	}
	if st.HiddenMatch("example.org") {
		t.Error("unexpected match for example.org")
	}

	if err := st.ImportHidden([]string{"a.net", "", "example.com", "b.net"}); err != nil {
		t.Fatal(err)
	}
	if got := st.Hidden(); len(got) != 4 {
		t.Fatalf("hidden after import = %v", got)
	}

	if err := st.ClearHidden(); err != nil {
		t.Fatal(err)
	}
	if got := st.Hidden(); len(got) != 1 || got[0] != state.DefaultHiddenSeed {
		t.Errorf("hidden after clear = %v", got)
	}
}

func TestListOptionSortExclusive(t *testing.T) {
	st := testutil.TestState(t)

	opts := st.ListOptions()
	if !opts.BoldRoot || !opts.LightenSubdomain {
		t.Fatalf("defaults = %+v", opts)
	}

	opts, err := st.ToggleListOption(state.OptSortAZ)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.SortAZ {
		t.Error("sortAZ should be on")
	}

	opts, err = st.ToggleListOption(state.OptSortTLD)
	if err != nil {
		t.Fatal(err)
	}
	if opts.SortAZ || !opts.SortTLD {
		t.Errorf("sort flags after switch = %+v", opts)
	}

	// Styling flags are independent of the sort group.
	opts, err = st.ToggleListOption(state.OptBoldRoot)
	if err != nil {
		t.Fatal(err)
	}
	if opts.BoldRoot {
		t.Error("boldRoot should be off")
	}
	if !opts.SortTLD {
		t.Error("sortTLD should survive styling toggles")
	}

	// Toggling the active sort off leaves no sort.
	opts, err = st.ToggleListOption(state.OptSortTLD)
	if err != nil {
		t.Fatal(err)
	}
	if opts.SortAZ || opts.SortTLD || opts.SortRoot {
		t.Errorf("expected no sort flags, got %+v", opts)
	}
}

func TestStatePersistsAcrossReload(t *testing.T) {
	db := testutil.TestStore(t)

	st, err := state.Load(db, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.ToggleFilter(state.FilterHideBlocked); err != nil {
		t.Fatal(err)
	}
	if err := st.HideDomain("example.com"); err != nil {
		t.Fatal(err)
	}
	if err := st.RecordAction("example.com", state.ActionDeny, state.LevelRoot); err != nil {
		t.Fatal(err)
	}
	if err := st.SetCredential("abc"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetProfileID("abcdef"); err != nil {
		t.Fatal(err)
	}
	prefs := st.Prefs()
	prefs.Theme = "light"
	prefs.Width = 260
	if err := st.SetPrefs(prefs); err != nil {
		t.Fatal(err)
	}

	reloaded, err := state.Load(db, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Filters().HideBlocked {
		t.Error("hideBlocked lost across reload")
	}
	if !reloaded.HiddenMatch("example.com") {
		t.Error("hidden entry lost across reload")
	}
	if rec, ok := reloaded.Lookup("example.com", "example.com"); !ok || rec.Type != state.ActionDeny {
		t.Errorf("ledger lost across reload: %+v, %v", rec, ok)
	}
	if reloaded.Credential() != "abc" {
		t.Error("credential lost across reload")
	}
	if reloaded.ProfileID() != "abcdef" {
		t.Error("profile id lost across reload")
	}
	got := reloaded.Prefs()
	if got.Theme != "light" || got.Width != 260 {
		t.Errorf("prefs lost across reload: %+v", got)
	}
	// Untouched prefs keep their defaults.
	if !got.Locked || got.Side != "left" {
		t.Errorf("default prefs overwritten: %+v", got)
	}
}

func mustToggle(t *testing.T, st *state.State, key string) state.Filters {
	t.Helper()
	f, err := st.ToggleFilter(key)
	if err != nil {
		t.Fatal(err)
	}
	return f
}
