package handoff

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/store"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/testutil"
)

// validKey is 64 hex characters, the shape a generated credential has.
const validKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProber struct {
	err   error
	calls int
	keys  []string
}

func (f *fakeProber) Probe(ctx context.Context, key string) error {
	f.calls++
	f.keys = append(f.keys, key)
	return f.err
}

func newMachine(t *testing.T, prober Prober) (*Machine, *state.State, *store.DB) {
	t.Helper()
	db := testutil.TestStore(t)
	st, err := state.Load(db, "")
	if err != nil {
		t.Fatal(err)
	}
	return New(db, st, prober, nil, discard()), st, db
}

func TestDeriveAccountState(t *testing.T) {
	cases := []struct {
		sig  AccountSignals
		want AccountState
	}{
		{AccountSignals{}, Unauthenticated},
		{AccountSignals{LoggedIn: true}, Searching},
		{AccountSignals{LoggedIn: true, KeyText: validKey}, Found},
		{AccountSignals{LoggedIn: true, HasGenerate: true}, NeedsGeneration},
		{AccountSignals{LoggedIn: true, HasProUpsell: true}, Blocked},
		// A rendered key wins over other signals.
		{AccountSignals{LoggedIn: true, KeyText: validKey, HasGenerate: true}, Found},
	}
	for _, tc := range cases {
		if got := DeriveAccountState(tc.sig); got != tc.want {
			t.Errorf("DeriveAccountState(%+v) = %q, want %q", tc.sig, got, tc.want)
		}
	}
}

func TestGuidedFlowTransitions(t *testing.T) {
	m, _, _ := newMachine(t, &fakeProber{})

	if m.Current() != Idle {
		t.Fatalf("initial state = %q", m.Current())
	}
	m.Begin()
	if m.Current() != AwaitingStart {
		t.Errorf("after Begin = %q", m.Current())
	}
	m.ConfirmNavigation()
	if m.Current() != NavigatedToAccount {
		t.Errorf("after ConfirmNavigation = %q", m.Current())
	}
	if err := m.Capture(validKey); err != nil {
		t.Fatal(err)
	}
	if m.Current() != CapturedOnAccount {
		t.Errorf("after Capture = %q", m.Current())
	}
}

func TestCaptureEmptyKeyRejected(t *testing.T) {
	m, _, _ := newMachine(t, &fakeProber{})
	if err := m.Capture(""); err == nil {
		t.Fatal("expected error for empty capture")
	}
}

func TestResumeCommitsCapturedCredential(t *testing.T) {
	prober := &fakeProber{}
	m, st, _ := newMachine(t, prober)

	if err := m.Capture(validKey); err != nil {
		t.Fatal(err)
	}

	resumed, err := m.Resume(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !resumed {
		t.Fatal("expected resume to process the mailbox")
	}
	if m.Current() != Committed {
		t.Errorf("state = %q, want committed", m.Current())
	}
	if st.Credential() != validKey {
		t.Error("credential not committed")
	}
	if prober.calls != 1 || prober.keys[0] != validKey {
		t.Errorf("probe calls = %d keys = %v", prober.calls, prober.keys)
	}
}

func TestResumeIdleWithoutMailbox(t *testing.T) {
	m, _, _ := newMachine(t, &fakeProber{})

	resumed, err := m.Resume(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resumed {
		t.Error("nothing to resume, got resumed = true")
	}
	if m.Current() != Idle {
		t.Errorf("state = %q, want idle", m.Current())
	}
}

// The mailbox is cleared before validation, so a second resume after the
// first finds nothing even when the first one failed.
func TestResumeClearsMailboxBeforeValidation(t *testing.T) {
	prober := &fakeProber{err: errors.New("boom")}
	m, st, _ := newMachine(t, prober)

	if err := m.Capture(validKey); err != nil {
		t.Fatal(err)
	}

	resumed, err := m.Resume(context.Background())
	if !resumed {
		t.Fatal("expected first resume to process")
	}
	if err == nil {
		t.Fatal("expected probe failure to surface")
	}
	if m.Current() != ManualFallback {
		t.Errorf("state = %q, want manualFallback", m.Current())
	}
	if st.Credential() != "" {
		t.Error("failed validation must not commit")
	}

	resumed, err = m.Resume(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resumed {
		t.Error("second resume should find an empty mailbox")
	}
	if prober.calls != 1 {
		t.Errorf("probe ran %d times, want 1", prober.calls)
	}
}

func TestManualSubmitValidShape(t *testing.T) {
	m, st, _ := newMachine(t, &fakeProber{})

	if err := m.ManualSubmit(context.Background(), validKey); err != nil {
		t.Fatal(err)
	}
	if m.Current() != Committed || st.Credential() != validKey {
		t.Errorf("state = %q credential set = %v", m.Current(), st.Credential() != "")
	}
}

func TestManualSubmitBadShape(t *testing.T) {
	m, st, _ := newMachine(t, &fakeProber{})

	cases := []string{
		"",
		"not-hex-at-all",
		strings.Repeat("a", 59), // one short of the minimum
	}
	for _, key := range cases {
		err := m.ManualSubmit(context.Background(), key)
		if !errors.Is(err, apperr.ErrInvalidCredential) {
			t.Errorf("key %q: err = %v, want ErrInvalidCredential", key, err)
		}
	}
	if st.Credential() != "" {
		t.Error("invalid submissions must not commit")
	}
	if m.Current() != ManualFallback {
		t.Errorf("state = %q, want manualFallback", m.Current())
	}
}

func TestManualSubmitUppercaseHexAccepted(t *testing.T) {
	m, _, _ := newMachine(t, &fakeProber{})
	if err := m.ManualSubmit(context.Background(), strings.ToUpper(validKey)); err != nil {
		t.Fatalf("uppercase hex rejected: %v", err)
	}
}

func TestManualSubmitProbeFailure(t *testing.T) {
	m, st, _ := newMachine(t, &fakeProber{err: errors.New("401")})

	err := m.ManualSubmit(context.Background(), validKey)
	if !errors.Is(err, apperr.ErrInvalidCredential) {
		t.Errorf("err = %v, want ErrInvalidCredential", err)
	}
	if st.Credential() != "" {
		t.Error("probe failure must not commit")
	}
}
