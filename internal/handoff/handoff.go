// Package handoff implements the cross-page credential handoff: the
// account page captures a freshly generated API credential, parks it in
// the persistent store, and the logs page finalizes it on the next load.
//
// The store is used as a mailbox across two page loads. Finalization
// clears the mailbox before validating, so reloading the logs page can
// never double-process a capture.
package handoff

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/store"
)

// Mailbox keys in the persistent store.
const (
	KeyTransfer  = "ndns_api_key_to_transfer"
	KeyReturning = "ndns_return_from_account"
)

// State is the handoff machine state.
type State string

const (
	Idle               State = "idle"
	AwaitingStart      State = "awaitingManualStart"
	NavigatedToAccount State = "navigatedToAccount"
	CapturedOnAccount  State = "capturedOnAccount"
	FinalizingOnReturn State = "finalizingOnReturn"
	Validated          State = "validated"
	Committed          State = "committed"
	ManualFallback     State = "manualFallback"
)

// AccountState is the account-page sub-state, re-derived on every
// reported mutation under the API section.
type AccountState string

const (
	Searching       AccountState = "searching"
	Found           AccountState = "found"
	NeedsGeneration AccountState = "needsGeneration"
	Blocked         AccountState = "blocked"
	Unauthenticated AccountState = "unauthenticated"
)

// AccountSignals are the page facts the shim reports from the account
// page's API section.
type AccountSignals struct {
	LoggedIn     bool   `json:"loggedIn"`
	KeyText      string `json:"keyText"`
	HasGenerate  bool   `json:"hasGenerate"`
	HasProUpsell bool   `json:"hasProUpsell"`
}

// DeriveAccountState maps page signals to the account sub-state.
func DeriveAccountState(sig AccountSignals) AccountState {
	switch {
	case !sig.LoggedIn:
		return Unauthenticated
	case sig.KeyText != "":
		return Found
	case sig.HasGenerate:
		return NeedsGeneration
	case sig.HasProUpsell:
		return Blocked
	}
	return Searching
}

// credentialShape is the minimum-length hexadecimal prefix shape a
// captured credential must match before the probe runs.
var credentialShape = regexp.MustCompile(`^(?i)[a-f0-9]{60,}`)

// Prober performs the lightweight authenticated request that validates a
// candidate credential; the gateway implements it.
type Prober interface {
	Probe(ctx context.Context, key string) error
}

// EventSink receives machine transitions.
type EventSink interface {
	Publish(kind string, data any)
}

// EventState announces every transition; EventCommitted fires once a
// credential lands in the long-lived slot so dependent UI refreshes.
// EventNavigate tells the shim to move the page to the account view.
const (
	EventState     = "handoff.state"
	EventCommitted = "credential.committed"
	EventNavigate  = "command.navigate"
)

// Machine is the handoff state machine. One instance exists per process;
// its resume transition is evaluated once at startup.
type Machine struct {
	mu     sync.Mutex
	cur    State
	box    store.Store
	app    *state.State
	prober Prober
	sink   EventSink
	logger *slog.Logger
}

// New creates an idle machine.
func New(box store.Store, app *state.State, prober Prober, sink EventSink, logger *slog.Logger) *Machine {
	return &Machine{
		cur:    Idle,
		box:    box,
		app:    app,
		prober: prober,
		sink:   sink,
		logger: logger,
	}
}

// Current returns the machine state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

func (m *Machine) transition(to State) {
	m.mu.Lock()
	from := m.cur
	m.cur = to
	m.mu.Unlock()
	m.logger.Info("handoff: transition", slog.String("from", string(from)), slog.String("to", string(to)))
	if m.sink != nil {
		m.sink.Publish(EventState, map[string]string{"from": string(from), "to": string(to)})
	}
}

// Begin marks the call-to-action as shown. No store writes.
func (m *Machine) Begin() {
	m.transition(AwaitingStart)
}

// ConfirmNavigation records the user confirming the call-to-action and
// heading to the account page. No store writes.
func (m *Machine) ConfirmNavigation() {
	m.transition(NavigatedToAccount)
	if m.sink != nil {
		m.sink.Publish(EventNavigate, map[string]string{"target": "account"})
	}
}

// Capture is the account-page step: the shim detected a rendered
// credential (and already copied it to the clipboard). The value and the
// returning flag are parked in the mailbox for the logs page to pick up.
func (m *Machine) Capture(key string) error {
	if key == "" {
		return fmt.Errorf("handoff: empty captured credential")
	}
	err := m.box.Set(map[string]any{
		KeyTransfer:  key,
		KeyReturning: true,
	})
	if err != nil {
		return fmt.Errorf("handoff: park capture: %w", err)
	}
	m.transition(CapturedOnAccount)
	return nil
}

// Resume is the logs-page startup transition. When the returning flag is
// absent it reports false and the machine stays put. Otherwise the
// mailbox is read and cleared before any validation, so an immediate
// reload finds nothing to process. Then the capture is validated and
// committed. Any failure routes to ManualFallback; the
// error says why.
func (m *Machine) Resume(ctx context.Context) (bool, error) {
	var (
		captured  string
		returning bool
	)
	err := m.box.Get(map[string]any{
		KeyTransfer:  &captured,
		KeyReturning: &returning,
	})
	if err != nil {
		return false, fmt.Errorf("handoff: read mailbox: %w", err)
	}
	if !returning {
		return false, nil
	}

	m.transition(FinalizingOnReturn)
	if err := m.box.Remove(KeyTransfer, KeyReturning); err != nil {
		m.transition(ManualFallback)
		return true, fmt.Errorf("handoff: clear mailbox: %w", err)
	}

	if err := m.finalize(ctx, captured); err != nil {
		m.transition(ManualFallback)
		return true, err
	}
	return true, nil
}

// ManualSubmit accepts a pasted credential from the fallback prompt and
// runs the same validation and commit path.
func (m *Machine) ManualSubmit(ctx context.Context, key string) error {
	if err := m.finalize(ctx, key); err != nil {
		m.transition(ManualFallback)
		return err
	}
	return nil
}

// finalize validates the candidate (shape, then authenticated probe) and
// commits it to the long-lived credential slot.
func (m *Machine) finalize(ctx context.Context, key string) error {
	if err := validation.Validate(key,
		validation.Required,
		validation.Match(credentialShape),
	); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidCredential, err)
	}
	if err := m.prober.Probe(ctx, key); err != nil {
		return fmt.Errorf("%w: probe failed: %v", apperr.ErrInvalidCredential, err)
	}
	m.transition(Validated)

	if err := m.app.SetCredential(key); err != nil {
		return fmt.Errorf("handoff: commit credential: %w", err)
	}
	m.transition(Committed)
	if m.sink != nil {
		m.sink.Publish(EventCommitted, nil)
	}
	return nil
}
