package actions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/gateway"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, handler http.HandlerFunc) (*Service, *state.State, *atomic.Int32) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st := testutil.TestState(t)
	gw := gateway.New(srv.URL, func() string { return "key" }, func() string { return "abc123" })

	reclassified := &atomic.Int32{}
	svc := New(st, gw, func() { reclassified.Add(1) }, nil, discard())
	return svc, st, reclassified
}

func TestSendDenyRecordsRootLevel(t *testing.T) {
	var gotPath string
	svc, st, reclassified := newService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusCreated)
	})

	if err := svc.Send(context.Background(), "example.com", state.ActionDeny); err != nil {
		t.Fatal(err)
	}
	if gotPath != "POST /profiles/abc123/denylist" {
		t.Errorf("path = %q", gotPath)
	}

	rec, ok := st.Lookup("example.com", "example.com")
	if !ok || rec.Type != state.ActionDeny || rec.Level != state.LevelRoot {
		t.Errorf("ledger = %+v, %v", rec, ok)
	}
	if !st.HiddenMatch("example.com") {
		t.Error("domain not hidden after send")
	}
	if reclassified.Load() != 1 {
		t.Errorf("reclassify calls = %d, want 1", reclassified.Load())
	}
}

func TestSendAllowSubdomainFullLevel(t *testing.T) {
	svc, st, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	if err := svc.Send(context.Background(), "cdn.example.com", state.ActionAllow); err != nil {
		t.Fatal(err)
	}
	rec, _ := st.Lookup("cdn.example.com", "example.com")
	if rec.Type != state.ActionAllow || rec.Level != state.LevelFull {
		t.Errorf("ledger = %+v", rec)
	}
}

// Wildcard entries go to the API bare but keep their wildcard form in
// local state.
func TestSendStripsWildcardForRemote(t *testing.T) {
	var gotBody map[string]any
	svc, st, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})

	if err := svc.Send(context.Background(), "*.example.com", state.ActionDeny); err != nil {
		t.Fatal(err)
	}
	if gotBody["id"] != "example.com" {
		t.Errorf("remote id = %v, want bare domain", gotBody["id"])
	}
	if _, ok := st.Lookup("*.example.com", "example.com"); !ok {
		t.Error("ledger should keep the wildcard form")
	}
}

func TestSendRemoteFailureLeavesStateUntouched(t *testing.T) {
	svc, st, reclassified := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := svc.Send(context.Background(), "example.com", state.ActionDeny)
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequestError", err)
	}
	if _, ok := st.Lookup("example.com", "example.com"); ok {
		t.Error("ledger must not change on remote failure")
	}
	if st.HiddenMatch("example.com") {
		t.Error("hidden set must not change on remote failure")
	}
	if reclassified.Load() != 0 {
		t.Error("no reclassification on remote failure")
	}
}

func TestRemoveClearsLedger(t *testing.T) {
	var gotPath string
	svc, st, reclassified := newService(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := st.RecordAction("example.com", state.ActionDeny, state.LevelRoot); err != nil {
		t.Fatal(err)
	}

	if err := svc.Remove(context.Background(), "example.com", gateway.Denylist); err != nil {
		t.Fatal(err)
	}
	if gotPath != "DELETE /profiles/abc123/denylist/example.com" {
		t.Errorf("path = %q", gotPath)
	}
	if _, ok := st.Lookup("example.com", "example.com"); ok {
		t.Error("ledger entry should be cleared")
	}
	if reclassified.Load() != 1 {
		t.Errorf("reclassify calls = %d, want 1", reclassified.Load())
	}
}

func TestExportHosts(t *testing.T) {
	svc, _, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("domain,reasons\nads.com,blacklist:oisd\nok.com,\n"))
	})

	out, err := svc.ExportHosts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "0.0.0.0 ads.com" {
		t.Errorf("hosts = %q", out)
	}
}

func TestExportProfileFetchesAllSections(t *testing.T) {
	seen := make(map[string]bool)
	svc, _, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		seen[r.URL.Path] = true
		w.Write([]byte(`{"data":{}}`))
	})

	if _, err := svc.ExportProfile(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, page := range gateway.ExportSections {
		if !seen["/profiles/abc123/"+page] {
			t.Errorf("section %s never fetched", page)
		}
	}
}

func TestExportHidden(t *testing.T) {
	svc, st, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {})
	if err := st.HideDomain("ads.com"); err != nil {
		t.Fatal(err)
	}

	out, err := svc.ExportHidden()
	if err != nil {
		t.Fatal(err)
	}
	var domains []string
	if err := json.Unmarshal(out, &domains); err != nil {
		t.Fatal(err)
	}
	if len(domains) != 2 {
		t.Errorf("domains = %v", domains)
	}
}
