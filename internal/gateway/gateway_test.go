package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, func() string { return "test-key" }, func() string { return "abc123" })
}

func TestCreateListEntry(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]any

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.CreateListEntry(context.Background(), Denylist, "ads.example.com"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "POST /profiles/abc123/denylist" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("key = %q", gotKey)
	}
	if gotContentType != "application/json;charset=utf-8" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotBody["id"] != "ads.example.com" || gotBody["active"] != true {
		t.Errorf("body = %v", gotBody)
	}
}

func TestDeleteListEntry(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteListEntry(context.Background(), Allowlist, "cdn.example.com"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "DELETE /profiles/abc123/allowlist/cdn.example.com" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestMissingCredential(t *testing.T) {
	c := New("http://unused", func() string { return "" }, func() string { return "abc123" })
	err := c.CreateListEntry(context.Background(), Denylist, "a.com")
	if !errors.Is(err, apperr.ErrMissingCredential) {
		t.Errorf("err = %v, want ErrMissingCredential", err)
	}
}

func TestMissingProfile(t *testing.T) {
	c := New("http://unused", func() string { return "key" }, func() string { return "" })
	err := c.CreateListEntry(context.Background(), Denylist, "a.com")
	if !errors.Is(err, apperr.ErrMissingProfile) {
		t.Errorf("err = %v, want ErrMissingProfile", err)
	}
}

func TestNon2xxBecomesRequestError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := c.CreateListEntry(context.Background(), Denylist, "a.com")
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequestError", err)
	}
	if reqErr.Status != http.StatusForbidden {
		t.Errorf("status = %d", reqErr.Status)
	}
}

func TestProbeUsesGivenKey(t *testing.T) {
	var gotKey string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte(`{"data":{}}`))
	})

	if err := c.Probe(context.Background(), "candidate-key"); err != nil {
		t.Fatal(err)
	}
	if gotKey != "candidate-key" {
		t.Errorf("probe used key %q, want candidate-key", gotKey)
	}
}

func TestFetchSectionUnwrapsData(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/abc123/privacy" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"blocklists":[{"id":"oisd"}]}}`))
	})

	raw, err := c.FetchSection(context.Background(), "privacy")
	if err != nil {
		t.Fatal(err)
	}
	var section map[string]any
	if err := json.Unmarshal(raw, &section); err != nil {
		t.Fatal(err)
	}
	if _, ok := section["blocklists"]; !ok {
		t.Errorf("section = %v", section)
	}
}

func TestDownloadLogsCSV(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/abc123/logs/download" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte("domain,reasons\nads.com,blacklist:oisd\n"))
	})

	raw, err := c.DownloadLogsCSV(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) == 0 {
		t.Error("empty CSV body")
	}
}
