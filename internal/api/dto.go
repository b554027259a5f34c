package api

import (
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/listing"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/logview"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// RowsResponse wraps the classified row snapshot.
type RowsResponse struct {
	Rows []logview.Classified `json:"rows" validate:"required"`
}

// AppendRowsRequest is the shim's batch of newly observed rows.
type AppendRowsRequest struct {
	Rows []logview.Row `json:"rows" validate:"required"`
}

// DomainRequest names a domain to act on.
type DomainRequest struct {
	Domain string `json:"domain" example:"ads.example.com" validate:"required"`
}

// ImportHiddenRequest is a JSON list of domains to merge into the
// hidden set.
type ImportHiddenRequest struct {
	Domains []string `json:"domains" validate:"required"`
}

// HiddenResponse wraps the hidden-domain list.
type HiddenResponse struct {
	Domains []string `json:"domains" validate:"required"`
}

// ActionsResponse is the whole ledger mapping.
type ActionsResponse struct {
	Actions map[string]state.ActionRecord `json:"actions" validate:"required"`
}

// LookupResponse is one ledger lookup result.
type LookupResponse struct {
	Domain string              `json:"domain"`
	Root   string              `json:"root"`
	Record *state.ActionRecord `json:"record,omitempty"`
}

// StartPreloadRequest asks for count forced-scroll cycles.
type StartPreloadRequest struct {
	Count int `json:"count" example:"10" validate:"required"`
}

// PreloadStatusResponse describes the active session, if any.
type PreloadStatusResponse struct {
	Active    bool   `json:"active"`
	SessionID string `json:"sessionId,omitempty"`
	Target    int    `json:"target,omitempty"`
}

// ScrollReport is the shim's current scroll offset.
type ScrollReport struct {
	Offset int `json:"offset"`
}

// CredentialRequest carries a captured or pasted credential.
type CredentialRequest struct {
	Key string `json:"key" validate:"required"`
}

// HandoffStateResponse reports the machine state.
type HandoffStateResponse struct {
	State string `json:"state"`
}

// AccountStateResponse reports the derived account-page sub-state.
type AccountStateResponse struct {
	State string `json:"state"`
}

// ListViewRequest is the list page's current entries.
type ListViewRequest struct {
	Domains []string `json:"domains" validate:"required"`
}

// ListViewResponse is the ordered, styled rendition of the entries.
type ListViewResponse struct {
	Entries []listing.Styled `json:"entries" validate:"required"`
}

// Settings is the settings read/update payload. Pointer fields are
// optional on update; absent ones keep their value.
type Settings struct {
	HasCredential bool         `json:"hasCredential"`
	Credential    *string      `json:"credential,omitempty"`
	ProfileID     *string      `json:"profileId,omitempty"`
	Prefs         *state.Prefs `json:"prefs,omitempty"`
}
