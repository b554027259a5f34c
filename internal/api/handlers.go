package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/actions"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/domain"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/gateway"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/handoff"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/listing"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/logview"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/preload"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/sse"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// Handler holds API route handlers.
type Handler struct {
	st        *state.State
	feed      *logview.Feed
	watcher   *logview.Watcher
	svc       *actions.Service
	preloader *preload.Controller
	machine   *handoff.Machine
	scroller  *sse.Scroller
}

// NewHandler creates a new Handler.
func NewHandler(
	st *state.State,
	feed *logview.Feed,
	watcher *logview.Watcher,
	svc *actions.Service,
	preloader *preload.Controller,
	machine *handoff.Machine,
	scroller *sse.Scroller,
) *Handler {
	return &Handler{
		st:        st,
		feed:      feed,
		watcher:   watcher,
		svc:       svc,
		preloader: preloader,
		machine:   machine,
		scroller:  scroller,
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	return true
}

// ListRows handles GET /api/rows.
//
//	@Summary		Current classified view of the observed log rows
//	@Tags			rows
//	@Produce		json
//	@Success		200	{object}	RowsResponse
//	@Security		BearerAuth
//	@Router			/rows [get]
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RowsResponse{Rows: h.watcher.Snapshot()})
}

// AppendRows handles POST /api/rows.
//
//	@Summary		Append rows observed by the browser shim
//	@Tags			rows
//	@Accept			json
//	@Param			body	body	AppendRowsRequest	true	"Observed rows"
//	@Success		202
//	@Security		BearerAuth
//	@Router			/rows [post]
func (h *Handler) AppendRows(w http.ResponseWriter, r *http.Request) {
	var req AppendRowsRequest
	if !readJSON(w, r, &req) {
		return
	}
	h.feed.Append(req.Rows...)
	w.WriteHeader(http.StatusAccepted)
}

// GetFilters handles GET /api/filters.
//
//	@Summary		Current filter toggle state
//	@Tags			filters
//	@Produce		json
//	@Success		200	{object}	state.Filters
//	@Security		BearerAuth
//	@Router			/filters [get]
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Filters())
}

// ToggleFilter handles POST /api/filters/{key}/toggle.
//
//	@Summary		Toggle one filter, applying mutual-exclusion rules
//	@Tags			filters
//	@Produce		json
//	@Param			key	path		string	true	"Filter key"	Enums(hideList, hideBlocked, showOnlyBlocked, showOnlyWhitelisted, autoRefresh)
//	@Success		200	{object}	state.Filters
//	@Security		BearerAuth
//	@Router			/filters/{key}/toggle [post]
func (h *Handler) ToggleFilter(w http.ResponseWriter, r *http.Request) {
	filters, err := h.st.ToggleFilter(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.watcher.Reclassify()
	writeJSON(w, http.StatusOK, filters)
}

// ListHidden handles GET /api/hidden.
//
//	@Summary		List hidden-domain substrings
//	@Tags			hidden
//	@Produce		json
//	@Success		200	{object}	HiddenResponse
//	@Security		BearerAuth
//	@Router			/hidden [get]
func (h *Handler) ListHidden(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HiddenResponse{Domains: h.st.Hidden()})
}

// HideDomain handles POST /api/hidden.
//
//	@Summary		Hide a domain from the log view
//	@Tags			hidden
//	@Accept			json
//	@Param			body	body	DomainRequest	true	"Domain to hide"
//	@Success		200		{object}	HiddenResponse
//	@Security		BearerAuth
//	@Router			/hidden [post]
func (h *Handler) HideDomain(w http.ResponseWriter, r *http.Request) {
	var req DomainRequest
	if !readJSON(w, r, &req) {
		return
	}
	dom := strings.TrimSpace(req.Domain)
	if dom == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("domain required"))
		return
	}
	if err := h.st.HideDomain(dom); err != nil {
		writeError(w, err)
		return
	}
	h.watcher.Reclassify()
	writeJSON(w, http.StatusOK, HiddenResponse{Domains: h.st.Hidden()})
}

// ImportHidden handles POST /api/hidden/import.
//
//	@Summary		Merge a list of domains into the hidden set
//	@Tags			hidden
//	@Accept			json
//	@Param			body	body	ImportHiddenRequest	true	"Domains to merge"
//	@Success		200		{object}	HiddenResponse
//	@Security		BearerAuth
//	@Router			/hidden/import [post]
func (h *Handler) ImportHidden(w http.ResponseWriter, r *http.Request) {
	var req ImportHiddenRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.st.ImportHidden(req.Domains); err != nil {
		writeError(w, err)
		return
	}
	h.watcher.Reclassify()
	writeJSON(w, http.StatusOK, HiddenResponse{Domains: h.st.Hidden()})
}

// ClearHidden handles DELETE /api/hidden.
//
//	@Summary		Reset the hidden set to its seed
//	@Tags			hidden
//	@Produce		json
//	@Success		200	{object}	HiddenResponse
//	@Security		BearerAuth
//	@Router			/hidden [delete]
func (h *Handler) ClearHidden(w http.ResponseWriter, r *http.Request) {
	if err := h.st.ClearHidden(); err != nil {
		writeError(w, err)
		return
	}
	h.watcher.Reclassify()
	writeJSON(w, http.StatusOK, HiddenResponse{Domains: h.st.Hidden()})
}

// DenyDomain handles POST /api/domains/deny.
//
//	@Summary		Add a domain to the profile denylist and hide it locally
//	@Tags			domains
//	@Accept			json
//	@Param			body	body	DomainRequest	true	"Domain to deny"
//	@Success		204
//	@Failure		412	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/domains/deny [post]
func (h *Handler) DenyDomain(w http.ResponseWriter, r *http.Request) {
	h.sendDomain(w, r, state.ActionDeny)
}

// AllowDomain handles POST /api/domains/allow.
//
//	@Summary		Add a domain to the profile allowlist and hide it locally
//	@Tags			domains
//	@Accept			json
//	@Param			body	body	DomainRequest	true	"Domain to allow"
//	@Success		204
//	@Failure		412	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/domains/allow [post]
func (h *Handler) AllowDomain(w http.ResponseWriter, r *http.Request) {
	h.sendDomain(w, r, state.ActionAllow)
}

func (h *Handler) sendDomain(w http.ResponseWriter, r *http.Request, mode state.ActionType) {
	var req DomainRequest
	if !readJSON(w, r, &req) {
		return
	}
	dom := strings.TrimSpace(req.Domain)
	if dom == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("domain required"))
		return
	}
	if err := h.svc.Send(r.Context(), dom, mode); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDomain handles DELETE /api/domains/{list}/{domain}.
//
//	@Summary		Remove a domain from a profile list
//	@Tags			domains
//	@Param			list	path	string	true	"List name"	Enums(denylist, allowlist)
//	@Param			domain	path	string	true	"List entry"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/domains/{list}/{domain} [delete]
func (h *Handler) RemoveDomain(w http.ResponseWriter, r *http.Request) {
	list := gateway.ListType(chi.URLParam(r, "list"))
	if !list.Valid() {
		writeError(w, apperr.ErrNotFound)
		return
	}
	dom := chi.URLParam(r, "domain")
	if err := h.svc.Remove(r.Context(), dom, list); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActions handles GET /api/actions.
//
//	@Summary		Full allow/deny action ledger
//	@Tags			domains
//	@Produce		json
//	@Success		200	{object}	ActionsResponse
//	@Security		BearerAuth
//	@Router			/actions [get]
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ActionsResponse{Actions: h.st.Actions()})
}

// LookupAction handles GET /api/actions/lookup.
//
//	@Summary		Resolve the effective ledger record for a domain
//	@Tags			domains
//	@Produce		json
//	@Param			domain	query		string	true	"Domain to resolve"
//	@Success		200		{object}	LookupResponse
//	@Security		BearerAuth
//	@Router			/actions/lookup [get]
func (h *Handler) LookupAction(w http.ResponseWriter, r *http.Request) {
	dom := strings.TrimSpace(r.URL.Query().Get("domain"))
	if dom == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("domain required"))
		return
	}
	rootDom := domain.Root(dom)
	resp := LookupResponse{Domain: dom, Root: rootDom}
	if rec, ok := h.st.Lookup(dom, rootDom); ok {
		resp.Record = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

// PreloadStatus handles GET /api/preload.
//
//	@Summary		State of the preload session, if one is running
//	@Tags			preload
//	@Produce		json
//	@Success		200	{object}	PreloadStatusResponse
//	@Security		BearerAuth
//	@Router			/preload [get]
func (h *Handler) PreloadStatus(w http.ResponseWriter, r *http.Request) {
	resp := PreloadStatusResponse{}
	if s := h.preloader.Active(); s != nil {
		resp.Active = true
		resp.SessionID = s.ID
		resp.Target = s.Target
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartPreload handles POST /api/preload.
//
//	@Summary		Start a forced-scroll preload session
//	@Tags			preload
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartPreloadRequest	true	"Cycle count"
//	@Success		202		{object}	PreloadStatusResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preload [post]
func (h *Handler) StartPreload(w http.ResponseWriter, r *http.Request) {
	var req StartPreloadRequest
	if !readJSON(w, r, &req) {
		return
	}
	s, err := h.preloader.Start(r.Context(), req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	if s == nil {
		// Unknown count is ignored rather than rejected.
		writeJSON(w, http.StatusAccepted, PreloadStatusResponse{})
		return
	}
	writeJSON(w, http.StatusAccepted, PreloadStatusResponse{
		Active:    true,
		SessionID: s.ID,
		Target:    s.Target,
	})
}

// CancelPreload handles DELETE /api/preload.
//
//	@Summary		Cancel the running preload session
//	@Tags			preload
//	@Success		204
//	@Security		BearerAuth
//	@Router			/preload [delete]
func (h *Handler) CancelPreload(w http.ResponseWriter, r *http.Request) {
	h.preloader.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// ReportScroll handles POST /api/scroll.
//
//	@Summary		Report the shim's current scroll offset
//	@Tags			preload
//	@Accept			json
//	@Param			body	body	ScrollReport	true	"Current offset"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/scroll [post]
func (h *Handler) ReportScroll(w http.ResponseWriter, r *http.Request) {
	var req ScrollReport
	if !readJSON(w, r, &req) {
		return
	}
	h.scroller.ReportOffset(req.Offset)
	w.WriteHeader(http.StatusNoContent)
}

// HandoffState handles GET /api/handoff.
//
//	@Summary		Current credential handoff state
//	@Tags			handoff
//	@Produce		json
//	@Success		200	{object}	HandoffStateResponse
//	@Security		BearerAuth
//	@Router			/handoff [get]
func (h *Handler) HandoffState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HandoffStateResponse{State: string(h.machine.Current())})
}

// HandoffBegin handles POST /api/handoff.
//
//	@Summary		Start the guided credential handoff
//	@Tags			handoff
//	@Produce		json
//	@Success		200	{object}	HandoffStateResponse
//	@Security		BearerAuth
//	@Router			/handoff [post]
func (h *Handler) HandoffBegin(w http.ResponseWriter, r *http.Request) {
	h.machine.Begin()
	writeJSON(w, http.StatusOK, HandoffStateResponse{State: string(h.machine.Current())})
}

// HandoffConfirm handles POST /api/handoff/confirm.
//
//	@Summary		Confirm navigation to the account page
//	@Tags			handoff
//	@Produce		json
//	@Success		200	{object}	HandoffStateResponse
//	@Security		BearerAuth
//	@Router			/handoff/confirm [post]
func (h *Handler) HandoffConfirm(w http.ResponseWriter, r *http.Request) {
	h.machine.ConfirmNavigation()
	writeJSON(w, http.StatusOK, HandoffStateResponse{State: string(h.machine.Current())})
}

// HandoffCapture handles POST /api/handoff/capture.
//
//	@Summary		Deposit a credential captured on the account page
//	@Tags			handoff
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialRequest	true	"Captured credential"
//	@Success		200		{object}	HandoffStateResponse
//	@Security		BearerAuth
//	@Router			/handoff/capture [post]
func (h *Handler) HandoffCapture(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.machine.Capture(req.Key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HandoffStateResponse{State: string(h.machine.Current())})
}

// HandoffManual handles POST /api/handoff/manual.
//
//	@Summary		Submit a manually pasted credential
//	@Tags			handoff
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialRequest	true	"Pasted credential"
//	@Success		200		{object}	HandoffStateResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/handoff/manual [post]
func (h *Handler) HandoffManual(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := h.machine.ManualSubmit(r.Context(), req.Key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HandoffStateResponse{State: string(h.machine.Current())})
}

// HandoffAccountSignals handles POST /api/handoff/account.
//
//	@Summary		Derive the account-page state from observed signals
//	@Tags			handoff
//	@Accept			json
//	@Produce		json
//	@Param			body	body		handoff.AccountSignals	true	"Observed page signals"
//	@Success		200		{object}	AccountStateResponse
//	@Security		BearerAuth
//	@Router			/handoff/account [post]
func (h *Handler) HandoffAccountSignals(w http.ResponseWriter, r *http.Request) {
	var sig handoff.AccountSignals
	if !readJSON(w, r, &sig) {
		return
	}
	st := handoff.DeriveAccountState(sig)
	writeJSON(w, http.StatusOK, AccountStateResponse{State: string(st)})
}

// ExportHosts handles GET /api/export/hosts.
//
//	@Summary		Download blocked domains from the logs as a hosts file
//	@Tags			export
//	@Produce		plain
//	@Success		200	{string}	string
//	@Failure		412	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export/hosts [get]
func (h *Handler) ExportHosts(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.ExportHosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="nextdns_blocked_hosts.txt"`)
	if _, err := w.Write(body); err != nil {
		slog.Error("hosts export write failed", slog.String("error", err.Error()))
	}
}

// ExportHidden handles GET /api/export/hidden.
//
//	@Summary		Download the hidden-domain list as JSON
//	@Tags			export
//	@Produce		json
//	@Success		200	{object}	HiddenResponse
//	@Security		BearerAuth
//	@Router			/export/hidden [get]
func (h *Handler) ExportHidden(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.ExportHidden()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="nextdns_hidden_domains.json"`)
	if _, err := w.Write(body); err != nil {
		slog.Error("hidden export write failed", slog.String("error", err.Error()))
	}
}

// ExportProfile handles GET /api/export/profile.
//
//	@Summary		Download a trimmed profile configuration backup
//	@Tags			export
//	@Produce		json
//	@Success		200	{string}	string
//	@Failure		412	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export/profile [get]
func (h *Handler) ExportProfile(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.ExportProfile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="nextdns_profile_backup.json"`)
	if _, err := w.Write(body); err != nil {
		slog.Error("profile export write failed", slog.String("error", err.Error()))
	}
}

// GetListOptions handles GET /api/list/options.
//
//	@Summary		Current allow/deny list display options
//	@Tags			listing
//	@Produce		json
//	@Success		200	{object}	state.ListOptions
//	@Security		BearerAuth
//	@Router			/list/options [get]
func (h *Handler) GetListOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.ListOptions())
}

// ToggleListOption handles POST /api/list/options/{key}/toggle.
//
//	@Summary		Toggle one list display option
//	@Tags			listing
//	@Produce		json
//	@Param			key	path		string	true	"Option key"	Enums(boldRoot, lightenSubdomain, sortAZ, sortTLD, sortRoot)
//	@Success		200	{object}	state.ListOptions
//	@Security		BearerAuth
//	@Router			/list/options/{key}/toggle [post]
func (h *Handler) ToggleListOption(w http.ResponseWriter, r *http.Request) {
	opts, err := h.st.ToggleListOption(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// ListView handles POST /api/list/view.
//
//	@Summary		Order and style list entries per the current options
//	@Tags			listing
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ListViewRequest	true	"List entries"
//	@Success		200		{object}	ListViewResponse
//	@Security		BearerAuth
//	@Router			/list/view [post]
func (h *Handler) ListView(w http.ResponseWriter, r *http.Request) {
	var req ListViewRequest
	if !readJSON(w, r, &req) {
		return
	}
	opts := h.st.ListOptions()
	doms := make([]string, len(req.Domains))
	copy(doms, req.Domains)
	listing.Sort(doms, opts)

	entries := make([]listing.Styled, 0, len(doms))
	for _, dom := range doms {
		entries = append(entries, listing.Style(dom, opts))
	}
	writeJSON(w, http.StatusOK, ListViewResponse{Entries: entries})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Current panel settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	prefs := h.st.Prefs()
	profile := h.st.ProfileID()
	writeJSON(w, http.StatusOK, Settings{
		HasCredential: h.st.Credential() != "",
		ProfileID:     &profile,
		Prefs:         &prefs,
	})
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Update panel settings; absent fields keep their value
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Settings	true	"Fields to update"
//	@Success		200		{object}	Settings
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req Settings
	if !readJSON(w, r, &req) {
		return
	}
	if req.Credential != nil {
		if err := h.st.SetCredential(strings.TrimSpace(*req.Credential)); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.ProfileID != nil {
		if err := h.st.SetProfileID(strings.TrimSpace(*req.ProfileID)); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Prefs != nil {
		if err := h.st.SetPrefs(*req.Prefs); err != nil {
			writeError(w, err)
			return
		}
	}
	h.GetSettings(w, r)
}
