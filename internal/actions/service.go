// Package actions coordinates remote list mutations with local state:
// the ledger, the hidden set, and reclassification only change after the
// remote call succeeds.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/domain"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/export"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/gateway"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// EventSink receives action events.
type EventSink interface {
	Publish(kind string, data any)
}

// Event kinds published by the service.
const (
	EventDomainSent  = "action.sent"
	EventListRemoved = "list.item.removed"
)

// Service applies the local-after-remote policy for domain actions and
// assembles the export payloads.
type Service struct {
	st         *state.State
	gw         *gateway.Client
	reclassify func()
	sink       EventSink
	logger     *slog.Logger
}

// New creates the action service.
func New(st *state.State, gw *gateway.Client, reclassify func(), sink EventSink, logger *slog.Logger) *Service {
	return &Service{st: st, gw: gw, reclassify: reclassify, sink: sink, logger: logger}
}

// Send posts dom to the profile's deny or allow list. Only on remote
// success does it hide the domain, record the ledger action (root level
// when dom equals its own root-domain computation, full otherwise),
// persist both, and trigger reclassification. On failure no local state
// changes.
func (s *Service) Send(ctx context.Context, dom string, mode state.ActionType) error {
	list := gateway.Denylist
	if mode == state.ActionAllow {
		list = gateway.Allowlist
	}
	bare := domain.StripWildcard(dom)

	if err := s.gw.CreateListEntry(ctx, list, bare); err != nil {
		return err
	}

	if err := s.st.HideDomain(dom); err != nil {
		return fmt.Errorf("actions: persist hidden set: %w", err)
	}
	level := state.LevelFull
	if domain.IsRoot(dom) {
		level = state.LevelRoot
	}
	if err := s.st.RecordAction(dom, mode, level); err != nil {
		return fmt.Errorf("actions: persist ledger: %w", err)
	}

	s.reclassify()
	if s.sink != nil {
		s.sink.Publish(EventDomainSent, map[string]string{
			"domain": dom,
			"list":   string(list),
		})
	}
	s.logger.Info("action recorded",
		slog.String("domain", dom),
		slog.String("list", string(list)),
		slog.String("level", string(level)))
	return nil
}

// Remove deletes dom from the given list. On success the ledger entry is
// cleared, persisted, reclassification runs, and a removal event lets a
// list-management page fade out the matching item.
func (s *Service) Remove(ctx context.Context, dom string, list gateway.ListType) error {
	if err := s.gw.DeleteListEntry(ctx, list, dom); err != nil {
		return err
	}

	if err := s.st.ClearAction(dom); err != nil {
		return fmt.Errorf("actions: persist ledger: %w", err)
	}

	s.reclassify()
	if s.sink != nil {
		s.sink.Publish(EventListRemoved, map[string]string{
			"domain": dom,
			"list":   string(list),
		})
	}
	s.logger.Info("action cleared", slog.String("domain", dom), slog.String("list", string(list)))
	return nil
}

// ExportHosts downloads the logs CSV and renders the HOSTS-style block
// file.
func (s *Service) ExportHosts(ctx context.Context) ([]byte, error) {
	csvText, err := s.gw.DownloadLogsCSV(ctx)
	if err != nil {
		return nil, err
	}
	return export.Hosts(csvText)
}

// ExportProfile fetches every export section and renders the projected
// profile document.
func (s *Service) ExportProfile(ctx context.Context) ([]byte, error) {
	sections := make(map[string]json.RawMessage, len(gateway.ExportSections))
	for _, page := range gateway.ExportSections {
		data, err := s.gw.FetchSection(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("actions: fetch %s: %w", page, err)
		}
		sections[page] = data
	}
	return export.Profile(sections)
}

// ExportHidden renders the hidden-domain list as JSON.
func (s *Service) ExportHidden() ([]byte, error) {
	return export.HiddenList(s.st.Hidden())
}
