// Package export renders the downloadable file formats: a HOSTS-style
// block file from the logs CSV, the hidden-domain JSON list, and the
// pretty-printed full profile export with field projection.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/apperr"
)

// Hosts converts the logs CSV export into HOSTS-style text: one
// "0.0.0.0 <domain>" line per distinct domain whose reasons field
// mentions a blacklist/blocklist hit, in first-seen order.
//
// A CSV without the required columns aborts with a DataFormatError and
// produces no partial output.
func Hosts(csvText []byte) ([]byte, error) {
	r := csv.NewReader(strings.NewReader(string(csvText)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, &apperr.DataFormatError{Reason: "empty CSV export"}
	}
	domainIdx, reasonsIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "domain":
			domainIdx = i
		case "reasons":
			reasonsIdx = i
		}
	}
	if domainIdx == -1 || reasonsIdx == -1 {
		return nil, &apperr.DataFormatError{Reason: `CSV is missing "domain" or "reasons" column`}
	}

	seen := make(map[string]struct{})
	var lines []string
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if len(record) <= domainIdx || len(record) <= reasonsIdx {
			continue
		}
		reasons := strings.ToLower(record[reasonsIdx])
		if !strings.Contains(reasons, "blacklist") && !strings.Contains(reasons, "blocklist") {
			continue
		}
		dom := record[domainIdx]
		if dom == "" {
			continue
		}
		if _, ok := seen[dom]; ok {
			continue
		}
		seen[dom] = struct{}{}
		lines = append(lines, "0.0.0.0 "+dom)
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// HiddenList renders the hidden-domain set as a pretty JSON array.
func HiddenList(domains []string) ([]byte, error) {
	out, err := json.MarshalIndent(domains, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode hidden list: %w", err)
	}
	return out, nil
}

// Profile assembles the full profile export: a pretty-printed JSON
// object keyed by page name. Noisy sections are projected down to the
// fields worth re-importing:
//
//	privacy.blocklists        -> {id}
//	rewrites                  -> {name, content}
//	parentalcontrol.services  -> {id, active, recreation}
func Profile(sections map[string]json.RawMessage) ([]byte, error) {
	config := make(map[string]any, len(sections))
	for page, raw := range sections {
		var v any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("export: decode section %s: %w", page, err)
			}
		}
		config[page] = v
	}

	if privacy, ok := config["privacy"].(map[string]any); ok {
		if blocklists, ok := privacy["blocklists"].([]any); ok {
			privacy["blocklists"] = projectEach(blocklists, "id")
		}
	}
	if rewrites, ok := config["rewrites"].([]any); ok {
		config["rewrites"] = projectEach(rewrites, "name", "content")
	}
	if pc, ok := config["parentalcontrol"].(map[string]any); ok {
		if services, ok := pc["services"].([]any); ok {
			pc["services"] = projectEach(services, "id", "active", "recreation")
		}
	}

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode profile: %w", err)
	}
	return out, nil
}

// projectEach keeps only the named fields of every object in the list.
func projectEach(list []any, fields ...string) []any {
	out := make([]any, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		kept := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := obj[f]; ok {
				kept[f] = v
			}
		}
		out = append(out, kept)
	}
	return out
}
