// Package classify implements the pure visibility and decoration engine
// for log rows. It combines page-rendered signals, the domain action
// ledger, and the filter flags into a Decision; it performs no I/O.
package classify

import (
	"regexp"
	"strings"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// Signals are the row facts the host page renders. The page contract is
// external: a domain text node, a blocked-reason indicator, a whitelist
// border color, and an optional reason tooltip.
type Signals struct {
	Domain          string `json:"domain"`
	BlockedIcon     bool   `json:"blockedIcon"`
	WhitelistBorder bool   `json:"whitelistBorder"`
	ReasonTooltip   string `json:"reasonTooltip,omitempty"`
}

// Border styles and colors for ledger decoration.
const (
	StyleSolid  = "solid"
	StyleDotted = "dotted"

	ColorDanger  = "danger"
	ColorSuccess = "success"
)

// Border describes the decoration drawn for a row with a ledger record:
// solid for root-level actions, dotted for full-domain ones; danger for
// deny, success for allow.
type Border struct {
	Style string `json:"style"`
	Color string `json:"color"`
}

// Decision is the classification outcome for one row.
type Decision struct {
	Visible   bool    `json:"visible"`
	Border    *Border `json:"border,omitempty"`
	Blocklist string  `json:"blocklist,omitempty"`
}

// Equal reports whether two decisions are equivalent, comparing borders
// by value.
func (d Decision) Equal(o Decision) bool {
	if d.Visible != o.Visible || d.Blocklist != o.Blocklist {
		return false
	}
	if (d.Border == nil) != (o.Border == nil) {
		return false
	}
	return d.Border == nil || *d.Border == *o.Border
}

// Ledger is the lookup the engine needs from the action ledger: the
// record for the exact domain, falling back to its root.
type Ledger interface {
	Lookup(dom, rootDom string) (state.ActionRecord, bool)
}

// HiddenMatcher reports whether a domain matches the hidden set.
type HiddenMatcher interface {
	HiddenMatch(dom string) bool
}

var blockedByRe = regexp.MustCompile(`(?i)blocked by\s+(.+)`)

// Evaluate classifies one row. rootDom must be the row domain's
// registrable root (see the domain package).
//
// Visibility is a conjunction of veto conditions: each active filter may
// only turn visibility off, never back on, so evaluation order does not
// matter.
func Evaluate(sig Signals, rootDom string, filters state.Filters, ledger Ledger, hidden HiddenMatcher) Decision {
	dec := Decision{Visible: true}

	rec, hasRec := ledger.Lookup(sig.Domain, rootDom)
	if hasRec {
		style := StyleDotted
		if rec.Level == state.LevelRoot {
			style = StyleSolid
		}
		color := ColorSuccess
		if rec.Type == state.ActionDeny {
			color = ColorDanger
		}
		dec.Border = &Border{Style: style, Color: color}
	}

	if m := blockedByRe.FindStringSubmatch(sig.ReasonTooltip); m != nil {
		dec.Blocklist = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), "."))
	}

	isBlocked := sig.BlockedIcon || (hasRec && rec.Type == state.ActionDeny)
	isAllowed := sig.WhitelistBorder || (hasRec && rec.Type == state.ActionAllow)

	if filters.HideList && hidden.HiddenMatch(sig.Domain) {
		dec.Visible = false
	}
	if filters.HideBlocked && isBlocked {
		dec.Visible = false
	}
	if filters.ShowOnlyWhitelisted && !isAllowed {
		dec.Visible = false
	}
	if filters.ShowOnlyBlocked && !(isBlocked && !isAllowed) {
		dec.Visible = false
	}

	return dec
}
