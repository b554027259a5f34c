// Package listing implements the allow/deny list page logic: splitting
// entries for root/subdomain styling and ordering them per the persisted
// list-page options. Rendering happens in the shim; this package only
// decides.
package listing

import (
	"sort"
	"strings"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/domain"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
)

// Styled is one list entry split for display.
type Styled struct {
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain"`
	Root      string `json:"root"`
	BoldRoot  bool   `json:"boldRoot"`
	Lighten   bool   `json:"lightenSubdomain"`
}

// Style splits a list entry per the styling options.
func Style(dom string, opts state.ListOptions) Styled {
	sub, root := domain.SplitRoot(dom)
	return Styled{
		Domain:    dom,
		Subdomain: sub,
		Root:      root,
		BoldRoot:  opts.BoldRoot,
		Lighten:   opts.LightenSubdomain,
	}
}

// Sort orders list entries in place per the sort options. With no sort
// flag set the original page order is kept.
func Sort(doms []string, opts state.ListOptions) {
	if !opts.SortAZ && !opts.SortTLD && !opts.SortRoot {
		return
	}
	sort.SliceStable(doms, func(i, j int) bool {
		return Less(doms[i], doms[j], opts)
	})
}

// Less is the comparator behind Sort: root-domain grouping first when
// requested, then TLD-reversed or plain lexicographic order.
func Less(a, b string, opts state.ListOptions) bool {
	if opts.SortRoot {
		ra, rb := domain.Root(a), domain.Root(b)
		if ra != rb {
			return ra < rb
		}
	}
	if opts.SortTLD {
		return domain.TLDKey(a) < domain.TLDKey(b)
	}
	return strings.Compare(a, b) < 0
}
