// Package domain provides pure hostname helpers shared by the ledger,
// the classification engine, and the list-page logic.
package domain

import "strings"

// slds is the small set of known second-level labels under which the
// registrable domain keeps three labels (e.g. example.co.uk).
// Deliberately not a full public-suffix list.
var slds = map[string]struct{}{
	"co": {}, "com": {}, "org": {}, "gov": {},
	"edu": {}, "net": {}, "ac": {}, "ltd": {},
}

// Root returns the registrable domain for a hostname using the simplified
// heuristic: keep the last three labels when the second-to-last is a known
// second-level label, else the last two. Root is idempotent.
func Root(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return name
	}
	if len(parts) > 2 {
		if _, ok := slds[parts[len(parts)-2]]; ok {
			return strings.Join(parts[len(parts)-3:], ".")
		}
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// IsRoot reports whether name equals its own root-domain computation.
func IsRoot(name string) bool {
	return name == Root(name)
}

// StripWildcard removes a single leading "*." label, the shape the host
// page uses for wildcard entries. The remote API only accepts bare names.
func StripWildcard(name string) string {
	return strings.TrimPrefix(name, "*.")
}

// SplitRoot splits a hostname into its subdomain prefix (possibly empty,
// trailing dot included) and its registrable suffix.
func SplitRoot(name string) (sub, root string) {
	root = Root(name)
	sub = name[:len(name)-len(root)]
	return sub, root
}

// TLDKey returns the label-reversed form of a hostname ("a.example.com"
// becomes "com.example.a"), used to sort by TLD.
func TLDKey(name string) string {
	parts := strings.Split(name, ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
