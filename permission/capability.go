package permission

import "strings"

// Capability maps an abstract API-key capability to the route path prefixes it owns.
type Capability struct {
	Name     string
	Prefixes []string
}

// CapabilityMap is an ordered capability table. Lookups walk it in
// declaration order and return the first capability owning a path.
type CapabilityMap []Capability

// DefaultCapabilities is the capability table used when none is configured.
var DefaultCapabilities = CapabilityMap{
	{Name: "trade", Prefixes: []string{"/api/exchange/order", "/api/ext/ecosystem/order"}},
	{Name: "futures", Prefixes: []string{"/api/ext/futures"}},
	{Name: "deposit", Prefixes: []string{"/api/finance/deposit"}},
	{Name: "withdraw", Prefixes: []string{"/api/finance/withdraw"}},
	{Name: "transfer", Prefixes: []string{"/api/finance/transfer"}},
	{Name: "payment", Prefixes: []string{"/api/ext/payment/intent"}},
}

// Lookup returns the capability owning path, if any.
func (m CapabilityMap) Lookup(path string) (string, bool) {
	for _, c := range m {
		for _, prefix := range c.Prefixes {
			if prefix != "" && strings.HasPrefix(path, prefix) {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Clone returns a deep copy of m.
func (m CapabilityMap) Clone() CapabilityMap {
	if m == nil {
		return nil
	}
	out := make(CapabilityMap, len(m))
	for i, c := range m {
		out[i] = Capability{Name: c.Name, Prefixes: append([]string(nil), c.Prefixes...)}
	}
	return out
}
