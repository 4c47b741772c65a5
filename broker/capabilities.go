package broker

import "sync"

// capabilityRegistry is the active/dormant capability_name -> providers
// map. Night agents register into the dormant table only, so their
// capabilities are invisible to broadcast until explicitly activated.
type capabilityRegistry struct {
	mu      sync.RWMutex
	active  map[string][]string
	dormant map[string][]string
	// providerCapabilities remembers which capability names a given
	// provider advertised, so activate/deactivate can move exactly that
	// provider's entries without disturbing others.
	providerCapabilities map[string][]string
}

func newCapabilityRegistry() *capabilityRegistry {
	return &capabilityRegistry{
		active:               make(map[string][]string),
		dormant:              make(map[string][]string),
		providerCapabilities: make(map[string][]string),
	}
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}

func removeFrom(list []string, name string) []string {
	out := list[:0:0]
	for _, existing := range list {
		if existing != name {
			out = append(out, existing)
		}
	}
	return out
}

// register adds provider's capabilities into the active table, or the
// dormant table if dormant is true. Idempotent: re-registering the same
// provider for the same capability does not duplicate the entry.
func (c *capabilityRegistry) register(providerName string, capabilities []string, dormant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := c.active
	if dormant {
		table = c.dormant
	}
	for _, cap := range capabilities {
		table[cap] = appendUnique(table[cap], providerName)
	}
	c.providerCapabilities[providerName] = capabilities
}

// activate moves providerName's capability entries from dormant to
// active.
func (c *capabilityRegistry) activate(providerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	caps := c.providerCapabilities[providerName]
	for _, cap := range caps {
		c.dormant[cap] = removeFrom(c.dormant[cap], providerName)
		c.active[cap] = appendUnique(c.active[cap], providerName)
	}
}

// deactivate moves providerName's capability entries from active to
// dormant.
func (c *capabilityRegistry) deactivate(providerName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	caps := c.providerCapabilities[providerName]
	for _, cap := range caps {
		c.active[cap] = removeFrom(c.active[cap], providerName)
		c.dormant[cap] = appendUnique(c.dormant[cap], providerName)
	}
}

// providers returns the active providers advertising capability, in
// insertion (registration) order. The returned slice is a defensive copy.
func (c *capabilityRegistry) providers(capability string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := c.active[capability]
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}
