package provider

// Registrar is the subset of broker.Broker's surface Network needs to
// wire providers in at boot. Kept as an interface here (rather than
// importing the broker package) to avoid a provider<->broker import
// cycle: *broker.Broker satisfies this structurally.
type Registrar interface {
	RegisterProvider(p Provider, includeCapabilities, dormant bool) error
}

// Entry declares one provider's registration mode, so a whole set of
// providers can be wired into the system declaratively at boot.
type Entry struct {
	Provider            Provider
	IncludeCapabilities bool
	Dormant             bool
}

// Network is a small declarative registry of providers, registered into a
// Registrar (typically a *broker.Broker) in one call by Bootstrap, instead
// of ad hoc one-off RegisterProvider calls scattered through startup code.
type Network struct {
	entries []Entry
}

func NewNetwork() *Network {
	return &Network{}
}

// Add declares a provider for later bootstrap. Dormant providers
// (night agents) register into the dormant capability table only.
func (n *Network) Add(p Provider, includeCapabilities, dormant bool) *Network {
	n.entries = append(n.entries, Entry{Provider: p, IncludeCapabilities: includeCapabilities, Dormant: dormant})
	return n
}

// Bootstrap registers every declared provider against registrar, in
// declaration order.
func (n *Network) Bootstrap(registrar Registrar) error {
	for _, entry := range n.entries {
		if err := registrar.RegisterProvider(entry.Provider, entry.IncludeCapabilities, entry.Dormant); err != nil {
			return err
		}
	}
	return nil
}
