package bridge

// DiscoveryEventKind distinguishes the three inbound discovery events named
// in the specification's "Discovery contract".
type DiscoveryEventKind int

const (
	BridgeUp DiscoveryEventKind = iota
	BridgeDown
	BridgeStatsUpdate
)

// DiscoveryEvent is the sole source of truth for registry contents: the
// signaling/presence transport that produces these is out of scope for
// this module.
type DiscoveryEvent struct {
	Kind  DiscoveryEventKind
	JID   string
	Stats Stats
}

// DiscoverySource feeds discovery events to a Registry. Run blocks until
// the source is exhausted, applying each event as it arrives.
type DiscoverySource interface {
	Run(apply func(DiscoveryEvent)) error
}

// StaticDiscoverySource replays a fixed list of bridges once. Useful for
// bootstrapping a registry in tests or a minimal standalone deployment
// that has no real presence watcher wired up.
type StaticDiscoverySource struct {
	Bridges []DiscoveryEvent
}

// Run applies every configured event once, in order, then returns.
func (s *StaticDiscoverySource) Run(apply func(DiscoveryEvent)) error {
	for _, ev := range s.Bridges {
		apply(ev)
	}
	return nil
}

// ChannelDiscoverySource wraps a channel of events, the shape a real
// presence watcher (XMPP MUC presence, DNS-SD, etc.) would feed once
// wired up outside this module.
type ChannelDiscoverySource struct {
	Events <-chan DiscoveryEvent
}

// Run applies events from the channel until it is closed.
func (s *ChannelDiscoverySource) Run(apply func(DiscoveryEvent)) error {
	for ev := range s.Events {
		apply(ev)
	}
	return nil
}

// Apply routes a single discovery event into the registry.
func (r *Registry) Apply(ev DiscoveryEvent) {
	switch ev.Kind {
	case BridgeUp, BridgeStatsUpdate:
		r.Add(ev.JID, ev.Stats)
	case BridgeDown:
		r.Remove(ev.JID)
	}
}
