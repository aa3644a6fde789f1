package audiocore

// SinkGroup is one SinkMap entry: a representative Sink whose format every
// member shares (per FormatEquivalent), and the non-empty stack of member
// sinks that filter endpoint feeds. Component C.
type SinkGroup struct {
	representative *Sink
	members        []*Sink
	endpoint       int // index into the FilterGraph's output endpoints, assigned at build time
}

// Representative is the sink whose format every member of the group shares.
func (g *SinkGroup) Representative() *Sink { return g.representative }

// Members returns the sinks in this group, in attach order.
func (g *SinkGroup) Members() []*Sink {
	out := make([]*Sink, len(g.members))
	copy(out, g.members)
	return out
}

// Endpoint is the filter-graph output index assigned to this group at the
// last successful build.
func (g *SinkGroup) Endpoint() int { return g.endpoint }

// SinkMap groups attached sinks by identical output-format fingerprint; each
// group is one filter-graph output branch (component C). Callers must hold
// the owning Playlist's coordination mutex for every method here.
type SinkMap struct {
	groups     []*SinkGroup
	generation int // bumped on every structural change (group added/removed)
}

// Count returns the cached number of distinct groups (sink_map_count).
func (m *SinkMap) Count() int { return len(m.groups) }

// Generation returns a counter bumped every time the set of groups changes,
// used by the filter graph builder's rebuild decision (§4.D: "any change to
// the set of groups").
func (m *SinkMap) Generation() int { return m.generation }

// Groups returns the current groups, newest first: add prepends each new
// group.
func (m *SinkMap) Groups() []*SinkGroup {
	out := make([]*SinkGroup, len(m.groups))
	copy(out, m.groups)
	return out
}

// add places sink into the first group whose representative is
// FormatEquivalent, or creates a new group with sink as representative
// (§4.C). New groups are prepended so the common case of a single,
// just-attached sink becomes group zero.
func (m *SinkMap) add(sink *Sink) {
	for _, g := range m.groups {
		if sink.formatEquivalent(g.representative) {
			g.members = append(g.members, sink)
			return
		}
	}
	m.groups = append([]*SinkGroup{{representative: sink, members: []*Sink{sink}}}, m.groups...)
	m.generation++
}

// remove takes sink out of whichever group contains it, dropping the group
// entirely (and decrementing Count()) if that empties it (§4.C).
func (m *SinkMap) remove(sink *Sink) {
	for i, g := range m.groups {
		for j, member := range g.members {
			if member != sink {
				continue
			}
			g.members = append(g.members[:j], g.members[j+1:]...)
			if len(g.members) == 0 {
				m.groups = append(m.groups[:i], m.groups[i+1:]...)
				m.generation++
			}
			return
		}
	}
}

// forEachSink visits every attached sink across every group.
func (m *SinkMap) forEachSink(fn func(*Sink)) {
	for _, g := range m.groups {
		for _, s := range g.members {
			fn(s)
		}
	}
}
