package audiocore

// filterGraphState tracks the Playlist-owned FilterGraph instance and the
// driving values it was last built from, so maybeRebuild can detect changes
// per §4.D.
type filterGraphState struct {
	graph FilterGraph

	built            bool
	lastInput        AudioFormat
	lastGain         float64
	lastGeneration   int
	rebuildRequested bool
}

// buildTopology constructs the fixed-shape graph description from the
// current input format, effective gain, and sink map (§4.D):
//
//	input → [gain] → [split N] → for each group: [format-convert or passthrough] → endpoint
//
// clampMin/clampMax bound the gain before the omission test; callers outside
// this package's tests go through Playlist.maybeRebuild, which supplies the
// values configured under Engine.GainClamp{Min,Max} (defaulting to the
// spec's fixed [0.0, 1.0]).
func buildTopology(input AudioFormat, effectiveGain float64, sinkMap *SinkMap, clampMin, clampMax float64) GraphTopology {
	clamped := effectiveGain
	if clamped < clampMin {
		clamped = clampMin
	}
	if clamped > clampMax {
		clamped = clampMax
	}

	groups := sinkMap.Groups()
	topology := GraphTopology{
		Input:        input,
		GainPresent:  clamped > clampMin && clamped < clampMax,
		Gain:         clamped,
		SplitPresent: len(groups) >= 2,
		Endpoints:    make([]GraphEndpoint, len(groups)),
	}

	for i, g := range groups {
		rep := g.representative
		topology.Endpoints[i] = GraphEndpoint{
			Group:             g,
			Format:            rep.Format,
			DisableResample:   rep.DisableResample,
			BufferSampleCount: rep.BufferSampleCount,
		}
		g.endpoint = i
	}

	return topology
}

// maybeRebuild tears down and reconstructs the filter graph if the input
// format, effective gain, or sink map identity/count changed since the last
// successful build, or if rebuild_flag is set (§4.D). On success it
// snapshots the driving values and clears rebuild_flag.
func (p *Playlist) maybeRebuild(input AudioFormat, effectiveGain float64) error {
	generation := p.sinkMap.Generation()

	needsRebuild := !p.filterState.built ||
		p.filterState.lastInput != input ||
		p.filterState.lastGain != effectiveGain ||
		p.filterState.lastGeneration != generation ||
		p.filterState.rebuildRequested

	if !needsRebuild {
		return nil
	}

	topology := buildTopology(input, effectiveGain, &p.sinkMap, p.gainClampMin, p.gainClampMax)

	if p.filterState.graph != nil {
		_ = p.filterState.graph.Close()
		p.filterState.graph = nil
	}

	graph, err := p.filterEngine.Build(topology)
	if err != nil {
		p.filterState.built = false
		return err
	}

	p.filterState.graph = graph
	p.filterState.built = true
	p.filterState.lastInput = input
	p.filterState.lastGain = effectiveGain
	p.filterState.lastGeneration = generation
	p.filterState.rebuildRequested = false
	p.filterRebuilds.Add(1)
	if p.metrics != nil {
		p.metrics.RecordFilterRebuild()
	}
	return nil
}
