package filterengine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aviarysound/playlistcore/internal/audiocore"
	"github.com/aviarysound/playlistcore/internal/logging"
)

// Engine is the default audiocore.FilterEngine: it builds a Graph per call,
// one per Playlist at a time, matching the one-graph-per-topology lifecycle
// described by the decode worker (§4.D/§4.F).
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs the default filter engine.
func NewEngine() *Engine {
	return &Engine{logger: logging.ForService("filterengine")}
}

// Build constructs a runnable Graph from topology. It never fails in this
// implementation; the error return exists for engines backed by real DSP
// libraries or hardware that can reject a topology (insufficient channels,
// unsupported sample rate, etc).
func (e *Engine) Build(topology audiocore.GraphTopology) (audiocore.FilterGraph, error) {
	g := &Graph{
		topology:      topology,
		pending:       make([][]audiocore.DecodedFrame, len(topology.Endpoints)),
		accum:         make([][]byte, len(topology.Endpoints)),
		accumStartPTS: make([]float64, len(topology.Endpoints)),
		accumHasStart: make([]bool, len(topology.Endpoints)),
		logger:        e.logger,
	}
	return g, nil
}

// Graph is a built instance of a topology: input → [gain] → [split] → per
// endpoint [format-convert or passthrough]. Push decodes, applies gain, and
// produces output for every endpoint. An endpoint with BufferSampleCount ==
// 0 gets one pending frame per Push, as converted, until the next Pull; an
// endpoint with a non-zero BufferSampleCount accumulates bytes across Pushes
// and only appends a pending frame once it has exactly that many samples,
// per §4.D.
type Graph struct {
	mu       sync.Mutex
	topology audiocore.GraphTopology
	pending  [][]audiocore.DecodedFrame
	closed   bool
	logger   *slog.Logger

	accum         [][]byte  // per-endpoint leftover bytes below BufferSampleCount
	accumStartPTS []float64 // PTS of the frame that started the current accumulation
	accumHasStart []bool
}

// Push feeds one decoded input frame through gain and, for every endpoint,
// remix/resample/format-conversion, per §4.D's fixed topology shape.
func (g *Graph) Push(ctx context.Context, frame audiocore.DecodedFrame) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}

	inputChannels := frame.Format.Channels()
	interleaved := flatten(frame.Data, frame.Format.SampleFormat.BytesPerSample())
	planes := samplesToFloat64(interleaved, frame.Format.SampleFormat, inputChannels)

	if g.topology.GainPresent {
		applyGain(planes, g.topology.Gain)
	}

	for i, ep := range g.topology.Endpoints {
		out := g.convertForEndpoint(planes, frame, ep)
		g.emit(i, ep, out)
	}
	return nil
}

// emit appends out to endpoint i's pending queue. An endpoint with
// BufferSampleCount == 0 gets out as-is. An endpoint with a non-zero
// BufferSampleCount instead accumulates out's bytes and only appends a
// frame once the accumulation holds exactly BufferSampleCount samples,
// per §4.D: "emit exactly buffer_sample_count per pull, buffering
// internally". Called with g.mu held.
func (g *Graph) emit(i int, ep audiocore.GraphEndpoint, out audiocore.DecodedFrame) {
	if ep.BufferSampleCount <= 0 {
		g.pending[i] = append(g.pending[i], out)
		return
	}
	if len(out.Data) == 0 {
		return
	}

	bytesPerFrame := out.Format.Channels() * out.Format.SampleFormat.BytesPerSample()
	if bytesPerFrame <= 0 {
		return
	}

	if !g.accumHasStart[i] {
		g.accumStartPTS[i] = out.PTSSeconds
		g.accumHasStart[i] = true
	}
	g.accum[i] = append(g.accum[i], out.Data[0]...)

	chunkBytes := ep.BufferSampleCount * bytesPerFrame
	for len(g.accum[i]) >= chunkBytes {
		chunk := make([]byte, chunkBytes)
		copy(chunk, g.accum[i][:chunkBytes])
		g.pending[i] = append(g.pending[i], audiocore.DecodedFrame{
			Data:       [][]byte{chunk},
			FrameCount: ep.BufferSampleCount,
			Format:     out.Format,
			PTSSeconds: g.accumStartPTS[i],
		})
		remainder := make([]byte, len(g.accum[i])-chunkBytes)
		copy(remainder, g.accum[i][chunkBytes:])
		g.accum[i] = remainder
		g.accumHasStart[i] = false
	}
}

// convertForEndpoint applies remix/resample/format-conversion for one
// branch, or passes the post-gain input through unchanged when the branch's
// representative disabled resampling (§4.D: "format-convert is omitted
// when the group's representative has disable_resample = true").
func (g *Graph) convertForEndpoint(planes [][]float64, frame audiocore.DecodedFrame, ep audiocore.GraphEndpoint) audiocore.DecodedFrame {
	if ep.DisableResample {
		data := float64ToSamples(planes, frame.Format.SampleFormat)
		return audiocore.DecodedFrame{
			Data:       [][]byte{data},
			FrameCount: frame.FrameCount,
			Format:     frame.Format,
			PTSSeconds: frame.PTSSeconds,
		}
	}

	remixed := remixChannels(planes, ep.Format.Channels())
	resampled := resampleLinear(remixed, frame.Format.SampleRate, ep.Format.SampleRate)
	data := float64ToSamples(resampled, ep.Format.SampleFormat)

	frameCount := 0
	if len(resampled) > 0 {
		frameCount = len(resampled[0])
	}

	return audiocore.DecodedFrame{
		Data:       [][]byte{data},
		FrameCount: frameCount,
		Format:     ep.Format,
		PTSSeconds: frame.PTSSeconds,
	}
}

// Pull drains every output frame produced for endpoint since the last Pull.
func (g *Graph) Pull(ctx context.Context, endpoint int) ([]audiocore.DecodedFrame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if endpoint < 0 || endpoint >= len(g.pending) {
		return nil, nil
	}
	out := g.pending[endpoint]
	g.pending[endpoint] = nil
	return out, nil
}

// Close marks the graph unusable; subsequent Push calls are no-ops.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// flatten concatenates a DecodedFrame's planes into one interleaved buffer,
// one sample (bytesPerSample bytes) at a time per plane. Interleaved inputs
// (a single plane) pass through unchanged; planar inputs (one plane per
// channel) are interleaved frame by frame.
func flatten(data [][]byte, bytesPerSample int) []byte {
	if len(data) <= 1 {
		if len(data) == 1 {
			return data[0]
		}
		return nil
	}
	if bytesPerSample <= 0 {
		return nil
	}

	frameCount := len(data[0]) / bytesPerSample
	out := make([]byte, 0, frameCount*bytesPerSample*len(data))
	for i := 0; i < frameCount; i++ {
		off := i * bytesPerSample
		for _, plane := range data {
			if off+bytesPerSample <= len(plane) {
				out = append(out, plane[off:off+bytesPerSample]...)
			}
		}
	}
	return out
}
