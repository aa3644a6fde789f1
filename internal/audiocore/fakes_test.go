package audiocore

import (
	"context"
	"errors"
	"io"
	"sync"
)

// fakeFile is a minimal in-memory File collaborator used by playlist and
// worker tests: it "decodes" a fixed number of frames of silence, honors
// seek by moving its frame position to the target (the remaining packet
// count is unchanged), and tracks pause/play calls.
type fakeFile struct {
	mu         sync.Mutex
	state      SeekState
	info       StreamInfo
	frameSize  int
	packets    int   // packets remaining before EOF
	framesRead int64 // frames decoded so far, for PTS tracking

	pauseCalls int
	playCalls  int
	closed     bool
}

func newFakeFile(packets int) *fakeFile {
	return &fakeFile{
		state: SeekState{SeekPos: -1},
		info: StreamInfo{
			SampleRate:    48000,
			SampleFormat:  SampleFormatS16,
			ChannelLayout: ChannelLayoutStereo,
			TimeBase:      1.0 / 48000,
		},
		frameSize: 64,
		packets:   packets,
	}
}

func (f *fakeFile) Info() StreamInfo { return f.info }

func (f *fakeFile) ReadPacket(ctx context.Context) (Packet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.packets <= 0 {
		return Packet{}, io.EOF
	}
	f.packets--
	startFrame := f.framesRead
	return Packet{Data: make([]byte, 16), StreamI: 0, PTS: startFrame}, nil
}

func (f *fakeFile) DecodePacket(ctx context.Context, pkt Packet) ([]DecodedFrame, error) {
	frameCount := f.frameSize / 4
	f.mu.Lock()
	f.framesRead += int64(frameCount)
	f.mu.Unlock()
	return []DecodedFrame{{
		Data:       [][]byte{make([]byte, f.frameSize)},
		FrameCount: frameCount,
		Format:     f.info.toAudioFormat(),
		PTSSeconds: float64(pkt.PTS) * f.info.TimeBase,
	}}, nil
}

func (f *fakeFile) HasDelay() bool { return false }

func (f *fakeFile) Drain(ctx context.Context) ([]DecodedFrame, error) { return nil, nil }

// Seek jumps framesRead to targetSeconds so the next decoded packet's PTS
// reflects the seek target, mirroring wavFile/flacFile.
func (f *fakeFile) Seek(ctx context.Context, targetSeconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.framesRead = int64(targetSeconds / f.info.TimeBase)
	return nil
}

func (f *fakeFile) ReadPause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	return nil
}

func (f *fakeFile) ReadPlay() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	return nil
}

func (f *fakeFile) SeekMutex() Locker { return &f.mu }

func (f *fakeFile) State() *SeekState { return &f.state }

func (f *fakeFile) Close() error {
	f.closed = true
	return nil
}

var errFakeGraphBuild = errors.New("fake graph build failure")

// fakeFilterEngine builds fakeFilterGraphs that pass decoded input frames
// straight through to every endpoint, applying no gain or format
// conversion; sufficient for exercising fan-out and rebuild bookkeeping
// without depending on internal/filterengine.
type fakeFilterEngine struct {
	failBuild bool
	builds    int
}

func (e *fakeFilterEngine) Build(topology GraphTopology) (FilterGraph, error) {
	e.builds++
	if e.failBuild {
		return nil, errFakeGraphBuild
	}
	return &fakeFilterGraph{topology: topology}, nil
}

type fakeFilterGraph struct {
	mu       sync.Mutex
	topology GraphTopology
	pending  [][]DecodedFrame // one slot per endpoint
	closed   bool
}

func (g *fakeFilterGraph) Push(ctx context.Context, frame DecodedFrame) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		g.pending = make([][]DecodedFrame, len(g.topology.Endpoints))
	}
	for i := range g.topology.Endpoints {
		g.pending[i] = append(g.pending[i], frame)
	}
	return nil
}

func (g *fakeFilterGraph) Pull(ctx context.Context, endpoint int) ([]DecodedFrame, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if endpoint >= len(g.pending) {
		return nil, nil
	}
	out := g.pending[endpoint]
	g.pending[endpoint] = nil
	return out, nil
}

func (g *fakeFilterGraph) Close() error {
	g.closed = true
	return nil
}

func testPool() BufferPool {
	return NewBufferPool(BufferPoolConfig{SmallBufferSize: 4096, MediumBufferSize: 65536, LargeBufferSize: 1 << 20})
}
