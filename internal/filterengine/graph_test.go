package filterengine

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/aviarysound/playlistcore/internal/audiocore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s16Frame(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func decodeS16(buf []byte) []int16 {
	out := make([]int16, len(buf)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return out
}

func TestGraphPassthroughWhenDisableResample(t *testing.T) {
	format := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutStereo, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:     format,
		Endpoints: []audiocore.GraphEndpoint{{Format: format, DisableResample: true}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)

	frame := audiocore.DecodedFrame{
		Data:       [][]byte{s16Frame(1000, -1000, 2000, -2000)},
		FrameCount: 2,
		Format:     format,
	}
	require.NoError(t, graph.Push(context.Background(), frame))

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int16{1000, -1000, 2000, -2000}, decodeS16(out[0].Data[0]))
}

func TestGraphAppliesGainBeforeFanOut(t *testing.T) {
	format := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutStereo, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:       format,
		GainPresent: true,
		Gain:        0.5,
		Endpoints:   []audiocore.GraphEndpoint{{Format: format, DisableResample: true}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)

	frame := audiocore.DecodedFrame{
		Data:       [][]byte{s16Frame(10000, -10000)},
		FrameCount: 1,
		Format:     format,
	}
	require.NoError(t, graph.Push(context.Background(), frame))

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	samples := decodeS16(out[0].Data[0])
	assert.InDelta(t, 5000, samples[0], 10)
	assert.InDelta(t, -5000, samples[1], 10)
}

func TestGraphRemixesMonoToStereo(t *testing.T) {
	inputFormat := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutMono, SampleFormat: audiocore.SampleFormatS16}
	outputFormat := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutStereo, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:     inputFormat,
		Endpoints: []audiocore.GraphEndpoint{{Format: outputFormat}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)

	frame := audiocore.DecodedFrame{
		Data:       [][]byte{s16Frame(12345)},
		FrameCount: 1,
		Format:     inputFormat,
	}
	require.NoError(t, graph.Push(context.Background(), frame))

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	samples := decodeS16(out[0].Data[0])
	require.Len(t, samples, 2)
	assert.InDelta(t, samples[0], samples[1], 2)
}

func TestGraphResamplesToTargetRate(t *testing.T) {
	inputFormat := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutMono, SampleFormat: audiocore.SampleFormatS16}
	outputFormat := audiocore.AudioFormat{SampleRate: 24000, ChannelLayout: audiocore.ChannelLayoutMono, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:     inputFormat,
		Endpoints: []audiocore.GraphEndpoint{{Format: outputFormat}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)

	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i * 100)
	}
	frame := audiocore.DecodedFrame{
		Data:       [][]byte{s16Frame(samples...)},
		FrameCount: len(samples),
		Format:     inputFormat,
	}
	require.NoError(t, graph.Push(context.Background(), frame))

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 50, out[0].FrameCount, 2, "halving the rate should roughly halve the frame count")
}

func TestGraphPullDrainsOnlySinceLastCall(t *testing.T) {
	format := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutStereo, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:     format,
		Endpoints: []audiocore.GraphEndpoint{{Format: format, DisableResample: true}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)

	frame := audiocore.DecodedFrame{Data: [][]byte{s16Frame(1, 2)}, FrameCount: 1, Format: format}
	require.NoError(t, graph.Push(context.Background(), frame))
	require.NoError(t, graph.Push(context.Background(), frame))

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGraphAccumulatesToFixedBufferSampleCount(t *testing.T) {
	format := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutMono, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:     format,
		Endpoints: []audiocore.GraphEndpoint{{Format: format, DisableResample: true, BufferSampleCount: 3}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)

	// Four pushes of one sample each; only the first three should combine
	// into one emitted frame of exactly 3 samples, leaving one sample
	// buffered internally.
	for _, s := range []int16{1, 2, 3, 4} {
		require.NoError(t, graph.Push(context.Background(), audiocore.DecodedFrame{
			Data: [][]byte{s16Frame(s)}, FrameCount: 1, Format: format,
		}))
	}

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1, "only one complete buffer_sample_count-sized frame should be ready")
	assert.Equal(t, 3, out[0].FrameCount)
	assert.Equal(t, []int16{1, 2, 3}, decodeS16(out[0].Data[0]))

	// The fourth sample remains buffered; pushing two more completes the
	// next fixed-size frame.
	for _, s := range []int16{5, 6} {
		require.NoError(t, graph.Push(context.Background(), audiocore.DecodedFrame{
			Data: [][]byte{s16Frame(s)}, FrameCount: 1, Format: format,
		}))
	}
	out, err = graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []int16{4, 5, 6}, decodeS16(out[0].Data[0]))
}

func TestGraphCloseStopsAcceptingPushes(t *testing.T) {
	format := audiocore.AudioFormat{SampleRate: 48000, ChannelLayout: audiocore.ChannelLayoutStereo, SampleFormat: audiocore.SampleFormatS16}
	topo := audiocore.GraphTopology{
		Input:     format,
		Endpoints: []audiocore.GraphEndpoint{{Format: format, DisableResample: true}},
	}
	engine := NewEngine()
	graph, err := engine.Build(topo)
	require.NoError(t, err)
	require.NoError(t, graph.Close())

	frame := audiocore.DecodedFrame{Data: [][]byte{s16Frame(1, 2)}, FrameCount: 1, Format: format}
	require.NoError(t, graph.Push(context.Background(), frame))

	out, err := graph.Pull(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecodeEncodeSampleRoundTripFloat(t *testing.T) {
	b := make([]byte, 4)
	encodeSample(b, audiocore.SampleFormatFlt, 0.25)
	got := decodeSample(b, audiocore.SampleFormatFlt)
	assert.InDelta(t, 0.25, got, 1e-6)
}

func TestClampBounds(t *testing.T) {
	assert.Equal(t, 1.0, clamp(5, -1, 1))
	assert.Equal(t, -1.0, clamp(-5, -1, 1))
	assert.Equal(t, 0.0, clamp(0, -1, 1))
	_ = math.MaxInt16
}
