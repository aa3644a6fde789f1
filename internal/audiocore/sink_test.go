package audiocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkAttachComputesDerivedFields(t *testing.T) {
	pool := testPool()
	p, err := PlaylistCreate(&fakeFilterEngine{}, pool)
	require.NoError(t, err)
	defer p.Destroy()

	sink := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 1024, 0, false)
	require.NoError(t, sink.Attach(p))

	assert.Equal(t, 48000*2*2, sink.bytesPerSec)
	assert.Equal(t, 1024*2*2, sink.minQueueBytes)
	assert.Same(t, p, sink.Playlist())
}

func TestSinkAttachDetachRoundTrip(t *testing.T) {
	pool := testPool()
	p, err := PlaylistCreate(&fakeFilterEngine{}, pool)
	require.NoError(t, err)
	defer p.Destroy()

	sink := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 1024, 0, false)
	require.NoError(t, sink.Attach(p))
	assert.Equal(t, 1, p.sinkMap.Count())

	sink.Detach()
	assert.Nil(t, sink.Playlist())
	assert.Equal(t, 0, p.sinkMap.Count())
	assert.Equal(t, 0, sink.queue.Len())
}

func TestSinkBufferGetTranslatesSentinelToEnd(t *testing.T) {
	sink := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 1024, 0, false)
	sink.queue.PutEndOfStream()

	status, buf := sink.BufferGet(false)
	assert.Equal(t, StatusEnd, status)
	assert.Nil(t, buf)
}

func TestSinkOnGetSignalsSinkDrainBelowFloor(t *testing.T) {
	pool := testPool()
	p, err := PlaylistCreate(&fakeFilterEngine{}, pool)
	require.NoError(t, err)
	defer p.Destroy()

	sink := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 1, 0, false)
	require.NoError(t, sink.Attach(p))

	backing := pool.Get(16)
	buf := NewBuffer(backing, nil, 0, 1, sink.Format)
	sink.queue.Put(buf)

	// draining below min_queue_bytes must not panic or deadlock even
	// though nothing else is waiting on sink_drain_cond.
	status, _ := sink.BufferGet(false)
	assert.Equal(t, StatusYes, status)
}
