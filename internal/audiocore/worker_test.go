package audiocore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOneFrameReturnsFatalOnNilFile(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	item := &PlaylistItem{}
	paused := false

	p.mu.Lock()
	status := decodeOneFrame(p, item, &paused)
	p.mu.Unlock()

	assert.Equal(t, -1, status)
}

func TestDecodeOneFrameMarksEOFWithoutAdvancingOnFirstEmptyRead(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	file := newFakeFile(0)
	item := &PlaylistItem{File: file, Gain: 1.0}
	paused := false

	p.mu.Lock()
	status := decodeOneFrame(p, item, &paused)
	p.mu.Unlock()

	assert.Equal(t, 0, status, "first packet read past EOF just marks the EOF flag")
	assert.True(t, file.State().EOF)
}

func TestDecodeOneFrameFatalAfterEOFWithNoDelay(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	file := newFakeFile(0)
	file.State().EOF = true
	item := &PlaylistItem{File: file, Gain: 1.0}
	paused := false

	p.mu.Lock()
	status := decodeOneFrame(p, item, &paused)
	p.mu.Unlock()

	assert.Equal(t, -1, status, "a source with no delay is done as soon as EOF is observed")
}

func TestDecodeOneFrameObservesAbortRequest(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	file := newFakeFile(10)
	file.State().AbortRequest = true
	item := &PlaylistItem{File: file, Gain: 1.0}
	paused := false

	p.mu.Lock()
	status := decodeOneFrame(p, item, &paused)
	p.mu.Unlock()

	assert.Equal(t, -1, status)
}

func TestDecodeOneFramePausePlayInvokesFileHooks(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	file := newFakeFile(10)
	item := &PlaylistItem{File: file, Gain: 1.0}
	paused := false

	p.paused.Store(true)
	p.mu.Lock()
	decodeOneFrame(p, item, &paused)
	p.mu.Unlock()

	assert.Equal(t, 1, file.pauseCalls)
	assert.True(t, paused)
}

func TestFanOutPushesToFilterGraphAndEnqueuesOnSinks(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	format := AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}
	sink := NewSink(format, 4096, 0, false)
	require.NoError(t, sink.Attach(p))

	require.NoError(t, p.maybeRebuild(format, 1.0))

	frame := DecodedFrame{Data: [][]byte{make([]byte, 64)}, FrameCount: 16, Format: format}

	p.mu.Lock()
	fanOut(p, &PlaylistItem{}, []DecodedFrame{frame})
	p.mu.Unlock()

	status, buf := sink.BufferGet(false)
	require.Equal(t, StatusYes, status)
	assert.Equal(t, 64, buf.SizeBytes())
	buf.Release()
}

func TestFanOutSharesOneBufferAcrossGroupMembers(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	format := AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}
	s1 := NewSink(format, 4096, 0, false)
	s2 := NewSink(format, 4096, 0, false)
	require.NoError(t, s1.Attach(p))
	require.NoError(t, s2.Attach(p))

	require.NoError(t, p.maybeRebuild(format, 1.0))

	frame := DecodedFrame{Data: [][]byte{make([]byte, 64)}, FrameCount: 16, Format: format}
	p.mu.Lock()
	fanOut(p, &PlaylistItem{}, []DecodedFrame{frame})
	p.mu.Unlock()

	status1, buf1 := s1.BufferGet(false)
	status2, buf2 := s2.BufferGet(false)
	require.Equal(t, StatusYes, status1)
	require.Equal(t, StatusYes, status2)
	assert.Same(t, buf1, buf2, "same group shares the identical ref-counted Buffer")
	buf1.Release()
	buf2.Release()
}

func TestWorkerEndToEndWithDisableResampleGroupsSeparately(t *testing.T) {
	p, err := PlaylistCreate(&fakeFilterEngine{}, testPool())
	require.NoError(t, err)
	defer p.Destroy()

	s1 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)
	require.NoError(t, s1.Attach(p))

	engine := p.filterEngine.(*fakeFilterEngine)
	buildsBeforeSecond := engine.builds

	s2 := NewSink(AudioFormat{SampleRate: 22050, ChannelLayout: ChannelLayoutMono, SampleFormat: SampleFormatFlt}, 4096, 0, true)
	require.NoError(t, s2.Attach(p))

	p.Insert(newFakeFile(5), 1.0, nil)

	ok := waitFor(t, 2*time.Second, func() bool {
		status, buf := s1.BufferGet(false)
		if status == StatusYes {
			buf.Release()
			return true
		}
		return status == StatusEnd
	})
	assert.True(t, ok)
	assert.Equal(t, 2, p.sinkMap.Count(), "distinct formats with resampling enabled on one must form separate groups")
	_ = buildsBeforeSecond
}
