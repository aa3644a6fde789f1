package audiocore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkMapAddGroupsByFormatEquivalence(t *testing.T) {
	var m SinkMap

	s1 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)
	s2 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)
	s3 := NewSink(AudioFormat{SampleRate: 44100, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)

	m.add(s1)
	assert.Equal(t, 1, m.Count())

	m.add(s2)
	assert.Equal(t, 1, m.Count(), "s2 should join s1's group")
	assert.Len(t, m.Groups()[0].Members(), 2)

	m.add(s3)
	assert.Equal(t, 2, m.Count(), "s3 has a distinct format and starts a new group")
}

func TestSinkMapDisableResampleIgnoresFormat(t *testing.T) {
	var m SinkMap

	s1 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, true)
	s2 := NewSink(AudioFormat{SampleRate: 44100, ChannelLayout: ChannelLayoutMono, SampleFormat: SampleFormatFlt}, 4096, 0, true)

	m.add(s1)
	m.add(s2)
	assert.Equal(t, 1, m.Count(), "both sinks disable resampling, so format is irrelevant to grouping")
}

func TestSinkMapRemoveDropsEmptyGroup(t *testing.T) {
	var m SinkMap
	s1 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)
	m.add(s1)
	assert.Equal(t, 1, m.Count())

	m.remove(s1)
	assert.Equal(t, 0, m.Count())
}

func TestSinkMapGenerationBumpsOnStructuralChange(t *testing.T) {
	var m SinkMap
	s1 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)
	s2 := NewSink(AudioFormat{SampleRate: 48000, ChannelLayout: ChannelLayoutStereo, SampleFormat: SampleFormatS16}, 4096, 0, false)

	gen0 := m.Generation()
	m.add(s1)
	gen1 := m.Generation()
	assert.NotEqual(t, gen0, gen1)

	m.add(s2) // joins existing group; no structural change
	gen2 := m.Generation()
	assert.Equal(t, gen1, gen2)

	m.remove(s1)
	gen3 := m.Generation()
	assert.Equal(t, gen1, gen3, "group still has s2; not a structural change")

	m.remove(s2)
	gen4 := m.Generation()
	assert.NotEqual(t, gen3, gen4, "group emptied and removed")
}
