// Package filterengine is the default audiocore.FilterEngine implementation:
// gain application, per-sink-group fan-out, and naive resample/remix/format
// conversion. audiocore treats this as an external collaborator reached
// only through the FilterEngine/FilterGraph interfaces.
//
// The gain math is adapted from the teacher's gain processor
// (internal/audiocore/processors/gain.go): per-sample clipping multiply for
// interleaved PCM. Channel remix (mono↔stereo duplication/averaging) is
// adapted from the mono/stereo conversion functions in a third-party
// audio-format-conversion device surveyed for this package. Resampling uses
// linear interpolation rather than a vendored windowed-sinc resampler: it is
// the one piece of the graph built on bare arithmetic rather than a
// surveyed third-party library, because no resampler package in the
// retrieval pack exposes byte-level PCM in this engine's SampleFormat shape
// without a format adapter layer of its own; see DESIGN.md.
package filterengine

import (
	"encoding/binary"
	"math"

	"github.com/aviarysound/playlistcore/internal/audiocore"
)

// samplesToFloat64 decodes an interleaved PCM buffer into per-channel
// float64 samples, one slice per channel. Integer formats are scaled into
// [-1.0, 1.0]; float formats are taken as stored.
func samplesToFloat64(data []byte, format audiocore.SampleFormat, channels int) [][]float64 {
	bytesPerSample := format.BytesPerSample()
	if channels == 0 || bytesPerSample == 0 {
		return nil
	}
	frameSize := bytesPerSample * channels
	frameCount := len(data) / frameSize

	out := make([][]float64, channels)
	for c := range out {
		out[c] = make([]float64, frameCount)
	}

	for i := 0; i < frameCount; i++ {
		base := i * frameSize
		for c := 0; c < channels; c++ {
			off := base + c*bytesPerSample
			out[c][i] = decodeSample(data[off:off+bytesPerSample], format)
		}
	}
	return out
}

// float64ToSamples is the inverse of samplesToFloat64, encoding per-channel
// float64 planes back into an interleaved PCM buffer of the given format.
func float64ToSamples(planes [][]float64, format audiocore.SampleFormat) []byte {
	if len(planes) == 0 {
		return nil
	}
	channels := len(planes)
	frameCount := len(planes[0])
	bytesPerSample := format.BytesPerSample()
	out := make([]byte, frameCount*channels*bytesPerSample)

	for i := 0; i < frameCount; i++ {
		base := i * channels * bytesPerSample
		for c := 0; c < channels; c++ {
			off := base + c*bytesPerSample
			encodeSample(out[off:off+bytesPerSample], format, planes[c][i])
		}
	}
	return out
}

func decodeSample(b []byte, format audiocore.SampleFormat) float64 {
	switch format {
	case audiocore.SampleFormatU8, audiocore.SampleFormatU8P:
		return (float64(b[0]) - 128) / 128
	case audiocore.SampleFormatS16, audiocore.SampleFormatS16P:
		v := int16(binary.LittleEndian.Uint16(b))
		return float64(v) / math.MaxInt16
	case audiocore.SampleFormatS32, audiocore.SampleFormatS32P:
		v := int32(binary.LittleEndian.Uint32(b))
		return float64(v) / math.MaxInt32
	case audiocore.SampleFormatFlt, audiocore.SampleFormatFltP:
		bits := binary.LittleEndian.Uint32(b)
		return float64(math.Float32frombits(bits))
	case audiocore.SampleFormatDbl, audiocore.SampleFormatDblP:
		bits := binary.LittleEndian.Uint64(b)
		return math.Float64frombits(bits)
	default:
		return 0
	}
}

func encodeSample(b []byte, format audiocore.SampleFormat, v float64) {
	switch format {
	case audiocore.SampleFormatU8, audiocore.SampleFormatU8P:
		clamped := clamp(v, -1, 1)
		b[0] = byte(clamped*128 + 128)
	case audiocore.SampleFormatS16, audiocore.SampleFormatS16P:
		clamped := clamp(v*math.MaxInt16, math.MinInt16, math.MaxInt16)
		binary.LittleEndian.PutUint16(b, uint16(int16(clamped)))
	case audiocore.SampleFormatS32, audiocore.SampleFormatS32P:
		clamped := clamp(v*math.MaxInt32, math.MinInt32, math.MaxInt32)
		binary.LittleEndian.PutUint32(b, uint32(int32(clamped)))
	case audiocore.SampleFormatFlt, audiocore.SampleFormatFltP:
		clamped := float32(clamp(v, -1, 1))
		binary.LittleEndian.PutUint32(b, math.Float32bits(clamped))
	case audiocore.SampleFormatDbl, audiocore.SampleFormatDblP:
		binary.LittleEndian.PutUint64(b, math.Float64bits(clamp(v, -1, 1)))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// applyGain scales every sample in-place, adapted from the teacher's
// GainProcessor.applyGainS16LE/applyGainF32LE (internal/audiocore/processors/gain.go):
// per-sample multiply with clipping at the format's representable range.
func applyGain(planes [][]float64, gain float64) {
	for _, plane := range planes {
		for i, v := range plane {
			plane[i] = clamp(v*gain, -1, 1)
		}
	}
}

// remixChannels adapts the mono↔stereo conversion idiom surveyed from a
// third-party audio-format-conversion device: duplicate the single input
// channel for upmix, average input channels for downmix, and drop or
// zero-fill extra channels otherwise.
func remixChannels(planes [][]float64, targetChannels int) [][]float64 {
	sourceChannels := len(planes)
	if sourceChannels == targetChannels {
		return planes
	}
	if sourceChannels == 0 || targetChannels == 0 {
		return nil
	}
	frameCount := len(planes[0])

	if sourceChannels == 1 && targetChannels == 2 {
		return [][]float64{planes[0], append([]float64(nil), planes[0]...)}
	}
	if sourceChannels == 2 && targetChannels == 1 {
		mono := make([]float64, frameCount)
		for i := range mono {
			mono[i] = (planes[0][i] + planes[1][i]) / 2
		}
		return [][]float64{mono}
	}

	out := make([][]float64, targetChannels)
	for c := range out {
		if c < sourceChannels {
			out[c] = planes[c]
		} else {
			out[c] = make([]float64, frameCount)
		}
	}
	return out
}

// resampleLinear resamples every channel plane from sourceRate to
// targetRate with linear interpolation. Adequate for the engine's
// gapless-playback scope; not a substitute for a windowed-sinc resampler in
// mastering-grade pipelines.
func resampleLinear(planes [][]float64, sourceRate, targetRate int) [][]float64 {
	if sourceRate == targetRate || sourceRate <= 0 || targetRate <= 0 {
		return planes
	}
	ratio := float64(sourceRate) / float64(targetRate)

	out := make([][]float64, len(planes))
	for c, plane := range planes {
		srcLen := len(plane)
		if srcLen == 0 {
			out[c] = plane
			continue
		}
		dstLen := int(float64(srcLen) / ratio)
		dst := make([]float64, dstLen)
		for i := range dst {
			srcPos := float64(i) * ratio
			idx := int(srcPos)
			frac := srcPos - float64(idx)
			if idx+1 < srcLen {
				dst[i] = plane[idx]*(1-frac) + plane[idx+1]*frac
			} else {
				dst[i] = plane[idx]
			}
		}
		out[c] = dst
	}
	return out
}
