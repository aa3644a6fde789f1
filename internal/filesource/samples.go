package filesource

import (
	"encoding/binary"

	"github.com/aviarysound/playlistcore/internal/audiocore"
)

// encodeIntSamples writes int-typed PCM samples (as decoded by go-audio's
// IntBuffer, or widened from FLAC's int32 subframe samples) into dst using
// format's byte width, little-endian.
func encodeIntSamples(dst []byte, samples []int, format audiocore.SampleFormat) {
	bps := format.BytesPerSample()
	for i, s := range samples {
		off := i * bps
		switch format {
		case audiocore.SampleFormatU8:
			dst[off] = byte(s + 128)
		case audiocore.SampleFormatS16:
			binary.LittleEndian.PutUint16(dst[off:], uint16(int16(s)))
		case audiocore.SampleFormatS32:
			binary.LittleEndian.PutUint32(dst[off:], uint32(int32(s)))
		}
	}
}
