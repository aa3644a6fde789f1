package filesource

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviarysound/playlistcore/internal/audiocore"
)

// writeTestWAV writes a short mono 16-bit PCM WAV file of ascending sample
// values, for use as fixture data across these tests.
func writeTestWAV(t *testing.T, path string, sampleRate, frames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	samples := make([]int, frames)
	for i := range samples {
		samples[i] = i % 1000
	}
	buf := &goaudio.IntBuffer{
		Data:   samples,
		Format: &goaudio.Format{SampleRate: sampleRate, NumChannels: 1},
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestOpenWAVReadsHeaderAndDecodesFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wav")
	writeTestWAV(t, path, 48000, 8000)

	file, err := OpenWAV(path)
	require.NoError(t, err)
	defer file.Close()

	info := file.Info()
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, audiocore.SampleFormatS16, info.SampleFormat)
	assert.Equal(t, 1, info.ChannelLayout.Channels())

	ctx := context.Background()
	total := 0
	for {
		pkt, err := file.ReadPacket(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		frames, err := file.DecodePacket(ctx, pkt)
		require.NoError(t, err)
		for _, fr := range frames {
			total += fr.FrameCount
		}
	}
	assert.Equal(t, 8000, total)
}

func TestOpenWAVRejectsNonWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))

	_, err := OpenWAV(path)
	assert.Error(t, err)
}

func TestWAVSeekSkipsLeadingFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.wav")
	writeTestWAV(t, path, 1000, 5000) // 5 seconds at 1kHz

	file, err := OpenWAV(path)
	require.NoError(t, err)
	defer file.Close()

	ctx := context.Background()
	require.NoError(t, file.Seek(ctx, 2.0))

	pkt, err := file.ReadPacket(ctx)
	require.NoError(t, err)
	frames, err := file.DecodePacket(ctx, pkt)
	require.NoError(t, err)
	require.NotEmpty(t, frames)
	assert.LessOrEqual(t, frames[0].FrameCount, 4096)
}

func TestOpenDispatchesOnExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.wav")
	writeTestWAV(t, path, 48000, 100)

	file, err := Open(path)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, 48000, file.Info().SampleRate)
}

func TestOpenRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte{0}, 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
