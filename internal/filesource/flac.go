package filesource

import (
	"context"
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/aviarysound/playlistcore/internal/audiocore"
	pcerrors "github.com/aviarysound/playlistcore/internal/errors"
)

// flacFile decodes a FLAC source frame by frame. One audiocore "packet" is
// one decoded FLAC frame's worth of interleaved PCM, since the library
// parses directly to samples rather than exposing separate demux/decode
// stages; DecodePacket is therefore a pass-through over what ReadPacket
// already produced, mirroring wavFile's split.
type flacFile struct {
	baseState

	path     string
	file     *os.File
	stream   *flac.Stream
	format   audiocore.StreamInfo
	framePos int64 // sample offset of the next frame ReadPacket will parse
}

// OpenFLAC opens path as a seekable FLAC source.
func OpenFLAC(path string) (audiocore.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pcerrors.New(err).
			Component(component).
			Category(pcerrors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	stream, err := flac.NewSeek(f)
	if err != nil {
		f.Close()
		return nil, pcerrors.New(err).
			Component(component).
			Category(pcerrors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	sampleFormat, err := sampleFormatForBitDepth(uint16(stream.Info.BitsPerSample))
	if err != nil {
		f.Close()
		return nil, err
	}

	ff := &flacFile{
		baseState: newBaseState(),
		path:      path,
		file:      f,
		stream:    stream,
		format: audiocore.StreamInfo{
			SampleRate:    int(stream.Info.SampleRate),
			SampleFormat:  sampleFormat,
			ChannelLayout: layoutForChannelCount(int(stream.Info.NChannels)),
			TimeBase:      1.0 / float64(stream.Info.SampleRate),
		},
	}
	return ff, nil
}

func (f *flacFile) Info() audiocore.StreamInfo { return f.format }

// ReadPacket parses and fully decodes the next FLAC frame, interleaving its
// per-channel subframe samples into one PCM packet.
func (f *flacFile) ReadPacket(ctx context.Context) (audiocore.Packet, error) {
	if err := checkAbort(ctx); err != nil {
		return audiocore.Packet{}, err
	}

	fr, err := f.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return audiocore.Packet{}, io.EOF
		}
		return audiocore.Packet{}, pcerrors.New(err).
			Component(component).
			Category(pcerrors.CategoryFileParsing).
			Context("path", f.path).
			Build()
	}

	channels := len(fr.Subframes)
	if channels == 0 {
		return audiocore.Packet{}, io.EOF
	}
	frameCount := len(fr.Subframes[0].Samples)
	bps := f.format.SampleFormat.BytesPerSample()
	data := make([]byte, frameCount*channels*bps)

	interleaved := make([]int, frameCount*channels)
	for i := 0; i < frameCount; i++ {
		for c := 0; c < channels; c++ {
			interleaved[i*channels+c] = int(fr.Subframes[c].Samples[i])
		}
	}
	encodeIntSamples(data, interleaved, f.format.SampleFormat)

	startFrame := f.framePos
	f.framePos += int64(frameCount)

	return audiocore.Packet{Data: data, PTS: startFrame}, nil
}

// DecodePacket wraps the bytes ReadPacket already produced; FLAC's decode
// happens inline during ParseNext. The frame's position is the sample
// offset ReadPacket captured before parsing, converted to seconds.
func (f *flacFile) DecodePacket(ctx context.Context, pkt audiocore.Packet) ([]audiocore.DecodedFrame, error) {
	if err := checkAbort(ctx); err != nil {
		return nil, err
	}
	bps := f.format.SampleFormat.BytesPerSample()
	channels := f.format.ChannelLayout.Channels()
	frameCount := len(pkt.Data) / bps / channels
	return []audiocore.DecodedFrame{{
		Data:       [][]byte{pkt.Data},
		FrameCount: frameCount,
		Format:     f.format,
		PTSSeconds: float64(pkt.PTS) * f.format.TimeBase,
	}}, nil
}

func (f *flacFile) HasDelay() bool { return false }

func (f *flacFile) Drain(ctx context.Context) ([]audiocore.DecodedFrame, error) { return nil, nil }

// Seek uses the stream's native sample-accurate seek support rather than
// wavFile's reopen-and-discard approach, since flac.Stream exposes one.
func (f *flacFile) Seek(ctx context.Context, targetSeconds float64) error {
	targetSample := uint64(targetSeconds * float64(f.format.SampleRate))
	_, err := f.stream.Seek(targetSample)
	if err != nil {
		logger.Warn("flac seek failed", "path", f.path, "target_seconds", targetSeconds, "error", err)
		return pcerrors.New(err).
			Component(component).
			Category(pcerrors.CategoryFileParsing).
			Context("path", f.path).
			Build()
	}
	// Stream.Seek lands exactly on targetSample; resume PTS tracking from
	// there so the next ReadPacket reports the post-seek position.
	f.framePos = int64(targetSample)
	return nil
}

func (f *flacFile) Close() error {
	f.stream.Close()
	return f.file.Close()
}
