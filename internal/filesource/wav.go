package filesource

import (
	"context"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/aviarysound/playlistcore/internal/audiocore"
	pcerrors "github.com/aviarysound/playlistcore/internal/errors"
)

// wavFile decodes a PCM WAV file, adapted from the teacher's
// readAudioData (birdnet.go): open with wav.NewDecoder, ReadInfo to
// discover the stream's rate/depth/channels, then read fixed-size chunks
// via Decoder.PCMBuffer. Seeking reopens the file and discards leading
// frames, since the decoder only exposes forward PCM reads.
type wavFile struct {
	baseState

	path       string
	file       *os.File
	decoder    *wav.Decoder
	format     audiocore.StreamInfo
	framesRead int64

	framesPerPacket int
	intBuf          *goaudio.IntBuffer
}

const wavFramesPerPacket = 4096

// OpenWAV opens path as a WAV source.
func OpenWAV(path string) (audiocore.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pcerrors.New(err).
			Component(component).
			Category(pcerrors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		f.Close()
		return nil, pcerrors.New(nil).
			Component(component).
			Category(pcerrors.CategoryFileParsing).
			Context("path", path).
			Context("error", "not a valid WAV file").
			Build()
	}

	sampleFormat, err := sampleFormatForBitDepth(decoder.BitDepth)
	if err != nil {
		f.Close()
		return nil, err
	}

	wf := &wavFile{
		baseState: newBaseState(),
		path:      path,
		file:      f,
		decoder:   decoder,
		format: audiocore.StreamInfo{
			SampleRate:    int(decoder.SampleRate),
			SampleFormat:  sampleFormat,
			ChannelLayout: layoutForChannelCount(int(decoder.NumChans)),
			TimeBase:      1.0 / float64(decoder.SampleRate),
		},
		framesPerPacket: wavFramesPerPacket,
	}
	wf.intBuf = &goaudio.IntBuffer{
		Data:   make([]int, wf.framesPerPacket*int(decoder.NumChans)),
		Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: int(decoder.NumChans)},
	}
	return wf, nil
}

func sampleFormatForBitDepth(bitDepth uint16) (audiocore.SampleFormat, error) {
	switch bitDepth {
	case 8:
		return audiocore.SampleFormatU8, nil
	case 16:
		return audiocore.SampleFormatS16, nil
	case 32:
		return audiocore.SampleFormatS32, nil
	default:
		return audiocore.SampleFormatUnknown, pcerrors.New(nil).
			Component(component).
			Category(pcerrors.CategoryValidation).
			Context("bit_depth", bitDepth).
			Context("error", "unsupported WAV bit depth").
			Build()
	}
}

func layoutForChannelCount(channels int) audiocore.ChannelLayout {
	if channels <= 1 {
		return audiocore.ChannelLayoutMono
	}
	return audiocore.ChannelLayoutStereo
}

func (w *wavFile) Info() audiocore.StreamInfo { return w.format }

// ReadPacket decodes the next fixed-size block of PCM frames. One "packet"
// here is one decode-sized chunk rather than a demuxed container unit,
// since WAV carries no separate packet framing; DecodePacket below just
// unwraps what ReadPacket already decoded.
func (w *wavFile) ReadPacket(ctx context.Context) (audiocore.Packet, error) {
	if err := checkAbort(ctx); err != nil {
		return audiocore.Packet{}, err
	}

	n, err := w.decoder.PCMBuffer(w.intBuf)
	if err != nil {
		return audiocore.Packet{}, pcerrors.New(err).
			Component(component).
			Category(pcerrors.CategoryFileParsing).
			Context("path", w.path).
			Build()
	}
	if n == 0 {
		return audiocore.Packet{}, io.EOF
	}

	channels := w.format.ChannelLayout.Channels()
	startFrame := w.framesRead
	data := make([]byte, n*bytesPerSample(w.format.SampleFormat))
	encodeIntSamples(data, w.intBuf.Data[:n], w.format.SampleFormat)
	w.framesRead += int64(n / channels)

	return audiocore.Packet{Data: data, PTS: startFrame}, nil
}

// DecodePacket wraps the bytes ReadPacket already decoded into one
// DecodedFrame; there is no separate decode stage for PCM WAV data. The
// frame's position is the frame offset ReadPacket captured before decoding,
// converted to seconds with the stream's time base.
func (w *wavFile) DecodePacket(ctx context.Context, pkt audiocore.Packet) ([]audiocore.DecodedFrame, error) {
	if err := checkAbort(ctx); err != nil {
		return nil, err
	}
	bps := bytesPerSample(w.format.SampleFormat)
	frameCount := len(pkt.Data) / bps / w.format.ChannelLayout.Channels()
	return []audiocore.DecodedFrame{{
		Data:       [][]byte{pkt.Data},
		FrameCount: frameCount,
		Format:     w.format,
		PTSSeconds: float64(pkt.PTS) * w.format.TimeBase,
	}}, nil
}

func (w *wavFile) HasDelay() bool { return false }

func (w *wavFile) Drain(ctx context.Context) ([]audiocore.DecodedFrame, error) { return nil, nil }

// Seek reopens the file and discards leading frames up to targetSeconds,
// since wav.Decoder only exposes sequential PCM reads.
func (w *wavFile) Seek(ctx context.Context, targetSeconds float64) error {
	targetFrame := int64(targetSeconds * float64(w.format.SampleRate))
	if targetFrame < 0 {
		targetFrame = 0
	}

	logger.Debug("seeking by reopening wav file", "path", w.path, "target_seconds", targetSeconds)

	w.file.Close()
	f, err := os.Open(w.path)
	if err != nil {
		return pcerrors.New(err).Component(component).Category(pcerrors.CategoryFileIO).Build()
	}
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()

	w.file = f
	w.decoder = decoder
	w.framesRead = 0

	channels := w.format.ChannelLayout.Channels()
	for w.framesRead < targetFrame {
		if err := checkAbort(ctx); err != nil {
			return err
		}
		chunk := w.intBuf
		if want := int(targetFrame-w.framesRead) * channels; want < len(w.intBuf.Data) {
			chunk = &goaudio.IntBuffer{Data: make([]int, want), Format: w.intBuf.Format}
		}
		n, err := decoder.PCMBuffer(chunk)
		if err != nil || n == 0 {
			break
		}
		w.framesRead += int64(n / channels)
	}
	return nil
}

func (w *wavFile) Close() error {
	return w.file.Close()
}

func bytesPerSample(format audiocore.SampleFormat) int {
	return format.BytesPerSample()
}
