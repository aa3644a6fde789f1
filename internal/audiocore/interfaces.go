// Package audiocore implements the playlist decoding core of an audio
// playback engine. See doc.go for the architecture overview.
//
// Key interfaces:
//   - File: decoder/demuxer collaborator (packet source, seek, pause/play)
//   - FilterEngine / FilterGraph: gain + fan-out + per-sink format conversion
//   - BufferPool: tiered memory management for decoded PCM buffers
package audiocore

import (
	"context"
	"time"
)

// SampleFormat identifies the PCM sample encoding of a Buffer or AudioFormat.
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS32
	SampleFormatFlt
	SampleFormatDbl
	SampleFormatU8P  // planar unsigned 8-bit
	SampleFormatS16P // planar signed 16-bit
	SampleFormatS32P // planar signed 32-bit
	SampleFormatFltP // planar 32-bit float
	SampleFormatDblP // planar 64-bit float
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatFlt:
		return "flt"
	case SampleFormatDbl:
		return "dbl"
	case SampleFormatU8P:
		return "u8p"
	case SampleFormatS16P:
		return "s16p"
	case SampleFormatS32P:
		return "s32p"
	case SampleFormatFltP:
		return "fltp"
	case SampleFormatDblP:
		return "dblp"
	default:
		return "unknown"
	}
}

// Planar reports whether samples for each channel are stored in separate
// planes rather than interleaved.
func (f SampleFormat) Planar() bool {
	switch f {
	case SampleFormatU8P, SampleFormatS16P, SampleFormatS32P, SampleFormatFltP, SampleFormatDblP:
		return true
	default:
		return false
	}
}

// BytesPerSample returns the storage width of a single sample, regardless
// of planar/interleaved layout.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatU8, SampleFormatU8P:
		return 1
	case SampleFormatS16, SampleFormatS16P:
		return 2
	case SampleFormatS32, SampleFormatFlt, SampleFormatS32P, SampleFormatFltP:
		return 4
	case SampleFormatDbl, SampleFormatDblP:
		return 8
	default:
		return 0
	}
}

// ChannelLayout is a bitmask of present speaker positions; the number of set
// bits is the channel count. Bit 0/1 are the common stereo pair so that
// mono/stereo layouts read naturally in tests and logs.
type ChannelLayout uint64

const (
	ChannelFrontLeft ChannelLayout = 1 << iota
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelBackLeft
	ChannelBackRight
	ChannelSideLeft
	ChannelSideRight
)

const (
	ChannelLayoutMono   ChannelLayout = ChannelFrontCenter
	ChannelLayoutStereo ChannelLayout = ChannelFrontLeft | ChannelFrontRight
)

// Channels returns the number of channels implied by the layout's set bits.
func (l ChannelLayout) Channels() int {
	n := 0
	for l != 0 {
		n += int(l & 1)
		l >>= 1
	}
	return n
}

// AudioFormat describes the shape of PCM data: rate, channel layout, and
// sample encoding. Equality is field-wise.
type AudioFormat struct {
	SampleRate    int
	ChannelLayout ChannelLayout
	SampleFormat  SampleFormat
}

// Channels is a convenience accessor over ChannelLayout.Channels().
func (f AudioFormat) Channels() int {
	return f.ChannelLayout.Channels()
}

// BytesPerFrame returns the size in bytes of one frame (one sample per
// channel) in this format.
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels() * f.SampleFormat.BytesPerSample()
}

// Equal reports field-wise equality with other.
func (f AudioFormat) Equal(other AudioFormat) bool {
	return f == other
}

// FormatEquivalent implements the sink-grouping rule of §4.C: when both
// sides disable resampling entirely, the audio format is irrelevant to
// grouping; otherwise every field plus the requested fixed frame count must
// match exactly.
func FormatEquivalent(a, b AudioFormat, aDisableResample, bDisableResample bool, aBufferSampleCount, bBufferSampleCount int) bool {
	if aDisableResample && bDisableResample {
		return true
	}
	return a.Equal(b) && aBufferSampleCount == bBufferSampleCount
}

// GetStatus is the result of a non-blocking or blocking buffer read from a
// Sink's queue.
type GetStatus int

const (
	StatusNo GetStatus = iota
	StatusYes
	StatusEnd
)

func (s GetStatus) String() string {
	switch s {
	case StatusYes:
		return "yes"
	case StatusEnd:
		return "end"
	default:
		return "no"
	}
}

// StreamInfo describes a File's stream at open time.
type StreamInfo struct {
	SampleRate    int
	SampleFormat  SampleFormat
	ChannelLayout ChannelLayout
	TimeBase      float64 // seconds per tick of packet PTS values
	StartTime     float64 // seconds; source-relative offset of the first sample
}

// Packet is one demuxed, still-encoded unit read from a File.
type Packet struct {
	Data    []byte
	PTS     int64
	StreamI int
}

// DecodedFrame is one decoder output: planar or interleaved PCM plus the
// format it was decoded in.
type DecodedFrame struct {
	Data       [][]byte // one slice per plane; len 1 for interleaved formats
	FrameCount int
	Format     AudioFormat
	PTSSeconds float64 // source-relative position; UnknownPTSSeconds if the source couldn't determine it
}

// UnknownPTSSeconds marks a DecodedFrame whose source position could not be
// determined from the packet alone; the worker falls back to estimating the
// clock advance from bytes decoded instead of stamping it directly.
const UnknownPTSSeconds = -1

// SeekState is the seek/eof/abort coordination block a File exposes per
// §6; callers must hold SeekMutex() while reading or writing it.
type SeekState struct {
	SeekPos      float64 // seconds; negative means "no pending seek"
	SeekFlush    bool
	EOF          bool
	AudioClock   float64
	AbortRequest bool
}

// File is the decoder/demuxer collaborator: opens an audio source, exposes
// packets, and supports seeking and pause/play. Implementations live
// outside this package (see internal/filesource for the concrete WAV/FLAC
// readers); audiocore only depends on this interface.
type File interface {
	// Info returns the stream's format as discovered at open time.
	Info() StreamInfo

	// ReadPacket reads the next encoded packet. It returns io.EOF-like
	// behavior by returning an error that errors.Is(err, io.EOF); callers
	// should ignore packets whose StreamI does not match the audio stream
	// they are decoding.
	ReadPacket(ctx context.Context) (Packet, error)

	// DecodePacket feeds one packet to the underlying decoder and returns
	// zero or more decoded frames (zero when the decoder is still
	// buffering, e.g. for codecs with encoder delay).
	DecodePacket(ctx context.Context, pkt Packet) ([]DecodedFrame, error)

	// HasDelay reports whether the decoder holds buffered frames that must
	// be drained with an empty packet after EOF.
	HasDelay() bool

	// Drain feeds an empty packet to flush any decoder-held frames.
	Drain(ctx context.Context) ([]DecodedFrame, error)

	// Seek requests the decoder seek to the given target in stream time
	// base seconds (already adjusted for StartTime by the caller).
	Seek(ctx context.Context, targetSeconds float64) error

	// ReadPause / ReadPlay notify the source of transport state changes;
	// sources that have nothing special to do may no-op.
	ReadPause() error
	ReadPlay() error

	// SeekMutex returns the lock guarding State(); callers hold it across
	// a read-modify-write of the returned SeekState.
	SeekMutex() Locker

	// State returns the mutable seek/eof/abort block. Must be read and
	// written under SeekMutex().
	State() *SeekState

	// Close releases any resources associated with the source.
	Close() error
}

// Locker is satisfied by *sync.Mutex; kept abstract so File implementations
// outside this module don't need to import sync directly in their public
// surface.
type Locker interface {
	Lock()
	Unlock()
}

// FlushFunc is invoked after a seek-with-flush, with the owning playlist's
// coordination mutex held. Implementations must not block on that mutex.
type FlushFunc func(sink *Sink)

// PurgeFunc is invoked during Playlist.Remove, with the coordination mutex
// held, after the sink's queue has been purged of buffers referencing item.
type PurgeFunc func(sink *Sink, item *PlaylistItem)

// GraphEndpoint identifies one filter-graph output branch and the format it
// delivers.
type GraphEndpoint struct {
	Group              *SinkGroup
	Format             AudioFormat
	DisableResample    bool
	BufferSampleCount  int // 0 means variable-length frames
}

// GraphTopology is the full description a FilterEngine needs to build a
// graph: the input format, whether a gain node is present, whether a split
// node is present, and one endpoint per sink group.
type GraphTopology struct {
	Input        AudioFormat
	GainPresent  bool
	Gain         float64
	SplitPresent bool
	Endpoints    []GraphEndpoint
}

// FilterGraph is a built, runnable instance of a GraphTopology. The decode
// worker is its only caller and owns it exclusively.
type FilterGraph interface {
	// Push feeds one decoded input frame into the graph.
	Push(ctx context.Context, frame DecodedFrame) error

	// Pull drains every output frame currently ready for the given
	// endpoint. Returns an empty slice, not an error, when nothing is
	// ready yet.
	Pull(ctx context.Context, endpoint int) ([]DecodedFrame, error)

	// Close releases any resources held by the graph.
	Close() error
}

// FilterEngine builds FilterGraphs from a topology description. A default
// implementation lives in internal/filterengine; audiocore only depends on
// this interface, per the spec's external-collaborator boundary.
type FilterEngine interface {
	Build(topology GraphTopology) (FilterGraph, error)
}

// AudioBuffer is a reference-counted, pooled backing store for one decoded
// frame's worth of PCM data.
type AudioBuffer interface {
	Data() []byte
	Len() int
	Cap() int
	Reset()
	Resize(newSize int) error
	Slice(start, end int) ([]byte, error)
	Acquire()
	Release()
}

// BufferPool manages reusable, size-tiered AudioBuffers.
type BufferPool interface {
	Get(size int) AudioBuffer
	Put(buffer AudioBuffer)
	Stats() BufferPoolStats
	TierStats(tier string) (BufferPoolStats, bool)
	ReportMetrics()
}

// BufferPoolStats reports buffer pool usage, exported verbatim through
// Playlist.Metrics().
type BufferPoolStats struct {
	TotalBuffers   int
	ActiveBuffers  int
	TotalAllocated int64
	HitRate        float64
}

// BufferPoolConfig configures the tiered pool's size classes.
type BufferPoolConfig struct {
	SmallBufferSize   int
	MediumBufferSize  int
	LargeBufferSize   int
	MaxBuffersPerSize int
	EnableMetrics     bool
}

// PlaylistMetrics reports runtime counters for a Playlist and its decode
// worker. Playlist.Metrics computes the values on each call and leaves
// LastUpdate at its zero value.
type PlaylistMetrics struct {
	SinkCount        int
	SinkGroupCount   int
	DecodedFrames    int64
	DecodeErrors     int64
	FilterRebuilds   int64
	BufferPoolStats  BufferPoolStats
	LastUpdate       time.Time
}
