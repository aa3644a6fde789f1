package audiocore

import (
	"sync"

	"github.com/google/uuid"
)

// Sink is a consumer endpoint: a declared output format, a target buffer
// capacity, and a bounded Queue the decode worker fans buffers into.
// Component B.
type Sink struct {
	ID string

	Format            AudioFormat
	BufferSize        int // target capacity, in frames
	BufferSampleCount int // 0 => variable-sized output frames
	DisableResample   bool

	FlushFunc FlushFunc
	PurgeFunc PurgeFunc

	queue *Queue

	mu           sync.Mutex
	bytesPerSec  int
	minQueueBytes int
	queueBytes   int
	playlist     *Playlist // nil when detached
}

// NewSink constructs a detached Sink. Attach must be called before it can
// receive buffers.
func NewSink(format AudioFormat, bufferSize, bufferSampleCount int, disableResample bool) *Sink {
	s := &Sink{
		ID:                uuid.NewString(),
		Format:            format,
		BufferSize:        bufferSize,
		BufferSampleCount: bufferSampleCount,
		DisableResample:   disableResample,
	}
	s.queue = NewQueue(QueueHooks{
		OnPut:    s.onPut,
		OnGet:    s.onGet,
		OnRemove: s.onRemove,
	})
	return s
}

// recomputeDerived recalculates bytes_per_sec and min_queue_bytes per
// §3: "bytes_per_sec = channels × bytes_per_sample × sample_rate" and
// "min_queue_bytes = buffer_size × channels × bytes_per_sample".
func (s *Sink) recomputeDerived() {
	bytesPerSample := s.Format.SampleFormat.BytesPerSample()
	channels := s.Format.Channels()
	s.bytesPerSec = channels * bytesPerSample * s.Format.SampleRate
	s.minQueueBytes = s.BufferSize * channels * bytesPerSample
}

// MinQueueBytes returns the backpressure threshold the decode worker checks
// via Playlist.everySinkFull.
func (s *Sink) MinQueueBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minQueueBytes
}

// QueueBytes returns the sink's current tracked queue size.
func (s *Sink) QueueBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueBytes
}

// Playlist returns the attached playlist, or nil if detached.
func (s *Sink) Playlist() *Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlist
}

// Attach joins the sink to a playlist's SinkMap and resets its queue,
// following §4.B step by step.
func (s *Sink) Attach(p *Playlist) error {
	s.mu.Lock()
	s.recomputeDerived()
	s.mu.Unlock()

	p.mu.Lock()
	p.sinkMap.add(s)
	p.sinkDrainCond.Signal()
	p.mu.Unlock()

	s.queue.Reset()

	s.mu.Lock()
	s.playlist = p
	s.mu.Unlock()
	return nil
}

// Detach aborts and flushes the queue, then removes the sink from its
// playlist's SinkMap, per §4.B.
func (s *Sink) Detach() {
	s.queue.Abort()
	s.queue.Flush()

	s.mu.Lock()
	p := s.playlist
	s.playlist = nil
	s.mu.Unlock()

	if p == nil {
		return
	}

	p.mu.Lock()
	p.sinkMap.remove(s)
	p.sinkDrainCond.Signal()
	p.mu.Unlock()
}

// BufferGet is a thin pass-through to Queue.Get, translating the sentinel
// into StatusEnd.
func (s *Sink) BufferGet(block bool) (GetStatus, *Buffer) {
	return s.queue.Get(block)
}

// BufferPeek is a thin pass-through to Queue.Peek.
func (s *Sink) BufferPeek(block bool) (GetStatus, *Buffer) {
	return s.queue.Peek(block)
}

// onPut tracks queue_bytes growth for a newly enqueued buffer.
func (s *Sink) onPut(buf *Buffer) {
	s.mu.Lock()
	s.queueBytes += buf.SizeBytes()
	s.mu.Unlock()
}

// onGet tracks queue_bytes shrinkage and signals sink_drain once this sink
// drops below its backpressure floor, per §4.B.
func (s *Sink) onGet(buf *Buffer) {
	s.mu.Lock()
	s.queueBytes -= buf.SizeBytes()
	belowFloor := s.queueBytes < s.minQueueBytes
	p := s.playlist
	s.mu.Unlock()

	if belowFloor && p != nil {
		p.mu.Lock()
		p.sinkDrainCond.Signal()
		p.mu.Unlock()
	}
}

// onRemove is symmetric to onGet for size accounting only; the buffer's ref
// release is handled by the Queue itself. It does not signal sink_drain:
// Flush and Purge run with the playlist mutex already held, and
// Playlist.Remove and Detach signal sink_drain themselves.
func (s *Sink) onRemove(buf *Buffer) {
	s.mu.Lock()
	s.queueBytes -= buf.SizeBytes()
	s.mu.Unlock()
}

// purgePredicate matches buffers produced from the playlist item currently
// being removed, per the Queue hook described in §4.B.
func (s *Sink) purgePredicate(item *PlaylistItem) func(*Buffer) bool {
	return func(buf *Buffer) bool {
		return buf.ItemRef() == item
	}
}

// formatEquivalent implements §3's SinkGroup membership rule between this
// sink and a candidate representative.
func (s *Sink) formatEquivalent(other *Sink) bool {
	return FormatEquivalent(s.Format, other.Format, s.DisableResample, other.DisableResample, s.BufferSampleCount, other.BufferSampleCount)
}
