package audiocore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aviarysound/playlistcore/internal/errors"
	"github.com/aviarysound/playlistcore/internal/logging"
)

// bufferImpl is the pooled, tiered backing store for a Buffer's PCM data.
type bufferImpl struct {
	data     []byte
	length   int
	refCount int32
	pool     *bufferPoolImpl
	mu       sync.Mutex
}

func (b *bufferImpl) Data() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[:b.length]
}

func (b *bufferImpl) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

func (b *bufferImpl) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cap(b.data)
}

func (b *bufferImpl) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.length = 0
}

func (b *bufferImpl) Resize(newSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if newSize < 0 {
		return errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "buffer_resize").
			Context("new_size", newSize).
			Build()
	}

	if newSize <= cap(b.data) {
		b.length = newSize
		return nil
	}

	newData := make([]byte, newSize)
	copy(newData, b.data[:b.length])
	b.data = newData
	b.length = newSize

	return nil
}

func (b *bufferImpl) Slice(start, end int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || end > b.length || start > end {
		return nil, errors.Newf("invalid slice bounds [%d:%d] for buffer of length %d", start, end, b.length).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "buffer_slice").
			Context("start", start).
			Context("end", end).
			Context("length", b.length).
			Build()
	}

	return b.data[start:end], nil
}

// Acquire increments the reference count.
func (b *bufferImpl) Acquire() {
	atomic.AddInt32(&b.refCount, 1)
}

// Release decrements the reference count and returns the buffer to its pool
// tier once the count reaches zero.
func (b *bufferImpl) Release() {
	newCount := atomic.AddInt32(&b.refCount, -1)
	if newCount == 0 && b.pool != nil {
		b.pool.Put(b)
	}
}

// bufferPoolImpl is a size-tiered sync.Pool-backed BufferPool.
type bufferPoolImpl struct {
	smallPool  sync.Pool
	mediumPool sync.Pool
	largePool  sync.Pool
	config     BufferPoolConfig
	stats      BufferPoolStats
	tierStats  map[string]*BufferPoolStats
	statsMu    sync.RWMutex
	logger     *slog.Logger
	onReport   func(tier string, stats BufferPoolStats)
}

// NewBufferPool creates a tiered buffer pool. Zero-valued fields in config
// fall back to the package's Default* tier sizes.
func NewBufferPool(config BufferPoolConfig) BufferPool {
	if config.SmallBufferSize == 0 {
		config.SmallBufferSize = DefaultSmallBufferSize
	}
	if config.MediumBufferSize == 0 {
		config.MediumBufferSize = DefaultMediumBufferSize
	}
	if config.LargeBufferSize == 0 {
		config.LargeBufferSize = DefaultLargeBufferSize
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "buffer_pool")

	pool := &bufferPoolImpl{
		config: config,
		logger: logger,
		tierStats: map[string]*BufferPoolStats{
			"small":  {},
			"medium": {},
			"large":  {},
			"custom": {},
		},
	}

	pool.smallPool.New = func() any {
		return &bufferImpl{data: make([]byte, config.SmallBufferSize), pool: pool}
	}
	pool.mediumPool.New = func() any {
		return &bufferImpl{data: make([]byte, config.MediumBufferSize), pool: pool}
	}
	pool.largePool.New = func() any {
		return &bufferImpl{data: make([]byte, config.LargeBufferSize), pool: pool}
	}

	logger.Info("buffer pool created",
		"small_size", config.SmallBufferSize,
		"medium_size", config.MediumBufferSize,
		"large_size", config.LargeBufferSize,
		"max_per_size", config.MaxBuffersPerSize)

	return pool
}

// SetMetricsReporter installs the callback ReportMetrics forwards per-tier
// stats to, such as MetricsCollector.RecordBufferPoolStats. No code in this
// module installs one; without it ReportMetrics forwards nothing.
func (p *bufferPoolImpl) SetMetricsReporter(fn func(tier string, stats BufferPoolStats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.onReport = fn
}

func (p *bufferPoolImpl) Get(size int) AudioBuffer {
	var buf *bufferImpl
	var tier string

	switch {
	case size <= p.config.SmallBufferSize:
		buf = p.smallPool.Get().(*bufferImpl)
		tier = "small"
	case size <= p.config.MediumBufferSize:
		buf = p.mediumPool.Get().(*bufferImpl)
		tier = "medium"
	case size <= p.config.LargeBufferSize:
		buf = p.largePool.Get().(*bufferImpl)
		tier = "large"
	default:
		buf = &bufferImpl{data: make([]byte, size), pool: p}
		tier = "custom"
		p.logger.Debug("allocated custom-sized buffer", "size", size)
	}

	buf.length = size
	buf.refCount = 1

	p.updateStats(tier, func(s *BufferPoolStats) {
		s.TotalBuffers++
		s.ActiveBuffers++
	})

	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("buffer allocated", "tier", tier, "requested_size", size, "actual_capacity", cap(buf.data))
	}

	return buf
}

func (p *bufferPoolImpl) Put(buffer AudioBuffer) {
	buf, ok := buffer.(*bufferImpl)
	if !ok {
		return
	}

	capacity := cap(buf.data)
	var tier string
	buf.Reset()
	buf.refCount = 0

	switch {
	case capacity <= p.config.SmallBufferSize:
		p.smallPool.Put(buf)
		tier = "small"
	case capacity <= p.config.MediumBufferSize:
		p.mediumPool.Put(buf)
		tier = "medium"
	case capacity <= p.config.LargeBufferSize:
		p.largePool.Put(buf)
		tier = "large"
	default:
		tier = "custom"
		p.logger.Debug("discarding custom-sized buffer", "capacity", capacity)
	}

	p.updateStats(tier, func(s *BufferPoolStats) {
		s.ActiveBuffers--
	})
}

func (p *bufferPoolImpl) Stats() BufferPoolStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

// TierStats returns the stats accumulated for one named tier
// ("small"/"medium"/"large"/"custom"), or false if the name is unknown.
func (p *bufferPoolImpl) TierStats(tier string) (BufferPoolStats, bool) {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	s, ok := p.tierStats[tier]
	if !ok {
		return BufferPoolStats{}, false
	}
	return *s, true
}

// ReportMetrics forwards each tier's stats to the installed metrics
// reporter, if any. A nil reporter makes this a no-op.
func (p *bufferPoolImpl) ReportMetrics() {
	p.statsMu.RLock()
	reporter := p.onReport
	snapshot := make(map[string]BufferPoolStats, len(p.tierStats))
	for tier, s := range p.tierStats {
		snapshot[tier] = *s
	}
	p.statsMu.RUnlock()

	if reporter == nil {
		return
	}
	for tier, stats := range snapshot {
		reporter(tier, stats)
	}
}

func (p *bufferPoolImpl) updateStats(tier string, fn func(*BufferPoolStats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	fn(&p.stats)
	if s, ok := p.tierStats[tier]; ok {
		fn(s)
	}
}

// Buffer is the reference-counted, immutable-after-construction handle the
// decode worker fans out to sinks: one decoded frame plus the playlist item
// it was produced from and its position in source time. All sink queues
// share Buffers; the backing storage returns to its BufferPool tier when
// the last reference is released.
type Buffer struct {
	backing         AudioBuffer
	itemRef         *PlaylistItem
	positionSeconds float64
	frameCount      int
	format          AudioFormat
	sizeBytes       int
}

// NewBuffer wraps one decoded frame's data (already copied into backing) in
// an immutable Buffer handle with an initial reference count of one.
func NewBuffer(backing AudioBuffer, item *PlaylistItem, positionSeconds float64, frameCount int, format AudioFormat) *Buffer {
	return &Buffer{
		backing:         backing,
		itemRef:         item,
		positionSeconds: positionSeconds,
		frameCount:      frameCount,
		format:          format,
		sizeBytes:       backing.Len(),
	}
}

// Data returns the buffer's PCM bytes. Safe to call from multiple sinks
// concurrently since the Buffer never mutates after construction.
func (b *Buffer) Data() []byte { return b.backing.Data() }

// ItemRef is the playlist item this buffer was decoded from, at decode
// time. It is a weak, non-owning reference: the item may since have been
// removed from the playlist.
func (b *Buffer) ItemRef() *PlaylistItem { return b.itemRef }

// PositionSeconds is this buffer's timestamp in the source's time base.
func (b *Buffer) PositionSeconds() float64 { return b.positionSeconds }

// FrameCount is the number of PCM frames (one sample per channel) held.
func (b *Buffer) FrameCount() int { return b.frameCount }

// Format is the PCM layout of Data().
func (b *Buffer) Format() AudioFormat { return b.format }

// SizeBytes is the byte size counted toward a Sink's queue_bytes accounting.
func (b *Buffer) SizeBytes() int { return b.sizeBytes }

// Acquire adds one reference. Called once per sink before enqueuing a copy
// of this Buffer into that sink's queue (§5: "Buffer refcounting").
func (b *Buffer) Acquire() { b.backing.Acquire() }

// Release drops one reference, returning the backing storage to its pool
// tier when the count reaches zero.
func (b *Buffer) Release() { b.backing.Release() }
