package audiocore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aviarysound/playlistcore/internal/config"
	"github.com/aviarysound/playlistcore/internal/errors"
	"github.com/aviarysound/playlistcore/internal/logging"
)

// PlaylistItem is one playlist entry: an audio source and its per-item
// gain, linked into the playlist's doubly linked list. Created by Insert,
// destroyed by Remove or Clear only after every attached sink's queue has
// purged buffers referencing it (§3).
type PlaylistItem struct {
	File File
	Gain float64

	prev, next *PlaylistItem
}

// Next returns the following item, or nil at the tail.
func (i *PlaylistItem) Next() *PlaylistItem { return i.next }

// Prev returns the preceding item, or nil at the head.
func (i *PlaylistItem) Prev() *PlaylistItem { return i.prev }

// Playlist is a doubly linked list of PlaylistItems with a decode cursor, a
// single background decode worker, and the coordination state (mutex plus
// two condvars) the worker and external edit operations share. Components E
// and G of SPEC_FULL.md §2, combined.
type Playlist struct {
	mu             sync.Mutex
	decodeHeadCond sync.Cond
	sinkDrainCond  sync.Cond

	head, tail    *PlaylistItem
	volume        float64
	decodeCursor  *PlaylistItem
	sentEndOfQ    bool
	purgeItem     *PlaylistItem
	effectiveGain float64
	rebuildFlag   bool

	sinkMap SinkMap

	paused       atomic.Bool
	abortRequest atomic.Bool

	filterEngine  FilterEngine
	filterState   filterGraphState
	bufferPool    BufferPool
	gainClampMin  float64
	gainClampMax  float64

	decodedFrames  atomic.Int64
	decodeErrors   atomic.Int64
	filterRebuilds atomic.Int64

	metrics *MetricsCollector
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// recordDecodeError bumps the local counter and, if a collector is
// attached, the corresponding Prometheus counter.
func (p *Playlist) recordDecodeError() {
	p.decodeErrors.Add(1)
	if p.metrics != nil {
		p.metrics.RecordDecodeError("")
	}
}

// SetMetricsCollector attaches a MetricsCollector the decode worker reports
// into. Safe to call before or after Playlist construction; a nil
// collector (the default) means metrics calls are no-ops.
func (p *Playlist) SetMetricsCollector(mc *MetricsCollector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = mc
}

// PlaylistCreate constructs a Playlist and starts its decode worker.
// Returns an error only when filterEngine or bufferPool is nil.
func PlaylistCreate(filterEngine FilterEngine, bufferPool BufferPool) (*Playlist, error) {
	if filterEngine == nil || bufferPool == nil {
		return nil, errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "playlist_create").
			Build()
	}

	engineSettings := config.Setting().Engine

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}

	p := &Playlist{
		volume:       1.0,
		filterEngine: filterEngine,
		bufferPool:   bufferPool,
		gainClampMin: engineSettings.GainClampMin,
		gainClampMax: engineSettings.GainClampMax,
		logger:       logger.With("component", "playlist"),
	}
	p.decodeHeadCond.L = &p.mu
	p.sinkDrainCond.L = &p.mu

	p.wg.Add(1)
	go runWorker(p)

	return p, nil
}

// Destroy stops the decode worker and detaches every attached sink,
// following §5's cancellation model: set abort_request, signal both
// condvars, join the worker, then detach every sink.
func (p *Playlist) Destroy() {
	p.abortRequest.Store(true)

	p.mu.Lock()
	p.decodeHeadCond.Signal()
	p.sinkDrainCond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()

	p.mu.Lock()
	var sinks []*Sink
	p.sinkMap.forEachSink(func(s *Sink) { sinks = append(sinks, s) })
	p.mu.Unlock()

	for _, s := range sinks {
		s.Detach()
	}
}

// Insert adds a new item holding file/gain before next, or at the tail if
// next is nil, per §4.E.
func (p *Playlist) Insert(file File, gain float64, next *PlaylistItem) *PlaylistItem {
	item := &PlaylistItem{File: file, Gain: gain}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.head == nil {
		p.head, p.tail = item, item
		if file != nil {
			file.SeekMutex().Lock()
			state := file.State()
			state.SeekPos = 0
			state.SeekFlush = false
			file.SeekMutex().Unlock()
		}
		p.decodeCursor = item
		p.decodeHeadCond.Signal()
		return item
	}

	if next == nil {
		item.prev = p.tail
		p.tail.next = item
		p.tail = item
		return item
	}

	item.next = next
	item.prev = next.prev
	if next.prev != nil {
		next.prev.next = item
	} else {
		p.head = item
	}
	next.prev = item
	return item
}

// Remove unlinks item from the list, advancing the decode cursor if it was
// decoding item, purges every attached sink's queue of buffers referencing
// it, and signals sink_drain, per §4.E.
func (p *Playlist) Remove(item *PlaylistItem) {
	p.mu.Lock()

	if p.decodeCursor == item {
		p.decodeCursor = item.next
		// Open question resolved per §9: also signal decode_head_cond here
		// so a worker left waiting on a now-nil cursor for a removed
		// single-item list wakes promptly instead of stalling until the
		// next unrelated event.
		p.decodeHeadCond.Signal()
	}

	if item.prev != nil {
		item.prev.next = item.next
	} else {
		p.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		p.tail = item.prev
	}
	item.prev, item.next = nil, nil

	p.purgeItem = item
	var sinks []*Sink
	p.sinkMap.forEachSink(func(s *Sink) { sinks = append(sinks, s) })

	for _, s := range sinks {
		s.queue.Purge(s.purgePredicate(item))
		if s.PurgeFunc != nil {
			s.PurgeFunc(s, item)
		}
	}
	p.purgeItem = nil

	p.sinkDrainCond.Signal()
	p.mu.Unlock()
}

// Clear removes every item, starting from the head.
func (p *Playlist) Clear() {
	for {
		p.mu.Lock()
		item := p.head
		p.mu.Unlock()
		if item == nil {
			return
		}
		p.Remove(item)
	}
}

// Seek requests that item be decoded from position seconds, measured in
// the item's source time base. The actual seek happens on the worker's
// next iteration, per §4.E.
func (p *Playlist) Seek(item *PlaylistItem, seconds float64) {
	if item.File == nil {
		return
	}

	target := seconds
	info := item.File.Info()
	target += info.StartTime

	p.mu.Lock()
	item.File.SeekMutex().Lock()
	state := item.File.State()
	state.SeekPos = target
	state.SeekFlush = true
	item.File.SeekMutex().Unlock()

	p.decodeCursor = item
	p.decodeHeadCond.Signal()
	p.mu.Unlock()
}

// SetVolume sets the playlist-wide volume and, if a cursor is present,
// recomputes effective_gain. Per the open question in §9, this
// deliberately does not set rebuild_flag: maybeRebuild's comparison of
// effective_gain against its last-built snapshot is what triggers the
// rebuild, so the behavior is preserved without an explicit flag.
func (p *Playlist) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	if p.decodeCursor != nil {
		p.effectiveGain = v * p.decodeCursor.Gain
	}
}

// SetGain sets item's per-item gain and, if item is the current cursor,
// recomputes effective_gain.
func (p *Playlist) SetGain(item *PlaylistItem, gain float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item.Gain = gain
	if p.decodeCursor == item {
		p.effectiveGain = p.volume * gain
	}
}

// Position returns the decode cursor and the cursor source's audio clock.
func (p *Playlist) Position() (*PlaylistItem, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.decodeCursor == nil || p.decodeCursor.File == nil {
		return p.decodeCursor, 0
	}
	p.decodeCursor.File.SeekMutex().Lock()
	clock := p.decodeCursor.File.State().AudioClock
	p.decodeCursor.File.SeekMutex().Unlock()
	return p.decodeCursor, clock
}

// Play clears the paused flag.
func (p *Playlist) Play() { p.paused.Store(false) }

// Pause sets the paused flag.
func (p *Playlist) Pause() { p.paused.Store(true) }

// Playing reports the inverse of the paused flag.
func (p *Playlist) Playing() bool { return !p.paused.Load() }

// Count walks the list and counts its items. Callers mutating the list
// concurrently are responsible for their own synchronization; this is a
// best-effort observation, per §4.E.
func (p *Playlist) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for item := p.head; item != nil; item = item.next {
		n++
	}
	return n
}

// AttachSink is a convenience wrapper equivalent to sink.Attach(p).
func (p *Playlist) AttachSink(s *Sink) error { return s.Attach(p) }

// Metrics reports runtime counters for this playlist and its decode
// worker, supplementing the spec with the teacher's managerImpl.Metrics()
// pattern (see SPEC_FULL.md's Supplemented Features).
func (p *Playlist) Metrics() PlaylistMetrics {
	p.mu.Lock()
	sinkCount := 0
	p.sinkMap.forEachSink(func(*Sink) { sinkCount++ })
	groupCount := p.sinkMap.Count()
	p.mu.Unlock()

	return PlaylistMetrics{
		SinkCount:      sinkCount,
		SinkGroupCount: groupCount,
		DecodedFrames:  p.decodedFrames.Load(),
		DecodeErrors:   p.decodeErrors.Load(),
		FilterRebuilds: p.filterRebuilds.Load(),
		BufferPoolStats: p.bufferPool.Stats(),
	}
}

// everySinkFull reports whether every attached sink's queue is at or above
// its backpressure floor (§4.F step 4). An empty sink map is never full.
func (p *Playlist) everySinkFull() bool {
	full := true
	any := false
	p.sinkMap.forEachSink(func(s *Sink) {
		any = true
		if s.QueueBytes() < s.MinQueueBytes() {
			full = false
		}
	})
	return any && full
}

// everySinkFlush invokes each attached sink's queue flush and user
// FlushFunc, used after a seek-with-flush (§4.F step 6, §6).
func (p *Playlist) everySinkFlush() {
	p.sinkMap.forEachSink(func(s *Sink) {
		s.queue.Flush()
		if s.FlushFunc != nil {
			s.FlushFunc(s)
		}
	})
}

// enqueueEndOfStream pushes the EndOfStream sentinel to every attached
// sink (§4.F step 2).
func (p *Playlist) enqueueEndOfStream() {
	p.sinkMap.forEachSink(func(s *Sink) {
		s.queue.PutEndOfStream()
	})
}

// ctxDone returns a background context; Playlist has no context of its
// own. Nothing in this package calls it: the worker passes
// context.Background() to collaborators directly.
func (p *Playlist) ctxDone() context.Context {
	return context.Background()
}
