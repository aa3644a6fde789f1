// Package audiocore implements the playlist decoding core of an audio
// playback engine: a linked-list playlist of audio sources, a single decode
// worker, and a filter graph that fans format-adapted PCM buffers out to any
// number of attached sinks.
//
// # Architecture Overview
//
//	Playlist (linked list of items) -> decode worker -> filter graph -> SinkGroup -> Sink.Queue
//
// The decode worker is the only goroutine that touches the filter graph or
// reads packets from the currently playing item's File. Everything else —
// playlist edits, sink attach/detach, sink consumers draining queues — runs
// on caller goroutines and coordinates with the worker through the
// playlist's mutex and two condition variables (decodeHeadCond,
// sinkDrainCond).
//
// # Concurrency and Thread Safety
//
//   - Playlist: all exported methods are safe for concurrent use.
//   - Sink: Attach/Detach/BufferGet/BufferPeek are safe for concurrent use;
//     exactly one goroutine should call BufferGet/BufferPeek at a time
//     (single-consumer).
//   - Queue: multi-producer / single-consumer, internally serialized.
//   - Buffer: reference-counted, safe to share across sinks; immutable after
//     construction.
//
// # Buffer Lifecycle
//
//  1. The decode worker wraps one decoded frame per sink group into a
//     Buffer with an initial reference count of one.
//  2. For each sink in the group it Acquires an additional reference before
//     pushing a copy into that sink's Queue.
//  3. After enqueueing to every sink in the group it Releases its own
//     original reference.
//  4. Whichever sink drains (or purges, or flushes) a Buffer last brings its
//     count to zero, returning the backing storage to the BufferPool.
//
// # Error Handling
//
// All errors are built with internal/errors' EnhancedError, tagged with a
// Component and Category so a caller can distinguish fatal-for-construction
// errors (returned) from the operational errors the decode worker absorbs
// and logs per spec §7.
package audiocore
