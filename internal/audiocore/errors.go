package audiocore

import (
	"github.com/aviarysound/playlistcore/internal/errors"
)

// ComponentAudioCore identifies this package to the error-component registry.
const ComponentAudioCore = "audiocore"

// Sentinel errors for the six error kinds named in §7. The decode worker
// absorbs and logs the errors it meets.
var (
	// ErrOutOfMemory identifies a failed Buffer or BufferPool allocation.
	// No function in this package returns it.
	ErrOutOfMemory = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryResource).
		Context("kind", "out-of-memory").
		Build()

	// ErrFilterBuildFailed means the filter graph could not be rebuilt for
	// the current source; the worker aborts the current item and advances
	// the cursor.
	ErrFilterBuildFailed = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryProcessing).
		Context("kind", "filter-build-failed").
		Build()

	// ErrDecoderError means a single frame or packet failed to decode; the
	// worker discards it and continues.
	ErrDecoderError = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryAudio).
		Context("kind", "decoder-error").
		Build()

	// ErrSeekFailed means a requested seek could not be performed;
	// playback continues from the current position.
	ErrSeekFailed = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryAudio).
		Context("kind", "seek-failed").
		Build()

	// ErrSourceAborted means the File's AbortRequest flag was observed
	// set; treated identically to EOF by the worker.
	ErrSourceAborted = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Context("kind", "source-aborted").
		Build()

	// ErrQueueAborted is surfaced to a Sink consumer as StatusNo when the
	// sink's queue has been aborted (typically by Detach).
	ErrQueueAborted = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Context("kind", "queue-aborted").
		Build()

	// ErrSinkNotAttached identifies an operation on a sink that is not
	// attached to a playlist. No function in this package returns it.
	ErrSinkNotAttached = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Context("resource", "sink").
		Build()

	// ErrPlaylistDestroyed identifies use of a playlist after Destroy. No
	// function in this package returns it.
	ErrPlaylistDestroyed = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryState).
		Context("resource", "playlist").
		Build()

	// ErrItemNotFound identifies a PlaylistItem that is not (or no longer)
	// in the list. No function in this package returns it.
	ErrItemNotFound = errors.New(nil).
		Component(ComponentAudioCore).
		Category(errors.CategoryNotFound).
		Context("resource", "playlist_item").
		Build()
)
