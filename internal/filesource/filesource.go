// Package filesource provides audiocore.File implementations backed by
// local WAV and FLAC files, and a path-extension-based factory for opening
// them, grounded on the teacher's WAV reading code (birdnet.go's
// readAudioData) and the format-dispatch idiom surveyed from a third-party
// pipelined audio-file package.
package filesource

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aviarysound/playlistcore/internal/audiocore"
	pcerrors "github.com/aviarysound/playlistcore/internal/errors"
)

const component = "filesource"

// baseState implements the SeekMutex/State/ReadPause/ReadPlay portion of
// audiocore.File common to every concrete source: a mutex-guarded
// SeekState plus no-op transport hooks (neither WAV nor FLAC files need to
// notify anything on pause/play).
type baseState struct {
	mu    sync.Mutex
	state audiocore.SeekState
}

func newBaseState() baseState {
	return baseState{state: audiocore.SeekState{SeekPos: -1}}
}

func (b *baseState) SeekMutex() audiocore.Locker { return &b.mu }
func (b *baseState) State() *audiocore.SeekState { return &b.state }
func (b *baseState) ReadPause() error             { return nil }
func (b *baseState) ReadPlay() error              { return nil }

// Open opens path, dispatching on its file extension (case-insensitive) to
// the WAV or FLAC reader. Unsupported extensions return ErrUnsupportedFormat.
func Open(path string) (audiocore.File, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".flac":
		return OpenFLAC(path)
	default:
		return nil, pcerrors.New(ErrUnsupportedFormat).
			Component(component).
			Category(pcerrors.CategoryValidation).
			Context("path", path).
			Context("extension", ext).
			Build()
	}
}

// ErrUnsupportedFormat is returned by Open for an extension neither reader
// recognizes.
var ErrUnsupportedFormat = fmt.Errorf("filesource: unsupported file extension")

// checkAbort is a small helper shared by both readers: ReadPacket/DecodePacket
// are the only File methods the decode worker calls inside its hot loop, and
// both should return promptly on context cancellation even though disk I/O
// itself is not cancellable mid-syscall.
func checkAbort(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
