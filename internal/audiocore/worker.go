package audiocore

import (
	"context"
	"errors"
	"io"

	pcerrors "github.com/aviarysound/playlistcore/internal/errors"
)

// runWorker is the single background decode worker started by
// PlaylistCreate, one instance per Playlist, per §4.F. It owns the filter
// graph exclusively and is the only goroutine that reads packets from the
// cursor's File.
func runWorker(p *Playlist) {
	defer p.wg.Done()

	pausedSeen := p.paused.Load()

	for {
		p.mu.Lock()

		if p.abortRequest.Load() {
			p.mu.Unlock()
			return
		}

		if p.decodeCursor == nil {
			if !p.sentEndOfQ {
				p.enqueueEndOfStream()
				p.sentEndOfQ = true
			}
			p.decodeHeadCond.Wait()
			p.mu.Unlock()
			continue
		}
		p.sentEndOfQ = false

		if p.everySinkFull() {
			p.sinkDrainCond.Wait()
			p.mu.Unlock()
			continue
		}

		p.effectiveGain = p.volume * p.decodeCursor.Gain
		cursor := p.decodeCursor

		status := decodeOneFrame(p, cursor, &pausedSeen)

		if status == -1 {
			next := cursor.next
			p.decodeCursor = next
			if next != nil && next.File != nil {
				next.File.SeekMutex().Lock()
				state := next.File.State()
				state.SeekPos = 0
				state.SeekFlush = false
				next.File.SeekMutex().Unlock()
			}
		}

		p.mu.Unlock()
	}
}

// decodeOneFrame implements §4.F step 6: rebuild the graph if needed,
// observe pause/seek, read and decode one packet (or drain on EOF), and
// fan the resulting frames out to every sink. Returns -1 when the current
// item is done (nil file, filter build failure, source abort, or EOF with
// nothing left to drain) and the worker should advance the cursor; returns
// 0 otherwise, including after a packet read or decode error, which only
// discards that packet. Called with the
// coordination mutex held.
func decodeOneFrame(p *Playlist, cursor *PlaylistItem, pausedSeen *bool) int {
	ctx := context.Background()
	file := cursor.File
	if file == nil {
		return -1
	}

	info := file.Info()
	if err := p.maybeRebuild(info.toAudioFormat(), p.effectiveGain); err != nil {
		p.logger.Warn("filter graph build failed, advancing playlist",
			"error", err, "category", pcerrors.CategoryProcessing)
		return -1
	}

	file.SeekMutex().Lock()
	state := file.State()
	if state.AbortRequest {
		file.SeekMutex().Unlock()
		return -1
	}
	file.SeekMutex().Unlock()

	paused := p.paused.Load()
	if paused != *pausedSeen {
		var err error
		if paused {
			err = file.ReadPause()
		} else {
			err = file.ReadPlay()
		}
		if err != nil {
			p.logger.Warn("read_pause/read_play failed", "error", err)
		}
		*pausedSeen = paused
	}

	file.SeekMutex().Lock()
	state = file.State()
	if state.SeekPos >= 0 {
		target := state.SeekPos
		flush := state.SeekFlush
		file.SeekMutex().Unlock()

		if err := file.Seek(ctx, target); err != nil {
			p.logger.Warn("seek failed, continuing from current position", "error", err)
		} else if flush {
			p.everySinkFlush()
		}

		file.SeekMutex().Lock()
		state = file.State()
		state.SeekPos = -1
		state.EOF = false
		file.SeekMutex().Unlock()
	} else {
		file.SeekMutex().Unlock()
	}

	file.SeekMutex().Lock()
	eof := file.State().EOF
	file.SeekMutex().Unlock()

	if eof {
		if file.HasDelay() {
			frames, err := file.Drain(ctx)
			if err != nil || len(frames) == 0 {
				return -1
			}
			fanOut(p, cursor, frames)
			return 0
		}
		return -1
	}

	pkt, err := file.ReadPacket(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			file.SeekMutex().Lock()
			file.State().EOF = true
			file.SeekMutex().Unlock()
			return 0
		}
		p.recordDecodeError()
		return 0
	}

	frames, err := file.DecodePacket(ctx, pkt)
	if err != nil {
		p.recordDecodeError()
		return 0
	}

	fanOut(p, cursor, frames)
	return 0
}

// fanOut pushes each decoded input frame into the filter graph, then for
// each sink group pulls every ready output frame, wraps it as a Buffer,
// and pushes one ref'd copy per member sink, per §4.F step 6 and the
// refcounting discipline in §5.
func fanOut(p *Playlist, cursor *PlaylistItem, frames []DecodedFrame) {
	ctx := context.Background()
	graph := p.filterState.graph
	if graph == nil {
		return
	}

	var largestGroupBytes int
	var largestGroupDelta float64
	anyKnownPTS := false

	for _, frame := range frames {
		if err := graph.Push(ctx, frame); err != nil {
			p.recordDecodeError()
			continue
		}
		p.decodedFrames.Add(1)
		if p.metrics != nil {
			p.metrics.RecordDecodedFrame("")
		}

		// Update the source's audio clock from this frame's own PTS, per
		// playlist.c's "update the audio clock with the pts if we can".
		// Every buffer produced from this frame is stamped with the
		// resulting clock value below, not with the frame's PTS directly,
		// since the filter graph may split one input frame across several
		// sink groups.
		if frame.PTSSeconds != UnknownPTSSeconds && cursor.File != nil {
			cursor.File.SeekMutex().Lock()
			cursor.File.State().AudioClock = frame.PTSSeconds
			cursor.File.SeekMutex().Unlock()
			anyKnownPTS = true
		}

		for _, group := range p.sinkMap.Groups() {
			out, err := graph.Pull(ctx, group.Endpoint())
			if err != nil {
				p.recordDecodeError()
				continue
			}

			for _, of := range out {
				backing := p.bufferPool.Get(dataLen(of.Data))
				copyFrame(backing, of.Data)

				pos := 0.0
				if cursor.File != nil {
					cursor.File.SeekMutex().Lock()
					pos = cursor.File.State().AudioClock
					cursor.File.SeekMutex().Unlock()
				}

				buf := NewBuffer(backing, cursor, pos, of.FrameCount, of.Format)
				members := group.Members()
				for _, sink := range members {
					buf.Acquire()
					sink.queue.Put(buf)
				}
				buf.Release()

				if buf.SizeBytes() > largestGroupBytes {
					largestGroupBytes = buf.SizeBytes()
					largestGroupDelta = estimateDelta(buf, members)
				}
			}
		}
	}

	// If no frame in this packet carried a usable PTS, fall back to
	// estimating the clock advance from the largest group's data volume,
	// per §4.F step 6.
	if !anyKnownPTS && cursor.File != nil && largestGroupBytes > 0 {
		cursor.File.SeekMutex().Lock()
		cursor.File.State().AudioClock += largestGroupDelta
		cursor.File.SeekMutex().Unlock()
	}
}

// estimateDelta approximates the time advanced by one buffer when the
// source packet carried no usable PTS, per §4.F step 6: "estimate using
// the group that produced the largest data volume this packet
// (delta_sec = bytes / bytes_per_sec)".
func estimateDelta(buf *Buffer, members []*Sink) float64 {
	if len(members) == 0 {
		return 0
	}
	bytesPerSec := members[0].bytesPerSec
	if bytesPerSec == 0 {
		return 0
	}
	return float64(buf.SizeBytes()) / float64(bytesPerSec)
}

func dataLen(planes [][]byte) int {
	total := 0
	for _, p := range planes {
		total += len(p)
	}
	return total
}

func copyFrame(dst AudioBuffer, planes [][]byte) {
	out := dst.Data()
	offset := 0
	for _, plane := range planes {
		n := copy(out[offset:], plane)
		offset += n
	}
}

// toAudioFormat projects a StreamInfo onto the AudioFormat the filter
// graph builder keys its rebuild decision on.
func (info StreamInfo) toAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate:    info.SampleRate,
		ChannelLayout: info.ChannelLayout,
		SampleFormat:  info.SampleFormat,
	}
}
