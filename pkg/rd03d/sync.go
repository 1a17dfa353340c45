package rd03d

import "encoding/binary"

// SyncState is the state of the Synchronizer.
type SyncState int

// Synchronizer states.
const (
	// SyncSeeking means no frame header is located at the start of the buffer.
	SyncSeeking SyncState = iota
	// SyncAccumulating means a header is located and more bytes are expected.
	SyncAccumulating
	// SyncReady means a complete frame is buffered. It's transient: Feed
	// emits the frame and goes back to SyncSeeking before returning.
	SyncReady
)

// String implements fmt.Stringer.
func (s SyncState) String() string {
	switch s {
	case SyncSeeking:
		return "seeking"
	case SyncAccumulating:
		return "accumulating"
	case SyncReady:
		return "ready"
	}
	return "invalid"
}

// SyncStats counts what the Synchronizer has seen.
type SyncStats struct {
	CommandFrames  uint64
	ReportFrames   uint64
	Resyncs        uint64
	BadTails       uint64
	BadLengths     uint64
	Overruns       uint64
	DiscardedBytes uint64
}

// Frames returns the total number of frames emitted.
func (s SyncStats) Frames() uint64 {
	return s.CommandFrames + s.ReportFrames
}

// FramingErrors returns the total number of discard events.
func (s SyncStats) FramingErrors() uint64 {
	return s.Resyncs + s.BadTails + s.BadLengths + s.Overruns
}

// Synchronizer cuts frames out of an unstructured byte stream.
// It is not safe for concurrent use.
type Synchronizer struct {
	// OnError is called for every discard. The error is always a *FramingError.
	OnError func(error)

	buf      [RecvBufferSize]byte
	n        int
	expected int
	class    FrameClass
	state    SyncState
	stats    SyncStats
}

// State gets the current state.
func (s *Synchronizer) State() SyncState {
	return s.state
}

// Buffered returns the number of bytes held for the next frame.
func (s *Synchronizer) Buffered() int {
	return s.n
}

// Stats returns the counters.
func (s *Synchronizer) Stats() SyncStats {
	return s.stats
}

// Reset drops all buffered bytes.
func (s *Synchronizer) Reset() {
	s.n, s.expected, s.class, s.state = 0, 0, FrameUnknown, SyncSeeking
}

// Feed consumes p and returns the frames completed by it, in stream order.
// Bytes are processed one by one so the result doesn't depend on how the
// stream is chunked.
func (s *Synchronizer) Feed(p []byte) (frames []*Frame) {
	for _, b := range p {
		s.buf[s.n] = b
		s.n++
		frames = s.advance(frames)
	}
	return
}

func (s *Synchronizer) advance(frames []*Frame) []*Frame {
	for {
		switch s.state {
		case SyncSeeking:
			if s.n < headerLen {
				return frames
			}
			i := s.scan()
			if i < 0 {
				if s.n >= ReportFrameLen {
					// keep a possible partial header at the end.
					s.stats.Resyncs++
					s.discard(s.n-(headerLen-1), "no header found")
				}
				return frames
			}
			if i > 0 {
				s.stats.Resyncs++
				s.discard(i, "garbage before header")
			}
			s.class, s.expected = classOf(s.buf[:s.n]), 0
			s.state = SyncAccumulating
		case SyncAccumulating:
			if s.expected == 0 {
				if s.class == FrameReport {
					s.expected = ReportFrameLen
				} else {
					if s.n < headerLen+2 {
						return frames
					}
					l := commandFrameOverhead + int(binary.LittleEndian.Uint16(s.buf[headerLen:]))
					if l > RecvBufferSize {
						s.stats.Overruns++
						s.fail(&FramingError{Reason: ErrBufferOverrun, Discarded: s.n, Detail: "declared length exceeds buffer"})
						s.n = 0
						s.state = SyncSeeking
						continue
					}
					if l < commandFrameOverhead+2 {
						s.stats.BadLengths++
						s.drop("declared length too short")
						continue
					}
					s.expected = l
				}
			}
			if s.n < s.expected {
				return frames
			}
			s.state = SyncReady
		case SyncReady:
			if !hasValidTail(s.class, s.buf[:s.expected]) {
				s.stats.BadTails++
				s.drop("bad " + s.class.String() + " tail")
				continue
			}
			frame := &Frame{Class: s.class, Data: make([]byte, s.expected)}
			copy(frame.Data, s.buf[:s.expected])
			if s.class == FrameReport {
				s.stats.ReportFrames++
			} else {
				s.stats.CommandFrames++
			}
			frames = append(frames, frame)
			s.shift(s.expected)
			s.expected, s.state = 0, SyncSeeking
		}
	}
}

func (s *Synchronizer) scan() int {
	for i := 0; i+headerLen <= s.n; i++ {
		if classOf(s.buf[i:s.n]) != FrameUnknown {
			return i
		}
	}
	return -1
}

// drop rejects the header at offset 0 and rescans the rest.
func (s *Synchronizer) drop(detail string) {
	s.discard(1, detail)
	s.expected, s.state = 0, SyncSeeking
}

func (s *Synchronizer) discard(count int, detail string) {
	s.shift(count)
	s.fail(&FramingError{Reason: ErrFraming, Discarded: count, Detail: detail})
}

func (s *Synchronizer) fail(err *FramingError) {
	s.stats.DiscardedBytes += uint64(err.Discarded)
	if s.OnError != nil {
		s.OnError(err)
	}
}

func (s *Synchronizer) shift(count int) {
	if count >= s.n {
		s.n = 0
		return
	}
	copy(s.buf[:], s.buf[count:s.n])
	s.n -= count
}
