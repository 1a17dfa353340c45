package rd03d

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func concat(parts ...[]byte) (b []byte) {
	for _, p := range parts {
		b = append(b, p...)
	}
	return
}

func feedChunked(s *Synchronizer, stream []byte, size int) (frames []*Frame) {
	for len(stream) > 0 {
		n := size
		if n > len(stream) {
			n = len(stream)
		}
		frames = append(frames, s.Feed(stream[:n])...)
		stream = stream[n:]
	}
	return
}

func frameData(frames []*Frame) (data [][]byte) {
	for _, f := range frames {
		data = append(data, f.Data)
	}
	return
}

func TestSynchronizer(t *testing.T) {
	report := EncodeReport(Targets{{X: 50, Y: 100, Speed: -3, Distance: 112}})
	emptyReport := EncodeReport(Targets{})
	badReport := append([]byte(nil), emptyReport...)
	badReport[ReportFrameLen-1] = 0x00
	ack := EncodeAck(CmdSetMaxFrames, 0)
	setMin := Encode(CmdSetMinDistance, 1500)
	noise := []byte{0x13, 0x37, 0x00, 0x42, 0x01}

	testCases := []struct {
		name   string
		stream []byte
		frames [][]byte
		check  func(*testing.T, SyncStats)
	}{
		{
			name:   "single report",
			stream: report,
			frames: [][]byte{report},
		},
		{
			name:   "garbage before report",
			stream: concat([]byte{0x00, 0x11, 0xaa, 0xff}, report),
			frames: [][]byte{report},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(1), stats.Resyncs)
				require.Equal(t, uint64(4), stats.DiscardedBytes)
			},
		},
		{
			name:   "garbage before command",
			stream: concat(noise, setMin),
			frames: [][]byte{setMin},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(1), stats.CommandFrames)
				require.Equal(t, uint64(5), stats.DiscardedBytes)
			},
		},
		{
			name:   "garbage between command and ack",
			stream: concat(noise, setMin, noise, ack),
			frames: [][]byte{setMin, ack},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(2), stats.CommandFrames)
				require.Equal(t, uint64(10), stats.DiscardedBytes)
			},
		},
		{
			name:   "adjacent frames",
			stream: concat(ack, report, ack),
			frames: [][]byte{ack, report, ack},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(2), stats.CommandFrames)
				require.Equal(t, uint64(1), stats.ReportFrames)
				require.Zero(t, stats.FramingErrors())
			},
		},
		{
			name:   "bad report tail",
			stream: concat(badReport, report),
			frames: [][]byte{report},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(1), stats.BadTails)
			},
		},
		{
			name:   "declared length beyond buffer",
			stream: concat([]byte{0xfd, 0xfc, 0xfb, 0xfa, 0x37, 0x00}, ack),
			frames: [][]byte{ack},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(1), stats.Overruns)
				require.Equal(t, uint64(6), stats.DiscardedBytes)
			},
		},
		{
			name:   "declared length too short",
			stream: concat([]byte{0xfd, 0xfc, 0xfb, 0xfa, 0x01, 0x00}, ack),
			frames: [][]byte{ack},
			check: func(t *testing.T, stats SyncStats) {
				require.Equal(t, uint64(1), stats.BadLengths)
			},
		},
		{
			name:   "noise only",
			stream: make([]byte, 100),
			check: func(t *testing.T, stats SyncStats) {
				require.Zero(t, stats.Frames())
				require.NotZero(t, stats.Resyncs)
			},
		},
	}
	for _, tc := range testCases {
		for size := 1; size <= len(tc.stream); size++ {
			t.Run(fmt.Sprintf("%s/chunk%d", tc.name, size), func(t *testing.T) {
				var s Synchronizer
				frames := feedChunked(&s, tc.stream, size)
				require.Equal(t, tc.frames, frameData(frames))
				if tc.check != nil {
					tc.check(t, s.Stats())
				}
			})
		}
	}
}

func TestSynchronizerNoiseBound(t *testing.T) {
	var s Synchronizer
	for i := 0; i < 1000; i++ {
		s.Feed([]byte{byte(i)})
		require.Less(t, s.Buffered(), ReportFrameLen)
	}
	require.Equal(t, SyncSeeking, s.State())
}

func TestSynchronizerOverrunError(t *testing.T) {
	var errs []error
	s := Synchronizer{OnError: func(err error) { errs = append(errs, err) }}
	s.Feed([]byte{0xfd, 0xfc, 0xfb, 0xfa, 0xff, 0xff})
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrBufferOverrun)
	require.ErrorIs(t, errs[0], ErrFraming)
	require.Zero(t, s.Buffered())
}

func TestSynchronizerStates(t *testing.T) {
	var s Synchronizer
	ack := EncodeAck(CmdOpenConfigMode, 0)
	require.Empty(t, s.Feed(ack[:3]))
	require.Equal(t, SyncSeeking, s.State())
	require.Empty(t, s.Feed(ack[3:10]))
	require.Equal(t, SyncAccumulating, s.State())
	require.Equal(t, 10, s.Buffered())

	frames := s.Feed(ack[10:])
	require.Len(t, frames, 1)
	require.Equal(t, FrameCommand, frames[0].Class)
	require.Equal(t, WordOpenConfigMode|ReplyFlag, frames[0].Word())
	require.Equal(t, SyncSeeking, s.State())

	// emitted frames don't alias the receive buffer.
	data := append([]byte(nil), frames[0].Data...)
	s.Feed(EncodeReport(Targets{}))
	require.Equal(t, data, frames[0].Data)

	s.Feed(ack[:8])
	s.Reset()
	require.Zero(t, s.Buffered())
	require.Equal(t, SyncSeeking, s.State())
}
