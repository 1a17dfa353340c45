package rd03d

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAckRoundTrip(t *testing.T) {
	for kind := CmdOpenConfigMode; kind < numCommandKinds; kind++ {
		t.Run(kind.String(), func(t *testing.T) {
			b := EncodeAck(kind, -7)
			require.Len(t, b, AckLen(kind))
			ack, err := DecodeAck(b, kind)
			require.NoError(t, err)
			require.Equal(t, kind, ack.Kind)
			switch {
			case kind == CmdOpenConfigMode:
				require.Equal(t, ProtocolVersion, ack.Protocol)
				require.Equal(t, AckBufferSize, ack.BufferSize)
			case kind.IsGet():
				require.True(t, ack.HasValue)
				require.Equal(t, int32(-7), ack.Value)
			default:
				require.False(t, ack.HasValue)
			}
		})
	}
}

func TestAckBytes(t *testing.T) {
	require.Equal(t, []byte{
		0xfd, 0xfc, 0xfb, 0xfa,
		0x04, 0x00,
		0x07, 0x01,
		0x00, 0x00,
		0x04, 0x03, 0x02, 0x01,
	}, EncodeAck(CmdSetMinDistance, 0))

	require.Equal(t, []byte{
		0xfd, 0xfc, 0xfb, 0xfa,
		0x08, 0x00,
		0xff, 0x01,
		0x00, 0x00,
		0x01, 0x00,
		0x40, 0x00,
		0x04, 0x03, 0x02, 0x01,
	}, EncodeAck(CmdOpenConfigMode, 0))

	get := EncodeAck(CmdGetMaxDistance, 800)
	require.Equal(t, []byte{0x20, 0x03, 0x00, 0x00}, get[10:14])
}

func TestDecodeAckErrors(t *testing.T) {
	failed := EncodeAckStatus(CmdSetDelayTime, StatusFailure, 0)
	truncated := EncodeAck(CmdGetMinFrames, 3)
	truncated = append(truncated[:12:12], CommandTail[:]...)
	badTail := EncodeAck(CmdCloseConfigMode, 0)
	badTail[len(badTail)-1] = 0

	testCases := []struct {
		name   string
		frame  []byte
		kind   CommandKind
		status uint16
	}{
		{"failure status", failed, CmdSetDelayTime, StatusFailure},
		{"wrong word", EncodeAck(CmdSetSingleTargetMode, 0), CmdSetMultiTargetMode, 0},
		{"get expects value", truncated, CmdGetMinFrames, 0},
		{"set ack for get", EncodeAck(CmdSetMinFrames, 0), CmdGetMinFrames, 0},
		{"bad tail", badTail, CmdCloseConfigMode, 0},
		{"report", EncodeReport(Targets{}), CmdOpenConfigMode, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAck(tc.frame, tc.kind)
			require.ErrorIs(t, err, ErrAckMismatch)
			require.False(t, IsRetryable(err))
			var ackErr *AckError
			require.True(t, errors.As(err, &ackErr))
			require.Equal(t, tc.kind, ackErr.Kind)
			require.Equal(t, tc.status, ackErr.Status)
		})
	}
}
