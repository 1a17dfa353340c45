package rd03d

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSetMinDistance(t *testing.T) {
	require.Equal(t, []byte{
		0xfd, 0xfc, 0xfb, 0xfa,
		0x08, 0x00,
		0x07, 0x00,
		0x00, 0x00,
		0xdc, 0x05, 0x00, 0x00,
		0x04, 0x03, 0x02, 0x01,
	}, Encode(CmdSetMinDistance, 1500))
}

func TestEncodeCommands(t *testing.T) {
	testCases := []struct {
		kind    CommandKind
		word    uint16
		length  int
		payload []byte
	}{
		{CmdOpenConfigMode, WordOpenConfigMode, 14, []byte{0x01, 0x00}},
		{CmdCloseConfigMode, WordCloseConfigMode, 12, nil},
		{CmdSetMaxDistance, WordSetAttribute, 18, []byte{0x01, 0x00, 0xff, 0xff, 0xff, 0xff}},
		{CmdGetMinDistance, WordGetAttribute, 14, []byte{0x00, 0x00}},
		{CmdGetDelayTime, WordGetAttribute, 14, []byte{0x04, 0x00}},
		{CmdSetSingleTargetMode, WordSingleTarget, 12, nil},
		{CmdSetMultiTargetMode, WordMultiTarget, 12, nil},
		{CmdSetDebugMode, WordOperationMode, 18, make([]byte, 6)},
		{CmdSetReportMode, WordOperationMode, 18, make([]byte, 6)},
		{CmdSetRunMode, WordOperationMode, 18, make([]byte, 6)},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			b := Encode(tc.kind, -1)
			require.Len(t, b, tc.length)
			require.LessOrEqual(t, len(b), MaxCommandFrameLen)
			f := &Frame{Class: FrameCommand, Data: b}
			require.Equal(t, tc.word, f.Word())
			if len(tc.payload) == 0 {
				require.Len(t, f.Payload(), 2)
			} else {
				require.Equal(t, tc.payload, f.Payload()[2:])
			}
		})
	}
}

func TestEncodeUnknownCommandPanics(t *testing.T) {
	require.Panics(t, func() { Encode(numCommandKinds, 0) })
}

func TestDecodeCommand(t *testing.T) {
	for kind := CmdOpenConfigMode; kind < numCommandKinds; kind++ {
		decoded, value, err := DecodeCommand(Encode(kind, 42))
		require.NoError(t, err, kind.String())
		if kind.IsOperationMode() {
			require.Equal(t, CmdSetReportMode, decoded)
			continue
		}
		require.Equal(t, kind, decoded)
		if kind.IsSet() {
			require.Equal(t, int32(42), value)
		}
	}

	_, _, err := DecodeCommand(EncodeReport(Targets{}))
	require.ErrorIs(t, err, ErrFraming)
}

func TestAttributes(t *testing.T) {
	for attr := Attribute(0); attr < NumAttributes; attr++ {
		parsed, err := ParseAttribute(attr.String())
		require.NoError(t, err)
		require.Equal(t, attr, parsed)

		a, ok := attr.SetCommand().Attribute()
		require.True(t, ok)
		require.Equal(t, attr, a)
		a, ok = attr.GetCommand().Attribute()
		require.True(t, ok)
		require.Equal(t, attr, a)
	}
	attr, err := ParseAttribute("delay")
	require.NoError(t, err)
	require.Equal(t, AttrDelayTime, attr)
	attr, err = ParseAttribute("MAX_FRAMES")
	require.NoError(t, err)
	require.Equal(t, AttrMaxFrames, attr)
	_, err = ParseAttribute("speed")
	require.Error(t, err)

	_, ok := CmdOpenConfigMode.Attribute()
	require.False(t, ok)
}

func TestAttributeOf(t *testing.T) {
	testCases := []struct {
		q      Quantity
		b      Bound
		expect Attribute
	}{
		{QuantityDistance, BoundMin, AttrMinDistance},
		{QuantityDistance, BoundMax, AttrMaxDistance},
		{QuantityFrames, BoundMin, AttrMinFrames},
		{QuantityFrames, BoundMax, AttrMaxFrames},
		{QuantityDelay, BoundMin, AttrDelayTime},
		{QuantityDelay, BoundMax, AttrDelayTime},
	}
	for _, tc := range testCases {
		attr, err := AttributeOf(tc.q, tc.b)
		require.NoError(t, err)
		require.Equal(t, tc.expect, attr)
	}
	_, err := AttributeOf(Quantity(7), BoundMin)
	require.Error(t, err)
}

func TestRequiresConfigMode(t *testing.T) {
	require.False(t, CmdOpenConfigMode.RequiresConfigMode())
	require.False(t, CmdCloseConfigMode.RequiresConfigMode())
	for kind := CmdSetMinDistance; kind < numCommandKinds; kind++ {
		require.True(t, kind.RequiresConfigMode(), kind.String())
	}
}
