package rd03d

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Ack status codes.
const (
	StatusSuccess uint16 = 0x0000
	StatusFailure uint16 = 0x0001
)

// Values returned in the open-config-mode ack.
const (
	ProtocolVersion uint16 = 0x0001
	AckBufferSize   uint16 = 0x0040
)

// Ack is a decoded acknowledgement.
type Ack struct {
	Kind CommandKind
	// Value is the attribute value returned by a Get command.
	Value    int32
	HasValue bool
	// Protocol and BufferSize are returned by OpenConfigMode.
	Protocol   uint16
	BufferSize uint16
}

// AckLen returns the expected total length of the ack for kind.
func AckLen(kind CommandKind) int {
	if kind == CmdOpenConfigMode || kind.IsGet() {
		return commandFrameOverhead + 8
	}
	return commandFrameOverhead + 4
}

// DecodeAck validates frame as the ack for kind.
func DecodeAck(frame []byte, kind CommandKind) (*Ack, error) {
	if !kind.IsValid() {
		return nil, &AckError{Kind: kind, Detail: "unknown command"}
	}
	if l := AckLen(kind); len(frame) != l {
		return nil, &AckError{Kind: kind, Detail: fmt.Sprintf("length %d, want %d", len(frame), l)}
	}
	if !bytes.HasPrefix(frame, CommandHeader[:]) || !bytes.HasSuffix(frame, CommandTail[:]) {
		return nil, &AckError{Kind: kind, Detail: "not a command frame"}
	}
	if n := int(binary.LittleEndian.Uint16(frame[headerLen:])); n != len(frame)-commandFrameOverhead {
		return nil, &AckError{Kind: kind, Detail: fmt.Sprintf("intra-frame length %d", n)}
	}
	payload := frame[headerLen+2 : len(frame)-len(CommandTail)]
	if word, expected := binary.LittleEndian.Uint16(payload), kind.Word()|ReplyFlag; word != expected {
		return nil, &AckError{Kind: kind, Detail: fmt.Sprintf("reply word %#04x, want %#04x", word, expected)}
	}
	if status := binary.LittleEndian.Uint16(payload[2:]); status != StatusSuccess {
		return nil, &AckError{Kind: kind, Status: status}
	}
	ack := &Ack{Kind: kind}
	switch {
	case kind == CmdOpenConfigMode:
		ack.Protocol = binary.LittleEndian.Uint16(payload[4:])
		ack.BufferSize = binary.LittleEndian.Uint16(payload[6:])
	case kind.IsGet():
		ack.Value = int32(binary.LittleEndian.Uint32(payload[4:]))
		ack.HasValue = true
	}
	return ack, nil
}

// EncodeAck builds the ack a sensor sends for kind.
// value is only used for Get commands.
func EncodeAck(kind CommandKind, value int32) []byte {
	return EncodeAckStatus(kind, StatusSuccess, value)
}

// EncodeAckStatus builds an ack carrying an explicit status.
func EncodeAckStatus(kind CommandKind, status uint16, value int32) []byte {
	payload := make([]byte, AckLen(kind)-commandFrameOverhead-2)
	binary.LittleEndian.PutUint16(payload, status)
	switch {
	case kind == CmdOpenConfigMode:
		binary.LittleEndian.PutUint16(payload[2:], ProtocolVersion)
		binary.LittleEndian.PutUint16(payload[4:], AckBufferSize)
	case kind.IsGet():
		binary.LittleEndian.PutUint32(payload[2:], uint32(value))
	}
	return buildCommandFrame(kind.Word()|ReplyFlag, payload)
}

// DecodeCommand parses an outbound command frame, the way the sensor does.
func DecodeCommand(frame []byte) (kind CommandKind, value int32, err error) {
	if classOf(frame) != FrameCommand || !hasValidTail(FrameCommand, frame) || len(frame) < commandFrameOverhead+2 {
		return 0, 0, ErrFraming
	}
	payload := frame[headerLen+2 : len(frame)-len(CommandTail)]
	if int(binary.LittleEndian.Uint16(frame[headerLen:])) != len(payload) {
		return 0, 0, ErrFraming
	}
	word, args := binary.LittleEndian.Uint16(payload), payload[2:]
	switch word {
	case WordOpenConfigMode:
		return CmdOpenConfigMode, 0, nil
	case WordCloseConfigMode:
		return CmdCloseConfigMode, 0, nil
	case WordSingleTarget:
		return CmdSetSingleTargetMode, 0, nil
	case WordMultiTarget:
		return CmdSetMultiTargetMode, 0, nil
	case WordOperationMode:
		// the mode itself isn't on the wire.
		return CmdSetReportMode, 0, nil
	case WordSetAttribute:
		if len(args) != 6 {
			return 0, 0, ErrFraming
		}
		attr := Attribute(binary.LittleEndian.Uint16(args))
		if !attr.IsValid() {
			return 0, 0, fmt.Errorf("%w: attribute %d", ErrFraming, uint16(attr))
		}
		return attr.SetCommand(), int32(binary.LittleEndian.Uint32(args[2:])), nil
	case WordGetAttribute:
		if len(args) != 2 {
			return 0, 0, ErrFraming
		}
		attr := Attribute(binary.LittleEndian.Uint16(args))
		if !attr.IsValid() {
			return 0, 0, fmt.Errorf("%w: attribute %d", ErrFraming, uint16(attr))
		}
		return attr.GetCommand(), 0, nil
	}
	return 0, 0, fmt.Errorf("%w: unknown command word %#04x", ErrFraming, word)
}
