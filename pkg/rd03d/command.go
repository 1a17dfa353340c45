package rd03d

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// CommandKind enumerates the commands understood by the sensor.
type CommandKind int

// Command kinds.
const (
	CmdOpenConfigMode CommandKind = iota
	CmdCloseConfigMode
	CmdSetMinDistance
	CmdSetMaxDistance
	CmdSetMinFrames
	CmdSetMaxFrames
	CmdSetDelayTime
	CmdGetMinDistance
	CmdGetMaxDistance
	CmdGetMinFrames
	CmdGetMaxFrames
	CmdGetDelayTime
	CmdSetSingleTargetMode
	CmdSetMultiTargetMode
	CmdSetDebugMode
	CmdSetReportMode
	CmdSetRunMode

	numCommandKinds
)

// Command words.
const (
	WordOpenConfigMode  uint16 = 0x00ff
	WordCloseConfigMode uint16 = 0x00fe
	WordSetAttribute    uint16 = 0x0007
	WordGetAttribute    uint16 = 0x0008
	WordOperationMode   uint16 = 0x0012
	WordSingleTarget    uint16 = 0x0080
	WordMultiTarget     uint16 = 0x0090

	// ReplyFlag is set on the word echoed back in an ack.
	ReplyFlag uint16 = 0x0100
)

// MaxCommandFrameLen is the size of the largest outbound frame.
const MaxCommandFrameLen = 18

var commandNames = [numCommandKinds]string{
	"OpenConfigMode",
	"CloseConfigMode",
	"SetMinDistance",
	"SetMaxDistance",
	"SetMinFrames",
	"SetMaxFrames",
	"SetDelayTime",
	"GetMinDistance",
	"GetMaxDistance",
	"GetMinFrames",
	"GetMaxFrames",
	"GetDelayTime",
	"SetSingleTargetMode",
	"SetMultiTargetMode",
	"SetDebugMode",
	"SetReportMode",
	"SetRunMode",
}

// String implements fmt.Stringer.
func (k CommandKind) String() string {
	if k.IsValid() {
		return commandNames[k]
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// IsValid checks k is a known command.
func (k CommandKind) IsValid() bool {
	return k >= 0 && k < numCommandKinds
}

// Word returns the command word sent on the wire.
func (k CommandKind) Word() uint16 {
	switch {
	case k == CmdOpenConfigMode:
		return WordOpenConfigMode
	case k == CmdCloseConfigMode:
		return WordCloseConfigMode
	case k.IsSet():
		return WordSetAttribute
	case k.IsGet():
		return WordGetAttribute
	case k == CmdSetSingleTargetMode:
		return WordSingleTarget
	case k == CmdSetMultiTargetMode:
		return WordMultiTarget
	case k.IsOperationMode():
		return WordOperationMode
	}
	panic(fmt.Sprintf("rd03d: unknown command %d", int(k)))
}

// IsSet tells if k writes an attribute.
func (k CommandKind) IsSet() bool {
	return k >= CmdSetMinDistance && k <= CmdSetDelayTime
}

// IsGet tells if k reads an attribute.
func (k CommandKind) IsGet() bool {
	return k >= CmdGetMinDistance && k <= CmdGetDelayTime
}

// IsOperationMode tells if k switches the operation mode.
func (k CommandKind) IsOperationMode() bool {
	return k >= CmdSetDebugMode && k <= CmdSetRunMode
}

// IsDetectionMode tells if k switches between single and multi target detection.
func (k CommandKind) IsDetectionMode() bool {
	return k == CmdSetSingleTargetMode || k == CmdSetMultiTargetMode
}

// RequiresConfigMode tells if the sensor only accepts k in configuration mode.
func (k CommandKind) RequiresConfigMode() bool {
	return k.IsSet() || k.IsGet() || k.IsDetectionMode() || k.IsOperationMode()
}

// Attribute returns the attribute addressed by a Set or Get command.
func (k CommandKind) Attribute() (Attribute, bool) {
	switch {
	case k.IsSet():
		return Attribute(k - CmdSetMinDistance), true
	case k.IsGet():
		return Attribute(k - CmdGetMinDistance), true
	}
	return 0, false
}

// Encode builds the outbound frame for a command. value is only used by
// Set commands and is written as its 32-bit two's complement.
func Encode(kind CommandKind, value int32) []byte {
	var payload []byte
	switch {
	case kind == CmdOpenConfigMode:
		payload = []byte{0x01, 0x00}
	case kind == CmdCloseConfigMode, kind.IsDetectionMode():
	case kind.IsSet():
		attr, _ := kind.Attribute()
		payload = make([]byte, 6)
		binary.LittleEndian.PutUint16(payload, uint16(attr))
		binary.LittleEndian.PutUint32(payload[2:], uint32(value))
	case kind.IsGet():
		attr, _ := kind.Attribute()
		payload = make([]byte, 2)
		binary.LittleEndian.PutUint16(payload, uint16(attr))
	case kind.IsOperationMode():
		payload = make([]byte, 6)
	default:
		panic(fmt.Sprintf("rd03d: unknown command %d", int(kind)))
	}
	return buildCommandFrame(kind.Word(), payload)
}

func buildCommandFrame(word uint16, payload []byte) []byte {
	n := 2 + len(payload)
	b := make([]byte, 0, commandFrameOverhead+n)
	b = append(b, CommandHeader[:]...)
	b = binary.LittleEndian.AppendUint16(b, uint16(n))
	b = binary.LittleEndian.AppendUint16(b, word)
	b = append(b, payload...)
	return append(b, CommandTail[:]...)
}

// Attribute is the sub-index of a configurable parameter.
type Attribute uint16

// Attributes.
const (
	AttrMinDistance Attribute = iota
	AttrMaxDistance
	AttrMinFrames
	AttrMaxFrames
	AttrDelayTime

	// NumAttributes is the count of configurable attributes.
	NumAttributes = 5
)

var attributeNames = [NumAttributes]string{
	"min-distance",
	"max-distance",
	"min-frames",
	"max-frames",
	"delay-time",
}

// String implements fmt.Stringer.
func (a Attribute) String() string {
	if a.IsValid() {
		return attributeNames[a]
	}
	return fmt.Sprintf("Attribute(%d)", uint16(a))
}

// IsValid checks a is a known attribute.
func (a Attribute) IsValid() bool {
	return a < NumAttributes
}

// SetCommand returns the command writing a.
func (a Attribute) SetCommand() CommandKind {
	return CmdSetMinDistance + CommandKind(a)
}

// GetCommand returns the command reading a.
func (a Attribute) GetCommand() CommandKind {
	return CmdGetMinDistance + CommandKind(a)
}

// ParseAttribute parses names like "min-distance" or "delay".
func ParseAttribute(name string) (Attribute, error) {
	name = strings.ToLower(strings.Replace(name, "_", "-", -1))
	if name == "delay" {
		return AttrDelayTime, nil
	}
	for n, s := range attributeNames {
		if s == name {
			return Attribute(n), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", name)
}

// Quantity is what an attribute limits.
type Quantity int

// Quantities.
const (
	QuantityDistance Quantity = iota
	QuantityFrames
	QuantityDelay
)

// Bound selects the lower or upper limit of a quantity.
type Bound int

// Bounds.
const (
	BoundMin Bound = iota
	BoundMax
)

// AttributeOf maps a quantity and bound to its attribute.
// The delay time has a single value, so b is ignored for it.
func AttributeOf(q Quantity, b Bound) (Attribute, error) {
	switch q {
	case QuantityDistance:
		if b == BoundMax {
			return AttrMaxDistance, nil
		}
		return AttrMinDistance, nil
	case QuantityFrames:
		if b == BoundMax {
			return AttrMaxFrames, nil
		}
		return AttrMinFrames, nil
	case QuantityDelay:
		return AttrDelayTime, nil
	}
	return 0, fmt.Errorf("unknown quantity %d", int(q))
}
