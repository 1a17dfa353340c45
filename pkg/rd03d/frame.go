package rd03d

import (
	"bytes"
	"encoding/binary"
)

// Frame delimiters.
var (
	CommandHeader = [4]byte{0xfd, 0xfc, 0xfb, 0xfa}
	CommandTail   = [4]byte{0x04, 0x03, 0x02, 0x01}
	ReportHeader  = [4]byte{0xaa, 0xff, 0x03, 0x00}
	ReportTail    = [2]byte{0x55, 0xcc}
)

const (
	headerLen = 4
	// header + length field + tail
	commandFrameOverhead = headerLen + 2 + len(CommandTail)

	// ReportFrameLen is the fixed size of a report frame.
	ReportFrameLen = headerLen + MaxTargets*targetLen + len(ReportTail)

	// RecvBufferSize is the capacity of the receive buffer. No frame
	// can be longer than this.
	RecvBufferSize = 64
)

// FrameClass tells command-class frames from report-class frames.
type FrameClass int

// Frame classes.
const (
	FrameUnknown FrameClass = iota
	FrameCommand
	FrameReport
)

// String implements fmt.Stringer.
func (c FrameClass) String() string {
	switch c {
	case FrameCommand:
		return "command"
	case FrameReport:
		return "report"
	}
	return "unknown"
}

// Frame is a complete frame cut out of the byte stream.
// Data is owned by the receiver.
type Frame struct {
	Class FrameClass
	Data  []byte
}

// Payload returns the bytes between the length field (or header) and the tail.
func (f *Frame) Payload() []byte {
	switch f.Class {
	case FrameCommand:
		if len(f.Data) < commandFrameOverhead {
			return nil
		}
		return f.Data[headerLen+2 : len(f.Data)-len(CommandTail)]
	case FrameReport:
		if len(f.Data) != ReportFrameLen {
			return nil
		}
		return f.Data[headerLen : ReportFrameLen-len(ReportTail)]
	}
	return nil
}

// Word returns the command word of a command-class frame.
func (f *Frame) Word() uint16 {
	if p := f.Payload(); f.Class == FrameCommand && len(p) >= 2 {
		return binary.LittleEndian.Uint16(p)
	}
	return 0
}

func classOf(b []byte) FrameClass {
	if len(b) < headerLen {
		return FrameUnknown
	}
	switch {
	case bytes.Equal(b[:headerLen], CommandHeader[:]):
		return FrameCommand
	case bytes.Equal(b[:headerLen], ReportHeader[:]):
		return FrameReport
	}
	return FrameUnknown
}

func hasValidTail(class FrameClass, b []byte) bool {
	switch class {
	case FrameCommand:
		return bytes.HasSuffix(b, CommandTail[:])
	case FrameReport:
		return bytes.HasSuffix(b, ReportTail[:])
	}
	return false
}
