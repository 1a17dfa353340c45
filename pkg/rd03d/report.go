package rd03d

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// MaxTargets is the number of target slots in a report.
	MaxTargets = 3

	targetLen = 8
)

// Biases subtracted from the raw report fields.
const (
	BiasX     uint16 = 0x0200
	BiasY     uint16 = 0x8000
	BiasSpeed uint16 = 0x0010
)

// Target is a tracked object.
type Target struct {
	X        int16  `json:"x"`        // mm
	Y        int16  `json:"y"`        // mm
	Speed    int16  `json:"speed"`    // cm/s
	Distance uint16 `json:"distance"` // mm
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return fmt.Sprintf("(%d,%d)mm %dcm/s %dmm", t.X, t.Y, t.Speed, t.Distance)
}

// Targets holds the target slots of one report. Absent targets are nil.
type Targets [MaxTargets]*Target

// Count returns the number of present targets.
func (t Targets) Count() (n int) {
	for _, target := range t {
		if target != nil {
			n++
		}
	}
	return
}

// Proximity returns a bitmask with bit k set when target k is present.
func (t Targets) Proximity() (mask uint8) {
	for k, target := range t {
		if target != nil {
			mask |= 1 << uint(k)
		}
	}
	return
}

// DecodeReport decodes a report frame.
func DecodeReport(frame []byte) (targets Targets, err error) {
	if len(frame) != ReportFrameLen {
		return targets, &FramingError{Reason: ErrFraming, Discarded: len(frame), Detail: fmt.Sprintf("report length %d", len(frame))}
	}
	if !bytes.HasPrefix(frame, ReportHeader[:]) {
		return targets, &FramingError{Reason: ErrFraming, Discarded: len(frame), Detail: "bad report header"}
	}
	if !bytes.HasSuffix(frame, ReportTail[:]) {
		return targets, &FramingError{Reason: ErrFraming, Discarded: len(frame), Detail: "bad report tail"}
	}
	for k := range targets {
		b := frame[headerLen+k*targetLen:]
		t := Target{
			X:        int16(binary.LittleEndian.Uint16(b) - BiasX),
			Y:        int16(binary.LittleEndian.Uint16(b[2:]) - BiasY),
			Speed:    int16(binary.LittleEndian.Uint16(b[4:]) - BiasSpeed),
			Distance: binary.LittleEndian.Uint16(b[6:]),
		}
		if t.X == 0 && t.Y == 0 {
			continue
		}
		targets[k] = &t
	}
	return targets, nil
}

// EncodeReport builds the report frame a sensor streams for targets.
func EncodeReport(targets Targets) []byte {
	b := make([]byte, 0, ReportFrameLen)
	b = append(b, ReportHeader[:]...)
	for _, t := range targets {
		if t == nil {
			t = &Target{}
		}
		b = binary.LittleEndian.AppendUint16(b, uint16(t.X)+BiasX)
		b = binary.LittleEndian.AppendUint16(b, uint16(t.Y)+BiasY)
		b = binary.LittleEndian.AppendUint16(b, uint16(t.Speed)+BiasSpeed)
		b = binary.LittleEndian.AppendUint16(b, t.Distance)
	}
	return append(b, ReportTail[:]...)
}
