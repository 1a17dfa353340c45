package msgs

import (
	"errors"
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// Error codes carried by CommandErr.
const (
	ErrCodeGeneric     uint32 = 0
	ErrCodeTimeout     uint32 = 1
	ErrCodeAckMismatch uint32 = 2
	ErrCodeMode        uint32 = 3
	ErrCodeUnsupported uint32 = 4
)

// CommandErr is the generic message representing command error.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
	Code    uint32 `protobuf:"varint,2,opt,name=code,proto3" json:"code,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	m := NewCommandErrFromMsg(err.Error())
	switch {
	case errors.Is(err, rd03d.ErrTimeout):
		m.Code = ErrCodeTimeout
	case errors.Is(err, rd03d.ErrAckMismatch):
		m.Code = ErrCodeAckMismatch
	case errors.Is(err, rd03d.ErrMode):
		m.Code = ErrCodeMode
	case errors.Is(err, ErrUnsupportedCommand):
		m.Code = ErrCodeUnsupported
	}
	return m
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// Unwrap maps the code back to the sentinel error, so errors.Is works
// the same on both ends.
func (m *CommandErr) Unwrap() error {
	switch m.Code {
	case ErrCodeTimeout:
		return rd03d.ErrTimeout
	case ErrCodeAckMismatch:
		return rd03d.ErrAckMismatch
	case ErrCodeMode:
		return rd03d.ErrMode
	case ErrCodeUnsupported:
		return ErrUnsupportedCommand
	}
	return nil
}

// Target is a tracked object in a TargetReport.
type Target struct {
	Slot     uint32 `protobuf:"varint,1,opt,name=slot,proto3" json:"slot"`
	X        int32  `protobuf:"zigzag32,2,opt,name=x,proto3" json:"x"`
	Y        int32  `protobuf:"zigzag32,3,opt,name=y,proto3" json:"y"`
	Speed    int32  `protobuf:"zigzag32,4,opt,name=speed,proto3" json:"speed"`
	Distance uint32 `protobuf:"varint,5,opt,name=distance,proto3" json:"distance"`
}

// ProtoMessage implements proto.Message.
func (m *Target) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Target) Reset() { *m = Target{} }

// String implements proto.Message.
func (m *Target) String() string { return proto.CompactTextString(m) }

// TargetReport is an event published for every report frame.
type TargetReport struct {
	Targets   []*Target `protobuf:"bytes,1,rep,name=targets,proto3" json:"targets"`
	Proximity uint32    `protobuf:"varint,2,opt,name=proximity,proto3" json:"proximity"`
	// Timestamp is in unix nanoseconds.
	Timestamp int64 `protobuf:"varint,3,opt,name=timestamp,proto3" json:"timestamp"`
}

// NewTargetReport converts decoded targets.
func NewTargetReport(targets rd03d.Targets, at time.Time) *TargetReport {
	m := &TargetReport{
		Proximity: uint32(targets.Proximity()),
		Timestamp: at.UnixNano(),
	}
	for k, t := range targets {
		if t == nil {
			continue
		}
		m.Targets = append(m.Targets, &Target{
			Slot:     uint32(k),
			X:        int32(t.X),
			Y:        int32(t.Y),
			Speed:    int32(t.Speed),
			Distance: uint32(t.Distance),
		})
	}
	return m
}

// Decoded converts back to slots.
func (m *TargetReport) Decoded() (targets rd03d.Targets) {
	for _, t := range m.Targets {
		if t == nil || t.Slot >= rd03d.MaxTargets {
			continue
		}
		targets[t.Slot] = &rd03d.Target{
			X:        int16(t.X),
			Y:        int16(t.Y),
			Speed:    int16(t.Speed),
			Distance: uint16(t.Distance),
		}
	}
	return
}

// Time returns the timestamp.
func (m *TargetReport) Time() time.Time {
	return time.Unix(0, m.Timestamp)
}

// NewMessage implements Message.
func (m *TargetReport) NewMessage() fx.Message { return &TargetReport{} }

// TypeID implements SerializableMessage.
func (m *TargetReport) TypeID() uint32 { return TargetReportTypeID }

// Serializable implements SerializableMessage.
func (m *TargetReport) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TargetReport) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TargetReport) Reset() { *m = TargetReport{} }

// String implements proto.Message.
func (m *TargetReport) String() string { return proto.CompactTextString(m) }

// Configure writes an attribute.
type Configure struct {
	Attribute uint32 `protobuf:"varint,1,opt,name=attribute,proto3" json:"attribute"`
	Value     int32  `protobuf:"zigzag32,2,opt,name=value,proto3" json:"value"`
}

// NewMessage implements Message.
func (m *Configure) NewMessage() fx.Message { return &Configure{} }

// TypeID implements SerializableMessage.
func (m *Configure) TypeID() uint32 { return ConfigureTypeID }

// Serializable implements SerializableMessage.
func (m *Configure) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Configure) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Configure) Reset() { *m = Configure{} }

// String implements proto.Message.
func (m *Configure) String() string { return proto.CompactTextString(m) }

// ReadAttribute reads an attribute, replied with AttributeValue.
type ReadAttribute struct {
	Attribute uint32 `protobuf:"varint,1,opt,name=attribute,proto3" json:"attribute"`
}

// NewMessage implements Message.
func (m *ReadAttribute) NewMessage() fx.Message { return &ReadAttribute{} }

// TypeID implements SerializableMessage.
func (m *ReadAttribute) TypeID() uint32 { return ReadAttributeTypeID }

// Serializable implements SerializableMessage.
func (m *ReadAttribute) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *ReadAttribute) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ReadAttribute) Reset() { *m = ReadAttribute{} }

// String implements proto.Message.
func (m *ReadAttribute) String() string { return proto.CompactTextString(m) }

// AttributeValue is the reply of ReadAttribute.
type AttributeValue struct {
	Attribute uint32 `protobuf:"varint,1,opt,name=attribute,proto3" json:"attribute"`
	Value     int32  `protobuf:"zigzag32,2,opt,name=value,proto3" json:"value"`
}

// NewMessage implements Message.
func (m *AttributeValue) NewMessage() fx.Message { return &AttributeValue{} }

// TypeID implements SerializableMessage.
func (m *AttributeValue) TypeID() uint32 { return AttributeValueTypeID }

// Serializable implements SerializableMessage.
func (m *AttributeValue) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *AttributeValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *AttributeValue) Reset() { *m = AttributeValue{} }

// String implements proto.Message.
func (m *AttributeValue) String() string { return proto.CompactTextString(m) }

// SetOperationMode switches the operation mode.
type SetOperationMode struct {
	Mode uint32 `protobuf:"varint,1,opt,name=mode,proto3" json:"mode"`
}

// NewMessage implements Message.
func (m *SetOperationMode) NewMessage() fx.Message { return &SetOperationMode{} }

// TypeID implements SerializableMessage.
func (m *SetOperationMode) TypeID() uint32 { return SetOperationModeTypeID }

// Serializable implements SerializableMessage.
func (m *SetOperationMode) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SetOperationMode) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SetOperationMode) Reset() { *m = SetOperationMode{} }

// String implements proto.Message.
func (m *SetOperationMode) String() string { return proto.CompactTextString(m) }

// SetDetectionMode switches between single and multi target detection.
type SetDetectionMode struct {
	Mode uint32 `protobuf:"varint,1,opt,name=mode,proto3" json:"mode"`
}

// NewMessage implements Message.
func (m *SetDetectionMode) NewMessage() fx.Message { return &SetDetectionMode{} }

// TypeID implements SerializableMessage.
func (m *SetDetectionMode) TypeID() uint32 { return SetDetectionModeTypeID }

// Serializable implements SerializableMessage.
func (m *SetDetectionMode) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SetDetectionMode) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SetDetectionMode) Reset() { *m = SetDetectionMode{} }

// String implements proto.Message.
func (m *SetDetectionMode) String() string { return proto.CompactTextString(m) }

// PollTargets queries the most recent report, replied with TargetsReply.
type PollTargets struct {
}

// NewMessage implements Message.
func (m *PollTargets) NewMessage() fx.Message { return &PollTargets{} }

// TypeID implements SerializableMessage.
func (m *PollTargets) TypeID() uint32 { return PollTargetsTypeID }

// Serializable implements SerializableMessage.
func (m *PollTargets) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *PollTargets) ProtoMessage() {}

// Reset implements proto.Message.
func (m *PollTargets) Reset() { *m = PollTargets{} }

// String implements proto.Message.
func (m *PollTargets) String() string { return proto.CompactTextString(m) }

// TargetsReply is the reply of PollTargets.
type TargetsReply struct {
	Report *TargetReport `protobuf:"bytes,1,opt,name=report,proto3" json:"report,omitempty"`
}

// NewMessage implements Message.
func (m *TargetsReply) NewMessage() fx.Message { return &TargetsReply{} }

// TypeID implements SerializableMessage.
func (m *TargetsReply) TypeID() uint32 { return TargetsReplyTypeID }

// Serializable implements SerializableMessage.
func (m *TargetsReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TargetsReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TargetsReply) Reset() { *m = TargetsReply{} }

// String implements proto.Message.
func (m *TargetsReply) String() string { return proto.CompactTextString(m) }

// StatusQuery queries the session status, replied with Status.
type StatusQuery struct {
}

// NewMessage implements Message.
func (m *StatusQuery) NewMessage() fx.Message { return &StatusQuery{} }

// TypeID implements SerializableMessage.
func (m *StatusQuery) TypeID() uint32 { return StatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *StatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *StatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *StatusQuery) Reset() { *m = StatusQuery{} }

// String implements proto.Message.
func (m *StatusQuery) String() string { return proto.CompactTextString(m) }

// Status is the session status.
type Status struct {
	OperationMode uint32            `protobuf:"varint,1,opt,name=operation_mode,proto3" json:"operation_mode"`
	DetectionMode uint32            `protobuf:"varint,2,opt,name=detection_mode,proto3" json:"detection_mode"`
	Attributes    []*AttributeValue `protobuf:"bytes,3,rep,name=attributes,proto3" json:"attributes,omitempty"`
	Frames        uint64            `protobuf:"varint,4,opt,name=frames,proto3" json:"frames"`
	FramingErrors uint64            `protobuf:"varint,5,opt,name=framing_errors,proto3" json:"framing_errors"`
	Commands      uint64            `protobuf:"varint,6,opt,name=commands,proto3" json:"commands"`
	Timeouts      uint64            `protobuf:"varint,7,opt,name=timeouts,proto3" json:"timeouts"`
}

// NewStatus collects the status of a Session.
func NewStatus(s *rd03d.Session) *Status {
	stats := s.Stats()
	m := &Status{
		OperationMode: uint32(s.OperationMode()),
		DetectionMode: uint32(s.DetectionMode()),
		Frames:        stats.Sync.Frames(),
		FramingErrors: stats.Sync.FramingErrors(),
		Commands:      stats.Commands,
		Timeouts:      stats.Timeouts,
	}
	attrs := s.Attributes()
	for attr := rd03d.Attribute(0); attr < rd03d.NumAttributes; attr++ {
		if val, ok := attrs[attr]; ok {
			m.Attributes = append(m.Attributes, &AttributeValue{Attribute: uint32(attr), Value: val})
		}
	}
	return m
}

// NewMessage implements Message.
func (m *Status) NewMessage() fx.Message { return &Status{} }

// TypeID implements SerializableMessage.
func (m *Status) TypeID() uint32 { return StatusTypeID }

// Serializable implements SerializableMessage.
func (m *Status) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Status) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupRadar   uint32 = 0x00030000
)

// TypeIDs
const (
	CommandOKTypeID        uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID       uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	TargetReportTypeID     uint32 = GroupRadar | TypeIDKindEvent | 0x0000
	ConfigureTypeID        uint32 = GroupRadar | 0x0001
	ReadAttributeTypeID    uint32 = GroupRadar | 0x0002
	AttributeValueTypeID   uint32 = ReadAttributeTypeID | TypeIDMaskReply
	SetOperationModeTypeID uint32 = GroupRadar | 0x0003
	SetDetectionModeTypeID uint32 = GroupRadar | 0x0004
	PollTargetsTypeID      uint32 = GroupRadar | 0x0005
	TargetsReplyTypeID     uint32 = PollTargetsTypeID | TypeIDMaskReply
	StatusQueryTypeID      uint32 = GroupRadar | 0x0006
	StatusTypeID           uint32 = StatusQueryTypeID | TypeIDMaskReply
)

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]SerializableMessage{
	CommandOKTypeID:        (*CommandOK)(nil),
	CommandErrTypeID:       (*CommandErr)(nil),
	TargetReportTypeID:     (*TargetReport)(nil),
	ConfigureTypeID:        (*Configure)(nil),
	ReadAttributeTypeID:    (*ReadAttribute)(nil),
	AttributeValueTypeID:   (*AttributeValue)(nil),
	SetOperationModeTypeID: (*SetOperationMode)(nil),
	SetDetectionModeTypeID: (*SetDetectionMode)(nil),
	PollTargetsTypeID:      (*PollTargets)(nil),
	TargetsReplyTypeID:     (*TargetsReply)(nil),
	StatusQueryTypeID:      (*StatusQuery)(nil),
	StatusTypeID:           (*Status)(nil),
}
