// Package remote exposes a Session to other processes and drives it from afar.
package remote

import (
	"errors"

	fx "github.com/robotalks/rd03d/pkg/framework"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Result represents result of a command.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture is the future of sent command.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// ErrNoReply indicates no reply received before the command expired.
var ErrNoReply = errors.New("no reply")
