package sh

import (
	"context"

	"github.com/robotalks/rd03d/pkg/msgs"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// Controller is what the shell drives, either a local Session or a
// remote one.
type Controller interface {
	Configure(ctx context.Context, attr rd03d.Attribute, value int32) error
	Read(ctx context.Context, attr rd03d.Attribute) (int32, error)
	SetOperationMode(ctx context.Context, mode rd03d.OperationMode) error
	SetDetectionMode(ctx context.Context, mode rd03d.DetectionMode) error
	PollTargets(ctx context.Context) (rd03d.Targets, error)
	WaitReport(ctx context.Context) (rd03d.Targets, error)
	Status(ctx context.Context) (*msgs.Status, error)
}

// CommandSender sends raw commands, only available locally.
type CommandSender interface {
	SendCommand(ctx context.Context, kind rd03d.CommandKind, value int32) (*rd03d.Ack, error)
}

// Local adapts a Session to Controller.
type Local struct {
	*rd03d.Session
}

// PollTargets implements Controller.
func (l Local) PollTargets(context.Context) (rd03d.Targets, error) {
	return l.Session.PollTargets(), nil
}

// Status implements Controller.
func (l Local) Status(context.Context) (*msgs.Status, error) {
	return msgs.NewStatus(l.Session), nil
}
