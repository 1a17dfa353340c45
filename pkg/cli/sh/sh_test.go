package sh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rd03d/pkg/msgs"
	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/sim"
)

func TestParseCommandKind(t *testing.T) {
	kind, err := ParseCommandKind("getmaxframes")
	require.NoError(t, err)
	require.Equal(t, rd03d.CmdGetMaxFrames, kind)
	kind, err = ParseCommandKind("OpenConfigMode")
	require.NoError(t, err)
	require.Equal(t, rd03d.CmdOpenConfigMode, kind)
	_, err = ParseCommandKind("Reboot")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	require.Equal(t, "no targets", FormatTargets(rd03d.Targets{}))
	require.Equal(t, "#1 (-10,500)mm 3cm/s 500mm",
		FormatTargets(rd03d.Targets{nil, {X: -10, Y: 500, Speed: 3, Distance: 500}}))
	require.Equal(t, "GetDelayTime OK 12",
		FormatAck(&rd03d.Ack{Kind: rd03d.CmdGetDelayTime, Value: 12, HasValue: true}))
	require.Equal(t, "OpenConfigMode OK protocol 1 buffer 64",
		FormatAck(&rd03d.Ack{Kind: rd03d.CmdOpenConfigMode, Protocol: 1, BufferSize: 64}))
	require.Equal(t, "mode report, detection multi\nmax-frames = 5\nframes 1, framing errors 0, commands 2, timeouts 0",
		FormatStatus(&msgs.Status{
			OperationMode: uint32(rd03d.ModeReport),
			DetectionMode: uint32(rd03d.DetectionMulti),
			Attributes:    []*msgs.AttributeValue{{Attribute: uint32(rd03d.AttrMaxFrames), Value: 5}},
			Frames:        1,
			Commands:      2,
		}))
}

func TestLocalController(t *testing.T) {
	dev := sim.NewDevice()
	defer dev.Close()
	session := rd03d.NewSession(dev)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go rd03d.NewLink(dev, session).Run(ctx)

	var ctrl Controller = Local{Session: session}
	_, ok := ctrl.(CommandSender)
	require.True(t, ok)

	require.NoError(t, ctrl.Configure(ctx, rd03d.AttrDelayTime, 30))
	require.NoError(t, ctrl.SetOperationMode(ctx, rd03d.ModeReport))
	status, err := ctrl.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(rd03d.ModeReport), status.OperationMode)
	require.Equal(t, []*msgs.AttributeValue{{Attribute: uint32(rd03d.AttrDelayTime), Value: 30}}, status.Attributes)

	dev.Emit(rd03d.Targets{{X: 1, Y: 2, Distance: 2}})
	require.Eventually(t, func() bool {
		targets, err := ctrl.PollTargets(ctx)
		return err == nil && targets.Count() == 1
	}, time.Second, 5*time.Millisecond)
}
