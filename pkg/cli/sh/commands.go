package sh

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rd03d/pkg/msgs"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// DefaultWatchCount is the number of reports printed by watch.
const DefaultWatchCount = 10

func init() {
	AddCmds(
		&GetCmd,
		&SetCmd,
		&ModeCmd,
		&DetectCmd,
		&TargetsCmd,
		&WatchCmd,
		&StatusCmd,
		&SendCmd,
	)
}

// FormatTargets prints the present targets, one per line.
func FormatTargets(targets rd03d.Targets) string {
	var lines []string
	for n, t := range targets {
		if t != nil {
			lines = append(lines, fmt.Sprintf("#%d %s", n, t))
		}
	}
	if len(lines) == 0 {
		return "no targets"
	}
	return strings.Join(lines, "\n")
}

// FormatStatus prints Status into friendly string for display.
func FormatStatus(status *msgs.Status) string {
	var w strings.Builder
	fmt.Fprintf(&w, "mode %s, detection %s\n",
		rd03d.OperationMode(status.OperationMode), rd03d.DetectionMode(status.DetectionMode))
	for _, attr := range status.Attributes {
		fmt.Fprintf(&w, "%s = %d\n", rd03d.Attribute(attr.Attribute), attr.Value)
	}
	fmt.Fprintf(&w, "frames %d, framing errors %d, commands %d, timeouts %d",
		status.Frames, status.FramingErrors, status.Commands, status.Timeouts)
	return w.String()
}

// ParseCommandKind parses names like "GetMaxFrames", case insensitive.
func ParseCommandKind(name string) (rd03d.CommandKind, error) {
	for kind := rd03d.CommandKind(0); kind.IsValid(); kind++ {
		if strings.EqualFold(kind.String(), name) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}

func parseInt32(s string) (int32, error) {
	val, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid VALUE: %v", err)
	}
	return int32(val), nil
}

var (
	// GetCmd reads an attribute.
	GetCmd = ishell.Cmd{
		Name: "get",
		Help: "ATTR (min-distance|max-distance|min-frames|max-frames|delay-time)",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("ATTR required"))
				return
			}
			attr, err := rd03d.ParseAttribute(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			val, err := ctrl.Read(ctx, attr)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, &msgs.AttributeValue{Attribute: uint32(attr), Value: val}, strconv.Itoa(int(val)))
		}),
	}

	// SetCmd writes an attribute.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "ATTR VALUE",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("ATTR and VALUE required"))
				return
			}
			attr, err := rd03d.ParseAttribute(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			val, err := parseInt32(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			if err := ctrl.Configure(ctx, attr, val); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, &msgs.CommandOK{}, "OK")
		}),
	}

	// ModeCmd switches the operation mode.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "debug|report|run",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("MODE required"))
				return
			}
			mode, err := rd03d.ParseOperationMode(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			if err := ctrl.SetOperationMode(ctx, mode); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, &msgs.CommandOK{}, "OK")
		}),
	}

	// DetectCmd switches the detection mode.
	DetectCmd = ishell.Cmd{
		Name: "detect",
		Help: "single|multi",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("MODE required"))
				return
			}
			mode, err := rd03d.ParseDetectionMode(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			if err := ctrl.SetDetectionMode(ctx, mode); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, &msgs.CommandOK{}, "OK")
		}),
	}

	// TargetsCmd prints the most recent report.
	TargetsCmd = ishell.Cmd{
		Name:    "targets",
		Aliases: []string{"t"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			targets, err := ctrl.PollTargets(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, msgs.NewTargetReport(targets, time.Now()), FormatTargets(targets))
		}),
	}

	// WatchCmd prints the next reports as they arrive.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[COUNT]",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			count := DefaultWatchCount
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid COUNT %q", c.Args[0]))
					return
				}
				count = n
			}
			s := ShellFrom(c)
			for i := 0; i < count; i++ {
				ctx, cancel := s.Context()
				targets, err := ctrl.WaitReport(ctx)
				cancel()
				if err != nil {
					c.Err(err)
					return
				}
				now := time.Now()
				s.Print(c, msgs.NewTargetReport(targets, now),
					now.Format("15:04:05.000")+" "+strings.Replace(FormatTargets(targets), "\n", "; ", -1))
			}
		}),
	}

	// StatusCmd prints the session status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			status, err := ctrl.Status(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, status, FormatStatus(status))
		}),
	}

	// SendCmd sends a raw command, e.g. OpenConfigMode.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "COMMAND [VALUE], local sensor only",
		Func: MustBeConnected(func(c *ishell.Context, ctrl Controller) {
			sender, ok := ctrl.(CommandSender)
			if !ok {
				c.Err(fmt.Errorf("raw commands need a local sensor"))
				return
			}
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			kind, err := ParseCommandKind(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			var val int32
			if len(c.Args) > 1 {
				if val, err = parseInt32(c.Args[1]); err != nil {
					c.Err(err)
					return
				}
			}
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			ack, err := sender.SendCommand(ctx, kind, val)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, ack, FormatAck(ack))
		}),
	}
)

// FormatAck prints an Ack into friendly string for display.
func FormatAck(ack *rd03d.Ack) string {
	switch {
	case ack.HasValue:
		return fmt.Sprintf("%s OK %d", ack.Kind, ack.Value)
	case ack.Kind == rd03d.CmdOpenConfigMode:
		return fmt.Sprintf("%s OK protocol %d buffer %d", ack.Kind, ack.Protocol, ack.BufferSize)
	}
	return ack.Kind.String() + " OK"
}
