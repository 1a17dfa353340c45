package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/msgs"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// reportQueueSize bounds reports waiting to be published.
const reportQueueSize = 8

// Server executes commands received through a Pipe on a Session and
// publishes reports as TargetReport events.
type Server struct {
	Session *rd03d.Session
	// Events receives TargetReport events. When nil, events are sent
	// through the pipe.
	Events PacketWriter

	pipe    Pipe
	reports chan *msgs.TargetReport
}

// NewServer creates a Server. Reports are only published after the Server
// is added as a report handler of the Session.
func NewServer(session *rd03d.Session, rw PacketReadWriter) *Server {
	s := &Server{
		Session: session,
		reports: make(chan *msgs.TargetReport, reportQueueSize),
	}
	s.pipe.ReadWriter = rw
	s.pipe.Handler = msgs.HandleTypedMsgFunc(s.handleTypedMsg)
	return s
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "remote-server"
}

// HandleReport implements rd03d.ReportHandler. Reports are dropped when
// the publisher falls behind.
func (s *Server) HandleReport(targets rd03d.Targets) {
	select {
	case s.reports <- msgs.NewTargetReport(targets, time.Now()):
	default:
		glog.V(2).Info("report queue full, drop")
	}
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	go s.publishLoop(ctx)
	return s.pipe.Run(ctx)
}

func (s *Server) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case report := <-s.reports:
			if err := s.publish(report); err != nil {
				glog.Warningf("publish report: %v", err)
			}
		}
	}
}

func (s *Server) publish(report *msgs.TargetReport) error {
	if s.Events == nil {
		return s.pipe.SendEventMsg(report)
	}
	typed, err := msgs.TypedFrom(report)
	if err != nil {
		return err
	}
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	return s.Events.WritePacket(pkt)
}

func (s *Server) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if !typed.IsCommand() || typed.IsReply() {
		return nil
	}
	go func(seq uint32) {
		reply := s.Execute(ctx, msg)
		if err := s.pipe.SendCommandMsg(reply, seq); err != nil {
			glog.Warningf("reply %d: %v", seq, err)
		}
	}(typed.Sequence)
	return nil
}

// Execute runs one command message on the Session and returns the reply.
func (s *Server) Execute(ctx context.Context, msg fx.Message) fx.Message {
	reply, err := s.execute(ctx, msg)
	if err != nil {
		glog.Warningf("%T: %v", msg, err)
		return msgs.NewCommandErr(err)
	}
	return reply
}

func (s *Server) execute(ctx context.Context, msg fx.Message) (fx.Message, error) {
	switch m := msg.(type) {
	case *msgs.Configure:
		attr, err := attributeOf(m.Attribute)
		if err != nil {
			return nil, err
		}
		if err := s.Session.Configure(ctx, attr, m.Value); err != nil {
			return nil, err
		}
	case *msgs.ReadAttribute:
		attr, err := attributeOf(m.Attribute)
		if err != nil {
			return nil, err
		}
		val, err := s.Session.Read(ctx, attr)
		if err != nil {
			return nil, err
		}
		return &msgs.AttributeValue{Attribute: m.Attribute, Value: val}, nil
	case *msgs.SetOperationMode:
		if m.Mode > 0xff {
			return nil, fmt.Errorf("%w: %#x", rd03d.ErrMode, m.Mode)
		}
		if err := s.Session.SetOperationMode(ctx, rd03d.OperationMode(m.Mode)); err != nil {
			return nil, err
		}
	case *msgs.SetDetectionMode:
		if m.Mode > 0xff {
			return nil, fmt.Errorf("unknown detection mode %d", m.Mode)
		}
		if err := s.Session.SetDetectionMode(ctx, rd03d.DetectionMode(m.Mode)); err != nil {
			return nil, err
		}
	case *msgs.PollTargets:
		return &msgs.TargetsReply{Report: msgs.NewTargetReport(s.Session.PollTargets(), time.Now())}, nil
	case *msgs.StatusQuery:
		return msgs.NewStatus(s.Session), nil
	default:
		return nil, msgs.ErrUnsupportedCommand
	}
	return &msgs.CommandOK{}, nil
}

// attributeOf range checks a wire attribute before it's narrowed.
func attributeOf(v uint32) (rd03d.Attribute, error) {
	if v >= rd03d.NumAttributes {
		return 0, fmt.Errorf("unknown attribute %d", v)
	}
	return rd03d.Attribute(v), nil
}
