package rd03d

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout bounds a single command exchange.
const DefaultTimeout = time.Second

// ReportHandler is called for every decoded report.
// It runs on the producer side and must not block.
type ReportHandler interface {
	HandleReport(Targets)
}

// HandleReportFunc is func type of ReportHandler.
type HandleReportFunc func(Targets)

// HandleReport implements ReportHandler.
func (f HandleReportFunc) HandleReport(targets Targets) {
	f(targets)
}

// SessionStats contains the counters of a Session.
type SessionStats struct {
	Sync        SyncStats
	Commands    uint64
	Timeouts    uint64
	AckErrors   uint64
	StrayFrames uint64
	Reports     uint64
}

// Session drives one sensor over a byte stream.
// Bytes from the sensor are pushed in through OnBytes and commands are
// written to the io.Writer given to NewSession.
type Session struct {
	// Timeout bounds each command exchange and each wait for the channel.
	Timeout time.Duration
	// CommandHook, when set, is called after every exchange.
	CommandHook func(kind CommandKind, err error, elapsed time.Duration)

	w io.Writer

	lock       sync.Mutex
	sync       Synchronizer
	mode       OperationMode
	detection  DetectionMode
	attrs      map[Attribute]int32
	targets    Targets
	pending    CommandKind
	hasPending bool
	// owed is a command given up on whose ack may still arrive, until
	// owedUntil.
	owed      CommandKind
	owedUntil time.Time
	reportCh   chan struct{}
	handlers   []ReportHandler
	stats      SessionStats

	// frame ready, raised by the producer for the pending command.
	ready chan *Frame
	// channel free, held for a complete command round trip.
	chanFree chan struct{}
}

// NewSession creates a Session writing commands to w.
// The sensor is assumed streaming reports with multi-target detection,
// which is its power-on state.
func NewSession(w io.Writer) *Session {
	s := &Session{
		Timeout:   DefaultTimeout,
		w:         w,
		mode:      ModeReport,
		detection: DetectionMulti,
		attrs:     make(map[Attribute]int32),
		reportCh:  make(chan struct{}),
		ready:     make(chan *Frame, 1),
		chanFree:  make(chan struct{}, 1),
	}
	s.sync.OnError = s.framingError
	return s
}

// AddReportHandler registers h to receive decoded reports.
func (s *Session) AddReportHandler(h ReportHandler) {
	s.lock.Lock()
	s.handlers = append(s.handlers, h)
	s.lock.Unlock()
}

// OperationMode returns the current operation mode.
func (s *Session) OperationMode() OperationMode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.mode
}

// DetectionMode returns the current detection mode.
func (s *Session) DetectionMode() DetectionMode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.detection
}

// Attributes returns the attribute values confirmed by the sensor so far.
func (s *Session) Attributes() map[Attribute]int32 {
	s.lock.Lock()
	defer s.lock.Unlock()
	attrs := make(map[Attribute]int32, len(s.attrs))
	for k, v := range s.attrs {
		attrs[k] = v
	}
	return attrs
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() SessionStats {
	s.lock.Lock()
	defer s.lock.Unlock()
	stats := s.stats
	stats.Sync = s.sync.Stats()
	return stats
}

// PollTargets returns the targets of the most recent report without blocking.
func (s *Session) PollTargets() Targets {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.targets
}

// WaitReport waits for the next report and returns its targets.
func (s *Session) WaitReport(ctx context.Context) (Targets, error) {
	s.lock.Lock()
	ch := s.reportCh
	s.lock.Unlock()
	timer := time.NewTimer(s.timeout())
	defer timer.Stop()
	select {
	case <-ch:
		return s.PollTargets(), nil
	case <-timer.C:
		return Targets{}, fmt.Errorf("wait report: %w", ErrTimeout)
	case <-ctx.Done():
		return Targets{}, ctx.Err()
	}
}

// OnBytes feeds bytes received from the sensor. It never blocks on a
// command caller.
func (s *Session) OnBytes(p []byte) {
	var reports []Targets
	s.lock.Lock()
	for _, frame := range s.sync.Feed(p) {
		switch frame.Class {
		case FrameReport:
			targets, err := DecodeReport(frame.Data)
			if err != nil {
				glog.Warningf("drop report: %v", err)
				continue
			}
			s.targets = targets
			s.stats.Reports++
			reports = append(reports, targets)
		case FrameCommand:
			if s.isOwedAck(frame) {
				s.stats.StrayFrames++
				glog.V(2).Infof("RX late %s % x", s.owed, frame.Data)
				s.owedUntil = time.Time{}
				continue
			}
			if !s.hasPending {
				s.stats.StrayFrames++
				glog.V(2).Infof("RX unsolicited % x", frame.Data)
				continue
			}
			glog.V(2).Infof("RX %s % x", s.pending, frame.Data)
			s.hasPending = false
			s.ready <- frame
		}
	}
	handlers := s.handlers
	if len(reports) > 0 {
		close(s.reportCh)
		s.reportCh = make(chan struct{})
	}
	s.lock.Unlock()

	for _, targets := range reports {
		for _, h := range handlers {
			h.HandleReport(targets)
		}
	}
}

// SendCommand performs one command exchange. Attribute, detection and
// operation mode commands open configuration mode first when needed, and
// switching the operation mode closes it afterwards.
func (s *Session) SendCommand(ctx context.Context, kind CommandKind, value int32) (*Ack, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown command %d", int(kind))
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if kind == CmdCloseConfigMode && !s.OperationMode().InConfig() {
		return nil, fmt.Errorf("%s: %w: not in config mode", kind, ErrMode)
	}
	if kind.RequiresConfigMode() && !s.OperationMode().InConfig() {
		if _, err := s.exchange(ctx, CmdOpenConfigMode, 0); err != nil {
			return nil, err
		}
	}
	ack, err := s.exchange(ctx, kind, value)
	if err != nil {
		return nil, err
	}
	if kind.IsOperationMode() && s.OperationMode().InConfig() {
		if _, err = s.exchange(ctx, CmdCloseConfigMode, 0); err != nil {
			return ack, err
		}
	}
	return ack, nil
}

// Configure writes an attribute.
func (s *Session) Configure(ctx context.Context, attr Attribute, value int32) error {
	if !attr.IsValid() {
		return fmt.Errorf("unknown attribute %d", uint16(attr))
	}
	_, err := s.SendCommand(ctx, attr.SetCommand(), value)
	return err
}

// Read reads an attribute from the sensor.
func (s *Session) Read(ctx context.Context, attr Attribute) (int32, error) {
	if !attr.IsValid() {
		return 0, fmt.Errorf("unknown attribute %d", uint16(attr))
	}
	ack, err := s.SendCommand(ctx, attr.GetCommand(), 0)
	if err != nil {
		return 0, err
	}
	return ack.Value, nil
}

// SetOperationMode switches to debug, report or run mode.
func (s *Session) SetOperationMode(ctx context.Context, mode OperationMode) error {
	kind, err := mode.Command()
	if err != nil {
		return err
	}
	_, err = s.SendCommand(ctx, kind, 0)
	return err
}

// SetDetectionMode switches between single and multi target detection.
func (s *Session) SetDetectionMode(ctx context.Context, mode DetectionMode) error {
	kind, err := mode.Command()
	if err != nil {
		return err
	}
	_, err = s.SendCommand(ctx, kind, 0)
	return err
}

// Setup runs the initialization sequence: attributes are read from the
// sensor (or written from c), then detection and operation modes are applied.
func (s *Session) Setup(ctx context.Context, c *Config) error {
	for attr := Attribute(0); attr < NumAttributes; attr++ {
		if c.WriteAttributes {
			if err := s.Configure(ctx, attr, c.Attribute(attr)); err != nil {
				return fmt.Errorf("set %s: %w", attr, err)
			}
			continue
		}
		val, err := s.Read(ctx, attr)
		if err != nil {
			return fmt.Errorf("get %s: %w", attr, err)
		}
		glog.Infof("%s = %d", attr, val)
	}
	if err := s.SetDetectionMode(ctx, c.Detection); err != nil {
		return fmt.Errorf("set detection mode: %w", err)
	}
	if err := s.SetOperationMode(ctx, c.Mode); err != nil {
		return fmt.Errorf("set operation mode: %w", err)
	}
	return nil
}

func (s *Session) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Session) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.timeout())
	defer timer.Stop()
	select {
	case s.chanFree <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("channel busy: %w", ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.chanFree
}

// exchange sends one command and waits for its ack. Caller holds chanFree.
func (s *Session) exchange(ctx context.Context, kind CommandKind, value int32) (ack *Ack, err error) {
	if hook := s.CommandHook; hook != nil {
		start := time.Now()
		defer func() { hook(kind, err, time.Since(start)) }()
	}
	frame := Encode(kind, value)
	s.lock.Lock()
	s.drainReady()
	s.pending, s.hasPending = kind, true
	if kind == CmdOpenConfigMode {
		// a retried open must not be mistaken for the late ack of the
		// one given up on.
		s.owedUntil = time.Time{}
	}
	s.stats.Commands++
	s.lock.Unlock()

	glog.V(2).Infof("TX %s % x", kind, frame)
	if _, err = s.w.Write(frame); err != nil {
		s.abort(kind, false, false)
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	timer := time.NewTimer(s.timeout())
	defer timer.Stop()
	select {
	case f := <-s.ready:
		ack, err = DecodeAck(f.Data, kind)
		s.lock.Lock()
		defer s.lock.Unlock()
		if err != nil {
			s.stats.AckErrors++
			return nil, err
		}
		s.applyAck(ack, value)
		return ack, nil
	case <-timer.C:
		s.abort(kind, true, true)
		glog.Warningf("%s: no ack in %v", kind, s.timeout())
		return nil, fmt.Errorf("%s: %w", kind, ErrTimeout)
	case <-ctx.Done():
		s.abort(kind, true, false)
		return nil, ctx.Err()
	}
}

// abort clears the pending command. When the command was sent its ack
// is owed for one more timeout window, so a late ack can't be taken as
// the answer to the next command.
func (s *Session) abort(kind CommandKind, sent, timedOut bool) {
	s.lock.Lock()
	s.hasPending = false
	s.drainReady()
	s.sync.Reset()
	if sent {
		s.owed, s.owedUntil = kind, time.Now().Add(s.timeout())
	}
	if timedOut {
		s.stats.Timeouts++
	}
	s.lock.Unlock()
}

// isOwedAck reports whether f looks like the ack of the owed command.
// Caller holds s.lock.
func (s *Session) isOwedAck(f *Frame) bool {
	if s.owedUntil.IsZero() {
		return false
	}
	if time.Now().After(s.owedUntil) {
		s.owedUntil = time.Time{}
		return false
	}
	return len(f.Data) == AckLen(s.owed) && f.Word() == s.owed.Word()|ReplyFlag
}

func (s *Session) drainReady() {
	select {
	case <-s.ready:
	default:
	}
}

func (s *Session) applyAck(ack *Ack, value int32) {
	switch kind := ack.Kind; {
	case kind == CmdOpenConfigMode:
		s.mode |= ModeConfig
	case kind == CmdCloseConfigMode:
		s.mode &^= ModeConfig
	case kind.IsSet():
		attr, _ := kind.Attribute()
		s.attrs[attr] = value
	case kind.IsGet():
		attr, _ := kind.Attribute()
		s.attrs[attr] = ack.Value
	case kind == CmdSetSingleTargetMode:
		s.detection = DetectionSingle
	case kind == CmdSetMultiTargetMode:
		s.detection = DetectionMulti
	case kind == CmdSetDebugMode:
		s.mode = s.mode&ModeConfig | ModeDebug
	case kind == CmdSetReportMode:
		s.mode = s.mode&ModeConfig | ModeReport
	case kind == CmdSetRunMode:
		s.mode = s.mode&ModeConfig | ModeRun
	}
}

func (s *Session) framingError(err error) {
	// called from Feed with s.lock held.
	glog.Warningf("resync: %v", err)
}
