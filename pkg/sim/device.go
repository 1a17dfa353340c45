package sim

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rd03d/pkg/rd03d"
)

// DefaultReportInterval is how often the simulated sensor streams reports.
const DefaultReportInterval = 100 * time.Millisecond

// Device simulates an RD-03D sensor on the far end of the UART.
// Writes are commands from the host, reads return acks and reports.
type Device struct {
	Scene          Scene
	ReportInterval time.Duration

	lock      sync.Mutex
	cond      *sync.Cond
	out       bytes.Buffer
	closed    bool
	parser    rd03d.Synchronizer
	config    bool
	attrs     [rd03d.NumAttributes]int32
	detection rd03d.DetectionMode
	commands  []rd03d.CommandKind
	mute      int
	failNext  uint16
}

// NewDevice creates a Device streaming reports in multi-target detection.
func NewDevice() *Device {
	d := &Device{
		Scene:          DefaultScene,
		ReportInterval: DefaultReportInterval,
		detection:      rd03d.DetectionMulti,
		attrs:          [rd03d.NumAttributes]int32{0, 800, 1, 5, 10},
	}
	d.cond = sync.NewCond(&d.lock)
	return d
}

// Name implements framework.Named.
func (d *Device) Name() string {
	return "sim"
}

// Read implements io.Reader. It blocks until output is available.
func (d *Device) Read(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for d.out.Len() == 0 && !d.closed {
		d.cond.Wait()
	}
	if d.out.Len() == 0 {
		return 0, io.EOF
	}
	return d.out.Read(p)
}

// Write implements io.Writer.
func (d *Device) Write(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}
	for _, frame := range d.parser.Feed(p) {
		if frame.Class != rd03d.FrameCommand {
			continue
		}
		kind, value, err := rd03d.DecodeCommand(frame.Data)
		if err != nil {
			glog.Warningf("sim: bad command: %v", err)
			continue
		}
		d.handleCommand(kind, value)
	}
	return len(p), nil
}

// Close implements io.Closer. Pending reads return io.EOF.
func (d *Device) Close() error {
	d.lock.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.lock.Unlock()
	return nil
}

// Run streams the scene until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	interval := d.ReportInterval
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			d.Emit(d.Scene.Targets(now.Sub(start)))
		}
	}
}

// Emit sends a report unless the device is in config mode.
func (d *Device) Emit(targets rd03d.Targets) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.config {
		d.writeLocked(rd03d.EncodeReport(targets))
	}
}

// Inject sends raw bytes, e.g. line noise.
func (d *Device) Inject(raw []byte) {
	d.lock.Lock()
	d.writeLocked(raw)
	d.lock.Unlock()
}

// MuteNext makes the device ignore the next n commands.
func (d *Device) MuteNext(n int) {
	d.lock.Lock()
	d.mute = n
	d.lock.Unlock()
}

// FailNext makes the next ack carry status.
func (d *Device) FailNext(status uint16) {
	d.lock.Lock()
	d.failNext = status
	d.lock.Unlock()
}

// Commands returns the commands received so far.
func (d *Device) Commands() []rd03d.CommandKind {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]rd03d.CommandKind(nil), d.commands...)
}

// InConfig tells if the device is in configuration mode.
func (d *Device) InConfig() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.config
}

// Attribute returns the stored attribute value.
func (d *Device) Attribute(attr rd03d.Attribute) int32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.attrs[attr]
}

// SetAttribute stores an attribute value as if configured earlier.
func (d *Device) SetAttribute(attr rd03d.Attribute, value int32) {
	d.lock.Lock()
	d.attrs[attr] = value
	d.lock.Unlock()
}

// DetectionMode returns the detection mode.
func (d *Device) DetectionMode() rd03d.DetectionMode {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.detection
}

func (d *Device) handleCommand(kind rd03d.CommandKind, value int32) {
	d.commands = append(d.commands, kind)
	if d.mute > 0 {
		d.mute--
		return
	}
	if kind.RequiresConfigMode() && !d.config {
		glog.Warningf("sim: %s ignored outside config mode", kind)
		return
	}
	if status := d.failNext; status != rd03d.StatusSuccess {
		d.failNext = rd03d.StatusSuccess
		d.writeLocked(rd03d.EncodeAckStatus(kind, status, 0))
		return
	}
	var reply int32
	switch {
	case kind == rd03d.CmdOpenConfigMode:
		d.config = true
	case kind == rd03d.CmdCloseConfigMode:
		d.config = false
	case kind.IsSet():
		attr, _ := kind.Attribute()
		d.attrs[attr] = value
	case kind.IsGet():
		attr, _ := kind.Attribute()
		reply = d.attrs[attr]
	case kind == rd03d.CmdSetSingleTargetMode:
		d.detection = rd03d.DetectionSingle
	case kind == rd03d.CmdSetMultiTargetMode:
		d.detection = rd03d.DetectionMulti
	}
	d.writeLocked(rd03d.EncodeAck(kind, reply))
}

func (d *Device) writeLocked(p []byte) {
	if d.closed {
		return
	}
	d.out.Write(p)
	d.cond.Broadcast()
}
