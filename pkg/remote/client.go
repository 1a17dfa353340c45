package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/msgs"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// Client drives a remote Session through a Conn.
type Client struct {
	*Conn
	// ReportTimeout bounds WaitReport.
	ReportTimeout time.Duration

	lock     sync.Mutex
	last     rd03d.Targets
	reportCh chan struct{}
}

// NewClient creates a Client. It takes over the Conn's EventHandler.
func NewClient(conn *Conn) *Client {
	c := &Client{
		Conn:          conn,
		ReportTimeout: time.Second,
		reportCh:      make(chan struct{}),
	}
	conn.EventHandler = fx.HandleMessageFunc(c.handleEvent)
	return c
}

// Configure writes an attribute.
func (c *Client) Configure(ctx context.Context, attr rd03d.Attribute, value int32) error {
	_, err := c.Do(ctx, &msgs.Configure{Attribute: uint32(attr), Value: value})
	return err
}

// Read reads an attribute.
func (c *Client) Read(ctx context.Context, attr rd03d.Attribute) (int32, error) {
	reply, err := c.Do(ctx, &msgs.ReadAttribute{Attribute: uint32(attr)})
	if err != nil {
		return 0, err
	}
	val, ok := reply.(*msgs.AttributeValue)
	if !ok {
		return 0, fmt.Errorf("unexpected reply %T", reply)
	}
	return val.Value, nil
}

// SetOperationMode switches the operation mode.
func (c *Client) SetOperationMode(ctx context.Context, mode rd03d.OperationMode) error {
	_, err := c.Do(ctx, &msgs.SetOperationMode{Mode: uint32(mode)})
	return err
}

// SetDetectionMode switches the detection mode.
func (c *Client) SetDetectionMode(ctx context.Context, mode rd03d.DetectionMode) error {
	_, err := c.Do(ctx, &msgs.SetDetectionMode{Mode: uint32(mode)})
	return err
}

// PollTargets fetches the most recent report of the remote Session.
func (c *Client) PollTargets(ctx context.Context) (rd03d.Targets, error) {
	reply, err := c.Do(ctx, &msgs.PollTargets{})
	if err != nil {
		return rd03d.Targets{}, err
	}
	targets, ok := reply.(*msgs.TargetsReply)
	if !ok {
		return rd03d.Targets{}, fmt.Errorf("unexpected reply %T", reply)
	}
	if targets.Report == nil {
		return rd03d.Targets{}, nil
	}
	return targets.Report.Decoded(), nil
}

// Status queries the remote Session.
func (c *Client) Status(ctx context.Context) (*msgs.Status, error) {
	reply, err := c.Do(ctx, &msgs.StatusQuery{})
	if err != nil {
		return nil, err
	}
	status, ok := reply.(*msgs.Status)
	if !ok {
		return nil, fmt.Errorf("unexpected reply %T", reply)
	}
	return status, nil
}

// WaitReport waits for the next TargetReport event.
func (c *Client) WaitReport(ctx context.Context) (rd03d.Targets, error) {
	c.lock.Lock()
	ch := c.reportCh
	c.lock.Unlock()
	timer := time.NewTimer(c.ReportTimeout)
	defer timer.Stop()
	select {
	case <-ch:
		c.lock.Lock()
		defer c.lock.Unlock()
		return c.last, nil
	case <-timer.C:
		return rd03d.Targets{}, fmt.Errorf("wait report: %w", rd03d.ErrTimeout)
	case <-ctx.Done():
		return rd03d.Targets{}, ctx.Err()
	}
}

func (c *Client) handleEvent(_ context.Context, msg fx.Message) {
	report, ok := msg.(*msgs.TargetReport)
	if !ok {
		return
	}
	c.lock.Lock()
	c.last = report.Decoded()
	close(c.reportCh)
	c.reportCh = make(chan struct{})
	c.lock.Unlock()
}
