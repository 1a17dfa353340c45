package remote

import (
	"container/list"
	"context"
	"sync"
	"time"

	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/msgs"
)

// DefaultCommandExpiration is the default expiration expecting a result.
// A remote command may take an open, the command itself and a close
// exchange on the sensor.
const DefaultCommandExpiration = 5 * time.Second

// Conn sends commands through a Pipe and matches replies by sequence.
type Conn struct {
	Expiration time.Duration
	// EventHandler receives event messages, e.g. TargetReport.
	EventHandler fx.MessageHandler

	pipe     Pipe
	seq      uint32
	commands list.List
	seqMap   map[uint32]*commandFuture
	lock     sync.Mutex
}

// NewConn creates a Conn.
func NewConn(rw PacketReadWriter) *Conn {
	c := &Conn{}
	c.Init(rw)
	return c
}

// Init initializes Conn with defaults.
func (c *Conn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	c.seqMap = make(map[uint32]*commandFuture)
}

// DoCommand sends a command and returns the future of its reply.
func (c *Conn) DoCommand(msg fx.Message) CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f := &commandFuture{
		seq:      c.seq,
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan Result, 1),
	}
	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		f.result <- Result{Err: err}
		close(f.result)
		return f
	}
	f.elem = c.commands.PushBack(f)
	c.seqMap[f.seq] = f
	return f
}

// Do sends a command and waits for the reply. A CommandErr reply is
// returned as the error.
func (c *Conn) Do(ctx context.Context, msg fx.Message) (fx.Message, error) {
	select {
	case result := <-c.DoCommand(msg).ResultChan():
		return result.Msg, result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandlePacket feeds a packet received outside the pipe, e.g. from
// another topic.
func (c *Conn) HandlePacket(ctx context.Context, pkt []byte) error {
	return c.pipe.HandlePacket(ctx, pkt)
}

// Run implements Runnable.
func (c *Conn) Run(ctx context.Context) error {
	go c.purgeLoop(ctx)
	return c.pipe.Run(ctx)
}

// Close implements io.Closer.
func (c *Conn) Close() error {
	return c.pipe.Close()
}

func (c *Conn) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		if h := c.EventHandler; h != nil {
			h.HandleMessage(ctx, msg)
		}
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.seqMap[typed.Sequence]
	if f == nil {
		return nil
	}
	c.commands.Remove(f.elem)
	delete(c.seqMap, typed.Sequence)
	result := Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.result <- result
	close(f.result)
	return nil
}

func (c *Conn) purgeLoop(ctx context.Context) {
	interval := c.Expiration / 10
	if interval <= 0 {
		interval = DefaultCommandExpiration / 10
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.purgeExpired(now)
		}
	}
}

func (c *Conn) purgeExpired(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.commands.Len() > 0 {
		elem := c.commands.Front()
		f := elem.Value.(*commandFuture)
		if f.expireAt.After(now) {
			break
		}
		c.commands.Remove(elem)
		delete(c.seqMap, f.seq)
		f.result <- Result{Err: ErrNoReply}
		close(f.result)
	}
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	elem     *list.Element
	result   chan Result
}

func (c *commandFuture) ResultChan() <-chan Result {
	return c.result
}
