package mqtt

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	// ErrConnectTimeout indicates the broker didn't accept the connection in time.
	ErrConnectTimeout = errors.New("connect timeout")
)

// Topics of a sensor, relative to the queue prefix.
const (
	TopicMeta    = "meta"
	TopicTargets = "targets"
	TopicCmd     = "cmd"
	TopicReply   = "reply"
)

// SensorTopic returns the topic of a sensor.
func SensorTopic(id, name string) string {
	return id + "/" + name
}

// ReadWriter implements remote.PacketReadWriter over topics.
type ReadWriter struct {
	Queue     *Queue
	SubTopics []string
	PubTopic  string

	packetCh  chan []byte
	subs      []*Subscription
	closeOnce sync.Once
	closed    chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(pub string, subs ...string) *ReadWriter {
	p.PubTopic, p.SubTopics = pub, subs
	return p
}

// ForClient sets topics using default convention for a remote client:
// SubTopics = id/reply, id/targets
// PubTopic = id/cmd
func (p *ReadWriter) ForClient(id string) *ReadWriter {
	return p.WithTopics(SensorTopic(id, TopicCmd), SensorTopic(id, TopicReply), SensorTopic(id, TopicTargets))
}

// ForServer sets topics using default convention for the daemon:
// SubTopics = id/cmd
// PubTopic = id/reply
func (p *ReadWriter) ForServer(id string) *ReadWriter {
	return p.WithTopics(SensorTopic(id, TopicReply), SensorTopic(id, TopicCmd))
}

// Subscribe starts receiving packets.
func (p *ReadWriter) Subscribe() *ReadWriter {
	for _, topic := range p.SubTopics {
		p.subs = append(p.subs, p.Queue.Sub(topic, Handler(p.handleMsg)))
	}
	return p
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Close unsubscribes and unblocks ReadPacket.
func (p *ReadWriter) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		for _, sub := range p.subs {
			if e := sub.Close(); e != nil && err == nil {
				err = e
			}
		}
	})
	return err
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	if p.subs == nil {
		p.Subscribe()
	}
	<-ctx.Done()
	p.Close()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.closed:
	}
}
