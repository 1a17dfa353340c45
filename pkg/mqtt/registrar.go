package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/remote"
)

// Meta describes a sensor. It's published retained on <id>/meta and
// cleared when the daemon goes away.
type Meta struct {
	ID          string            `json:"id"`
	Port        string            `json:"port,omitempty"`
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// TopicWriter implements remote.PacketWriter publishing on a fixed topic.
type TopicWriter struct {
	Queue *Queue
	Topic string
}

// WritePacket implements PacketWriter.
func (w *TopicWriter) WritePacket(pkt []byte) error {
	token := w.Queue.Pub(w.Topic, pkt)
	token.Wait()
	return token.Error()
}

// Registrar exposes a Session on MQTT: commands on <id>/cmd are executed
// and replied on <id>/reply, reports are published on <id>/targets.
type Registrar struct {
	Queue  *Queue
	Meta   Meta
	Server *remote.Server

	metaJSON []byte
	rw       *ReadWriter
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, meta Meta, session *rd03d.Session) (*Registrar, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		panic(err)
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+SensorTopic(meta.ID, TopicMeta), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("rd03d:" + meta.ID)
	}
	r := &Registrar{
		Queue:    NewQueue(opts, topicPrefix),
		Meta:     meta,
		metaJSON: metaJSON,
	}
	r.Queue.OnConnect = func(*Queue) { r.onConnected() }
	r.rw = NewPacketReadWriter(r.Queue).ForServer(meta.ID)
	r.Server = remote.NewServer(session, r.rw)
	r.Server.Events = &TopicWriter{Queue: r.Queue, Topic: SensorTopic(meta.ID, TopicTargets)}
	session.AddReportHandler(r.Server)
	return r, nil
}

// Name implements framework.Named.
func (r *Registrar) Name() string {
	return "mqtt"
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	r.rw.Subscribe()
	r.Queue.Connect()
	go func() {
		<-ctx.Done()
		r.rw.Close()
	}()
	err := r.Server.Run(ctx)
	r.Queue.PubWith(SensorTopic(r.Meta.ID, TopicMeta), nil, 1, true).Wait()
	r.Queue.Close()
	return err
}

func (r *Registrar) onConnected() {
	glog.Infof("registered %s", r.Meta.ID)
	r.Queue.PubWith(SensorTopic(r.Meta.ID, TopicMeta), r.metaJSON, 1, true)
}
