package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/rd03d/pkg/remote"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector finds sensors and connects to them through MQTT.
type Connector struct {
	DiscoverTimeout time.Duration
	ConnectTimeout  time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		ConnectTimeout:  DefaultConnectTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// Discover collects the retained meta of registered sensors.
func (c *Connector) Discover(ctx context.Context) (res []Meta, err error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err = q.ConnectWait(c.ConnectTimeout); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan Meta, 1)
	q.Sub("+/"+TopicMeta, Handler(func(topic string, payload []byte) {
		if len(payload) == 0 {
			// cleared by will.
			return
		}
		var meta Meta
		if err := json.Unmarshal(payload, &meta); err != nil {
			glog.Warningf("%s: bad meta: %v", topic, err)
			return
		}
		if meta.ID == "" {
			meta.ID = strings.SplitN(topic, "/", 2)[0]
		}
		select {
		case resCh <- meta:
		case <-time.After(time.Second):
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case meta := <-resCh:
			res = append(res, meta)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Client is a remote.Client connected through MQTT.
type Client struct {
	*remote.Client
	Queue *Queue
}

// Connect connects to the sensor with id. The returned Client must be Run.
func (c *Connector) Connect(ctx context.Context, id string) (*Client, error) {
	q := NewQueue(c.options, c.topicPrefix)
	rw := NewPacketReadWriter(q).ForClient(id).Subscribe()
	if err := q.ConnectWait(c.ConnectTimeout); err != nil {
		return nil, err
	}
	return &Client{
		Client: remote.NewClient(remote.NewConn(rw)),
		Queue:  q,
	}, nil
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.Client.Close()
	return c.Queue.Close()
}
