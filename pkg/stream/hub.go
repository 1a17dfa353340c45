// Package stream serves decoded reports and remote commands over websockets.
package stream

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/rd03d/pkg/msgs"
	"github.com/robotalks/rd03d/pkg/rd03d"
)

// DefaultQueueSize is the number of reports buffered per watcher.
const DefaultQueueSize = 16

// Hub broadcasts reports to websocket watchers as JSON TargetReport.
type Hub struct {
	QueueSize int

	lock     sync.Mutex
	watchers map[*watcher]struct{}
}

type watcher struct {
	reports chan *msgs.TargetReport
	dropped uint64
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{QueueSize: DefaultQueueSize, watchers: make(map[*watcher]struct{})}
}

// HandleReport implements rd03d.ReportHandler. A slow watcher loses
// reports instead of blocking the session.
func (h *Hub) HandleReport(targets rd03d.Targets) {
	report := msgs.NewTargetReport(targets, time.Now())
	h.lock.Lock()
	defer h.lock.Unlock()
	for w := range h.watchers {
		select {
		case w.reports <- report:
		default:
			w.dropped++
		}
	}
}

// Watchers returns the number of connected watchers.
func (h *Hub) Watchers() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.watchers)
}

// Subscribe registers a watcher and returns its report channel and a
// func to unregister.
func (h *Hub) Subscribe() (<-chan *msgs.TargetReport, func()) {
	size := h.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	w := &watcher{reports: make(chan *msgs.TargetReport, size)}
	h.lock.Lock()
	h.watchers[w] = struct{}{}
	h.lock.Unlock()
	return w.reports, func() {
		h.lock.Lock()
		delete(h.watchers, w)
		dropped := w.dropped
		h.lock.Unlock()
		if dropped > 0 {
			glog.V(2).Infof("watcher dropped %d reports", dropped)
		}
	}
}

// Handler serves a websocket streaming one JSON object per report.
func (h *Hub) Handler() websocket.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()
	reports, unsubscribe := h.Subscribe()
	defer unsubscribe()
	glog.Infof("watcher %s connected", conn.Request().RemoteAddr)
	closed := make(chan struct{})
	go func() {
		// watchers don't send anything, a read only returns on close.
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
		close(closed)
	}()
	for {
		select {
		case report := <-reports:
			if err := websocket.JSON.Send(conn, report); err != nil {
				glog.V(2).Infof("watcher %s: %v", conn.Request().RemoteAddr, err)
				return
			}
		case <-closed:
			glog.Infof("watcher %s disconnected", conn.Request().RemoteAddr)
			return
		}
	}
}
