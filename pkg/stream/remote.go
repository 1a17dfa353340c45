package stream

import (
	"context"
	"strings"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/rd03d/pkg/rd03d"
	"github.com/robotalks/rd03d/pkg/remote"
)

// ReadWriter implements remote.PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// CommandHandler serves remote commands on session over a websocket.
// Reports are not pushed on this connection, see Hub.
func CommandHandler(session *rd03d.Session) websocket.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		addr := conn.Request().RemoteAddr
		glog.Infof("remote %s connected", addr)
		server := remote.NewServer(session, New(conn))
		err := server.Run(conn.Request().Context())
		glog.Infof("remote %s disconnected: %v", addr, err)
	})
}

// Dial connects to a CommandHandler. The returned Client must be Run.
func Dial(url string) (*remote.Client, error) {
	origin := "http://localhost/"
	if strings.HasPrefix(url, "wss://") {
		origin = "https://localhost/"
	}
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return remote.NewClient(remote.NewConn(New(conn))), nil
}

// RunClient runs client until ctx is done, closing the connection on cancel.
func RunClient(ctx context.Context, client *remote.Client) error {
	go func() {
		<-ctx.Done()
		client.Close()
	}()
	return client.Run(ctx)
}
